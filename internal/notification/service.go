package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bufia/equipment-booking-backend/internal/booking"
	"github.com/bufia/equipment-booking-backend/internal/logger"
)

type Service interface {
	List(ctx context.Context, filter Filter) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		log:  logger.WithService("notification"),
	}
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Notification, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, id, userID string) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// Sink turns booking lifecycle events into stored notifications. It
// implements booking.EventSink; writes happen on their own goroutine so
// a slow insert never delays the booking flow.
type Sink struct {
	repo Repository
	log  *slog.Logger
}

func NewSink(repo Repository) *Sink {
	return &Sink{
		repo: repo,
		log:  logger.WithService("notification"),
	}
}

const writeTimeout = 5 * time.Second

func (s *Sink) Publish(event booking.Event) {
	n, ok := render(event)
	if !ok {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := s.repo.Create(ctx, n); err != nil {
			s.log.Error("storing notification failed",
				"kind", n.Kind, "user_id", n.UserID, "error", err)
		}
	}()
}

// render builds the member-facing message for an event. Events with no
// member-facing message are skipped.
func render(event booking.Event) (*Notification, bool) {
	n := &Notification{
		UserID: event.UserID,
		Kind:   string(event.Type),
	}
	if event.ReservationID != "" {
		id := event.ReservationID
		n.ReservationID = &id
	}

	switch event.Type {
	case booking.EventSubmitted:
		n.Title = "Booking request received"
		n.Message = "Your booking request was received and is waiting for approval."
	case booking.EventPaymentVerified:
		n.Title = "Payment verified"
		n.Message = "Your payment was verified. Your booking is ready for approval."
	case booking.EventApproved:
		n.Title = "Booking approved"
		n.Message = "Your booking was approved. See you at the cooperative!"
	case booking.EventRejected:
		n.Title = "Booking rejected"
		n.Message = "Your booking request was rejected. Please contact the office for details."
	case booking.EventCancelled:
		n.Title = "Booking cancelled"
		n.Message = "Your booking was cancelled."
	case booking.EventCompleted:
		n.Title = "Booking completed"
		n.Message = "Your booking period has ended. Thank you!"
	case booking.EventResubmitted:
		n.Title = "Booking dates updated"
		n.Message = "Your booking dates were changed and the request is waiting for approval again."
	default:
		// conflict_detected and future event types are operational
		// signals, not member messages.
		return nil, false
	}

	if event.OldStatus != "" && event.NewStatus != "" && event.OldStatus != event.NewStatus {
		n.Message = fmt.Sprintf("%s (status: %s -> %s)", n.Message, event.OldStatus, event.NewStatus)
	}
	return n, true
}
