package payment

import (
	"context"
	"log/slog"

	"github.com/bufia/equipment-booking-backend/internal/booking"
	"github.com/bufia/equipment-booking-backend/internal/logger"
)

type Service interface {
	// Record stores a confirmed payment and marks the reservation's
	// payment as verified. recordedBy is nil for gateway confirmations.
	Record(ctx context.Context, reservationID string, amount int64, method Method, recordedBy *string) (*Payment, error)
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByReservationID(ctx context.Context, reservationID string) (*Payment, error)
	List(ctx context.Context, filter Filter) ([]*Payment, int, error)
}

type service struct {
	repo     Repository
	bookings booking.Service
	log      *slog.Logger
}

func NewService(repo Repository, bookings booking.Service) Service {
	return &service{
		repo:     repo,
		bookings: bookings,
		log:      logger.WithService("payment"),
	}
}

func (s *service) Record(ctx context.Context, reservationID string, amount int64, method Method, recordedBy *string) (*Payment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !method.IsValid() {
		return nil, ErrInvalidMethod
	}

	p := &Payment{
		ReservationID: reservationID,
		Amount:        amount,
		Method:        method,
		RecordedBy:    recordedBy,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	if _, err := s.bookings.MarkPaymentVerified(ctx, reservationID, recordedBy); err != nil {
		// The payment row exists; surface the verification failure so the
		// caller retries rather than silently leaving the gate closed.
		s.log.Error("payment recorded but verification failed",
			"payment_id", p.ID, "reservation_id", reservationID, "error", err)
		return nil, err
	}

	s.log.Info("payment recorded",
		"payment_id", p.ID,
		"transaction_id", p.TransactionID,
		"reservation_id", reservationID,
		"method", method,
	)
	return p, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByReservationID(ctx context.Context, reservationID string) (*Payment, error) {
	return s.repo.GetByReservationID(ctx, reservationID)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Payment, int, error) {
	if filter.Method != "" && !Method(filter.Method).IsValid() {
		return nil, 0, ErrInvalidMethod
	}
	return s.repo.List(ctx, filter)
}
