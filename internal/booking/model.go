package booking

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bufia/equipment-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "reservation not found")
	ErrNotOwner         = apperror.New(http.StatusForbidden, "reservation belongs to another member")
	ErrInvalidKind      = apperror.New(http.StatusBadRequest, "invalid window kind")
	ErrInvalidSlot      = apperror.New(http.StatusBadRequest, "invalid slot, must be morning or afternoon")
	ErrInvalidDateOrder = apperror.New(http.StatusBadRequest, "end date must not precede start date")
	ErrStartInPast      = apperror.New(http.StatusBadRequest, "start date must not be in the past")
	ErrRangeTooLong     = apperror.New(http.StatusBadRequest, "rental exceeds the maximum allowed length")
	ErrKindMismatch     = apperror.New(http.StatusBadRequest, "window kind does not match the machine category")
	ErrInvalidStatus    = apperror.New(http.StatusBadRequest, "invalid status filter")
	ErrSlotTaken        = apperror.New(http.StatusConflict, "slot already requested for that machine and date")
	ErrWindowHeld       = apperror.New(http.StatusConflict, "window is temporarily held by another member")

	// Guard violations: workflow errors, not availability conflicts.
	ErrPaymentNotVerified = apperror.New(http.StatusUnprocessableEntity, "payment has not been verified")
	ErrNotPending         = apperror.New(http.StatusUnprocessableEntity, "reservation is not pending")
	ErrNotCancellable     = apperror.New(http.StatusUnprocessableEntity, "reservation can no longer be cancelled")
	ErrWindowStarted      = apperror.New(http.StatusUnprocessableEntity, "reservation window has already started")
)

// Status is a reservation's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

// Blocks reports whether a reservation in this status blocks others under
// the given policy. Maintenance windows block regardless and are handled
// separately.
func (s Status) Blocks(p Policy) bool {
	switch p {
	case PolicySubmission:
		return s == StatusPending || s == StatusApproved
	case PolicyApproval:
		return s == StatusApproved
	}
	return false
}

// Reservation is a member's request to use one machine for one window.
type Reservation struct {
	ID        string
	UserID    string
	MachineID string
	Window    Window
	Status    Status

	// WalkInCustomerName records a non-member customer on a booking an
	// admin entered on their behalf. The owning UserID is the admin.
	WalkInCustomerName *string

	PaymentVerified    bool
	PaymentVerifiedAt  *time.Time
	PaymentVerifiedBy  *string // verifier user id, nil when confirmed by the payment system
	ReferenceCode      string
	Purpose            string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Filter defines parameters for listing reservations.
type Filter struct {
	UserID    string
	MachineID string
	Status    string
	Page      int
	PageSize  int
}

// Conflict is one existing blocker of a proposed window.
type Conflict struct {
	ReservationID string
	UserID        string
	HolderName    string
	Window        Window
	Status        Status
	Maintenance   bool // true when the blocker is a maintenance window
}

// ConflictError reports that a proposed window is unavailable. Conflicts
// are ordered by start so callers can surface the first blocking window.
type ConflictError struct {
	MachineID string
	Proposed  Window
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return "window is not available"
	}
	first := e.Conflicts[0]
	if first.Maintenance {
		return fmt.Sprintf("window %s conflicts with maintenance scheduled %s", e.Proposed, first.Window)
	}
	if first.HolderName != "" {
		return fmt.Sprintf("window %s conflicts with %s reservation %s held by %s",
			e.Proposed, first.Status, first.Window, first.HolderName)
	}
	return fmt.Sprintf("window %s conflicts with %s reservation %s", e.Proposed, first.Status, first.Window)
}

// ConcurrencyAbortError wraps a ConflictError that only appeared after
// acquiring the machine lock: the optimistic pre-check passed, then the
// locked re-check saw a competing committed row. Callers treat it as a
// conflict; it is logged separately because it indicates contention.
type ConcurrencyAbortError struct {
	Conflict *ConflictError
}

func (e *ConcurrencyAbortError) Error() string {
	return "lost booking race: " + e.Conflict.Error()
}

func (e *ConcurrencyAbortError) Unwrap() error {
	return e.Conflict
}

// EventType enumerates observable lifecycle transitions.
type EventType string

const (
	EventSubmitted        EventType = "submitted"
	EventPaymentVerified  EventType = "payment_verified"
	EventApproved         EventType = "approved"
	EventRejected         EventType = "rejected"
	EventCancelled        EventType = "cancelled"
	EventCompleted        EventType = "completed"
	EventResubmitted      EventType = "resubmitted"
	EventConflictDetected EventType = "conflict_detected"
)

// Event is emitted after every committed lifecycle transition. The
// lifecycle manager knows nothing about notification content.
type Event struct {
	Type          EventType
	ReservationID string
	MachineID     string
	UserID        string
	OldStatus     Status
	NewStatus     Status
	Actor         string // user id of whoever drove the transition, empty for the system
	OccurredAt    time.Time
}

// EventSink consumes lifecycle events. Publish must not block the
// booking flow; failures are the sink's concern.
type EventSink interface {
	Publish(event Event)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Publish(Event) {}
