package maintenance

import (
	"net/http"
	"time"

	"github.com/bufia/equipment-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "maintenance window not found")
	ErrInvalidStatus     = apperror.New(http.StatusBadRequest, "invalid maintenance status")
	ErrInvalidTransition = apperror.New(http.StatusConflict, "invalid maintenance status transition")
	ErrInvalidWindow     = apperror.New(http.StatusBadRequest, "end date must not precede start date")
	ErrEmptyReason       = apperror.New(http.StatusBadRequest, "reason cannot be empty")
)

// Status tracks a maintenance window through its life. Scheduled and
// in-progress windows block bookings; completed and cancelled ones do not.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the window still blocks bookings.
func (s Status) IsActive() bool {
	return s == StatusScheduled || s == StatusInProgress
}

// CanTransitionTo reports whether the status may move to next. Terminal
// states never transition.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusScheduled:
		return next == StatusInProgress || next == StatusCompleted || next == StatusCancelled
	case StatusInProgress:
		return next == StatusCompleted || next == StatusCancelled
	default:
		return false
	}
}

// Window is a planned downtime on one machine. Start and End are the
// half-open instant projection of an inclusive date range.
type Window struct {
	ID        string
	MachineID string
	StartDate time.Time
	EndDate   time.Time
	StartAt   time.Time
	EndAt     time.Time
	Reason    string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter defines parameters for listing maintenance windows.
type Filter struct {
	MachineID string
	Status    string
	Page      int
	PageSize  int
}
