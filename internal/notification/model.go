package notification

import (
	"net/http"
	"time"

	"github.com/bufia/equipment-booking-backend/internal/pkg/apperror"
)

var ErrNotFound = apperror.New(http.StatusNotFound, "notification not found")

// Notification is one stored message for one member. Delivery is
// in-app: clients poll their list and mark entries read.
type Notification struct {
	ID            string
	UserID        string
	Kind          string
	Title         string
	Message       string
	ReservationID *string
	Read          bool
	CreatedAt     time.Time
}

// Filter defines parameters for listing notifications.
type Filter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
