package http

import (
	"time"

	"github.com/bufia/equipment-booking-backend/internal/notification"
)

type ListNotificationsRequest struct {
	UnreadOnly bool `form:"unread_only"`
	Page       int  `form:"page,default=1"`
	PageSize   int  `form:"page_size,default=20"`
}

type NotificationResponse struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	ReservationID *string   `json:"reservation_id,omitempty"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewNotificationResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		Kind:          n.Kind,
		Title:         n.Title,
		Message:       n.Message,
		ReservationID: n.ReservationID,
		Read:          n.Read,
		CreatedAt:     n.CreatedAt,
	}
}
