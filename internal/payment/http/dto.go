package http

import (
	"time"

	"github.com/bufia/equipment-booking-backend/internal/payment"
)

type RecordPaymentRequest struct {
	ReservationID string `json:"reservation_id" binding:"required,uuid"`
	Amount        int64  `json:"amount" binding:"required,min=1"`
	Method        string `json:"method" binding:"required,oneof=cash gcash bank_transfer"`
}

// GatewayWebhookRequest is the payload the payment gateway posts after a
// successful online payment.
type GatewayWebhookRequest struct {
	ReservationID string `json:"reservation_id" binding:"required,uuid"`
	Amount        int64  `json:"amount" binding:"required,min=1"`
}

type ListPaymentsRequest struct {
	ReservationID string `form:"reservation_id"`
	Method        string `form:"method"`
	Page          int    `form:"page,default=1"`
	PageSize      int    `form:"page_size,default=20"`
}

type PaymentResponse struct {
	ID            string    `json:"id"`
	ReservationID string    `json:"reservation_id"`
	Amount        int64     `json:"amount"`
	Method        string    `json:"method"`
	TransactionID string    `json:"transaction_id"`
	RecordedBy    *string   `json:"recorded_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewPaymentResponse(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		ReservationID: p.ReservationID,
		Amount:        p.Amount,
		Method:        string(p.Method),
		TransactionID: p.TransactionID,
		RecordedBy:    p.RecordedBy,
		CreatedAt:     p.CreatedAt,
	}
}
