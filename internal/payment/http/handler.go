package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bufia/equipment-booking-backend/internal/auth"
	"github.com/bufia/equipment-booking-backend/internal/payment"
	"github.com/bufia/equipment-booking-backend/internal/pkg/request"
	"github.com/bufia/equipment-booking-backend/internal/pkg/response"
)

type Handler struct {
	service payment.Service
}

func NewHandler(service payment.Service) *Handler {
	return &Handler{service: service}
}

// Record stores a manually collected payment (cash, bank transfer, or a
// face-to-face GCash confirmation) and verifies the reservation. Admin only.
func (h *Handler) Record(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	adminID := auth.GetUserID(c)
	p, err := h.service.Record(c.Request.Context(), req.ReservationID, req.Amount, payment.Method(req.Method), &adminID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewPaymentResponse(p))
}

// GatewayWebhook receives the payment gateway's confirmation callback.
// The verifier is the system, not a user.
func (h *Handler) GatewayWebhook(c *gin.Context) {
	var req GatewayWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	p, err := h.service.Record(c.Request.Context(), req.ReservationID, req.Amount, payment.MethodGCash, nil)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewPaymentResponse(p))
}

// Get returns one payment by ID. Admin only.
func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewPaymentResponse(p))
}

// List returns payments. Admin only.
func (h *Handler) List(c *gin.Context) {
	var req ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query", "details": err.Error()})
		return
	}

	payments, total, err := h.service.List(c.Request.Context(), payment.Filter{
		ReservationID: req.ReservationID,
		Method:        req.Method,
		Page:          req.Page,
		PageSize:      req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		items = append(items, NewPaymentResponse(p))
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}
