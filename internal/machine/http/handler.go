package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bufia/equipment-booking-backend/internal/machine"
	"github.com/bufia/equipment-booking-backend/internal/pkg/request"
	"github.com/bufia/equipment-booking-backend/internal/pkg/response"
)

type Handler struct {
	service machine.Service
}

func NewHandler(service machine.Service) *Handler {
	return &Handler{service: service}
}

// Create registers a new machine in the fleet. Admin only.
func (h *Handler) Create(c *gin.Context) {
	var req CreateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	m, err := h.service.Create(c.Request.Context(), req.Name, machine.Category(req.Category), req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewMachineResponse(m))
}

// Get returns one machine by ID.
func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}

	m, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewMachineResponse(m))
}

// List returns machines, optionally filtered by category and status.
func (h *Handler) List(c *gin.Context) {
	var req ListMachinesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query", "details": err.Error()})
		return
	}

	machines, total, err := h.service.List(c.Request.Context(), machine.Filter{
		Category: req.Category,
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]MachineResponse, 0, len(machines))
	for _, m := range machines {
		items = append(items, NewMachineResponse(m))
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Update modifies a machine's descriptive fields. Admin only.
func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}
	var req UpdateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	m, err := h.service.Update(c.Request.Context(), uri.ID, req.Name, machine.Category(req.Category), req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewMachineResponse(m))
}

// Delete removes a machine that has no pending or approved reservations.
// Admin only.
func (h *Handler) Delete(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), req.ID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// BlockedPeriods returns the machine's calendar of reservations and
// maintenance windows within a date range.
func (h *Handler) BlockedPeriods(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}
	var req BlockedPeriodsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query", "details": err.Error()})
		return
	}

	from, err := time.Parse(time.DateOnly, req.From)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date, expected YYYY-MM-DD"})
		return
	}
	toDate, err := time.Parse(time.DateOnly, req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date, expected YYYY-MM-DD"})
		return
	}
	if toDate.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to date must not precede from date"})
		return
	}
	// The range is inclusive of the last day.
	to := toDate.AddDate(0, 0, 1)

	periods, err := h.service.BlockedPeriods(c.Request.Context(), uri.ID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"machine_id": uri.ID, "periods": NewBlockedPeriodsResponse(periods)})
}

// RecomputeStatus forces a refresh of the machine's cached status. Admin only.
func (h *Handler) RecomputeStatus(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}

	m, err := h.service.RecomputeStatus(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewMachineResponse(m))
}
