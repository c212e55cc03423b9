package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bufia/equipment-booking-backend/internal/auth"
	"github.com/bufia/equipment-booking-backend/internal/booking"
	"github.com/bufia/equipment-booking-backend/internal/pkg/request"
	"github.com/bufia/equipment-booking-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// writeBookingError maps service errors to responses. Conflicts carry
// the full ordered conflict list so the caller can see exactly which
// window blocks them and whose it is; everything else resolves through
// the status carried on the error.
func writeBookingError(c *gin.Context, err error) {
	// ConcurrencyAbortError unwraps to ConflictError, so both surface the
	// same way here.
	var conflictErr *booking.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     conflictErr.Error(),
			"conflicts": NewConflictsResponse(conflictErr.Conflicts),
		})
		return
	}
	response.Error(c, err)
}

func (h *Handler) submitParams(c *gin.Context, req SubmitRequest) (booking.SubmitParams, bool) {
	params := booking.SubmitParams{
		UserID:             auth.GetUserID(c),
		MachineID:          req.MachineID,
		Kind:               booking.WindowKind(req.Kind),
		Purpose:            req.Purpose,
		WalkInCustomerName: req.WalkInCustomerName,
		IsAdmin:            auth.IsAdmin(c),
	}

	switch params.Kind {
	case booking.KindDateSlot:
		date, ok := parseDate(req.Date)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return params, false
		}
		params.Date = date
		params.Slot = booking.Slot(req.Slot)
	default:
		start, ok := parseDate(req.StartDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, expected YYYY-MM-DD"})
			return params, false
		}
		end, ok := parseDate(req.EndDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, expected YYYY-MM-DD"})
			return params, false
		}
		params.StartDate = start
		params.EndDate = end
	}
	return params, true
}

// Submit creates a booking request in pending state.
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	params, ok := h.submitParams(c, req)
	if !ok {
		return
	}

	res, err := h.service.Submit(c.Request.Context(), params)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewReservationResponse(res))
}

// Get returns one reservation. Members only see their own.
func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	res, err := h.service.GetByID(c.Request.Context(), req.ID, auth.GetUserID(c), auth.IsAdmin(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(res))
}

// List returns reservations. Members only see their own; admins may
// filter by user.
func (h *Handler) List(c *gin.Context) {
	var req ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query", "details": err.Error()})
		return
	}

	reservations, total, err := h.service.List(c.Request.Context(), booking.Filter{
		UserID:    req.UserID,
		MachineID: req.MachineID,
		Status:    req.Status,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}, auth.GetUserID(c), auth.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		items = append(items, NewReservationResponse(r))
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// CheckAvailability runs the availability check without creating anything.
func (h *Handler) CheckAvailability(c *gin.Context) {
	var req CheckAvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query", "details": err.Error()})
		return
	}

	var w booking.Window
	if booking.WindowKind(req.Kind) == booking.KindDateSlot {
		date, ok := parseDate(req.Date)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		slot := booking.Slot(req.Slot)
		if !slot.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot, must be morning or afternoon"})
			return
		}
		w = booking.NewDateSlotWindow(date, slot)
	} else {
		start, ok := parseDate(req.StartDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, expected YYYY-MM-DD"})
			return
		}
		end, ok := parseDate(req.EndDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, expected YYYY-MM-DD"})
			return
		}
		if end.Before(start) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end date must not precede start date"})
			return
		}
		w = booking.NewDateRangeWindow(start, end)
	}

	policy := booking.Policy(req.Policy)
	if policy == booking.PolicyApproval && !auth.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "approval policy checks are admin only"})
		return
	}

	available, conflicts, err := h.service.CheckAvailability(c.Request.Context(), req.MachineID, w, policy)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, AvailabilityResponse{
		Available: available,
		Conflicts: NewConflictsResponse(conflicts),
	})
}

// Approve finalizes a pending reservation. Admin only.
func (h *Handler) Approve(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	res, err := h.service.Approve(c.Request.Context(), req.ID, auth.GetUserID(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(res))
}

// Reject declines a pending reservation. Admin only.
func (h *Handler) Reject(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	res, err := h.service.Reject(c.Request.Context(), req.ID, auth.GetUserID(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(res))
}

// Cancel withdraws a reservation before its window starts.
func (h *Handler) Cancel(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	res, err := h.service.Cancel(c.Request.Context(), req.ID, auth.GetUserID(c), auth.IsAdmin(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(res))
}

// Resubmit changes a reservation's window; it returns to pending.
func (h *Handler) Resubmit(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}
	var req ResubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	params := booking.SubmitParams{
		UserID:  auth.GetUserID(c),
		IsAdmin: auth.IsAdmin(c),
		Slot:    booking.Slot(req.Slot),
	}
	if req.Date != "" {
		date, ok := parseDate(req.Date)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		params.Date = date
	}
	if req.StartDate != "" {
		start, ok := parseDate(req.StartDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, expected YYYY-MM-DD"})
			return
		}
		params.StartDate = start
	}
	if req.EndDate != "" {
		end, ok := parseDate(req.EndDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, expected YYYY-MM-DD"})
			return
		}
		params.EndDate = end
	}

	res, err := h.service.ResubmitWindow(c.Request.Context(), uri.ID, auth.GetUserID(c), params)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(res))
}

// BulkApprove approves several reservations; each succeeds or fails on
// its own. Admin only.
func (h *Handler) BulkApprove(c *gin.Context) {
	var req BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	results := h.service.BulkApprove(c.Request.Context(), req.ReservationIDs, auth.GetUserID(c))

	resp := BulkApproveResponse{Results: make([]BulkApproveItemResponse, 0, len(results))}
	for _, r := range results {
		item := BulkApproveItemResponse{ReservationID: r.ReservationID}
		if r.Err != nil {
			item.Error = r.Err.Error()
			resp.Failed++
		} else {
			item.Approved = true
			rr := NewReservationResponse(r.Reservation)
			item.Reservation = &rr
			resp.Approved++
		}
		resp.Results = append(resp.Results, item)
	}

	c.JSON(http.StatusOK, resp)
}

// ConflictReport lists pairs of approved reservations that overlap, a
// consistency check that should come back empty. Admin only.
func (h *Handler) ConflictReport(c *gin.Context) {
	overlaps, err := h.service.ConflictReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"overlaps": NewOverlapsResponse(overlaps),
		"count":    len(overlaps),
	})
}
