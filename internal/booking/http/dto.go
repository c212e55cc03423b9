package http

import (
	"time"

	"github.com/bufia/equipment-booking-backend/internal/booking"
)

type SubmitRequest struct {
	MachineID string `json:"machine_id" binding:"required,uuid"`
	Kind      string `json:"kind" binding:"required,oneof=date_range date_slot"`

	// Rental fields (kind=date_range)
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	// Appointment fields (kind=date_slot)
	Date string `json:"date"`
	Slot string `json:"slot"`

	Purpose            string  `json:"purpose"`
	WalkInCustomerName *string `json:"walk_in_customer_name"`
}

type ResubmitRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Date      string `json:"date"`
	Slot      string `json:"slot"`
}

type ListReservationsRequest struct {
	UserID    string `form:"user_id"`
	MachineID string `form:"machine_id"`
	Status    string `form:"status"`
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20"`
}

type CheckAvailabilityRequest struct {
	MachineID string `form:"machine_id" binding:"required,uuid"`
	Kind      string `form:"kind" binding:"required,oneof=date_range date_slot"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Date      string `form:"date"`
	Slot      string `form:"slot"`
	Policy    string `form:"policy,default=submission" binding:"omitempty,oneof=submission approval"`
}

type BulkApproveRequest struct {
	ReservationIDs []string `json:"reservation_ids" binding:"required,min=1,dive,uuid"`
}

type WindowResponse struct {
	Kind      string `json:"kind"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Slot      string `json:"slot,omitempty"`
}

func NewWindowResponse(w booking.Window) WindowResponse {
	return WindowResponse{
		Kind:      string(w.Kind),
		StartDate: w.StartDate.Format(time.DateOnly),
		EndDate:   w.EndDate.Format(time.DateOnly),
		Slot:      string(w.Slot),
	}
}

type ReservationResponse struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"user_id"`
	MachineID          string         `json:"machine_id"`
	Window             WindowResponse `json:"window"`
	Status             string         `json:"status"`
	WalkInCustomerName *string        `json:"walk_in_customer_name,omitempty"`
	PaymentVerified    bool           `json:"payment_verified"`
	PaymentVerifiedAt  *time.Time     `json:"payment_verified_at,omitempty"`
	ReferenceCode      string         `json:"reference_code"`
	Purpose            string         `json:"purpose,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func NewReservationResponse(r *booking.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:                 r.ID,
		UserID:             r.UserID,
		MachineID:          r.MachineID,
		Window:             NewWindowResponse(r.Window),
		Status:             string(r.Status),
		WalkInCustomerName: r.WalkInCustomerName,
		PaymentVerified:    r.PaymentVerified,
		PaymentVerifiedAt:  r.PaymentVerifiedAt,
		ReferenceCode:      r.ReferenceCode,
		Purpose:            r.Purpose,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type ConflictResponse struct {
	ReservationID string         `json:"reservation_id,omitempty"`
	Holder        string         `json:"holder,omitempty"`
	Window        WindowResponse `json:"window"`
	Status        string         `json:"status,omitempty"`
	Maintenance   bool           `json:"maintenance"`
}

func NewConflictsResponse(conflicts []booking.Conflict) []ConflictResponse {
	out := make([]ConflictResponse, 0, len(conflicts))
	for _, c := range conflicts {
		resp := ConflictResponse{
			Window:      NewWindowResponse(c.Window),
			Maintenance: c.Maintenance,
		}
		if !c.Maintenance {
			resp.ReservationID = c.ReservationID
			resp.Holder = c.HolderName
			resp.Status = string(c.Status)
		}
		out = append(out, resp)
	}
	return out
}

type AvailabilityResponse struct {
	Available bool               `json:"available"`
	Conflicts []ConflictResponse `json:"conflicts"`
}

type BulkApproveItemResponse struct {
	ReservationID string               `json:"reservation_id"`
	Approved      bool                 `json:"approved"`
	Error         string               `json:"error,omitempty"`
	Reservation   *ReservationResponse `json:"reservation,omitempty"`
}

type BulkApproveResponse struct {
	Results  []BulkApproveItemResponse `json:"results"`
	Approved int                       `json:"approved"`
	Failed   int                       `json:"failed"`
}

type OverlapResponse struct {
	MachineID   string             `json:"machine_id"`
	MachineName string             `json:"machine_name"`
	First       ConflictResponse   `json:"first"`
	Second      ConflictResponse   `json:"second"`
}

func NewOverlapsResponse(overlaps []booking.ApprovedOverlap) []OverlapResponse {
	out := make([]OverlapResponse, 0, len(overlaps))
	for _, o := range overlaps {
		pair := NewConflictsResponse([]booking.Conflict{o.First, o.Second})
		out = append(out, OverlapResponse{
			MachineID:   o.MachineID,
			MachineName: o.MachineName,
			First:       pair[0],
			Second:      pair[1],
		})
	}
	return out
}
