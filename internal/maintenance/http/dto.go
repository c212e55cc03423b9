package http

import (
	"time"

	"github.com/bufia/equipment-booking-backend/internal/maintenance"
)

type ScheduleRequest struct {
	MachineID string `json:"machine_id" binding:"required,uuid"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ListRequest struct {
	MachineID string `form:"machine_id"`
	Status    string `form:"status"`
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20"`
}

type WindowResponse struct {
	ID        string    `json:"id"`
	MachineID string    `json:"machine_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewWindowResponse(w *maintenance.Window) WindowResponse {
	return WindowResponse{
		ID:        w.ID,
		MachineID: w.MachineID,
		StartDate: w.StartDate.Format(time.DateOnly),
		EndDate:   w.EndDate.Format(time.DateOnly),
		Reason:    w.Reason,
		Status:    string(w.Status),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
