package http

import (
	"time"

	"github.com/bufia/equipment-booking-backend/internal/machine"
)

type CreateMachineRequest struct {
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Description string `json:"description"`
}

type UpdateMachineRequest struct {
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Description string `json:"description"`
}

type ListMachinesRequest struct {
	Category string `form:"category"`
	Status   string `form:"status"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

type BlockedPeriodsRequest struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

type MachineResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	SlotBased   bool      `json:"slot_based"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewMachineResponse(m *machine.Machine) MachineResponse {
	return MachineResponse{
		ID:          m.ID,
		Name:        m.Name,
		Category:    string(m.Category),
		Description: m.Description,
		Status:      string(m.Status),
		SlotBased:   m.Category.IsSlotBased(),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type BlockedPeriodResponse struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Kind   string    `json:"kind"`
	Status string    `json:"status"`
	Holder string    `json:"holder,omitempty"`
}

func NewBlockedPeriodsResponse(periods []machine.BlockedPeriod) []BlockedPeriodResponse {
	out := make([]BlockedPeriodResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, BlockedPeriodResponse{
			Start:  p.Start,
			End:    p.End,
			Kind:   p.Kind,
			Status: p.Status,
			Holder: p.Holder,
		})
	}
	return out
}
