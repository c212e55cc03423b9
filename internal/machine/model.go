package machine

import (
	"net/http"
	"time"

	"github.com/bufia/equipment-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "machine not found")
	ErrEmptyName       = apperror.New(http.StatusBadRequest, "name cannot be empty")
	ErrInvalidCategory = apperror.New(http.StatusBadRequest, "invalid machine category")
	ErrInvalidStatus   = apperror.New(http.StatusBadRequest, "invalid machine status")
	ErrMachineInUse    = apperror.New(http.StatusConflict, "machine has active reservations and cannot be deleted")
)

// Category determines how a machine is booked: rice mills take fixed
// time-slot appointments, everything else takes date-range rentals.
type Category string

const (
	CategoryRiceMill        Category = "rice_mill"
	CategoryTractor4WD      Category = "tractor_4wd"
	CategoryHandTractor     Category = "hand_tractor"
	CategoryTransplanter    Category = "transplanter"
	CategoryPrecisionSeeder Category = "precision_seeder"
	CategoryHarvester       Category = "harvester"
	CategoryFlatbedDryer    Category = "flatbed_dryer"
	CategoryOther           Category = "other"
)

// Categories lists all valid machine categories.
var Categories = []Category{
	CategoryRiceMill,
	CategoryTractor4WD,
	CategoryHandTractor,
	CategoryTransplanter,
	CategoryPrecisionSeeder,
	CategoryHarvester,
	CategoryFlatbedDryer,
	CategoryOther,
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// IsSlotBased reports whether machines of this category are booked as
// fixed time-slot appointments rather than date-range rentals.
func (c Category) IsSlotBased() bool {
	return c == CategoryRiceMill
}

// Status is a cached projection of the machine's current state. It is
// recomputed from live reservation and maintenance data; conflict
// decisions never read it.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusMaintenance Status = "maintenance"
	StatusRented      Status = "rented"
)

// Machine represents a bookable piece of shared equipment.
type Machine struct {
	ID          string
	Name        string
	Category    Category
	Description string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Filter defines parameters for listing machines.
type Filter struct {
	Category string
	Status   string
	Page     int
	PageSize int
}

// BlockedPeriod describes one stretch of unavailability on a machine's
// calendar, either a reservation or a maintenance window.
type BlockedPeriod struct {
	Start  time.Time
	End    time.Time
	Kind   string // "reservation" or "maintenance"
	Status string
	Holder string // requester display name, empty for maintenance
}
