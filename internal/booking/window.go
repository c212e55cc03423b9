package booking

import (
	"fmt"
	"time"
)

// WindowKind discriminates the two booking shapes: date-range rentals
// and fixed time-slot appointments.
type WindowKind string

const (
	KindDateRange WindowKind = "date_range"
	KindDateSlot  WindowKind = "date_slot"
)

func (k WindowKind) IsValid() bool {
	return k == KindDateRange || k == KindDateSlot
}

// Slot is a fixed half-day appointment slot.
type Slot string

const (
	SlotMorning   Slot = "morning"
	SlotAfternoon Slot = "afternoon"
)

func (s Slot) IsValid() bool {
	return s == SlotMorning || s == SlotAfternoon
}

// Slot hours, local to the cooperative's operating day (kept in UTC).
const (
	morningStartHour   = 8
	morningEndHour     = 12
	afternoonStartHour = 13
	afternoonEndHour   = 17
)

// Window is a booking time range in both shapes: the inclusive date
// fields members see, and the normalized half-open [StartAt, EndAt)
// instant projection every conflict query runs on.
type Window struct {
	Kind      WindowKind
	StartDate time.Time // first day, midnight UTC
	EndDate   time.Time // last day, midnight UTC (equal to StartDate for slots)
	Slot      Slot      // set only for KindDateSlot
	StartAt   time.Time
	EndAt     time.Time
}

// NewDateRangeWindow builds a rental window over an inclusive day range.
func NewDateRangeWindow(startDate, endDate time.Time) Window {
	startDate = DayStart(startDate)
	endDate = DayStart(endDate)
	return Window{
		Kind:      KindDateRange,
		StartDate: startDate,
		EndDate:   endDate,
		StartAt:   startDate,
		EndAt:     endDate.AddDate(0, 0, 1),
	}
}

// NewDateSlotWindow builds an appointment window for one slot on one day.
func NewDateSlotWindow(date time.Time, slot Slot) Window {
	date = DayStart(date)
	w := Window{
		Kind:      KindDateSlot,
		StartDate: date,
		EndDate:   date,
		Slot:      slot,
	}
	switch slot {
	case SlotAfternoon:
		w.StartAt = date.Add(afternoonStartHour * time.Hour)
		w.EndAt = date.Add(afternoonEndHour * time.Hour)
	default:
		w.StartAt = date.Add(morningStartHour * time.Hour)
		w.EndAt = date.Add(morningEndHour * time.Hour)
	}
	return w
}

// Days returns the window length in whole days, counting both endpoints.
func (w Window) Days() int {
	return int(w.EndDate.Sub(w.StartDate).Hours()/24) + 1
}

// Overlaps reports whether two normalized windows intersect. Half-open
// instants make adjacent ranges (one ending the day the other starts)
// non-overlapping, matching the inclusive-day formula at day granularity.
func (w Window) Overlaps(other Window) bool {
	return w.StartAt.Before(other.EndAt) && w.EndAt.After(other.StartAt)
}

// String renders the window for conflict messages.
func (w Window) String() string {
	if w.Kind == KindDateSlot {
		return fmt.Sprintf("%s (%s)", w.StartDate.Format(time.DateOnly), w.Slot)
	}
	if w.StartDate.Equal(w.EndDate) {
		return w.StartDate.Format(time.DateOnly)
	}
	return fmt.Sprintf("%s to %s", w.StartDate.Format(time.DateOnly), w.EndDate.Format(time.DateOnly))
}

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DatesOverlap is the inclusive day-granularity overlap test:
// [s1,e1] and [s2,e2] overlap iff s1 <= e2 and e1 >= s2. Same-day
// single-point ranges overlap; ranges where one ends the day before the
// other starts do not.
func DatesOverlap(s1, e1, s2, e2 time.Time) bool {
	s1, e1 = DayStart(s1), DayStart(e1)
	s2, e2 = DayStart(s2), DayStart(e2)
	return !s1.After(e2) && !e1.Before(s2)
}
