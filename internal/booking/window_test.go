package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDatesOverlap(t *testing.T) {
	t.Run("same single day overlaps itself", func(t *testing.T) {
		d := date(2025, 6, 11)
		assert.True(t, DatesOverlap(d, d, d, d))
	})

	t.Run("adjacent ranges do not overlap", func(t *testing.T) {
		// First range ends the day before the second starts.
		assert.False(t, DatesOverlap(
			date(2025, 6, 10), date(2025, 6, 12),
			date(2025, 6, 13), date(2025, 6, 15),
		))
		assert.False(t, DatesOverlap(
			date(2025, 6, 13), date(2025, 6, 15),
			date(2025, 6, 10), date(2025, 6, 12),
		))
	})

	t.Run("shared endpoint overlaps", func(t *testing.T) {
		assert.True(t, DatesOverlap(
			date(2025, 6, 10), date(2025, 6, 12),
			date(2025, 6, 12), date(2025, 6, 14),
		))
	})

	t.Run("containment overlaps", func(t *testing.T) {
		assert.True(t, DatesOverlap(
			date(2025, 6, 1), date(2025, 6, 30),
			date(2025, 6, 10), date(2025, 6, 12),
		))
	})

	t.Run("single day inside range overlaps", func(t *testing.T) {
		assert.True(t, DatesOverlap(
			date(2025, 6, 11), date(2025, 6, 11),
			date(2025, 6, 10), date(2025, 6, 12),
		))
	})

	t.Run("matches the inclusive formula", func(t *testing.T) {
		base := date(2025, 6, 1)
		for o1 := 0; o1 < 6; o1++ {
			for l1 := 0; l1 < 3; l1++ {
				for o2 := 0; o2 < 6; o2++ {
					for l2 := 0; l2 < 3; l2++ {
						s1, e1 := base.AddDate(0, 0, o1), base.AddDate(0, 0, o1+l1)
						s2, e2 := base.AddDate(0, 0, o2), base.AddDate(0, 0, o2+l2)
						want := !s1.After(e2) && !e1.Before(s2)
						assert.Equal(t, want, DatesOverlap(s1, e1, s2, e2),
							"[%v,%v] vs [%v,%v]", s1, e1, s2, e2)
					}
				}
			}
		}
	})
}

func TestNewDateRangeWindow(t *testing.T) {
	w := NewDateRangeWindow(date(2025, 6, 10), date(2025, 6, 12))

	assert.Equal(t, KindDateRange, w.Kind)
	assert.Equal(t, date(2025, 6, 10), w.StartAt)
	// Half-open end: the instant range covers through the end of the last day.
	assert.Equal(t, date(2025, 6, 13), w.EndAt)
	assert.Equal(t, 3, w.Days())
}

func TestWindowOverlapsMatchesDayFormula(t *testing.T) {
	a := NewDateRangeWindow(date(2025, 6, 10), date(2025, 6, 12))
	adjacent := NewDateRangeWindow(date(2025, 6, 13), date(2025, 6, 15))
	touching := NewDateRangeWindow(date(2025, 6, 12), date(2025, 6, 14))
	sameDay := NewDateRangeWindow(date(2025, 6, 11), date(2025, 6, 11))

	assert.False(t, a.Overlaps(adjacent))
	assert.False(t, adjacent.Overlaps(a))
	assert.True(t, a.Overlaps(touching))
	assert.True(t, a.Overlaps(sameDay))
	assert.True(t, sameDay.Overlaps(sameDay))
}

func TestNewDateSlotWindow(t *testing.T) {
	d := date(2025, 7, 1)
	morning := NewDateSlotWindow(d, SlotMorning)
	afternoon := NewDateSlotWindow(d, SlotAfternoon)

	require.Equal(t, KindDateSlot, morning.Kind)
	assert.Equal(t, d.Add(8*time.Hour), morning.StartAt)
	assert.Equal(t, d.Add(12*time.Hour), morning.EndAt)
	assert.Equal(t, d.Add(13*time.Hour), afternoon.StartAt)
	assert.Equal(t, d.Add(17*time.Hour), afternoon.EndAt)

	// Different slots on the same day never collide.
	assert.False(t, morning.Overlaps(afternoon))
	assert.True(t, morning.Overlaps(morning))

	// A rental covering the day blocks both slots.
	rental := NewDateRangeWindow(d, d)
	assert.True(t, rental.Overlaps(morning))
	assert.True(t, rental.Overlaps(afternoon))
}

func TestWindowString(t *testing.T) {
	assert.Equal(t, "2025-06-10 to 2025-06-12",
		NewDateRangeWindow(date(2025, 6, 10), date(2025, 6, 12)).String())
	assert.Equal(t, "2025-06-11",
		NewDateRangeWindow(date(2025, 6, 11), date(2025, 6, 11)).String())
	assert.Equal(t, "2025-07-01 (morning)",
		NewDateSlotWindow(date(2025, 7, 1), SlotMorning).String())
}
