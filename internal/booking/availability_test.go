package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedReservation(store *fakeStore, machineID, userID string, w Window, status Status) *Reservation {
	r := &Reservation{
		UserID:    userID,
		MachineID: machineID,
		Window:    w,
		Status:    status,
	}
	if err := store.Create(context.Background(), r); err != nil {
		panic(err)
	}
	return r
}

func TestCheckerPolicyDifference(t *testing.T) {
	store := newFakeStore()
	checker := NewChecker(store)
	ctx := context.Background()

	w := NewDateRangeWindow(date(2025, 6, 10), date(2025, 6, 12))
	pending := seedReservation(store, "tractor-a", "alice", w, StatusPending)

	// Submission policy blocks on the pending reservation.
	ok, conflicts, err := checker.Check(ctx, "tractor-a", w, PolicySubmission, "")
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, conflicts, 1)
	assert.Equal(t, pending.ID, conflicts[0].ReservationID)
	assert.Equal(t, StatusPending, conflicts[0].Status)

	// Approval policy ignores it: the pending request itself can be approved.
	ok, conflicts, err = checker.Check(ctx, "tractor-a", w, PolicyApproval, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, conflicts)
}

func TestCheckerExcludesEditedReservation(t *testing.T) {
	store := newFakeStore()
	checker := NewChecker(store)
	ctx := context.Background()

	w := NewDateRangeWindow(date(2025, 6, 10), date(2025, 6, 12))
	r := seedReservation(store, "tractor-a", "alice", w, StatusPending)

	ok, _, err := checker.Check(ctx, "tractor-a", w, PolicySubmission, r.ID)
	require.NoError(t, err)
	assert.True(t, ok, "a reservation must not conflict with itself while being edited")
}

func TestCheckerMaintenanceBlocksAllPolicies(t *testing.T) {
	store := newFakeStore()
	checker := NewChecker(store)
	ctx := context.Background()

	mw := NewDateRangeWindow(date(2025, 6, 11), date(2025, 6, 11))
	store.addMaintenance("tractor-a", mw, true)

	w := NewDateRangeWindow(date(2025, 6, 10), date(2025, 6, 12))
	for _, policy := range []Policy{PolicySubmission, PolicyApproval} {
		ok, conflicts, err := checker.Check(ctx, "tractor-a", w, policy, "")
		require.NoError(t, err)
		assert.False(t, ok, "maintenance must block under %s policy", policy)
		require.Len(t, conflicts, 1)
		assert.True(t, conflicts[0].Maintenance)
	}
}

func TestCheckerIgnoresInactiveMaintenance(t *testing.T) {
	store := newFakeStore()
	checker := NewChecker(store)
	ctx := context.Background()

	mw := NewDateRangeWindow(date(2025, 6, 11), date(2025, 6, 11))
	store.addMaintenance("tractor-a", mw, false)

	w := NewDateRangeWindow(date(2025, 6, 10), date(2025, 6, 12))
	ok, _, err := checker.Check(ctx, "tractor-a", w, PolicySubmission, "")
	require.NoError(t, err)
	assert.True(t, ok, "completed or cancelled maintenance must not block")
}

func TestCheckerIgnoresTerminalReservations(t *testing.T) {
	store := newFakeStore()
	checker := NewChecker(store)
	ctx := context.Background()

	w := NewDateRangeWindow(date(2025, 6, 10), date(2025, 6, 12))
	for _, status := range []Status{StatusRejected, StatusCancelled, StatusCompleted} {
		seedReservation(store, "tractor-a", "alice", w, status)
	}

	ok, conflicts, err := checker.Check(ctx, "tractor-a", w, PolicySubmission, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, conflicts)
}

func TestCheckerOrdersConflictsByStart(t *testing.T) {
	store := newFakeStore()
	checker := NewChecker(store)
	ctx := context.Background()

	later := seedReservation(store, "tractor-a", "bob",
		NewDateRangeWindow(date(2025, 6, 14), date(2025, 6, 15)), StatusApproved)
	earlier := seedReservation(store, "tractor-a", "alice",
		NewDateRangeWindow(date(2025, 6, 10), date(2025, 6, 11)), StatusPending)
	store.addMaintenance("tractor-a",
		NewDateRangeWindow(date(2025, 6, 12), date(2025, 6, 13)), true)

	w := NewDateRangeWindow(date(2025, 6, 9), date(2025, 6, 16))
	ok, conflicts, err := checker.Check(ctx, "tractor-a", w, PolicySubmission, "")
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, conflicts, 3)
	assert.Equal(t, earlier.ID, conflicts[0].ReservationID)
	assert.True(t, conflicts[1].Maintenance)
	assert.Equal(t, later.ID, conflicts[2].ReservationID)
}

func TestCheckerDoesNotCrossMachines(t *testing.T) {
	store := newFakeStore()
	checker := NewChecker(store)
	ctx := context.Background()

	w := NewDateRangeWindow(date(2025, 6, 10), date(2025, 6, 12))
	seedReservation(store, "tractor-b", "alice", w, StatusApproved)

	ok, _, err := checker.Check(ctx, "tractor-a", w, PolicySubmission, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckerSlotWindows(t *testing.T) {
	store := newFakeStore()
	checker := NewChecker(store)
	ctx := context.Background()

	d := date(2025, 7, 1)
	seedReservation(store, "rice-mill-1", "alice", NewDateSlotWindow(d, SlotMorning), StatusPending)

	// Same slot conflicts, the other slot is free.
	ok, _, err := checker.Check(ctx, "rice-mill-1", NewDateSlotWindow(d, SlotMorning), PolicySubmission, "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _, err = checker.Check(ctx, "rice-mill-1", NewDateSlotWindow(d, SlotAfternoon), PolicySubmission, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConflictErrorMessageNamesWindowAndHolder(t *testing.T) {
	w := NewDateRangeWindow(date(2025, 6, 11), date(2025, 6, 11))
	blocker := NewDateRangeWindow(date(2025, 6, 10), date(2025, 6, 12))

	err := &ConflictError{
		MachineID: "tractor-a",
		Proposed:  w,
		Conflicts: []Conflict{{
			ReservationID: "res-1",
			HolderName:    "Alice",
			Window:        blocker,
			Status:        StatusApproved,
		}},
	}

	msg := err.Error()
	assert.Contains(t, msg, "2025-06-10 to 2025-06-12")
	assert.Contains(t, msg, "Alice")
	assert.Contains(t, msg, "approved")
}

func TestConcurrencyAbortUnwrapsToConflict(t *testing.T) {
	conflict := &ConflictError{Proposed: NewDateRangeWindow(date(2025, 6, 10), date(2025, 6, 12))}
	abort := &ConcurrencyAbortError{Conflict: conflict}

	var unwrapped *ConflictError
	require.ErrorAs(t, abort, &unwrapped)
	assert.Same(t, conflict, unwrapped)
}

func TestSlotHoursDoNotSpanMidnight(t *testing.T) {
	d := date(2025, 7, 1)
	m := NewDateSlotWindow(d, SlotMorning)
	a := NewDateSlotWindow(d, SlotAfternoon)

	assert.True(t, m.EndAt.Before(a.StartAt))
	assert.True(t, a.EndAt.Before(d.Add(24*time.Hour)))
}
