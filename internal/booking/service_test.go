package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufia/equipment-booking-backend/internal/machine"
)

const testMaxRentalDays = 30

// futureDay returns midnight UTC offset days from today, keeping test
// windows ahead of the past-date validation.
func futureDay(offset int) time.Time {
	return DayStart(time.Now().UTC().AddDate(0, 0, offset))
}

func testMachines() *fakeMachineRepo {
	return newFakeMachineRepo(
		&machine.Machine{ID: "tractor-a", Name: "Tractor A", Category: machine.CategoryTractor4WD},
		&machine.Machine{ID: "rice-mill-1", Name: "Rice Mill 1", Category: machine.CategoryRiceMill},
	)
}

func newTestService(store *fakeStore) (Service, *recordingSink) {
	sink := &recordingSink{}
	svc := NewService(store, testMachines(), nil, sink, testMaxRentalDays)
	return svc, sink
}

func rentalParams(userID string, start, end time.Time) SubmitParams {
	return SubmitParams{
		UserID:    userID,
		MachineID: "tractor-a",
		Kind:      KindDateRange,
		StartDate: start,
		EndDate:   end,
	}
}

func slotParams(userID string, day time.Time, slot Slot) SubmitParams {
	return SubmitParams{
		UserID:    userID,
		MachineID: "rice-mill-1",
		Kind:      KindDateSlot,
		Date:      day,
		Slot:      slot,
	}
}

func verify(t *testing.T, svc Service, id string) {
	t.Helper()
	_, err := svc.MarkPaymentVerified(context.Background(), id, nil)
	require.NoError(t, err)
}

func TestSubmitCreatesPendingReservation(t *testing.T) {
	store := newFakeStore()
	svc, sink := newTestService(store)
	ctx := context.Background()

	res, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, res.Status)
	assert.False(t, res.PaymentVerified)
	assert.NotEmpty(t, res.ID)
	assert.Regexp(t, `^RNT-\d{8}-\d{4}$`, res.ReferenceCode)
	assert.Equal(t, []string{"tractor-a"}, store.lockedMachines, "submission must lock the machine")

	events := sink.ofType(EventSubmitted)
	require.Len(t, events, 1)
	assert.Equal(t, res.ID, events[0].ReservationID)
	assert.Equal(t, StatusPending, events[0].NewStatus)
}

func TestSubmitValidation(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	t.Run("end before start", func(t *testing.T) {
		_, err := svc.Submit(ctx, rentalParams("alice", futureDay(12), futureDay(10)))
		assert.ErrorIs(t, err, ErrInvalidDateOrder)
	})

	t.Run("start in the past", func(t *testing.T) {
		_, err := svc.Submit(ctx, rentalParams("alice", futureDay(-1), futureDay(2)))
		assert.ErrorIs(t, err, ErrStartInPast)
	})

	t.Run("range too long", func(t *testing.T) {
		_, err := svc.Submit(ctx, rentalParams("alice", futureDay(1), futureDay(1+testMaxRentalDays)))
		assert.ErrorIs(t, err, ErrRangeTooLong)
	})

	t.Run("longest allowed range passes", func(t *testing.T) {
		_, err := svc.Submit(ctx, rentalParams("alice", futureDay(1), futureDay(testMaxRentalDays)))
		assert.NoError(t, err)
	})

	t.Run("slot booking on a rental machine", func(t *testing.T) {
		params := slotParams("alice", futureDay(5), SlotMorning)
		params.MachineID = "tractor-a"
		_, err := svc.Submit(ctx, params)
		assert.ErrorIs(t, err, ErrKindMismatch)
	})

	t.Run("rental booking on a slot machine", func(t *testing.T) {
		params := rentalParams("alice", futureDay(40), futureDay(41))
		params.MachineID = "rice-mill-1"
		_, err := svc.Submit(ctx, params)
		assert.ErrorIs(t, err, ErrKindMismatch)
	})

	t.Run("invalid slot", func(t *testing.T) {
		_, err := svc.Submit(ctx, slotParams("alice", futureDay(5), Slot("evening")))
		assert.ErrorIs(t, err, ErrInvalidSlot)
	})

	t.Run("unknown machine", func(t *testing.T) {
		params := rentalParams("alice", futureDay(50), futureDay(51))
		params.MachineID = "00000000-0000-0000-0000-000000000000"
		_, err := svc.Submit(ctx, params)
		assert.ErrorIs(t, err, machine.ErrNotFound)
	})

	t.Run("walk-in name requires admin", func(t *testing.T) {
		name := "Mang Tonyo"
		params := rentalParams("alice", futureDay(60), futureDay(61))
		params.WalkInCustomerName = &name
		_, err := svc.Submit(ctx, params)
		assert.ErrorIs(t, err, ErrNotOwner)

		params.IsAdmin = true
		res, err := svc.Submit(ctx, params)
		require.NoError(t, err)
		require.NotNil(t, res.WalkInCustomerName)
		assert.Equal(t, name, *res.WalkInCustomerName)
	})
}

// Adjacent windows book fine; overlapping ones report the blocker's dates.
func TestSubmitAdjacentAndOverlapping(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	approved := seedReservation(store, "tractor-a", "alice",
		NewDateRangeWindow(futureDay(10), futureDay(12)), StatusApproved)

	// Adjacent range starting the day after the approved one ends.
	_, err := svc.Submit(ctx, rentalParams("bob", futureDay(13), futureDay(15)))
	require.NoError(t, err)

	// A single day inside the approved range conflicts.
	_, err = svc.Submit(ctx, rentalParams("bob", futureDay(11), futureDay(11)))
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, approved.ID, conflictErr.Conflicts[0].ReservationID)
	assert.Equal(t, approved.Window.StartDate, conflictErr.Conflicts[0].Window.StartDate)
	assert.Equal(t, approved.Window.EndDate, conflictErr.Conflicts[0].Window.EndDate)
}

func TestSubmitBlocksOnPending(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	_, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, rentalParams("bob", futureDay(11), futureDay(13)))
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, StatusPending, conflictErr.Conflicts[0].Status)
}

func TestSubmitBlockedByMaintenance(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	store.addMaintenance("tractor-a", NewDateRangeWindow(futureDay(11), futureDay(11)), true)

	_, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.True(t, conflictErr.Conflicts[0].Maintenance)
}

func TestApproveRequiresVerifiedPayment(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	res, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, res.ID, "admin")
	assert.ErrorIs(t, err, ErrPaymentNotVerified)
}

func TestMarkPaymentVerified(t *testing.T) {
	store := newFakeStore()
	svc, sink := newTestService(store)
	ctx := context.Background()

	res, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
	require.NoError(t, err)

	verifier := "admin"
	verified, err := svc.MarkPaymentVerified(ctx, res.ID, &verifier)
	require.NoError(t, err)
	assert.True(t, verified.PaymentVerified)
	require.NotNil(t, verified.PaymentVerifiedAt)
	require.NotNil(t, verified.PaymentVerifiedBy)
	assert.Equal(t, "admin", *verified.PaymentVerifiedBy)
	assert.Len(t, sink.ofType(EventPaymentVerified), 1)

	// Verifying twice is a no-op, not an error.
	_, err = svc.MarkPaymentVerified(ctx, res.ID, &verifier)
	require.NoError(t, err)
	assert.Len(t, sink.ofType(EventPaymentVerified), 1)
}

func TestMarkPaymentVerifiedAfterApproval(t *testing.T) {
	store := newFakeStore()
	svc, sink := newTestService(store)
	ctx := context.Background()

	res, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
	require.NoError(t, err)
	verify(t, svc, res.ID)

	_, err = svc.Approve(ctx, res.ID, "admin")
	require.NoError(t, err)

	// A gateway retry arriving after approval stays a no-op success.
	verifier := "admin"
	again, err := svc.MarkPaymentVerified(ctx, res.ID, &verifier)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, again.Status)
	assert.True(t, again.PaymentVerified)
	assert.Len(t, sink.ofType(EventPaymentVerified), 1)
}

func TestMarkPaymentVerifiedRejectsTerminal(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	res, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, res.ID, "alice", false)
	require.NoError(t, err)

	_, err = svc.MarkPaymentVerified(ctx, res.ID, nil)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestApproveHappyPath(t *testing.T) {
	store := newFakeStore()
	svc, sink := newTestService(store)
	ctx := context.Background()

	res, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
	require.NoError(t, err)
	verify(t, svc, res.ID)

	approved, err := svc.Approve(ctx, res.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Contains(t, store.recomputes, "tractor-a", "approval must refresh the machine status")

	events := sink.ofType(EventApproved)
	require.Len(t, events, 1)
	assert.Equal(t, "admin", events[0].Actor)
	assert.Equal(t, StatusPending, events[0].OldStatus)
	assert.Equal(t, StatusApproved, events[0].NewStatus)
}

func TestApproveRequiresPendingStatus(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	res, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
	require.NoError(t, err)
	verify(t, svc, res.ID)

	_, err = svc.Approve(ctx, res.ID, "admin")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, res.ID, "admin")
	assert.ErrorIs(t, err, ErrNotPending)
}

// Two pending requests for the same window coexist (created concurrently);
// approving one succeeds and the loser's approval names the winner.
func TestCompetingPendingsArbitratedAtApproval(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()
	store.holderNames["alice"] = "Alice"

	w := NewDateRangeWindow(futureDay(10), futureDay(12))
	a := seedReservation(store, "tractor-a", "alice", w, StatusPending)
	b := seedReservation(store, "tractor-a", "bob", w, StatusPending)
	require.NoError(t, store.SetPaymentVerified(ctx, a.ID, time.Now().UTC(), nil))
	require.NoError(t, store.SetPaymentVerified(ctx, b.ID, time.Now().UTC(), nil))

	// Approval policy ignores bob's pending request, so alice's goes through.
	approvedA, err := svc.Approve(ctx, a.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approvedA.Status)

	// Bob's approval now collides with alice's approved window.
	_, err = svc.Approve(ctx, b.ID, "admin")
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, a.ID, conflictErr.Conflicts[0].ReservationID)
	assert.Equal(t, "Alice", conflictErr.Conflicts[0].HolderName)
	assert.Contains(t, err.Error(), "Alice")

	// The admin rejects bob's instead.
	rejected, err := svc.Reject(ctx, b.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	// At most one approved reservation holds the window.
	stored, err := store.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, stored.Status)
}

func TestSlotUniquenessAtSubmission(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	day := futureDay(20)
	appt, err := svc.Submit(ctx, slotParams("alice", day, SlotMorning))
	require.NoError(t, err)
	assert.Regexp(t, `^RM-\d{8}-\d{4}$`, appt.ReferenceCode)

	// Same machine, date and slot is taken even while only pending.
	_, err = svc.Submit(ctx, slotParams("bob", day, SlotMorning))
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)

	// The other slot on the same day is free.
	_, err = svc.Submit(ctx, slotParams("bob", day, SlotAfternoon))
	require.NoError(t, err)
}

func TestCancelIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc, sink := newTestService(store)
	ctx := context.Background()

	res, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, res.ID, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	again, err := svc.Cancel(ctx, res.ID, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, again.Status)

	assert.Len(t, sink.ofType(EventCancelled), 1, "repeat cancel must not emit a second event")
}

func TestCancelGuards(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	t.Run("only the owner or an admin may cancel", func(t *testing.T) {
		res, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, res.ID, "bob", false)
		assert.ErrorIs(t, err, ErrNotOwner)

		_, err = svc.Cancel(ctx, res.ID, "bob", true)
		assert.NoError(t, err)
	})

	t.Run("started window cannot be cancelled", func(t *testing.T) {
		started := seedReservation(store, "tractor-a", "alice",
			NewDateRangeWindow(futureDay(-2), futureDay(2)), StatusApproved)

		_, err := svc.Cancel(ctx, started.ID, "alice", false)
		assert.ErrorIs(t, err, ErrWindowStarted)
	})

	t.Run("terminal states other than cancelled fail", func(t *testing.T) {
		completed := seedReservation(store, "tractor-a", "alice",
			NewDateRangeWindow(futureDay(30), futureDay(31)), StatusCompleted)

		_, err := svc.Cancel(ctx, completed.ID, "alice", false)
		assert.ErrorIs(t, err, ErrNotCancellable)
	})

	t.Run("cancelling an approved reservation refreshes the machine", func(t *testing.T) {
		store.recomputes = nil
		approved := seedReservation(store, "tractor-a", "alice",
			NewDateRangeWindow(futureDay(40), futureDay(41)), StatusApproved)

		_, err := svc.Cancel(ctx, approved.ID, "alice", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"tractor-a"}, store.recomputes)
	})
}

func TestResubmitWindowReturnsToPending(t *testing.T) {
	store := newFakeStore()
	svc, sink := newTestService(store)
	ctx := context.Background()

	res, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
	require.NoError(t, err)
	verify(t, svc, res.ID)
	_, err = svc.Approve(ctx, res.ID, "admin")
	require.NoError(t, err)

	params := SubmitParams{UserID: "alice", StartDate: futureDay(20), EndDate: futureDay(22)}
	updated, err := svc.ResubmitWindow(ctx, res.ID, "alice", params)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, updated.Status, "changed dates need approval again")
	assert.Equal(t, futureDay(20), updated.Window.StartDate)

	events := sink.ofType(EventResubmitted)
	require.Len(t, events, 1)
	assert.Equal(t, StatusApproved, events[0].OldStatus)
	assert.Equal(t, StatusPending, events[0].NewStatus)
}

func TestResubmitWindowGuards(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	res, err := svc.Submit(ctx, rentalParams("alice", futureDay(10), futureDay(12)))
	require.NoError(t, err)

	t.Run("only the owner may edit", func(t *testing.T) {
		params := SubmitParams{UserID: "bob", StartDate: futureDay(20), EndDate: futureDay(22)}
		_, err := svc.ResubmitWindow(ctx, res.ID, "bob", params)
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("new window must be free", func(t *testing.T) {
		seedReservation(store, "tractor-a", "bob",
			NewDateRangeWindow(futureDay(20), futureDay(22)), StatusApproved)

		params := SubmitParams{UserID: "alice", StartDate: futureDay(21), EndDate: futureDay(23)}
		_, err := svc.ResubmitWindow(ctx, res.ID, "alice", params)
		var conflictErr *ConflictError
		assert.ErrorAs(t, err, &conflictErr)
	})

	t.Run("terminal reservations cannot be edited", func(t *testing.T) {
		rejected := seedReservation(store, "tractor-a", "alice",
			NewDateRangeWindow(futureDay(30), futureDay(31)), StatusRejected)

		params := SubmitParams{UserID: "alice", StartDate: futureDay(32), EndDate: futureDay(33)}
		_, err := svc.ResubmitWindow(ctx, rejected.ID, "alice", params)
		assert.ErrorIs(t, err, ErrNotPending)
	})
}

func TestBulkApprovePartialSuccess(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	w := NewDateRangeWindow(futureDay(10), futureDay(12))
	a := seedReservation(store, "tractor-a", "alice", w, StatusPending)
	b := seedReservation(store, "tractor-a", "bob", w, StatusPending)
	unpaid := seedReservation(store, "tractor-a", "carol",
		NewDateRangeWindow(futureDay(20), futureDay(21)), StatusPending)
	require.NoError(t, store.SetPaymentVerified(ctx, a.ID, time.Now().UTC(), nil))
	require.NoError(t, store.SetPaymentVerified(ctx, b.ID, time.Now().UTC(), nil))

	results := svc.BulkApprove(ctx, []string{a.ID, b.ID, unpaid.ID}, "admin")
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, StatusApproved, results[0].Reservation.Status)

	var conflictErr *ConflictError
	assert.ErrorAs(t, results[1].Err, &conflictErr, "second overlapping approval must fail")

	assert.ErrorIs(t, results[2].Err, ErrPaymentNotVerified)

	// The failures did not roll back the first approval.
	stored, err := store.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stored.Status)
}

func TestCompleteElapsed(t *testing.T) {
	store := newFakeStore()
	svc, sink := newTestService(store)
	ctx := context.Background()

	past := seedReservation(store, "tractor-a", "alice",
		NewDateRangeWindow(futureDay(-10), futureDay(-8)), StatusApproved)
	current := seedReservation(store, "tractor-a", "bob",
		NewDateRangeWindow(futureDay(-1), futureDay(3)), StatusApproved)

	count, err := svc.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := store.GetByID(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)

	stillApproved, err := store.GetByID(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stillApproved.Status, "in-flight rentals stay approved")

	assert.Len(t, sink.ofType(EventCompleted), 1)

	// A second sweep finds nothing.
	count, err = svc.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestConflictReport(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	overlaps, err := svc.ConflictReport(ctx)
	require.NoError(t, err)
	assert.Empty(t, overlaps, "a healthy store has no approved overlaps")

	a := seedReservation(store, "tractor-a", "alice",
		NewDateRangeWindow(futureDay(10), futureDay(12)), StatusApproved)
	b := seedReservation(store, "tractor-a", "bob",
		NewDateRangeWindow(futureDay(11), futureDay(13)), StatusApproved)

	overlaps, err = svc.ConflictReport(ctx)
	require.NoError(t, err)
	require.Len(t, overlaps, 1)
	assert.Equal(t, a.ID, overlaps[0].First.ReservationID)
	assert.Equal(t, b.ID, overlaps[0].Second.ReservationID)
}

func TestListScopesMembersToOwnReservations(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	mine := seedReservation(store, "tractor-a", "alice",
		NewDateRangeWindow(futureDay(10), futureDay(11)), StatusPending)
	seedReservation(store, "tractor-a", "bob",
		NewDateRangeWindow(futureDay(20), futureDay(21)), StatusPending)

	reservations, total, err := svc.List(ctx, Filter{UserID: "bob"}, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, 1, total, "the filter must be forced to the requester")
	assert.Equal(t, mine.ID, reservations[0].ID)

	_, total, err = svc.List(ctx, Filter{}, "admin", true)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestGetByIDEnforcesOwnership(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	res := seedReservation(store, "tractor-a", "alice",
		NewDateRangeWindow(futureDay(10), futureDay(11)), StatusPending)

	_, err := svc.GetByID(ctx, res.ID, "bob", false)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.GetByID(ctx, res.ID, "bob", true)
	assert.NoError(t, err)
}

// raceStore simulates a competitor committing between the optimistic
// pre-check and the locked re-check.
type raceStore struct {
	*fakeStore
	injectOnce bool
	window     Window
}

func (r *raceStore) InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	if !r.injectOnce {
		r.injectOnce = true
		seedReservation(r.fakeStore, "tractor-a", "mallory", r.window, StatusPending)
	}
	return fn(ctx, r.fakeStore)
}

func TestSubmitLostRaceSurfacesConcurrencyAbort(t *testing.T) {
	w := NewDateRangeWindow(futureDay(10), futureDay(12))
	store := &raceStore{fakeStore: newFakeStore(), window: w}
	sink := &recordingSink{}
	svc := NewService(store, testMachines(), nil, sink, testMaxRentalDays)

	_, err := svc.Submit(context.Background(), rentalParams("alice", futureDay(10), futureDay(12)))

	var abort *ConcurrencyAbortError
	require.ErrorAs(t, err, &abort)
	require.Len(t, abort.Conflict.Conflicts, 1)
	assert.Equal(t, "mallory", abort.Conflict.Conflicts[0].UserID)

	// The caller still sees an ordinary conflict.
	var conflictErr *ConflictError
	assert.ErrorAs(t, err, &conflictErr)
	assert.Len(t, sink.ofType(EventConflictDetected), 1)
}
