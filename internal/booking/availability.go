package booking

import (
	"context"
	"sort"
)

// Policy selects which reservation statuses block a proposed window.
type Policy string

const (
	// PolicySubmission blocks on pending and approved reservations. Used
	// when a member submits a new request, so members cannot race each
	// other into windows someone has already asked for.
	PolicySubmission Policy = "submission"

	// PolicyApproval blocks on approved reservations only. An admin
	// picking one of several competing pending requests must not be
	// blocked by the losers.
	PolicyApproval Policy = "approval"
)

// blockingStatuses returns the reservation statuses that conflict under p.
func (p Policy) blockingStatuses() []Status {
	if p == PolicyApproval {
		return []Status{StatusApproved}
	}
	return []Status{StatusPending, StatusApproved}
}

// ConflictStore is the read surface the availability check runs on. Both
// the pool-backed repository and the in-transaction store satisfy it, so
// the same check runs optimistically and again under the machine lock.
type ConflictStore interface {
	// OverlappingReservations returns reservations on the machine whose
	// normalized window intersects w and whose status is in statuses,
	// ordered by window start. excludeID, when non-empty, omits the
	// reservation being edited.
	OverlappingReservations(ctx context.Context, machineID string, w Window, statuses []Status, excludeID string) ([]Conflict, error)

	// OverlappingMaintenance returns scheduled or in-progress maintenance
	// windows on the machine intersecting w, ordered by start.
	OverlappingMaintenance(ctx context.Context, machineID string, w Window) ([]Conflict, error)
}

// Checker decides whether a proposed window is free on a machine. It is
// a pure read over persisted state: it takes no locks and writes
// nothing. Callers that need race-freedom run it again inside a
// transaction holding the machine lock.
type Checker struct {
	store ConflictStore
}

func NewChecker(store ConflictStore) *Checker {
	return &Checker{store: store}
}

// Check returns whether w is available on the machine under policy, and
// every conflicting reservation or maintenance window ordered by start.
// Maintenance blocks regardless of policy. Date ordering, past-date and
// length validation are the caller's responsibility.
func (c *Checker) Check(ctx context.Context, machineID string, w Window, policy Policy, excludeID string) (bool, []Conflict, error) {
	reservations, err := c.store.OverlappingReservations(ctx, machineID, w, policy.blockingStatuses(), excludeID)
	if err != nil {
		return false, nil, err
	}

	maintenance, err := c.store.OverlappingMaintenance(ctx, machineID, w)
	if err != nil {
		return false, nil, err
	}

	conflicts := append(reservations, maintenance...)
	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].Window.StartAt.Before(conflicts[j].Window.StartAt)
	})

	return len(conflicts) == 0, conflicts, nil
}
