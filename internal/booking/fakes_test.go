package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bufia/equipment-booking-backend/internal/machine"
)

// fakeStore is an in-memory Repository and TxStore. InTx hands the fake
// itself to the callback, so "transactions" are just direct writes; the
// tests drive sequences serially and assert on the resulting state.
type fakeStore struct {
	mu           sync.Mutex
	reservations map[string]*Reservation
	maintenance  []fakeMaintenanceWindow
	holderNames  map[string]string
	seq          int

	lockedMachines []string
	recomputes     []string
}

type fakeMaintenanceWindow struct {
	id        string
	machineID string
	window    Window
	active    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reservations: make(map[string]*Reservation),
		holderNames:  make(map[string]string),
	}
}

func (f *fakeStore) holderName(userID string) string {
	if name, ok := f.holderNames[userID]; ok {
		return name
	}
	return userID
}

func (f *fakeStore) addMaintenance(machineID string, w Window, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.maintenance = append(f.maintenance, fakeMaintenanceWindow{
		id:        fmt.Sprintf("mw-%d", f.seq),
		machineID: machineID,
		window:    w,
		active:    active,
	})
}

func (f *fakeStore) OverlappingReservations(_ context.Context, machineID string, w Window, statuses []Status, excludeID string) ([]Conflict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	blocking := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		blocking[s] = true
	}

	var conflicts []Conflict
	for _, r := range f.reservations {
		if r.MachineID != machineID || r.ID == excludeID || !blocking[r.Status] {
			continue
		}
		if !r.Window.Overlaps(w) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			ReservationID: r.ID,
			UserID:        r.UserID,
			HolderName:    f.holderName(r.UserID),
			Window:        r.Window,
			Status:        r.Status,
		})
	}

	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].Window.StartAt.Before(conflicts[j].Window.StartAt)
	})
	return conflicts, nil
}

func (f *fakeStore) OverlappingMaintenance(_ context.Context, machineID string, w Window) ([]Conflict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var conflicts []Conflict
	for _, m := range f.maintenance {
		if m.machineID != machineID || !m.active || !m.window.Overlaps(w) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			ReservationID: m.id,
			Window:        m.window,
			Maintenance:   true,
		})
	}

	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].Window.StartAt.Before(conflicts[j].Window.StartAt)
	})
	return conflicts, nil
}

func (f *fakeStore) LockMachine(_ context.Context, machineID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockedMachines = append(f.lockedMachines, machineID)
	return nil
}

func (f *fakeStore) Create(_ context.Context, r *Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	r.ID = fmt.Sprintf("res-%d", f.seq)
	prefix := "RNT"
	if r.Window.Kind == KindDateSlot {
		prefix = "RM"
	}
	r.ReferenceCode = fmt.Sprintf("%s-%s-%04d", prefix, time.Now().UTC().Format("20060102"), f.seq)
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt

	stored := *r
	f.reservations[r.ID] = &stored
	return nil
}

func (f *fakeStore) get(id string) (*Reservation, error) {
	r, ok := f.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(id)
}

func (f *fakeStore) GetByIDForUpdate(_ context.Context, id string) (*Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(id)
}

func (f *fakeStore) List(_ context.Context, filter Filter) ([]*Reservation, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []*Reservation
	for _, r := range f.reservations {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.MachineID != "" && r.MachineID != filter.MachineID {
			continue
		}
		if filter.Status != "" && string(r.Status) != filter.Status {
			continue
		}
		copied := *r
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, len(result), nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.reservations[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeStore) UpdateWindow(_ context.Context, id string, w Window) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.reservations[id]
	if !ok {
		return ErrNotFound
	}
	r.Window = w
	r.Status = StatusPending
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeStore) SetPaymentVerified(_ context.Context, id string, at time.Time, verifier *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.reservations[id]
	if !ok {
		return ErrNotFound
	}
	r.PaymentVerified = true
	r.PaymentVerifiedAt = &at
	r.PaymentVerifiedBy = verifier
	return nil
}

func (f *fakeStore) RecomputeMachineStatus(_ context.Context, machineID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recomputes = append(f.recomputes, machineID)
	return nil
}

func (f *fakeStore) ListElapsedApproved(_ context.Context, before time.Time) ([]*Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []*Reservation
	for _, r := range f.reservations {
		if r.Status == StatusApproved && !r.Window.EndAt.After(before) {
			copied := *r
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Window.EndAt.Before(result[j].Window.EndAt)
	})
	return result, nil
}

func (f *fakeStore) ApprovedOverlaps(_ context.Context) ([]ApprovedOverlap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var approved []*Reservation
	for _, r := range f.reservations {
		if r.Status == StatusApproved {
			approved = append(approved, r)
		}
	}
	sort.Slice(approved, func(i, j int) bool { return approved[i].ID < approved[j].ID })

	var result []ApprovedOverlap
	for i := 0; i < len(approved); i++ {
		for j := i + 1; j < len(approved); j++ {
			a, b := approved[i], approved[j]
			if a.MachineID != b.MachineID || !a.Window.Overlaps(b.Window) {
				continue
			}
			result = append(result, ApprovedOverlap{
				MachineID: a.MachineID,
				First: Conflict{
					ReservationID: a.ID, UserID: a.UserID,
					HolderName: f.holderName(a.UserID),
					Window:     a.Window, Status: a.Status,
				},
				Second: Conflict{
					ReservationID: b.ID, UserID: b.UserID,
					HolderName: f.holderName(b.UserID),
					Window:     b.Window, Status: b.Status,
				},
			})
		}
	}
	return result, nil
}

func (f *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	return fn(ctx, f)
}

// fakeMachineRepo is an in-memory machine.Repository.
type fakeMachineRepo struct {
	machines map[string]*machine.Machine
}

func newFakeMachineRepo(machines ...*machine.Machine) *fakeMachineRepo {
	repo := &fakeMachineRepo{machines: make(map[string]*machine.Machine)}
	for _, m := range machines {
		repo.machines[m.ID] = m
	}
	return repo
}

func (f *fakeMachineRepo) Create(_ context.Context, m *machine.Machine) error {
	f.machines[m.ID] = m
	return nil
}

func (f *fakeMachineRepo) GetByID(_ context.Context, id string) (*machine.Machine, error) {
	m, ok := f.machines[id]
	if !ok {
		return nil, machine.ErrNotFound
	}
	return m, nil
}

func (f *fakeMachineRepo) List(context.Context, machine.Filter) ([]*machine.Machine, int, error) {
	return nil, 0, nil
}

func (f *fakeMachineRepo) Update(_ context.Context, m *machine.Machine) error {
	f.machines[m.ID] = m
	return nil
}

func (f *fakeMachineRepo) Delete(_ context.Context, id string) error {
	delete(f.machines, id)
	return nil
}

func (f *fakeMachineRepo) HasNonTerminalReservations(context.Context, string) (bool, error) {
	return false, nil
}

func (f *fakeMachineRepo) RecomputeStatus(context.Context, string) error { return nil }

func (f *fakeMachineRepo) RecomputeAllStatuses(context.Context) (int64, error) { return 0, nil }

func (f *fakeMachineRepo) ListBlockedPeriods(context.Context, string, time.Time, time.Time) ([]machine.BlockedPeriod, error) {
	return nil, nil
}

// recordingSink collects published events.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) ofType(t EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
