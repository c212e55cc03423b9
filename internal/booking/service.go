package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bufia/equipment-booking-backend/internal/logger"
	"github.com/bufia/equipment-booking-backend/internal/machine"
)

// SubmitParams carries everything needed to create a reservation.
type SubmitParams struct {
	UserID    string
	MachineID string
	Kind      WindowKind

	// Date range (KindDateRange): inclusive day range.
	StartDate time.Time
	EndDate   time.Time

	// Appointment (KindDateSlot): one day, one slot.
	Date time.Time
	Slot Slot

	Purpose string

	// WalkInCustomerName records a non-member customer; only admins may
	// set it, and the booking is owned by the entering admin.
	WalkInCustomerName *string
	IsAdmin            bool
}

// BulkResult reports the outcome for one reservation in a bulk approval.
type BulkResult struct {
	ReservationID string
	Reservation   *Reservation
	Err           error
}

type Service interface {
	Submit(ctx context.Context, params SubmitParams) (*Reservation, error)
	GetByID(ctx context.Context, id, requesterID string, isAdmin bool) (*Reservation, error)
	List(ctx context.Context, filter Filter, requesterID string, isAdmin bool) ([]*Reservation, int, error)
	CheckAvailability(ctx context.Context, machineID string, w Window, policy Policy) (bool, []Conflict, error)

	// MarkPaymentVerified is called by the payment collaborator once a
	// payment is confirmed. verifier is nil for system confirmations.
	MarkPaymentVerified(ctx context.Context, id string, verifier *string) (*Reservation, error)
	// IsPaymentRequiredBeforeApproval reports whether approval is gated
	// on verified payment.
	IsPaymentRequiredBeforeApproval(r *Reservation) bool

	Approve(ctx context.Context, id, actorID string) (*Reservation, error)
	Reject(ctx context.Context, id, actorID string) (*Reservation, error)
	Cancel(ctx context.Context, id, actorID string, isAdmin bool) (*Reservation, error)
	ResubmitWindow(ctx context.Context, id, actorID string, params SubmitParams) (*Reservation, error)

	BulkApprove(ctx context.Context, ids []string, actorID string) []BulkResult
	CompleteElapsed(ctx context.Context) (int, error)
	ConflictReport(ctx context.Context) ([]ApprovedOverlap, error)
}

type service struct {
	repo          Repository
	machineRepo   machine.Repository
	checker       *Checker
	holds         HoldStore
	sink          EventSink
	maxRentalDays int
	log           *slog.Logger
}

func NewService(repo Repository, machineRepo machine.Repository, holds HoldStore, sink EventSink, maxRentalDays int) Service {
	if holds == nil {
		holds = NewNopHoldStore()
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &service{
		repo:          repo,
		machineRepo:   machineRepo,
		checker:       NewChecker(repo),
		holds:         holds,
		sink:          sink,
		maxRentalDays: maxRentalDays,
		log:           logger.WithService("booking"),
	}
}

// buildWindow validates params and produces the normalized window.
func (s *service) buildWindow(params SubmitParams, category machine.Category) (Window, error) {
	if !params.Kind.IsValid() {
		return Window{}, ErrInvalidKind
	}
	if category.IsSlotBased() != (params.Kind == KindDateSlot) {
		return Window{}, ErrKindMismatch
	}

	today := DayStart(time.Now().UTC())

	if params.Kind == KindDateSlot {
		if !params.Slot.IsValid() {
			return Window{}, ErrInvalidSlot
		}
		w := NewDateSlotWindow(params.Date, params.Slot)
		if w.StartDate.Before(today) {
			return Window{}, ErrStartInPast
		}
		return w, nil
	}

	w := NewDateRangeWindow(params.StartDate, params.EndDate)
	if w.EndDate.Before(w.StartDate) {
		return Window{}, ErrInvalidDateOrder
	}
	if w.StartDate.Before(today) {
		return Window{}, ErrStartInPast
	}
	if w.Days() > s.maxRentalDays {
		return Window{}, ErrRangeTooLong
	}
	return w, nil
}

// Submit validates a booking request, checks availability under the
// submission policy, and creates the reservation as pending inside a
// transaction holding the machine lock.
func (s *service) Submit(ctx context.Context, params SubmitParams) (*Reservation, error) {
	if params.WalkInCustomerName != nil && !params.IsAdmin {
		return nil, ErrNotOwner
	}

	m, err := s.machineRepo.GetByID(ctx, params.MachineID)
	if err != nil {
		return nil, err
	}

	w, err := s.buildWindow(params, m.Category)
	if err != nil {
		return nil, err
	}

	if err := s.holds.Acquire(ctx, params.MachineID, params.UserID); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.holds.Release(ctx, params.MachineID, params.UserID); err != nil {
			s.log.Warn("hold release failed", "machine_id", params.MachineID, "error", err)
		}
	}()

	// Optimistic pre-check so plain conflicts fail without taking the
	// machine lock.
	ok, conflicts, err := s.checker.Check(ctx, params.MachineID, w, PolicySubmission, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		confErr := &ConflictError{MachineID: params.MachineID, Proposed: w, Conflicts: conflicts}
		s.emitConflict(params.MachineID, params.UserID, "")
		return nil, confErr
	}

	res := &Reservation{
		UserID:             params.UserID,
		MachineID:          params.MachineID,
		Window:             w,
		Status:             StatusPending,
		WalkInCustomerName: params.WalkInCustomerName,
		Purpose:            params.Purpose,
	}

	err = s.repo.InTx(ctx, func(ctx context.Context, tx TxStore) error {
		if err := tx.LockMachine(ctx, params.MachineID); err != nil {
			return err
		}

		ok, conflicts, err := NewChecker(tx).Check(ctx, params.MachineID, w, PolicySubmission, "")
		if err != nil {
			return err
		}
		if !ok {
			// The pre-check passed, so a competing row committed in between.
			return &ConcurrencyAbortError{Conflict: &ConflictError{
				MachineID: params.MachineID, Proposed: w, Conflicts: conflicts,
			}}
		}

		return tx.Create(ctx, res)
	})
	if err != nil {
		var abort *ConcurrencyAbortError
		if errors.As(err, &abort) {
			s.log.Warn("submission lost booking race", "machine_id", params.MachineID, "user_id", params.UserID)
			s.emitConflict(params.MachineID, params.UserID, "")
		}
		return nil, err
	}

	s.log.Info("reservation submitted",
		"reservation_id", res.ID,
		"reference_code", res.ReferenceCode,
		"machine_id", res.MachineID,
		"window", w.String(),
	)
	s.emit(EventSubmitted, res, "", StatusPending, params.UserID)
	return res, nil
}

func (s *service) GetByID(ctx context.Context, id, requesterID string, isAdmin bool) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && res.UserID != requesterID {
		return nil, ErrNotOwner
	}
	return res, nil
}

func (s *service) List(ctx context.Context, filter Filter, requesterID string, isAdmin bool) ([]*Reservation, int, error) {
	// Members only ever see their own reservations.
	if !isAdmin {
		filter.UserID = requesterID
	}
	if filter.Status != "" && !Status(filter.Status).IsValid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

func (s *service) CheckAvailability(ctx context.Context, machineID string, w Window, policy Policy) (bool, []Conflict, error) {
	if _, err := s.machineRepo.GetByID(ctx, machineID); err != nil {
		return false, nil, err
	}
	return s.checker.Check(ctx, machineID, w, policy, "")
}

func (s *service) IsPaymentRequiredBeforeApproval(_ *Reservation) bool {
	return true
}

func (s *service) MarkPaymentVerified(ctx context.Context, id string, verifier *string) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Gateway retries and admin re-entry land here; a reservation whose
	// payment is already verified stays verified, whatever its status.
	if res.PaymentVerified {
		return res, nil
	}
	if res.Status != StatusPending && res.Status != StatusApproved {
		return nil, ErrNotPending
	}

	now := time.Now().UTC()
	if err := s.repo.SetPaymentVerified(ctx, id, now, verifier); err != nil {
		return nil, err
	}
	res.PaymentVerified = true
	res.PaymentVerifiedAt = &now
	res.PaymentVerifiedBy = verifier

	actor := ""
	if verifier != nil {
		actor = *verifier
	}
	s.log.Info("payment verified", "reservation_id", id, "verifier", actor)
	s.emit(EventPaymentVerified, res, res.Status, res.Status, actor)
	return res, nil
}

// Approve finalizes a pending reservation. The availability re-check
// under the machine lock guarantees at most one approved reservation per
// overlapping window.
func (s *service) Approve(ctx context.Context, id, actorID string) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != StatusPending {
		return nil, ErrNotPending
	}
	if s.IsPaymentRequiredBeforeApproval(res) && !res.PaymentVerified {
		return nil, ErrPaymentNotVerified
	}

	// Optimistic pre-check: a stale admin screen should fail fast with
	// the full conflict picture before any lock is taken.
	ok, conflicts, err := s.checker.Check(ctx, res.MachineID, res.Window, PolicyApproval, res.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		confErr := &ConflictError{MachineID: res.MachineID, Proposed: res.Window, Conflicts: conflicts}
		s.emitConflict(res.MachineID, res.UserID, res.ID)
		return nil, confErr
	}

	err = s.repo.InTx(ctx, func(ctx context.Context, tx TxStore) error {
		if err := tx.LockMachine(ctx, res.MachineID); err != nil {
			return err
		}

		locked, err := tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if locked.Status != StatusPending {
			return ErrNotPending
		}
		if s.IsPaymentRequiredBeforeApproval(locked) && !locked.PaymentVerified {
			return ErrPaymentNotVerified
		}

		ok, conflicts, err := NewChecker(tx).Check(ctx, locked.MachineID, locked.Window, PolicyApproval, locked.ID)
		if err != nil {
			return err
		}
		if !ok {
			return &ConcurrencyAbortError{Conflict: &ConflictError{
				MachineID: locked.MachineID, Proposed: locked.Window, Conflicts: conflicts,
			}}
		}

		if err := tx.UpdateStatus(ctx, id, StatusApproved); err != nil {
			return err
		}
		return tx.RecomputeMachineStatus(ctx, res.MachineID)
	})
	if err != nil {
		var abort *ConcurrencyAbortError
		if errors.As(err, &abort) {
			s.log.Warn("approval lost race", "reservation_id", id, "machine_id", res.MachineID)
			s.emitConflict(res.MachineID, res.UserID, res.ID)
		}
		return nil, err
	}

	res.Status = StatusApproved
	s.log.Info("reservation approved", "reservation_id", id, "approver", actorID)
	s.emit(EventApproved, res, StatusPending, StatusApproved, actorID)
	return res, nil
}

func (s *service) Reject(ctx context.Context, id, actorID string) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != StatusPending {
		return nil, ErrNotPending
	}

	if err := s.repo.UpdateStatus(ctx, id, StatusRejected); err != nil {
		return nil, err
	}
	res.Status = StatusRejected

	s.log.Info("reservation rejected", "reservation_id", id, "rejecter", actorID)
	s.emit(EventRejected, res, StatusPending, StatusRejected, actorID)
	return res, nil
}

// Cancel is owner- or admin-initiated and idempotent: cancelling an
// already-cancelled reservation succeeds without a second event.
func (s *service) Cancel(ctx context.Context, id, actorID string, isAdmin bool) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && res.UserID != actorID {
		return nil, ErrNotOwner
	}
	if res.Status == StatusCancelled {
		return res, nil
	}
	if res.Status != StatusPending && res.Status != StatusApproved {
		return nil, ErrNotCancellable
	}
	if !res.Window.StartAt.After(time.Now().UTC()) {
		return nil, ErrWindowStarted
	}

	wasApproved := res.Status == StatusApproved
	oldStatus := res.Status

	err = s.repo.InTx(ctx, func(ctx context.Context, tx TxStore) error {
		if err := tx.UpdateStatus(ctx, id, StatusCancelled); err != nil {
			return err
		}
		if wasApproved {
			return tx.RecomputeMachineStatus(ctx, res.MachineID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Status = StatusCancelled

	s.log.Info("reservation cancelled", "reservation_id", id, "actor", actorID)
	s.emit(EventCancelled, res, oldStatus, StatusCancelled, actorID)
	return res, nil
}

// ResubmitWindow lets the owner change a reservation's window. The
// reservation drops back to pending and needs approval again.
func (s *service) ResubmitWindow(ctx context.Context, id, actorID string, params SubmitParams) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !params.IsAdmin && res.UserID != actorID {
		return nil, ErrNotOwner
	}
	if res.Status != StatusPending && res.Status != StatusApproved {
		return nil, ErrNotPending
	}

	m, err := s.machineRepo.GetByID(ctx, res.MachineID)
	if err != nil {
		return nil, err
	}

	params.Kind = res.Window.Kind
	w, err := s.buildWindow(params, m.Category)
	if err != nil {
		return nil, err
	}

	ok, conflicts, err := s.checker.Check(ctx, res.MachineID, w, PolicySubmission, res.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		confErr := &ConflictError{MachineID: res.MachineID, Proposed: w, Conflicts: conflicts}
		s.emitConflict(res.MachineID, res.UserID, res.ID)
		return nil, confErr
	}

	oldStatus := res.Status
	wasApproved := res.Status == StatusApproved

	err = s.repo.InTx(ctx, func(ctx context.Context, tx TxStore) error {
		if err := tx.LockMachine(ctx, res.MachineID); err != nil {
			return err
		}

		locked, err := tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if locked.Status != StatusPending && locked.Status != StatusApproved {
			return ErrNotPending
		}

		ok, conflicts, err := NewChecker(tx).Check(ctx, res.MachineID, w, PolicySubmission, res.ID)
		if err != nil {
			return err
		}
		if !ok {
			return &ConcurrencyAbortError{Conflict: &ConflictError{
				MachineID: res.MachineID, Proposed: w, Conflicts: conflicts,
			}}
		}

		if err := tx.UpdateWindow(ctx, id, w); err != nil {
			return err
		}
		if wasApproved {
			return tx.RecomputeMachineStatus(ctx, res.MachineID)
		}
		return nil
	})
	if err != nil {
		var abort *ConcurrencyAbortError
		if errors.As(err, &abort) {
			s.log.Warn("resubmission lost race", "reservation_id", id, "machine_id", res.MachineID)
			s.emitConflict(res.MachineID, res.UserID, res.ID)
		}
		return nil, err
	}

	res.Window = w
	res.Status = StatusPending
	s.log.Info("reservation window resubmitted", "reservation_id", id, "window", w.String())
	s.emit(EventResubmitted, res, oldStatus, StatusPending, actorID)
	return res, nil
}

// BulkApprove approves each reservation in its own transaction; one
// failure never rolls back the others.
func (s *service) BulkApprove(ctx context.Context, ids []string, actorID string) []BulkResult {
	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		res, err := s.Approve(ctx, id, actorID)
		results = append(results, BulkResult{ReservationID: id, Reservation: res, Err: err})
	}
	return results
}

// CompleteElapsed moves approved reservations whose window has passed to
// completed. Each reservation commits independently.
func (s *service) CompleteElapsed(ctx context.Context) (int, error) {
	elapsed, err := s.repo.ListElapsedApproved(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, res := range elapsed {
		err := s.repo.InTx(ctx, func(ctx context.Context, tx TxStore) error {
			locked, err := tx.GetByIDForUpdate(ctx, res.ID)
			if err != nil {
				return err
			}
			if locked.Status != StatusApproved {
				return nil
			}
			if err := tx.UpdateStatus(ctx, res.ID, StatusCompleted); err != nil {
				return err
			}
			return tx.RecomputeMachineStatus(ctx, res.MachineID)
		})
		if err != nil {
			s.log.Error("completing elapsed reservation failed", "reservation_id", res.ID, "error", err)
			continue
		}
		res.Status = StatusCompleted
		completed++
		s.emit(EventCompleted, res, StatusApproved, StatusCompleted, "")
	}

	if completed > 0 {
		s.log.Info("elapsed reservations completed", "count", completed)
	}
	return completed, nil
}

func (s *service) ConflictReport(ctx context.Context) ([]ApprovedOverlap, error) {
	return s.repo.ApprovedOverlaps(ctx)
}

func (s *service) emit(t EventType, res *Reservation, oldStatus, newStatus Status, actor string) {
	s.sink.Publish(Event{
		Type:          t,
		ReservationID: res.ID,
		MachineID:     res.MachineID,
		UserID:        res.UserID,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
		Actor:         actor,
		OccurredAt:    time.Now().UTC(),
	})
}

func (s *service) emitConflict(machineID, userID, reservationID string) {
	s.sink.Publish(Event{
		Type:          EventConflictDetected,
		ReservationID: reservationID,
		MachineID:     machineID,
		UserID:        userID,
		OccurredAt:    time.Now().UTC(),
	})
}
