package maintenance

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bufia/equipment-booking-backend/internal/logger"
	"github.com/bufia/equipment-booking-backend/internal/machine"
)

type Service interface {
	Schedule(ctx context.Context, machineID string, startDate, endDate time.Time, reason string) (*Window, error)
	GetByID(ctx context.Context, id string) (*Window, error)
	List(ctx context.Context, filter Filter) ([]*Window, int, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Window, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo        Repository
	machineRepo machine.Repository
	log         *slog.Logger
}

func NewService(repo Repository, machineRepo machine.Repository) Service {
	return &service{
		repo:        repo,
		machineRepo: machineRepo,
		log:         logger.WithService("maintenance"),
	}
}

// Schedule creates a maintenance window over an inclusive date range.
// The window blocks bookings immediately, regardless of pending requests
// already covering those dates.
func (s *service) Schedule(ctx context.Context, machineID string, startDate, endDate time.Time, reason string) (*Window, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}

	startDate = truncateToDay(startDate)
	endDate = truncateToDay(endDate)
	if endDate.Before(startDate) {
		return nil, ErrInvalidWindow
	}

	if _, err := s.machineRepo.GetByID(ctx, machineID); err != nil {
		return nil, err
	}

	w := &Window{
		MachineID: machineID,
		StartDate: startDate,
		EndDate:   endDate,
		StartAt:   startDate,
		EndAt:     endDate.AddDate(0, 0, 1),
		Reason:    reason,
		Status:    StatusScheduled,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}

	if err := s.machineRepo.RecomputeStatus(ctx, machineID); err != nil {
		s.log.Warn("machine status refresh after scheduling failed", "machine_id", machineID, "error", err)
	}

	s.log.Info("maintenance scheduled",
		"window_id", w.ID,
		"machine_id", machineID,
		"start_date", startDate.Format(time.DateOnly),
		"end_date", endDate.Format(time.DateOnly),
	)
	return w, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Window, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Window, int, error) {
	if filter.Status != "" && !Status(filter.Status).IsValid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

func (s *service) UpdateStatus(ctx context.Context, id string, status Status) (*Window, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.Status.CanTransitionTo(status) {
		return nil, ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	w.Status = status

	if err := s.machineRepo.RecomputeStatus(ctx, w.MachineID); err != nil {
		s.log.Warn("machine status refresh after transition failed", "machine_id", w.MachineID, "error", err)
	}

	s.log.Info("maintenance status updated", "window_id", id, "status", status)
	return w, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.machineRepo.RecomputeStatus(ctx, w.MachineID); err != nil {
		s.log.Warn("machine status refresh after delete failed", "machine_id", w.MachineID, "error", err)
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
