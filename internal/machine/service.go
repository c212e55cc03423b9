package machine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bufia/equipment-booking-backend/internal/logger"
)

type Service interface {
	Create(ctx context.Context, name string, category Category, description string) (*Machine, error)
	GetByID(ctx context.Context, id string) (*Machine, error)
	List(ctx context.Context, filter Filter) ([]*Machine, int, error)
	Update(ctx context.Context, id, name string, category Category, description string) (*Machine, error)
	Delete(ctx context.Context, id string) error
	RecomputeStatus(ctx context.Context, id string) (*Machine, error)
	RecomputeAllStatuses(ctx context.Context) (int64, error)
	BlockedPeriods(ctx context.Context, id string, from, to time.Time) ([]BlockedPeriod, error)
}

type service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		log:  logger.WithService("machine"),
	}
}

func (s *service) Create(ctx context.Context, name string, category Category, description string) (*Machine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if !category.IsValid() {
		return nil, ErrInvalidCategory
	}

	m := &Machine{
		Name:        name,
		Category:    category,
		Description: description,
		Status:      StatusAvailable,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.log.Info("machine created", "machine_id", m.ID, "category", m.Category)
	return m, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Machine, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Machine, int, error) {
	if filter.Category != "" && !Category(filter.Category).IsValid() {
		return nil, 0, ErrInvalidCategory
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id, name string, category Category, description string) (*Machine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if !category.IsValid() {
		return nil, ErrInvalidCategory
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m.Name = name
	m.Category = category
	m.Description = description
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes a machine. Machines with pending or approved
// reservations are protected; cancel or complete those first.
func (s *service) Delete(ctx context.Context, id string) error {
	inUse, err := s.repo.HasNonTerminalReservations(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return ErrMachineInUse
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("machine deleted", "machine_id", id)
	return nil
}

func (s *service) RecomputeStatus(ctx context.Context, id string) (*Machine, error) {
	if err := s.repo.RecomputeStatus(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) RecomputeAllStatuses(ctx context.Context) (int64, error) {
	n, err := s.repo.RecomputeAllStatuses(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("machine statuses refreshed", "changed", n)
	}
	return n, nil
}

func (s *service) BlockedPeriods(ctx context.Context, id string, from, to time.Time) ([]BlockedPeriod, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListBlockedPeriods(ctx, id, from, to)
}
