package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const windowColumns = `id, machine_id, start_date, end_date, start_at, end_at, reason, status, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, w *Window) error
	GetByID(ctx context.Context, id string) (*Window, error)
	List(ctx context.Context, filter Filter) ([]*Window, int, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	err := row.Scan(
		&w.ID, &w.MachineID, &w.StartDate, &w.EndDate, &w.StartAt, &w.EndAt,
		&w.Reason, &w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan maintenance window failed: %w", err)
	}
	return &w, nil
}

func (r *pgxRepository) Create(ctx context.Context, w *Window) error {
	const query = `
		INSERT INTO public.maintenance_windows
			(machine_id, start_date, end_date, start_at, end_at, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		w.MachineID, w.StartDate, w.EndDate, w.StartAt, w.EndAt, w.Reason, w.Status,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create maintenance window failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Window, error) {
	query := fmt.Sprintf(`SELECT %s FROM public.maintenance_windows WHERE id = $1`, windowColumns)
	return scanWindow(r.pool.QueryRow(ctx, query, id))
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Window, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"id", "machine_id", "start_date", "end_date", "start_at", "end_at",
		"reason", "status", "created_at", "updated_at", "count(*) OVER() as total_count",
	).From("public.maintenance_windows")

	if filter.MachineID != "" {
		query = query.Where(squirrel.Eq{"machine_id": filter.MachineID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}

	query = query.OrderBy("start_at DESC")

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list maintenance windows query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list maintenance windows failed: %w", err)
	}
	defer rows.Close()

	var result []*Window
	var total int

	for rows.Next() {
		var w Window
		if err := rows.Scan(
			&w.ID, &w.MachineID, &w.StartDate, &w.EndDate, &w.StartAt, &w.EndAt,
			&w.Reason, &w.Status, &w.CreatedAt, &w.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan maintenance window failed: %w", err)
		}
		result = append(result, &w)
	}

	return result, total, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	const query = `
		UPDATE public.maintenance_windows
		SET status = $1, updated_at = now()
		WHERE id = $2
	`
	ct, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update maintenance window status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM public.maintenance_windows WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete maintenance window failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
