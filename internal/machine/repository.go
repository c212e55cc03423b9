package machine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecomputeStatusSQL derives the cached machine status from live
// reservation and maintenance rows. It is the only statement that writes
// machines.status; the booking repository runs the same statement inside
// its approval transactions.
const RecomputeStatusSQL = `
	UPDATE public.machines m SET
		status = CASE
			WHEN EXISTS (
				SELECT 1 FROM public.reservations r
				WHERE r.machine_id = m.id
				  AND r.status = 'approved'
				  AND r.start_at <= now() AND r.end_at > now()
			) THEN 'rented'
			WHEN EXISTS (
				SELECT 1 FROM public.maintenance_windows w
				WHERE w.machine_id = m.id
				  AND w.status IN ('scheduled', 'in_progress')
				  AND w.start_at <= now() AND w.end_at > now()
			) THEN 'maintenance'
			ELSE 'available'
		END,
		updated_at = now()
	WHERE m.id = $1
`

type Repository interface {
	Create(ctx context.Context, m *Machine) error
	GetByID(ctx context.Context, id string) (*Machine, error)
	List(ctx context.Context, filter Filter) ([]*Machine, int, error)
	Update(ctx context.Context, m *Machine) error
	Delete(ctx context.Context, id string) error

	// HasNonTerminalReservations reports whether any pending or approved
	// reservation still references the machine.
	HasNonTerminalReservations(ctx context.Context, id string) (bool, error)

	// RecomputeStatus refreshes the cached status projection for one machine.
	RecomputeStatus(ctx context.Context, id string) error
	// RecomputeAllStatuses refreshes the projection for every machine.
	RecomputeAllStatuses(ctx context.Context) (int64, error)

	// ListBlockedPeriods returns reservations (pending or approved) and
	// active maintenance windows intersecting [from, to), ordered by start.
	ListBlockedPeriods(ctx context.Context, id string, from, to time.Time) ([]BlockedPeriod, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, m *Machine) error {
	const query = `
		INSERT INTO public.machines (name, category, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query, m.Name, m.Category, m.Description, m.Status).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create machine failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Machine, error) {
	const query = `
		SELECT id, name, category, description, status, created_at, updated_at
		FROM public.machines
		WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)

	var m Machine
	if err := row.Scan(&m.ID, &m.Name, &m.Category, &m.Description, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get machine failed: %w", err)
	}
	return &m, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Machine, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"id", "name", "category", "description", "status",
		"created_at", "updated_at", "count(*) OVER() as total_count",
	).From("public.machines")

	if filter.Category != "" {
		query = query.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}

	query = query.OrderBy("created_at DESC")

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
		return nil, 0, fmt.Errorf("build list machines query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list machines failed: %w", err)
	}
	defer rows.Close()

	var result []*Machine
	var total int

	for rows.Next() {
		var m Machine
		if err := rows.Scan(
			&m.ID, &m.Name, &m.Category, &m.Description, &m.Status,
			&m.CreatedAt, &m.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan machine failed: %w", err)
		}
		result = append(result, &m)
	}

	return result, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, m *Machine) error {
	const query = `
		UPDATE public.machines
		SET name = $1, category = $2, description = $3, updated_at = now()
		WHERE id = $4
	`
	ct, err := r.pool.Exec(ctx, query, m.Name, m.Category, m.Description, m.ID)
	if err != nil {
		return fmt.Errorf("update machine failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM public.machines WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete machine failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) HasNonTerminalReservations(ctx context.Context, id string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM public.reservations
			WHERE machine_id = $1 AND status IN ('pending', 'approved')
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check machine reservations failed: %w", err)
	}
	return exists, nil
}

func (r *pgxRepository) RecomputeStatus(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, RecomputeStatusSQL, id)
	if err != nil {
		return fmt.Errorf("recompute machine status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) RecomputeAllStatuses(ctx context.Context) (int64, error) {
	const query = `
		UPDATE public.machines m SET
			status = CASE
				WHEN EXISTS (
					SELECT 1 FROM public.reservations r
					WHERE r.machine_id = m.id
					  AND r.status = 'approved'
					  AND r.start_at <= now() AND r.end_at > now()
				) THEN 'rented'
				WHEN EXISTS (
					SELECT 1 FROM public.maintenance_windows w
					WHERE w.machine_id = m.id
					  AND w.status IN ('scheduled', 'in_progress')
					  AND w.start_at <= now() AND w.end_at > now()
				) THEN 'maintenance'
				ELSE 'available'
			END,
			updated_at = now()
		WHERE m.status <> CASE
			WHEN EXISTS (
				SELECT 1 FROM public.reservations r
				WHERE r.machine_id = m.id
				  AND r.status = 'approved'
				  AND r.start_at <= now() AND r.end_at > now()
			) THEN 'rented'
			WHEN EXISTS (
				SELECT 1 FROM public.maintenance_windows w
				WHERE w.machine_id = m.id
				  AND w.status IN ('scheduled', 'in_progress')
				  AND w.start_at <= now() AND w.end_at > now()
			) THEN 'maintenance'
			ELSE 'available'
		END
	`
	ct, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("recompute all machine statuses failed: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *pgxRepository) ListBlockedPeriods(ctx context.Context, id string, from, to time.Time) ([]BlockedPeriod, error) {
	const query = `
		SELECT start_at, end_at, 'reservation' AS kind, status,
		       COALESCE(u.display_name, u.email) AS holder
		FROM public.reservations r
		JOIN public.users u ON u.id = r.user_id
		WHERE r.machine_id = $1
		  AND r.status IN ('pending', 'approved')
		  AND r.start_at < $3 AND r.end_at > $2
		UNION ALL
		SELECT start_at, end_at, 'maintenance' AS kind, status, '' AS holder
		FROM public.maintenance_windows
		WHERE machine_id = $1
		  AND status IN ('scheduled', 'in_progress')
		  AND start_at < $3 AND end_at > $2
		ORDER BY start_at
	`
	rows, err := r.pool.Query(ctx, query, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blocked periods failed: %w", err)
	}
	defer rows.Close()

	var periods []BlockedPeriod
	for rows.Next() {
		var p BlockedPeriod
		if err := rows.Scan(&p.Start, &p.End, &p.Kind, &p.Status, &p.Holder); err != nil {
			return nil, fmt.Errorf("scan blocked period failed: %w", err)
		}
		periods = append(periods, p)
	}

	return periods, nil
}
