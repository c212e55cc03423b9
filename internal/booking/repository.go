package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxStore is the write surface available inside a booking transaction.
// Everything it does sees and joins the transaction's snapshot.
type TxStore interface {
	ConflictStore

	// LockMachine takes an exclusive row lock on the machine, serializing
	// concurrent booking flows targeting it.
	LockMachine(ctx context.Context, machineID string) error

	Create(ctx context.Context, r *Reservation) error
	GetByIDForUpdate(ctx context.Context, id string) (*Reservation, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdateWindow(ctx context.Context, id string, w Window) error

	// RecomputeMachineStatus refreshes the machine's cached status
	// projection within the transaction, so the projection and the
	// transition commit together.
	RecomputeMachineStatus(ctx context.Context, machineID string) error
}

type Repository interface {
	ConflictStore

	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	SetPaymentVerified(ctx context.Context, id string, at time.Time, verifier *string) error
	ListElapsedApproved(ctx context.Context, before time.Time) ([]*Reservation, error)
	ApprovedOverlaps(ctx context.Context) ([]ApprovedOverlap, error)

	// InTx runs fn inside one transaction; fn's writes commit together or
	// not at all.
	InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
}

// ApprovedOverlap is one pair of approved reservations on the same
// machine with intersecting windows. The consistency report enumerates
// these; under normal operation there are none.
type ApprovedOverlap struct {
	MachineID   string
	MachineName string
	First       Conflict
	Second      Conflict
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries holds every statement; the same code runs on the pool and
// inside transactions.
type queries struct {
	db dbtx
}

type pgxRepository struct {
	queries
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{queries: queries{db: pool}, pool: pool}
}

func (r *pgxRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction failed: %w", err)
	}
	return nil
}

const reservationColumns = `
	r.id, r.user_id, r.machine_id, r.kind, r.start_date, r.end_date, r.slot,
	r.start_at, r.end_at, r.status, r.walk_in_customer_name,
	r.payment_verified, r.payment_verified_at, r.payment_verified_by,
	r.reference_code, r.purpose, r.created_at, r.updated_at
`

func scanReservation(row pgx.Row) (*Reservation, error) {
	var res Reservation
	var slot *string
	err := row.Scan(
		&res.ID, &res.UserID, &res.MachineID, &res.Window.Kind,
		&res.Window.StartDate, &res.Window.EndDate, &slot,
		&res.Window.StartAt, &res.Window.EndAt, &res.Status, &res.WalkInCustomerName,
		&res.PaymentVerified, &res.PaymentVerifiedAt, &res.PaymentVerifiedBy,
		&res.ReferenceCode, &res.Purpose, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan reservation failed: %w", err)
	}
	if slot != nil {
		res.Window.Slot = Slot(*slot)
	}
	return &res, nil
}

func (q *queries) LockMachine(ctx context.Context, machineID string) error {
	const query = `SELECT id FROM public.machines WHERE id = $1 FOR UPDATE`
	var id string
	if err := q.db.QueryRow(ctx, query, machineID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("lock machine %s: %w", machineID, ErrNotFound)
		}
		return fmt.Errorf("lock machine failed: %w", err)
	}
	return nil
}

func (q *queries) Create(ctx context.Context, r *Reservation) error {
	var slot *string
	prefix := "RNT-"
	if r.Window.Kind == KindDateSlot {
		s := string(r.Window.Slot)
		slot = &s
		prefix = "RM-"
	}

	const query = `
		INSERT INTO public.reservations
			(user_id, machine_id, kind, start_date, end_date, slot,
			 start_at, end_at, status, walk_in_customer_name, purpose,
			 reference_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12 || to_char(now(), 'YYYYMMDD') || '-' || lpad(nextval('public.reservation_ref_seq')::text, 4, '0'))
		RETURNING id, reference_code, created_at, updated_at
	`
	err := q.db.QueryRow(ctx, query,
		r.UserID, r.MachineID, r.Window.Kind, r.Window.StartDate, r.Window.EndDate, slot,
		r.Window.StartAt, r.Window.EndAt, r.Status, r.WalkInCustomerName, r.Purpose, prefix,
	).Scan(&r.ID, &r.ReferenceCode, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrSlotTaken
		}
		return fmt.Errorf("create reservation failed: %w", err)
	}
	return nil
}

func (q *queries) GetByID(ctx context.Context, id string) (*Reservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM public.reservations r WHERE r.id = $1`, reservationColumns)
	return scanReservation(q.db.QueryRow(ctx, query, id))
}

func (q *queries) GetByIDForUpdate(ctx context.Context, id string) (*Reservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM public.reservations r WHERE r.id = $1 FOR UPDATE`, reservationColumns)
	return scanReservation(q.db.QueryRow(ctx, query, id))
}

func (q *queries) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"r.id", "r.user_id", "r.machine_id", "r.kind", "r.start_date", "r.end_date", "r.slot",
		"r.start_at", "r.end_at", "r.status", "r.walk_in_customer_name",
		"r.payment_verified", "r.payment_verified_at", "r.payment_verified_by",
		"r.reference_code", "r.purpose", "r.created_at", "r.updated_at",
		"count(*) OVER() as total_count",
	).From("public.reservations r")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"r.user_id": filter.UserID})
	}
	if filter.MachineID != "" {
		query = query.Where(squirrel.Eq{"r.machine_id": filter.MachineID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"r.status": filter.Status})
	}

	query = query.OrderBy("r.created_at DESC")

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
		return nil, 0, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations failed: %w", err)
	}
	defer rows.Close()

	var result []*Reservation
	var total int

	for rows.Next() {
		var res Reservation
		var slot *string
		if err := rows.Scan(
			&res.ID, &res.UserID, &res.MachineID, &res.Window.Kind,
			&res.Window.StartDate, &res.Window.EndDate, &slot,
			&res.Window.StartAt, &res.Window.EndAt, &res.Status, &res.WalkInCustomerName,
			&res.PaymentVerified, &res.PaymentVerifiedAt, &res.PaymentVerifiedBy,
			&res.ReferenceCode, &res.Purpose, &res.CreatedAt, &res.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan reservation failed: %w", err)
		}
		if slot != nil {
			res.Window.Slot = Slot(*slot)
		}
		result = append(result, &res)
	}

	return result, total, nil
}

func (q *queries) UpdateStatus(ctx context.Context, id string, status Status) error {
	const query = `
		UPDATE public.reservations
		SET status = $1, updated_at = now()
		WHERE id = $2
	`
	ct, err := q.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update reservation status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *queries) UpdateWindow(ctx context.Context, id string, w Window) error {
	var slot *string
	if w.Kind == KindDateSlot {
		s := string(w.Slot)
		slot = &s
	}

	const query = `
		UPDATE public.reservations
		SET start_date = $1, end_date = $2, slot = $3, start_at = $4, end_at = $5,
		    status = 'pending', updated_at = now()
		WHERE id = $6
	`
	ct, err := q.db.Exec(ctx, query, w.StartDate, w.EndDate, slot, w.StartAt, w.EndAt, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrSlotTaken
		}
		return fmt.Errorf("update reservation window failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *queries) SetPaymentVerified(ctx context.Context, id string, at time.Time, verifier *string) error {
	const query = `
		UPDATE public.reservations
		SET payment_verified = true, payment_verified_at = $1, payment_verified_by = $2,
		    updated_at = now()
		WHERE id = $3
	`
	ct, err := q.db.Exec(ctx, query, at, verifier, id)
	if err != nil {
		return fmt.Errorf("set payment verified failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *queries) RecomputeMachineStatus(ctx context.Context, machineID string) error {
	// Same statement the machine repository owns; running it here keeps
	// the projection refresh inside the booking transaction.
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
		WHERE m.id = $1
	`
	if _, err := q.db.Exec(ctx, query, machineID); err != nil {
		return fmt.Errorf("recompute machine status failed: %w", err)
	}
	return nil
}

func (q *queries) OverlappingReservations(ctx context.Context, machineID string, w Window, statuses []Status, excludeID string) ([]Conflict, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"r.id", "r.user_id", "COALESCE(u.display_name, u.email)",
		"r.kind", "r.start_date", "r.end_date", "r.slot", "r.start_at", "r.end_at", "r.status",
	).
		From("public.reservations r").
		Join("public.users u ON u.id = r.user_id").
		Where(squirrel.Eq{"r.machine_id": machineID}).
		Where(squirrel.Eq{"r.status": statuses}).
		Where(squirrel.Lt{"r.start_at": w.EndAt}).
		Where(squirrel.Gt{"r.end_at": w.StartAt}).
		OrderBy("r.start_at")

	if excludeID != "" {
		query = query.Where(squirrel.NotEq{"r.id": excludeID})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overlap query failed: %w", err)
	}

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find overlapping reservations failed: %w", err)
	}
	defer rows.Close()

	var conflicts []Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}

	return conflicts, nil
}

func scanConflict(rows pgx.Rows) (Conflict, error) {
	var c Conflict
	var slot *string
	err := rows.Scan(
		&c.ReservationID, &c.UserID, &c.HolderName,
		&c.Window.Kind, &c.Window.StartDate, &c.Window.EndDate, &slot,
		&c.Window.StartAt, &c.Window.EndAt, &c.Status,
	)
	if err != nil {
		return Conflict{}, fmt.Errorf("scan conflict failed: %w", err)
	}
	if slot != nil {
		c.Window.Slot = Slot(*slot)
	}
	return c, nil
}

func (q *queries) OverlappingMaintenance(ctx context.Context, machineID string, w Window) ([]Conflict, error) {
	const query = `
		SELECT id, start_date, end_date, start_at, end_at
		FROM public.maintenance_windows
		WHERE machine_id = $1
		  AND status IN ('scheduled', 'in_progress')
		  AND start_at < $2 AND end_at > $3
		ORDER BY start_at
	`
	rows, err := q.db.Query(ctx, query, machineID, w.EndAt, w.StartAt)
	if err != nil {
		return nil, fmt.Errorf("find overlapping maintenance failed: %w", err)
	}
	defer rows.Close()

	var conflicts []Conflict
	for rows.Next() {
		c := Conflict{Maintenance: true}
		c.Window.Kind = KindDateRange
		if err := rows.Scan(
			&c.ReservationID, &c.Window.StartDate, &c.Window.EndDate,
			&c.Window.StartAt, &c.Window.EndAt,
		); err != nil {
			return nil, fmt.Errorf("scan maintenance conflict failed: %w", err)
		}
		conflicts = append(conflicts, c)
	}

	return conflicts, nil
}

func (q *queries) ListElapsedApproved(ctx context.Context, before time.Time) ([]*Reservation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM public.reservations r
		WHERE r.status = 'approved' AND r.end_at <= $1
		ORDER BY r.end_at
	`, reservationColumns)

	rows, err := q.db.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("list elapsed reservations failed: %w", err)
	}
	defer rows.Close()

	var result []*Reservation
	for rows.Next() {
		var res Reservation
		var slot *string
		if err := rows.Scan(
			&res.ID, &res.UserID, &res.MachineID, &res.Window.Kind,
			&res.Window.StartDate, &res.Window.EndDate, &slot,
			&res.Window.StartAt, &res.Window.EndAt, &res.Status, &res.WalkInCustomerName,
			&res.PaymentVerified, &res.PaymentVerifiedAt, &res.PaymentVerifiedBy,
			&res.ReferenceCode, &res.Purpose, &res.CreatedAt, &res.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation failed: %w", err)
		}
		if slot != nil {
			res.Window.Slot = Slot(*slot)
		}
		result = append(result, &res)
	}

	return result, nil
}

func (q *queries) ApprovedOverlaps(ctx context.Context) ([]ApprovedOverlap, error) {
	const query = `
		SELECT
			a.machine_id, m.name,
			a.id, a.user_id, COALESCE(ua.display_name, ua.email),
			a.kind, a.start_date, a.end_date, a.slot, a.start_at, a.end_at, a.status,
			b.id, b.user_id, COALESCE(ub.display_name, ub.email),
			b.kind, b.start_date, b.end_date, b.slot, b.start_at, b.end_at, b.status
		FROM public.reservations a
		JOIN public.reservations b
			ON b.machine_id = a.machine_id
			AND b.id > a.id
			AND b.status = 'approved'
			AND a.start_at < b.end_at AND a.end_at > b.start_at
		JOIN public.machines m ON m.id = a.machine_id
		JOIN public.users ua ON ua.id = a.user_id
		JOIN public.users ub ON ub.id = b.user_id
		WHERE a.status = 'approved'
		ORDER BY a.machine_id, a.start_at
	`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("approved overlap report failed: %w", err)
	}
	defer rows.Close()

	var result []ApprovedOverlap
	for rows.Next() {
		var o ApprovedOverlap
		var slotA, slotB *string
		if err := rows.Scan(
			&o.MachineID, &o.MachineName,
			&o.First.ReservationID, &o.First.UserID, &o.First.HolderName,
			&o.First.Window.Kind, &o.First.Window.StartDate, &o.First.Window.EndDate, &slotA,
			&o.First.Window.StartAt, &o.First.Window.EndAt, &o.First.Status,
			&o.Second.ReservationID, &o.Second.UserID, &o.Second.HolderName,
			&o.Second.Window.Kind, &o.Second.Window.StartDate, &o.Second.Window.EndDate, &slotB,
			&o.Second.Window.StartAt, &o.Second.Window.EndAt, &o.Second.Status,
		); err != nil {
			return nil, fmt.Errorf("scan approved overlap failed: %w", err)
		}
		if slotA != nil {
			o.First.Window.Slot = Slot(*slotA)
		}
		if slotB != nil {
			o.Second.Window.Slot = Slot(*slotB)
		}
		result = append(result, o)
	}

	return result, nil
}
