package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByReservationID(ctx context.Context, reservationID string) (*Payment, error)
	List(ctx context.Context, filter Filter) ([]*Payment, int, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, p *Payment) error {
	// Transaction ids follow BUF-TXN-<year>-<serial>; the sequence keeps
	// them unique across restarts.
	const query = `
		INSERT INTO public.payments (reservation_id, amount, method, recorded_by, transaction_id)
		VALUES ($1, $2, $3, $4,
			'BUF-TXN-' || to_char(now(), 'YYYY') || '-' || lpad(nextval('public.payment_txn_seq')::text, 5, '0'))
		RETURNING id, transaction_id, created_at
	`
	err := r.pool.QueryRow(ctx, query, p.ReservationID, p.Amount, p.Method, p.RecordedBy).
		Scan(&p.ID, &p.TransactionID, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return ErrAlreadyPaid
			case pgerrcode.ForeignKeyViolation:
				return ErrReservationUnknown
			}
		}
		return fmt.Errorf("create payment failed: %w", err)
	}
	return nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.ReservationID, &p.Amount, &p.Method,
		&p.TransactionID, &p.RecordedBy, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan payment failed: %w", err)
	}
	return &p, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Payment, error) {
	const query = `
		SELECT id, reservation_id, amount, method, transaction_id, recorded_by, created_at
		FROM public.payments
		WHERE id = $1
	`
	return scanPayment(r.pool.QueryRow(ctx, query, id))
}

func (r *pgxRepository) GetByReservationID(ctx context.Context, reservationID string) (*Payment, error) {
	const query = `
		SELECT id, reservation_id, amount, method, transaction_id, recorded_by, created_at
		FROM public.payments
		WHERE reservation_id = $1
	`
	return scanPayment(r.pool.QueryRow(ctx, query, reservationID))
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Payment, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"id", "reservation_id", "amount", "method", "transaction_id",
		"recorded_by", "created_at", "count(*) OVER() as total_count",
	).From("public.payments")

	if filter.ReservationID != "" {
		query = query.Where(squirrel.Eq{"reservation_id": filter.ReservationID})
	}
	if filter.Method != "" {
		query = query.Where(squirrel.Eq{"method": filter.Method})
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
		return nil, 0, fmt.Errorf("build list payments query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments failed: %w", err)
	}
	defer rows.Close()

	var result []*Payment
	var total int

	for rows.Next() {
		var p Payment
		if err := rows.Scan(
			&p.ID, &p.ReservationID, &p.Amount, &p.Method,
			&p.TransactionID, &p.RecordedBy, &p.CreatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan payment failed: %w", err)
		}
		result = append(result, &p)
	}

	return result, total, nil
}
