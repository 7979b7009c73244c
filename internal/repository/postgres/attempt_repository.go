package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/wishyapp/payments/internal/domain/checkout"
	domainErrors "github.com/wishyapp/payments/internal/domain/errors"
)

// AttemptRepository implements checkout.Repository using PostgreSQL.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func (r *AttemptRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const attemptColumns = `id, idempotency_key, checkout_id, amount::text, brand_type,
	        status, failure_reason, user_cancelled, gateway_code,
	        created_at, updated_at, resolved_at`

// Create inserts a new attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *checkout.Attempt) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO checkout_attempts
		 (id, idempotency_key, checkout_id, amount, brand_type,
		  status, failure_reason, user_cancelled, gateway_code,
		  created_at, updated_at, resolved_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.IdempotencyKey, a.CheckoutID, a.Amount.String(), a.BrandType,
		string(a.Status), a.FailureReason, a.UserCancelled, a.GatewayCode,
		a.CreatedAt, a.UpdatedAt, a.ResolvedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateAttempt
		}
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// GetByID retrieves an attempt by its ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*checkout.Attempt, error) {
	return r.scanAttempt(r.db(ctx).QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM checkout_attempts WHERE id = $1`, id))
}

// GetByCheckoutID retrieves an attempt by the gateway checkout id.
func (r *AttemptRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (*checkout.Attempt, error) {
	return r.scanAttempt(r.db(ctx).QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM checkout_attempts WHERE checkout_id = $1`, checkoutID))
}

// GetByIdempotencyKey retrieves an attempt by idempotency key.
func (r *AttemptRepository) GetByIdempotencyKey(ctx context.Context, key string) (*checkout.Attempt, error) {
	return r.scanAttempt(r.db(ctx).QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM checkout_attempts WHERE idempotency_key = $1`, key))
}

// Update updates an existing attempt.
func (r *AttemptRepository) Update(ctx context.Context, a *checkout.Attempt) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE checkout_attempts SET
		  status=$1, failure_reason=$2, user_cancelled=$3, gateway_code=$4,
		  updated_at=$5, resolved_at=$6
		 WHERE id=$7`,
		string(a.Status), a.FailureReason, a.UserCancelled, a.GatewayCode,
		a.UpdatedAt, a.ResolvedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAttemptNotFound
	}
	return nil
}

// List lists attempts with optional filters, newest first.
func (r *AttemptRepository) List(ctx context.Context, f checkout.ListFilter) ([]*checkout.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*f.Status))
		argIdx++
	}
	if f.BrandType != nil {
		query += fmt.Sprintf(" AND brand_type = $%d", argIdx)
		args = append(args, *f.BrandType)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*checkout.Attempt
	for rows.Next() {
		a, err := r.scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *AttemptRepository) scanAttempt(row scanner) (*checkout.Attempt, error) {
	a := &checkout.Attempt{}
	var amountStr, status string

	err := row.Scan(
		&a.ID, &a.IdempotencyKey, &a.CheckoutID, &amountStr, &a.BrandType,
		&status, &a.FailureReason, &a.UserCancelled, &a.GatewayCode,
		&a.CreatedAt, &a.UpdatedAt, &a.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("scan attempt: %w", err)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}
	a.Amount = amount
	a.Status = checkout.AttemptStatus(status)

	return a, nil
}
