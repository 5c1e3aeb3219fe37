package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"academy-backend/internal/domains/redemption/model"
)

// PostgresLedger implements Ledger against the coupon_redemptions table.
type PostgresLedger struct {
	db *pgxpool.Pool
}

func NewPostgresLedger(db *pgxpool.Pool) Ledger {
	return &PostgresLedger{db: db}
}

// Append inserts one attempt row. A duplicate (id) insert is treated as
// already-applied, so the reconciliation worker can retry safely.
func (r *PostgresLedger) Append(ctx context.Context, attempt *model.Attempt) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.OccurredAt.IsZero() {
		attempt.OccurredAt = time.Now().UTC()
	}

	query := `
		INSERT INTO coupon_redemptions (
			id, coupon_code, customer_id, order_id, context,
			order_amount, order_currency,
			discount_amount, net_revenue, rate_snapshot,
			outcome, reject_reason, occurred_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err := r.db.Exec(ctx, query,
		attempt.ID,
		attempt.CouponCode,
		attempt.CustomerID,
		attempt.OrderID,
		attempt.Context,
		attempt.OrderAmount,
		attempt.OrderCurrency,
		attempt.DiscountAmount,
		attempt.NetRevenue,
		attempt.RateSnapshot,
		attempt.Outcome,
		attempt.RejectReason,
		attempt.OccurredAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			// Same row id already landed (retried append).
			return nil
		}
		return fmt.Errorf("append redemption attempt: %w", err)
	}

	return nil
}

// FindSuccessByOrderID looks up the committed redemption for an order.
func (r *PostgresLedger) FindSuccessByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Attempt, error) {
	query := selectAttempt + `
		WHERE order_id = $1 AND outcome = 'success'
	`

	row := r.db.QueryRow(ctx, query, orderID)
	attempt, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find redemption by order id: %w", err)
	}

	return attempt, nil
}

// ListRange streams the ledger slice a report is computed over.
func (r *PostgresLedger) ListRange(ctx context.Context, start, end time.Time) ([]*model.Attempt, error) {
	query := selectAttempt + `
		WHERE occurred_at >= $1 AND occurred_at <= $2
		ORDER BY occurred_at
	`

	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("list redemption attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*model.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list redemption attempts: %w", err)
	}

	return attempts, nil
}

// CountUserSuccesses counts committed redemptions for one customer and code.
func (r *PostgresLedger) CountUserSuccesses(ctx context.Context, couponCode string, customerID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM coupon_redemptions
		WHERE coupon_code = $1 AND customer_id = $2 AND outcome = 'success'
	`

	var count int
	err := r.db.QueryRow(ctx, query, couponCode, customerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count user redemptions: %w", err)
	}

	return count, nil
}

const selectAttempt = `
		SELECT
			id, coupon_code, customer_id, order_id, context,
			order_amount, order_currency,
			discount_amount, net_revenue, rate_snapshot,
			outcome, reject_reason, occurred_at
		FROM coupon_redemptions
`

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	var a model.Attempt
	err := row.Scan(
		&a.ID,
		&a.CouponCode,
		&a.CustomerID,
		&a.OrderID,
		&a.Context,
		&a.OrderAmount,
		&a.OrderCurrency,
		&a.DiscountAmount,
		&a.NetRevenue,
		&a.RateSnapshot,
		&a.Outcome,
		&a.RejectReason,
		&a.OccurredAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
