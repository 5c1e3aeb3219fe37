package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"academy-backend/internal/domains/coupon/model"
	"academy-backend/pkg/database"
)

// PostgresRepository implements CouponRepository with PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) CouponRepository {
	return &PostgresRepository{db: db}
}

const selectCoupon = `
		SELECT
			code, name,
			discount_type, discount_value, max_discount_amount,
			min_order_amount, currency, applies_to,
			usage_limit, per_user_limit, usage_count,
			starts_at, expires_at, is_active,
			created_at, updated_at
		FROM coupons
`

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(
		&c.Code,
		&c.Name,
		&c.DiscountType,
		&c.DiscountValue,
		&c.MaxDiscountAmount,
		&c.MinOrderAmount,
		&c.Currency,
		&c.AppliesTo,
		&c.UsageLimit,
		&c.PerUserLimit,
		&c.UsageCount,
		&c.StartsAt,
		&c.ExpiresAt,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

// FindByCode fetches a coupon snapshot by code, case-insensitive.
func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := selectCoupon + `
		WHERE code = $1
	`

	coupon, err := scanCoupon(r.db.QueryRow(ctx, query, model.NormalizeCode(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCouponNotFound
		}
		return nil, fmt.Errorf("find coupon by code: %w", err)
	}

	return coupon, nil
}

// ListAll returns every coupon for reporting enrichment and the admin list.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*model.Coupon, error) {
	query := selectCoupon + `
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []*model.Coupon
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, coupon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}

	return coupons, nil
}

// GetUserSuccessCount reads the per-user counter maintained by the commit
// transaction. Missing row means zero redemptions.
func (r *PostgresRepository) GetUserSuccessCount(ctx context.Context, code string, customerID uuid.UUID) (int, error) {
	query := `
		SELECT success_count
		FROM coupon_user_usage
		WHERE coupon_code = $1 AND customer_id = $2
	`

	var count int
	err := r.db.QueryRow(ctx, query, model.NormalizeCode(code), customerID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get user success count: %w", err)
	}

	return count, nil
}

// CheckCodeExists reports whether a code is already taken.
func (r *PostgresRepository) CheckCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM coupons WHERE code = $1)",
		model.NormalizeCode(code),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check code exists: %w", err)
	}

	return exists, nil
}

// -------------------------------------------------------------------
// WRITE OPERATIONS
// -------------------------------------------------------------------

// Create inserts a new coupon with usage_count = 0.
func (r *PostgresRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	coupon.Code = model.NormalizeCode(coupon.Code)

	query := `
		INSERT INTO coupons (
			code, name,
			discount_type, discount_value, max_discount_amount,
			min_order_amount, currency, applies_to,
			usage_limit, per_user_limit, usage_count,
			starts_at, expires_at, is_active,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12, $13, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		coupon.Code,
		coupon.Name,
		coupon.DiscountType,
		coupon.DiscountValue,
		coupon.MaxDiscountAmount,
		coupon.MinOrderAmount,
		coupon.Currency,
		coupon.AppliesTo,
		coupon.UsageLimit,
		coupon.PerUserLimit,
		coupon.StartsAt,
		coupon.ExpiresAt,
		coupon.IsActive,
	).Scan(&coupon.CreatedAt, &coupon.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return model.ErrCouponCodeExists
		}
		return fmt.Errorf("create coupon: %w", err)
	}

	coupon.UsageCount = 0
	return nil
}

// Update rewrites the operator-editable rule fields. usage_count is
// deliberately not part of the statement; it only moves through
// TryCommitRedemption.
func (r *PostgresRepository) Update(ctx context.Context, coupon *model.Coupon) error {
	query := `
		UPDATE coupons
		SET
			name = $2,
			max_discount_amount = $3,
			min_order_amount = $4,
			usage_limit = $5,
			per_user_limit = $6,
			starts_at = $7,
			expires_at = $8,
			is_active = $9,
			updated_at = NOW()
		WHERE code = $1
	`

	result, err := r.db.Exec(ctx, query,
		coupon.Code,
		coupon.Name,
		coupon.MaxDiscountAmount,
		coupon.MinOrderAmount,
		coupon.UsageLimit,
		coupon.PerUserLimit,
		coupon.StartsAt,
		coupon.ExpiresAt,
		coupon.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrCouponNotFound
	}

	return nil
}

// UpdateStatus toggles is_active.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, code string, isActive bool) error {
	result, err := r.db.Exec(ctx,
		"UPDATE coupons SET is_active = $2, updated_at = NOW() WHERE code = $1",
		model.NormalizeCode(code), isActive,
	)
	if err != nil {
		return fmt.Errorf("update coupon status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrCouponNotFound
	}

	return nil
}

// -------------------------------------------------------------------
// ATOMIC COMMIT
// -------------------------------------------------------------------

// TryCommitRedemption reserves one use of a coupon in a single transaction.
//
// The coupon row is locked FOR UPDATE, which totally orders commit attempts
// for the same code; the limits are then re-checked against the counters as
// they are now, not as they were at evaluation time. The per-user counter row
// is locked and incremented in the same transaction (for every identified
// customer, whether or not per_user_limit is set) so two parallel commits by
// the same customer cannot both pass the per-user check, and so the counter
// always agrees with the ledger's success rows.
func (r *PostgresRepository) TryCommitRedemption(ctx context.Context, code string, customerID *uuid.UUID) (model.CommitOutcome, error) {
	normalized := model.NormalizeCode(code)

	return database.WithTransactionResult(ctx, r.db, func(tx pgx.Tx) (model.CommitOutcome, error) {
		var usageLimit, perUserLimit *int
		var usageCount int

		err := tx.QueryRow(ctx, `
			SELECT usage_limit, per_user_limit, usage_count
			FROM coupons
			WHERE code = $1
			FOR UPDATE
		`, normalized).Scan(&usageLimit, &perUserLimit, &usageCount)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.CommitOutcome{}, model.ErrCouponNotFound
			}
			return model.CommitOutcome{}, fmt.Errorf("lock coupon for commit: %w", err)
		}

		if usageLimit != nil && usageCount >= *usageLimit {
			return model.CommitOutcome{ConflictReason: model.RejectUsageLimitReached}, nil
		}

		// The per-user counter is maintained for every identified customer,
		// limit or no limit: an operator who adds per_user_limit later must
		// see prior redemptions counted.
		if customerID != nil {
			userCount, err := getAndLockUserUsage(ctx, tx, normalized, *customerID)
			if err != nil {
				return model.CommitOutcome{}, err
			}
			if perUserLimit != nil && userCount >= *perUserLimit {
				return model.CommitOutcome{ConflictReason: model.RejectPerUserLimit}, nil
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE coupons
			SET usage_count = usage_count + 1, updated_at = NOW()
			WHERE code = $1
		`, normalized)
		if err != nil {
			return model.CommitOutcome{}, fmt.Errorf("increment usage count: %w", err)
		}

		if customerID != nil {
			_, err = tx.Exec(ctx, `
				UPDATE coupon_user_usage
				SET success_count = success_count + 1, last_used_at = NOW()
				WHERE coupon_code = $1 AND customer_id = $2
			`, normalized, *customerID)
			if err != nil {
				return model.CommitOutcome{}, fmt.Errorf("increment user usage: %w", err)
			}
		}

		return model.CommitOutcome{Committed: true}, nil
	})
}

// getAndLockUserUsage reads the per-user counter under a row lock, creating
// the row on first use.
func getAndLockUserUsage(ctx context.Context, tx pgx.Tx, code string, customerID uuid.UUID) (int, error) {
	var count int

	err := tx.QueryRow(ctx, `
		SELECT success_count
		FROM coupon_user_usage
		WHERE coupon_code = $1 AND customer_id = $2
		FOR UPDATE
	`, code, customerID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err := tx.QueryRow(ctx, `
				INSERT INTO coupon_user_usage (coupon_code, customer_id, success_count, last_used_at)
				VALUES ($1, $2, 0, NOW())
				RETURNING success_count
			`, code, customerID).Scan(&count)
			if err != nil {
				return 0, fmt.Errorf("create user usage row: %w", err)
			}
			return count, nil
		}
		return 0, fmt.Errorf("lock user usage row: %w", err)
	}

	return count, nil
}
