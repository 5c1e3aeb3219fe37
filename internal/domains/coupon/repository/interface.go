package repository

import (
	"context"

	"github.com/google/uuid"

	"academy-backend/internal/domains/coupon/model"
)

// CouponRepository owns coupon records and the atomic redemption commit.
type CouponRepository interface {
	// FindByCode returns the coupon snapshot for a code (case-insensitive),
	// or model.ErrCouponNotFound.
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)

	// ListAll returns every coupon, active or not.
	ListAll(ctx context.Context) ([]*model.Coupon, error)

	Create(ctx context.Context, coupon *model.Coupon) error
	Update(ctx context.Context, coupon *model.Coupon) error
	UpdateStatus(ctx context.Context, code string, isActive bool) error
	CheckCodeExists(ctx context.Context, code string) (bool, error)

	// GetUserSuccessCount returns how many times a customer has successfully
	// redeemed a coupon, from the per-user counter maintained at commit time.
	GetUserSuccessCount(ctx context.Context, code string, customerID uuid.UUID) (int, error)

	// TryCommitRedemption atomically reserves one use of a coupon. It
	// re-checks the global and per-user limits against current counters
	// inside a single transaction, increments them on success, and mutates
	// nothing on conflict. This is the only writer of usage counters.
	TryCommitRedemption(ctx context.Context, code string, customerID *uuid.UUID) (model.CommitOutcome, error)
}
