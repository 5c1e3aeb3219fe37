package service

import (
	"context"

	"academy-backend/internal/domains/coupon/model"
	redemption "academy-backend/internal/domains/redemption/model"
)

// CouponService is the application surface for coupon evaluation, redemption
// and administration.
type CouponService interface {
	// ValidateCoupon answers whether a code applies to an order right now.
	// Read-only: it never consumes a use and never writes the ledger.
	ValidateCoupon(ctx context.Context, req model.ValidateCouponRequest) (*model.ValidateCouponResponse, error)

	// RedeemCoupon commits one use of a coupon against a finalized order and
	// records the attempt in the ledger. Idempotent per order id.
	RedeemCoupon(ctx context.Context, req model.RedeemCouponRequest) (*model.RedeemCouponResponse, error)

	// Admin operations
	CreateCoupon(ctx context.Context, req model.CreateCouponRequest) (*model.CouponResponse, error)
	UpdateCoupon(ctx context.Context, code string, req model.UpdateCouponRequest) (*model.CouponResponse, error)
	SetCouponStatus(ctx context.Context, code string, isActive bool) error
	GetCoupon(ctx context.Context, code string) (*model.CouponResponse, error)
	ListCoupons(ctx context.Context) ([]*model.CouponResponse, error)
}

// ReconcileEnqueuer schedules a durable retry of a ledger append that failed
// after the redemption outcome was already decided.
type ReconcileEnqueuer interface {
	EnqueueLedgerAppend(ctx context.Context, attempt *redemption.Attempt) error
}
