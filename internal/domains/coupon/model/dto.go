package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"academy-backend/internal/domains/currency"
)

// ValidateCouponRequest asks whether a code is usable for an order right now.
// Safe to call repeatedly for live UI feedback; it commits nothing.
type ValidateCouponRequest struct {
	Code       string          `json:"code"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Context    string          `json:"context"`
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
}

func (r ValidateCouponRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Amount, validation.By(requirePositiveAmount)),
		validation.Field(&r.Currency, validation.Required),
		validation.Field(&r.Context, validation.Required, validation.In("checkout", "package")),
	)
}

// RedeemCouponRequest commits one use of a coupon against a finalized order.
// OrderID is the idempotency key: retrying the same order never double-commits.
type RedeemCouponRequest struct {
	Code       string          `json:"code"`
	OrderID    uuid.UUID       `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Context    string          `json:"context"`
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
}

func (r RedeemCouponRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.OrderID, validation.By(requireUUID)),
		validation.Field(&r.Amount, validation.By(requirePositiveAmount)),
		validation.Field(&r.Currency, validation.Required),
		validation.Field(&r.Context, validation.Required, validation.In("checkout", "package")),
	)
}

func requirePositiveAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok || amount.LessThanOrEqual(decimal.Zero) {
		return validation.NewError("validation_amount", "amount must be greater than zero")
	}
	return nil
}

func requireUUID(value interface{}) error {
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return validation.NewError("validation_uuid", "must be a non-nil UUID")
	}
	return nil
}

// ValidateCouponResponse reports the evaluate-only outcome.
type ValidateCouponResponse struct {
	Valid          bool             `json:"valid"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	FinalAmount    *decimal.Decimal `json:"final_amount,omitempty"`
	RejectReason   *RejectReason    `json:"reject_reason,omitempty"`
}

// RedeemCouponResponse reports the commit outcome.
type RedeemCouponResponse struct {
	Committed      bool             `json:"committed"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	RejectReason   *RejectReason    `json:"reject_reason,omitempty"`
}

// CreateCouponRequest is the admin payload for a new coupon.
type CreateCouponRequest struct {
	Code              string   `json:"code"`
	Name              string   `json:"name"`
	DiscountType      string   `json:"discount_type"`
	DiscountValue     float64  `json:"discount_value"`
	MaxDiscountAmount *float64 `json:"max_discount_amount,omitempty"`
	MinOrderAmount    float64  `json:"min_order_amount"`
	Currency          string   `json:"currency"`
	AppliesTo         string   `json:"applies_to"`
	UsageLimit        *int     `json:"usage_limit,omitempty"`
	PerUserLimit      *int     `json:"per_user_limit,omitempty"`
	StartsAt          *string  `json:"starts_at,omitempty"` // RFC3339
	ExpiresAt         *string  `json:"expires_at,omitempty"`
	IsActive          bool     `json:"is_active"`
}

func (r CreateCouponRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Name, validation.Required, validation.Length(3, 200)),
		validation.Field(&r.DiscountType, validation.Required, validation.In("percentage", "fixed")),
		validation.Field(&r.DiscountValue, validation.Required, validation.Min(0.01)),
		validation.Field(&r.MinOrderAmount, validation.Min(0.0)),
		validation.Field(&r.Currency, validation.Required),
		validation.Field(&r.AppliesTo, validation.Required, validation.In("all", "checkout", "package")),
	)
}

// UpdateCouponRequest carries partial admin edits. Only non-nil fields change.
type UpdateCouponRequest struct {
	Name              *string  `json:"name,omitempty"`
	MaxDiscountAmount *float64 `json:"max_discount_amount,omitempty"`
	MinOrderAmount    *float64 `json:"min_order_amount,omitempty"`
	UsageLimit        *int     `json:"usage_limit,omitempty"`
	PerUserLimit      *int     `json:"per_user_limit,omitempty"`
	StartsAt          *string  `json:"starts_at,omitempty"`
	ExpiresAt         *string  `json:"expires_at,omitempty"`
	IsActive          *bool    `json:"is_active,omitempty"`
}

// CouponResponse is the admin/display view of a coupon.
type CouponResponse struct {
	Code              string            `json:"code"`
	Name              string            `json:"name"`
	DiscountType      string            `json:"discount_type"`
	DiscountValue     decimal.Decimal   `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal  `json:"max_discount_amount,omitempty"`
	MinOrderAmount    decimal.Decimal   `json:"min_order_amount"`
	Currency          currency.Currency `json:"currency"`
	AppliesTo         Scope             `json:"applies_to"`
	UsageLimit        *int              `json:"usage_limit,omitempty"`
	PerUserLimit      *int              `json:"per_user_limit,omitempty"`
	UsageCount        int               `json:"usage_count"`
	RemainingUses     *int              `json:"remaining_uses,omitempty"`
	StartsAt          *time.Time        `json:"starts_at,omitempty"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
	IsActive          bool              `json:"is_active"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ToResponse converts a Coupon to its API view.
func (c *Coupon) ToResponse() *CouponResponse {
	return &CouponResponse{
		Code:              c.Code,
		Name:              c.Name,
		DiscountType:      string(c.DiscountType),
		DiscountValue:     c.DiscountValue,
		MaxDiscountAmount: c.MaxDiscountAmount,
		MinOrderAmount:    c.MinOrderAmount,
		Currency:          c.Currency,
		AppliesTo:         c.AppliesTo,
		UsageLimit:        c.UsageLimit,
		PerUserLimit:      c.PerUserLimit,
		UsageCount:        c.UsageCount,
		RemainingUses:     c.RemainingUses(),
		StartsAt:          c.StartsAt,
		ExpiresAt:         c.ExpiresAt,
		IsActive:          c.IsActive,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}
