package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"academy-backend/internal/domains/coupon/model"
	"academy-backend/internal/domains/currency"
)

// Validator evaluates a coupon against an order without touching storage. Its
// only dependency is the currency converter used to bring the order amount
// into the coupon's currency.
type Validator struct {
	converter currency.Converter
}

func NewValidator(converter currency.Converter) *Validator {
	return &Validator{converter: converter}
}

// Evaluate runs the validity checks in a fixed order and stops at the first
// failure, so the caller always sees the highest-precedence reject reason:
//
//	active -> not started -> expired -> scope -> usage limit ->
//	per-user limit -> min order amount
//
// A valid result carries the discount, rounded to 2 decimal places in the
// coupon's currency. An error is returned only for faults (unsupported
// currency), never for a failed check.
func (v *Validator) Evaluate(coupon *model.Coupon, order model.Order, now time.Time) (model.Evaluation, error) {
	if !coupon.IsActive {
		return reject(model.RejectInactive), nil
	}

	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return reject(model.RejectNotStarted), nil
	}

	if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
		return reject(model.RejectExpired), nil
	}

	if !coupon.AppliesTo.Covers(order.Context) {
		return reject(model.RejectScopeMismatch), nil
	}

	if coupon.IsUsageLimitReached() {
		return reject(model.RejectUsageLimitReached), nil
	}

	// Guests carry no redemption history, so the per-user check only applies
	// to identified customers.
	if coupon.PerUserLimit != nil && order.CustomerID != nil &&
		order.PriorUserRedemptions >= *coupon.PerUserLimit {
		return reject(model.RejectPerUserLimit), nil
	}

	normalized, err := v.converter.Convert(order.Amount, order.Currency, coupon.Currency)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("normalize order amount: %w", err)
	}

	// The threshold is compared in the coupon's currency, after normalization.
	if normalized.LessThan(coupon.MinOrderAmount) {
		return reject(model.RejectMinOrderNotMet), nil
	}

	return model.Evaluation{
		Valid:            true,
		Discount:         computeDiscount(coupon, normalized),
		NormalizedAmount: normalized,
	}, nil
}

// computeDiscount applies the discount rule to the normalized order amount.
// The result never exceeds the order amount and never goes negative.
func computeDiscount(coupon *model.Coupon, amount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch coupon.DiscountType {
	case model.DiscountTypePercentage:
		discount = amount.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100))
		if coupon.MaxDiscountAmount != nil && discount.GreaterThan(*coupon.MaxDiscountAmount) {
			discount = *coupon.MaxDiscountAmount
		}
	case model.DiscountTypeFixed:
		discount = coupon.DiscountValue
	}

	if discount.GreaterThan(amount) {
		discount = amount
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return discount.Round(2)
}

func reject(reason model.RejectReason) model.Evaluation {
	return model.Evaluation{
		Valid:        false,
		RejectReason: reason,
		Discount:     decimal.Zero,
	}
}
