package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy-backend/internal/domains/coupon/model"
	"academy-backend/internal/domains/currency"
)

func testConverter(t *testing.T) currency.Converter {
	t.Helper()
	table, err := currency.NewRateTable("2026-08-rates", map[currency.Currency]decimal.Decimal{
		currency.USD: decimal.NewFromInt(48),
		currency.SAR: decimal.NewFromFloat(12.8),
	})
	require.NoError(t, err)
	return table
}

func activeCoupon() *model.Coupon {
	return &model.Coupon{
		Code:           "WELCOME10",
		Name:           "Welcome discount",
		DiscountType:   model.DiscountTypePercentage,
		DiscountValue:  decimal.NewFromInt(10),
		MinOrderAmount: decimal.Zero,
		Currency:       currency.EGP,
		AppliesTo:      model.ScopeAll,
		IsActive:       true,
	}
}

func orderFor(amount float64, cur currency.Currency, ctx model.Context) model.Order {
	return model.Order{
		OrderID:  uuid.New(),
		Amount:   decimal.NewFromFloat(amount),
		Currency: cur,
		Context:  ctx,
	}
}

func TestEvaluate_PercentageDiscount(t *testing.T) {
	v := NewValidator(testConverter(t))
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	eval, err := v.Evaluate(activeCoupon(), orderFor(500, currency.EGP, model.ContextCheckout), now)

	require.NoError(t, err)
	assert.True(t, eval.Valid)
	assert.True(t, eval.Discount.Equal(decimal.NewFromInt(50)), "got %s", eval.Discount)
	assert.True(t, eval.NormalizedAmount.Equal(decimal.NewFromInt(500)))
}

func TestEvaluate_PercentageCapClamps(t *testing.T) {
	v := NewValidator(testConverter(t))
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	coupon := activeCoupon()
	cap := decimal.NewFromInt(40)
	coupon.MaxDiscountAmount = &cap

	eval, err := v.Evaluate(coupon, orderFor(500, currency.EGP, model.ContextCheckout), now)

	require.NoError(t, err)
	assert.True(t, eval.Valid)
	assert.True(t, eval.Discount.Equal(cap), "got %s", eval.Discount)
}

func TestEvaluate_FixedDiscountNeverExceedsOrder(t *testing.T) {
	v := NewValidator(testConverter(t))
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	coupon := activeCoupon()
	coupon.DiscountType = model.DiscountTypeFixed
	coupon.DiscountValue = decimal.NewFromInt(100)

	eval, err := v.Evaluate(coupon, orderFor(60, currency.EGP, model.ContextCheckout), now)

	require.NoError(t, err)
	assert.True(t, eval.Valid)
	assert.True(t, eval.Discount.Equal(decimal.NewFromInt(60)), "got %s", eval.Discount)
}

func TestEvaluate_DiscountRoundedToTwoPlaces(t *testing.T) {
	v := NewValidator(testConverter(t))
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	coupon := activeCoupon()
	coupon.DiscountValue = decimal.NewFromFloat(12.5)

	// 12.5% of 33.33 = 4.16625 -> 4.17
	eval, err := v.Evaluate(coupon, orderFor(33.33, currency.EGP, model.ContextCheckout), now)

	require.NoError(t, err)
	assert.True(t, eval.Valid)
	assert.Equal(t, "4.17", eval.Discount.StringFixed(2))
}

func TestEvaluate_CrossCurrencyMinOrder(t *testing.T) {
	v := NewValidator(testConverter(t))
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	coupon := activeCoupon()
	coupon.MinOrderAmount = decimal.NewFromInt(400)

	// 10 USD = 480 EGP, clears a 400 EGP threshold.
	eval, err := v.Evaluate(coupon, orderFor(10, currency.USD, model.ContextCheckout), now)
	require.NoError(t, err)
	assert.True(t, eval.Valid)
	assert.True(t, eval.NormalizedAmount.Equal(decimal.NewFromInt(480)), "got %s", eval.NormalizedAmount)

	// 30 SAR = 384 EGP, does not.
	eval, err = v.Evaluate(coupon, orderFor(30, currency.SAR, model.ContextCheckout), now)
	require.NoError(t, err)
	assert.False(t, eval.Valid)
	assert.Equal(t, model.RejectMinOrderNotMet, eval.RejectReason)
}

func TestEvaluate_RejectReasons(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)
	limit := 5
	customerID := uuid.New()

	tests := []struct {
		name   string
		mutate func(*model.Coupon)
		order  func() model.Order
		want   model.RejectReason
	}{
		{
			name:   "inactive",
			mutate: func(c *model.Coupon) { c.IsActive = false },
			order:  func() model.Order { return orderFor(100, currency.EGP, model.ContextCheckout) },
			want:   model.RejectInactive,
		},
		{
			name:   "not started",
			mutate: func(c *model.Coupon) { c.StartsAt = &future },
			order:  func() model.Order { return orderFor(100, currency.EGP, model.ContextCheckout) },
			want:   model.RejectNotStarted,
		},
		{
			name:   "expired",
			mutate: func(c *model.Coupon) { c.ExpiresAt = &past },
			order:  func() model.Order { return orderFor(100, currency.EGP, model.ContextCheckout) },
			want:   model.RejectExpired,
		},
		{
			name:   "scope mismatch",
			mutate: func(c *model.Coupon) { c.AppliesTo = model.ScopePackage },
			order:  func() model.Order { return orderFor(100, currency.EGP, model.ContextCheckout) },
			want:   model.RejectScopeMismatch,
		},
		{
			name: "usage limit reached",
			mutate: func(c *model.Coupon) {
				c.UsageLimit = &limit
				c.UsageCount = 5
			},
			order: func() model.Order { return orderFor(100, currency.EGP, model.ContextCheckout) },
			want:  model.RejectUsageLimitReached,
		},
		{
			name:   "per-user limit reached",
			mutate: func(c *model.Coupon) { c.PerUserLimit = &limit },
			order: func() model.Order {
				o := orderFor(100, currency.EGP, model.ContextCheckout)
				o.CustomerID = &customerID
				o.PriorUserRedemptions = 5
				return o
			},
			want: model.RejectPerUserLimit,
		},
		{
			name:   "min order not met",
			mutate: func(c *model.Coupon) { c.MinOrderAmount = decimal.NewFromInt(500) },
			order:  func() model.Order { return orderFor(100, currency.EGP, model.ContextCheckout) },
			want:   model.RejectMinOrderNotMet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(testConverter(t))
			coupon := activeCoupon()
			tt.mutate(coupon)

			eval, err := v.Evaluate(coupon, tt.order(), now)

			require.NoError(t, err)
			assert.False(t, eval.Valid)
			assert.Equal(t, tt.want, eval.RejectReason)
			assert.True(t, eval.Discount.IsZero())
		})
	}
}

// The check order decides which reason wins when several apply at once.
func TestEvaluate_FirstFailureWins(t *testing.T) {
	v := NewValidator(testConverter(t))
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)

	coupon := activeCoupon()
	coupon.IsActive = false
	coupon.ExpiresAt = &past
	coupon.AppliesTo = model.ScopePackage

	eval, err := v.Evaluate(coupon, orderFor(100, currency.EGP, model.ContextCheckout), now)

	require.NoError(t, err)
	assert.Equal(t, model.RejectInactive, eval.RejectReason)
}

// Guests have no redemption history, so a per-user cap cannot block them at
// evaluation time.
func TestEvaluate_GuestSkipsPerUserLimit(t *testing.T) {
	v := NewValidator(testConverter(t))
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	limit := 1

	coupon := activeCoupon()
	coupon.PerUserLimit = &limit

	order := orderFor(100, currency.EGP, model.ContextCheckout)
	order.CustomerID = nil
	order.PriorUserRedemptions = 0

	eval, err := v.Evaluate(coupon, order, now)

	require.NoError(t, err)
	assert.True(t, eval.Valid)
}

// The validity window is inclusive on both ends.
func TestEvaluate_WindowBoundaries(t *testing.T) {
	v := NewValidator(testConverter(t))
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)

	coupon := activeCoupon()
	coupon.StartsAt = &start
	coupon.ExpiresAt = &end

	eval, err := v.Evaluate(coupon, orderFor(100, currency.EGP, model.ContextCheckout), start)
	require.NoError(t, err)
	assert.True(t, eval.Valid, "starts_at itself is inside the window")

	eval, err = v.Evaluate(coupon, orderFor(100, currency.EGP, model.ContextCheckout), end)
	require.NoError(t, err)
	assert.True(t, eval.Valid, "expires_at itself is inside the window")

	eval, err = v.Evaluate(coupon, orderFor(100, currency.EGP, model.ContextCheckout), end.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, model.RejectExpired, eval.RejectReason)
}

func TestEvaluate_ScopeAllCoversBothContexts(t *testing.T) {
	v := NewValidator(testConverter(t))
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	for _, ctx := range []model.Context{model.ContextCheckout, model.ContextPackage} {
		eval, err := v.Evaluate(activeCoupon(), orderFor(100, currency.EGP, ctx), now)
		require.NoError(t, err)
		assert.True(t, eval.Valid, "scope all should cover %s", ctx)
	}
}
