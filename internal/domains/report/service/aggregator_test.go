package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	couponmodel "academy-backend/internal/domains/coupon/model"
	couponrepo "academy-backend/internal/domains/coupon/repository"
	"academy-backend/internal/domains/currency"
	redemption "academy-backend/internal/domains/redemption/model"
	redemptionrepo "academy-backend/internal/domains/redemption/repository"
	"academy-backend/internal/domains/report/model"
)

func rangeReq(start, end time.Time) model.ReportRequest {
	return model.ReportRequest{Start: start, End: end}
}

func successAt(code, context string, at time.Time, discount, netRevenue float64) *redemption.Attempt {
	return &redemption.Attempt{
		ID:             uuid.New(),
		CouponCode:     code,
		OrderID:        uuid.New(),
		Context:        context,
		OrderAmount:    decimal.NewFromFloat(netRevenue + discount),
		OrderCurrency:  currency.EGP,
		DiscountAmount: decimal.NewFromFloat(discount),
		NetRevenue:     decimal.NewFromFloat(netRevenue),
		RateSnapshot:   "test-rates",
		Outcome:        redemption.OutcomeSuccess,
		OccurredAt:     at,
	}
}

func rejectedAt(code, context string, at time.Time) *redemption.Attempt {
	reason := "USAGE_LIMIT_REACHED"
	return &redemption.Attempt{
		ID:             uuid.New(),
		CouponCode:     code,
		OrderID:        uuid.New(),
		Context:        context,
		OrderAmount:    decimal.NewFromInt(100),
		OrderCurrency:  currency.EGP,
		DiscountAmount: decimal.Zero,
		NetRevenue:     decimal.Zero,
		RateSnapshot:   "test-rates",
		Outcome:        redemption.OutcomeRejected,
		RejectReason:   &reason,
		OccurredAt:     at,
	}
}

func liveCoupon(code, name string, usageLimit *int, isActive bool) *couponmodel.Coupon {
	return &couponmodel.Coupon{
		Code:       code,
		Name:       name,
		UsageLimit: usageLimit,
		IsActive:   isActive,
	}
}

func intPtr(v int) *int {
	return &v
}

func TestAggregate_Overview(t *testing.T) {
	day := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	attempts := []*redemption.Attempt{
		successAt("SUMMER", "checkout", day, 50, 450),
		successAt("SUMMER", "checkout", day.Add(time.Hour), 30, 270),
		successAt("LAUNCH", "package", day.Add(2*time.Hour), 100, 900),
		rejectedAt("SUMMER", "checkout", day.Add(3*time.Hour)),
	}
	coupons := []*couponmodel.Coupon{
		liveCoupon("SUMMER", "Summer sale", nil, true),
		liveCoupon("LAUNCH", "Launch promo", nil, true),
		liveCoupon("UNUSED", "Never used", nil, false),
	}

	report := Aggregate(attempts, coupons, rangeReq(day, day.Add(24*time.Hour)))

	assert.Equal(t, 4, report.Overview.TotalAttempts)
	assert.Equal(t, 3, report.Overview.Successes)
	assert.Equal(t, 1, report.Overview.Rejections)
	assert.Equal(t, "75", report.Overview.SuccessRate.String())
	assert.Equal(t, "180.00", report.Overview.TotalDiscount.StringFixed(2))
	assert.Equal(t, "1620.00", report.Overview.TotalNetRevenue.StringFixed(2))
	assert.Equal(t, 2, report.Overview.UsedCoupons, "SUMMER and LAUNCH had successes")
	assert.Equal(t, 3, report.Overview.TotalCoupons, "every coupon in the store counts")
	assert.Equal(t, "EGP", report.Currency)
}

// 3 successes and 2 rejections make a 60% success rate.
func TestAggregate_SuccessRateIsPercentage(t *testing.T) {
	day := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	attempts := []*redemption.Attempt{
		successAt("SAVE20", "checkout", day, 20, 180),
		successAt("SAVE20", "checkout", day, 20, 180),
		successAt("SAVE20", "checkout", day, 20, 180),
		rejectedAt("SAVE20", "checkout", day),
		rejectedAt("SAVE20", "checkout", day),
	}

	report := Aggregate(attempts, nil, rangeReq(day.AddDate(0, 0, -1), day.AddDate(0, 0, 6)))

	assert.Equal(t, "60", report.Overview.SuccessRate.String())
	require.Len(t, report.DailyTrend, 1)
	assert.Equal(t, 3, report.DailyTrend[0].Successes)
}

func TestAggregate_EmptyRange(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	report := Aggregate(nil, nil, rangeReq(start, start.Add(24*time.Hour)))

	assert.Equal(t, 0, report.Overview.TotalAttempts)
	assert.True(t, report.Overview.SuccessRate.IsZero())
	assert.Equal(t, 0, report.Overview.UsedCoupons)
	assert.Empty(t, report.DailyTrend)
	assert.Empty(t, report.TopCoupons)
	// The context split still lists both contexts with zero counts.
	require.Len(t, report.ContextBreakdown, 2)
	assert.Equal(t, "checkout", report.ContextBreakdown[0].Context)
	assert.Equal(t, "package", report.ContextBreakdown[1].Context)
}

// Days are bucketed by UTC calendar day, and days without activity are not
// emitted.
func TestAggregate_DailyTrend(t *testing.T) {
	// 23:30 on Aug 10 in UTC-3 is 02:30 on Aug 11 UTC.
	offset := time.FixedZone("UTC-3", -3*60*60)
	lateEvening := time.Date(2026, 8, 10, 23, 30, 0, 0, offset)

	attempts := []*redemption.Attempt{
		successAt("SUMMER", "checkout", time.Date(2026, 8, 8, 10, 0, 0, 0, time.UTC), 10, 90),
		successAt("SUMMER", "checkout", lateEvening, 20, 180),
		rejectedAt("SUMMER", "checkout", time.Date(2026, 8, 11, 15, 0, 0, 0, time.UTC)),
	}

	report := Aggregate(attempts, nil, rangeReq(
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC),
	))

	require.Len(t, report.DailyTrend, 2, "Aug 9 and 10 had no activity")

	assert.Equal(t, "2026-08-08", report.DailyTrend[0].Date)
	assert.Equal(t, 1, report.DailyTrend[0].Successes)

	assert.Equal(t, "2026-08-11", report.DailyTrend[1].Date)
	assert.Equal(t, 2, report.DailyTrend[1].Attempts)
	assert.Equal(t, 1, report.DailyTrend[1].Successes)
	assert.Equal(t, 1, report.DailyTrend[1].Rejections)
	assert.Equal(t, "20.00", report.DailyTrend[1].TotalDiscount.StringFixed(2))
}

func TestAggregate_ContextBreakdown(t *testing.T) {
	day := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	attempts := []*redemption.Attempt{
		successAt("SUMMER", "checkout", day, 50, 450),
		rejectedAt("SUMMER", "checkout", day),
		successAt("LAUNCH", "package", day, 100, 900),
	}

	report := Aggregate(attempts, nil, rangeReq(day, day.Add(24*time.Hour)))

	require.Len(t, report.ContextBreakdown, 2)

	checkout := report.ContextBreakdown[0]
	assert.Equal(t, "checkout", checkout.Context)
	assert.Equal(t, 2, checkout.Attempts)
	assert.Equal(t, 1, checkout.Successes)
	assert.Equal(t, "50.00", checkout.TotalDiscount.StringFixed(2))

	pkg := report.ContextBreakdown[1]
	assert.Equal(t, "package", pkg.Context)
	assert.Equal(t, 1, pkg.Attempts)
	assert.Equal(t, "900.00", pkg.NetRevenue.StringFixed(2))
}

func TestAggregate_TopCouponsRanking(t *testing.T) {
	day := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	attempts := []*redemption.Attempt{
		// ALPHA: 2 redemptions, 500 net revenue, plus 1 rejection.
		successAt("ALPHA", "checkout", day, 10, 200),
		successAt("ALPHA", "checkout", day, 10, 300),
		rejectedAt("ALPHA", "checkout", day),
		// BRAVO: 2 redemptions, 700 net revenue. Wins the tie on revenue.
		successAt("BRAVO", "checkout", day, 10, 350),
		successAt("BRAVO", "checkout", day, 10, 350),
		// CHARLIE: 3 redemptions, leads outright.
		successAt("CHARLIE", "package", day, 5, 50),
		successAt("CHARLIE", "package", day, 5, 50),
		successAt("CHARLIE", "package", day, 5, 50),
	}
	coupons := []*couponmodel.Coupon{
		liveCoupon("ALPHA", "Alpha promo", intPtr(100), true),
		liveCoupon("CHARLIE", "Charlie promo", nil, false),
	}

	report := Aggregate(attempts, coupons, rangeReq(day, day.Add(24*time.Hour)))

	require.Len(t, report.TopCoupons, 3)

	charlie := report.TopCoupons[0]
	assert.Equal(t, "CHARLIE", charlie.Code)
	assert.Equal(t, "Charlie promo", charlie.Name)
	assert.Equal(t, 3, charlie.Redemptions)
	assert.Equal(t, "100", charlie.SuccessRate.String())
	assert.Nil(t, charlie.UsageLimit)
	assert.False(t, charlie.IsActive, "enriched from the live coupon state")

	bravo := report.TopCoupons[1]
	assert.Equal(t, "BRAVO", bravo.Code)
	assert.Empty(t, bravo.Name, "unknown coupons degrade to code only")
	assert.Nil(t, bravo.UsageLimit)

	alpha := report.TopCoupons[2]
	assert.Equal(t, "ALPHA", alpha.Code)
	assert.Equal(t, 3, alpha.Attempts)
	assert.Equal(t, 2, alpha.Redemptions, "the rejection does not count as a use")
	assert.Equal(t, "66.67", alpha.SuccessRate.String())
	assert.Equal(t, "500.00", alpha.NetRevenue.StringFixed(2))
	require.NotNil(t, alpha.UsageLimit)
	assert.Equal(t, 100, *alpha.UsageLimit)
	assert.True(t, alpha.IsActive)
}

// A coupon whose every attempt in the range was rejected still shows up,
// ranked with zero redemptions.
func TestAggregate_RejectedOnlyCouponAppears(t *testing.T) {
	day := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	attempts := []*redemption.Attempt{
		successAt("WINNER", "checkout", day, 10, 90),
		rejectedAt("LOSER", "checkout", day),
		rejectedAt("LOSER", "checkout", day),
	}

	report := Aggregate(attempts, nil, rangeReq(day, day.Add(24*time.Hour)))

	require.Len(t, report.TopCoupons, 2)
	assert.Equal(t, "WINNER", report.TopCoupons[0].Code)

	loser := report.TopCoupons[1]
	assert.Equal(t, "LOSER", loser.Code)
	assert.Equal(t, 2, loser.Attempts)
	assert.Equal(t, 0, loser.Redemptions)
	assert.True(t, loser.SuccessRate.IsZero())
	assert.True(t, loser.TotalDiscount.IsZero())

	assert.Equal(t, 1, report.Overview.UsedCoupons, "only WINNER had a success")
}

func TestAggregate_TopCouponsLimit(t *testing.T) {
	day := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	var attempts []*redemption.Attempt
	codes := []string{"A1", "B2", "C3", "D4", "E5"}
	for i, code := range codes {
		for j := 0; j <= i; j++ {
			attempts = append(attempts, successAt(code, "checkout", day, 5, 95))
		}
	}

	req := rangeReq(day, day.Add(24*time.Hour))
	req.TopLimit = 2

	report := Aggregate(attempts, nil, req)

	require.Len(t, report.TopCoupons, 2)
	assert.Equal(t, "E5", report.TopCoupons[0].Code)
	assert.Equal(t, "D4", report.TopCoupons[1].Code)
}

func TestReportRequest_ClampedTopLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, model.DefaultTopLimit},
		{-5, model.MinTopLimit},
		{1, 1},
		{25, 25},
		{50, 50},
		{500, model.MaxTopLimit},
	}

	for _, tt := range tests {
		req := model.ReportRequest{TopLimit: tt.in}
		assert.Equal(t, tt.want, req.ClampedTopLimit(), "limit %d", tt.in)
	}
}

func TestReportRequest_Validate(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, model.ReportRequest{Start: start, End: start.Add(time.Hour)}.Validate())
	assert.NoError(t, model.ReportRequest{Start: start, End: start}.Validate(), "single-instant range is allowed")
	assert.Error(t, model.ReportRequest{Start: start, End: start.Add(-time.Hour)}.Validate())
	assert.Error(t, model.ReportRequest{End: start}.Validate(), "start is required")
}

// The overview must agree with the daily trend: same ledger, two views.
func TestAggregate_OverviewMatchesDailyTrend(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var attempts []*redemption.Attempt
	for i := 0; i < 10; i++ {
		attempts = append(attempts, successAt("SUMMER", "checkout", base.AddDate(0, 0, i%4), 10, 90))
	}
	attempts = append(attempts, rejectedAt("SUMMER", "checkout", base))

	report := Aggregate(attempts, nil, rangeReq(base, base.AddDate(0, 0, 7)))

	var successes, rejections int
	total := decimal.Zero
	for _, day := range report.DailyTrend {
		successes += day.Successes
		rejections += day.Rejections
		total = total.Add(day.NetRevenue)
	}

	assert.Equal(t, report.Overview.Successes, successes)
	assert.Equal(t, report.Overview.Rejections, rejections)
	assert.True(t, report.Overview.TotalNetRevenue.Equal(total))
}

// -------------------------------------------------------------------
// SERVICE-LEVEL (CACHING)
// -------------------------------------------------------------------

type stubLedger struct {
	redemptionrepo.Ledger
	attempts  []*redemption.Attempt
	listCalls int
}

func (s *stubLedger) ListRange(ctx context.Context, start, end time.Time) ([]*redemption.Attempt, error) {
	s.listCalls++
	return s.attempts, nil
}

type stubCouponStore struct {
	couponrepo.CouponRepository
	coupons []*couponmodel.Coupon
}

func (s *stubCouponStore) ListAll(ctx context.Context) ([]*couponmodel.Coupon, error) {
	return s.coupons, nil
}

type memCache struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	c.ttls[key] = ttl
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.entries, key)
		delete(c.ttls, key)
	}
	return nil
}

func (c *memCache) Ping(ctx context.Context) error {
	return nil
}

// A warmed range must survive past the interactive TTL and serve subsequent
// report requests without rescanning the ledger.
func TestReportService_WarmReportPrimesCache(t *testing.T) {
	day := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	ledger := &stubLedger{attempts: []*redemption.Attempt{
		successAt("SUMMER", "checkout", day, 50, 450),
		rejectedAt("SUMMER", "checkout", day),
	}}
	store := &stubCouponStore{coupons: []*couponmodel.Coupon{
		liveCoupon("SUMMER", "Summer sale", nil, true),
	}}
	cacheClient := newMemCache()

	svc := NewReportService(ledger, store, cacheClient)
	req := rangeReq(day.AddDate(0, 0, -29), day.Add(24*time.Hour))

	warmed, err := svc.WarmReport(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.listCalls)

	key := reportCacheKey(req)
	assert.Equal(t, reportWarmTTL, cacheClient.ttls[key])
	assert.Greater(t, reportWarmTTL, reportCacheTTL)

	got, err := svc.GetReport(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.listCalls, "served from the warmed cache")
	assert.Equal(t, warmed.Overview.TotalAttempts, got.Overview.TotalAttempts)
	assert.Equal(t, warmed.Overview.SuccessRate.String(), got.Overview.SuccessRate.String())
}
