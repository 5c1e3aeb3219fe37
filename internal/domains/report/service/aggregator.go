package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	couponmodel "academy-backend/internal/domains/coupon/model"
	couponrepo "academy-backend/internal/domains/coupon/repository"
	"academy-backend/internal/domains/currency"
	redemption "academy-backend/internal/domains/redemption/model"
	redemptionrepo "academy-backend/internal/domains/redemption/repository"
	"academy-backend/internal/domains/report/model"
	"academy-backend/pkg/cache"
	"academy-backend/pkg/logger"
)

const (
	reportCacheKeyPrefix = "report:range:"
	reportCacheTTL       = 60 * time.Second

	// Warmed payloads outlive the hourly warm cron by a few minutes so the
	// dashboard never lands in the gap between two runs.
	reportWarmTTL = 65 * time.Minute
)

// ReportService computes analytics over the redemption ledger.
type ReportService interface {
	GetReport(ctx context.Context, req model.ReportRequest) (*model.Report, error)
	WarmReport(ctx context.Context, req model.ReportRequest) (*model.Report, error)
}

type reportService struct {
	ledger  redemptionrepo.Ledger
	coupons couponrepo.CouponRepository
	cache   cache.Cache
}

func NewReportService(ledger redemptionrepo.Ledger, coupons couponrepo.CouponRepository, cacheClient cache.Cache) ReportService {
	return &reportService{
		ledger:  ledger,
		coupons: coupons,
		cache:   cacheClient,
	}
}

// GetReport aggregates the ledger slice for the requested range. The ledger
// is append-only and report math is deterministic, so a short cache is safe:
// a past range always reproduces the same payload.
func (s *reportService) GetReport(ctx context.Context, req model.ReportRequest) (*model.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := reportCacheKey(req)

	if s.cache != nil {
		var cached model.Report
		if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
			return &cached, nil
		}
	}

	report, err := s.buildReport(ctx, req)
	if err != nil {
		return nil, err
	}

	s.cacheReport(ctx, key, report, reportCacheTTL)
	return report, nil
}

// WarmReport recomputes the report and overwrites the cache entry with the
// warm TTL. The cron calls this; interactive requests for the same range then
// hit the warmed payload.
func (s *reportService) WarmReport(ctx context.Context, req model.ReportRequest) (*model.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	report, err := s.buildReport(ctx, req)
	if err != nil {
		return nil, err
	}

	s.cacheReport(ctx, reportCacheKey(req), report, reportWarmTTL)
	return report, nil
}

func (s *reportService) buildReport(ctx context.Context, req model.ReportRequest) (*model.Report, error) {
	attempts, err := s.ledger.ListRange(ctx, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("load ledger range: %w", err)
	}

	return Aggregate(attempts, s.listCoupons(ctx), req), nil
}

func (s *reportService) cacheReport(ctx context.Context, key string, report *model.Report, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, report, ttl); err != nil {
		logger.Warn("failed to cache report", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func reportCacheKey(req model.ReportRequest) string {
	return fmt.Sprintf("%s%d:%d:%d",
		reportCacheKeyPrefix, req.Start.Unix(), req.End.Unix(), req.ClampedTopLimit())
}

// listCoupons loads the store snapshot used for totalCoupons and top-coupon
// enrichment. A load failure degrades to codes only and a zero coupon count.
func (s *reportService) listCoupons(ctx context.Context) []*couponmodel.Coupon {
	coupons, err := s.coupons.ListAll(ctx)
	if err != nil {
		logger.Warn("failed to load coupons for report", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return coupons
}

// -------------------------------------------------------------------
// PURE AGGREGATION
// -------------------------------------------------------------------

// Aggregate folds a ledger slice into the report payload. All amounts come in
// already normalized to the reporting currency, so aggregation is pure
// addition; no rate lookups happen here.
func Aggregate(attempts []*redemption.Attempt, coupons []*couponmodel.Coupon, req model.ReportRequest) *model.Report {
	report := &model.Report{
		Start:    req.Start,
		End:      req.End,
		Currency: currency.Reporting.String(),
		Overview: model.Overview{
			SuccessRate:     decimal.Zero,
			TotalDiscount:   decimal.Zero,
			TotalNetRevenue: decimal.Zero,
			TotalCoupons:    len(coupons),
		},
	}

	byCode := make(map[string]*couponmodel.Coupon, len(coupons))
	for _, c := range coupons {
		byCode[c.Code] = c
	}

	days := make(map[string]*model.DailyTrendEntry)
	contexts := map[string]*model.ContextBreakdown{
		"checkout": newContextBreakdown("checkout"),
		"package":  newContextBreakdown("package"),
	}
	byCoupon := make(map[string]*model.TopCoupon)

	for _, a := range attempts {
		report.Overview.TotalAttempts++

		day := dayEntry(days, a.OccurredAt)
		day.Attempts++

		breakdown := contexts[a.Context]
		if breakdown == nil {
			breakdown = newContextBreakdown(a.Context)
			contexts[a.Context] = breakdown
		}
		breakdown.Attempts++

		// Every code seen in the range gets an entry; rejected-only coupons
		// rank with zero redemptions instead of vanishing.
		top := couponEntry(byCoupon, a.CouponCode)
		top.Attempts++

		if a.Outcome != redemption.OutcomeSuccess {
			report.Overview.Rejections++
			day.Rejections++
			continue
		}

		report.Overview.Successes++
		report.Overview.TotalDiscount = report.Overview.TotalDiscount.Add(a.DiscountAmount)
		report.Overview.TotalNetRevenue = report.Overview.TotalNetRevenue.Add(a.NetRevenue)

		day.Successes++
		day.TotalDiscount = day.TotalDiscount.Add(a.DiscountAmount)
		day.NetRevenue = day.NetRevenue.Add(a.NetRevenue)

		breakdown.Successes++
		breakdown.TotalDiscount = breakdown.TotalDiscount.Add(a.DiscountAmount)
		breakdown.NetRevenue = breakdown.NetRevenue.Add(a.NetRevenue)

		top.Redemptions++
		top.TotalDiscount = top.TotalDiscount.Add(a.DiscountAmount)
		top.NetRevenue = top.NetRevenue.Add(a.NetRevenue)
	}

	report.Overview.SuccessRate = successRate(report.Overview.Successes, report.Overview.TotalAttempts)

	for _, top := range byCoupon {
		top.SuccessRate = successRate(top.Redemptions, top.Attempts)
		if top.Redemptions > 0 {
			report.Overview.UsedCoupons++
		}
		if live := byCode[top.Code]; live != nil {
			top.Name = live.Name
			top.UsageLimit = live.UsageLimit
			top.IsActive = live.IsActive
		}
	}

	report.DailyTrend = sortedDays(days)
	report.ContextBreakdown = sortedContexts(contexts)
	report.TopCoupons = rankCoupons(byCoupon, req.ClampedTopLimit())

	return report
}

// successRate is successes over attempts as a percentage, zero when there
// were no attempts.
func successRate(successes, attempts int) decimal.Decimal {
	if attempts == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(successes)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(attempts))).
		Round(2)
}

func newContextBreakdown(context string) *model.ContextBreakdown {
	return &model.ContextBreakdown{
		Context:       context,
		TotalDiscount: decimal.Zero,
		NetRevenue:    decimal.Zero,
	}
}

func couponEntry(byCoupon map[string]*model.TopCoupon, code string) *model.TopCoupon {
	top := byCoupon[code]
	if top == nil {
		top = &model.TopCoupon{
			Code:          code,
			SuccessRate:   decimal.Zero,
			TotalDiscount: decimal.Zero,
			NetRevenue:    decimal.Zero,
		}
		byCoupon[code] = top
	}
	return top
}

// dayEntry buckets by UTC calendar day regardless of the submitted timezone.
func dayEntry(days map[string]*model.DailyTrendEntry, occurredAt time.Time) *model.DailyTrendEntry {
	date := occurredAt.UTC().Format("2006-01-02")
	entry := days[date]
	if entry == nil {
		entry = &model.DailyTrendEntry{
			Date:          date,
			TotalDiscount: decimal.Zero,
			NetRevenue:    decimal.Zero,
		}
		days[date] = entry
	}
	return entry
}

func sortedDays(days map[string]*model.DailyTrendEntry) []model.DailyTrendEntry {
	out := make([]model.DailyTrendEntry, 0, len(days))
	for _, entry := range days {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

func sortedContexts(contexts map[string]*model.ContextBreakdown) []model.ContextBreakdown {
	out := make([]model.ContextBreakdown, 0, len(contexts))
	for _, breakdown := range contexts {
		out = append(out, *breakdown)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Context < out[j].Context
	})
	return out
}

// rankCoupons orders by redemptions, then net revenue, then code so the
// ranking is total and reproducible.
func rankCoupons(byCoupon map[string]*model.TopCoupon, limit int) []model.TopCoupon {
	out := make([]model.TopCoupon, 0, len(byCoupon))
	for _, top := range byCoupon {
		out = append(out, *top)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Redemptions != out[j].Redemptions {
			return out[i].Redemptions > out[j].Redemptions
		}
		if !out[i].NetRevenue.Equal(out[j].NetRevenue) {
			return out[i].NetRevenue.GreaterThan(out[j].NetRevenue)
		}
		return out[i].Code < out[j].Code
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
