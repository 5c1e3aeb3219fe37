package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// Top-coupon list bounds. A request outside the range is clamped, not
// rejected.
const (
	DefaultTopLimit = 8
	MinTopLimit     = 1
	MaxTopLimit     = 50
)

// ReportRequest selects the ledger slice a report is computed over.
// Start and End are inclusive.
type ReportRequest struct {
	Start    time.Time
	End      time.Time
	TopLimit int
}

func (r ReportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Start, validation.Required),
		validation.Field(&r.End, validation.Required, validation.By(func(interface{}) error {
			if r.End.Before(r.Start) {
				return validation.NewError("validation_range", "end must not be before start")
			}
			return nil
		})),
	)
}

// ClampedTopLimit returns the effective top-coupon list size.
func (r ReportRequest) ClampedTopLimit() int {
	switch {
	case r.TopLimit == 0:
		return DefaultTopLimit
	case r.TopLimit < MinTopLimit:
		return MinTopLimit
	case r.TopLimit > MaxTopLimit:
		return MaxTopLimit
	}
	return r.TopLimit
}

// Overview is the headline totals for the requested range. Amounts are in the
// reporting currency. UsedCoupons counts distinct codes with at least one
// success in the range; TotalCoupons counts every coupon known to the store,
// active or not.
type Overview struct {
	TotalAttempts   int             `json:"total_attempts"`
	Successes       int             `json:"successes"`
	Rejections      int             `json:"rejections"`
	SuccessRate     decimal.Decimal `json:"success_rate"` // percentage, 0..100
	TotalDiscount   decimal.Decimal `json:"total_discount"`
	TotalNetRevenue decimal.Decimal `json:"total_net_revenue"`
	UsedCoupons     int             `json:"used_coupons"`
	TotalCoupons    int             `json:"total_coupons"`
}

// DailyTrendEntry is one UTC calendar day with at least one attempt. Days
// without activity are omitted.
type DailyTrendEntry struct {
	Date          string          `json:"date"` // YYYY-MM-DD, UTC
	Attempts      int             `json:"attempts"`
	Successes     int             `json:"successes"`
	Rejections    int             `json:"rejections"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	NetRevenue    decimal.Decimal `json:"net_revenue"`
}

// ContextBreakdown splits the totals by where redemptions happened.
type ContextBreakdown struct {
	Context       string          `json:"context"`
	Attempts      int             `json:"attempts"`
	Successes     int             `json:"successes"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	NetRevenue    decimal.Decimal `json:"net_revenue"`
}

// TopCoupon ranks a coupon by successful redemptions. Every code seen in the
// range appears, including codes with only rejected attempts. Name, UsageLimit
// and IsActive are enriched from the live coupon; a coupon that no longer
// exists keeps an empty name, nil limit and false active flag.
type TopCoupon struct {
	Code          string          `json:"code"`
	Name          string          `json:"name,omitempty"`
	Attempts      int             `json:"attempts"`
	Redemptions   int             `json:"redemptions"`
	SuccessRate   decimal.Decimal `json:"success_rate"` // percentage, 0..100
	TotalDiscount decimal.Decimal `json:"total_discount"`
	NetRevenue    decimal.Decimal `json:"net_revenue"`
	UsageLimit    *int            `json:"usage_limit"`
	IsActive      bool            `json:"is_active"`
}

// Report is the full analytics payload for one range.
type Report struct {
	Start            time.Time          `json:"start"`
	End              time.Time          `json:"end"`
	Currency         string             `json:"currency"`
	Overview         Overview           `json:"overview"`
	DailyTrend       []DailyTrendEntry  `json:"daily_trend"`
	ContextBreakdown []ContextBreakdown `json:"context_breakdown"`
	TopCoupons       []TopCoupon        `json:"top_coupons"`
}
