package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"academy-backend/internal/domains/currency"
)

// Outcome is the terminal result of a redemption attempt.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
)

// Attempt is one immutable ledger row: a redemption attempt that reached the
// commit stage, success or rejected. Rows are never updated or deleted, and
// the amounts are normalized into the reporting currency at write time with
// the rate snapshot recorded, so historical reports never drift when rates
// change.
type Attempt struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	CouponCode string     `json:"coupon_code" db:"coupon_code"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty" db:"customer_id"` // nil for guests
	OrderID    uuid.UUID  `json:"order_id" db:"order_id"`
	Context    string     `json:"context" db:"context"` // checkout | package

	// Order amount as submitted, in its own currency.
	OrderAmount   decimal.Decimal   `json:"order_amount" db:"order_amount"`
	OrderCurrency currency.Currency `json:"order_currency" db:"order_currency"`

	// Normalized amounts, in the reporting currency. Zero for rejected rows.
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	NetRevenue     decimal.Decimal `json:"net_revenue" db:"net_revenue"`
	RateSnapshot   string          `json:"rate_snapshot" db:"rate_snapshot"`

	Outcome      Outcome   `json:"outcome" db:"outcome"`
	RejectReason *string   `json:"reject_reason,omitempty" db:"reject_reason"`
	OccurredAt   time.Time `json:"occurred_at" db:"occurred_at"`
}
