package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"academy-backend/internal/domains/currency"
)

// DiscountType represents valid discount types
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

func (dt DiscountType) IsValid() bool {
	switch dt {
	case DiscountTypePercentage, DiscountTypeFixed:
		return true
	}
	return false
}

func (dt DiscountType) String() string {
	return string(dt)
}

// Context is where a redemption happens: a course checkout or a package
// purchase.
type Context string

const (
	ContextCheckout Context = "checkout"
	ContextPackage  Context = "package"
)

func (c Context) IsValid() bool {
	switch c {
	case ContextCheckout, ContextPackage:
		return true
	}
	return false
}

// Scope controls which contexts a coupon may be used in. A closed set, so the
// validator's scope check is exhaustive.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeCheckout Scope = "checkout"
	ScopePackage  Scope = "package"
)

func (s Scope) IsValid() bool {
	switch s {
	case ScopeAll, ScopeCheckout, ScopePackage:
		return true
	}
	return false
}

// Covers reports whether the scope admits the given order context.
func (s Scope) Covers(ctx Context) bool {
	return s == ScopeAll || string(s) == string(ctx)
}

// Coupon is a named discount rule with a validity window, usage limits, and
// scope. Identity is the code, stored upper-cased and matched
// case-insensitively.
type Coupon struct {
	Code string `json:"code" db:"code"`
	Name string `json:"name" db:"name"`

	// Discount configuration
	DiscountType      DiscountType     `json:"discount_type" db:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value" db:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty" db:"max_discount_amount"`

	// Conditions
	MinOrderAmount decimal.Decimal   `json:"min_order_amount" db:"min_order_amount"`
	Currency       currency.Currency `json:"currency" db:"currency"`
	AppliesTo      Scope             `json:"applies_to" db:"applies_to"`

	// Usage limits. UsageCount only ever moves through the store's atomic
	// commit; it is never written from a snapshot.
	UsageLimit   *int `json:"usage_limit,omitempty" db:"usage_limit"`
	PerUserLimit *int `json:"per_user_limit,omitempty" db:"per_user_limit"`
	UsageCount   int  `json:"usage_count" db:"usage_count"`

	// Validity window, inclusive on both ends. Nil means unbounded.
	StartsAt  *time.Time `json:"starts_at,omitempty" db:"starts_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NormalizeCode upper-cases and trims a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsUsageLimitReached checks the global cap against the snapshot counter.
func (c *Coupon) IsUsageLimitReached() bool {
	if c.UsageLimit == nil {
		return false
	}
	return c.UsageCount >= *c.UsageLimit
}

// RemainingUses returns the remaining global uses, or nil when unlimited.
func (c *Coupon) RemainingUses() *int {
	if c.UsageLimit == nil {
		return nil
	}
	remaining := *c.UsageLimit - c.UsageCount
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// Validate checks the rule fields an operator may set.
func (c *Coupon) Validate() error {
	if !c.DiscountType.IsValid() {
		return ErrInvalidDiscountType
	}

	if c.DiscountValue.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidDiscountValue
	}

	if c.DiscountType == DiscountTypePercentage &&
		c.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return ErrPercentageTooHigh
	}

	if c.MinOrderAmount.LessThan(decimal.Zero) {
		return ErrInvalidMinOrderAmount
	}

	if !c.Currency.IsValid() {
		return ErrInvalidCurrency
	}

	if !c.AppliesTo.IsValid() {
		return ErrInvalidScope
	}

	if c.UsageLimit != nil && *c.UsageLimit <= 0 {
		return ErrInvalidUsageLimit
	}

	if c.PerUserLimit != nil && *c.PerUserLimit <= 0 {
		return ErrInvalidUsageLimit
	}

	if c.StartsAt != nil && c.ExpiresAt != nil && !c.ExpiresAt.After(*c.StartsAt) {
		return ErrInvalidDateRange
	}

	return nil
}

// Order is the context a coupon is evaluated against: the amount being paid,
// its currency, where the purchase happens, and who is paying.
type Order struct {
	OrderID    uuid.UUID
	Amount     decimal.Decimal
	Currency   currency.Currency
	Context    Context
	CustomerID *uuid.UUID // nil for guests

	// PriorUserRedemptions is this customer's successful redemption count for
	// the coupon, looked up before evaluation. Zero for guests.
	PriorUserRedemptions int
}

// Evaluation is the outcome of the pure validity check. Discount and
// NormalizedAmount are in the coupon's currency; Discount is already rounded
// to 2 decimal places.
type Evaluation struct {
	Valid            bool
	RejectReason     RejectReason
	Discount         decimal.Decimal
	NormalizedAmount decimal.Decimal
}

// CommitOutcome is the result of the store's atomic redemption commit.
type CommitOutcome struct {
	Committed      bool
	ConflictReason RejectReason
}
