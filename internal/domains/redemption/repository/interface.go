package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"academy-backend/internal/domains/redemption/model"
)

// Ledger is the append-only store of redemption attempts.
type Ledger interface {
	// Append durably writes one attempt row. It must not fail silently: the
	// caller aborts or escalates when the append fails.
	Append(ctx context.Context, attempt *model.Attempt) error

	// FindSuccessByOrderID returns the success row recorded for an order, or
	// nil when none exists. Used for idempotent redeems.
	FindSuccessByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Attempt, error)

	// ListRange returns all attempts with occurred_at in [start, end],
	// inclusive, ordered by occurred_at.
	ListRange(ctx context.Context, start, end time.Time) ([]*model.Attempt, error)

	// CountUserSuccesses counts success rows for a (coupon, customer) pair.
	CountUserSuccesses(ctx context.Context, couponCode string, customerID uuid.UUID) (int, error)
}
