package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Converter converts amounts between supported currencies using one rate
// snapshot. Conversions are deterministic for a given snapshot, and the
// snapshot id is recorded on every redemption so historical reports never
// drift when rates change.
type Converter interface {
	Convert(amount decimal.Decimal, from, to Currency) (decimal.Decimal, error)
	SnapshotID() string
}

// RateTable is a Converter backed by a static table of rates into EGP.
// Rates[c] answers: one unit of c is worth how many EGP.
type RateTable struct {
	rates      map[Currency]decimal.Decimal
	snapshotID string
}

// NewRateTable builds a converter from per-currency rates into EGP.
// EGP itself is pinned to 1 regardless of the input.
func NewRateTable(snapshotID string, rates map[Currency]decimal.Decimal) (*RateTable, error) {
	if snapshotID == "" {
		return nil, fmt.Errorf("rate snapshot id is required")
	}

	table := make(map[Currency]decimal.Decimal, len(rates)+1)
	table[EGP] = decimal.NewFromInt(1)

	for c, rate := range rates {
		if !c.IsValid() {
			return nil, fmt.Errorf("unsupported currency %q in rate table", c)
		}
		if rate.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("rate for %s must be positive, got %s", c, rate)
		}
		if c == EGP {
			continue
		}
		table[c] = rate
	}

	return &RateTable{rates: table, snapshotID: snapshotID}, nil
}

// Convert moves amount from one currency to another through the EGP rates.
func (t *RateTable) Convert(amount decimal.Decimal, from, to Currency) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	fromRate, ok := t.rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for currency %s in snapshot %s", from, t.snapshotID)
	}

	toRate, ok := t.rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for currency %s in snapshot %s", to, t.snapshotID)
	}

	return amount.Mul(fromRate).Div(toRate), nil
}

func (t *RateTable) SnapshotID() string {
	return t.snapshotID
}
