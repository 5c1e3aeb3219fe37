package currency

import (
	"fmt"
	"strings"
)

// Currency is a closed set of supported currencies. Amounts are always paired
// with one of these; free-form currency strings are rejected at the boundary.
type Currency string

const (
	EGP Currency = "EGP"
	SAR Currency = "SAR"
	USD Currency = "USD"
)

// Reporting is the currency every ledger amount is normalized into at write
// time.
const Reporting = EGP

func (c Currency) IsValid() bool {
	switch c {
	case EGP, SAR, USD:
		return true
	}
	return false
}

func (c Currency) String() string {
	return string(c)
}

// Parse converts a string (any case) into a Currency.
func Parse(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", s)
	}
	return c, nil
}
