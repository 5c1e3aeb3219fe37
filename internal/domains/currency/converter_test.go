package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) *RateTable {
	t.Helper()

	table, err := NewRateTable("rates-2026-08", map[Currency]decimal.Decimal{
		USD: decimal.NewFromFloat(48.0),
		SAR: decimal.NewFromFloat(12.8),
	})
	require.NoError(t, err)
	return table
}

func TestParse(t *testing.T) {
	c, err := Parse(" egp ")
	require.NoError(t, err)
	assert.Equal(t, EGP, c)

	_, err = Parse("VND")
	assert.Error(t, err)
}

func TestConvert_SameCurrency(t *testing.T) {
	table := newTestTable(t)

	amount := decimal.NewFromInt(250)
	got, err := table.Convert(amount, SAR, SAR)
	require.NoError(t, err)
	assert.True(t, got.Equal(amount))
}

func TestConvert_ToReporting(t *testing.T) {
	table := newTestTable(t)

	got, err := table.Convert(decimal.NewFromInt(10), USD, EGP)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(480)), "got %s", got)
}

func TestConvert_CrossRate(t *testing.T) {
	table := newTestTable(t)

	// 128 SAR -> EGP (1638.4) -> USD
	got, err := table.Convert(decimal.NewFromInt(128), SAR, USD)
	require.NoError(t, err)
	assert.True(t, got.Round(4).Equal(decimal.NewFromFloat(34.1333)), "got %s", got)
}

func TestNewRateTable_RejectsBadRates(t *testing.T) {
	_, err := NewRateTable("snap", map[Currency]decimal.Decimal{
		USD: decimal.Zero,
	})
	assert.Error(t, err)

	_, err = NewRateTable("", map[Currency]decimal.Decimal{
		USD: decimal.NewFromInt(48),
	})
	assert.Error(t, err)
}
