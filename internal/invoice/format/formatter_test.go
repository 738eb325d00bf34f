package format

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber_Schemes(t *testing.T) {
	issuedAt := time.Date(2025, 3, 7, 15, 4, 0, 0, time.UTC)

	cases := []struct {
		scheme NumberScheme
		seq    int64
		want   string
	}{
		{SchemeDateSequential, 1, "20250307-001"},
		{SchemeYearMonthSequential, 1, "2503-001"},
		{SchemeSequential, 1, "001"},
		{SchemeDateOnly, 1, "20250307"},
		{SchemeSequential, 42, "042"},
		{SchemeSequential, 1234, "1234"},
		{SchemeDateSequential, 100000, "20250307-100000"},
	}

	for _, tc := range cases {
		got, err := FormatNumber(tc.scheme, tc.seq, issuedAt)
		require.NoError(t, err, tc.scheme)
		assert.Equal(t, tc.want, got, tc.scheme)
	}
}

func TestFormatNumber_DateSequentialExample(t *testing.T) {
	got, err := FormatNumber(SchemeDateSequential, 7, time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "20250109-007", got)
}

func TestFormatNumber_UnknownScheme(t *testing.T) {
	_, err := FormatNumber(NumberScheme("weekly"), 1, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownNumberScheme))
}

func TestFormatInvoiceNumber_RejectsInvalidInput(t *testing.T) {
	now := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)

	_, err := FormatInvoiceNumber("", now, 1)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber("{SEQ3}", now, 0)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber("INV-{WEEK}-{SEQ}", now, 1)
	assert.Error(t, err)

	got, err := FormatInvoiceNumber("INV-{YYYY}-{SEQ}", now, 12)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-12", got)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m", FormatDuration(0))
	assert.Equal(t, "42m", FormatDuration(42*time.Minute+30*time.Second))
	assert.Equal(t, "1h 0m", FormatDuration(time.Hour))
	assert.Equal(t, "1h 35m", FormatDuration(95*time.Minute))
	assert.Equal(t, "0m", FormatDuration(-time.Hour))
}

func TestFormatMoneyAndQuantity(t *testing.T) {
	assert.Equal(t, "$80.00", FormatMoney(decimal.NewFromInt(80), "usd"))
	assert.Equal(t, "$2.50", FormatMoney(decimal.RequireFromString("2.5"), ""))
	assert.Equal(t, "-$12.10", FormatMoney(decimal.RequireFromString("-12.1"), "USD"))
	assert.Equal(t, "IDR 1500.00", FormatMoney(decimal.NewFromInt(1500), "IDR"))

	assert.Equal(t, "1.5", FormatQuantity(decimal.RequireFromString("1.50")))
	assert.Equal(t, "2", FormatQuantity(decimal.NewFromInt(2)))
	assert.Equal(t, "1.58", FormatQuantity(decimal.RequireFromString("1.5833333")))
}
