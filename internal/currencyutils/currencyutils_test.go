package currencyutils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name      string
		amountStr string
		expected  decimal.Decimal
		hasError  bool
	}{
		{"Integer", "980", decimal.NewFromInt(980), false},
		{"Yen prefix with separators", "¥1,234", decimal.NewFromInt(1234), false},
		{"Full-width yen prefix", "￥5,678", decimal.NewFromInt(5678), false},
		{"Yen suffix", "12,345円", decimal.NewFromInt(12345), false},
		{"Full-width digits", "１，２３４", decimal.NewFromInt(1234), false},
		{"Decimal", "1,234.56", decimal.RequireFromString("1234.56"), false},
		{"Surrounding spaces", "  300 ", decimal.NewFromInt(300), false},
		{"Negative", "-500", decimal.NewFromInt(-500), false},
		{"Empty string", "", decimal.Zero, true},
		{"Only symbol", "¥", decimal.Zero, true},
		{"Malformed decimal", "123.45.67", decimal.Zero, true},
		{"Non-numeric", "abc", decimal.Zero, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParseAmount(tc.amountStr)

			if tc.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.True(t, tc.expected.Equal(result), "Expected %s but got %s", tc.expected.String(), result.String())
			}
		})
	}
}

func TestParseOptionalAmount(t *testing.T) {
	amount, err := ParseOptionalAmount("  ")
	require.NoError(t, err)
	assert.Nil(t, amount)

	amount, err = ParseOptionalAmount("¥800")
	require.NoError(t, err)
	require.NotNil(t, amount)
	assert.True(t, amount.Equal(decimal.NewFromInt(800)))

	_, err = ParseOptionalAmount("x")
	assert.Error(t, err)
}

func TestFormatYen(t *testing.T) {
	tests := []struct {
		amount   decimal.Decimal
		expected string
	}{
		{decimal.NewFromInt(0), "¥0"},
		{decimal.NewFromInt(980), "¥980"},
		{decimal.NewFromInt(1000), "¥1,000"},
		{decimal.NewFromInt(1234567), "¥1,234,567"},
		{decimal.NewFromInt(-200), "¥-200"},
		{decimal.RequireFromString("1234.5"), "¥1,234.5"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatYen(tc.amount))
		})
	}
}

func TestFormatOptionalYen(t *testing.T) {
	assert.Equal(t, "-", FormatOptionalYen(nil))
	d := decimal.NewFromInt(1500)
	assert.Equal(t, "¥1,500", FormatOptionalYen(&d))
}
