package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinor(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{in: "6.00", want: 600},
		{in: "6", want: 600},
		{in: " 12.5 ", want: 1250},
		{in: "0.015", want: 2},
		{in: "19.99", want: 1999},
	}
	for _, tt := range tests {
		got, err := ParseMinor(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseMinor_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1,50"} {
		_, err := ParseMinor(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestParsePositiveMinor(t *testing.T) {
	_, err := ParsePositiveMinor("0")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParsePositiveMinor("-5")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	v, err := ParsePositiveMinor("25.10")
	require.NoError(t, err)
	assert.Equal(t, int64(2510), v)
}

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "6.00", FormatMinor(600))
	assert.Equal(t, "0.05", FormatMinor(5))
	assert.Equal(t, "1234.56", FormatMinor(123456))
}

func TestFromFloat(t *testing.T) {
	assert.Equal(t, int64(1999), FromFloat(19.99))
	assert.Equal(t, int64(600), FromFloat(6))
}
