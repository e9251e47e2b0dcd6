package native

import (
	"math/big"
	"testing"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustConverter(t *testing.T, rate string) *Converter {
	t.Helper()
	c, err := NewConverter(decimal.RequireFromString(rate), 0)
	require.NoError(t, err)
	return c
}

func TestToNative_MinimumInvestment(t *testing.T) {
	c := mustConverter(t, "2000")

	want, _ := new(big.Int).SetString("2500000000000000000", 10)
	for i := 0; i < 1000; i++ {
		got, err := c.ToNative(decimal.NewFromInt(5000))
		require.NoError(t, err)
		require.Zero(t, want.Cmp(got), "iteration %d: got %s", i, got)
	}
}

func TestToNative_RoundsDown(t *testing.T) {
	c := mustConverter(t, "3")

	got, err := c.ToNative(decimal.NewFromInt(1))
	require.NoError(t, err)
	// 1/3 ETH = 333...333.33 wei, floored.
	assert.Equal(t, "333333333333333333", got.String())
}

func TestToNative_FractionalInputs(t *testing.T) {
	c := mustConverter(t, "1999.99")

	got, err := c.ToNative(decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	// 0.01 / 1999.99 * 1e18 = 5000025000125.000625...
	assert.Equal(t, "5000025000125", got.String())
}

func TestToNative_ZeroAndNegative(t *testing.T) {
	c := mustConverter(t, "2000")

	got, err := c.ToNative(decimal.Zero)
	require.NoError(t, err)
	assert.Zero(t, got.Sign())

	_, err = c.ToNative(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestNewConverter_RejectsNonPositiveRate(t *testing.T) {
	_, err := NewConverter(decimal.Zero, 18)
	assert.Error(t, err)

	_, err = NewConverter(decimal.NewFromInt(-5), 18)
	assert.Error(t, err)
}

func TestNewConverter_CustomDecimals(t *testing.T) {
	c, err := NewConverter(decimal.NewFromInt(2), 6)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), c.Decimals())

	got, err := c.ToNative(decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.Equal(t, "1500000", got.String())
}

func TestFromNativeAndToFiat(t *testing.T) {
	c := mustConverter(t, "2000")

	v, _ := new(big.Int).SetString("2500000000000000000", 10)
	assert.True(t, c.FromNative(v).Equal(decimal.RequireFromString("2.5")))
	assert.True(t, c.ToFiat(v).Equal(decimal.NewFromInt(5000)))
	assert.True(t, c.FromNative(nil).IsZero())
}
