// Package native converts fiat amounts into the chain's native asset,
// expressed in its smallest indivisible unit.
package native

import (
	"fmt"
	"math/big"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultDecimals is the base-unit exponent of an EVM native asset (wei).
const DefaultDecimals = 18

// Converter applies a fixed fiat-per-unit exchange rate. All arithmetic is
// done on integers; results are rounded down so a conversion never asks the
// payer for more than the fiat amount is worth.
type Converter struct {
	fiat     decimal.Decimal
	rate     *big.Rat // fiat per whole native unit
	scale    *big.Int // 10^decimals
	decimals uint8
}

// NewConverter builds a Converter for a rate of fiatPerUnit (e.g. 2000 USD per
// ETH). decimals of 0 selects DefaultDecimals.
func NewConverter(fiatPerUnit decimal.Decimal, decimals uint8) (*Converter, error) {
	if !fiatPerUnit.IsPositive() {
		return nil, fmt.Errorf("native: rate must be positive, got %s", fiatPerUnit)
	}
	if decimals == 0 {
		decimals = DefaultDecimals
	}
	return &Converter{
		fiat:     fiatPerUnit,
		rate:     fiatPerUnit.Rat(),
		scale:    new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil),
		decimals: decimals,
	}, nil
}

// Rate returns the configured fiat price of one whole native unit.
func (c *Converter) Rate() decimal.Decimal {
	return c.fiat
}

// Decimals returns the base-unit exponent.
func (c *Converter) Decimals() uint8 {
	return c.decimals
}

// ToNative returns floor(amount * 10^decimals / rate) in base units.
func (c *Converter) ToNative(amount decimal.Decimal) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("native: %w: %s is negative", domain.ErrInvalidAmount, amount)
	}

	// amount/rate = (an/ad) / (rn/rd) = an*rd / (ad*rn)
	a := amount.Rat()
	num := new(big.Int).Mul(a.Num(), c.rate.Denom())
	num.Mul(num, c.scale)
	den := new(big.Int).Mul(a.Denom(), c.rate.Num())

	// Both operands are non-negative, so Quo truncation is floor.
	return new(big.Int).Quo(num, den), nil
}

// FromNative converts base units back to whole native units for display.
func (c *Converter) FromNative(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(c.decimals))
}

// ToFiat values base units at the configured rate, rounded down to cents.
func (c *Converter) ToFiat(v *big.Int) decimal.Decimal {
	return c.FromNative(v).Mul(c.fiat).Truncate(2)
}
