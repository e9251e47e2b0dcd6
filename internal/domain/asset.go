package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Category classifies an investable asset.
type Category string

const (
	CategoryRealEstate Category = "real-estate"
	CategoryCommodity  Category = "commodity"
	CategoryArt        Category = "art"
)

// knownCategories is the closed set accepted by Category.Valid. New kinds are
// added here.
var knownCategories = map[Category]bool{
	CategoryRealEstate: true,
	CategoryCommodity:  true,
	CategoryArt:        true,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return knownCategories[c]
}

// AssetRecord describes one tokenized real-world asset. Records are built once
// when the catalog loads and are never mutated afterwards.
type AssetRecord struct {
	ID              string
	Name            string
	Category        Category
	Location        string
	TotalValue      decimal.Decimal // USD
	AvailableTokens uint64
	MinInvestment   decimal.Decimal // USD, <= TotalValue
	Yield           decimal.Decimal // percent
	Confidential    bool
}

// RedactedMarker is what a redacted figure renders as. It never depends on the
// underlying value.
const RedactedMarker = "***"

// Masked holds a figure that may be withheld from the viewer. The zero value is
// redacted.
type Masked[T any] struct {
	value   T
	visible bool
}

// Reveal wraps a visible value.
func Reveal[T any](v T) Masked[T] {
	return Masked[T]{value: v, visible: true}
}

// Redact returns a redacted figure of type T.
func Redact[T any]() Masked[T] {
	return Masked[T]{}
}

// Get returns the value and whether it is visible. A redacted figure yields
// the zero value of T.
func (m Masked[T]) Get() (T, bool) {
	return m.value, m.visible
}

// Redacted reports whether the figure is withheld.
func (m Masked[T]) Redacted() bool {
	return !m.visible
}

// MarshalJSON renders the value, or RedactedMarker when withheld.
func (m Masked[T]) MarshalJSON() ([]byte, error) {
	if !m.visible {
		return json.Marshal(RedactedMarker)
	}
	return json.Marshal(m.value)
}

// DisplayAsset is the view of an AssetRecord after the disclosure policy has
// been applied for a given connection state.
type DisplayAsset struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	Category        Category                `json:"type"`
	Location        string                  `json:"location"`
	Confidential    bool                    `json:"is_encrypted"`
	TotalValue      Masked[decimal.Decimal] `json:"total_value"`
	AvailableTokens Masked[uint64]          `json:"available_tokens"`
	MinInvestment   Masked[decimal.Decimal] `json:"min_investment"`
	Yield           Masked[decimal.Decimal] `json:"yield"`
}

// MarketOverview summarizes the catalog for the dashboard.
type MarketOverview struct {
	AssetCount      int                     `json:"asset_count"`
	TotalValue      Masked[decimal.Decimal] `json:"total_value"`
	AvailableTokens Masked[uint64]          `json:"available_tokens"`
	AverageYield    Masked[decimal.Decimal] `json:"average_yield"`
}
