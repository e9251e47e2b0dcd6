// Package disclosure decides which asset figures a viewer may see. The rule
// depends only on the wallet connection state: disconnected viewers get the
// redaction marker for every price and availability figure, whatever the
// asset's own confidentiality flag says.
package disclosure

import (
	"github.com/alanyoungcy/rwaexchange/internal/domain"
	"github.com/shopspring/decimal"
)

// Reveal returns the view of asset for a viewer in the given state.
func Reveal(asset domain.AssetRecord, state domain.ConnectionState) domain.DisplayAsset {
	out := domain.DisplayAsset{
		ID:           asset.ID,
		Name:         asset.Name,
		Category:     asset.Category,
		Location:     asset.Location,
		Confidential: asset.Confidential,
	}
	if !state.Connected {
		out.TotalValue = domain.Redact[decimal.Decimal]()
		out.AvailableTokens = domain.Redact[uint64]()
		out.MinInvestment = domain.Redact[decimal.Decimal]()
		out.Yield = domain.Redact[decimal.Decimal]()
		return out
	}
	out.TotalValue = domain.Reveal(asset.TotalValue)
	out.AvailableTokens = domain.Reveal(asset.AvailableTokens)
	out.MinInvestment = domain.Reveal(asset.MinInvestment)
	out.Yield = domain.Reveal(asset.Yield)
	return out
}

// RevealAll applies Reveal to every asset, preserving order.
func RevealAll(assets []domain.AssetRecord, state domain.ConnectionState) []domain.DisplayAsset {
	out := make([]domain.DisplayAsset, 0, len(assets))
	for _, a := range assets {
		out = append(out, Reveal(a, state))
	}
	return out
}

// Overview aggregates the catalog for the market dashboard. The asset count is
// public; the aggregated figures follow the same rule as Reveal.
func Overview(assets []domain.AssetRecord, state domain.ConnectionState) domain.MarketOverview {
	out := domain.MarketOverview{AssetCount: len(assets)}
	if !state.Connected {
		return out
	}

	total := decimal.Zero
	yieldSum := decimal.Zero
	var tokens uint64
	for _, a := range assets {
		total = total.Add(a.TotalValue)
		yieldSum = yieldSum.Add(a.Yield)
		tokens += a.AvailableTokens
	}

	avg := decimal.Zero
	if len(assets) > 0 {
		avg = yieldSum.DivRound(decimal.NewFromInt(int64(len(assets))), 2)
	}

	out.TotalValue = domain.Reveal(total)
	out.AvailableTokens = domain.Reveal(tokens)
	out.AverageYield = domain.Reveal(avg)
	return out
}
