// Package catalog holds the immutable list of investable assets for the
// session. It is built once at startup and only read afterwards.
package catalog

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/rwaexchange/internal/config"
	"github.com/alanyoungcy/rwaexchange/internal/domain"
	"github.com/shopspring/decimal"
)

// Catalog is a read-only, ordered set of asset records.
type Catalog struct {
	assets []domain.AssetRecord
	byID   map[string]int
}

// New validates records and builds a Catalog from them. Every problem found is
// reported in the returned error.
func New(records []domain.AssetRecord) (*Catalog, error) {
	c := &Catalog{
		assets: make([]domain.AssetRecord, 0, len(records)),
		byID:   make(map[string]int, len(records)),
	}

	var errs []string
	for i, r := range records {
		if problems := validate(r); len(problems) > 0 {
			for _, p := range problems {
				errs = append(errs, fmt.Sprintf("asset[%d] %q: %s", i, r.ID, p))
			}
			continue
		}
		if _, dup := c.byID[r.ID]; dup {
			errs = append(errs, fmt.Sprintf("asset[%d]: duplicate id %q", i, r.ID))
			continue
		}
		c.byID[r.ID] = len(c.assets)
		c.assets = append(c.assets, r)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("catalog: invalid assets:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return c, nil
}

// FromConfig parses the [[assets]] entries of the configuration.
func FromConfig(entries []config.AssetConfig) (*Catalog, error) {
	records := make([]domain.AssetRecord, 0, len(entries))
	for i, e := range entries {
		r, err := parseEntry(e)
		if err != nil {
			return nil, fmt.Errorf("catalog: asset[%d] %q: %w", i, e.ID, err)
		}
		records = append(records, r)
	}
	return New(records)
}

// All returns the assets in catalog order. The slice is a copy.
func (c *Catalog) All() []domain.AssetRecord {
	out := make([]domain.AssetRecord, len(c.assets))
	copy(out, c.assets)
	return out
}

// Get returns the asset with the given id, or domain.ErrNotFound.
func (c *Catalog) Get(id string) (domain.AssetRecord, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.AssetRecord{}, fmt.Errorf("catalog: asset %q: %w", id, domain.ErrNotFound)
	}
	return c.assets[i], nil
}

// Len returns the number of assets.
func (c *Catalog) Len() int {
	return len(c.assets)
}

func parseEntry(e config.AssetConfig) (domain.AssetRecord, error) {
	total, err := parseAmount("total_value", e.TotalValue)
	if err != nil {
		return domain.AssetRecord{}, err
	}
	min, err := parseAmount("min_investment", e.MinInvestment)
	if err != nil {
		return domain.AssetRecord{}, err
	}
	yield, err := parseAmount("yield", e.Yield)
	if err != nil {
		return domain.AssetRecord{}, err
	}
	return domain.AssetRecord{
		ID:              strings.TrimSpace(e.ID),
		Name:            e.Name,
		Category:        domain.Category(strings.ToLower(strings.TrimSpace(e.Category))),
		Location:        e.Location,
		TotalValue:      total,
		AvailableTokens: e.AvailableTokens,
		MinInvestment:   min,
		Yield:           yield,
		Confidential:    e.Confidential,
	}, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func validate(r domain.AssetRecord) []string {
	var problems []string
	if r.ID == "" {
		problems = append(problems, "id must not be empty")
	}
	if r.Name == "" {
		problems = append(problems, "name must not be empty")
	}
	if !r.Category.Valid() {
		problems = append(problems, fmt.Sprintf("unknown category %q", r.Category))
	}
	if r.TotalValue.IsNegative() {
		problems = append(problems, "total_value must be >= 0")
	}
	if r.MinInvestment.IsNegative() {
		problems = append(problems, "min_investment must be >= 0")
	}
	if r.MinInvestment.GreaterThan(r.TotalValue) {
		problems = append(problems, "min_investment must not exceed total_value")
	}
	if r.Yield.IsNegative() {
		problems = append(problems, "yield must be >= 0")
	}
	return problems
}
