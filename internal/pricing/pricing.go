// Package pricing maps model names to per-million-token rates and computes cost estimates.
package pricing

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

const tokensPerMillion = 1_000_000.0

// Blended-rate weights used when only an aggregate token count is known for a day.
const (
	blendInput      = 0.30
	blendOutput     = 0.10
	blendCacheRead  = 0.50
	blendCacheWrite = 0.10
)

// Variant selects which historical opus cache-read rate is used.
type Variant string

const (
	// Variant1875 prices opus cache reads at 1.875 per million (canonical).
	Variant1875 Variant = "1.875"
	// Variant1_50 prices opus cache reads at 1.50 per million.
	Variant1_50 Variant = "1.50"
)

// Rates are USD per million tokens.
type Rates struct {
	Input      float64
	Output     float64
	CacheRead  float64
	CacheWrite float64
}

var (
	opusRates    = Rates{Input: 15, Output: 75, CacheRead: 1.875, CacheWrite: 18.75}
	sonnetRates  = Rates{Input: 3, Output: 15, CacheRead: 0.30, CacheWrite: 3.75}
	defaultRates = sonnetRates
)

type family struct {
	keyword string
	rates   Rates
}

// Table resolves rates by case-insensitive substring match in priority order.
type Table struct {
	families []family
	fallback Rates
}

// NewTable returns the standard table for the given opus variant.
func NewTable(v Variant) *Table {
	opus := opusRates
	if v == Variant1_50 {
		opus.CacheRead = 1.50
	}
	return &Table{
		families: []family{
			{keyword: "opus", rates: opus},
			{keyword: "sonnet", rates: sonnetRates},
		},
		fallback: defaultRates,
	}
}

// Default returns the canonical table.
func Default() *Table {
	return NewTable(Variant1875)
}

// WithOverrides returns a copy of the table with family rates replaced.
// Keys are family keywords ("opus", "sonnet", "default"); values are
// [input, output, cacheRead, cacheWrite]. Unknown keywords are appended
// after the built-in families in sorted order.
func (t *Table) WithOverrides(overrides map[string][4]float64) *Table {
	out := &Table{
		families: append([]family(nil), t.families...),
		fallback: t.fallback,
	}
	keys := lo.Keys(overrides)
	slices.Sort(keys)
	for _, key := range keys {
		v := overrides[key]
		r := Rates{Input: v[0], Output: v[1], CacheRead: v[2], CacheWrite: v[3]}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "default" {
			out.fallback = r
			continue
		}
		replaced := false
		for i := range out.families {
			if out.families[i].keyword == key {
				out.families[i].rates = r
				replaced = true
				break
			}
		}
		if !replaced && key != "" {
			out.families = append(out.families, family{keyword: key, rates: r})
		}
	}
	return out
}

// Lookup returns the rates for a model. Unknown models get the default tier.
func (t *Table) Lookup(model string) Rates {
	lower := strings.ToLower(model)
	for _, f := range t.families {
		if strings.Contains(lower, f.keyword) {
			return f.rates
		}
	}
	return t.fallback
}

// Cost prices a token breakdown for the given model.
func (t *Table) Cost(model string, tokens models.TokenCounts) float64 {
	return Cost(t.Lookup(model), tokens)
}

// BlendedCost estimates the cost of an aggregate token count for a model.
func (t *Table) BlendedCost(model string, tokens int64) float64 {
	return float64(tokens) / tokensPerMillion * BlendedRate(t.Lookup(model))
}

// Cost multiplies each token kind by its rate.
func Cost(r Rates, tokens models.TokenCounts) float64 {
	return float64(tokens.InputTokens)/tokensPerMillion*r.Input +
		float64(tokens.OutputTokens)/tokensPerMillion*r.Output +
		float64(tokens.CacheReadTokens)/tokensPerMillion*r.CacheRead +
		float64(tokens.CacheWriteTokens)/tokensPerMillion*r.CacheWrite
}

// BlendedRate is the approximate per-million rate for an unsplit token count.
func BlendedRate(r Rates) float64 {
	return blendInput*r.Input + blendOutput*r.Output + blendCacheRead*r.CacheRead + blendCacheWrite*r.CacheWrite
}

// CacheSavings is what cache reads saved compared to paying the full input rate.
func CacheSavings(r Rates, cacheReadTokens int64) float64 {
	return float64(cacheReadTokens) / tokensPerMillion * (r.Input - r.CacheRead)
}
