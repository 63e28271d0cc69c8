package llm

import (
	"github.com/shopspring/decimal"

	"github.com/jonathan/resume-studio/internal/types"
)

var perMillion = decimal.NewFromInt(1_000_000)

// ComputeCost converts token usage to USD using the model's per-million prices.
// Cached input tokens are billed at the cached price, or the input price when
// the model declares none.
func ComputeCost(m *types.Model, u Usage) float64 {
	if m == nil {
		return 0
	}

	inPrice := decimal.NewFromFloat(m.InputPricePerM)
	outPrice := decimal.NewFromFloat(m.OutputPricePerM)
	cachedPrice := inPrice
	if m.CachedInputPricePerM != nil {
		cachedPrice = decimal.NewFromFloat(*m.CachedInputPricePerM)
	}

	cached := u.CachedInputTokens
	if cached > u.InputTokens {
		cached = u.InputTokens
	}
	uncached := u.InputTokens - cached

	total := inPrice.Mul(decimal.NewFromInt(int64(uncached))).
		Add(cachedPrice.Mul(decimal.NewFromInt(int64(cached)))).
		Add(outPrice.Mul(decimal.NewFromInt(int64(u.OutputTokens)))).
		Div(perMillion)

	f, _ := total.Round(8).Float64()
	return f
}
