// Package benchmark maps a symbol's benchmark-group tag to a weighted linear
// combination of tracking-basket price deltas. A group whose basket inputs
// are not all bootstrapped yields a Collecting result, never a partial
// number.
package benchmark

import (
	"strings"

	"prefcore/internal/domain"
)

// Basket instruments tracked for benchmark computation.
const (
	InstPFF = "PFF" // preferred-stock ETF
	InstTLT = "TLT" // 20y+ treasuries
	InstIEF = "IEF" // 7-10y treasuries
	InstHYG = "HYG" // high-yield credit
	InstKRE = "KRE" // regional banks
	InstSPY = "SPY"
)

// Instruments enumerates every tracking instrument the engine may reference.
// The live cache bootstraps previous closes for exactly this set at startup.
var Instruments = []string{InstPFF, InstTLT, InstIEF, InstHYG, InstKRE, InstSPY}

// term is one weighted leg of a benchmark formula.
type term struct {
	symbol string
	weight float64
}

// DefaultGroup is applied when a symbol carries an unknown or empty tag.
const DefaultGroup = "DEFAULT"

// formulas maps group tags to their weighted basket legs. Weights sum to 1.
var formulas = map[string][]term{
	"FIXED":      {{InstPFF, 0.6}, {InstTLT, 0.4}},
	"FIXED_LONG": {{InstPFF, 0.5}, {InstTLT, 0.3}, {InstIEF, 0.2}},
	"FLOAT":      {{InstPFF, 0.7}, {InstHYG, 0.3}},
	"BANK":       {{InstPFF, 0.5}, {InstKRE, 0.3}, {InstTLT, 0.2}},
	"HIGH_YIELD": {{InstPFF, 0.5}, {InstHYG, 0.5}},
	"EQUITY":     {{InstPFF, 0.6}, {InstSPY, 0.4}},
	DefaultGroup: {{InstPFF, 1.0}},
}

// BasketSource provides consistent copies of the tracking-basket snapshots.
type BasketSource interface {
	BasketSnapshot() map[string]domain.LiveSnapshot
}

// Engine computes benchmark deltas from a basket source.
type Engine struct {
	basket BasketSource
}

// New creates a benchmark Engine reading from the given basket source.
func New(basket BasketSource) *Engine {
	return &Engine{basket: basket}
}

// Compute evaluates the formula for the given group tag against the current
// basket snapshot. Unknown tags fall back to the DEFAULT formula. The result
// is Collecting when any contributing instrument lacks a bootstrapped
// previous close or has not traded yet.
func (e *Engine) Compute(group string) domain.BenchmarkResult {
	terms, ok := formulas[strings.ToUpper(group)]
	if !ok {
		terms = formulas[DefaultGroup]
	}

	basket := e.basket.BasketSnapshot()

	var chg, chgPct float64
	for _, t := range terms {
		s, ok := basket[t.symbol]
		if !ok || !s.HasPrevClose || s.Last <= 0 || s.PrevClose <= 0 {
			return domain.BenchmarkResult{Status: domain.StatusCollecting}
		}
		delta := s.Last - s.PrevClose
		chg += t.weight * delta
		chgPct += t.weight * (delta / s.PrevClose * 100)
	}

	return domain.BenchmarkResult{Chg: chg, ChgPct: chgPct, Status: domain.StatusComputed}
}

// Groups returns the known group tags, for diagnostics.
func Groups() []string {
	out := make([]string, 0, len(formulas))
	for g := range formulas {
		out = append(out, g)
	}
	return out
}
