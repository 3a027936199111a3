// Package score computes the per-symbol derived pricing records: six passive
// reference prices, their cheap/expensive deltas against the benchmark, and
// the composite rank scores, plus the group-relative rank normalisation.
package score

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"prefcore/internal/domain"
)

// ReferenceSource resolves static per-symbol attributes.
type ReferenceSource interface {
	Get(symbol string) (domain.ReferenceRecord, bool)
}

// SnapshotSource returns one consistent copy of a symbol's live state.
type SnapshotSource interface {
	Snapshot(symbol string) (domain.LiveSnapshot, bool)
}

// BenchmarkSource computes the tracking-basket delta for a group tag.
type BenchmarkSource interface {
	Compute(group string) domain.BenchmarkResult
}

// Config holds the documented pricing constants.
type Config struct {
	CompositeWeight float64 // K in composite = fundamental − K × delta
	FrontOffset     float64 // last ± this for the front variants
	SpreadFraction  float64 // outer passive offset as a fraction of spread
	InnerFraction   float64 // inner passive offset as a fraction of spread
}

// DefaultConfig matches the platform's long-standing constants.
func DefaultConfig() Config {
	return Config{CompositeWeight: 800, FrontOffset: 0.01, SpreadFraction: 0.15, InnerFraction: 0.10}
}

// Engine batch-computes DerivedScoreRecords and caches the latest value per
// symbol. A symbol that fails in a batch keeps its previous record; the batch
// never aborts.
type Engine struct {
	refs  ReferenceSource
	live  SnapshotSource
	bench BenchmarkSource
	cfg   Config
	log   *slog.Logger

	mu    sync.RWMutex
	cache map[string]domain.DerivedScoreRecord
}

// NewEngine creates a derived-score Engine.
func NewEngine(refs ReferenceSource, live SnapshotSource, bench BenchmarkSource, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		refs:  refs,
		live:  live,
		bench: bench,
		cfg:   cfg,
		log:   log.With("engine", "score"),
		cache: make(map[string]domain.DerivedScoreRecord),
	}
}

// refPrice returns the passive reference price for one variant. The offsets
// are fixed, documented constants:
//
//	bid_buy    = bid + spread × SpreadFraction
//	front_buy  = last + FrontOffset
//	ask_buy    = ask − spread × InnerFraction
//	ask_sell   = ask − spread × SpreadFraction
//	front_sell = last − FrontOffset
//	bid_sell   = bid + spread × InnerFraction
func (e *Engine) refPrice(v domain.Variant, s domain.LiveSnapshot) float64 {
	switch v {
	case domain.VariantBidBuy:
		return s.Bid + s.Spread*e.cfg.SpreadFraction
	case domain.VariantFrontBuy:
		return s.Last + e.cfg.FrontOffset
	case domain.VariantAskBuy:
		return s.Ask - s.Spread*e.cfg.InnerFraction
	case domain.VariantAskSell:
		return s.Ask - s.Spread*e.cfg.SpreadFraction
	case domain.VariantFrontSell:
		return s.Last - e.cfg.FrontOffset
	case domain.VariantBidSell:
		return s.Bid + s.Spread*e.cfg.InnerFraction
	}
	return 0
}

// ComputeSymbol computes a fresh record for one symbol. It returns an error
// for missing prices (the caller retains the cached record) and a Collecting
// record when the previous close or benchmark is not yet bootstrapped.
func (e *Engine) ComputeSymbol(symbol string) (domain.DerivedScoreRecord, error) {
	ref, ok := e.refs.Get(symbol)
	if !ok {
		return domain.DerivedScoreRecord{}, fmt.Errorf("no reference record for %s", symbol)
	}
	live, ok := e.live.Snapshot(symbol)
	if !ok {
		return domain.DerivedScoreRecord{}, fmt.Errorf("no live snapshot for %s", symbol)
	}
	if live.Bid <= 0 || live.Ask <= 0 || live.Last <= 0 {
		return domain.DerivedScoreRecord{}, fmt.Errorf("incomplete prices for %s (bid=%v ask=%v last=%v)",
			symbol, live.Bid, live.Ask, live.Last)
	}

	rec := domain.DerivedScoreRecord{Symbol: live.Symbol, UpdatedAt: time.Now()}

	bench := e.bench.Compute(ref.BenchmarkGroup)
	if !live.HasPrevClose || bench.Status != domain.StatusComputed {
		rec.Status = domain.StatusCollecting
		return rec, nil
	}
	rec.BenchmarkChg = bench.Chg

	for v := domain.Variant(0); v < domain.NumVariants; v++ {
		refPx := e.refPrice(v, live)
		delta := (refPx - live.PrevClose) - bench.Chg
		rec.RefPrices[v] = refPx
		rec.Deltas[v] = delta
		// Higher composite favors buying, lower favors selling.
		rec.Composites[v] = ref.FundamentalScore - e.cfg.CompositeWeight*delta
	}
	rec.Status = domain.StatusComputed
	return rec, nil
}

// ComputeBatch recomputes records for all given symbols. Per-symbol failures
// are logged and the previous cached record retained; a Collecting result
// never downgrades an already-computed record.
func (e *Engine) ComputeBatch(symbols []string) {
	for _, sym := range symbols {
		rec, err := e.ComputeSymbol(sym)
		if err != nil {
			e.log.Debug("score compute skipped", "symbol", sym, "error", err)
			continue
		}

		e.mu.Lock()
		prev, exists := e.cache[rec.Symbol]
		if rec.Status == domain.StatusCollecting && exists && prev.Status == domain.StatusComputed {
			e.mu.Unlock()
			continue
		}
		e.cache[rec.Symbol] = rec
		e.mu.Unlock()
	}
}

// Record returns the cached record for a symbol.
func (e *Engine) Record(symbol string) (domain.DerivedScoreRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.cache[symbol]
	return rec, ok
}

// Records returns a copy of the entire cache, for rank computation.
func (e *Engine) Records() map[string]domain.DerivedScoreRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]domain.DerivedScoreRecord, len(e.cache))
	for sym, rec := range e.cache {
		out[sym] = rec
	}
	return out
}
