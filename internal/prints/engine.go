// Package prints maintains bounded per-symbol trade-print buffers and the
// rolling concentration windows derived from them. Aggregation happens on a
// fixed compute tick, never per print, so a burst of trades cannot stall the
// ingestion path.
package prints

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"prefcore/internal/domain"
)

// Config holds the aggregation parameters.
type Config struct {
	Horizons     []time.Duration // window horizons, ascending
	MinLotSize   int64           // prints below this size are rejected at ingest
	RingCapacity int             // per-symbol buffer capacity
}

// Engine ingests qualifying prints and computes volume-weighted modal prices
// per horizon. Windows are recomputed by ComputeAll; between ticks the
// accessors serve the last computed set.
type Engine struct {
	cfg Config
	log *slog.Logger

	mu      sync.RWMutex
	rings   map[string]*ring
	windows map[string][]domain.ConcentrationWindow
}

// defaultRingCapacity matches the configuration default, so a zero-value
// Config still buffers prints.
const defaultRingCapacity = 2048

// NewEngine creates a print-aggregation Engine.
func NewEngine(cfg Config, log *slog.Logger) *Engine {
	if cfg.RingCapacity <= 0 {
		cfg.RingCapacity = defaultRingCapacity
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:     cfg,
		log:     log.With("engine", "prints"),
		rings:   make(map[string]*ring),
		windows: make(map[string][]domain.ConcentrationWindow),
	}
}

// Ingest admits one live print. Prints below the minimum qualifying lot size
// are rejected before touching the buffer. Cheap enough to call from the
// stream handler.
func (e *Engine) Ingest(p domain.TradePrint) {
	if p.Size < e.cfg.MinLotSize || p.Price <= 0 {
		return
	}
	p.Symbol = strings.ToUpper(p.Symbol)

	e.mu.Lock()
	r, ok := e.rings[p.Symbol]
	if !ok {
		r = newRing(e.cfg.RingCapacity)
		e.rings[p.Symbol] = r
	}
	r.push(p)
	e.mu.Unlock()
}

// ComputeAll recomputes every symbol's window set as of now. Expired prints
// are evicted first; a window with no remaining prints is published invalid
// rather than as an error or a zero price.
func (e *Engine) ComputeAll(now time.Time) {
	maxHorizon := time.Duration(0)
	for _, h := range e.cfg.Horizons {
		if h > maxHorizon {
			maxHorizon = h
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for sym, r := range e.rings {
		r.evictBefore(now.Add(-maxHorizon).UnixNano())

		wins := make([]domain.ConcentrationWindow, 0, len(e.cfg.Horizons))
		for _, h := range e.cfg.Horizons {
			wins = append(wins, computeWindow(r, h, now))
		}
		e.windows[sym] = wins
	}
}

// computeWindow aggregates one horizon. The window price is the price level
// carrying the most volume; concentration is that level's share of total
// window volume.
func computeWindow(r *ring, horizon time.Duration, now time.Time) domain.ConcentrationWindow {
	cutoff := now.Add(-horizon).UnixNano()

	volByPrice := make(map[float64]int64)
	var total int64
	var count int
	r.each(func(p domain.TradePrint) {
		if p.Timestamp.UnixNano() < cutoff {
			return
		}
		volByPrice[p.Price] += p.Size
		total += p.Size
		count++
	})

	w := domain.ConcentrationWindow{Horizon: horizon, ComputedAt: now}
	if count == 0 || total == 0 {
		return w
	}

	var modal float64
	var modalVol int64 = -1
	for px, vol := range volByPrice {
		if vol > modalVol || (vol == modalVol && px > modal) {
			modal, modalVol = px, vol
		}
	}

	var qualifying int
	r.each(func(p domain.TradePrint) {
		if p.Timestamp.UnixNano() >= cutoff && p.Price == modal {
			qualifying++
		}
	})

	w.Price = modal
	w.ConcentrationPct = float64(modalVol) / float64(total) * 100
	w.PrintCount = count
	w.QualifyingCount = qualifying
	w.TotalVolume = total
	w.Valid = true
	return w
}

// Windows returns the full computed horizon set for a symbol.
func (e *Engine) Windows(symbol string) []domain.ConcentrationWindow {
	e.mu.RLock()
	defer e.mu.RUnlock()
	wins := e.windows[strings.ToUpper(symbol)]
	out := make([]domain.ConcentrationWindow, len(wins))
	copy(out, wins)
	return out
}

// Latest returns the shortest-horizon window for a symbol.
func (e *Engine) Latest(symbol string) (domain.ConcentrationWindow, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	wins := e.windows[strings.ToUpper(symbol)]
	if len(wins) == 0 {
		return domain.ConcentrationWindow{}, false
	}
	best := wins[0]
	for _, w := range wins[1:] {
		if w.Horizon < best.Horizon {
			best = w
		}
	}
	return best, true
}

// Deviation is last price minus the mean of the valid window prices. The
// second return is false when no window is valid.
func (e *Engine) Deviation(symbol string, last float64) (float64, bool) {
	e.mu.RLock()
	wins := e.windows[strings.ToUpper(symbol)]
	e.mu.RUnlock()

	var sum float64
	var n int
	for _, w := range wins {
		if w.Valid {
			sum += w.Price
			n++
		}
	}
	if n == 0 || last <= 0 || math.IsNaN(last) {
		return 0, false
	}
	return last - sum/float64(n), true
}

// BufferLen reports the current ring depth for a symbol, for diagnostics.
func (e *Engine) BufferLen(symbol string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if r, ok := e.rings[strings.ToUpper(symbol)]; ok {
		return r.len()
	}
	return 0
}

// Symbols returns the buffered symbols in sorted order.
func (e *Engine) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.rings))
	for sym := range e.rings {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
