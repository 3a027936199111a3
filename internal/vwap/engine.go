// Package vwap maintains day-horizon VWAP windows over extended print
// history, with an outlier-size filter keyed to each symbol's average daily
// volume.
package vwap

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"prefcore/internal/domain"
)

// AvgVolumeSource resolves a symbol's average daily volume, used by the
// outlier filter. Zero means unknown; the filter is then skipped.
type AvgVolumeSource interface {
	AvgDailyVolume(symbol string) int64
}

// Config holds the window parameters.
type Config struct {
	Days              []int   // day horizons, e.g. 3, 5, 10
	OutlierMultiplier float64 // exclude prints with size > avgVol × this
	MaxPrints         int     // per-symbol history bound
}

// accum is one print reduced to what the VWAP needs.
type accum struct {
	price float64
	size  int64
	at    int64 // unix nanos
}

// Engine ingests prints and computes day-horizon VWAPs on demand. History is
// bounded per symbol; eviction by age happens at compute time against the
// longest horizon.
type Engine struct {
	cfg  Config
	vols AvgVolumeSource
	log  *slog.Logger

	mu      sync.RWMutex
	history map[string][]accum
	windows map[string][]domain.VWAPWindow
}

// NewEngine creates a VWAP Engine.
func NewEngine(cfg Config, vols AvgVolumeSource, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:     cfg,
		vols:    vols,
		log:     log.With("engine", "vwap"),
		history: make(map[string][]accum),
		windows: make(map[string][]domain.VWAPWindow),
	}
}

// Ingest admits one print into the history. The outlier filter runs at
// compute time, not here, so a reference reload can change the filter
// without losing history.
func (e *Engine) Ingest(p domain.TradePrint) {
	if p.Price <= 0 || p.Size <= 0 {
		return
	}
	sym := strings.ToUpper(p.Symbol)

	e.mu.Lock()
	h := append(e.history[sym], accum{price: p.Price, size: p.Size, at: p.Timestamp.UnixNano()})
	if e.cfg.MaxPrints > 0 && len(h) > e.cfg.MaxPrints {
		h = h[len(h)-e.cfg.MaxPrints:]
	}
	e.history[sym] = h
	e.mu.Unlock()
}

// ComputeAll recomputes every symbol's window set as of now. History older
// than the longest horizon is dropped first.
func (e *Engine) ComputeAll(now time.Time) {
	maxDays := 0
	for _, d := range e.cfg.Days {
		if d > maxDays {
			maxDays = d
		}
	}
	oldest := now.AddDate(0, 0, -maxDays).UnixNano()

	e.mu.Lock()
	defer e.mu.Unlock()

	for sym, h := range e.history {
		idx := sort.Search(len(h), func(i int) bool { return h[i].at >= oldest })
		if idx > 0 {
			h = h[idx:]
			e.history[sym] = h
		}

		var sizeLimit int64
		if avg := e.vols.AvgDailyVolume(sym); avg > 0 && e.cfg.OutlierMultiplier > 0 {
			sizeLimit = int64(float64(avg) * e.cfg.OutlierMultiplier)
		}

		wins := make([]domain.VWAPWindow, 0, len(e.cfg.Days))
		for _, days := range e.cfg.Days {
			wins = append(wins, computeWindow(h, days, sizeLimit, now))
		}
		e.windows[sym] = wins
	}
}

// computeWindow folds the in-horizon, non-outlier prints into one VWAP.
func computeWindow(h []accum, days int, sizeLimit int64, now time.Time) domain.VWAPWindow {
	cutoff := now.AddDate(0, 0, -days).UnixNano()

	w := domain.VWAPWindow{Days: days}
	var notional float64
	for _, a := range h {
		if a.at < cutoff {
			continue
		}
		if sizeLimit > 0 && a.size > sizeLimit {
			w.ExcludedCount++
			continue
		}
		notional += a.price * float64(a.size)
		w.Volume += a.size
		w.PrintCount++
	}
	if w.Volume == 0 {
		return w
	}
	w.VWAP = notional / float64(w.Volume)
	w.Valid = true
	return w
}

// Windows returns the computed window set for a symbol.
func (e *Engine) Windows(symbol string) []domain.VWAPWindow {
	e.mu.RLock()
	defer e.mu.RUnlock()
	wins := e.windows[strings.ToUpper(symbol)]
	out := make([]domain.VWAPWindow, len(wins))
	copy(out, wins)
	return out
}

// Deviation is last price minus the mean of the valid window VWAPs. The
// second return is false when no window is valid.
func (e *Engine) Deviation(symbol string, last float64) (float64, bool) {
	e.mu.RLock()
	wins := e.windows[strings.ToUpper(symbol)]
	e.mu.RUnlock()

	var sum float64
	var n int
	for _, w := range wins {
		if w.Valid {
			sum += w.VWAP
			n++
		}
	}
	if n == 0 || last <= 0 {
		return 0, false
	}
	return last - sum/float64(n), true
}
