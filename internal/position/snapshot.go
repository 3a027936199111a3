// Package position derives per-symbol exposure from the once-per-cycle venue
// fetch and enforces the position limits: the exposure cap, pace caps, and
// the cross-direction block.
package position

import (
	"strings"
	"sync"
	"time"

	"prefcore/internal/domain"
)

// SnapshotEngine folds the shared account state into per-symbol snapshots.
// Start-of-day quantities are captured the first time a symbol is seen on a
// given session date.
type SnapshotEngine struct {
	mu         sync.Mutex
	startOfDay map[string]int64
	day        string
	now        func() time.Time
}

// NewSnapshotEngine creates a SnapshotEngine.
func NewSnapshotEngine() *SnapshotEngine {
	return &SnapshotEngine{startOfDay: make(map[string]int64), now: time.Now}
}

// Build converts one account fetch into per-symbol snapshots. Symbols with
// neither a position nor open orders are absent from the result; callers
// treat absence as a flat book.
func (e *SnapshotEngine) Build(account domain.AccountState) map[string]domain.PositionSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if day := e.now().Format("2006-01-02"); day != e.day {
		e.day = day
		e.startOfDay = make(map[string]int64)
	}

	out := make(map[string]domain.PositionSnapshot)

	get := func(symbol string) domain.PositionSnapshot {
		sym := strings.ToUpper(symbol)
		if s, ok := out[sym]; ok {
			return s
		}
		return domain.PositionSnapshot{Symbol: sym}
	}

	for _, p := range account.Positions {
		s := get(p.Symbol)
		s.CurrentQty = p.Qty
		out[s.Symbol] = s
	}
	for _, o := range account.Orders {
		s := get(o.Symbol)
		switch o.Side {
		case domain.SideBuy:
			s.OpenBuyQty += o.Qty
		case domain.SideSell:
			s.OpenSellQty += o.Qty
		}
		out[s.Symbol] = s
	}

	for sym, s := range out {
		if _, seen := e.startOfDay[sym]; !seen {
			e.startOfDay[sym] = s.CurrentQty
		}
		s.StartOfDayQty = e.startOfDay[sym]
		s.PotentialQty = s.CurrentQty + s.OpenBuyQty - s.OpenSellQty
		out[sym] = s
	}
	return out
}
