// Package livecache owns the mutable per-symbol quote state and the
// tracking-basket snapshots. Ingestion performs O(1) mutations only; nothing
// in this package blocks or fetches. Previous closes arrive exclusively via
// the bootstrap path and, once set, are never overwritten.
package livecache

import (
	"strings"
	"sync"
	"time"

	"prefcore/internal/domain"
)

// Cache holds live snapshots for universe symbols and basket instruments.
type Cache struct {
	mu       sync.RWMutex
	snaps    map[string]*domain.LiveSnapshot
	basket   map[string]*domain.LiveSnapshot
	isBasket map[string]bool
}

// New creates a Cache tracking the given basket instruments. Quotes for
// basket symbols are routed to the basket map; everything else is treated as
// a universe symbol.
func New(basketSymbols []string) *Cache {
	c := &Cache{
		snaps:    make(map[string]*domain.LiveSnapshot),
		basket:   make(map[string]*domain.LiveSnapshot),
		isBasket: make(map[string]bool, len(basketSymbols)),
	}
	for _, sym := range basketSymbols {
		sym = strings.ToUpper(sym)
		c.isBasket[sym] = true
		c.basket[sym] = &domain.LiveSnapshot{Symbol: sym}
	}
	return c
}

// ApplyQuote applies a top-of-book update. The quote carries no previous
// close; PrevClose and HasPrevClose are left untouched.
func (c *Cache) ApplyQuote(q domain.Quote) {
	sym := strings.ToUpper(q.Symbol)

	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.snaps
	if c.isBasket[sym] {
		m = c.basket
	}

	s := m[sym]
	if s == nil {
		s = &domain.LiveSnapshot{Symbol: sym}
		m[sym] = s
	}
	if q.Bid > 0 {
		s.Bid = q.Bid
	}
	if q.Ask > 0 {
		s.Ask = q.Ask
	}
	if q.Last > 0 {
		s.Last = q.Last
	}
	if q.Volume > 0 {
		s.Volume = q.Volume
	}
	if s.Bid > 0 && s.Ask > 0 {
		s.Spread = s.Ask - s.Bid
	}
	if !q.Timestamp.IsZero() {
		s.UpdatedAt = q.Timestamp
	} else {
		s.UpdatedAt = time.Now()
	}
}

// SetPrevClose bootstraps the previous close for a symbol. It returns false
// without modifying anything when a previous close is already set — the
// bootstrap value wins exactly once.
func (c *Cache) SetPrevClose(symbol string, px float64) bool {
	sym := strings.ToUpper(symbol)

	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.snaps
	if c.isBasket[sym] {
		m = c.basket
	}

	s := m[sym]
	if s == nil {
		s = &domain.LiveSnapshot{Symbol: sym}
		m[sym] = s
	}
	if s.HasPrevClose {
		return false
	}
	s.PrevClose = px
	s.HasPrevClose = true
	return true
}

// Snapshot returns one consistent copy of a symbol's live state. Derived
// computations read this copy, never the live struct, so a mid-computation
// quote cannot tear a read.
func (c *Cache) Snapshot(symbol string) (domain.LiveSnapshot, bool) {
	sym := strings.ToUpper(symbol)

	c.mu.RLock()
	defer c.mu.RUnlock()

	m := c.snaps
	if c.isBasket[sym] {
		m = c.basket
	}
	s := m[sym]
	if s == nil {
		return domain.LiveSnapshot{}, false
	}
	return *s, true
}

// BasketSnapshot returns copies of all basket instrument snapshots.
func (c *Cache) BasketSnapshot() map[string]domain.LiveSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]domain.LiveSnapshot, len(c.basket))
	for sym, s := range c.basket {
		out[sym] = *s
	}
	return out
}

// Symbols returns all universe symbols with live state.
func (c *Cache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.snaps))
	for sym := range c.snaps {
		out = append(out, sym)
	}
	return out
}

// MissingPrevClose returns universe and basket symbols that have live state
// but no bootstrapped previous close yet.
func (c *Cache) MissingPrevClose() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for sym, s := range c.snaps {
		if !s.HasPrevClose {
			out = append(out, sym)
		}
	}
	for sym, s := range c.basket {
		if !s.HasPrevClose {
			out = append(out, sym)
		}
	}
	return out
}
