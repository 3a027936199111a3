// Package view holds the merged per-symbol view, the one contract every
// consumer reads, with pub/sub for streaming updates to API clients.
package view

import (
	"sort"
	"strings"
	"sync"

	"prefcore/internal/domain"
)

// Event is emitted to subscribers when a symbol's view is republished.
type Event struct {
	View domain.MergedView
}

// subscriber pairs a delivery channel with the symbols whose events the
// channel could not take. The missed set backs the catch-up pass: a symbol
// leaves it only once a later delivery succeeds.
type subscriber struct {
	ch     chan Event
	missed map[string]bool
}

// Model stores the latest MergedView per symbol. Publishing replaces the
// symbol's view wholesale; partial updates do not exist at this layer.
type Model struct {
	mu    sync.RWMutex
	views map[string]domain.MergedView

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]*subscriber
}

// NewModel creates an empty Model.
func NewModel() *Model {
	return &Model{
		views: make(map[string]domain.MergedView),
		subs:  make(map[int]*subscriber),
	}
}

// Publish replaces one symbol's view and notifies subscribers. A slow
// subscriber never blocks the publisher: when its buffer is full the event is
// dropped and the symbol accumulates in the subscription's missed set until a
// catch-up delivery succeeds.
func (m *Model) Publish(v domain.MergedView) {
	sym := strings.ToUpper(v.Symbol)
	v.Symbol = sym

	m.mu.Lock()
	m.views[sym] = v
	m.mu.Unlock()

	evt := Event{View: v}
	m.subsMu.Lock()
	for _, sub := range m.subs {
		select {
		case sub.ch <- evt:
		default:
			sub.missed[sym] = true
		}
	}
	m.subsMu.Unlock()
}

// View returns the latest view for one symbol.
func (m *Model) View(symbol string) (domain.MergedView, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.views[strings.ToUpper(symbol)]
	return v, ok
}

// All returns every symbol's latest view, sorted by symbol.
func (m *Model) All() []domain.MergedView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.MergedView, 0, len(m.views))
	for _, v := range m.views {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// TakeDirty returns and clears the symbols whose events a subscription
// missed, sorted. A delivery that later fails should hand the symbols back
// via MarkDirty so the next catch-up pass re-sends them.
func (m *Model) TakeDirty(id int) []string {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	sub, ok := m.subs[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(sub.missed))
	for sym := range sub.missed {
		out = append(out, sym)
	}
	sub.missed = make(map[string]bool)
	sort.Strings(out)
	return out
}

// MarkDirty re-accumulates symbols whose delivery failed. Unknown symbols and
// closed subscriptions are ignored.
func (m *Model) MarkDirty(id int, symbols ...string) {
	known := make([]string, 0, len(symbols))
	m.mu.RLock()
	for _, sym := range symbols {
		sym = strings.ToUpper(sym)
		if _, ok := m.views[sym]; ok {
			known = append(known, sym)
		}
	}
	m.mu.RUnlock()

	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return
	}
	for _, sym := range known {
		sub.missed[sym] = true
	}
}

// Subscribe creates a buffered subscription for published views.
func (m *Model) Subscribe(bufSize int) (id int, ch <-chan Event) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id = m.nextSubID
	m.nextSubID++
	sub := &subscriber{ch: make(chan Event, bufSize), missed: make(map[string]bool)}
	m.subs[id] = sub
	return id, sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *Model) Unsubscribe(id int) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if sub, ok := m.subs[id]; ok {
		close(sub.ch)
		delete(m.subs, id)
	}
}
