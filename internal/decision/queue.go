package decision

import (
	"sort"
	"strings"
	"sync"
	"time"

	"prefcore/internal/domain"
)

// Queue holds at most one live entry per symbol. Enqueueing a symbol that
// already has an entry replaces it in place; the slot keeps its queue
// position. Read accessors never mutate.
type Queue struct {
	mu      sync.RWMutex
	entries map[string]domain.QueueEntry
	seq     int64
	now     func() time.Time
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{entries: make(map[string]domain.QueueEntry), now: time.Now}
}

// Enqueue inserts or replaces the entry for the plan's symbol. For a
// replacement the result reports the age of the entry that was displaced.
func (q *Queue) Enqueue(plan domain.OrderPlan) domain.EnqueueResult {
	sym := strings.ToUpper(plan.Symbol)
	now := q.now()

	q.mu.Lock()
	defer q.mu.Unlock()

	prev, replaced := q.entries[sym]

	q.seq++
	entry := domain.QueueEntry{Symbol: sym, Plan: plan, EnqueuedAt: now, Seq: q.seq}
	if replaced {
		// The slot keeps its position in line.
		entry.Seq = prev.Seq
	}
	q.entries[sym] = entry

	res := domain.EnqueueResult{Replaced: replaced}
	if replaced {
		res.Age = now.Sub(prev.EnqueuedAt)
	}
	res.Position = q.positionLocked(entry.Seq)
	return res
}

// positionLocked counts entries at or before the given sequence.
func (q *Queue) positionLocked(seq int64) int {
	pos := 0
	for _, e := range q.entries {
		if e.Seq <= seq {
			pos++
		}
	}
	return pos
}

// Get returns the live entry for a symbol without mutating the queue.
func (q *Queue) Get(symbol string) (domain.QueueEntry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	e, ok := q.entries[strings.ToUpper(symbol)]
	return e, ok
}

// Entries returns all live entries in queue order. The slice is a copy.
func (q *Queue) Entries() []domain.QueueEntry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]domain.QueueEntry, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Remove drops a symbol's entry, reporting whether one existed.
func (q *Queue) Remove(symbol string) bool {
	sym := strings.ToUpper(symbol)
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[sym]
	delete(q.entries, sym)
	return ok
}

// Len returns the number of live entries.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}
