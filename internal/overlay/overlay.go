// Package overlay decouples expensive per-symbol scoring from quote
// ingestion. Ingestion marks symbols dirty; a single drain goroutine batches
// the dirty set to the score pass at a bounded rate.
package overlay

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Config bounds the drain.
type Config struct {
	MinInterval   time.Duration // at most one drain per interval
	BatchSize     int           // symbols per drain call
	MaxQueueDepth int           // overflow drops the oldest entry
}

// DrainFunc receives one batch of dirty symbols.
type DrainFunc func(symbols []string)

// Engine is the dirty-symbol queue. MarkDirty never blocks; slow consumers
// cost staleness on the oldest symbols, never ingestion latency.
type Engine struct {
	cfg   Config
	drain DrainFunc
	log   *slog.Logger

	mu      sync.Mutex
	queued  map[string]bool
	queue   []string
	dropped int64
}

// New creates an overlay Engine delivering batches to drain.
func New(cfg Config, drain DrainFunc, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		drain:  drain,
		log:    log.With("engine", "overlay"),
		queued: make(map[string]bool),
	}
}

// MarkDirty queues a symbol for rescoring. Duplicates collapse into the
// existing entry; overflow evicts the oldest queued symbol.
func (e *Engine) MarkDirty(symbol string) {
	sym := strings.ToUpper(symbol)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.queued[sym] {
		return
	}
	if e.cfg.MaxQueueDepth > 0 && len(e.queue) >= e.cfg.MaxQueueDepth {
		oldest := e.queue[0]
		e.queue = e.queue[1:]
		delete(e.queued, oldest)
		e.dropped++
	}
	e.queued[sym] = true
	e.queue = append(e.queue, sym)
}

// Pending returns the dirty-queue depth.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Dropped returns how many symbols overflow has evicted.
func (e *Engine) Dropped() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

// take removes up to BatchSize symbols from the front of the queue.
func (e *Engine) take() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.queue)
	if e.cfg.BatchSize > 0 && n > e.cfg.BatchSize {
		n = e.cfg.BatchSize
	}
	if n == 0 {
		return nil
	}
	batch := make([]string, n)
	copy(batch, e.queue[:n])
	e.queue = e.queue[n:]
	for _, sym := range batch {
		delete(e.queued, sym)
	}
	return batch
}

// Run drains batches until ctx is cancelled. Consecutive drains are spaced
// by at least MinInterval regardless of queue depth.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.MinInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		batch := e.take()
		if len(batch) == 0 {
			continue
		}
		e.drain(batch)
	}
}
