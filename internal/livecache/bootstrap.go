package livecache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"prefcore/internal/util"
)

// PrevCloseFetcher fetches a symbol's previous regular-session close from an
// external source.
type PrevCloseFetcher interface {
	PrevClose(ctx context.Context, symbol string) (float64, error)
}

// Bootstrapper feeds previous closes into the cache off the ingestion path.
// Requests are queued and deduplicated, draining is token-bucket rate
// limited, and failures are cached with a TTL so a dead symbol cannot cause
// a retry storm.
type Bootstrapper struct {
	cache   *Cache
	fetcher PrevCloseFetcher
	limiter *util.RateLimiter
	ttl     time.Duration
	log     *slog.Logger

	mu       sync.Mutex
	queued   map[string]bool
	queue    []string
	failedAt map[string]time.Time
}

// NewBootstrapper creates a Bootstrapper draining at most requestsPerMin
// fetches per minute, suppressing retries of failed symbols for failureTTL.
func NewBootstrapper(cache *Cache, fetcher PrevCloseFetcher, requestsPerMin int, failureTTL time.Duration, log *slog.Logger) *Bootstrapper {
	return &Bootstrapper{
		cache:    cache,
		fetcher:  fetcher,
		limiter:  util.NewRateLimiter(requestsPerMin),
		ttl:      failureTTL,
		log:      log,
		queued:   make(map[string]bool),
		failedAt: make(map[string]time.Time),
	}
}

// Request enqueues a bootstrap fetch for a symbol. It never blocks and is
// safe to call from the ingestion path. Duplicate requests and symbols inside
// the failure TTL are dropped.
func (b *Bootstrapper) Request(symbol string) {
	sym := strings.ToUpper(symbol)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queued[sym] {
		return
	}
	if at, ok := b.failedAt[sym]; ok && time.Since(at) < b.ttl {
		return
	}
	b.queued[sym] = true
	b.queue = append(b.queue, sym)
}

// Pending returns the current queue depth.
func (b *Bootstrapper) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Run drains the queue until ctx is cancelled. Each fetch waits on the rate
// limiter first; a fetch error marks the symbol failed for the TTL.
func (b *Bootstrapper) Run(ctx context.Context) error {
	for {
		sym, ok := b.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}

		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}

		px, err := b.fetcher.PrevClose(ctx, sym)
		if err != nil {
			b.mu.Lock()
			b.failedAt[sym] = time.Now()
			b.mu.Unlock()
			b.log.Warn("prev close bootstrap failed", "symbol", sym, "error", err)
			continue
		}

		if b.cache.SetPrevClose(sym, px) {
			b.log.Debug("prev close bootstrapped", "symbol", sym, "prevClose", px)
		}
	}
}

// RequestMissing enqueues every symbol the cache reports as missing a
// previous close. Called periodically by the pipeline.
func (b *Bootstrapper) RequestMissing() {
	for _, sym := range b.cache.MissingPrevClose() {
		b.Request(sym)
	}
}

func (b *Bootstrapper) pop() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return "", false
	}
	sym := b.queue[0]
	b.queue = b.queue[1:]
	delete(b.queued, sym)
	return sym, true
}
