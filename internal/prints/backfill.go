package prints

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"prefcore/internal/domain"
	"prefcore/internal/util"
)

// HistoryReader reads locally persisted prints for one symbol and session
// date. A miss returns an empty slice, not an error.
type HistoryReader interface {
	ReadPrints(symbol string, day time.Time) ([]domain.TradePrint, error)
}

// TradeFetcher pulls historical trades from the market-data API.
type TradeFetcher interface {
	Trades(ctx context.Context, symbol string, start, end time.Time) ([]domain.TradePrint, error)
}

// Sink receives backfilled prints. Both the concentration and VWAP engines
// implement it.
type Sink interface {
	Ingest(p domain.TradePrint)
}

// Backfiller warms print history for cold-started symbols. Local parquet
// history is consulted first; days with no local data fall through to the
// rate-limited trades API. The drain loop runs on its own goroutine so live
// ingestion never waits on it.
type Backfiller struct {
	local        HistoryReader
	remote       TradeFetcher
	sinks        []Sink
	limiter      *util.RateLimiter
	lookbackDays int
	log          *slog.Logger

	mu     sync.Mutex
	queued map[string]bool
	queue  []string
	done   map[string]bool
}

// NewBackfiller creates a Backfiller covering the given number of trading
// days. local may be nil when no print store is configured.
func NewBackfiller(local HistoryReader, remote TradeFetcher, sinks []Sink, requestsPerMin, lookbackDays int, log *slog.Logger) *Backfiller {
	if log == nil {
		log = slog.Default()
	}
	return &Backfiller{
		local:        local,
		remote:       remote,
		sinks:        sinks,
		limiter:      util.NewRateLimiter(requestsPerMin),
		lookbackDays: lookbackDays,
		log:          log.With("engine", "backfill"),
		queued:       make(map[string]bool),
		done:         make(map[string]bool),
	}
}

// Request enqueues a symbol for backfill. Non-blocking; duplicates and
// already-backfilled symbols are dropped.
func (b *Backfiller) Request(symbol string) {
	sym := strings.ToUpper(symbol)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.queued[sym] || b.done[sym] {
		return
	}
	b.queued[sym] = true
	b.queue = append(b.queue, sym)
}

// Pending returns the queue depth.
func (b *Backfiller) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Run drains the queue until ctx is cancelled.
func (b *Backfiller) Run(ctx context.Context) error {
	for {
		sym, ok := b.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if err := b.fill(ctx, sym); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Warn("backfill failed", "symbol", sym, "error", err)
			continue
		}
		b.mu.Lock()
		b.done[sym] = true
		b.mu.Unlock()
	}
}

// fill loads one symbol's history, newest day last so the sinks see prints
// in time order.
func (b *Backfiller) fill(ctx context.Context, sym string) error {
	now := time.Now()
	var loaded int

	for d := b.lookbackDays - 1; d >= 0; d-- {
		day := util.TradingDaysAgo(now, d)

		var dayPrints []domain.TradePrint
		if b.local != nil {
			local, err := b.local.ReadPrints(sym, day)
			if err != nil {
				b.log.Debug("local print history unreadable", "symbol", sym, "day", day.Format("2006-01-02"), "error", err)
			} else {
				dayPrints = local
			}
		}

		if len(dayPrints) == 0 && b.remote != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return err
			}
			start := time.Date(day.Year(), day.Month(), day.Day(), 9, 30, 0, 0, day.Location())
			end := time.Date(day.Year(), day.Month(), day.Day(), 16, 0, 0, 0, day.Location())
			remote, err := b.remote.Trades(ctx, sym, start, end)
			if err != nil {
				return err
			}
			dayPrints = remote
		}

		for _, p := range dayPrints {
			for _, s := range b.sinks {
				s.Ingest(p)
			}
		}
		loaded += len(dayPrints)
	}

	b.log.Info("backfill complete", "symbol", sym, "prints", loaded, "days", b.lookbackDays)
	return nil
}

func (b *Backfiller) pop() (string, bool) {
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
