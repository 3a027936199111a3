package livecache

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"prefcore/internal/domain"
)

func TestApplyQuoteAndSnapshot(t *testing.T) {
	c := New([]string{"PFF", "TLT"})

	c.ApplyQuote(domain.Quote{Symbol: "wfc-pl", Bid: 24.80, Ask: 24.95, Last: 24.90, Volume: 1200, Timestamp: time.Now()})

	s, ok := c.Snapshot("WFC-PL")
	if !ok {
		t.Fatal("snapshot missing after ApplyQuote")
	}
	if s.Bid != 24.80 || s.Ask != 24.95 || s.Last != 24.90 {
		t.Errorf("snapshot = %+v", s)
	}
	if diff := s.Spread - 0.15; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("spread = %v, want 0.15", s.Spread)
	}
	if s.HasPrevClose {
		t.Error("prev close should not be set by the live stream")
	}
}

func TestQuotePartialUpdateKeepsFields(t *testing.T) {
	c := New(nil)
	c.ApplyQuote(domain.Quote{Symbol: "X-PA", Bid: 10, Ask: 10.2, Last: 10.1})
	// Trade-only update: no bid/ask.
	c.ApplyQuote(domain.Quote{Symbol: "X-PA", Last: 10.15})

	s, _ := c.Snapshot("X-PA")
	if s.Bid != 10 || s.Ask != 10.2 {
		t.Errorf("bid/ask lost on partial update: %+v", s)
	}
	if s.Last != 10.15 {
		t.Errorf("last = %v, want 10.15", s.Last)
	}
}

func TestSetPrevCloseOnce(t *testing.T) {
	c := New(nil)
	c.ApplyQuote(domain.Quote{Symbol: "X-PA", Last: 25.0})

	if !c.SetPrevClose("X-PA", 24.70) {
		t.Fatal("first SetPrevClose should succeed")
	}
	if c.SetPrevClose("X-PA", 99.0) {
		t.Fatal("second SetPrevClose should be rejected")
	}

	s, _ := c.Snapshot("X-PA")
	if s.PrevClose != 24.70 || !s.HasPrevClose {
		t.Errorf("snapshot = %+v, want prev close 24.70", s)
	}
}

func TestBasketRouting(t *testing.T) {
	c := New([]string{"PFF"})
	c.ApplyQuote(domain.Quote{Symbol: "PFF", Last: 31.50})
	c.SetPrevClose("PFF", 31.40)

	basket := c.BasketSnapshot()
	if len(basket) != 1 {
		t.Fatalf("basket has %d entries, want 1", len(basket))
	}
	if basket["PFF"].Last != 31.50 || !basket["PFF"].HasPrevClose {
		t.Errorf("basket PFF = %+v", basket["PFF"])
	}

	// Basket symbols do not appear in the universe symbol list.
	if syms := c.Symbols(); len(syms) != 0 {
		t.Errorf("Symbols() = %v, want empty", syms)
	}
}

func TestMissingPrevClose(t *testing.T) {
	c := New([]string{"PFF"})
	c.ApplyQuote(domain.Quote{Symbol: "A-PA", Last: 10})
	c.ApplyQuote(domain.Quote{Symbol: "B-PB", Last: 20})
	c.SetPrevClose("A-PA", 9.9)

	missing := c.MissingPrevClose()
	// B-PB and the PFF basket entry are both missing.
	if len(missing) != 2 {
		t.Fatalf("MissingPrevClose = %v, want 2 entries", missing)
	}
}

// ---------------------------------------------------------------------------
// Bootstrapper
// ---------------------------------------------------------------------------

type fakeFetcher struct {
	closes map[string]float64
	calls  map[string]int
}

func (f *fakeFetcher) PrevClose(_ context.Context, symbol string) (float64, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[symbol]++
	px, ok := f.closes[symbol]
	if !ok {
		return 0, errors.New("no data")
	}
	return px, nil
}

func TestBootstrapperFetchesAndCachesFailures(t *testing.T) {
	c := New(nil)
	c.ApplyQuote(domain.Quote{Symbol: "GOOD-PA", Last: 25})
	c.ApplyQuote(domain.Quote{Symbol: "DEAD-PB", Last: 10})

	f := &fakeFetcher{closes: map[string]float64{"GOOD-PA": 24.70}}
	b := NewBootstrapper(c, f, 6000, time.Hour, slog.Default())

	b.RequestMissing()
	if b.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", b.Pending())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go b.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s, _ := c.Snapshot("GOOD-PA"); s.HasPrevClose {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	s, _ := c.Snapshot("GOOD-PA")
	if !s.HasPrevClose || s.PrevClose != 24.70 {
		t.Fatalf("GOOD-PA not bootstrapped: %+v", s)
	}

	// The failed symbol is inside its TTL: re-requesting is a no-op.
	b.Request("DEAD-PB")
	if b.Pending() != 0 {
		t.Errorf("failed symbol requeued within TTL, Pending = %d", b.Pending())
	}
	if f.calls["DEAD-PB"] != 1 {
		t.Errorf("DEAD-PB fetched %d times, want 1", f.calls["DEAD-PB"])
	}
}

func TestBootstrapperDedupesRequests(t *testing.T) {
	c := New(nil)
	b := NewBootstrapper(c, &fakeFetcher{}, 60, time.Minute, slog.Default())

	b.Request("X-PA")
	b.Request("x-pa")
	b.Request("X-PA")
	if b.Pending() != 1 {
		t.Errorf("Pending = %d, want 1 after duplicate requests", b.Pending())
	}
}
