package prints

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"prefcore/internal/domain"
)

func testConfig() Config {
	return Config{
		Horizons:     []time.Duration{10 * time.Minute, 30 * time.Minute},
		MinLotSize:   100,
		RingCapacity: 64,
	}
}

func print(sym string, px float64, size int64, at time.Time) domain.TradePrint {
	return domain.TradePrint{Symbol: sym, Price: px, Size: size, Timestamp: at}
}

func TestConcentrationModalPrice(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	now := time.Now()

	// 12 prints @25.00×100 and 3 @24.50×50... but 50 is below the min lot,
	// so use 3 @24.50×50 scaled to qualify: min lot is checked at ingest.
	for i := 0; i < 12; i++ {
		e.Ingest(print("WFC-PL", 25.00, 100, now.Add(-time.Duration(i)*time.Second)))
	}
	for i := 0; i < 3; i++ {
		e.Ingest(print("WFC-PL", 24.50, 50, now))
	}
	if got := e.BufferLen("WFC-PL"); got != 12 {
		t.Fatalf("buffer holds %d prints, want 12 (sub-lot prints rejected)", got)
	}

	e.ComputeAll(now)
	w, ok := e.Latest("WFC-PL")
	if !ok || !w.Valid {
		t.Fatalf("no valid window: ok=%v w=%+v", ok, w)
	}
	if w.Price != 25.00 {
		t.Errorf("modal price = %v, want 25.00", w.Price)
	}
	if w.ConcentrationPct != 100 {
		t.Errorf("concentration = %v, want 100", w.ConcentrationPct)
	}
}

func TestConcentrationPercentSplit(t *testing.T) {
	cfg := testConfig()
	cfg.MinLotSize = 50
	e := NewEngine(cfg, nil)
	now := time.Now()

	for i := 0; i < 12; i++ {
		e.Ingest(print("WFC-PL", 25.00, 100, now.Add(-time.Minute)))
	}
	for i := 0; i < 3; i++ {
		e.Ingest(print("WFC-PL", 24.50, 50, now.Add(-time.Minute)))
	}

	e.ComputeAll(now)
	w, _ := e.Latest("WFC-PL")
	if w.Price != 25.00 {
		t.Fatalf("modal price = %v, want 25.00", w.Price)
	}
	want := 1200.0 / 1350.0 * 100
	if math.Abs(w.ConcentrationPct-want) > 1e-9 {
		t.Errorf("concentration = %v, want %v", w.ConcentrationPct, want)
	}
	if w.PrintCount != 15 || w.QualifyingCount != 12 {
		t.Errorf("counts = %d/%d, want 15/12", w.PrintCount, w.QualifyingCount)
	}
	if w.ConcentrationPct < 0 || w.ConcentrationPct > 100 {
		t.Errorf("concentration %v out of [0,100]", w.ConcentrationPct)
	}
}

func TestWindowEvictsExpiredPrints(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	now := time.Now()

	e.Ingest(print("X-PA", 10.00, 200, now.Add(-20*time.Minute))) // outside 10m
	e.Ingest(print("X-PA", 11.00, 100, now.Add(-time.Minute)))

	e.ComputeAll(now)

	wins := e.Windows("X-PA")
	if len(wins) != 2 {
		t.Fatalf("got %d windows, want 2", len(wins))
	}
	short, long := wins[0], wins[1]
	if short.Price != 11.00 || short.PrintCount != 1 {
		t.Errorf("10m window = %+v, want only the recent print", short)
	}
	if long.PrintCount != 2 {
		t.Errorf("30m window count = %d, want 2", long.PrintCount)
	}
}

func TestEmptyWindowIsInvalidNotZero(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	now := time.Now()

	e.Ingest(print("X-PA", 10.00, 200, now.Add(-25*time.Minute)))
	e.ComputeAll(now)

	wins := e.Windows("X-PA")
	if wins[0].Valid {
		t.Errorf("10m window valid with no prints inside: %+v", wins[0])
	}
	if !wins[1].Valid {
		t.Errorf("30m window should be valid: %+v", wins[1])
	}
}

func TestRingEvictsOldestOnOverflow(t *testing.T) {
	cfg := testConfig()
	cfg.RingCapacity = 4
	e := NewEngine(cfg, nil)
	now := time.Now()

	for i := 0; i < 6; i++ {
		e.Ingest(print("X-PA", 10.0+float64(i), 100, now.Add(time.Duration(i)*time.Second)))
	}
	if got := e.BufferLen("X-PA"); got != 4 {
		t.Fatalf("buffer = %d, want capacity 4", got)
	}

	e.ComputeAll(now.Add(6 * time.Second))
	w, _ := e.Latest("X-PA")
	// Oldest two prints (10.0, 11.0) evicted; four remain at distinct prices.
	if w.PrintCount != 4 {
		t.Errorf("window count = %d, want 4", w.PrintCount)
	}
}

func TestZeroConfigGetsDefaultCapacity(t *testing.T) {
	e := NewEngine(Config{}, nil)
	e.Ingest(print("X-PA", 10.00, 100, time.Now()))
	if got := e.BufferLen("X-PA"); got != 1 {
		t.Fatalf("buffer = %d, want 1", got)
	}
	if e.cfg.RingCapacity != defaultRingCapacity {
		t.Errorf("capacity = %d, want %d", e.cfg.RingCapacity, defaultRingCapacity)
	}
}

func TestDeviationSignal(t *testing.T) {
	cfg := testConfig()
	e := NewEngine(cfg, nil)
	now := time.Now()

	e.Ingest(print("X-PA", 10.00, 100, now.Add(-time.Minute)))
	e.Ingest(print("X-PA", 10.00, 100, now.Add(-20*time.Minute)))
	e.ComputeAll(now)

	// Both windows valid at modal price 10.00; deviation = last − mean.
	dev, ok := e.Deviation("X-PA", 10.25)
	if !ok {
		t.Fatal("deviation unavailable")
	}
	if math.Abs(dev-0.25) > 1e-9 {
		t.Errorf("deviation = %v, want 0.25", dev)
	}

	if _, ok := e.Deviation("NOPE-PA", 10); ok {
		t.Error("deviation for unknown symbol should be unavailable")
	}
}

// ---------------------------------------------------------------------------
// Backfiller
// ---------------------------------------------------------------------------

type fakeHistory struct {
	prints map[string][]domain.TradePrint
}

func (f *fakeHistory) ReadPrints(symbol string, _ time.Time) ([]domain.TradePrint, error) {
	return f.prints[symbol], nil
}

type fakeTrades struct {
	prints []domain.TradePrint
	err    error
	calls  int
}

func (f *fakeTrades) Trades(_ context.Context, _ string, _, _ time.Time) ([]domain.TradePrint, error) {
	f.calls++
	return f.prints, f.err
}

func TestBackfillerPrefersLocalHistory(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	local := &fakeHistory{prints: map[string][]domain.TradePrint{
		"X-PA": {print("X-PA", 10.00, 200, time.Now().Add(-time.Minute))},
	}}
	remote := &fakeTrades{}
	b := NewBackfiller(local, remote, []Sink{e}, 6000, 1, nil)

	b.Request("x-pa")
	b.Request("X-PA")
	if b.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", b.Pending())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go b.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && e.BufferLen("X-PA") == 0 {
		time.Sleep(10 * time.Millisecond)
	}

	if e.BufferLen("X-PA") != 1 {
		t.Fatalf("buffer = %d, want 1 backfilled print", e.BufferLen("X-PA"))
	}
	if remote.calls != 0 {
		t.Errorf("remote fetched %d times with local history present", remote.calls)
	}

	// Completed symbols are not requeued.
	b.Request("X-PA")
	if b.Pending() != 0 {
		t.Errorf("completed symbol requeued, Pending = %d", b.Pending())
	}
}

func TestBackfillerFallsThroughToRemote(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	remote := &fakeTrades{prints: []domain.TradePrint{print("Y-PB", 20.00, 300, time.Now().Add(-time.Minute))}}
	b := NewBackfiller(&fakeHistory{}, remote, []Sink{e}, 6000, 1, nil)

	b.Request("Y-PB")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go b.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && e.BufferLen("Y-PB") == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if e.BufferLen("Y-PB") != 1 {
		t.Fatalf("buffer = %d, want 1 remote print", e.BufferLen("Y-PB"))
	}
	if remote.calls != 1 {
		t.Errorf("remote calls = %d, want 1", remote.calls)
	}
}

func TestBackfillerFailureDoesNotMarkDone(t *testing.T) {
	remote := &fakeTrades{err: errors.New("api down")}
	b := NewBackfiller(nil, remote, nil, 6000, 1, nil)

	b.Request("Z-PC")
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	b.Run(ctx)

	// The symbol failed, so a fresh request must queue again.
	b.Request("Z-PC")
	if b.Pending() != 1 {
		t.Errorf("failed symbol not requeueable, Pending = %d", b.Pending())
	}
}
