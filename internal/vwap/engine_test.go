package vwap

import (
	"math"
	"testing"
	"time"

	"prefcore/internal/domain"
)

type fakeVols map[string]int64

func (f fakeVols) AvgDailyVolume(symbol string) int64 { return f[symbol] }

func testConfig() Config {
	return Config{Days: []int{3, 5}, OutlierMultiplier: 0.5, MaxPrints: 1000}
}

func print(sym string, px float64, size int64, at time.Time) domain.TradePrint {
	return domain.TradePrint{Symbol: sym, Price: px, Size: size, Timestamp: at}
}

func TestVWAPBasic(t *testing.T) {
	e := NewEngine(testConfig(), fakeVols{}, nil)
	now := time.Now()

	e.Ingest(print("X-PA", 10.00, 100, now.Add(-24*time.Hour)))
	e.Ingest(print("X-PA", 11.00, 300, now.Add(-time.Hour)))
	e.ComputeAll(now)

	wins := e.Windows("X-PA")
	if len(wins) != 2 {
		t.Fatalf("got %d windows, want 2", len(wins))
	}
	want := (10.00*100 + 11.00*300) / 400
	for _, w := range wins {
		if !w.Valid {
			t.Fatalf("window %d invalid: %+v", w.Days, w)
		}
		if math.Abs(w.VWAP-want) > 1e-9 {
			t.Errorf("window %d VWAP = %v, want %v", w.Days, w.VWAP, want)
		}
	}
}

func TestVWAPHorizonSeparation(t *testing.T) {
	e := NewEngine(testConfig(), fakeVols{}, nil)
	now := time.Now()

	e.Ingest(print("X-PA", 10.00, 100, now.AddDate(0, 0, -4))) // in 5d only
	e.Ingest(print("X-PA", 12.00, 100, now.Add(-time.Hour)))
	e.ComputeAll(now)

	wins := e.Windows("X-PA")
	if wins[0].PrintCount != 1 || wins[0].VWAP != 12.00 {
		t.Errorf("3d window = %+v, want only recent print", wins[0])
	}
	if wins[1].PrintCount != 2 || math.Abs(wins[1].VWAP-11.00) > 1e-9 {
		t.Errorf("5d window = %+v, want both prints", wins[1])
	}
}

func TestOutlierExclusion(t *testing.T) {
	// avgVol 1000 × multiplier 0.5 = size limit 500.
	e := NewEngine(testConfig(), fakeVols{"X-PA": 1000}, nil)
	now := time.Now()

	e.Ingest(print("X-PA", 10.00, 100, now.Add(-time.Hour)))
	e.Ingest(print("X-PA", 99.00, 600, now.Add(-time.Hour))) // outlier
	e.ComputeAll(now)

	w := e.Windows("X-PA")[0]
	if w.VWAP != 10.00 || w.PrintCount != 1 {
		t.Errorf("window = %+v, want the outlier excluded", w)
	}
	if w.ExcludedCount != 1 {
		t.Errorf("ExcludedCount = %d, want 1", w.ExcludedCount)
	}
}

func TestNoOutlierFilterWithoutAvgVolume(t *testing.T) {
	e := NewEngine(testConfig(), fakeVols{}, nil)
	now := time.Now()

	e.Ingest(print("X-PA", 10.00, 1_000_000, now.Add(-time.Hour)))
	e.ComputeAll(now)

	w := e.Windows("X-PA")[0]
	if !w.Valid || w.PrintCount != 1 {
		t.Errorf("window = %+v, want print admitted when avg volume unknown", w)
	}
}

func TestEmptyWindowInvalid(t *testing.T) {
	e := NewEngine(testConfig(), fakeVols{}, nil)
	e.Ingest(print("X-PA", 10.00, 100, time.Now().AddDate(0, 0, -10)))
	e.ComputeAll(time.Now())

	for _, w := range e.Windows("X-PA") {
		if w.Valid {
			t.Errorf("window %d valid with no in-horizon prints", w.Days)
		}
		if w.VWAP != 0 {
			t.Errorf("invalid window carries VWAP %v", w.VWAP)
		}
	}
}

func TestDeviationMeanOfValidWindows(t *testing.T) {
	e := NewEngine(testConfig(), fakeVols{}, nil)
	now := time.Now()

	e.Ingest(print("X-PA", 10.00, 100, now.AddDate(0, 0, -4))) // 5d only
	e.Ingest(print("X-PA", 12.00, 100, now.Add(-time.Hour)))
	e.ComputeAll(now)

	// 3d VWAP = 12.00, 5d VWAP = 11.00, mean = 11.50.
	dev, ok := e.Deviation("X-PA", 12.00)
	if !ok {
		t.Fatal("deviation unavailable")
	}
	if math.Abs(dev-0.50) > 1e-9 {
		t.Errorf("deviation = %v, want 0.50", dev)
	}

	if _, ok := e.Deviation("NOPE-PA", 10); ok {
		t.Error("deviation for unknown symbol should be unavailable")
	}
}

func TestHistoryBound(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPrints = 5
	e := NewEngine(cfg, fakeVols{}, nil)
	now := time.Now()

	for i := 0; i < 10; i++ {
		e.Ingest(print("X-PA", 10.00, 100, now.Add(time.Duration(i)*time.Second)))
	}
	e.ComputeAll(now.Add(time.Minute))

	if w := e.Windows("X-PA")[0]; w.PrintCount != 5 {
		t.Errorf("PrintCount = %d, want history capped at 5", w.PrintCount)
	}
}
