package store

import (
	"context"
	"testing"
	"time"

	"prefcore/internal/domain"
)

func samplePrints(day time.Time) []domain.TradePrint {
	return []domain.TradePrint{
		{Symbol: "X-PA", Price: 25.00, Size: 100, Timestamp: day.Add(10 * time.Hour), Venue: "N"},
		{Symbol: "X-PA", Price: 25.05, Size: 200, Timestamp: day.Add(11 * time.Hour), Venue: "N"},
		{Symbol: "Y-PB", Price: 10.00, Size: 300, Timestamp: day.Add(10 * time.Hour), Venue: "P"},
	}
}

func TestWriteAndReadPrints(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	if err := s.WritePrints(ctx, samplePrints(day)); err != nil {
		t.Fatalf("WritePrints: %v", err)
	}

	got, err := s.ReadPrints("x-pa", day)
	if err != nil {
		t.Fatalf("ReadPrints: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d prints, want 2", len(got))
	}
	if got[0].Price != 25.00 || got[1].Price != 25.05 {
		t.Errorf("prints out of order: %+v", got)
	}

	syms, err := s.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(syms) != 2 || syms[0] != "X-PA" || syms[1] != "Y-PB" {
		t.Errorf("ListSymbols = %v", syms)
	}
}

func TestWritePrintsMergesAndDedupes(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	if err := s.WritePrints(ctx, samplePrints(day)); err != nil {
		t.Fatalf("first write: %v", err)
	}
	// Rewrite the same prints plus one new one.
	extra := append(samplePrints(day), domain.TradePrint{
		Symbol: "X-PA", Price: 25.10, Size: 150, Timestamp: day.Add(12 * time.Hour), Venue: "N",
	})
	if err := s.WritePrints(ctx, extra); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := s.ReadPrints("X-PA", day)
	if err != nil {
		t.Fatalf("ReadPrints: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d prints after merge, want 3 (duplicates collapsed)", len(got))
	}
}

func TestReadPrintsMissingFile(t *testing.T) {
	s := NewParquetStore(t.TempDir())

	got, err := s.ReadPrints("NONE-PA", time.Now())
	if err != nil {
		t.Fatalf("ReadPrints on missing file: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d prints from missing file", len(got))
	}
}

func TestPrintsSplitAcrossDates(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()
	day1 := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)

	err := s.WritePrints(ctx, []domain.TradePrint{
		{Symbol: "X-PA", Price: 24.90, Size: 100, Timestamp: day1},
		{Symbol: "X-PA", Price: 25.00, Size: 100, Timestamp: day2},
	})
	if err != nil {
		t.Fatalf("WritePrints: %v", err)
	}

	if got, _ := s.ReadPrints("X-PA", day1); len(got) != 1 || got[0].Price != 24.90 {
		t.Errorf("day1 prints = %+v", got)
	}
	if got, _ := s.ReadPrints("X-PA", day2); len(got) != 1 || got[0].Price != 25.00 {
		t.Errorf("day2 prints = %+v", got)
	}
}
