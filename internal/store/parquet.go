package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"prefcore/internal/domain"
)

// Compile-time interface check.
var _ PrintStore = (*ParquetStore)(nil)

// ParquetStore implements PrintStore using Parquet files on disk.
// Layout: <dataDir>/us/prints/<SYMBOL>/<YYYY-MM-DD>.parquet
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// PrintRecord is the on-disk Parquet schema for one trade print.
type PrintRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price     float64 `parquet:"price"`
	Size      int64   `parquet:"size"`
	Venue     string  `parquet:"venue"`
}

// WritePrints writes prints grouped by symbol and session date, merging with
// any existing file.
func (s *ParquetStore) WritePrints(_ context.Context, prints []domain.TradePrint) error {
	if len(prints) == 0 {
		return nil
	}

	type key struct {
		symbol string
		date   string
	}
	groups := make(map[key][]PrintRecord)
	for _, p := range prints {
		sym := strings.ToUpper(p.Symbol)
		k := key{symbol: sym, date: p.Timestamp.Format("2006-01-02")}
		groups[k] = append(groups[k], PrintRecord{
			Symbol:    sym,
			Timestamp: p.Timestamp.UnixMilli(),
			Price:     p.Price,
			Size:      p.Size,
			Venue:     p.Venue,
		})
	}

	for k, records := range groups {
		day, _ := time.Parse("2006-01-02", k.date)
		path := s.printPath(k.symbol, day)

		existing, _ := readParquetFile[PrintRecord](path)
		merged := mergePrintRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing prints for %s/%s: %w", k.symbol, k.date, err)
		}
	}
	return nil
}

// ReadPrints reads one symbol's prints for a session date.
func (s *ParquetStore) ReadPrints(symbol string, day time.Time) ([]domain.TradePrint, error) {
	path := s.printPath(symbol, day)
	records, err := readParquetFile[PrintRecord](path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading prints from %s: %w", path, err)
	}

	out := make([]domain.TradePrint, 0, len(records))
	for _, r := range records {
		out = append(out, domain.TradePrint{
			Symbol:    r.Symbol,
			Timestamp: time.UnixMilli(r.Timestamp),
			Price:     r.Price,
			Size:      r.Size,
			Venue:     r.Venue,
		})
	}
	return out, nil
}

// ListSymbols lists all symbols with stored print history.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "us", "prints")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// printPath returns the file path for one symbol and session date.
func (s *ParquetStore) printPath(symbol string, day time.Time) string {
	return filepath.Join(s.DataDir, "us", "prints", strings.ToUpper(symbol), day.Format("2006-01-02")+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergePrintRecords deduplicates by (timestamp, price, size, venue) and sorts
// by timestamp. Prints carry no venue-assigned ID, so the full tuple is the
// identity.
func mergePrintRecords(existing, incoming []PrintRecord) []PrintRecord {
	type key struct {
		ts    int64
		price float64
		size  int64
		venue string
	}
	seen := make(map[key]PrintRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Timestamp, r.Price, r.Size, r.Venue}] = r
	}
	for _, r := range incoming {
		seen[key{r.Timestamp, r.Price, r.Size, r.Venue}] = r
	}

	merged := make([]PrintRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
