// Package refstore owns the static per-symbol reference data: benchmark
// group, fundamental score, average daily volume, and peer group key. Records
// are bulk-loaded at startup and immutable per session except via an explicit
// Reload, which swaps the whole set atomically and never touches live or
// decision state.
package refstore

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"prefcore/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Store holds the reference records behind a read-write lock. Reads are a
// map lookup; Reload replaces the map wholesale.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.ReferenceRecord

	db  *sql.DB // nil when loaded from CSV only
	log *slog.Logger
}

// Open opens (or creates) the SQLite reference database at dbPath and loads
// all records.
func Open(ctx context.Context, dbPath string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening reference db: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring reference schema: %w", err)
	}

	s := &Store{
		records: make(map[string]domain.ReferenceRecord),
		db:      db,
		log:     log,
	}
	if err := s.Reload(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS reference (
	symbol            TEXT PRIMARY KEY,
	benchmark_group   TEXT NOT NULL DEFAULT '',
	fundamental_score REAL NOT NULL DEFAULT 0,
	avg_daily_volume  INTEGER NOT NULL DEFAULT 0,
	group_key         TEXT NOT NULL DEFAULT ''
);`

// Close closes the underlying database connection, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Reload re-reads all records from the database and swaps them in atomically.
// Live snapshots, queue entries, and cached decision artifacts are untouched.
func (s *Store) Reload(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("reload: store was loaded from CSV, no database attached")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, benchmark_group, fundamental_score, avg_daily_volume, group_key FROM reference`)
	if err != nil {
		return fmt.Errorf("querying reference records: %w", err)
	}
	defer rows.Close()

	fresh := make(map[string]domain.ReferenceRecord)
	for rows.Next() {
		var r domain.ReferenceRecord
		if err := rows.Scan(&r.Symbol, &r.BenchmarkGroup, &r.FundamentalScore, &r.AvgDailyVolume, &r.GroupKey); err != nil {
			return fmt.Errorf("scanning reference record: %w", err)
		}
		r.Symbol = strings.ToUpper(r.Symbol)
		fresh[r.Symbol] = r
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating reference records: %w", err)
	}

	s.mu.Lock()
	s.records = fresh
	s.mu.Unlock()

	if s.log != nil {
		s.log.Info("reference records loaded", "count", len(fresh))
	}
	return nil
}

// Upsert inserts or replaces a record in the database and the in-memory map.
func (s *Store) Upsert(ctx context.Context, r domain.ReferenceRecord) error {
	if s.db == nil {
		return fmt.Errorf("upsert: store was loaded from CSV, no database attached")
	}
	r.Symbol = strings.ToUpper(r.Symbol)

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reference (symbol, benchmark_group, fundamental_score, avg_daily_volume, group_key)
		 VALUES (?, ?, ?, ?, ?)`,
		r.Symbol, r.BenchmarkGroup, r.FundamentalScore, r.AvgDailyVolume, r.GroupKey)
	if err != nil {
		return fmt.Errorf("upserting reference record for %s: %w", r.Symbol, err)
	}

	s.mu.Lock()
	s.records[r.Symbol] = r
	s.mu.Unlock()
	return nil
}

// Get returns the record for a symbol and whether it exists.
func (s *Store) Get(symbol string) (domain.ReferenceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[strings.ToUpper(symbol)]
	return r, ok
}

// AvgDailyVolume returns a symbol's average daily volume, zero when unknown.
// Satisfies the VWAP engine's volume source.
func (s *Store) AvgDailyVolume(symbol string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.records[strings.ToUpper(symbol)]; ok {
		return r.AvgDailyVolume
	}
	return 0
}

// Symbols returns all known symbols, sorted.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for sym := range s.records {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of loaded records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ---------------------------------------------------------------------------
// CSV loading (fixtures, one-shot imports)
// ---------------------------------------------------------------------------

// LoadCSV builds a Store from a CSV file without a database attachment.
// Format: symbol,benchmark_group,fundamental_score,avg_daily_volume,group_key
// with a header row.
func LoadCSV(path string, log *slog.Logger) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening reference csv: %w", err)
	}
	defer f.Close()

	records := make(map[string]domain.ReferenceRecord)
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		parts := strings.Split(scanner.Text(), ",")
		if len(parts) < 5 {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			continue
		}
		vol, err := strconv.ParseInt(strings.TrimSpace(parts[3]), 10, 64)
		if err != nil {
			continue
		}
		sym := strings.ToUpper(strings.TrimSpace(parts[0]))
		records[sym] = domain.ReferenceRecord{
			Symbol:           sym,
			BenchmarkGroup:   strings.TrimSpace(parts[1]),
			FundamentalScore: score,
			AvgDailyVolume:   vol,
			GroupKey:         strings.TrimSpace(parts[4]),
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading reference csv: %w", err)
	}

	if log != nil {
		log.Info("reference records loaded from csv", "count", len(records))
	}
	return &Store{records: records, log: log}, nil
}

// NewFromRecords builds an in-memory Store from the given records. Intended
// for tests and simulations.
func NewFromRecords(records []domain.ReferenceRecord) *Store {
	m := make(map[string]domain.ReferenceRecord, len(records))
	for _, r := range records {
		m[strings.ToUpper(r.Symbol)] = r
	}
	return &Store{records: m}
}
