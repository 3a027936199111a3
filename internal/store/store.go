// Package store persists qualifying trade prints as Parquet files, one file
// per symbol and session date. The backfiller reads this history before
// falling back to the market-data API.
package store

import (
	"context"
	"time"

	"prefcore/internal/domain"
)

// PrintStore persists and retrieves trade prints.
type PrintStore interface {
	// WritePrints persists prints, merged and deduplicated against any
	// existing file for the same symbol and date.
	WritePrints(ctx context.Context, prints []domain.TradePrint) error

	// ReadPrints returns the prints stored for one symbol and session date.
	// A missing file yields an empty slice, not an error.
	ReadPrints(symbol string, day time.Time) ([]domain.TradePrint, error)

	// ListSymbols lists all symbols with stored print history.
	ListSymbols(ctx context.Context) ([]string, error)
}
