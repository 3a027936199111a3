// Package feed delivers live quotes and trade prints to the ingestion
// handlers, and adapts the historical market-data API for the bootstrap and
// backfill paths.
package feed

import (
	"context"

	"prefcore/internal/domain"
)

// QuoteHandler receives one top-of-book update. Handlers must be O(1); the
// feed goroutine delivers on its own stack.
type QuoteHandler func(domain.Quote)

// PrintHandler receives one trade print.
type PrintHandler func(domain.TradePrint)

// Feed is a live market-data source. Run blocks until ctx is cancelled or
// the connection fails terminally.
type Feed interface {
	Name() string
	Run(ctx context.Context) error
}
