// Package venue abstracts the brokerage: one account-state fetch per cycle
// and order submission for the live execution mode.
package venue

import (
	"context"

	"prefcore/internal/domain"
)

// Venue is the brokerage collaborator. AccountState returns positions and
// open orders in one call so the pipeline can fetch once per cycle and share
// the result across every symbol.
type Venue interface {
	// Name returns the venue identifier (e.g. "alpaca", "simulator").
	Name() string

	// AccountState fetches current positions and open orders.
	AccountState(ctx context.Context) (domain.AccountState, error)

	// SubmitOrder routes one planned order. Returns the venue's order ID.
	SubmitOrder(ctx context.Context, plan domain.OrderPlan) (string, error)
}
