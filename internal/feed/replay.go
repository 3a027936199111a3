package feed

import (
	"context"
	"time"

	"prefcore/internal/domain"
)

// Compile-time interface check.
var _ Feed = (*Replay)(nil)

// Replay delivers canned quotes and prints in order, for tests and for
// driving the core without market access. A zero interval delivers as fast
// as the handlers consume.
type Replay struct {
	Quotes   []domain.Quote
	Prints   []domain.TradePrint
	Interval time.Duration
	OnQuote  QuoteHandler
	OnPrint  PrintHandler
}

// Name returns "replay".
func (r *Replay) Name() string { return "replay" }

// Run interleaves the canned events by timestamp order of their slices:
// quotes first, then prints, stepping by Interval between events.
func (r *Replay) Run(ctx context.Context) error {
	step := func() error {
		if r.Interval <= 0 {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Interval):
			return nil
		}
	}

	for _, q := range r.Quotes {
		if r.OnQuote != nil {
			r.OnQuote(q)
		}
		if err := step(); err != nil {
			return err
		}
	}
	for _, p := range r.Prints {
		if r.OnPrint != nil {
			r.OnPrint(p)
		}
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
