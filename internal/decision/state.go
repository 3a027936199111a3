// Package decision holds the per-cycle decision chain: symbol state, intent,
// order planning, the single-slot-per-symbol queue, and the advisory order
// gate. Every stage is a pure function of the current cycle's inputs; the
// only mutable state in the package is the queue.
package decision

import (
	"fmt"
	"time"

	"prefcore/internal/domain"
)

// StateConfig bounds tradeability classification.
type StateConfig struct {
	MaxSpread  float64       // absolute spread ceiling
	StaleAfter time.Duration // live data older than this blocks the symbol
}

// StateEngine classifies symbols for the current cycle. It keeps no history;
// the caller passes the previous cycle's state to derive the transition
// reason.
type StateEngine struct {
	cfg StateConfig
	now func() time.Time
}

// NewStateEngine creates a StateEngine.
func NewStateEngine(cfg StateConfig) *StateEngine {
	return &StateEngine{cfg: cfg, now: time.Now}
}

// Evaluate classifies one symbol from its current inputs only. transition is
// empty when the state did not change since the previous cycle.
func (e *StateEngine) Evaluate(live domain.LiveSnapshot, haveLive bool, prev domain.SymbolState) (state domain.SymbolState, reason, transition string) {
	switch {
	case !haveLive || live.UpdatedAt.IsZero():
		state, reason = domain.StateIdle, "no live data"
	case e.cfg.StaleAfter > 0 && e.now().Sub(live.UpdatedAt) > e.cfg.StaleAfter:
		state, reason = domain.StateBlockedStale,
			fmt.Sprintf("last update %s ago", e.now().Sub(live.UpdatedAt).Round(time.Second))
	case !live.HasPrevClose:
		state, reason = domain.StateCollecting, "previous close not bootstrapped"
	case live.Bid <= 0 || live.Ask <= 0 || live.Last <= 0:
		state, reason = domain.StateCollecting, "incomplete quote"
	case live.Spread > e.cfg.MaxSpread:
		state, reason = domain.StateBlockedSpread,
			fmt.Sprintf("spread %.2f above ceiling %.2f", live.Spread, e.cfg.MaxSpread)
	default:
		state, reason = domain.StateTradeable, "quote complete and inside limits"
	}

	if prev != "" && prev != state {
		transition = fmt.Sprintf("%s to %s", prev, state)
	}
	return state, reason, transition
}
