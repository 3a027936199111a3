package decision

import (
	"fmt"

	"prefcore/internal/domain"
)

// IntentConfig holds the rank thresholds an intent requires.
type IntentConfig struct {
	BuyRankFloor  float64 // minimum buy-side percentile to propose a buy
	SellRankFloor float64 // minimum sell-side percentile to propose a sell
}

// DefaultIntentConfig requires a symbol to be in the top fifth of its peer
// group on a side before proposing action on it.
func DefaultIntentConfig() IntentConfig {
	return IntentConfig{BuyRankFloor: 80, SellRankFloor: 80}
}

// IntentEngine maps state, scores and ranks to a discrete disposition. Same
// inputs always give the same intent.
type IntentEngine struct {
	cfg IntentConfig
}

// NewIntentEngine creates an IntentEngine.
func NewIntentEngine(cfg IntentConfig) *IntentEngine {
	return &IntentEngine{cfg: cfg}
}

// Evaluate derives the intent for one symbol. Anything short of a tradeable
// state with computed scores and ranks is a wait.
func (e *IntentEngine) Evaluate(symbol string, state domain.SymbolState, live domain.LiveSnapshot, scores domain.DerivedScoreRecord, rank domain.RankRecord) domain.Intent {
	wait := func(reason string) domain.Intent {
		return domain.Intent{Symbol: symbol, Kind: domain.IntentWait, Reason: reason}
	}

	if state != domain.StateTradeable {
		return wait(fmt.Sprintf("state %s", state))
	}
	if scores.Status != domain.StatusComputed {
		return wait(fmt.Sprintf("scores %s", scores.Status))
	}
	if rank.Status != domain.StatusComputed {
		return wait(fmt.Sprintf("rank %s", rank.Status))
	}

	buyStrong := rank.BuyPct >= e.cfg.BuyRankFloor
	sellStrong := rank.SellPct >= e.cfg.SellRankFloor
	if buyStrong && sellStrong {
		// A symbol cannot be the best candidate on both sides of a multi
		// symbol group; this only happens for near-singleton groups.
		return wait("ambiguous rank signal")
	}

	switch {
	case buyStrong:
		kind := domain.IntentBuyBid
		if scores.Composites[domain.VariantFrontBuy] > scores.Composites[domain.VariantBidBuy] {
			kind = domain.IntentBuyFront
		}
		return domain.Intent{
			Symbol: symbol,
			Kind:   kind,
			Reason: fmt.Sprintf("buy rank %.0f%% in group %s", rank.BuyPct, rank.GroupKey),
		}
	case sellStrong:
		kind := domain.IntentSellAsk
		if scores.Composites[domain.VariantFrontSell] < scores.Composites[domain.VariantAskSell] {
			kind = domain.IntentSellFront
		}
		return domain.Intent{
			Symbol: symbol,
			Kind:   kind,
			Reason: fmt.Sprintf("sell rank %.0f%% in group %s", rank.SellPct, rank.GroupKey),
		}
	}
	return wait(fmt.Sprintf("buy rank %.0f%%, sell rank %.0f%%, below floors", rank.BuyPct, rank.SellPct))
}
