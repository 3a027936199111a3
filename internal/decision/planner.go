package decision

import (
	"fmt"

	"prefcore/internal/domain"
)

// PlannerConfig controls sizing and the confirmation signal a plan requires.
type PlannerConfig struct {
	LotSize            int64   // shares per planned order
	ConcentrationFloor float64 // minimum concentration percent for confirmation
	MinQualifyingCount int     // minimum prints at the modal price
}

// Planner turns an actionable intent into a sized order plan, but only when
// the concentration window confirms real trading interest. An intent without
// the confirmation yields a non-actionable placeholder, never an order.
type Planner struct {
	cfg PlannerConfig
}

// NewPlanner creates a Planner.
func NewPlanner(cfg PlannerConfig) *Planner {
	return &Planner{cfg: cfg}
}

// confirmed reports whether the window qualifies as a confirmation signal.
func (p *Planner) confirmed(w domain.ConcentrationWindow) bool {
	return w.Valid &&
		w.ConcentrationPct >= p.cfg.ConcentrationFloor &&
		w.QualifyingCount >= p.cfg.MinQualifyingCount
}

// Plan builds the order plan for one symbol.
func (p *Planner) Plan(intent domain.Intent, scores domain.DerivedScoreRecord, window domain.ConcentrationWindow) domain.OrderPlan {
	placeholder := func(reason string) domain.OrderPlan {
		return domain.OrderPlan{Symbol: intent.Symbol, Actionable: false, Reason: reason}
	}

	if !intent.Kind.Actionable() {
		return placeholder(intent.Reason)
	}
	if scores.Status != domain.StatusComputed {
		return placeholder(fmt.Sprintf("scores %s", scores.Status))
	}
	if !p.confirmed(window) {
		if !window.Valid {
			return placeholder("no concentration signal")
		}
		return placeholder(fmt.Sprintf("concentration %.1f%% over %d prints below confirmation",
			window.ConcentrationPct, window.QualifyingCount))
	}

	var price float64
	switch intent.Kind {
	case domain.IntentBuyBid:
		price = scores.RefPrices[domain.VariantBidBuy]
	case domain.IntentBuyFront:
		price = scores.RefPrices[domain.VariantFrontBuy]
	case domain.IntentSellAsk:
		price = scores.RefPrices[domain.VariantAskSell]
	case domain.IntentSellFront:
		price = scores.RefPrices[domain.VariantFrontSell]
	default:
		return placeholder(fmt.Sprintf("unplannable intent %s", intent.Kind))
	}

	return domain.OrderPlan{
		Symbol:     intent.Symbol,
		Actionable: true,
		Side:       intent.Kind.Side(),
		Price:      price,
		Size:       p.cfg.LotSize,
		Reason: fmt.Sprintf("%s: %s, confirmed by %.1f%% concentration at %.2f",
			intent.Kind, intent.Reason, window.ConcentrationPct, window.Price),
	}
}
