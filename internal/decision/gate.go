package decision

import (
	"fmt"

	"prefcore/internal/domain"
)

// GateConfig holds the gate floors.
type GateConfig struct {
	SpreadFloor        float64 // minimum spread worth quoting into
	ConcentrationFloor float64 // minimum concentration percent
	MinQualifyingCount int     // minimum prints behind the signal
}

// Gate is the final advisory check before a plan may be surfaced for
// approval. A pass never submits anything: execution requires a separately
// approved intent record. Every result, allow or block, carries a reason.
type Gate struct {
	cfg GateConfig
}

// NewGate creates a Gate.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{cfg: cfg}
}

// Evaluate checks one actionable plan against the spread floor, the
// concentration floor, and the position guard.
func (g *Gate) Evaluate(plan domain.OrderPlan, live domain.LiveSnapshot, window domain.ConcentrationWindow, guard domain.GuardResult) domain.GateResult {
	block := func(reason string) domain.GateResult {
		return domain.GateResult{Symbol: plan.Symbol, Allowed: false, Reason: reason}
	}

	if !plan.Actionable {
		return block(fmt.Sprintf("no actionable plan: %s", plan.Reason))
	}
	if live.Spread < g.cfg.SpreadFloor {
		return block(fmt.Sprintf("spread %.3f below floor %.3f", live.Spread, g.cfg.SpreadFloor))
	}
	if !window.Valid {
		return block("no concentration window")
	}
	if window.ConcentrationPct < g.cfg.ConcentrationFloor {
		return block(fmt.Sprintf("concentration %.1f%% below floor %.1f%%",
			window.ConcentrationPct, g.cfg.ConcentrationFloor))
	}
	if window.QualifyingCount < g.cfg.MinQualifyingCount {
		return block(fmt.Sprintf("only %d qualifying prints, need %d",
			window.QualifyingCount, g.cfg.MinQualifyingCount))
	}

	var action domain.ActionKind
	switch plan.Side {
	case domain.SideBuy:
		action = domain.ActionBuy
	case domain.SideSell:
		action = domain.ActionSell
	default:
		return block(fmt.Sprintf("plan has no side: %+v", plan))
	}
	if !guard.Allowed.Has(action) {
		return block(fmt.Sprintf("guard %s: %s", guard.Status, guard.Reason))
	}

	return domain.GateResult{
		Symbol:  plan.Symbol,
		Allowed: true,
		Reason: fmt.Sprintf("%s %d @ %.2f: spread %.3f, concentration %.1f%%, guard %s",
			plan.Side, plan.Size, plan.Price, live.Spread, window.ConcentrationPct, guard.Status),
	}
}
