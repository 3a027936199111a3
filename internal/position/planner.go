package position

import (
	"fmt"

	"prefcore/internal/domain"
)

// NextAction is the ActionPlanner's proposal for the next step of the
// external execution workflow.
type NextAction struct {
	Symbol string
	Action domain.ActionKind // zero when nothing is permitted
	Reason string
}

// ActionPlanner reconciles the guard's allowed set, the exposure mode, and
// the current intent into the single next permitted action. It proposes; the
// downstream workflow decides.
type ActionPlanner struct{}

// NewActionPlanner creates an ActionPlanner.
func NewActionPlanner() *ActionPlanner {
	return &ActionPlanner{}
}

// Propose returns the next permitted action for one symbol.
func (p *ActionPlanner) Propose(intent domain.Intent, guard domain.GuardResult, mode domain.ExposureMode) NextAction {
	none := func(reason string) NextAction {
		return NextAction{Symbol: intent.Symbol, Reason: reason}
	}

	if !intent.Kind.Actionable() {
		return none(fmt.Sprintf("intent %s: %s", intent.Kind, intent.Reason))
	}
	if mode == domain.ModeFrozen {
		return none("symbol frozen: " + guard.Reason)
	}

	var want domain.ActionKind
	switch intent.Kind.Side() {
	case domain.SideBuy:
		want = domain.ActionBuy
		if mode == domain.ModeReduce {
			return none("exposure mode reduce forbids adding")
		}
	case domain.SideSell:
		want = domain.ActionSell
	}

	if !guard.Allowed.Has(want) {
		return none(fmt.Sprintf("guard %s removed the action: %s", guard.Status, guard.Reason))
	}
	return NextAction{
		Symbol: intent.Symbol,
		Action: want,
		Reason: fmt.Sprintf("%s permitted in mode %s", intent.Kind, mode),
	}
}
