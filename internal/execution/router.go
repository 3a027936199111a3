// Package execution routes externally-approved intents to the venue. The
// decision core never reaches this package on its own: a gate pass is
// advisory, and only an ApprovedIntent is accepted here.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"prefcore/internal/domain"
	"prefcore/internal/venue"
)

// Router submits approved intents. In preview mode nothing touches the
// venue; every call is reported as skipped.
type Router struct {
	mode domain.ExecMode
	ven  venue.Venue
	log  *slog.Logger
}

// NewRouter creates a Router. ven may be nil in preview mode.
func NewRouter(mode domain.ExecMode, ven venue.Venue, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{mode: mode, ven: ven, log: log.With("engine", "execution")}
}

// Mode returns the configured execution mode.
func (r *Router) Mode() domain.ExecMode { return r.mode }

// Approve wraps a gated plan into an approved intent record. The approver
// identity is recorded verbatim.
func Approve(plan domain.OrderPlan, approvedBy string) (domain.ApprovedIntent, error) {
	if !plan.Actionable {
		return domain.ApprovedIntent{}, fmt.Errorf("plan for %s is not actionable", plan.Symbol)
	}
	if approvedBy == "" {
		return domain.ApprovedIntent{}, fmt.Errorf("approval for %s carries no approver", plan.Symbol)
	}
	return domain.ApprovedIntent{
		Symbol:     plan.Symbol,
		Plan:       plan,
		ApprovedBy: approvedBy,
		ApprovedAt: time.Now(),
	}, nil
}

// Submit routes one approved intent. Preview mode logs and reports skipped;
// live mode delegates to the venue.
func (r *Router) Submit(ctx context.Context, approved domain.ApprovedIntent) (domain.ExecutionResult, error) {
	res := domain.ExecutionResult{Symbol: approved.Symbol, Mode: r.mode}

	if r.mode != domain.ExecLive {
		res.Skipped = true
		r.log.Info("preview: order not routed",
			"symbol", approved.Symbol,
			"side", approved.Plan.Side,
			"size", approved.Plan.Size,
			"price", approved.Plan.Price,
			"approvedBy", approved.ApprovedBy,
		)
		return res, nil
	}

	if r.ven == nil {
		return res, fmt.Errorf("live mode with no venue configured")
	}

	id, err := r.ven.SubmitOrder(ctx, approved.Plan)
	if err != nil {
		return res, fmt.Errorf("routing %s: %w", approved.Symbol, err)
	}
	res.OrderID = id
	r.log.Info("order routed",
		"symbol", approved.Symbol,
		"side", approved.Plan.Side,
		"size", approved.Plan.Size,
		"price", approved.Plan.Price,
		"orderID", id,
	)
	return res, nil
}
