package execution

import (
	"context"
	"testing"

	"prefcore/internal/domain"
	"prefcore/internal/venue"
)

func approvedBuy(t *testing.T) domain.ApprovedIntent {
	t.Helper()
	plan := domain.OrderPlan{
		Symbol: "X-PA", Actionable: true, Side: domain.SideBuy, Price: 24.91, Size: 100,
	}
	approved, err := Approve(plan, "ops")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	return approved
}

func TestApproveRejectsNonActionable(t *testing.T) {
	if _, err := Approve(domain.OrderPlan{Symbol: "X-PA"}, "ops"); err == nil {
		t.Error("non-actionable plan approved")
	}
	plan := domain.OrderPlan{Symbol: "X-PA", Actionable: true, Side: domain.SideBuy}
	if _, err := Approve(plan, ""); err == nil {
		t.Error("approval without approver accepted")
	}
}

func TestPreviewModeSkips(t *testing.T) {
	sim := venue.NewSimulator()
	r := NewRouter(domain.ExecPreview, sim, nil)

	res, err := r.Submit(context.Background(), approvedBuy(t))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Skipped || res.OrderID != "" {
		t.Errorf("res = %+v, want skipped with no order", res)
	}

	state, _ := sim.AccountState(context.Background())
	if len(state.Orders) != 0 {
		t.Errorf("preview mode reached the venue: %+v", state.Orders)
	}
}

func TestLiveModeRoutes(t *testing.T) {
	sim := venue.NewSimulator()
	r := NewRouter(domain.ExecLive, sim, nil)

	res, err := r.Submit(context.Background(), approvedBuy(t))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Skipped || res.OrderID == "" {
		t.Errorf("res = %+v, want routed order", res)
	}

	state, _ := sim.AccountState(context.Background())
	if len(state.Orders) != 1 || state.Orders[0].Qty != 100 {
		t.Errorf("venue orders = %+v", state.Orders)
	}
}

func TestLiveModeWithoutVenueFails(t *testing.T) {
	r := NewRouter(domain.ExecLive, nil, nil)
	if _, err := r.Submit(context.Background(), approvedBuy(t)); err == nil {
		t.Error("live submit without venue succeeded")
	}
}
