package venue

import (
	"context"
	"errors"
	"testing"

	"prefcore/internal/domain"
)

func TestSimulatorAccountState(t *testing.T) {
	s := NewSimulator()
	s.SetPosition("x-pa", 400)

	id, err := s.SubmitOrder(context.Background(), domain.OrderPlan{
		Symbol: "X-PA", Actionable: true, Side: domain.SideBuy, Price: 24.91, Size: 300,
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	state, err := s.AccountState(context.Background())
	if err != nil {
		t.Fatalf("AccountState: %v", err)
	}
	if len(state.Positions) != 1 || state.Positions[0].Qty != 400 {
		t.Errorf("positions = %+v", state.Positions)
	}
	if len(state.Orders) != 1 || state.Orders[0].Qty != 300 || state.Orders[0].Side != domain.SideBuy {
		t.Errorf("orders = %+v", state.Orders)
	}

	if err := s.Fill(id); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	state, _ = s.AccountState(context.Background())
	if len(state.Orders) != 0 {
		t.Errorf("orders remain after fill: %+v", state.Orders)
	}
	if state.Positions[0].Qty != 700 {
		t.Errorf("position after fill = %d, want 700", state.Positions[0].Qty)
	}
}

func TestSimulatorFailNext(t *testing.T) {
	s := NewSimulator()
	s.FailNext(errors.New("venue down"))

	if _, err := s.AccountState(context.Background()); err == nil {
		t.Fatal("expected injected failure")
	}
	if _, err := s.AccountState(context.Background()); err != nil {
		t.Fatalf("failure should clear after one call: %v", err)
	}
}

func TestSimulatorRejectsNonActionablePlan(t *testing.T) {
	s := NewSimulator()
	if _, err := s.SubmitOrder(context.Background(), domain.OrderPlan{Symbol: "X-PA"}); err == nil {
		t.Fatal("non-actionable plan accepted")
	}
}

func TestNewAlpacaVenue(t *testing.T) {
	v := NewAlpacaVenue("key", "secret", "https://paper-api.alpaca.markets")
	if v.Name() != "alpaca" {
		t.Errorf("Name() = %q", v.Name())
	}
}
