package venue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"prefcore/internal/domain"
)

// Compile-time interface check.
var _ Venue = (*Simulator)(nil)

// Simulator implements Venue in memory, for tests and for running the core
// without a brokerage account. Submitted orders rest as open orders; Fill
// applies them to the position book.
type Simulator struct {
	mu        sync.Mutex
	positions map[string]int64
	orders    map[string]domain.BrokerOrder
	nextID    int64
	failNext  error
}

// NewSimulator creates an empty Simulator.
func NewSimulator() *Simulator {
	return &Simulator{
		positions: make(map[string]int64),
		orders:    make(map[string]domain.BrokerOrder),
	}
}

// Name returns "simulator".
func (s *Simulator) Name() string { return "simulator" }

// SetPosition seeds a held position.
func (s *Simulator) SetPosition(symbol string, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[strings.ToUpper(symbol)] = qty
}

// FailNext makes the next AccountState call return err, for venue-failure
// policy tests.
func (s *Simulator) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// AccountState returns the in-memory book.
func (s *Simulator) AccountState(_ context.Context) (domain.AccountState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return domain.AccountState{}, err
	}

	state := domain.AccountState{FetchedAt: time.Now()}
	for sym, qty := range s.positions {
		if qty != 0 {
			state.Positions = append(state.Positions, domain.BrokerPosition{Symbol: sym, Qty: qty})
		}
	}
	for _, o := range s.orders {
		state.Orders = append(state.Orders, o)
	}
	return state, nil
}

// SubmitOrder records the order as open and returns a synthetic ID.
func (s *Simulator) SubmitOrder(_ context.Context, plan domain.OrderPlan) (string, error) {
	if !plan.Actionable {
		return "", fmt.Errorf("plan for %s is not actionable", plan.Symbol)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("sim-%d", s.nextID)
	s.orders[id] = domain.BrokerOrder{
		Symbol: strings.ToUpper(plan.Symbol),
		Side:   plan.Side,
		Qty:    plan.Size,
	}
	return id, nil
}

// Fill applies an open order to the position book and removes it.
func (s *Simulator) Fill(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("no open order %s", orderID)
	}
	delete(s.orders, orderID)

	switch o.Side {
	case domain.SideBuy:
		s.positions[o.Symbol] += o.Qty
	case domain.SideSell:
		s.positions[o.Symbol] -= o.Qty
	}
	return nil
}
