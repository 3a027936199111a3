package venue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"prefcore/internal/domain"
)

// Compile-time interface check.
var _ Venue = (*AlpacaVenue)(nil)

// AlpacaVenue implements Venue against the Alpaca trading API.
type AlpacaVenue struct {
	client *alpaca.Client
}

// NewAlpacaVenue creates an AlpacaVenue. baseURL may be empty for the SDK
// default; paper trading uses the paper-api endpoint.
func NewAlpacaVenue(apiKey, apiSecret, baseURL string) *AlpacaVenue {
	opts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if baseURL != "" {
		opts.BaseURL = baseURL
	}
	return &AlpacaVenue{client: alpaca.NewClient(opts)}
}

// Name returns "alpaca".
func (v *AlpacaVenue) Name() string { return "alpaca" }

// AccountState fetches positions and open orders in one pass.
func (v *AlpacaVenue) AccountState(ctx context.Context) (domain.AccountState, error) {
	if err := ctx.Err(); err != nil {
		return domain.AccountState{}, err
	}

	positions, err := v.client.GetPositions()
	if err != nil {
		return domain.AccountState{}, fmt.Errorf("fetching positions: %w", err)
	}

	orders, err := v.client.GetOrders(alpaca.GetOrdersRequest{
		Status: "open",
		Limit:  500,
	})
	if err != nil {
		return domain.AccountState{}, fmt.Errorf("fetching open orders: %w", err)
	}

	state := domain.AccountState{FetchedAt: time.Now()}
	for _, p := range positions {
		state.Positions = append(state.Positions, domain.BrokerPosition{
			Symbol: strings.ToUpper(p.Symbol),
			Qty:    p.Qty.IntPart(),
		})
	}
	for _, o := range orders {
		if o.Qty == nil {
			continue
		}
		remaining := o.Qty.Sub(o.FilledQty)
		if remaining.Sign() <= 0 {
			continue
		}
		state.Orders = append(state.Orders, domain.BrokerOrder{
			Symbol: strings.ToUpper(o.Symbol),
			Side:   domain.Side(o.Side),
			Qty:    remaining.IntPart(),
		})
	}
	return state, nil
}

// SubmitOrder places a day limit order for the plan.
func (v *AlpacaVenue) SubmitOrder(ctx context.Context, plan domain.OrderPlan) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !plan.Actionable {
		return "", fmt.Errorf("plan for %s is not actionable", plan.Symbol)
	}

	qty := decimal.NewFromInt(plan.Size)
	limit := decimal.NewFromFloat(plan.Price)
	order, err := v.client.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      plan.Symbol,
		Qty:         &qty,
		Side:        alpaca.Side(plan.Side),
		Type:        alpaca.Limit,
		LimitPrice:  &limit,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return "", fmt.Errorf("placing %s %d %s @ %.2f: %w", plan.Side, plan.Size, plan.Symbol, plan.Price, err)
	}
	return order.ID, nil
}
