package prefcore

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"prefcore/internal/decision"
	"prefcore/internal/domain"
	"prefcore/internal/execution"
	"prefcore/internal/httpapi"
	"prefcore/internal/prints"
	"prefcore/internal/refstore"
	"prefcore/internal/view"
	"prefcore/internal/vwap"
)

// startServer runs a real API server over in-memory engines so the client is
// tested against the actual JSON contract.
func startServer(t *testing.T) (*Client, *view.Model, *decision.Queue) {
	t.Helper()

	views := view.NewModel()
	conc := prints.NewEngine(prints.Config{
		Horizons:     []time.Duration{10 * time.Minute},
		MinLotSize:   100,
		RingCapacity: 256,
	}, nil)
	refs := refstore.NewFromRecords([]domain.ReferenceRecord{{Symbol: "X-PA", AvgDailyVolume: 50000}})
	vwaps := vwap.NewEngine(vwap.Config{Days: []int{3}, OutlierMultiplier: 0.5, MaxPrints: 1000}, refs, nil)
	queue := decision.NewQueue()
	router := execution.NewRouter(domain.ExecPreview, nil, nil)

	api := httpapi.NewServer(views, conc, vwaps, queue, router, nil)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return NewClient(srv.URL), views, queue
}

func publishView(views *view.Model, symbol string) {
	views.Publish(domain.MergedView{
		Symbol: symbol,
		Live:   domain.LiveSnapshot{Symbol: symbol, Bid: 24.80, Ask: 24.95, Last: 24.90},
		Rank:   domain.RankRecord{BuyPct: 100, Status: domain.StatusComputed},
		State:  domain.StateTradeable,
		Intent: domain.Intent{Symbol: symbol, Kind: domain.IntentBuyFront, Reason: "strong buy rank"},
		Mode:   domain.ModeAccumulate,
	})
}

func TestClientViews(t *testing.T) {
	client, views, _ := startServer(t)
	publishView(views, "X-PA")

	all, err := client.Views(context.Background())
	if err != nil {
		t.Fatalf("Views: %v", err)
	}
	if all.Count != 1 || len(all.Views) != 1 {
		t.Fatalf("views = %+v, want one", all)
	}

	v, err := client.View(context.Background(), "X-PA")
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if v.Symbol != "X-PA" || v.Live.Last != 24.90 || v.State != "tradeable" {
		t.Errorf("view = %+v", v)
	}
	if v.Rank.BuyPct != 100 || v.Intent.Kind != "buy_front" || v.Mode != "accumulate" {
		t.Errorf("decision fields = %+v", v)
	}
}

func TestClientViewNotFound(t *testing.T) {
	client, _, _ := startServer(t)
	if _, err := client.View(context.Background(), "Z-PC"); err == nil {
		t.Error("unknown symbol returned no error")
	}
}

func TestClientQueueAndSubmit(t *testing.T) {
	client, _, queue := startServer(t)
	queue.Enqueue(domain.OrderPlan{Symbol: "X-PA", Actionable: true, Side: domain.SideBuy, Price: 24.91, Size: 100})

	q, err := client.Queue(context.Background())
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if q.Count != 1 || q.Entries[0].Plan.Price != 24.91 {
		t.Fatalf("queue = %+v", q)
	}

	res, err := client.Submit(context.Background(), "X-PA", "ops")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Skipped || res.Mode != "preview" {
		t.Errorf("result = %+v, want preview skip", res)
	}

	if _, err := client.Submit(context.Background(), "Z-PC", "ops"); err == nil {
		t.Error("submit for unqueued symbol returned no error")
	}
}
