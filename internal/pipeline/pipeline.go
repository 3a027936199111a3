// Package pipeline coordinates the decision cycle: one account fetch shared
// across all symbols, then benchmark, scores, ranks, windows, state, intent,
// plan, guard and gate per symbol, finishing with a view publish. A single
// symbol's failure never aborts a cycle.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"prefcore/internal/benchmark"
	"prefcore/internal/decision"
	"prefcore/internal/domain"
	"prefcore/internal/livecache"
	"prefcore/internal/position"
	"prefcore/internal/prints"
	"prefcore/internal/refstore"
	"prefcore/internal/score"
	"prefcore/internal/venue"
	"prefcore/internal/view"
	"prefcore/internal/vwap"
)

// Config holds the cycle cadences.
type Config struct {
	CycleInterval time.Duration // full decision cycle
	WindowTick    time.Duration // concentration/VWAP recompute
}

// Pipeline owns the cycle loop and the previous-cycle state needed for
// transition reasons.
type Pipeline struct {
	cfg Config
	log *slog.Logger

	refs   *refstore.Store
	cache  *livecache.Cache
	boot   *livecache.Bootstrapper
	bench  *benchmark.Engine
	scores *score.Engine
	ranker *score.RankEngine
	conc   *prints.Engine
	vwaps  *vwap.Engine

	states  *decision.StateEngine
	intents *decision.IntentEngine
	planner *decision.Planner
	queue   *decision.Queue
	gate    *decision.Gate

	snapshots *position.SnapshotEngine
	guard     *position.GuardEngine
	actions   *position.ActionPlanner

	ven   venue.Venue
	views *view.Model

	mu         sync.Mutex
	prevStates map[string]domain.SymbolState
}

// Deps bundles the engines the pipeline drives.
type Deps struct {
	Refs   *refstore.Store
	Cache  *livecache.Cache
	Boot   *livecache.Bootstrapper
	Bench  *benchmark.Engine
	Scores *score.Engine
	Ranker *score.RankEngine
	Conc   *prints.Engine
	VWAPs  *vwap.Engine

	States  *decision.StateEngine
	Intents *decision.IntentEngine
	Planner *decision.Planner
	Queue   *decision.Queue
	Gate    *decision.Gate

	Snapshots *position.SnapshotEngine
	Guard     *position.GuardEngine
	Actions   *position.ActionPlanner

	Venue venue.Venue
	Views *view.Model
}

// New creates a Pipeline.
func New(cfg Config, d Deps, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		cfg:        cfg,
		log:        log.With("engine", "pipeline"),
		refs:       d.Refs,
		cache:      d.Cache,
		boot:       d.Boot,
		bench:      d.Bench,
		scores:     d.Scores,
		ranker:     d.Ranker,
		conc:       d.Conc,
		vwaps:      d.VWAPs,
		states:     d.States,
		intents:    d.Intents,
		planner:    d.Planner,
		queue:      d.Queue,
		gate:       d.Gate,
		snapshots:  d.Snapshots,
		guard:      d.Guard,
		actions:    d.Actions,
		ven:        d.Venue,
		views:      d.Views,
		prevStates: make(map[string]domain.SymbolState),
	}
}

// Queue exposes the order queue for the API layer.
func (p *Pipeline) Queue() *decision.Queue { return p.queue }

// Run drives the cycle and window tickers until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	cycle := time.NewTicker(p.cfg.CycleInterval)
	defer cycle.Stop()
	windows := time.NewTicker(p.cfg.WindowTick)
	defer windows.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-windows.C:
			now := time.Now()
			p.conc.ComputeAll(now)
			p.vwaps.ComputeAll(now)
		case <-cycle.C:
			p.RunCycle(ctx)
		}
	}
}

// RunCycle executes one full decision cycle.
func (p *Pipeline) RunCycle(ctx context.Context) {
	start := time.Now()

	// Previous closes the stream cannot deliver.
	if p.boot != nil {
		p.boot.RequestMissing()
	}

	// One venue fetch for every symbol this cycle.
	var account domain.AccountState
	venueOK := false
	if p.ven != nil {
		var err error
		account, err = p.ven.AccountState(ctx)
		if err != nil {
			p.log.Warn("account fetch failed", "venue", p.ven.Name(), "error", err)
		} else {
			venueOK = true
		}
	}
	posSnaps := map[string]domain.PositionSnapshot{}
	if venueOK {
		posSnaps = p.snapshots.Build(account)
		for sym, snap := range posSnaps {
			p.guard.Observe(sym, snap.CurrentQty)
		}
	}

	symbols := p.refs.Symbols()

	// Batch passes before the per-symbol walk.
	p.scores.ComputeBatch(symbols)
	groupKeys := make(map[string]string, len(symbols))
	for _, sym := range symbols {
		if ref, ok := p.refs.Get(sym); ok {
			groupKeys[sym] = ref.GroupKey
		}
	}
	ranks := p.ranker.Compute(p.scores.Records(), groupKeys)

	published := 0
	for _, sym := range symbols {
		if ctx.Err() != nil {
			return
		}
		if p.runSymbol(sym, posSnaps, ranks, venueOK) {
			published++
		}
	}

	p.log.Debug("cycle complete",
		"symbols", len(symbols),
		"published", published,
		"venueOK", venueOK,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}

// runSymbol walks one symbol through the decision chain and publishes its
// merged view. Returns false when the symbol has no reference record.
func (p *Pipeline) runSymbol(sym string, posSnaps map[string]domain.PositionSnapshot, ranks map[string]domain.RankRecord, venueOK bool) bool {
	ref, ok := p.refs.Get(sym)
	if !ok {
		return false
	}
	live, haveLive := p.cache.Snapshot(sym)

	p.mu.Lock()
	prev := p.prevStates[sym]
	p.mu.Unlock()

	state, stateReason, transition := p.states.Evaluate(live, haveLive, prev)

	p.mu.Lock()
	p.prevStates[sym] = state
	p.mu.Unlock()

	scores, _ := p.scores.Record(sym)
	rank := ranks[sym]
	window, _ := p.conc.Latest(sym)

	intent := p.intents.Evaluate(sym, state, live, scores, rank)
	plan := p.planner.Plan(intent, scores, window)

	snap := posSnaps[sym]
	if snap.Symbol == "" {
		snap.Symbol = sym
	}
	guard := p.guard.Evaluate(ref, snap, venueOK)
	gate := p.gate.Evaluate(plan, live, window, guard)
	mode := position.ClassifyMode(guard, snap)
	next := p.actions.Propose(intent, guard, mode)

	if plan.Actionable && gate.Allowed {
		if next.Action == 0 {
			p.log.Debug("gated plan held back", "symbol", sym, "reason", next.Reason)
		} else {
			res := p.queue.Enqueue(plan)
			p.log.Debug("plan queued",
				"symbol", sym,
				"side", plan.Side,
				"price", plan.Price,
				"position", res.Position,
				"replaced", res.Replaced,
			)
		}
	}

	concDev, concOK := p.conc.Deviation(sym, live.Last)
	vwapDev, vwapOK := p.vwaps.Deviation(sym, live.Last)

	p.views.Publish(domain.MergedView{
		Symbol:        sym,
		Reference:     ref,
		Live:          live,
		Benchmark:     p.bench.Compute(ref.BenchmarkGroup),
		Scores:        scores,
		Rank:          rank,
		Concentration: window,
		ConcDeviation: concDev,
		VWAPDeviation: vwapDev,
		Signal:        position.InterpretSignal(concDev, vwapDev, concOK, vwapOK),
		State:         state,
		StateReason:   stateReason,
		Transition:    transition,
		Intent:        intent,
		Plan:          plan,
		Gate:          gate,
		Position:      snap,
		Guard:         guard,
		Mode:          mode,
		UpdatedAt:     time.Now(),
	})
	return true
}
