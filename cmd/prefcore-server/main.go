package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prefcore/internal/benchmark"
	"prefcore/internal/config"
	"prefcore/internal/decision"
	"prefcore/internal/domain"
	"prefcore/internal/execution"
	"prefcore/internal/feed"
	"prefcore/internal/httpapi"
	"prefcore/internal/livecache"
	"prefcore/internal/overlay"
	"prefcore/internal/pipeline"
	"prefcore/internal/position"
	"prefcore/internal/prints"
	"prefcore/internal/refstore"
	"prefcore/internal/score"
	"prefcore/internal/store"
	"prefcore/internal/util"
	"prefcore/internal/venue"
	"prefcore/internal/view"
	"prefcore/internal/vwap"
)

func main() {
	cfgPath := "config/prefcore.yaml"
	if p := os.Getenv("PREFCORE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	refs, err := refstore.Open(ctx, cfg.Storage.SQLitePath, logger)
	if err != nil {
		log.Fatalf("failed to open reference store: %v", err)
	}
	defer refs.Close()
	if refs.Len() == 0 {
		logger.Warn("reference store is empty, no symbols to trade", "path", cfg.Storage.SQLitePath)
	}

	// Live state and derived engines.
	cache := livecache.New(benchmark.Instruments)
	bench := benchmark.New(cache)

	scores := score.NewEngine(refs, cache, bench, score.Config{
		CompositeWeight: cfg.Pipeline.CompositeWeight,
		FrontOffset:     cfg.Scoring.FrontOffset,
		SpreadFraction:  cfg.Scoring.SpreadFraction,
		InnerFraction:   cfg.Scoring.InnerFraction,
	}, logger)

	agg, err := score.AggregationStrategy(cfg.Pipeline.RankAggregation)
	if err != nil {
		log.Fatalf("invalid rank aggregation: %v", err)
	}
	ranker := score.NewRankEngine(agg)

	horizons := make([]time.Duration, 0, len(cfg.Windows.ConcentrationMinutes))
	for _, m := range cfg.Windows.ConcentrationMinutes {
		horizons = append(horizons, time.Duration(m)*time.Minute)
	}
	conc := prints.NewEngine(prints.Config{
		Horizons:     horizons,
		MinLotSize:   cfg.Windows.MinLotSize,
		RingCapacity: cfg.Windows.RingCapacity,
	}, logger)
	vwaps := vwap.NewEngine(vwap.Config{
		Days:              cfg.Windows.VWAPDays,
		OutlierMultiplier: cfg.Windows.OutlierMultiplier,
		MaxPrints:         cfg.Windows.RingCapacity,
	}, refs, logger)

	// Historical data: previous-close bootstrap and print backfill.
	md := feed.NewMarketData(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	boot := livecache.NewBootstrapper(cache, md, cfg.Bootstrap.RequestsPerMin, cfg.Bootstrap.FailureTTL, logger)

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	lookback := 1
	for _, d := range cfg.Windows.VWAPDays {
		if d > lookback {
			lookback = d
		}
	}
	backfiller := prints.NewBackfiller(pstore, md, []prints.Sink{conc, vwaps},
		cfg.Bootstrap.RequestsPerMin, lookback, logger)
	for _, sym := range refs.Symbols() {
		backfiller.Request(sym)
	}

	// Venue and execution.
	var ven venue.Venue
	if cfg.Alpaca.APIKey != "" {
		ven = venue.NewAlpacaVenue(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
	} else {
		logger.Warn("no venue credentials, using the simulator")
		ven = venue.NewSimulator()
	}
	router := execution.NewRouter(domain.ExecMode(cfg.Execution.Mode), ven, logger)

	guardPolicy := position.PolicySkip
	if cfg.Guard.OnVenueError == "block" {
		guardPolicy = position.PolicyBlock
	}

	queue := decision.NewQueue()
	views := view.NewModel()

	pipe := pipeline.New(pipeline.Config{
		CycleInterval: cfg.Pipeline.CycleInterval,
		WindowTick:    cfg.Windows.ComputeTick,
	}, pipeline.Deps{
		Refs:   refs,
		Cache:  cache,
		Boot:   boot,
		Bench:  bench,
		Scores: scores,
		Ranker: ranker,
		Conc:   conc,
		VWAPs:  vwaps,
		States: decision.NewStateEngine(decision.StateConfig{
			MaxSpread:  cfg.Pipeline.MaxSpread,
			StaleAfter: cfg.Pipeline.StaleAfter,
		}),
		Intents: decision.NewIntentEngine(decision.DefaultIntentConfig()),
		Planner: decision.NewPlanner(decision.PlannerConfig{
			LotSize:            cfg.Windows.MinLotSize,
			ConcentrationFloor: cfg.Gate.ConcentrationFloor,
			MinQualifyingCount: cfg.Gate.MinQualifyingCount,
		}),
		Queue: queue,
		Gate: decision.NewGate(decision.GateConfig{
			SpreadFloor:        cfg.Gate.SpreadFloor,
			ConcentrationFloor: cfg.Gate.ConcentrationFloor,
			MinQualifyingCount: cfg.Gate.MinQualifyingCount,
		}),
		Snapshots: position.NewSnapshotEngine(),
		Guard: position.NewGuardEngine(position.GuardConfig{
			ExposureDivisor:  cfg.Guard.ExposureDivisor,
			DailyAddCap:      cfg.Guard.DailyAddCap,
			ShortPaceCap:     cfg.Guard.ShortPaceCap,
			ShortPaceHorizon: cfg.Guard.ShortPaceHorizon,
			OnVenueError:     guardPolicy,
		}),
		Actions: position.NewActionPlanner(),
		Venue:   ven,
		Views:   views,
	}, logger)

	// Quote bursts mark symbols dirty; the overlay drains them into the score
	// pass between full cycles.
	ov := overlay.New(overlay.Config{
		MinInterval:   cfg.Overlay.MinInterval,
		BatchSize:     cfg.Overlay.BatchSize,
		MaxQueueDepth: cfg.Overlay.MaxQueueDepth,
	}, func(symbols []string) {
		scores.ComputeBatch(symbols)
	}, logger)

	streamSymbols := append(refs.Symbols(), benchmark.Instruments...)
	stream := feed.NewAlpacaStream(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, streamSymbols,
		func(q domain.Quote) {
			cache.ApplyQuote(q)
			ov.MarkDirty(q.Symbol)
		},
		func(p domain.TradePrint) {
			conc.Ingest(p)
			vwaps.Ingest(p)
		},
		logger)

	go runOrExit(ctx, logger, "bootstrap", boot.Run)
	go runOrExit(ctx, logger, "backfill", backfiller.Run)
	go runOrExit(ctx, logger, "overlay", ov.Run)
	go runOrExit(ctx, logger, "pipeline", pipe.Run)
	go func() {
		// The stream drops on transient errors; keep reconnecting until
		// shutdown.
		for ctx.Err() == nil {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("stream disconnected, reconnecting", "error", err)
				select {
				case <-ctx.Done():
				case <-time.After(5 * time.Second):
				}
			}
		}
	}()

	api := httpapi.NewServer(views, conc, vwaps, queue, router, logger)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: api.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("prefcore-server starting",
		"addr", addr,
		"symbols", refs.Len(),
		"mode", cfg.Execution.Mode,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

// runOrExit runs a background loop and logs when it stops for a reason other
// than shutdown.
func runOrExit(ctx context.Context, logger *slog.Logger, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("background loop stopped", "loop", name, "error", err)
	}
}
