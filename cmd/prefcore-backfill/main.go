// prefcore-backfill fetches historical trade prints for every reference
// symbol and persists them as per-symbol per-date Parquet files, so the
// server's cold start can warm its windows from local history instead of the
// rate-limited trades API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"prefcore/internal/config"
	"prefcore/internal/feed"
	"prefcore/internal/refstore"
	"prefcore/internal/store"
	"prefcore/internal/util"
)

func main() {
	days := flag.Int("days", 10, "trading days of history to fetch")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols (default: all reference symbols)")
	flag.Parse()

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

	var symbols []string
	if *symbolsFlag != "" {
		for _, s := range strings.Split(*symbolsFlag, ",") {
			symbols = append(symbols, strings.ToUpper(strings.TrimSpace(s)))
		}
	} else {
		refs, err := refstore.Open(ctx, cfg.Storage.SQLitePath, logger)
		if err != nil {
			log.Fatalf("failed to open reference store: %v", err)
		}
		symbols = refs.Symbols()
		refs.Close()
	}
	if len(symbols) == 0 {
		log.Fatal("no symbols to backfill")
	}

	md := feed.NewMarketData(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	limiter := util.NewRateLimiter(cfg.Bootstrap.RequestsPerMin)

	logger.Info("backfill starting", "symbols", len(symbols), "days", *days)

	now := time.Now()
	var written int
	for _, sym := range symbols {
		for d := *days - 1; d >= 0; d-- {
			day := util.TradingDaysAgo(now, d)

			// Skip days already on disk.
			existing, err := pstore.ReadPrints(sym, day)
			if err == nil && len(existing) > 0 {
				continue
			}

			if err := limiter.Wait(ctx); err != nil {
				log.Fatalf("interrupted: %v", err)
			}
			start := time.Date(day.Year(), day.Month(), day.Day(), 9, 30, 0, 0, day.Location())
			end := time.Date(day.Year(), day.Month(), day.Day(), 16, 0, 0, 0, day.Location())
			prints, err := md.Trades(ctx, sym, start, end)
			if err != nil {
				logger.Warn("fetch failed", "symbol", sym, "day", day.Format("2006-01-02"), "error", err)
				continue
			}
			if len(prints) == 0 {
				continue
			}
			if err := pstore.WritePrints(ctx, prints); err != nil {
				logger.Warn("write failed", "symbol", sym, "day", day.Format("2006-01-02"), "error", err)
				continue
			}
			written += len(prints)
			logger.Info("day stored", "symbol", sym, "day", day.Format("2006-01-02"), "prints", len(prints))
		}
	}

	logger.Info("backfill complete", "symbols", len(symbols), "prints", written)
}
