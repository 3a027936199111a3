// prefcore-console is a terminal client for the prefcore server. It polls the
// merged-view API and renders one line per symbol: state, live prices, rank
// percentiles, concentration signal, and the current decision.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prefcore/pkg/prefcore"
)

func main() {
	addr := flag.String("addr", "http://localhost:8090", "prefcore server base URL")
	interval := flag.Duration("interval", 2*time.Second, "refresh interval")
	showQueue := flag.Bool("queue", true, "render the live order queue")
	flag.Parse()
	if a := os.Getenv("PREFCORE_ADDR"); a != "" {
		*addr = a
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := prefcore.NewClient(*addr)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		render(ctx, client, *showQueue)
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case <-ticker.C:
		}
	}
}

func render(ctx context.Context, client *prefcore.Client, showQueue bool) {
	views, err := client.Views(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
		return
	}

	// Clear screen, home cursor.
	fmt.Print("\033[H\033[2J")
	fmt.Printf("prefcore  %s  symbols=%d\n\n", time.Now().Format("15:04:05"), views.Count)
	fmt.Printf("%-8s %-14s %8s %8s %8s  %5s %5s  %6s %4s  %-10s %-10s %s\n",
		"SYMBOL", "STATE", "BID", "ASK", "LAST", "BUY%", "SELL%", "CONC%", "QC", "INTENT", "MODE", "GATE")

	for _, v := range views.Views {
		conc := "-"
		qc := "-"
		if v.Concentration.Valid {
			conc = fmt.Sprintf("%.1f", v.Concentration.ConcentrationPct)
			qc = fmt.Sprintf("%d", v.Concentration.QualifyingCount)
		}
		gate := "-"
		if v.Plan.Actionable {
			gate = "blocked"
			if v.Gate.Allowed {
				gate = "ALLOWED"
			}
		}
		fmt.Printf("%-8s %-14s %8.2f %8.2f %8.2f  %5.0f %5.0f  %6s %4s  %-10s %-10s %s\n",
			v.Symbol,
			v.State,
			v.Live.Bid, v.Live.Ask, v.Live.Last,
			v.Rank.BuyPct, v.Rank.SellPct,
			conc, qc,
			v.Intent.Kind,
			v.Mode,
			gate,
		)
	}

	if !showQueue {
		return
	}
	queue, err := client.Queue(ctx)
	if err != nil || queue.Count == 0 {
		return
	}
	fmt.Printf("\nqueue (%d):\n", queue.Count)
	for _, e := range queue.Entries {
		fmt.Printf("  %d. %-8s %-4s %d @ %.2f  age %.0fs\n",
			e.Position, e.Symbol, e.Plan.Side, e.Plan.Size, e.Plan.Price, e.AgeSeconds)
	}
}
