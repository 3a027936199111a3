package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"

	"prefcore/internal/domain"
	"prefcore/internal/util"
)

// Compile-time interface check.
var _ Feed = (*AlpacaStream)(nil)

// AlpacaStream subscribes to quotes and trades over the Alpaca WebSocket
// feed and forwards them to the handlers.
type AlpacaStream struct {
	apiKey    string
	apiSecret string
	symbols   []string
	onQuote   QuoteHandler
	onPrint   PrintHandler
	log       *slog.Logger
}

// NewAlpacaStream creates an AlpacaStream for the given symbols. Both
// handlers may be nil.
func NewAlpacaStream(apiKey, apiSecret string, symbols []string, onQuote QuoteHandler, onPrint PrintHandler, log *slog.Logger) *AlpacaStream {
	if log == nil {
		log = slog.Default()
	}
	return &AlpacaStream{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		symbols:   symbols,
		onQuote:   onQuote,
		onPrint:   onPrint,
		log:       log.With("feed", "alpaca"),
	}
}

// Name returns "alpaca".
func (f *AlpacaStream) Name() string { return "alpaca" }

// Run connects, subscribes, and blocks until ctx is cancelled or the stream
// terminates. Reconnecting on transient errors is the caller's concern; a
// supervisor loop wrapping Run with util.Retry works.
func (f *AlpacaStream) Run(ctx context.Context) error {
	client := stream.NewStocksClient("sip",
		stream.WithCredentials(f.apiKey, f.apiSecret),
	)

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connecting stream: %w", err)
	}

	if f.onQuote != nil {
		err := client.SubscribeToQuotes(func(q stream.Quote) {
			f.onQuote(domain.Quote{
				Symbol:    q.Symbol,
				Bid:       q.BidPrice,
				Ask:       q.AskPrice,
				Timestamp: q.Timestamp,
			})
		}, f.symbols...)
		if err != nil {
			return fmt.Errorf("subscribing to quotes: %w", err)
		}
	}

	if f.onPrint != nil {
		err := client.SubscribeToTrades(func(t stream.Trade) {
			print := domain.TradePrint{
				Symbol:    t.Symbol,
				Price:     t.Price,
				Size:      int64(t.Size),
				Timestamp: t.Timestamp,
				Venue:     t.Exchange,
			}
			f.onPrint(print)
			if f.onQuote != nil {
				// A trade also advances the symbol's last price.
				f.onQuote(domain.Quote{Symbol: t.Symbol, Last: t.Price, Timestamp: t.Timestamp})
			}
		}, f.symbols...)
		if err != nil {
			return fmt.Errorf("subscribing to trades: %w", err)
		}
	}

	f.log.Info("stream connected", "symbols", len(f.symbols))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-client.Terminated():
		if err != nil {
			return fmt.Errorf("stream terminated: %w", err)
		}
		return nil
	}
}

// ---------------------------------------------------------------------------
// Historical market data
// ---------------------------------------------------------------------------

// MarketData adapts the Alpaca historical API for the previous-close
// bootstrap and the print backfill.
type MarketData struct {
	client *marketdata.Client
}

// NewMarketData creates a MarketData client. dataURL may be empty for the
// SDK default.
func NewMarketData(apiKey, apiSecret, dataURL string) *MarketData {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &MarketData{client: marketdata.NewClient(opts)}
}

// PrevClose returns the close of the symbol's most recent finished session.
func (m *MarketData) PrevClose(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := time.Now()
	bars, err := m.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     util.TradingDaysAgo(now, 5),
		End:       now,
		Feed:      "sip",
	})
	if err != nil {
		return 0, fmt.Errorf("fetching daily bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no daily bars for %s", symbol)
	}

	// The latest bar may be today's partial session; prefer the one before.
	last := bars[len(bars)-1]
	if last.Timestamp.Format("2006-01-02") == now.Format("2006-01-02") && len(bars) > 1 {
		last = bars[len(bars)-2]
	}
	return last.Close, nil
}

// Trades fetches the symbol's prints for one time span.
func (m *MarketData) Trades(ctx context.Context, symbol string, start, end time.Time) ([]domain.TradePrint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trades, err := m.client.GetTrades(symbol, marketdata.GetTradesRequest{
		Start: start,
		End:   end,
		Feed:  "sip",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching trades for %s: %w", symbol, err)
	}

	out := make([]domain.TradePrint, 0, len(trades))
	for _, t := range trades {
		out = append(out, domain.TradePrint{
			Symbol:    symbol,
			Price:     t.Price,
			Size:      int64(t.Size),
			Timestamp: t.Timestamp,
			Venue:     t.Exchange,
		})
	}
	return out, nil
}
