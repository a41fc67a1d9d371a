package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"monthload/internal/domain"
	"monthload/internal/util"
)

// Compile-time interface check.
var _ Extractor = (*AlpacaBars)(nil)

// AlpacaBars extracts daily close prices for a symbol universe from the
// Alpaca market-data API. One DataRecord is produced per symbol per trading
// day in the window.
type AlpacaBars struct {
	client  *marketdata.Client
	symbols []string
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaBars creates an AlpacaBars source for the given credentials and
// symbol universe. ratePerMin caps API calls per minute.
func NewAlpacaBars(apiKey, apiSecret string, symbols []string, ratePerMin int) *AlpacaBars {
	return &AlpacaBars{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		symbols: symbols,
		limiter: util.NewRateLimiter(ratePerMin),
		log:     slog.Default().With("extractor", "alpaca"),
	}
}

// Name returns the source identifier.
func (a *AlpacaBars) Name() string { return "alpaca" }

// Extract fetches daily bars for every configured symbol from since to now.
// Symbols with no bars in the window contribute nothing; an entirely empty
// window is a valid result.
func (a *AlpacaBars) Extract(ctx context.Context, since time.Time) ([]domain.DataRecord, error) {
	end := time.Now().UTC()
	if !since.Before(end) {
		return nil, nil
	}

	var records []domain.DataRecord
	for _, symbol := range a.symbols {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		bars, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     since,
			End:       end,
			Feed:      "iex",
		})
		if err != nil {
			return nil, fmt.Errorf("fetching bars for %s: %w", symbol, err)
		}

		for _, b := range bars {
			records = append(records, domain.DataRecord{
				ID:         fmt.Sprintf("%s_%s", symbol, b.Timestamp.UTC().Format("2006-01-02")),
				Value:      strconv.FormatFloat(b.Close, 'f', -1, 64),
				CapturedAt: b.Timestamp.UTC(),
			})
		}
		a.log.Debug("fetched symbol", "symbol", symbol, "bars", len(bars))
	}

	return records, nil
}
