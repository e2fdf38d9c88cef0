package marketdata

import (
	"context"
	"errors"
)

// ErrNotFound signals that a probe has no data for the given identifier.
// It is distinct from transient probe failures: callers degrade the affected
// sub-metric in both cases, but "not found" is a definitive answer while any
// other error may succeed on a later attempt.
var ErrNotFound = errors.New("marketdata: not found")

// MarketStats holds the market snapshot used for liquidity scoring
type MarketStats struct {
	Symbol      string
	TotalVolume float64
	MarketCap   float64
}

// Provider exposes the independent metric probes a risk computation draws
// from. Each probe may fail or report ErrNotFound independently of the
// others. Implementations must honor context cancellation on every call.
type Provider interface {
	// HistoricalPrices returns up to `days` daily closing prices for the token
	HistoricalPrices(ctx context.Context, tokenID string, days int) ([]float64, error)
	// MarketStats returns 24h volume, market cap and display symbol
	MarketStats(ctx context.Context, tokenID string) (*MarketStats, error)
	// HolderCount returns the number of holders of an on-chain token contract
	HolderCount(ctx context.Context, address string) (int64, error)
}
