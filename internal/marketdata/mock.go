package marketdata

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MockProvider synthesizes metric readings in place of the CoinGecko and
// TonAPI integrations. It reproduces the latency and failure behavior the
// risk service is written against: a small per-probe delay, occasional
// "not found" answers, and holder counts only for address-shaped
// identifiers. Swap in an HTTP-backed Provider to go live; the scoring
// engine and risk service do not change.
type MockProvider struct {
	logger  *zap.Logger
	latency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockProvider creates a synthetic metric provider
func NewMockProvider(logger *zap.Logger) *MockProvider {
	return &MockProvider{
		logger:  logger,
		latency: 100 * time.Millisecond,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSeededMockProvider creates a synthetic provider with a fixed seed and no
// simulated latency
func NewSeededMockProvider(logger *zap.Logger, seed int64) *MockProvider {
	return &MockProvider{
		logger: logger,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// sleep simulates network latency, honoring cancellation
func (p *MockProvider) sleep(ctx context.Context) error {
	if p.latency <= 0 {
		return nil
	}
	select {
	case <-time.After(p.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HistoricalPrices returns a synthetic daily price series around 100
func (p *MockProvider) HistoricalPrices(ctx context.Context, tokenID string, days int) ([]float64, error) {
	if err := p.sleep(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prices := make([]float64, days)
	for i := range prices {
		prices[i] = 100.0 + (p.rng.Float64()-0.5)*20
	}
	p.logger.Debug("mock historical prices generated",
		zap.String("token_id", tokenID), zap.Int("days", days))
	return prices, nil
}

// MarketStats returns synthetic volume and market cap; 5% of calls report
// the token as unknown
func (p *MockProvider) MarketStats(ctx context.Context, tokenID string) (*MarketStats, error) {
	if err := p.sleep(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rng.Float64() < 0.05 {
		p.logger.Debug("mock market stats not found", zap.String("token_id", tokenID))
		return nil, ErrNotFound
	}

	short := tokenID
	if len(short) > 3 {
		short = short[:3]
	}
	return &MarketStats{
		Symbol:      fmt.Sprintf("MOCK_%s", strings.ToUpper(short)),
		TotalVolume: 100_000 + p.rng.Float64()*4_900_000,
		MarketCap:   10_000_000 + p.rng.Float64()*490_000_000,
	}, nil
}

// HolderCount returns a synthetic holder count; 10% of calls fail to resolve
// the contract
func (p *MockProvider) HolderCount(ctx context.Context, address string) (int64, error) {
	if err := p.sleep(ctx); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rng.Float64() < 0.10 {
		p.logger.Debug("mock holder count not found", zap.String("address", address))
		return 0, ErrNotFound
	}
	return 100 + p.rng.Int63n(9_901), nil
}
