package risk

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tonscope/tokenrisk/internal/marketdata"
	"github.com/tonscope/tokenrisk/pkg/models"
)

// stubProvider lets each test script the probe answers
type stubProvider struct {
	prices  func(ctx context.Context, tokenID string, days int) ([]float64, error)
	stats   func(ctx context.Context, tokenID string) (*marketdata.MarketStats, error)
	holders func(ctx context.Context, address string) (int64, error)
}

func (p *stubProvider) HistoricalPrices(ctx context.Context, tokenID string, days int) ([]float64, error) {
	if p.prices != nil {
		return p.prices(ctx, tokenID, days)
	}
	return nil, marketdata.ErrNotFound
}

func (p *stubProvider) MarketStats(ctx context.Context, tokenID string) (*marketdata.MarketStats, error) {
	if p.stats != nil {
		return p.stats(ctx, tokenID)
	}
	return nil, marketdata.ErrNotFound
}

func (p *stubProvider) HolderCount(ctx context.Context, address string) (int64, error) {
	if p.holders != nil {
		return p.holders(ctx, address)
	}
	return 0, marketdata.ErrNotFound
}

// happyProvider resolves every probe with fixed data
func happyProvider(holders int64) *stubProvider {
	return &stubProvider{
		prices: func(ctx context.Context, tokenID string, days int) ([]float64, error) {
			return []float64{100, 110, 90, 105, 95}, nil
		},
		stats: func(ctx context.Context, tokenID string) (*marketdata.MarketStats, error) {
			return &marketdata.MarketStats{Symbol: "TST", TotalVolume: 1_000_000, MarketCap: 20_000_000}, nil
		},
		holders: func(ctx context.Context, address string) (int64, error) {
			return holders, nil
		},
	}
}

func newTestService(t *testing.T, store *Store, provider marketdata.Provider) *Service {
	svc, err := NewService(zap.NewNop(), store, provider, NewEngine(DefaultScoringConfig()),
		5*time.Minute, 5*time.Second, 30)
	require.NoError(t, err)
	return svc
}

func TestComputeCatalogIdentifier(t *testing.T) {
	svc := newTestService(t, NewStore(setupTestDB(t)), happyProvider(6000))
	engine := NewEngine(DefaultScoringConfig())

	report, err := svc.Compute(context.Background(), "bitcoin")
	require.NoError(t, err)

	// catalog identifier: neutral contract safety, fixed sentiment
	assert.Equal(t, 50.0, report.ContractRiskScore)
	assert.Equal(t, 50.0, report.SentimentScore)
	assert.Equal(t, "TST", report.Symbol)

	volPct := engine.VolatilityPct([]float64{100, 110, 90, 105, 95})
	volRisk := engine.VolatilityRisk(volPct)
	liqRisk := engine.LiquidityRisk(5.0)
	want := engine.Overall(volRisk, liqRisk, 50, 50)
	assert.Equal(t, want, report.OverallRiskScore)

	// sanity: the mean-of-four formula with both neutral contributions at 50
	assert.InDelta(t, (volRisk+liqRisk+50+50)/4, report.OverallRiskScore, 0.005)
}

func TestComputeOnChainIdentifierHolderBands(t *testing.T) {
	addr := "EQAvlWFDxGF2lXm67y4yzC17wY79bbsE4QafajVgoVogeE7s"

	// 6000 holders: top safety band, zero contract risk contribution
	svc := newTestService(t, NewStore(setupTestDB(t)), happyProvider(6000))
	report, err := svc.Compute(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.ContractRiskScore)

	// holder probe failure degrades to the lowest band, not an abort
	failing := happyProvider(0)
	failing.holders = func(ctx context.Context, address string) (int64, error) {
		return 0, marketdata.ErrNotFound
	}
	svc = newTestService(t, NewStore(setupTestDB(t)), failing)
	report, err = svc.Compute(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, 5.0, report.ContractRiskScore)
}

func TestComputeEmptyPriceHistory(t *testing.T) {
	provider := happyProvider(0)
	provider.prices = func(ctx context.Context, tokenID string, days int) ([]float64, error) {
		return []float64{}, nil
	}
	svc := newTestService(t, NewStore(setupTestDB(t)), provider)

	report, err := svc.Compute(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.Volatility30d)

	engine := NewEngine(DefaultScoringConfig())
	want := engine.Overall(0, engine.LiquidityRisk(5.0), 50, 50)
	assert.Equal(t, want, report.OverallRiskScore)
}

func TestComputeTotalUpstreamFailure(t *testing.T) {
	store := NewStore(setupTestDB(t))
	svc := newTestService(t, store, &stubProvider{}) // every probe reports not found

	_, err := svc.Compute(context.Background(), "unknown-token")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	// nothing was written
	ids, err := store.ListTokenIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestComputeDeterministic(t *testing.T) {
	svc := newTestService(t, NewStore(setupTestDB(t)), happyProvider(2000))

	first, err := svc.Compute(context.Background(), "bitcoin")
	require.NoError(t, err)
	second, err := svc.Compute(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeAndSaveCreatesRecord(t *testing.T) {
	store := NewStore(setupTestDB(t))
	svc := newTestService(t, store, happyProvider(6000))

	rec, err := svc.ComputeAndSave(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", rec.TokenID)
	require.NotNil(t, rec.OverallRiskScore)
	assert.GreaterOrEqual(t, *rec.OverallRiskScore, 0.0)
	assert.LessOrEqual(t, *rec.OverallRiskScore, 100.0)

	stored, err := store.Get(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, rec.ID, stored.ID)
}

func TestComputeAndSavePersistenceFailure(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	svc := newTestService(t, store, happyProvider(6000))

	require.NoError(t, db.Migrator().DropTable(&models.TokenRisk{}))

	_, err := svc.ComputeAndSave(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestGetTokenRiskFreshnessBoundary(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	svc := newTestService(t, store, happyProvider(6000))

	seed := testRecord("bitcoin", 40)
	seed.Symbol = "SEEDED"
	require.NoError(t, store.Upsert(context.Background(), seed))

	now := time.Now().UTC()
	svc.now = func() time.Time { return now }

	// exactly at the staleness window: still fresh
	require.NoError(t, db.Model(&models.TokenRisk{}).Where("token_id = ?", "bitcoin").
		Update("updated_at", now.Add(-5*time.Minute)).Error)
	rec, err := svc.GetTokenRisk(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "SEEDED", rec.Symbol)

	// one second past the window: stale, recomputed from the provider
	require.NoError(t, db.Model(&models.TokenRisk{}).Where("token_id = ?", "bitcoin").
		Update("updated_at", now.Add(-5*time.Minute-time.Second)).Error)
	rec, err = svc.GetTokenRisk(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "TST", rec.Symbol)
}

func TestGetTokenRiskMissRecomputes(t *testing.T) {
	store := NewStore(setupTestDB(t))
	svc := newTestService(t, store, happyProvider(6000))

	rec, err := svc.GetTokenRisk(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", rec.TokenID)
	assert.NotNil(t, rec.OverallRiskScore)
}

func TestGetTokenRiskUpstreamFailureKeepsOldRecord(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	failCount := 0
	provider := &stubProvider{
		prices: func(ctx context.Context, tokenID string, days int) ([]float64, error) {
			failCount++
			return nil, errors.New("timeout")
		},
		stats: func(ctx context.Context, tokenID string) (*marketdata.MarketStats, error) {
			return nil, fmt.Errorf("timeout")
		},
	}
	svc := newTestService(t, store, provider)

	seed := testRecord("bitcoin", 40)
	require.NoError(t, store.Upsert(context.Background(), seed))
	stale := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Model(&models.TokenRisk{}).Where("token_id = ?", "bitcoin").
		Update("updated_at", stale).Error)

	// stale record plus failing upstream: typed error, no silent stale serve
	_, err := svc.GetTokenRisk(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Greater(t, failCount, 0)

	// prior record is untouched
	stored, err := store.Get(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, 40.0, *stored.OverallRiskScore)
	assert.WithinDuration(t, stale, stored.UpdatedAt, time.Second)
}
