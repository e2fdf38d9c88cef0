package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tonscope/tokenrisk/internal/marketdata"
	"github.com/tonscope/tokenrisk/pkg/metrics"
	"github.com/tonscope/tokenrisk/pkg/models"
)

var (
	// ErrUpstreamUnavailable means no metric source could resolve the
	// identifier; nothing was written
	ErrUpstreamUnavailable = errors.New("risk: upstream unavailable")
	// ErrPersistence means the store rejected a read or write; computed
	// values were discarded and no partial write remains
	ErrPersistence = errors.New("risk: persistence failure")
)

// RiskService defines the cache-aside read path and recompute operations
type RiskService interface {
	// GetTokenRisk serves the stored record when fresh and recomputes
	// synchronously otherwise
	GetTokenRisk(ctx context.Context, tokenID string) (*models.TokenRisk, error)
	// Compute runs the metric probes and scoring engine without persisting
	Compute(ctx context.Context, tokenID string) (*models.RiskReport, error)
	// ComputeAndSave recomputes and upserts the record
	ComputeAndSave(ctx context.Context, tokenID string) (*models.TokenRisk, error)
}

var _ RiskService = (*Service)(nil)

// Service implements RiskService
type Service struct {
	logger           *zap.Logger
	store            *Store
	provider         marketdata.Provider
	engine           *Engine
	stalenessWindow  time.Duration
	recomputeTimeout time.Duration
	historyDays      int
	now              func() time.Time
}

// NewService creates a new RiskService
func NewService(
	logger *zap.Logger,
	store *Store,
	provider marketdata.Provider,
	engine *Engine,
	stalenessWindow time.Duration,
	recomputeTimeout time.Duration,
	historyDays int,
) (*Service, error) {
	if stalenessWindow <= 0 {
		return nil, fmt.Errorf("staleness window must be positive")
	}
	if historyDays <= 0 {
		historyDays = 30
	}
	return &Service{
		logger:           logger,
		store:            store,
		provider:         provider,
		engine:           engine,
		stalenessWindow:  stalenessWindow,
		recomputeTimeout: recomputeTimeout,
		historyDays:      historyDays,
		now:              time.Now,
	}, nil
}

// GetTokenRisk is the per-request cache-aside decision: serve the stored
// record while now-updated_at is within the staleness window (boundary
// inclusive), otherwise recompute, persist and return the fresh record.
func (s *Service) GetTokenRisk(ctx context.Context, tokenID string) (*models.TokenRisk, error) {
	rec, err := s.store.Get(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if rec != nil {
		age := s.now().UTC().Sub(rec.UpdatedAt)
		if age <= s.stalenessWindow {
			metrics.CacheReads.WithLabelValues("hit").Inc()
			return rec, nil
		}
		metrics.CacheReads.WithLabelValues("stale").Inc()
	} else {
		metrics.CacheReads.WithLabelValues("miss").Inc()
	}

	return s.ComputeAndSave(ctx, tokenID)
}

// Compute runs the four metric probes and the scoring engine for tokenID.
// Individual probe failures degrade the affected sub-metric to its fallback;
// the computation only fails as a whole when neither the price history nor
// the market stats resolve the identifier.
func (s *Service) Compute(ctx context.Context, tokenID string) (*models.RiskReport, error) {
	start := time.Now()
	report, err := s.compute(ctx, tokenID)
	metrics.RecomputeLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RiskRecomputes.WithLabelValues("upstream_error").Inc()
		return nil, err
	}
	return report, nil
}

func (s *Service) compute(ctx context.Context, tokenID string) (*models.RiskReport, error) {
	if s.recomputeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.recomputeTimeout)
		defer cancel()
	}

	id := ClassifyIdentifier(tokenID)
	cfg := s.engine.Config()
	symbol := defaultSymbol(tokenID)

	// Volatility: historical price series
	volatilityPct := 0.0
	pricesOK := false
	prices, err := s.provider.HistoricalPrices(ctx, tokenID, s.historyDays)
	switch {
	case err != nil:
		s.logger.Warn("price history probe failed",
			zap.String("token_id", tokenID), zap.Error(err))
	case len(prices) > 0:
		volatilityPct = s.engine.VolatilityPct(prices)
		pricesOK = true
	}

	// Liquidity: volume / market cap
	ratioPct := 0.0
	statsOK := false
	stats, err := s.provider.MarketStats(ctx, tokenID)
	switch {
	case err != nil:
		s.logger.Warn("market stats probe failed",
			zap.String("token_id", tokenID), zap.Error(err))
	case stats != nil:
		ratioPct = s.engine.LiquidityRatioPct(stats.TotalVolume, stats.MarketCap)
		if stats.Symbol != "" {
			symbol = stats.Symbol
		}
		statsOK = true
	}

	if !pricesOK && !statsOK {
		return nil, fmt.Errorf("%w: no metric source resolved token %q", ErrUpstreamUnavailable, tokenID)
	}

	// Contract safety: holder count for on-chain addresses, neutral
	// fallback for catalog identifiers
	safetyScore := cfg.NeutralSafetyScore
	if id.OnChain() {
		holders, err := s.provider.HolderCount(ctx, tokenID)
		if err != nil {
			s.logger.Warn("holder count probe failed",
				zap.String("token_id", tokenID), zap.Error(err))
			holders = 0
		}
		safetyScore = s.engine.SafetyScoreFromHolders(holders)
	}

	sentimentScore := cfg.NeutralSentimentScore

	volatilityRisk := s.engine.VolatilityRisk(volatilityPct)
	liquidityRisk := s.engine.LiquidityRisk(ratioPct)
	overall := s.engine.Overall(volatilityRisk, liquidityRisk, safetyScore, sentimentScore)

	return &models.RiskReport{
		TokenID:           tokenID,
		Symbol:            symbol,
		Volatility30d:     round2(volatilityPct),
		LiquidityScore:    round2(ratioPct),
		SentimentScore:    round2(sentimentScore),
		ContractRiskScore: round2(safetyScore),
		OverallRiskScore:  overall,
	}, nil
}

// ComputeAndSave recomputes the record for tokenID and upserts it. On
// upstream failure nothing is written; on store failure the computed values
// are discarded and the caller may retry the whole request.
func (s *Service) ComputeAndSave(ctx context.Context, tokenID string) (*models.TokenRisk, error) {
	report, err := s.Compute(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	rec := recordFromReport(report)
	if err := s.store.Upsert(ctx, rec); err != nil {
		metrics.RiskRecomputes.WithLabelValues("persistence_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	metrics.RiskRecomputes.WithLabelValues("success").Inc()
	s.logger.Debug("token risk recomputed",
		zap.String("token_id", tokenID),
		zap.Float64("overall_risk_score", report.OverallRiskScore))
	return rec, nil
}

// recordFromReport stages an unpersisted report as a store record
func recordFromReport(report *models.RiskReport) *models.TokenRisk {
	volatility := report.Volatility30d
	liquidity := report.LiquidityScore
	sentiment := report.SentimentScore
	safety := report.ContractRiskScore
	overall := report.OverallRiskScore
	return &models.TokenRisk{
		TokenID:           report.TokenID,
		Symbol:            report.Symbol,
		Volatility30d:     &volatility,
		LiquidityScore:    &liquidity,
		SentimentScore:    &sentiment,
		ContractRiskScore: &safety,
		OverallRiskScore:  &overall,
	}
}

func defaultSymbol(tokenID string) string {
	short := tokenID
	if len(short) > 5 {
		short = short[:5]
	}
	return "UNKNOWN_" + strings.ToUpper(short)
}
