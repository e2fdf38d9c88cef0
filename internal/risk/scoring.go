package risk

import "math"

// ScoringConfig holds the normalization thresholds for the scoring engine.
// The defaults are calibration placeholders, not domain-validated constants;
// deployments can override them through the risk section of the config.
type ScoringConfig struct {
	// VolatilityCeilingPct is the volatility (as % of mean price) at and
	// above which volatility risk saturates at 100
	VolatilityCeilingPct float64
	// LiquidityAmplePct is the volume/market-cap ratio (%) at and above
	// which liquidity risk is 0
	LiquidityAmplePct float64
	// LiquidityThinPct is the ratio (%) at and below which liquidity risk
	// is 100
	LiquidityThinPct float64
	// NeutralSafetyScore is the contract-safety fallback for identifiers
	// that are not on-chain addresses
	NeutralSafetyScore float64
	// NeutralSentimentScore is the fixed sentiment score until a real
	// sentiment probe is wired in
	NeutralSentimentScore float64
}

// DefaultScoringConfig returns the thresholds the engine was calibrated with
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		VolatilityCeilingPct:  50.0,
		LiquidityAmplePct:     20.0,
		LiquidityThinPct:      1.0,
		NeutralSafetyScore:    50.0,
		NeutralSentimentScore: 50.0,
	}
}

// Engine converts raw metric readings into bounded sub-scores and one
// overall risk score. All methods are pure; recomputing with identical
// inputs yields identical outputs.
type Engine struct {
	cfg ScoringConfig
}

// NewEngine creates a scoring engine
func NewEngine(cfg ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's thresholds
func (e *Engine) Config() ScoringConfig {
	return e.cfg
}

// sampleStdDev computes the sample standard deviation (divisor n-1).
// Series shorter than two points have no spread and yield 0.
func sampleStdDev(prices []float64) float64 {
	n := len(prices)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(n)

	var variance float64
	for _, p := range prices {
		d := p - mean
		variance += d * d
	}
	variance /= float64(n - 1)
	return math.Sqrt(variance)
}

// VolatilityPct returns the sample standard deviation of the price series
// normalized to a percentage of its mean. Empty series and zero-mean series
// yield 0.
func (e *Engine) VolatilityPct(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))
	if mean == 0 {
		return 0
	}
	return sampleStdDev(prices) / mean * 100
}

// VolatilityRisk maps volatility % linearly onto [0,100], saturating at the
// ceiling
func (e *Engine) VolatilityRisk(volatilityPct float64) float64 {
	if volatilityPct <= 0 {
		return 0
	}
	if volatilityPct >= e.cfg.VolatilityCeilingPct {
		return 100
	}
	return volatilityPct / e.cfg.VolatilityCeilingPct * 100
}

// LiquidityRatioPct returns trading volume as a percentage of market cap.
// A missing or non-positive market cap yields 0.
func (e *Engine) LiquidityRatioPct(totalVolume, marketCap float64) float64 {
	if marketCap <= 0 {
		return 0
	}
	return totalVolume / marketCap * 100
}

// LiquidityRisk maps the volume/market-cap ratio inversely onto [0,100]:
// ratios at or above the ample threshold carry no liquidity risk, ratios at
// or below the thin threshold carry full risk, with linear interpolation
// between the two.
func (e *Engine) LiquidityRisk(ratioPct float64) float64 {
	switch {
	case ratioPct >= e.cfg.LiquidityAmplePct:
		return 0
	case ratioPct <= e.cfg.LiquidityThinPct:
		return 100
	default:
		span := e.cfg.LiquidityAmplePct - e.cfg.LiquidityThinPct
		return 100 - (ratioPct-e.cfg.LiquidityThinPct)/span*100
	}
}

// SafetyScoreFromHolders maps an on-chain holder count through fixed bands
// to a 0-100 safety score (higher is safer). An unavailable or zero count
// lands in the lowest band.
func (e *Engine) SafetyScoreFromHolders(holders int64) float64 {
	switch {
	case holders > 5000:
		return 100
	case holders > 1000:
		return 75
	case holders > 100:
		return 50
	case holders >= 1:
		return 10
	default:
		return 5
	}
}

// Overall combines the four sub-metrics into one risk score. Safety and
// sentiment arrive pre-inversion (higher is better) and are flipped into
// risk contributions; the result is the unweighted mean of the four
// contributions, rounded to two decimal places, always in [0,100].
func (e *Engine) Overall(volatilityRisk, liquidityRisk, safetyScore, sentimentScore float64) float64 {
	contractRisk := 100 - safetyScore
	sentimentRisk := 100 - sentimentScore
	mean := (volatilityRisk + liquidityRisk + contractRisk + sentimentRisk) / 4
	return round2(mean)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
