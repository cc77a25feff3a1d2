package risk

import (
	"math"

	"github.com/ducminhle1904/crypto-trading-engine/internal/strategy"
)

// maxInstrumentVolatility is the fixed ceiling above which no new trade
// is opened regardless of configured limits.
const maxInstrumentVolatility = 0.5

// estimatedTradeQuantity is the nominal quantity used when projecting
// post-trade concentration before the real size is known.
const estimatedTradeQuantity = 0.01

// Manager enforces the configured risk limits: it gates candidate
// trades, sizes positions, and produces per-trade assessments. All
// methods are stateless per call; every portfolio input arrives in the
// snapshot. The whole manager fails closed: a computation error blocks
// the trade or yields the most conservative assessment.
type Manager struct {
	limits    Limits
	estimator Estimator
}

// NewManager creates a Manager with the given limits. A nil estimator
// falls back to the built-in DefaultEstimator.
func NewManager(limits Limits, estimator Estimator) *Manager {
	if estimator == nil {
		estimator = &DefaultEstimator{}
	}
	return &Manager{limits: limits, estimator: estimator}
}

// Limits returns the configured risk limits.
func (m *Manager) Limits() Limits {
	return m.limits
}

// CheckTradeAllowed reports whether a candidate trade passes every risk
// gate. All checks must pass; any estimator failure blocks the trade.
func (m *Manager) CheckTradeAllowed(snapshot *Snapshot, signal *strategy.Signal, symbol string) bool {
	if snapshot == nil || signal == nil {
		return false
	}
	if !m.checkBasicLimits(snapshot) {
		return false
	}
	if !m.checkConcentration(snapshot, signal, symbol) {
		return false
	}
	if !m.checkCorrelation(snapshot, symbol) {
		return false
	}
	return m.checkVolatility(symbol)
}

// checkBasicLimits verifies daily loss, drawdown and aggregate
// portfolio risk against the configured limits.
func (m *Manager) checkBasicLimits(snapshot *Snapshot) bool {
	value := snapshot.PortfolioValue()

	if snapshot.DailyPnL < -(value * m.limits.MaxDailyLoss) {
		return false
	}
	if snapshot.Drawdown > m.limits.MaxDrawdown {
		return false
	}

	portfolioRisk, err := m.estimator.PortfolioRisk(snapshot)
	if err != nil {
		return false
	}
	return portfolioRisk <= m.limits.MaxPortfolioRisk
}

// checkConcentration projects the post-trade share of portfolio value
// held in the target symbol.
func (m *Manager) checkConcentration(snapshot *Snapshot, signal *strategy.Signal, symbol string) bool {
	total := snapshot.PortfolioValue()
	if total <= 0 {
		return true
	}

	current := snapshot.PositionValue(symbol)
	delta := signal.Price * estimatedTradeQuantity
	newValue := current + delta
	if signal.Type == strategy.SignalSell {
		newValue = current - delta
	}

	return newValue/total <= m.limits.MaxPositionSize
}

// checkCorrelation verifies the candidate symbol is not too correlated
// with any existing position. A single-position portfolio carries no
// pairwise correlation risk.
func (m *Manager) checkCorrelation(snapshot *Snapshot, symbol string) bool {
	if len(snapshot.Positions) < 2 {
		return true
	}
	for _, p := range snapshot.Positions {
		if p.Symbol == symbol {
			continue
		}
		correlation, err := m.estimator.Correlation(symbol, p.Symbol)
		if err != nil {
			return false
		}
		if correlation > m.limits.CorrelationLimit {
			return false
		}
	}
	return true
}

// checkVolatility verifies instrument volatility against the fixed ceiling.
func (m *Manager) checkVolatility(symbol string) bool {
	volatility, err := m.estimator.Volatility(symbol)
	if err != nil {
		return false
	}
	return volatility <= maxInstrumentVolatility
}

// AdjustPositionSize scales a caller-proposed size by risk level and
// market volatility, then clamps to the assessed maximum. The result is
// never negative and never exceeds the assessment's MaxPositionSize.
func (m *Manager) AdjustPositionSize(snapshot *Snapshot, symbol string, baseSize float64) float64 {
	assessment := m.AssessRisk(snapshot, symbol, baseSize)

	adjusted := baseSize
	switch assessment.Level {
	case LevelHigh:
		adjusted *= 0.5
	case LevelMedium:
		adjusted *= 0.75
	}

	if m.limits.VolatilityAdjustment {
		adjusted *= m.volatilityFactor(symbol)
	}

	adjusted = math.Min(adjusted, assessment.MaxPositionSize)
	adjusted = math.Max(adjusted, 0)
	return round6(adjusted)
}

// volatilityFactor maps instrument volatility to a discrete sizing
// multiplier. Higher volatility means a smaller position.
func (m *Manager) volatilityFactor(symbol string) float64 {
	volatility, err := m.estimator.Volatility(symbol)
	if err != nil {
		return 0.75
	}
	switch {
	case volatility > 0.4:
		return 0.5
	case volatility > 0.2:
		return 0.75
	default:
		return 1.0
	}
}

// AssessRisk produces the full risk picture for a candidate trade of
// the given size. Estimator failures yield the most conservative
// assessment instead of an error.
func (m *Manager) AssessRisk(snapshot *Snapshot, symbol string, positionSize float64) *Assessment {
	if snapshot == nil {
		return conservativeAssessment()
	}

	var factors, recommendations []string

	portfolioValue := snapshot.PortfolioValue()
	concentration := 0.0
	if portfolioValue > 0 {
		concentration = positionSize / portfolioValue
	}
	if concentration > m.limits.MaxPositionSize {
		factors = append(factors, "High position concentration")
		recommendations = append(recommendations, "Reduce position size")
	}

	marketRisk, err := m.estimator.Volatility(symbol)
	if err != nil {
		return conservativeAssessment()
	}
	if marketRisk > 0.7 {
		factors = append(factors, "High market volatility")
		recommendations = append(recommendations, "Consider waiting for lower volatility")
	}

	correlationRisk, err := m.maxCorrelation(snapshot, symbol)
	if err != nil {
		return conservativeAssessment()
	}
	if correlationRisk > m.limits.CorrelationLimit {
		factors = append(factors, "High portfolio correlation")
		recommendations = append(recommendations, "Diversify portfolio")
	}

	score := riskScore(concentration, marketRisk, correlationRisk)
	level := levelForScore(score)

	price := snapshot.Price(symbol)

	return &Assessment{
		Score:           score,
		Level:           level,
		MaxPositionSize: portfolioValue * m.limits.MaxPositionSize * (1 - score),
		StopLossPrice:   price * (1 - stopLossPercentage(level)),
		TakeProfitPrice: price * (1 + takeProfitPercentage(level)),
		Factors:         factors,
		Recommendations: recommendations,
	}
}

// maxCorrelation returns the highest pairwise correlation between the
// candidate symbol and any held position.
func (m *Manager) maxCorrelation(snapshot *Snapshot, symbol string) (float64, error) {
	highest := 0.0
	for _, p := range snapshot.Positions {
		if p.Symbol == symbol {
			continue
		}
		correlation, err := m.estimator.Correlation(symbol, p.Symbol)
		if err != nil {
			return 0, err
		}
		if correlation > highest {
			highest = correlation
		}
	}
	return highest, nil
}

// riskScore is a fixed-weight linear combination of the three risk
// components, clamped to [0, 1].
func riskScore(concentration, marketRisk, correlationRisk float64) float64 {
	score := 0.4*concentration + 0.3*marketRisk + 0.3*correlationRisk
	return math.Min(1.0, math.Max(0.0, score))
}

func levelForScore(score float64) Level {
	switch {
	case score < 0.3:
		return LevelLow
	case score < 0.6:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// stopLossPercentage widens the protective stop as risk increases.
func stopLossPercentage(level Level) float64 {
	switch level {
	case LevelLow:
		return 0.02
	case LevelHigh:
		return 0.05
	default:
		return 0.03
	}
}

// takeProfitPercentage widens the profit target as risk increases.
func takeProfitPercentage(level Level) float64 {
	switch level {
	case LevelLow:
		return 0.06
	case LevelHigh:
		return 0.12
	default:
		return 0.08
	}
}

func conservativeAssessment() *Assessment {
	return &Assessment{
		Score:           0.8,
		Level:           LevelHigh,
		MaxPositionSize: 0,
		Factors:         []string{"Risk assessment unavailable"},
		Recommendations: []string{"Hold until risk inputs recover"},
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
