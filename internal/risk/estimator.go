package risk

import "math"

// Estimator supplies the statistical inputs to risk decisions. The
// manager treats it as replaceable: swap in an implementation backed by
// real historical data without touching the gating or sizing logic.
type Estimator interface {
	// Volatility returns the annualized volatility for a symbol.
	Volatility(symbol string) (float64, error)

	// Correlation returns the pairwise correlation between two symbols,
	// in [-1, 1].
	Correlation(symbol, other string) (float64, error)

	// PortfolioRisk returns the one-day portfolio risk measure as a
	// fraction of portfolio value.
	PortfolioRisk(snapshot *Snapshot) (float64, error)
}

// DefaultEstimator returns fixed, deliberately conservative values. It
// stands in until a history-backed estimator is wired up.
type DefaultEstimator struct {
	// AnnualVolatility is the assumed market volatility for every
	// symbol. Defaults to 30% when zero.
	AnnualVolatility float64
}

const (
	defaultAnnualVolatility = 0.30
	varAnnualVolatility     = 0.15
	varConfidenceFactor     = 1.645 // 95% one-tailed
	tradingDaysPerYear      = 252
)

// Volatility returns the assumed annualized volatility for any symbol.
func (e *DefaultEstimator) Volatility(symbol string) (float64, error) {
	if e.AnnualVolatility > 0 {
		return e.AnnualVolatility, nil
	}
	return defaultAnnualVolatility, nil
}

// Correlation returns 0: without price history no pair is assumed to
// move together.
func (e *DefaultEstimator) Correlation(symbol, other string) (float64, error) {
	return 0, nil
}

// PortfolioRisk returns a parametric one-day 95% VaR fraction assuming
// normal returns at a fixed annualized volatility. A portfolio holding
// no positions carries no market risk.
func (e *DefaultEstimator) PortfolioRisk(snapshot *Snapshot) (float64, error) {
	if len(snapshot.Positions) == 0 {
		return 0, nil
	}
	daily := varAnnualVolatility / math.Sqrt(tradingDaysPerYear)
	return daily * varConfidenceFactor, nil
}
