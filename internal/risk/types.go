package risk

// Level classifies the overall risk of a candidate trade.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Limits holds the configured portfolio-wide risk limits.
type Limits struct {
	MaxPositionSize      float64 // max share of portfolio value in one symbol
	MaxPortfolioRisk     float64 // max daily VaR as a fraction of portfolio value
	MaxDailyLoss         float64 // max daily loss as a fraction of portfolio value
	MaxDrawdown          float64 // max decline from the balance peak
	CorrelationLimit     float64 // max pairwise correlation with held positions
	VolatilityAdjustment bool    // scale position size down in volatile markets
}

// DefaultLimits returns the stock risk limits.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionSize:      0.10,
		MaxPortfolioRisk:     0.02,
		MaxDailyLoss:         0.05,
		MaxDrawdown:          0.15,
		CorrelationLimit:     0.70,
		VolatilityAdjustment: true,
	}
}

// Position is one held instrument inside a portfolio snapshot.
type Position struct {
	Symbol       string
	Quantity     float64
	AveragePrice float64
	CurrentPrice float64
	TotalValue   float64
	PnL          float64
}

// Snapshot is a point-in-time view of the portfolio handed to the risk
// manager. It is read-only for the duration of one decision.
type Snapshot struct {
	Positions   []Position
	CashBalance float64 // uncommitted quote-currency balance
	DailyPnL    float64
	Drawdown    float64
	Prices      map[string]float64 // latest known price per symbol
}

// PortfolioValue returns the total deployable capital: the summed value
// of all held positions plus the uncommitted cash balance. Including
// cash lets an empty portfolio size its first trade.
func (s *Snapshot) PortfolioValue() float64 {
	total := s.CashBalance
	for _, p := range s.Positions {
		total += p.TotalValue
	}
	return total
}

// PositionValue returns the held value in one symbol, 0 if not held.
func (s *Snapshot) PositionValue(symbol string) float64 {
	for _, p := range s.Positions {
		if p.Symbol == symbol {
			return p.TotalValue
		}
	}
	return 0
}

// Price returns the latest known price for a symbol, 0 if unknown.
func (s *Snapshot) Price(symbol string) float64 {
	if s.Prices == nil {
		return 0
	}
	return s.Prices[symbol]
}

// Assessment is the full risk picture for one candidate trade.
type Assessment struct {
	Score           float64 // 0.0 to 1.0
	Level           Level
	MaxPositionSize float64
	StopLossPrice   float64
	TakeProfitPrice float64
	Factors         []string
	Recommendations []string
}
