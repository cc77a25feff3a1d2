package engine

import (
	"context"
	"time"

	botErrors "github.com/ducminhle1904/crypto-trading-engine/internal/errors"
	"github.com/ducminhle1904/crypto-trading-engine/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-trading-engine/internal/risk"
	"github.com/ducminhle1904/crypto-trading-engine/internal/storage"
	"github.com/ducminhle1904/crypto-trading-engine/internal/strategy"
)

// run is the polling loop. It owns all mutation of the engine's
// counters and positions; lifecycle calls only flip the state it checks
// at each iteration boundary. Cancellation is cooperative: a stop
// request is observed at the top of the next iteration.
func (e *Engine) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	ctx := context.Background()
	e.cycle(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			e.cycle(ctx)
		}
	}
}

// cycle performs one pass of the trading decision loop. A failure
// inside one cycle never crashes the loop; venue faults are tracked and
// only a repeated run of them escalates the engine to ERROR.
func (e *Engine) cycle(ctx context.Context) {
	if e.State() != StateRunning {
		return
	}

	defer func() {
		monitoring.RecordCycle()
		if e.health != nil {
			e.health.MarkCycle()
		}
	}()

	if e.shouldHoldTrading(ctx) {
		e.logWarning("Risk limits reached, holding trading this cycle")
		return
	}

	for _, reg := range e.registrations() {
		e.processStrategy(ctx, reg)
		if e.State() != StateRunning {
			return
		}
	}

	e.refreshPositions(ctx)
	e.refreshBalance(ctx)

	e.mu.Lock()
	e.updateSessionLocked(ctx, "running")
	e.mu.Unlock()
}

// shouldHoldTrading evaluates the cycle-level pause condition: daily
// loss or drawdown beyond the configured thresholds skips strategy
// processing without changing engine state. An error computing the
// inputs holds trading as well.
func (e *Engine) shouldHoldTrading(ctx context.Context) bool {
	dailyPnL, err := e.dailyPnL(ctx)
	if err != nil {
		e.logError("Error computing daily P&L: %v", err)
		return true
	}

	e.mu.Lock()
	startBalance := e.startBalance
	currentBalance := e.currentBalance
	e.mu.Unlock()

	if dailyPnL < -(startBalance * e.cfg.MaxDailyLoss) {
		e.logWarning("Daily loss limit reached (%.2f)", dailyPnL)
		return true
	}

	if startBalance > 0 {
		drawdown := (startBalance - currentBalance) / startBalance
		if drawdown > e.cfg.MaxDrawdown {
			e.logWarning("Maximum drawdown limit reached (%.2f%%)", drawdown*100)
			return true
		}
	}
	return false
}

// dailyPnL sums today's trades: sells add value, buys subtract it.
func (e *Engine) dailyPnL(ctx context.Context) (float64, error) {
	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	trades, err := e.store.GetTrades(ctx, e.cfg.UserID, startOfDay)
	if err != nil {
		return 0, err
	}

	pnl := 0.0
	for _, t := range trades {
		if t.Side == "SELL" {
			pnl += t.TotalValue
		} else {
			pnl -= t.TotalValue
		}
	}
	return pnl, nil
}

// processStrategy fetches market data for one registration, evaluates
// its strategy, and routes an actionable signal to execution.
func (e *Engine) processStrategy(ctx context.Context, reg *registration) {
	data, err := e.exchange.GetMarketData(ctx, reg.symbol, e.cfg.Timeframe, e.cfg.CandleLimit)
	if err != nil {
		e.logError("Error fetching market data for %s: %v", reg.symbol, err)
		e.recordVenueFault(err)
		return
	}
	e.faults.RecordSuccess()

	if len(data) == 0 {
		e.logWarning("No market data for %s this cycle", reg.symbol)
		return
	}

	signal := reg.strategy.Evaluate(data)

	e.mu.Lock()
	reg.lastSignal = signal
	e.mu.Unlock()

	monitoring.RecordSignal(signal.Strategy, string(signal.Type), signal.Confidence)
	monitoring.RecordPrice(reg.symbol, data[len(data)-1].Close)

	if signal.Actionable(e.cfg.MinConfidence) {
		e.executeSignal(ctx, reg, signal)
	}
}

// executeSignal runs a candidate trade through the risk gate, sizes it,
// submits the order, and performs the fill bookkeeping.
func (e *Engine) executeSignal(ctx context.Context, reg *registration, signal *strategy.Signal) {
	balance, err := e.exchange.GetBalance(ctx, e.cfg.QuoteCurrency)
	if err != nil {
		e.logError("Error fetching balance: %v", err)
		e.recordVenueFault(err)
		return
	}
	e.faults.RecordSuccess()

	snapshot, err := e.portfolioSnapshot(ctx, reg.symbol, signal.Price, balance)
	if err != nil {
		e.logError("Error building portfolio snapshot: %v", err)
		return
	}

	if !e.risk.CheckTradeAllowed(snapshot, signal, reg.symbol) {
		monitoring.RecordBlockedTrade(reg.symbol)
		e.logInfo("Trade blocked by risk gate for %s (%s, confidence %.2f)",
			reg.symbol, signal.Type, signal.Confidence)
		return
	}

	baseValue := balance * e.cfg.MaxRiskPerTrade * signal.Confidence
	adjustedValue := e.risk.AdjustPositionSize(snapshot, reg.symbol, baseValue)
	if adjustedValue <= 0 || signal.Price <= 0 {
		e.logInfo("Position size adjusted to zero for %s, skipping", reg.symbol)
		return
	}
	quantity := adjustedValue / signal.Price

	assessment := e.risk.AssessRisk(snapshot, reg.symbol, baseValue)
	decision := Decision{
		Signal:    signal,
		Action:    signal.Type,
		Quantity:  quantity,
		Price:     signal.Price,
		RiskScore: assessment.Score,
		Timestamp: time.Now().UTC(),
	}

	side := exchange.SideBuy
	if signal.Type == strategy.SignalSell {
		side = exchange.SideSell
	}

	order, err := e.exchange.PlaceOrder(ctx, reg.symbol, side, decision.Quantity, decision.Price, exchange.OrderTypeMarket)
	if err != nil {
		e.logError("Error placing %s order for %s: %v", side, reg.symbol, err)
		e.recordVenueFault(err)
		return
	}
	e.faults.RecordSuccess()

	if !order.Filled() {
		confirmed, err := e.exchange.GetOrderStatus(ctx, reg.symbol, order.ID)
		if err != nil || !confirmed.Filled() {
			e.logWarning("Order %s for %s not confirmed filled, skipping bookkeeping", order.ID, reg.symbol)
			return
		}
		order = confirmed
	}

	e.settleFill(ctx, reg, signal, order, decision)
}

// settleFill appends the trade record, updates the position, and bumps
// the counters after a confirmed fill.
func (e *Engine) settleFill(ctx context.Context, reg *registration, signal *strategy.Signal, order *exchange.Order, decision Decision) {
	fillPrice := order.AvgPrice
	if fillPrice <= 0 {
		fillPrice = decision.Price
	}
	fillQty := order.FilledQty
	if fillQty <= 0 {
		fillQty = decision.Quantity
	}

	sideLabel := "BUY"
	if order.Side == exchange.SideSell {
		sideLabel = "SELL"
	}

	if _, err := e.store.SaveTrade(ctx, &storage.TradeRecord{
		UserID:     e.cfg.UserID,
		Symbol:     reg.symbol,
		Side:       sideLabel,
		Quantity:   fillQty,
		Price:      fillPrice,
		TotalValue: fillQty * fillPrice,
		Strategy:   signal.Strategy,
		Exchange:   e.exchange.Name(),
		OrderID:    order.ID,
		Status:     "completed",
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		e.logError("Error recording trade: %v", err)
	}

	if err := e.applyFill(ctx, reg.symbol, sideLabel, fillQty, fillPrice); err != nil {
		e.logError("Error updating position for %s: %v", reg.symbol, err)
	}

	e.mu.Lock()
	e.totalTrades++
	e.updateSessionLocked(ctx, "running")
	e.mu.Unlock()

	monitoring.RecordTrade(reg.symbol, sideLabel, signal.Strategy, fillQty*fillPrice)
	e.logTrade("%s %s %.6f @ %.2f (strategy %s, confidence %.2f, risk %.2f)",
		sideLabel, reg.symbol, fillQty, fillPrice, signal.Strategy, signal.Confidence, decision.RiskScore)
}

// refreshPositions re-prices every held position and refreshes its
// unrealized P&L.
func (e *Engine) refreshPositions(ctx context.Context) {
	positions, err := e.store.GetPositions(ctx, e.cfg.UserID)
	if err != nil {
		e.logError("Error loading positions: %v", err)
		return
	}

	totalPnL := 0.0
	totalValue := 0.0
	for i := range positions {
		p := &positions[i]
		price, err := e.exchange.GetCurrentPrice(ctx, p.Symbol)
		if err != nil || price <= 0 {
			totalPnL += p.PnL
			totalValue += p.TotalValue
			continue
		}

		p.CurrentPrice = price
		p.TotalValue = p.Quantity * price
		cost := p.Quantity * p.AveragePrice
		p.PnL = p.TotalValue - cost
		if cost > 0 {
			p.PnLPercentage = p.PnL / cost * 100
		}
		p.UpdatedAt = time.Now().UTC()

		if err := e.store.UpsertPosition(ctx, p); err != nil {
			e.logError("Error refreshing position %s: %v", p.Symbol, err)
		}
		monitoring.RecordPrice(p.Symbol, price)
		totalPnL += p.PnL
		totalValue += p.TotalValue
	}

	monitoring.RecordPortfolioValue(totalValue)

	e.mu.Lock()
	e.totalPnL = totalPnL
	e.mu.Unlock()
}

// refreshBalance pulls the current quote balance from the venue.
func (e *Engine) refreshBalance(ctx context.Context) {
	balance, err := e.exchange.GetBalance(ctx, e.cfg.QuoteCurrency)
	if err != nil {
		e.logError("Error refreshing balance: %v", err)
		return
	}
	e.mu.Lock()
	e.currentBalance = balance
	e.mu.Unlock()
}

// portfolioSnapshot assembles the read-only view the risk manager
// consumes for one decision.
func (e *Engine) portfolioSnapshot(ctx context.Context, symbol string, price, cashBalance float64) (*risk.Snapshot, error) {
	records, err := e.store.GetPositions(ctx, e.cfg.UserID)
	if err != nil {
		return nil, err
	}

	positions := make([]risk.Position, 0, len(records))
	prices := map[string]float64{symbol: price}
	for _, r := range records {
		positions = append(positions, risk.Position{
			Symbol:       r.Symbol,
			Quantity:     r.Quantity,
			AveragePrice: r.AveragePrice,
			CurrentPrice: r.CurrentPrice,
			TotalValue:   r.TotalValue,
			PnL:          r.PnL,
		})
		if _, known := prices[r.Symbol]; !known {
			prices[r.Symbol] = r.CurrentPrice
		}
	}

	dailyPnL, err := e.dailyPnL(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	startBalance := e.startBalance
	currentBalance := e.currentBalance
	e.mu.Unlock()

	drawdown := 0.0
	if startBalance > 0 {
		drawdown = (startBalance - currentBalance) / startBalance
	}

	return &risk.Snapshot{
		Positions:   positions,
		CashBalance: cashBalance,
		DailyPnL:    dailyPnL,
		Drawdown:    drawdown,
		Prices:      prices,
	}, nil
}

// recordVenueFault counts one venue failure and escalates the engine to
// ERROR once the failures run long enough.
func (e *Engine) recordVenueFault(err error) {
	monitoring.RecordError(string(botErrors.CategoryOf(err)))
	if e.faults.RecordFault() {
		e.setError("repeated venue failures")
	}
}
