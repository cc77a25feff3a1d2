package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-engine/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-engine/internal/risk"
	"github.com/ducminhle1904/crypto-trading-engine/internal/storage"
	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// fakeVenue is an in-memory exchange.Exchange for engine tests. Every
// market order fills immediately at the requested price.
type fakeVenue struct {
	mu        sync.Mutex
	balance   float64
	prices    map[string]float64
	bars      map[string][]types.OHLCV
	barsErr   error
	placeErr  error
	connected bool
	placed    []*exchange.Order
	dataCalls int
	nextID    int
}

func newFakeVenue(balance float64) *fakeVenue {
	return &fakeVenue{
		balance: balance,
		prices:  make(map[string]float64),
		bars:    make(map[string][]types.OHLCV),
	}
}

func (v *fakeVenue) Connect(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = true
	return nil
}

func (v *fakeVenue) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = false
	return nil
}

func (v *fakeVenue) Name() string { return "fake" }

func (v *fakeVenue) GetBalance(ctx context.Context, asset string) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance, nil
}

func (v *fakeVenue) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	price, ok := v.prices[symbol]
	if !ok {
		return 0, errors.New("no price")
	}
	return price, nil
}

func (v *fakeVenue) GetMarketData(ctx context.Context, symbol, timeframe string, limit int) ([]types.OHLCV, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dataCalls++
	if v.barsErr != nil {
		return nil, v.barsErr
	}
	return v.bars[symbol], nil
}

func (v *fakeVenue) PlaceOrder(ctx context.Context, symbol string, side exchange.Side, quantity, price float64, orderType exchange.OrderType) (*exchange.Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.placeErr != nil {
		return nil, v.placeErr
	}
	v.nextID++
	order := &exchange.Order{
		ID:        fmt.Sprintf("ord-%d", v.nextID),
		Symbol:    symbol,
		Side:      side,
		Type:      orderType,
		Quantity:  quantity,
		Price:     price,
		FilledQty: quantity,
		AvgPrice:  price,
		Status:    exchange.OrderStatusFilled,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	v.placed = append(v.placed, order)
	return order, nil
}

func (v *fakeVenue) GetOrderStatus(ctx context.Context, symbol, orderID string) (*exchange.Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, o := range v.placed {
		if o.ID == orderID {
			return o, nil
		}
	}
	return nil, errors.New("order not found")
}

func (v *fakeVenue) CancelOrder(ctx context.Context, symbol, orderID string) error { return nil }

func (v *fakeVenue) placedOrders() []*exchange.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*exchange.Order, len(v.placed))
	copy(out, v.placed)
	return out
}

// memStore is an in-memory storage.Store for engine tests.
type memStore struct {
	mu        sync.Mutex
	trades    []storage.TradeRecord
	positions map[string]storage.PositionRecord
	sessions  map[string]storage.SessionRecord
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{
		positions: make(map[string]storage.PositionRecord),
		sessions:  make(map[string]storage.SessionRecord),
	}
}

func positionKey(userID int64, symbol string) string {
	return fmt.Sprintf("%d:%s", userID, symbol)
}

func (s *memStore) SaveTrade(ctx context.Context, trade *storage.TradeRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record := *trade
	record.ID = s.nextID
	s.trades = append(s.trades, record)
	return record.ID, nil
}

func (s *memStore) GetTrades(ctx context.Context, userID int64, since time.Time) ([]storage.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.TradeRecord
	for _, t := range s.trades {
		if t.UserID == userID && !t.Timestamp.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) UpsertPosition(ctx context.Context, position *storage.PositionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[positionKey(position.UserID, position.Symbol)] = *position
	return nil
}

func (s *memStore) GetPosition(ctx context.Context, userID int64, symbol string) (*storage.PositionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[positionKey(userID, symbol)]
	if !ok {
		return nil, nil
	}
	copied := p
	return &copied, nil
}

func (s *memStore) GetPositions(ctx context.Context, userID int64) ([]storage.PositionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.PositionRecord
	for _, p := range s.positions {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) DeletePosition(ctx context.Context, userID int64, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, positionKey(userID, symbol))
	return nil
}

func (s *memStore) CreateSession(ctx context.Context, session *storage.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *memStore) UpdateSession(ctx context.Context, session *storage.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[session.ID]
	if !ok {
		return errors.New("session not found")
	}
	existing.Status = session.Status
	existing.CurrentBalance = session.CurrentBalance
	existing.TotalTrades = session.TotalTrades
	existing.TotalPnL = session.TotalPnL
	s.sessions[session.ID] = existing
	return nil
}

func (s *memStore) CloseSession(ctx context.Context, sessionID string, status string, stoppedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[sessionID]
	if !ok {
		return errors.New("session not found")
	}
	existing.Status = status
	existing.StoppedAt = &stoppedAt
	s.sessions[sessionID] = existing
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) session(id string) (storage.SessionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	return rec, ok
}

func (s *memStore) allTrades() []storage.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.TradeRecord, len(s.trades))
	copy(out, s.trades)
	return out
}

// failingEstimator errors on every volatility lookup so the risk gate
// fails closed.
type failingEstimator struct{}

func (failingEstimator) Volatility(symbol string) (float64, error) {
	return 0, errors.New("no volatility data")
}

func (failingEstimator) Correlation(symbol, other string) (float64, error) { return 0, nil }

func (failingEstimator) PortfolioRisk(snapshot *risk.Snapshot) (float64, error) { return 0, nil }

func newTestEngine(venue *fakeVenue, store *memStore, riskManager *risk.Manager) *Engine {
	return New(Config{
		UserID:       7,
		PollInterval: time.Hour,
	}, venue, store, riskManager, nil, nil)
}

// trendBars builds n hourly bars whose closes move by step each bar.
func trendBars(n int, start, step float64) []types.OHLCV {
	bars := make([]types.OHLCV, n)
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		close := start + float64(i)*step
		bars[i] = types.OHLCV{
			Open:      close - step/2,
			High:      close + 1,
			Low:       close - 1,
			Close:     close,
			Volume:    100,
			Timestamp: ts.Add(time.Duration(i) * time.Hour),
		}
	}
	return bars
}

// markRunning puts the engine into RUNNING with the given balances so a
// cycle can be driven synchronously, without the Start goroutine.
func markRunning(e *Engine, balance float64) {
	e.mu.Lock()
	e.setStateLocked(StateRunning)
	e.startBalance = balance
	e.currentBalance = balance
	e.mu.Unlock()
}

func TestEngineLifecycle(t *testing.T) {
	ctx := context.Background()
	venue := newFakeVenue(10000)
	store := newMemStore()
	e := newTestEngine(venue, store, nil)

	assert.Equal(t, StateStopped, e.State())

	require.NoError(t, e.Start(ctx))
	assert.Equal(t, StateRunning, e.State())
	assert.True(t, venue.connected)

	err := e.Start(ctx)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, StateRunning, e.State(), "rejected start must not alter state")

	sessionID := e.Status().SessionID
	require.NotEmpty(t, sessionID)

	require.NoError(t, e.Stop(ctx))
	assert.Equal(t, StateStopped, e.State())
	assert.False(t, venue.connected)

	session, ok := store.session(sessionID)
	require.True(t, ok)
	assert.Equal(t, "stopped", session.Status)
	require.NotNil(t, session.StoppedAt)

	err = e.Stop(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestEnginePauseResume(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(newFakeVenue(10000), newMemStore(), nil)

	assert.ErrorIs(t, e.Pause(ctx), ErrNotRunning)
	assert.ErrorIs(t, e.Resume(ctx), ErrNotPaused)

	require.NoError(t, e.Start(ctx))

	require.NoError(t, e.Pause(ctx))
	assert.Equal(t, StatePaused, e.State())
	assert.ErrorIs(t, e.Pause(ctx), ErrNotRunning)

	require.NoError(t, e.Resume(ctx))
	assert.Equal(t, StateRunning, e.State())
	assert.ErrorIs(t, e.Resume(ctx), ErrNotPaused)

	require.NoError(t, e.Pause(ctx))
	require.NoError(t, e.Stop(ctx), "stop must work from PAUSED")
	assert.Equal(t, StateStopped, e.State())
}

func TestEngineAddRemoveStrategy(t *testing.T) {
	e := newTestEngine(newFakeVenue(10000), newMemStore(), nil)

	require.NoError(t, e.AddStrategy("rsi-btc", "rsi", nil, "BTCUSDT"))
	assert.Error(t, e.AddStrategy("rsi-btc", "rsi", nil, "ETHUSDT"), "duplicate id rejected")
	assert.Error(t, e.AddStrategy("bad", "astrology", nil, "BTCUSDT"), "unknown type rejected")
	assert.Error(t, e.AddStrategy("nosym", "rsi", nil, ""), "missing symbol rejected")

	assert.Equal(t, 1, e.Status().ActiveStrategies)

	require.NoError(t, e.RemoveStrategy("rsi-btc"))
	assert.Error(t, e.RemoveStrategy("rsi-btc"))
	assert.Equal(t, 0, e.Status().ActiveStrategies)
}

func TestApplyFillBuyAveraging(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := newTestEngine(newFakeVenue(10000), store, nil)

	require.NoError(t, e.applyFill(ctx, "BTCUSDT", "BUY", 1, 100))
	require.NoError(t, e.applyFill(ctx, "BTCUSDT", "BUY", 1, 200))

	p, err := store.GetPosition(ctx, 7, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.InDelta(t, 2, p.Quantity, 1e-9)
	assert.InDelta(t, 150, p.AveragePrice, 1e-9)
}

func TestApplyFillRepeatedBuySamePrice(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := newTestEngine(newFakeVenue(10000), store, nil)

	require.NoError(t, e.applyFill(ctx, "ETHUSDT", "BUY", 2, 100))
	require.NoError(t, e.applyFill(ctx, "ETHUSDT", "BUY", 2, 100))

	p, err := store.GetPosition(ctx, 7, "ETHUSDT")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.InDelta(t, 4, p.Quantity, 1e-9)
	assert.InDelta(t, 100, p.AveragePrice, 1e-9, "same fill twice keeps the average price")
}

func TestApplyFillSellReducesThenRemoves(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := newTestEngine(newFakeVenue(10000), store, nil)

	require.NoError(t, e.applyFill(ctx, "BTCUSDT", "BUY", 2, 100))

	require.NoError(t, e.applyFill(ctx, "BTCUSDT", "SELL", 1, 110))
	p, err := store.GetPosition(ctx, 7, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.InDelta(t, 1, p.Quantity, 1e-9)
	assert.InDelta(t, 100, p.AveragePrice, 1e-9, "selling leaves cost basis unchanged")

	require.NoError(t, e.applyFill(ctx, "BTCUSDT", "SELL", 1.5, 120))
	p, err = store.GetPosition(ctx, 7, "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, p, "selling the full quantity removes the position")

	require.NoError(t, e.applyFill(ctx, "SOLUSDT", "SELL", 1, 50), "sell with no position is a no-op")
	p, err = store.GetPosition(ctx, 7, "SOLUSDT")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCycleExecutesActionableBuySignal(t *testing.T) {
	ctx := context.Background()
	venue := newFakeVenue(10000)
	store := newMemStore()
	e := newTestEngine(venue, store, nil)

	// Monotonically falling closes drive RSI to 0: a BUY at confidence 1.
	venue.bars["BTCUSDT"] = trendBars(40, 100, -1)
	require.NoError(t, e.AddStrategy("rsi-btc", "rsi", nil, "BTCUSDT"))

	markRunning(e, 10000)
	e.cycle(ctx)

	orders := venue.placedOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, exchange.SideBuy, orders[0].Side)
	assert.Equal(t, exchange.OrderTypeMarket, orders[0].Type)
	assert.Equal(t, "BTCUSDT", orders[0].Symbol)

	// base 10000 * 0.02 * 1.0 = 200, low risk keeps the level multiplier
	// at 1.0 and the 30% default volatility scales by 0.75.
	lastClose := 100.0 - 39
	assert.InDelta(t, 150.0/lastClose, orders[0].Quantity, 1e-6)

	trades := store.allTrades()
	require.Len(t, trades, 1)
	assert.Equal(t, "BUY", trades[0].Side)
	assert.Equal(t, "BTCUSDT", trades[0].Symbol)

	p, err := store.GetPosition(ctx, 7, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.InDelta(t, orders[0].Quantity, p.Quantity, 1e-9)

	status := e.Status()
	assert.Equal(t, int64(1), status.TotalTrades)
	require.Contains(t, status.LastSignals, "rsi-btc")
	assert.Equal(t, 1.0, status.LastSignals["rsi-btc"].Confidence)
}

func TestCycleSellSignalReducesPosition(t *testing.T) {
	ctx := context.Background()
	venue := newFakeVenue(10000)
	store := newMemStore()
	e := newTestEngine(venue, store, nil)

	// Monotonically rising closes drive RSI to 100: a SELL at confidence 1.
	venue.bars["BTCUSDT"] = trendBars(40, 61, 1)
	venue.prices["BTCUSDT"] = 100
	require.NoError(t, e.AddStrategy("rsi-btc", "rsi", nil, "BTCUSDT"))

	require.NoError(t, store.UpsertPosition(ctx, &storage.PositionRecord{
		UserID:       7,
		Symbol:       "BTCUSDT",
		Quantity:     10,
		AveragePrice: 50,
		CurrentPrice: 100,
		TotalValue:   1000,
		UpdatedAt:    time.Now().UTC(),
	}))

	markRunning(e, 10000)
	e.cycle(ctx)

	orders := venue.placedOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, exchange.SideSell, orders[0].Side)

	p, err := store.GetPosition(ctx, 7, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.InDelta(t, 10-orders[0].Quantity, p.Quantity, 1e-9)
	assert.InDelta(t, 50, p.AveragePrice, 1e-9)
}

func TestCycleBlockedTradePlacesNoOrder(t *testing.T) {
	ctx := context.Background()
	venue := newFakeVenue(10000)
	store := newMemStore()
	riskManager := risk.NewManager(risk.DefaultLimits(), failingEstimator{})
	e := newTestEngine(venue, store, riskManager)

	venue.bars["BTCUSDT"] = trendBars(40, 100, -1)
	require.NoError(t, e.AddStrategy("rsi-btc", "rsi", nil, "BTCUSDT"))

	markRunning(e, 10000)
	e.cycle(ctx)

	assert.Empty(t, venue.placedOrders(), "gated trade must not reach the venue")
	assert.Empty(t, store.allTrades())
	assert.Equal(t, int64(0), e.Status().TotalTrades)

	// The signal itself is still recorded.
	require.Contains(t, e.Status().LastSignals, "rsi-btc")
}

func TestCycleHoldsOnDailyLossLimit(t *testing.T) {
	ctx := context.Background()
	venue := newFakeVenue(10000)
	store := newMemStore()
	e := newTestEngine(venue, store, nil)

	venue.bars["BTCUSDT"] = trendBars(40, 100, -1)
	require.NoError(t, e.AddStrategy("rsi-btc", "rsi", nil, "BTCUSDT"))

	// A 600 loss today exceeds 5% of the 10000 starting balance.
	_, err := store.SaveTrade(ctx, &storage.TradeRecord{
		UserID:     7,
		Symbol:     "BTCUSDT",
		Side:       "BUY",
		Quantity:   1,
		Price:      600,
		TotalValue: 600,
		Timestamp:  time.Now().UTC(),
	})
	require.NoError(t, err)

	markRunning(e, 10000)
	e.cycle(ctx)

	assert.Equal(t, 0, venue.dataCalls, "strategies are skipped while limits are breached")
	assert.Empty(t, venue.placedOrders())
	assert.Equal(t, StateRunning, e.State(), "holding a cycle is not a state change")
}

func TestCycleHoldsOnDrawdownLimit(t *testing.T) {
	ctx := context.Background()
	venue := newFakeVenue(10000)
	store := newMemStore()
	e := newTestEngine(venue, store, nil)

	venue.bars["BTCUSDT"] = trendBars(40, 100, -1)
	require.NoError(t, e.AddStrategy("rsi-btc", "rsi", nil, "BTCUSDT"))

	e.mu.Lock()
	e.setStateLocked(StateRunning)
	e.startBalance = 10000
	e.currentBalance = 8000 // 20% drawdown, above the 15% limit
	e.mu.Unlock()

	e.cycle(ctx)

	assert.Equal(t, 0, venue.dataCalls)
	assert.Empty(t, venue.placedOrders())
	assert.Equal(t, StateRunning, e.State())
}

func TestRepeatedVenueFaultsEscalateToError(t *testing.T) {
	ctx := context.Background()
	venue := newFakeVenue(10000)
	store := newMemStore()
	e := newTestEngine(venue, store, nil)

	venue.barsErr = errors.New("venue unavailable")
	require.NoError(t, e.AddStrategy("rsi-btc", "rsi", nil, "BTCUSDT"))

	markRunning(e, 10000)

	for i := 0; i < 4; i++ {
		e.cycle(ctx)
		assert.Equal(t, StateRunning, e.State(), "single failed cycles stay recoverable")
	}

	e.cycle(ctx)
	assert.Equal(t, StateError, e.State(), "a run of venue failures escalates")
}

func TestStatusReturnsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	venue := newFakeVenue(10000)
	store := newMemStore()
	e := newTestEngine(venue, store, nil)

	venue.bars["BTCUSDT"] = trendBars(40, 100, -1)
	require.NoError(t, e.AddStrategy("rsi-btc", "rsi", nil, "BTCUSDT"))

	markRunning(e, 10000)
	e.cycle(ctx)

	status := e.Status()
	require.Contains(t, status.LastSignals, "rsi-btc")
	status.LastSignals["rsi-btc"].Confidence = -1

	assert.Equal(t, 1.0, e.Status().LastSignals["rsi-btc"].Confidence,
		"mutating a snapshot must not touch engine state")
}
