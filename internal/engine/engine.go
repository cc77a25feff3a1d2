package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	botErrors "github.com/ducminhle1904/crypto-trading-engine/internal/errors"
	"github.com/ducminhle1904/crypto-trading-engine/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-engine/internal/logger"
	"github.com/ducminhle1904/crypto-trading-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-trading-engine/internal/risk"
	"github.com/ducminhle1904/crypto-trading-engine/internal/safety"
	"github.com/ducminhle1904/crypto-trading-engine/internal/storage"
	"github.com/ducminhle1904/crypto-trading-engine/internal/strategy"
)

// State represents the engine lifecycle state.
type State string

const (
	StateStopped State = "STOPPED"
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
	StateError   State = "ERROR"
)

// Lifecycle misuse is reported to the caller, never silently ignored.
var (
	ErrAlreadyRunning = botErrors.NewLifecycleError("engine", "start", "engine is already running")
	ErrNotRunning     = botErrors.NewLifecycleError("engine", "lifecycle", "engine is not running")
	ErrNotPaused      = botErrors.NewLifecycleError("engine", "resume", "engine is not paused")
)

// Config holds the engine's trading parameters.
type Config struct {
	UserID          int64
	Exchange        string
	QuoteCurrency   string
	Timeframe       string
	CandleLimit     int
	PollInterval    time.Duration
	MinConfidence   float64
	MaxRiskPerTrade float64
	MaxDailyLoss    float64
	MaxDrawdown     float64
}

func (c *Config) applyDefaults() {
	if c.QuoteCurrency == "" {
		c.QuoteCurrency = "USDT"
	}
	if c.Timeframe == "" {
		c.Timeframe = "1h"
	}
	if c.CandleLimit <= 0 {
		c.CandleLimit = 200
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.6
	}
	if c.MaxRiskPerTrade <= 0 {
		c.MaxRiskPerTrade = 0.02
	}
	if c.MaxDailyLoss <= 0 {
		c.MaxDailyLoss = 0.05
	}
	if c.MaxDrawdown <= 0 {
		c.MaxDrawdown = 0.15
	}
}

// registration tracks one strategy attached to the engine.
type registration struct {
	id         string
	strategy   strategy.Strategy
	symbol     string
	lastSignal *strategy.Signal
}

// Decision is the actionable tuple handed to the execution path once a
// signal has cleared the risk gate and been sized.
type Decision struct {
	Signal    *strategy.Signal
	Action    strategy.SignalType
	Quantity  float64
	Price     float64
	RiskScore float64
	Timestamp time.Time
}

// Engine orchestrates the trading decision loop for one user: it owns
// the lifecycle state machine, the registered strategy set, and the
// performance counters. The polling loop is the sole mutator of the
// counters; lifecycle calls only request transitions, checked by the
// loop at iteration boundaries.
type Engine struct {
	cfg      Config
	exchange exchange.Exchange
	store    storage.Store
	risk     *risk.Manager
	log      *logger.Logger
	health   *monitoring.HealthChecker
	faults   *safety.FaultTracker

	// lifecycleMu serializes Start and Stop, which do venue and store
	// work outside the state mutex.
	lifecycleMu sync.Mutex

	mu             sync.Mutex
	state          State
	sessionID      string
	startBalance   float64
	currentBalance float64
	totalTrades    int64
	totalPnL       float64
	strategies     map[string]*registration
	stopCh         chan struct{}
	doneCh         chan struct{}
}

// New creates an engine wired to its collaborators. The health checker
// may be nil.
func New(cfg Config, venue exchange.Exchange, store storage.Store, riskManager *risk.Manager, log *logger.Logger, health *monitoring.HealthChecker) *Engine {
	cfg.applyDefaults()
	if riskManager == nil {
		riskManager = risk.NewManager(risk.DefaultLimits(), nil)
	}

	e := &Engine{
		cfg:        cfg,
		exchange:   venue,
		store:      store,
		risk:       riskManager,
		log:        log,
		health:     health,
		state:      StateStopped,
		strategies: make(map[string]*registration),
	}
	e.faults = safety.NewFaultTracker("venue", safety.FaultTrackerConfig{})
	e.faults.SetEscalationCallback(func(name string, consecutive uint32) {
		e.logError("repeated %s failures (%d consecutive), escalating to ERROR", name, consecutive)
	})
	return e
}

// AddStrategy attaches a strategy to the engine. Unknown types and
// invalid parameters are rejected immediately. Strategy ids are unique
// within one engine.
func (e *Engine) AddStrategy(id, strategyType string, params map[string]float64, symbol string) error {
	if symbol == "" {
		return botErrors.NewConfigError("engine", "add_strategy", "symbol is required")
	}

	strat, err := strategy.New(strategyType, params)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.strategies[id]; exists {
		return botErrors.NewConfigError("engine", "add_strategy",
			fmt.Sprintf("strategy id %q is already registered", id))
	}
	e.strategies[id] = &registration{
		id:       id,
		strategy: strat,
		symbol:   symbol,
	}
	e.logInfo("Added strategy %s (%s) for %s", id, strategyType, symbol)
	return nil
}

// RemoveStrategy detaches a strategy from the engine.
func (e *Engine) RemoveStrategy(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.strategies[id]; !exists {
		return botErrors.NewConfigError("engine", "remove_strategy",
			fmt.Sprintf("strategy id %q is not registered", id))
	}
	delete(e.strategies, id)
	e.logInfo("Removed strategy %s", id)
	return nil
}

// Start transitions STOPPED -> RUNNING: connects to the venue,
// snapshots the starting balance, opens a session record, and launches
// the polling loop.
func (e *Engine) Start(ctx context.Context) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	e.mu.Lock()
	if e.state != StateStopped {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.mu.Unlock()

	if err := e.exchange.Connect(ctx); err != nil {
		return botErrors.Wrap(err, botErrors.CategoryVenue, "engine", "start")
	}
	if e.health != nil {
		e.health.SetConnected(true)
	}

	balance, err := e.exchange.GetBalance(ctx, e.cfg.QuoteCurrency)
	if err != nil {
		_ = e.exchange.Disconnect()
		return botErrors.Wrap(err, botErrors.CategoryVenue, "engine", "start")
	}

	sessionID := uuid.NewString()
	if err := e.store.CreateSession(ctx, &storage.SessionRecord{
		ID:             sessionID,
		UserID:         e.cfg.UserID,
		Status:         "running",
		StartBalance:   balance,
		CurrentBalance: balance,
		StartedAt:      time.Now().UTC(),
	}); err != nil {
		_ = e.exchange.Disconnect()
		return botErrors.Wrap(err, botErrors.CategoryInternal, "engine", "start")
	}

	e.mu.Lock()
	e.sessionID = sessionID
	e.startBalance = balance
	e.currentBalance = balance
	e.totalTrades = 0
	e.totalPnL = 0
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.setStateLocked(StateRunning)
	stopCh, doneCh := e.stopCh, e.doneCh
	e.mu.Unlock()

	e.faults.Reset()
	go e.run(stopCh, doneCh)

	e.logStatus("Trading engine started (session %s, balance %.2f %s)",
		sessionID, balance, e.cfg.QuoteCurrency)
	return nil
}

// Stop transitions RUNNING|PAUSED|ERROR -> STOPPED: halts the loop,
// disconnects, and closes the session record. Stopping a stopped engine
// is rejected.
func (e *Engine) Stop(ctx context.Context) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return ErrNotRunning
	}
	stopCh, doneCh := e.stopCh, e.doneCh
	sessionID := e.sessionID
	e.mu.Unlock()

	close(stopCh)
	<-doneCh

	if err := e.exchange.Disconnect(); err != nil {
		e.logError("Error disconnecting from venue: %v", err)
	}
	if e.health != nil {
		e.health.SetConnected(false)
	}

	if err := e.store.CloseSession(ctx, sessionID, "stopped", time.Now().UTC()); err != nil {
		e.logError("Error closing session: %v", err)
	}

	e.mu.Lock()
	e.setStateLocked(StateStopped)
	e.mu.Unlock()

	e.logStatus("Trading engine stopped (session %s)", sessionID)
	return nil
}

// Pause transitions RUNNING -> PAUSED. The loop keeps ticking but skips
// strategy processing.
func (e *Engine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return ErrNotRunning
	}
	e.setStateLocked(StatePaused)
	e.updateSessionLocked(ctx, "paused")
	e.logStatus("Trading engine paused")
	return nil
}

// Resume transitions PAUSED -> RUNNING.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePaused {
		return ErrNotPaused
	}
	e.setStateLocked(StateRunning)
	e.updateSessionLocked(ctx, "running")
	e.logStatus("Trading engine resumed")
	return nil
}

// Status is a point-in-time snapshot of the engine, safe to read while
// the loop runs.
type Status struct {
	State            State
	SessionID        string
	TotalTrades      int64
	TotalPnL         float64
	StartBalance     float64
	CurrentBalance   float64
	ActiveStrategies int
	LastSignals      map[string]*strategy.Signal
}

// Status returns a copy of the engine's current state and counters.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	signals := make(map[string]*strategy.Signal, len(e.strategies))
	for id, reg := range e.strategies {
		if reg.lastSignal != nil {
			copied := *reg.lastSignal
			signals[id] = &copied
		}
	}

	return Status{
		State:            e.state,
		SessionID:        e.sessionID,
		TotalTrades:      e.totalTrades,
		TotalPnL:         e.totalPnL,
		StartBalance:     e.startBalance,
		CurrentBalance:   e.currentBalance,
		ActiveStrategies: len(e.strategies),
		LastSignals:      signals,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setStateLocked(s State) {
	e.state = s
	monitoring.RecordEngineState(string(s))
	if e.health != nil {
		e.health.SetEngineState(string(s))
	}
}

// setError escalates the engine to ERROR. The loop keeps ticking so a
// later Stop can tear down cleanly.
func (e *Engine) setError(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return
	}
	e.setStateLocked(StateError)
	if e.health != nil {
		e.health.SetLastError(reason)
	}
	e.logError("Engine escalated to ERROR: %s", reason)
}

func (e *Engine) updateSessionLocked(ctx context.Context, status string) {
	if e.sessionID == "" {
		return
	}
	err := e.store.UpdateSession(ctx, &storage.SessionRecord{
		ID:             e.sessionID,
		Status:         status,
		CurrentBalance: e.currentBalance,
		TotalTrades:    e.totalTrades,
		TotalPnL:       e.totalPnL,
	})
	if err != nil {
		e.logError("Error updating session: %v", err)
	}
}

// registrations returns the attached strategies in stable id order.
func (e *Engine) registrations() []*registration {
	e.mu.Lock()
	defer e.mu.Unlock()
	regs := make([]*registration, 0, len(e.strategies))
	for _, reg := range e.strategies {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].id < regs[j].id })
	return regs
}

func (e *Engine) logInfo(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Info(format, args...)
	}
}

func (e *Engine) logError(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Error(format, args...)
	}
}

func (e *Engine) logStatus(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Status(format, args...)
	}
}

func (e *Engine) logTrade(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Trade(format, args...)
	}
}

func (e *Engine) logWarning(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Warning(format, args...)
	}
}
