package storage

import (
	"context"
	"time"
)

// TradeRecord is one executed order fill.
type TradeRecord struct {
	ID         int64
	UserID     int64
	Symbol     string
	Side       string // BUY, SELL
	Quantity   float64
	Price      float64
	TotalValue float64
	Fee        float64
	Strategy   string
	Exchange   string
	OrderID    string
	Status     string
	Timestamp  time.Time
}

// PositionRecord is one portfolio holding, keyed by (user, symbol).
type PositionRecord struct {
	UserID        int64
	Symbol        string
	Quantity      float64
	AveragePrice  float64
	CurrentPrice  float64
	TotalValue    float64
	PnL           float64
	PnLPercentage float64
	UpdatedAt     time.Time
}

// SessionRecord is the bookkeeping for one continuous engine run.
type SessionRecord struct {
	ID             string // uuid
	UserID         int64
	Status         string // running, paused, stopped, error
	StartBalance   float64
	CurrentBalance float64
	TotalTrades    int64
	TotalPnL       float64
	StartedAt      time.Time
	StoppedAt      *time.Time
}

// Store persists trades, positions and sessions. The engine only
// touches persistence through this interface.
type Store interface {
	// SaveTrade appends a trade record and returns its assigned id.
	SaveTrade(ctx context.Context, trade *TradeRecord) (int64, error)

	// GetTrades returns a user's trades since the given time, newest last.
	GetTrades(ctx context.Context, userID int64, since time.Time) ([]TradeRecord, error)

	// UpsertPosition creates or replaces the position for (user, symbol).
	UpsertPosition(ctx context.Context, position *PositionRecord) error

	// GetPosition returns the position for (user, symbol), or nil when
	// the user holds nothing in that symbol.
	GetPosition(ctx context.Context, userID int64, symbol string) (*PositionRecord, error)

	// GetPositions returns all of a user's positions.
	GetPositions(ctx context.Context, userID int64) ([]PositionRecord, error)

	// DeletePosition removes the position for (user, symbol).
	DeletePosition(ctx context.Context, userID int64, symbol string) error

	// CreateSession opens a new session record.
	CreateSession(ctx context.Context, session *SessionRecord) error

	// UpdateSession persists the session's current counters and status.
	UpdateSession(ctx context.Context, session *SessionRecord) error

	// CloseSession marks a session stopped and stamps its end time.
	CloseSession(ctx context.Context, sessionID string, status string, stoppedAt time.Time) error

	// Close releases the underlying storage handle.
	Close() error
}
