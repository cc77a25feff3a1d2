package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the
// schema. The parent directory is created when missing.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "data/trading.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := configureSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA synchronous = NORMAL;`,
		`PRAGMA temp_store = MEMORY;`,
		`PRAGMA busy_timeout = 5000;`,
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply sqlite pragma failed: %s: %w", stmt, err)
		}
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity REAL NOT NULL,
			price REAL NOT NULL,
			total_value REAL NOT NULL,
			fee REAL NOT NULL DEFAULT 0,
			strategy TEXT,
			exchange TEXT,
			order_id TEXT,
			status TEXT NOT NULL DEFAULT 'completed',
			timestamp TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_user_ts ON trades(user_id, timestamp);`,
		`CREATE TABLE IF NOT EXISTS positions (
			user_id INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			quantity REAL NOT NULL,
			average_price REAL NOT NULL,
			current_price REAL NOT NULL,
			total_value REAL NOT NULL,
			pnl REAL NOT NULL,
			pnl_percentage REAL NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, symbol)
		);`,
		`CREATE TABLE IF NOT EXISTS bot_sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			start_balance REAL NOT NULL,
			current_balance REAL NOT NULL,
			total_trades INTEGER NOT NULL DEFAULT 0,
			total_pnl REAL NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			stopped_at TEXT
		);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema failed: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveTrade appends a trade record and returns its assigned id.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *TradeRecord) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (user_id, symbol, side, quantity, price, total_value, fee, strategy, exchange, order_id, status, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.UserID, trade.Symbol, trade.Side, trade.Quantity, trade.Price,
		trade.TotalValue, trade.Fee, trade.Strategy, trade.Exchange,
		trade.OrderID, trade.Status, trade.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to save trade: %w", err)
	}
	return result.LastInsertId()
}

// GetTrades returns a user's trades since the given time, oldest first.
func (s *SQLiteStore) GetTrades(ctx context.Context, userID int64, since time.Time) ([]TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, symbol, side, quantity, price, total_value, fee, strategy, exchange, order_id, status, timestamp
		 FROM trades WHERE user_id = ? AND timestamp >= ? ORDER BY timestamp ASC`,
		userID, since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var ts string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Side, &t.Quantity, &t.Price,
			&t.TotalValue, &t.Fee, &t.Strategy, &t.Exchange, &t.OrderID, &t.Status, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// UpsertPosition creates or replaces the position for (user, symbol).
func (s *SQLiteStore) UpsertPosition(ctx context.Context, position *PositionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO positions (user_id, symbol, quantity, average_price, current_price, total_value, pnl, pnl_percentage, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			average_price = excluded.average_price,
			current_price = excluded.current_price,
			total_value = excluded.total_value,
			pnl = excluded.pnl,
			pnl_percentage = excluded.pnl_percentage,
			updated_at = excluded.updated_at`,
		position.UserID, position.Symbol, position.Quantity, position.AveragePrice,
		position.CurrentPrice, position.TotalValue, position.PnL, position.PnLPercentage,
		position.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

// GetPosition returns the position for (user, symbol), or nil when none exists.
func (s *SQLiteStore) GetPosition(ctx context.Context, userID int64, symbol string) (*PositionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, symbol, quantity, average_price, current_price, total_value, pnl, pnl_percentage, updated_at
		 FROM positions WHERE user_id = ? AND symbol = ?`, userID, symbol)

	var p PositionRecord
	var updatedAt string
	err := row.Scan(&p.UserID, &p.Symbol, &p.Quantity, &p.AveragePrice,
		&p.CurrentPrice, &p.TotalValue, &p.PnL, &p.PnLPercentage, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query position: %w", err)
	}
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &p, nil
}

// GetPositions returns all of a user's positions.
func (s *SQLiteStore) GetPositions(ctx context.Context, userID int64) ([]PositionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, symbol, quantity, average_price, current_price, total_value, pnl, pnl_percentage, updated_at
		 FROM positions WHERE user_id = ? ORDER BY symbol ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []PositionRecord
	for rows.Next() {
		var p PositionRecord
		var updatedAt string
		if err := rows.Scan(&p.UserID, &p.Symbol, &p.Quantity, &p.AveragePrice,
			&p.CurrentPrice, &p.TotalValue, &p.PnL, &p.PnLPercentage, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// DeletePosition removes the position for (user, symbol).
func (s *SQLiteStore) DeletePosition(ctx context.Context, userID int64, symbol string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM positions WHERE user_id = ? AND symbol = ?`, userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// CreateSession opens a new session record.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *SessionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bot_sessions (id, user_id, status, start_balance, current_balance, total_trades, total_pnl, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.Status, session.StartBalance,
		session.CurrentBalance, session.TotalTrades, session.TotalPnL,
		session.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// UpdateSession persists the session's current counters and status.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *SessionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE bot_sessions SET status = ?, current_balance = ?, total_trades = ?, total_pnl = ? WHERE id = ?`,
		session.Status, session.CurrentBalance, session.TotalTrades, session.TotalPnL, session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// CloseSession marks a session stopped and stamps its end time.
func (s *SQLiteStore) CloseSession(ctx context.Context, sessionID string, status string, stoppedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE bot_sessions SET status = ?, stopped_at = ? WHERE id = ?`,
		status, stoppedAt.UTC().Format(time.RFC3339Nano), sessionID)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// GetSession returns a session by id, or nil when unknown.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, status, start_balance, current_balance, total_trades, total_pnl, started_at, stopped_at
		 FROM bot_sessions WHERE id = ?`, sessionID)

	var rec SessionRecord
	var startedAt string
	var stoppedAt sql.NullString
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Status, &rec.StartBalance,
		&rec.CurrentBalance, &rec.TotalTrades, &rec.TotalPnL, &startedAt, &stoppedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if stoppedAt.Valid {
		ts, _ := time.Parse(time.RFC3339Nano, stoppedAt.String)
		rec.StoppedAt = &ts
	}
	return &rec, nil
}
