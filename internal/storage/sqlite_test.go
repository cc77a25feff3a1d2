package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "trading.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_SaveAndGetTrades(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	id, err := store.SaveTrade(ctx, &TradeRecord{
		UserID:     1,
		Symbol:     "BTCUSDT",
		Side:       "BUY",
		Quantity:   0.5,
		Price:      50000,
		TotalValue: 25000,
		Strategy:   "RSI Strategy",
		Exchange:   "bybit",
		OrderID:    "ord-1",
		Status:     "completed",
		Timestamp:  now,
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	trades, err := store.GetTrades(ctx, 1, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "BTCUSDT", trades[0].Symbol)
	assert.Equal(t, "BUY", trades[0].Side)
	assert.Equal(t, 25000.0, trades[0].TotalValue)
	assert.True(t, trades[0].Timestamp.Equal(now))

	// A since filter after the trade excludes it.
	trades, err = store.GetTrades(ctx, 1, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, trades)

	// Other users see nothing.
	trades, err = store.GetTrades(ctx, 2, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestSQLiteStore_PositionLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	missing, err := store.GetPosition(ctx, 1, "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, missing)

	position := &PositionRecord{
		UserID:       1,
		Symbol:       "BTCUSDT",
		Quantity:     0.5,
		AveragePrice: 50000,
		CurrentPrice: 51000,
		TotalValue:   25500,
		PnL:          500,
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.UpsertPosition(ctx, position))

	got, err := store.GetPosition(ctx, 1, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.5, got.Quantity)
	assert.Equal(t, 50000.0, got.AveragePrice)

	// Upsert replaces rather than duplicates.
	position.Quantity = 1.0
	position.AveragePrice = 50500
	require.NoError(t, store.UpsertPosition(ctx, position))

	all, err := store.GetPositions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 1.0, all[0].Quantity)
	assert.Equal(t, 50500.0, all[0].AveragePrice)

	require.NoError(t, store.DeletePosition(ctx, 1, "BTCUSDT"))
	gone, err := store.GetPosition(ctx, 1, "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSQLiteStore_SessionLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sessionID := uuid.NewString()
	started := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.CreateSession(ctx, &SessionRecord{
		ID:             sessionID,
		UserID:         1,
		Status:         "running",
		StartBalance:   10000,
		CurrentBalance: 10000,
		StartedAt:      started,
	}))

	require.NoError(t, store.UpdateSession(ctx, &SessionRecord{
		ID:             sessionID,
		Status:         "running",
		CurrentBalance: 10250,
		TotalTrades:    3,
		TotalPnL:       250,
	}))

	got, err := store.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(3), got.TotalTrades)
	assert.Equal(t, 250.0, got.TotalPnL)
	assert.Nil(t, got.StoppedAt)

	stopped := started.Add(time.Hour)
	require.NoError(t, store.CloseSession(ctx, sessionID, "stopped", stopped))

	got, err = store.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "stopped", got.Status)
	require.NotNil(t, got.StoppedAt)
	assert.True(t, got.StoppedAt.Equal(stopped))

	unknown, err := store.GetSession(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, unknown)
}
