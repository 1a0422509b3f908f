package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbench/taqload/internal/models"
)

func newTestStore(t *testing.T) *TickStore {
	t.Helper()
	store, err := NewTickStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Initialize(context.Background()))
	return store
}

func sampleTrades(n int) *models.Table {
	table := models.NewTable(models.KindTrade)
	base := time.Date(2023, 9, 1, 9, 30, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		table.Trades = append(table.Trades, models.TradeRecord{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Exchange:  "Q",
			Symbol:    "AAPL",
			Price:     "189.98",
			Size:      100,
			SaleCond:  "@",
			Corr:      models.UncorrectedTrade,
		})
	}
	table.Days = 1
	return table
}

func sampleQuotes(n int) *models.Table {
	table := models.NewTable(models.KindQuote)
	base := time.Date(2023, 9, 1, 9, 30, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		table.Quotes = append(table.Quotes, models.QuoteRecord{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Exchange:  "N",
			Symbol:    "AAPL",
			Bid:       "189.95",
			BidSize:   3,
			Ask:       "190.05",
			AskSize:   5,
			QuoteCond: "R",
		})
	}
	table.Days = 1
	return table
}

func TestTickStore_StoreTrades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreTable(ctx, sampleTrades(25)))

	count, err := store.Count(ctx, models.KindTrade)
	require.NoError(t, err)
	assert.Equal(t, int64(25), count)
}

func TestTickStore_StoreQuotes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreTable(ctx, sampleQuotes(10)))

	count, err := store.Count(ctx, models.KindQuote)
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)

	trades, err := store.Count(ctx, models.KindTrade)
	require.NoError(t, err)
	assert.Equal(t, int64(0), trades)
}

func TestTickStore_StoreEmptyTableIsNoop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreTable(ctx, models.NewTable(models.KindTrade)))
	require.NoError(t, store.StoreTable(ctx, nil))

	count, err := store.Count(ctx, models.KindTrade)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestTickStore_RejectsInvalidTrade(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	table := sampleTrades(1)
	table.Trades[0].Corr = "01"

	err := store.StoreTable(ctx, table)
	require.Error(t, err)
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "insert", storeErr.Operation)
	assert.Equal(t, "trades", storeErr.Table)
}

func TestTickStore_InitializeIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Initialize(context.Background()))
}

func TestStoreError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &StoreError{Operation: "insert", Table: "trades", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert")
	assert.Contains(t, err.Error(), "trades")
}
