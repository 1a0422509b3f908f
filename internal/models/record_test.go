package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTrade() TradeRecord {
	return TradeRecord{
		Timestamp: time.Date(2023, 9, 1, 9, 30, 1, 0, time.UTC),
		Exchange:  "Q",
		Symbol:    "AAPL",
		Price:     "189.98",
		Size:      100,
		SaleCond:  "@",
		Corr:      UncorrectedTrade,
	}
}

func validQuote() QuoteRecord {
	return QuoteRecord{
		Timestamp: time.Date(2023, 9, 1, 9, 30, 1, 0, time.UTC),
		Exchange:  "N",
		Symbol:    "AAPL",
		Bid:       "189.95",
		BidSize:   3,
		Ask:       "190.05",
		AskSize:   5,
		QuoteCond: "R",
	}
}

func TestParseRecordKind(t *testing.T) {
	tests := []struct {
		input   string
		want    RecordKind
		wantErr bool
	}{
		{input: "trades", want: KindTrade},
		{input: "trade", want: KindTrade},
		{input: "TRADES", want: KindTrade},
		{input: " quotes ", want: KindQuote},
		{input: "quote", want: KindQuote},
		{input: "bars", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRecordKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestRecordKind_Valid(t *testing.T) {
	assert.True(t, KindTrade.Valid())
	assert.True(t, KindQuote.Valid())
	assert.False(t, RecordKind("bars").Valid())
	assert.False(t, RecordKind("").Valid())
}

func TestTradeRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TradeRecord)
		wantErr string
	}{
		{name: "valid", mutate: func(r *TradeRecord) {}},
		{
			name:    "zero_timestamp",
			mutate:  func(r *TradeRecord) { r.Timestamp = time.Time{} },
			wantErr: "timestamp",
		},
		{
			name:    "empty_symbol",
			mutate:  func(r *TradeRecord) { r.Symbol = "" },
			wantErr: "symbol",
		},
		{
			name:    "malformed_price",
			mutate:  func(r *TradeRecord) { r.Price = "not-a-price" },
			wantErr: "price",
		},
		{
			name:    "zero_price",
			mutate:  func(r *TradeRecord) { r.Price = "0" },
			wantErr: "price",
		},
		{
			name:    "negative_size",
			mutate:  func(r *TradeRecord) { r.Size = -1 },
			wantErr: "size",
		},
		{
			name:    "corrected_trade",
			mutate:  func(r *TradeRecord) { r.Corr = "01" },
			wantErr: "corr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validTrade()
			tt.mutate(&rec)
			err := rec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantErr, vErr.Field)
		})
	}
}

func TestTradeRecord_PriceDecimal(t *testing.T) {
	rec := validTrade()
	price, err := rec.PriceDecimal()
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("189.98")))
}

func TestQuoteRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*QuoteRecord)
		wantErr string
	}{
		{name: "valid", mutate: func(r *QuoteRecord) {}},
		{
			name:    "zero_timestamp",
			mutate:  func(r *QuoteRecord) { r.Timestamp = time.Time{} },
			wantErr: "timestamp",
		},
		{
			name:    "malformed_bid",
			mutate:  func(r *QuoteRecord) { r.Bid = "x" },
			wantErr: "bid",
		},
		{
			name:    "malformed_ask",
			mutate:  func(r *QuoteRecord) { r.Ask = "" },
			wantErr: "ask",
		},
		{
			name:    "negative_bid_size",
			mutate:  func(r *QuoteRecord) { r.BidSize = -1 },
			wantErr: "bid_size",
		},
		{
			name:    "negative_ask_size",
			mutate:  func(r *QuoteRecord) { r.AskSize = -5 },
			wantErr: "ask_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validQuote()
			tt.mutate(&rec)
			err := rec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantErr, vErr.Field)
		})
	}
}

func TestQuoteRecord_SpreadAndMidpoint(t *testing.T) {
	rec := validQuote()

	spread, err := rec.Spread()
	require.NoError(t, err)
	assert.True(t, spread.Equal(decimal.RequireFromString("0.1")), "spread = %s", spread)

	mid, err := rec.Midpoint()
	require.NoError(t, err)
	assert.True(t, mid.Equal(decimal.RequireFromString("190")), "midpoint = %s", mid)
}
