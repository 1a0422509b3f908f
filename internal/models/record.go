// Package models provides data structures and validation for TAQ tick data.
// This package contains the core row types for trade and quote records,
// the record-kind enum, and the ordered table type returned by fetches.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UncorrectedTrade is the correction-indicator sentinel for trades that were
// never corrected or cancelled. Source queries restrict trade rows to this
// value, so a well-formed TradeRecord always carries it.
const UncorrectedTrade = "00"

// RecordKind identifies the schema of a TAQ row: executed trades or posted
// bid/ask quotes.
type RecordKind string

const (
	// KindTrade selects trade (transaction) records.
	KindTrade RecordKind = "trades"
	// KindQuote selects quote (bid/ask) records.
	KindQuote RecordKind = "quotes"
)

// ParseRecordKind converts a user-supplied string into a RecordKind.
// Accepts singular and plural forms, case-insensitively.
func ParseRecordKind(s string) (RecordKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trade", "trades":
		return KindTrade, nil
	case "quote", "quotes":
		return KindQuote, nil
	default:
		return "", fmt.Errorf("unknown record kind %q: must be 'trades' or 'quotes'", s)
	}
}

// Valid reports whether the kind is one of the two supported values.
func (k RecordKind) Valid() bool {
	return k == KindTrade || k == KindQuote
}

// String implements fmt.Stringer.
func (k RecordKind) String() string {
	return string(k)
}

// ValidationError represents a record validation error with field context.
type ValidationError struct {
	Field   string // Field is the name of the field that failed validation
	Message string // Message describes the validation failure
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// TradeRecord represents a single trade execution from a TAQ trade table.
// Price is carried as a decimal string to avoid float drift; use
// PriceDecimal for precise arithmetic.
type TradeRecord struct {
	Timestamp time.Time `json:"timestamp" db:"datetime"`
	Exchange  string    `json:"exchange" db:"ex"`
	Symbol    string    `json:"symbol" db:"sym_root"`
	Price     string    `json:"price" db:"price"`
	Size      int64     `json:"size" db:"size"`
	SaleCond  string    `json:"sale_cond,omitempty" db:"tr_scond"`
	Corr      string    `json:"corr" db:"tr_corr"`
}

// PriceDecimal returns the trade price as a decimal.Decimal.
func (r *TradeRecord) PriceDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(r.Price)
}

// Validate checks the invariants the source query is expected to enforce:
// non-zero timestamp, non-empty symbol, strictly positive price and size,
// and the uncorrected sentinel in the correction indicator.
func (r *TradeRecord) Validate() error {
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "timestamp cannot be zero"}
	}
	if r.Symbol == "" {
		return &ValidationError{Field: "symbol", Message: "symbol cannot be empty"}
	}
	price, err := r.PriceDecimal()
	if err != nil {
		return &ValidationError{Field: "price", Message: fmt.Sprintf("invalid price format: %v", err)}
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Field: "price", Message: "price must be greater than 0"}
	}
	if r.Size <= 0 {
		return &ValidationError{Field: "size", Message: "size must be greater than 0"}
	}
	if r.Corr != UncorrectedTrade {
		return &ValidationError{Field: "corr", Message: fmt.Sprintf("correction indicator must be %q, got %q", UncorrectedTrade, r.Corr)}
	}
	return nil
}

// String returns a human-readable representation of the trade.
func (r *TradeRecord) String() string {
	return fmt.Sprintf("Trade{%s %s @ %s x %d ex=%s}",
		r.Symbol, r.Timestamp.Format(time.RFC3339Nano), r.Price, r.Size, r.Exchange)
}

// QuoteRecord represents a single posted bid/ask quote from a TAQ quote
// table. Bid and Ask are decimal strings; use the *Decimal accessors for
// arithmetic.
type QuoteRecord struct {
	Timestamp time.Time `json:"timestamp" db:"datetime"`
	Exchange  string    `json:"exchange" db:"ex"`
	Symbol    string    `json:"symbol" db:"sym_root"`
	Bid       string    `json:"bid" db:"bid"`
	BidSize   int64     `json:"bid_size" db:"bidsiz"`
	Ask       string    `json:"ask" db:"ask"`
	AskSize   int64     `json:"ask_size" db:"asksiz"`
	QuoteCond string    `json:"quote_cond,omitempty" db:"qu_cond"`
}

// BidDecimal returns the bid price as a decimal.Decimal.
func (r *QuoteRecord) BidDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(r.Bid)
}

// AskDecimal returns the ask price as a decimal.Decimal.
func (r *QuoteRecord) AskDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(r.Ask)
}

// Spread returns ask minus bid.
func (r *QuoteRecord) Spread() (decimal.Decimal, error) {
	bid, err := r.BidDecimal()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse bid: %w", err)
	}
	ask, err := r.AskDecimal()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse ask: %w", err)
	}
	return ask.Sub(bid), nil
}

// Midpoint returns (bid + ask) / 2.
func (r *QuoteRecord) Midpoint() (decimal.Decimal, error) {
	bid, err := r.BidDecimal()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse bid: %w", err)
	}
	ask, err := r.AskDecimal()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse ask: %w", err)
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), nil
}

// Validate checks basic quote well-formedness. Quote tables carry no
// price/size filter at the source, so only parseability and non-negative
// sizes are required.
func (r *QuoteRecord) Validate() error {
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "timestamp cannot be zero"}
	}
	if r.Symbol == "" {
		return &ValidationError{Field: "symbol", Message: "symbol cannot be empty"}
	}
	if _, err := r.BidDecimal(); err != nil {
		return &ValidationError{Field: "bid", Message: fmt.Sprintf("invalid bid format: %v", err)}
	}
	if _, err := r.AskDecimal(); err != nil {
		return &ValidationError{Field: "ask", Message: fmt.Sprintf("invalid ask format: %v", err)}
	}
	if r.BidSize < 0 {
		return &ValidationError{Field: "bid_size", Message: "bid size cannot be negative"}
	}
	if r.AskSize < 0 {
		return &ValidationError{Field: "ask_size", Message: "ask size cannot be negative"}
	}
	return nil
}

// String returns a human-readable representation of the quote.
func (r *QuoteRecord) String() string {
	return fmt.Sprintf("Quote{%s %s bid=%s/%d ask=%s/%d ex=%s}",
		r.Symbol, r.Timestamp.Format(time.RFC3339Nano), r.Bid, r.BidSize, r.Ask, r.AskSize, r.Exchange)
}
