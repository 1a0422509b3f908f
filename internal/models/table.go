package models

import (
	"fmt"
	"time"
)

// Table is an ordered sequence of tick records of a single kind, indexed by
// timestamp. Exactly one of Trades or Quotes is populated, matching Kind.
// An empty table is a valid result meaning "the query ran and matched
// nothing"; it is distinct from an absence signal.
//
// Days counts the source days that contributed rows. A single-day fetch
// yields 0 or 1; a range fetch accumulates the per-day count as tables are
// merged.
type Table struct {
	Kind   RecordKind    `json:"kind"`
	Trades []TradeRecord `json:"trades,omitempty"`
	Quotes []QuoteRecord `json:"quotes,omitempty"`
	Days   int           `json:"days"`
}

// NewTable returns an empty table of the given kind.
func NewTable(kind RecordKind) *Table {
	return &Table{Kind: kind}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t.Kind == KindQuote {
		return len(t.Quotes)
	}
	return len(t.Trades)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Append merges other into t, preserving t's existing order followed by
// other's order. Kinds must match.
func (t *Table) Append(other *Table) error {
	if other == nil {
		return nil
	}
	if t.Kind != other.Kind {
		return fmt.Errorf("cannot merge %s table into %s table", other.Kind, t.Kind)
	}
	switch t.Kind {
	case KindTrade:
		t.Trades = append(t.Trades, other.Trades...)
	case KindQuote:
		t.Quotes = append(t.Quotes, other.Quotes...)
	}
	t.Days += other.Days
	return nil
}

// FirstTimestamp returns the timestamp of the first row, or the zero time
// for an empty table.
func (t *Table) FirstTimestamp() time.Time {
	if t.Empty() {
		return time.Time{}
	}
	if t.Kind == KindQuote {
		return t.Quotes[0].Timestamp
	}
	return t.Trades[0].Timestamp
}

// LastTimestamp returns the timestamp of the last row, or the zero time for
// an empty table.
func (t *Table) LastTimestamp() time.Time {
	if t.Empty() {
		return time.Time{}
	}
	if t.Kind == KindQuote {
		return t.Quotes[len(t.Quotes)-1].Timestamp
	}
	return t.Trades[len(t.Trades)-1].Timestamp
}

// String returns a short summary of the table.
func (t *Table) String() string {
	return fmt.Sprintf("Table{kind=%s rows=%d days=%d}", t.Kind, t.Len(), t.Days)
}
