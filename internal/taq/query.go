package taq

import (
	"fmt"
	"regexp"
	"time"

	"github.com/quantbench/taqload/internal/models"
)

// TableNaming describes the vendor's dated-table layout: a per-kind prefix
// joined to a formatted date suffix (e.g. ctm_20230901). The scheme is
// configuration, not logic; other vendors or monthly layouts only need
// different prefixes or a different suffix layout.
type TableNaming struct {
	TradePrefix  string `json:"trade_prefix"`
	QuotePrefix  string `json:"quote_prefix"`
	SuffixLayout string `json:"suffix_layout"` // Go time layout for the date suffix
}

// DefaultNaming matches the WRDS millisecond TAQ layout.
func DefaultNaming() TableNaming {
	return TableNaming{TradePrefix: "ctm", QuotePrefix: "cqm", SuffixLayout: "20060102"}
}

// safeIdent restricts identifiers spliced into query text. Table names are
// derived from validated configuration plus a formatted date, never from
// caller values; this guard keeps that property explicit.
var safeIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that the prefixes are splice-safe identifiers and the
// suffix layout is set.
func (n TableNaming) Validate() error {
	if !safeIdent.MatchString(n.TradePrefix) {
		return fmt.Errorf("invalid trade table prefix %q", n.TradePrefix)
	}
	if !safeIdent.MatchString(n.QuotePrefix) {
		return fmt.Errorf("invalid quote table prefix %q", n.QuotePrefix)
	}
	if n.SuffixLayout == "" {
		return fmt.Errorf("table suffix layout cannot be empty")
	}
	return nil
}

// TableFor returns the dated table name for a kind and day.
func (n TableNaming) TableFor(kind models.RecordKind, day time.Time) (string, error) {
	var prefix string
	switch kind {
	case models.KindTrade:
		prefix = n.TradePrefix
	case models.KindQuote:
		prefix = n.QuotePrefix
	default:
		return "", fmt.Errorf("unknown record kind %q", kind)
	}
	name := prefix + "_" + day.Format(n.SuffixLayout)
	if !safeIdent.MatchString(name) {
		return "", fmt.Errorf("derived table name %q is not a valid identifier", name)
	}
	return name, nil
}

// builtQuery is a parameterized statement ready for execution.
type builtQuery struct {
	sql  string
	args []any
}

// Projections and source-level row filters per record kind. The timestamp
// column combines the whole-second date with the sub-second time of day,
// matching the vendor's split storage.
const (
	tradeColumns = "price, size, tr_scond, tr_corr"
	quoteColumns = "bid, bidsiz, ask, asksiz, qu_cond"

	// Trade rows are restricted at the source: only uncorrected trades with
	// positive price and size. The sentinel is a schema constant of the
	// vendor layout, so it lives in the statement rather than the bind args.
	tradeFilter = "AND tr_corr = '00' AND price > 0 AND size > 0"
)

// buildDayQuery composes the parameterized single-day statement. Symbol,
// date, and window bounds are bound; only the validated library and derived
// table name are spliced.
func buildDayQuery(library string, naming TableNaming, req DayRequest, day time.Time, window TimeWindow) (builtQuery, error) {
	if !safeIdent.MatchString(library) {
		return builtQuery{}, fmt.Errorf("invalid library name %q", library)
	}
	table, err := naming.TableFor(req.Kind, day)
	if err != nil {
		return builtQuery{}, err
	}

	columns := tradeColumns
	filter := tradeFilter
	if req.Kind == models.KindQuote {
		columns = quoteColumns
		filter = ""
	}

	sql := fmt.Sprintf(`SELECT
    DATE_TRUNC('second', date) + time_m AS datetime,
    ex,
    sym_root,
    %s
FROM %s.%s
WHERE sym_root = $1
  AND date = $2
  AND time_m >= $3::time
  AND time_m <= $4::time
  %s
ORDER BY datetime`, columns, library, table, filter)

	args := []any{req.Symbol, day.Format(DateLayout), window.Start, window.End}
	return builtQuery{sql: sql, args: args}, nil
}
