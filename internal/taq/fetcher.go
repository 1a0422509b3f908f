package taq

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantbench/taqload/internal/metrics"
	"github.com/quantbench/taqload/internal/models"
)

// Verbosity levels. Absence and summary messages are emitted at VerbositySummary
// and above; per-query and per-day diagnostics require VerbosityDebug.
const (
	VerbositySilent  = 0
	VerbositySummary = 1
	VerbosityDebug   = 2
)

// Config carries the fetcher's defaults. Zero values fall back to the WRDS
// millisecond TAQ layout and the regular trading session.
type Config struct {
	// Library is the default source library/schema (e.g. "taqmsec").
	Library string

	// Naming is the dated-table naming scheme.
	Naming TableNaming

	// Window is the default time-of-day window.
	Window TimeWindow

	// Verbosity gates diagnostic output: 0 silent, 1 summaries, 2 per-day.
	Verbosity int

	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger

	// Metrics receives fetch counters. Nil disables collection.
	Metrics *metrics.Registry
}

// Fetcher retrieves TAQ tables through an injected query capability. It is
// stateless across calls and does not own the connection.
type Fetcher struct {
	conn      Querier
	library   string
	naming    TableNaming
	window    TimeWindow
	verbosity int
	logger    *slog.Logger
	metrics   *metrics.Registry
}

// DefaultLibrary is the WRDS millisecond TAQ library.
const DefaultLibrary = "taqmsec"

// New creates a fetcher over the given connection, applying defaults for
// any unset Config fields.
func New(conn Querier, cfg Config) *Fetcher {
	if cfg.Library == "" {
		cfg.Library = DefaultLibrary
	}
	if (cfg.Naming == TableNaming{}) {
		cfg.Naming = DefaultNaming()
	}
	if cfg.Window.IsZero() {
		cfg.Window = DefaultWindow()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fetcher{
		conn:      conn,
		library:   cfg.Library,
		naming:    cfg.Naming,
		window:    cfg.Window,
		verbosity: cfg.Verbosity,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// FetchDay retrieves one day of trade or quote records. It never returns an
// error: invalid arguments and execution failures all degrade to a typed
// absence, with the cause preserved on the absence value. An empty table is
// a successful result, distinct from absence.
func (f *Fetcher) FetchDay(ctx context.Context, req DayRequest) *Result {
	if !req.Kind.Valid() {
		f.reportAbsence(AbsenceInvalidKind, req.Date, nil,
			"record kind must be 'trades' or 'quotes'", "kind", string(req.Kind))
		return absentResult(AbsenceInvalidKind, req.Date, nil)
	}

	day, err := time.Parse(DateLayout, req.Date)
	if err != nil {
		f.reportAbsence(AbsenceBadDate, req.Date, err,
			"invalid date, use YYYY-MM-DD", "symbol", req.Symbol)
		return absentResult(AbsenceBadDate, req.Date, err)
	}

	window := req.Window
	if window.IsZero() {
		window = f.window
	}
	if err := window.Validate(); err != nil {
		f.reportAbsence(AbsenceBadWindow, req.Date, err,
			"invalid time window", "symbol", req.Symbol)
		return absentResult(AbsenceBadWindow, req.Date, err)
	}

	library := req.Library
	if library == "" {
		library = f.library
	}

	query, err := buildDayQuery(library, f.naming, req, day, window)
	if err != nil {
		f.reportAbsence(AbsenceQueryFailed, req.Date, err,
			"failed to build query", "symbol", req.Symbol)
		return absentResult(AbsenceQueryFailed, req.Date, err)
	}

	queryID := uuid.NewString()
	if f.verbosity >= VerbosityDebug {
		f.logger.Debug("executing query",
			"query_id", queryID,
			"symbol", req.Symbol,
			"kind", req.Kind.String(),
			"date", req.Date,
			"library", library)
	}

	rows, err := f.conn.Query(ctx, query.sql, query.args...)
	if err != nil {
		reason := classifyQueryError(err)
		f.reportAbsence(reason, req.Date, err,
			"query failed; the dated table may not exist or access may be denied",
			"query_id", queryID, "symbol", req.Symbol, "kind", req.Kind.String())
		return absentResult(reason, req.Date, err)
	}
	defer rows.Close()

	table, err := scanTable(rows, req.Kind)
	if err != nil {
		reason := classifyQueryError(err)
		f.reportAbsence(reason, req.Date, err,
			"failed reading query results",
			"query_id", queryID, "symbol", req.Symbol, "kind", req.Kind.String())
		return absentResult(reason, req.Date, err)
	}

	f.metrics.RecordQuery(table.Len())
	if f.verbosity >= VerbosityDebug {
		f.logger.Debug("retrieved records",
			"query_id", queryID,
			"symbol", req.Symbol,
			"kind", req.Kind.String(),
			"date", req.Date,
			"rows", table.Len())
	}
	return dataResult(table)
}

// FetchRange retrieves and merges records for every calendar day between
// Start and End inclusive, skipping days that yield no data. The merged
// table preserves per-day iteration order and each day's internal order.
// If no day yields data the result is an absence, not an empty table.
func (f *Fetcher) FetchRange(ctx context.Context, req RangeRequest) *Result {
	rangeLabel := req.Start + ".." + req.End

	start, err := time.Parse(DateLayout, req.Start)
	if err != nil {
		f.reportAbsence(AbsenceBadDate, rangeLabel, err,
			"invalid start date, use YYYY-MM-DD", "symbol", req.Symbol)
		return absentResult(AbsenceBadDate, rangeLabel, err)
	}
	end, err := time.Parse(DateLayout, req.End)
	if err != nil {
		f.reportAbsence(AbsenceBadDate, rangeLabel, err,
			"invalid end date, use YYYY-MM-DD", "symbol", req.Symbol)
		return absentResult(AbsenceBadDate, rangeLabel, err)
	}

	merged := models.NewTable(req.Kind)
	var skipped []string

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dayReq := req.day(d)
		res := f.FetchDay(ctx, dayReq)

		// Invalid kind is not day-specific; retrying the remaining days
		// would produce the same absence for each.
		if res.Absent() && res.Absence.Reason == AbsenceInvalidKind {
			return absentResult(AbsenceInvalidKind, rangeLabel, res.Absence.Cause)
		}

		if res.Absent() || res.Table.Empty() {
			skipped = append(skipped, dayReq.Date)
			f.metrics.RecordSkip(skipReason(res))
			if f.verbosity >= VerbosityDebug {
				f.logger.Debug("no data for day, skipping",
					"symbol", req.Symbol,
					"kind", req.Kind.String(),
					"date", dayReq.Date,
					"reason", skipReason(res))
			}
			continue
		}

		res.Table.Days = 1
		if err := merged.Append(res.Table); err != nil {
			f.reportAbsence(AbsenceQueryFailed, rangeLabel, err, "failed to merge day table")
			return absentResult(AbsenceQueryFailed, rangeLabel, err)
		}
	}

	if merged.Empty() {
		f.reportAbsence(AbsenceNoData, rangeLabel, nil,
			"no data found in range",
			"symbol", req.Symbol, "kind", req.Kind.String(), "days_skipped", len(skipped))
		return absentResult(AbsenceNoData, rangeLabel, nil)
	}

	if f.verbosity >= VerbositySummary {
		f.logger.Info("merged range",
			"symbol", req.Symbol,
			"kind", req.Kind.String(),
			"start", req.Start,
			"end", req.End,
			"days_with_data", merged.Days,
			"days_skipped", len(skipped),
			"rows", merged.Len())
	}
	return dataResult(merged)
}

// Metrics returns the fetcher's registry, which may be nil.
func (f *Fetcher) Metrics() *metrics.Registry {
	return f.metrics
}

// reportAbsence logs an absence at summary verbosity with its cause.
func (f *Fetcher) reportAbsence(reason AbsenceReason, date string, cause error, msg string, args ...any) {
	if f.verbosity < VerbositySummary {
		return
	}
	fields := append([]any{"reason", string(reason), "date", date}, args...)
	if cause != nil {
		fields = append(fields, "error", cause.Error())
	}
	f.logger.Warn(msg, fields...)
}

// skipReason labels a skipped day for metrics: either the absence reason or
// "empty" for a successful query that matched nothing.
func skipReason(res *Result) string {
	if res.Absent() {
		return string(res.Absence.Reason)
	}
	return "empty"
}

// scanTable drains rows into a table of the given kind. Rows arrive ordered
// by timestamp from the statement's ORDER BY.
func scanTable(rows Rows, kind models.RecordKind) (*models.Table, error) {
	table := models.NewTable(kind)
	for rows.Next() {
		switch kind {
		case models.KindTrade:
			rec, err := scanTrade(rows)
			if err != nil {
				return nil, err
			}
			table.Trades = append(table.Trades, rec)
		case models.KindQuote:
			rec, err := scanQuote(rows)
			if err != nil {
				return nil, err
			}
			table.Quotes = append(table.Quotes, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !table.Empty() {
		table.Days = 1
	}
	return table, nil
}

func scanTrade(rows Rows) (models.TradeRecord, error) {
	var (
		ts       time.Time
		ex, sym  string
		price    float64
		size     int64
		saleCond *string
		corr     string
	)
	if err := rows.Scan(&ts, &ex, &sym, &price, &size, &saleCond, &corr); err != nil {
		return models.TradeRecord{}, err
	}
	rec := models.TradeRecord{
		Timestamp: ts,
		Exchange:  ex,
		Symbol:    sym,
		Price:     decimal.NewFromFloat(price).String(),
		Size:      size,
		Corr:      corr,
	}
	if saleCond != nil {
		rec.SaleCond = *saleCond
	}
	return rec, nil
}

func scanQuote(rows Rows) (models.QuoteRecord, error) {
	var (
		ts               time.Time
		ex, sym          string
		bid, ask         float64
		bidSize, askSize int64
		quoteCond        *string
	)
	if err := rows.Scan(&ts, &ex, &sym, &bid, &bidSize, &ask, &askSize, &quoteCond); err != nil {
		return models.QuoteRecord{}, err
	}
	rec := models.QuoteRecord{
		Timestamp: ts,
		Exchange:  ex,
		Symbol:    sym,
		Bid:       decimal.NewFromFloat(bid).String(),
		BidSize:   bidSize,
		Ask:       decimal.NewFromFloat(ask).String(),
		AskSize:   askSize,
	}
	if quoteCond != nil {
		rec.QuoteCond = *quoteCond
	}
	return rec, nil
}
