// Package taq implements the TAQ fetch layer: single-day and date-range
// retrieval of trade and quote records from dated source tables through an
// injected query capability.
//
// The package never owns the connection it queries through. Callers supply
// anything satisfying Querier (typically the wrds client) and keep
// responsibility for its lifecycle. Every failure mode inside a fetch is
// converted to a typed absence signal at the boundary; no error escapes a
// Fetch* call.
package taq

import (
	"context"
	"fmt"
	"time"

	"github.com/quantbench/taqload/internal/models"
)

// Querier is the single capability this layer requires from a connection:
// execute a parameterized query and return scannable rows. *wrds.Client
// satisfies it, as does any pgx pool or a test double.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// Rows is the subset of pgx.Rows the fetch layer consumes. pgx.Rows
// satisfies it directly.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// DateLayout is the wire format for request dates.
const DateLayout = "2006-01-02"

// TimeWindow restricts rows to a time-of-day interval, inclusive on both
// ends. Times are "HH:MM:SS" strings; a leading zero on the hour is
// optional.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DefaultWindow covers the regular US equity trading session.
func DefaultWindow() TimeWindow {
	return TimeWindow{Start: "09:30:00", End: "16:00:00"}
}

// IsZero reports whether the window is unset.
func (w TimeWindow) IsZero() bool {
	return w.Start == "" && w.End == ""
}

// Validate checks that both bounds parse as times of day and that the
// window is not inverted.
func (w TimeWindow) Validate() error {
	start, err := parseTimeOfDay(w.Start)
	if err != nil {
		return fmt.Errorf("invalid window start %q: %w", w.Start, err)
	}
	end, err := parseTimeOfDay(w.End)
	if err != nil {
		return fmt.Errorf("invalid window end %q: %w", w.End, err)
	}
	if end.Before(start) {
		return fmt.Errorf("window end %q before start %q", w.End, w.Start)
	}
	return nil
}

// parseTimeOfDay accepts zero-padded and bare-hour forms ("09:30:00",
// "9:30:00").
func parseTimeOfDay(s string) (time.Time, error) {
	for _, layout := range []string{"15:04:05", "3:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("must be HH:MM:SS")
}

// DayRequest describes a single-day fetch.
type DayRequest struct {
	// Symbol is the ticker symbol root (e.g. "AAPL").
	Symbol string `json:"symbol"`

	// Date is the trading day in YYYY-MM-DD form.
	Date string `json:"date"`

	// Kind selects trades or quotes.
	Kind models.RecordKind `json:"kind"`

	// Window restricts rows to a time-of-day interval. Zero value means
	// the fetcher default.
	Window TimeWindow `json:"window,omitempty"`

	// Library overrides the fetcher's source library/schema when non-empty.
	Library string `json:"library,omitempty"`
}

// RangeRequest describes an inclusive date-range fetch.
type RangeRequest struct {
	Symbol  string            `json:"symbol"`
	Start   string            `json:"start"` // YYYY-MM-DD, inclusive
	End     string            `json:"end"`   // YYYY-MM-DD, inclusive
	Kind    models.RecordKind `json:"kind"`
	Window  TimeWindow        `json:"window,omitempty"`
	Library string            `json:"library,omitempty"`
}

// day returns the DayRequest for one day of the range.
func (r RangeRequest) day(d time.Time) DayRequest {
	return DayRequest{
		Symbol:  r.Symbol,
		Date:    d.Format(DateLayout),
		Kind:    r.Kind,
		Window:  r.Window,
		Library: r.Library,
	}
}
