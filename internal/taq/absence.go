package taq

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/quantbench/taqload/internal/models"
)

// AbsenceReason classifies why a fetch produced no usable result. The
// public contract collapses every failure to "no data available", but the
// reason and cause are preserved on the absence value for diagnostics.
type AbsenceReason string

const (
	// AbsenceInvalidKind means the record kind was not trades or quotes.
	AbsenceInvalidKind AbsenceReason = "invalid_kind"
	// AbsenceBadDate means a date argument did not parse.
	AbsenceBadDate AbsenceReason = "bad_date"
	// AbsenceBadWindow means the time-of-day window did not parse.
	AbsenceBadWindow AbsenceReason = "bad_window"
	// AbsenceMissingTable means the dated source table does not exist,
	// typically a non-trading day or a date outside the vendor's coverage.
	AbsenceMissingTable AbsenceReason = "missing_table"
	// AbsencePermissionDenied means the source rejected access to the table.
	AbsencePermissionDenied AbsenceReason = "permission_denied"
	// AbsenceQueryFailed covers connectivity and other execution failures.
	AbsenceQueryFailed AbsenceReason = "query_failed"
	// AbsenceNoData means every day in a range yielded no rows.
	AbsenceNoData AbsenceReason = "no_data"
)

// Postgres SQLSTATEs used to classify execution failures.
const (
	sqlstateUndefinedTable        = "42P01"
	sqlstateInsufficientPrivilege = "42501"
)

// Absence is the typed "no usable result" signal. Date carries the
// offending date (or "start..end" for a range) when known, and Cause the
// underlying error when one exists.
type Absence struct {
	Reason AbsenceReason `json:"reason"`
	Date   string        `json:"date,omitempty"`
	Cause  error         `json:"-"`
}

// Error implements the error interface so an absence can be logged or
// wrapped during debugging. Absences are never returned as errors from the
// fetch API.
func (a *Absence) Error() string {
	if a.Cause != nil {
		return fmt.Sprintf("no data (%s, %s): %v", a.Reason, a.Date, a.Cause)
	}
	return fmt.Sprintf("no data (%s, %s)", a.Reason, a.Date)
}

// Unwrap returns the underlying cause.
func (a *Absence) Unwrap() error {
	return a.Cause
}

// Result is the outcome of a fetch: either a table (possibly empty) or an
// absence, never both.
type Result struct {
	Table   *models.Table `json:"table,omitempty"`
	Absence *Absence      `json:"absence,omitempty"`
}

// Absent reports whether the fetch yielded no usable result.
func (r *Result) Absent() bool {
	return r.Absence != nil
}

func dataResult(t *models.Table) *Result {
	return &Result{Table: t}
}

func absentResult(reason AbsenceReason, date string, cause error) *Result {
	return &Result{Absence: &Absence{Reason: reason, Date: date, Cause: cause}}
}

// classifyQueryError maps an execution error onto an absence reason.
// Undefined-table and privilege SQLSTATEs get their own reasons; everything
// else (connectivity, cancellation, syntax) collapses to query_failed.
func classifyQueryError(err error) AbsenceReason {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateUndefinedTable:
			return AbsenceMissingTable
		case sqlstateInsufficientPrivilege:
			return AbsencePermissionDenied
		}
	}
	return AbsenceQueryFailed
}
