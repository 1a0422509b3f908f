package taq

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifyQueryError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want AbsenceReason
	}{
		{
			name: "undefined_table",
			err:  &pgconn.PgError{Code: sqlstateUndefinedTable},
			want: AbsenceMissingTable,
		},
		{
			name: "insufficient_privilege",
			err:  &pgconn.PgError{Code: sqlstateInsufficientPrivilege},
			want: AbsencePermissionDenied,
		},
		{
			name: "wrapped_pg_error",
			err:  fmt.Errorf("executing query: %w", &pgconn.PgError{Code: sqlstateUndefinedTable}),
			want: AbsenceMissingTable,
		},
		{
			name: "other_sqlstate",
			err:  &pgconn.PgError{Code: "42601"}, // syntax error
			want: AbsenceQueryFailed,
		},
		{
			name: "plain_error",
			err:  errors.New("dial tcp: connection refused"),
			want: AbsenceQueryFailed,
		},
		{
			name: "context_cancelled",
			err:  context.Canceled,
			want: AbsenceQueryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyQueryError(tt.err))
		})
	}
}

func TestAbsence_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("relation does not exist")
	a := &Absence{Reason: AbsenceMissingTable, Date: "2023-09-02", Cause: cause}

	assert.Contains(t, a.Error(), "missing_table")
	assert.Contains(t, a.Error(), "2023-09-02")
	assert.ErrorIs(t, a, cause)

	noCause := &Absence{Reason: AbsenceNoData, Date: "2023-09-01..2023-09-03"}
	assert.Contains(t, noCause.Error(), "no_data")
	assert.Nil(t, errors.Unwrap(noCause))
}

func TestResult_Absent(t *testing.T) {
	assert.True(t, absentResult(AbsenceNoData, "2023-09-01", nil).Absent())
	assert.False(t, dataResult(nil).Absent())
}
