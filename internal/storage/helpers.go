package storage

import (
	"database/sql"
	"errors"
	"math"

	"github.com/roman-kulish/pipe-harmonics/internal/analysis"
)

// resultColumns maps result table REAL columns to derived field names,
// in schema order.
var resultColumns = analysis.DerivedFields

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	// After a successful Commit the deferred Rollback returns
	// sql.ErrTxDone, which is not a failure.
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func toNullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func toNullString(s string, ok bool) sql.NullString {
	return sql.NullString{String: s, Valid: ok}
}
