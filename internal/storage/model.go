package storage

import (
	"database/sql"
	"time"
)

// RunData describes one stored analysis run
type RunData struct {
	ID        int64
	RunUUID   string
	CreatedAt time.Time
	Config    sql.NullString
}

// ResultData represents the derived quantities for a single recording.
// Ratio and distortion columns are NULL when the derived value was not
// finite, for example when a fitted denominator amplitude was zero.
type ResultData struct {
	ID         int64
	RunID      int64
	RowIndex   int64
	FileName   string
	Pipe       sql.NullString
	Position   sql.NullString
	Keys       sql.NullString
	PrimSecAmp sql.NullFloat64
	PrimSecPhi sql.NullFloat64
	PrimRecAmp sql.NullFloat64
	PrimRecPhi sql.NullFloat64
	SecRecAmp  sql.NullFloat64
	SecRecPhi  sql.NullFloat64
	SecHarmDB  sql.NullFloat64
	RecHarmDB  sql.NullFloat64
}

// Derived returns the stored derived columns as a field name to value
// map, in the shape the analysis pipeline produces. NULL columns come
// back as NaN.
func (r *ResultData) Derived() map[string]float64 {
	nullable := []sql.NullFloat64{
		r.PrimSecAmp,
		r.PrimSecPhi,
		r.PrimRecAmp,
		r.PrimRecPhi,
		r.SecRecAmp,
		r.SecRecPhi,
		r.SecHarmDB,
		r.RecHarmDB,
	}

	derived := make(map[string]float64, len(nullable))
	for i, v := range nullable {
		derived[resultColumns[i]] = fromNullFloat(v)
	}
	return derived
}
