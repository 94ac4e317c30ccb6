// Package analysis orchestrates the per-file harmonic analysis pipeline
// and the batch processing that applies it across a set of recordings.
package analysis

import "slices"

// Names of the derived result fields, in canonical output order.
const (
	FieldPrimSecAmp = "prim_sec_amp"
	FieldPrimSecPhi = "prim_sec_phi"
	FieldPrimRecAmp = "prim_rec_amp"
	FieldPrimRecPhi = "prim_rec_phi"
	FieldSecRecAmp  = "sec_rec_amp"
	FieldSecRecPhi  = "sec_rec_phi"
	FieldSecHarmDB  = "sec_harm_db"
	FieldRecHarmDB  = "rec_harm_db"
)

// DerivedFields lists the eight derived result columns in canonical order:
// amplitude/phase of secondary over primary, receiver over primary and
// receiver over secondary, then the two harmonic-distortion figures.
var DerivedFields = []string{
	FieldPrimSecAmp,
	FieldPrimSecPhi,
	FieldPrimRecAmp,
	FieldPrimRecPhi,
	FieldSecRecAmp,
	FieldSecRecPhi,
	FieldSecHarmDB,
	FieldRecHarmDB,
}

// KeyValue is one caller-supplied key field attached to a result record,
// passed through from the batch descriptor untouched.
type KeyValue struct {
	Name  string
	Value string
}

// Record is the analysis result for one recording: the descriptor key
// fields plus the eight derived quantities. Path is kept for storage and
// diagnostics; it is not a report column.
type Record struct {
	Path    string
	Keys    []KeyValue
	Derived map[string]float64
}

// Key returns the value of a key field and whether it is present.
func (r *Record) Key(name string) (string, bool) {
	for _, kv := range r.Keys {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return "", false
}

// Table is the ordered batch result: one record per descriptor row, rows
// in descriptor order, columns in canonical order (key columns first,
// then DerivedFields).
type Table struct {
	KeyColumns []string
	Records    []Record
}

// Columns returns the canonical column ordering.
func (t *Table) Columns() []string {
	return append(slices.Clone(t.KeyColumns), DerivedFields...)
}
