package analysis

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// PipeColumn is the key column identifying the measurement apparatus a
// batch was recorded on. Required by Reshape together with PositionColumn.
const PipeColumn = "pipe"

// ErrDuplicateKey is returned by Reshape when two records share the same
// (pipe, position) combination.
var ErrDuplicateKey = errors.New("duplicate (pipe, position) key")

// ColumnLabel is the three-level classification of one derived column for
// report presentation.
type ColumnLabel struct {
	Driver   string
	Detector string
	Quantity string
}

// derivedLabels maps every derived flat field to its classification. The
// reshape step validates this table against DerivedFields so schema drift
// fails fast instead of producing a silently incomplete report.
var derivedLabels = map[string]ColumnLabel{
	FieldPrimSecAmp: {Driver: "primary", Detector: "secondary", Quantity: "amplitude"},
	FieldPrimSecPhi: {Driver: "primary", Detector: "secondary", Quantity: "phase"},
	FieldPrimRecAmp: {Driver: "primary", Detector: "receiver", Quantity: "amplitude"},
	FieldPrimRecPhi: {Driver: "primary", Detector: "receiver", Quantity: "phase"},
	FieldSecRecAmp:  {Driver: "secondary", Detector: "receiver", Quantity: "amplitude"},
	FieldSecRecPhi:  {Driver: "secondary", Detector: "receiver", Quantity: "phase"},
	FieldSecHarmDB:  {Driver: "primary", Detector: "secondary", Quantity: "db"},
	FieldRecHarmDB:  {Driver: "primary", Detector: "receiver", Quantity: "db"},
}

// RowKey identifies one hierarchical row.
type RowKey struct {
	Pipe     string
	Position string
}

// Hierarchical is the reshaped result table: rows indexed by (pipe,
// position), columns labeled by (driver, detector, quantity), both sorted
// lexicographically for reproducible output.
type Hierarchical struct {
	Rows    []RowKey
	Columns []ColumnLabel
	Values  [][]float64 // Values[row][column]
}

// Reshape turns the flat batch result into the hierarchical reporting
// layout. The pipe and position key columns must be present and their
// combination unique across records, else it fails with ErrDuplicateKey;
// the flat table remains valid either way.
func Reshape(flat *Table) (*Hierarchical, error) {
	if !slices.Contains(flat.KeyColumns, PipeColumn) {
		return nil, fmt.Errorf("reshaping results: no %q key column", PipeColumn)
	}
	if !slices.Contains(flat.KeyColumns, PositionColumn) {
		return nil, fmt.Errorf("reshaping results: no %q key column", PositionColumn)
	}

	fields := make([]string, len(DerivedFields))
	copy(fields, DerivedFields)
	for _, f := range fields {
		if _, ok := derivedLabels[f]; !ok {
			return nil, fmt.Errorf("reshaping results: derived field %q has no column label", f)
		}
	}

	// Column hierarchy in lexicographic (driver, detector, quantity) order.
	slices.SortFunc(fields, func(a, b string) int {
		la, lb := derivedLabels[a], derivedLabels[b]
		if c := cmp.Compare(la.Driver, lb.Driver); c != 0 {
			return c
		}
		if c := cmp.Compare(la.Detector, lb.Detector); c != 0 {
			return c
		}
		return cmp.Compare(la.Quantity, lb.Quantity)
	})

	columns := make([]ColumnLabel, len(fields))
	for i, f := range fields {
		columns[i] = derivedLabels[f]
	}

	type indexed struct {
		key RowKey
		rec *Record
	}
	rows := make([]indexed, 0, len(flat.Records))
	seen := make(map[RowKey]struct{}, len(flat.Records))
	for i := range flat.Records {
		rec := &flat.Records[i]
		pipe, _ := rec.Key(PipeColumn)
		pos, _ := rec.Key(PositionColumn)

		key := RowKey{Pipe: pipe, Position: pos}
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("reshaping results: %w: pipe=%q pos=%q", ErrDuplicateKey, pipe, pos)
		}
		seen[key] = struct{}{}
		rows = append(rows, indexed{key: key, rec: rec})
	}

	slices.SortFunc(rows, func(a, b indexed) int {
		if c := cmp.Compare(a.key.Pipe, b.key.Pipe); c != 0 {
			return c
		}
		return cmp.Compare(a.key.Position, b.key.Position)
	})

	h := Hierarchical{
		Rows:    make([]RowKey, len(rows)),
		Columns: columns,
		Values:  make([][]float64, len(rows)),
	}
	for i, row := range rows {
		h.Rows[i] = row.key
		h.Values[i] = make([]float64, len(fields))
		for j, f := range fields {
			h.Values[i][j] = row.rec.Derived[f]
		}
	}
	return &h, nil
}
