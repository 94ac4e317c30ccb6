package analysis

import (
	"errors"
	"reflect"
	"testing"
)

func flatFixture() *Table {
	derived := func(base float64) map[string]float64 {
		m := make(map[string]float64, len(DerivedFields))
		for i, f := range DerivedFields {
			m[f] = base + float64(i)
		}
		return m
	}

	return &Table{
		KeyColumns: []string{"pipe", "pos"},
		Records: []Record{
			{Keys: []KeyValue{{"pipe", "P2"}, {"pos", "1"}}, Derived: derived(200)},
			{Keys: []KeyValue{{"pipe", "P1"}, {"pos", "2"}}, Derived: derived(120)},
			{Keys: []KeyValue{{"pipe", "P1"}, {"pos", "1"}}, Derived: derived(110)},
		},
	}
}

func TestReshapeSortsRowsAndColumns(t *testing.T) {
	h, err := Reshape(flatFixture())
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}

	wantRows := []RowKey{
		{Pipe: "P1", Position: "1"},
		{Pipe: "P1", Position: "2"},
		{Pipe: "P2", Position: "1"},
	}
	if !reflect.DeepEqual(h.Rows, wantRows) {
		t.Errorf("unexpected row order: %+v", h.Rows)
	}

	wantColumns := []ColumnLabel{
		{Driver: "primary", Detector: "receiver", Quantity: "amplitude"},
		{Driver: "primary", Detector: "receiver", Quantity: "db"},
		{Driver: "primary", Detector: "receiver", Quantity: "phase"},
		{Driver: "primary", Detector: "secondary", Quantity: "amplitude"},
		{Driver: "primary", Detector: "secondary", Quantity: "db"},
		{Driver: "primary", Detector: "secondary", Quantity: "phase"},
		{Driver: "secondary", Detector: "receiver", Quantity: "amplitude"},
		{Driver: "secondary", Detector: "receiver", Quantity: "phase"},
	}
	if !reflect.DeepEqual(h.Columns, wantColumns) {
		t.Errorf("unexpected column order: %+v", h.Columns)
	}

	// First row is the fixture record with base 110; the first column is
	// (primary, receiver, amplitude) = prim_rec_amp = base + 2.
	if got := h.Values[0][0]; got != 112 {
		t.Errorf("expected value 112, got %g", got)
	}
}

func TestReshapeIsIdempotent(t *testing.T) {
	flat := flatFixture()

	first, err := Reshape(flat)
	if err != nil {
		t.Fatalf("first Reshape failed: %v", err)
	}
	second, err := Reshape(flat)
	if err != nil {
		t.Fatalf("second Reshape failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("reshaping twice must yield the same table")
	}
}

func TestReshapeDuplicateKey(t *testing.T) {
	flat := flatFixture()
	flat.Records = append(flat.Records, flat.Records[0])

	_, err := Reshape(flat)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// The flat table must remain usable after a failed reshape.
	if len(flat.Records) != 4 {
		t.Errorf("flat table modified by failed reshape: %d records", len(flat.Records))
	}
}

func TestReshapeRequiresKeyColumns(t *testing.T) {
	flat := flatFixture()
	flat.KeyColumns = []string{"pos"}
	if _, err := Reshape(flat); err == nil {
		t.Error("expected error for missing pipe column")
	}

	flat.KeyColumns = []string{"pipe"}
	if _, err := Reshape(flat); err == nil {
		t.Error("expected error for missing position column")
	}
}
