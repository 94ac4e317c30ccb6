package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roman-kulish/pipe-harmonics/internal/analysis"
)

func testTable() *analysis.Table {
	derived := func(base float64) map[string]float64 {
		m := make(map[string]float64, len(analysis.DerivedFields))
		for i, f := range analysis.DerivedFields {
			m[f] = base + float64(i)
		}
		return m
	}

	return &analysis.Table{
		KeyColumns: []string{"pipe", "pos"},
		Records: []analysis.Record{
			{
				Path:    "data/1-1.csv",
				Keys:    []analysis.KeyValue{{Name: "pipe", Value: "1"}, {Name: "pos", Value: "1"}},
				Derived: derived(10),
			},
			{
				Path:    "data/1-2.csv",
				Keys:    []analysis.KeyValue{{Name: "pipe", Value: "1"}, {Name: "pos", Value: "2"}},
				Derived: derived(20),
			},
		},
	}
}

func TestWriteFlat(t *testing.T) {
	var sb strings.Builder
	if err := WriteFlat(&sb, testTable()); err != nil {
		t.Fatalf("WriteFlat() error = %v", err)
	}

	want := strings.Join([]string{
		"pipe,pos,prim_sec_amp,prim_sec_phi,prim_rec_amp,prim_rec_phi,sec_rec_amp,sec_rec_phi,sec_harm_db,rec_harm_db",
		"1,1,10,11,12,13,14,15,16,17",
		"1,2,20,21,22,23,24,25,26,27",
		"",
	}, "\n")
	if got := sb.String(); got != want {
		t.Errorf("WriteFlat() = %q, want %q", got, want)
	}
}

func TestWriteFlatNonFiniteValues(t *testing.T) {
	table := testTable()
	table.Records = table.Records[:1]
	table.Records[0].Derived[analysis.FieldSecRecAmp] = math.Inf(1)
	table.Records[0].Derived[analysis.FieldRecHarmDB] = math.NaN()

	var sb strings.Builder
	if err := WriteFlat(&sb, table); err != nil {
		t.Fatalf("WriteFlat() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("WriteFlat() produced %d lines, want 2", len(lines))
	}
	fields := strings.Split(lines[1], ",")
	if fields[6] != "+Inf" {
		t.Errorf("sec_rec_amp column = %q, want +Inf", fields[6])
	}
	if fields[9] != "NaN" {
		t.Errorf("rec_harm_db column = %q, want NaN", fields[9])
	}
}

func TestWriteHierarchical(t *testing.T) {
	h := &analysis.Hierarchical{
		Rows: []analysis.RowKey{
			{Pipe: "1", Position: "1"},
			{Pipe: "2", Position: "1"},
		},
		Columns: []analysis.ColumnLabel{
			{Driver: "primary", Detector: "secondary", Quantity: "amplitude"},
			{Driver: "primary", Detector: "secondary", Quantity: "phase"},
		},
		Values: [][]float64{
			{0.5, -1.5},
			{0.25, -0.75},
		},
	}

	var sb strings.Builder
	if err := WriteHierarchical(&sb, h); err != nil {
		t.Fatalf("WriteHierarchical() error = %v", err)
	}

	want := strings.Join([]string{
		",,primary,primary",
		",,secondary,secondary",
		"pipe,pos,amplitude,phase",
		"1,1,0.5,-1.5",
		"2,1,0.25,-0.75",
		"",
	}, "\n")
	if got := sb.String(); got != want {
		t.Errorf("WriteHierarchical() = %q, want %q", got, want)
	}
}

func TestWriteFlatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	if err := WriteFlatFile(path, testTable()); err != nil {
		t.Fatalf("WriteFlatFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 3 {
		t.Errorf("report has %d lines, want 3", len(lines))
	}
}
