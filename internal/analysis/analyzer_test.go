package analysis

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roman-kulish/pipe-harmonics/internal/trace"
)

const (
	e2eSampleRate = 50000.0
	e2eFrequency  = 50.0
	e2eSamples    = 10000 // 0.2 s, ten cycles
)

var e2eMapping = map[trace.Role]string{
	trace.RoleReference: "a",
	trace.RoleDrive:     "b",
	trace.RoleReceiver:  "c",
	trace.RoleSecondary: "d",
}

// writeSinusoidRecording writes a recording whose drive, receiver and
// secondary channels all carry the same in-phase unit sinusoid with no
// harmonic content.
func writeSinusoidRecording(t *testing.T, dir, name string) string {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("t,a,b,c,d\n")
	for i := 0; i < e2eSamples; i++ {
		tt := float64(i) / e2eSampleRate
		v := math.Sin(2 * math.Pi * e2eFrequency * tt)
		fmt.Fprintf(&sb, "%.9f,%g,%g,%g,%g\n", tt, v, v, v, v)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("writing recording: %v", err)
	}
	return path
}

func TestAnalyzerEndToEnd(t *testing.T) {
	path := writeSinusoidRecording(t, t.TempDir(), "0001-01.csv")

	a, err := NewAnalyzer(&trace.CSVReader{}, e2eMapping)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	rec, err := a.Analyze(path, []KeyValue{{Name: "pipe", Value: "P1"}, {Name: "pos", Value: "1"}})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	omega := 2 * math.Pi * e2eFrequency

	// The drive fit is differentiated, so the secondary-over-primary
	// ratio is 1/omega in amplitude and -pi/2 in phase.
	if got := rec.Derived[FieldPrimSecAmp]; math.Abs(got-1/omega)/(1/omega) > 1e-3 {
		t.Errorf("prim_sec_amp: expected %g, got %g", 1/omega, got)
	}
	if got := rec.Derived[FieldPrimSecPhi]; math.Abs(got+math.Pi/2) > 1e-2 {
		t.Errorf("prim_sec_phi: expected %g, got %g", -math.Pi/2, got)
	}
	if got := rec.Derived[FieldPrimRecAmp]; math.Abs(got-1/omega)/(1/omega) > 1e-3 {
		t.Errorf("prim_rec_amp: expected %g, got %g", 1/omega, got)
	}

	// Identical secondary and receiver channels: unity ratio, zero phase.
	if got := rec.Derived[FieldSecRecAmp]; math.Abs(got-1) > 1e-6 {
		t.Errorf("sec_rec_amp: expected 1, got %g", got)
	}
	if got := rec.Derived[FieldSecRecPhi]; math.Abs(got) > 1e-6 {
		t.Errorf("sec_rec_phi: expected 0, got %g", got)
	}

	// No third-harmonic content: the distortion figures are -Inf or a
	// very large negative number limited only by numerical noise.
	if got := rec.Derived[FieldSecHarmDB]; got > -60 {
		t.Errorf("sec_harm_db: expected very large negative value, got %g", got)
	}
	if got := rec.Derived[FieldRecHarmDB]; got > -60 {
		t.Errorf("rec_harm_db: expected very large negative value, got %g", got)
	}
}

func TestRunnerEndToEndDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	first := writeSinusoidRecording(t, dir, "0001-01.csv")
	second := writeSinusoidRecording(t, dir, "0001-02.csv")

	a, err := NewAnalyzer(&trace.CSVReader{}, e2eMapping)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	batch := &Descriptor{
		Columns: []string{"pipe", "pos", "file_name"},
		Rows: [][]string{
			{"P1", "1", first},
			{"P1", "1", second}, // same pipe and position
		},
	}

	table, err := NewRunner(a).Process(batch, Pooled(2))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(table.Records) != 2 {
		t.Fatalf("expected 2 records in the flat table, got %d", len(table.Records))
	}

	if _, err = Reshape(table); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey from reshape, got %v", err)
	}
}

func TestNewAnalyzerRequiresRoles(t *testing.T) {
	_, err := NewAnalyzer(&trace.CSVReader{}, map[trace.Role]string{
		trace.RoleDrive: "b",
	})
	if err == nil {
		t.Error("expected error for missing channel roles")
	}
}

func TestAnalyzerWrapsReadFailure(t *testing.T) {
	a, err := NewAnalyzer(&trace.CSVReader{}, e2eMapping)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	missing := filepath.Join(t.TempDir(), "missing.csv")
	_, err = a.Analyze(missing, nil)
	if err == nil {
		t.Fatal("expected error for missing recording")
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("error must carry the file path, got %q", err.Error())
	}
}
