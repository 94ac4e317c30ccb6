package analysis

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"
)

// stubAnalyzer returns a canned record per path, optionally after a random
// delay so parallel completion order is shuffled.
type stubAnalyzer struct {
	delay   bool
	failOn  string
	failErr error
}

func (s *stubAnalyzer) Analyze(path string, keys []KeyValue) (Record, error) {
	if s.delay {
		time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
	}
	if path == s.failOn {
		return Record{}, s.failErr
	}
	return Record{
		Path:    path,
		Keys:    keys,
		Derived: map[string]float64{FieldPrimSecAmp: float64(len(path))},
	}, nil
}

func makeBatch(n int) *Descriptor {
	d := Descriptor{Columns: []string{"pipe", "pos", "file_name"}}
	for i := 0; i < n; i++ {
		d.Rows = append(d.Rows, []string{"P1", strconv.Itoa(i), fmt.Sprintf("file-%03d.csv", i)})
	}
	return &d
}

func TestRunnerPreservesRowOrder(t *testing.T) {
	testCases := []struct {
		name string
		n    int
		mode Mode
	}{
		{name: "sequential empty", n: 0, mode: Sequential()},
		{name: "sequential single", n: 1, mode: Sequential()},
		{name: "sequential many", n: 23, mode: Sequential()},
		{name: "pooled single worker", n: 23, mode: Pooled(1)},
		{name: "pooled few workers", n: 23, mode: Pooled(4)},
		{name: "pooled more workers than rows", n: 5, mode: Pooled(16)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			batch := makeBatch(tc.n)
			r := NewRunner(&stubAnalyzer{delay: true})

			table, err := r.Process(batch, tc.mode)
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if len(table.Records) != tc.n {
				t.Fatalf("expected %d records, got %d", tc.n, len(table.Records))
			}

			for i, rec := range table.Records {
				pos, _ := rec.Key("pos")
				if pos != strconv.Itoa(i) {
					t.Errorf("record %d: expected pos %d, got %q", i, i, pos)
				}
				if rec.Path != fmt.Sprintf("file-%03d.csv", i) {
					t.Errorf("record %d: unexpected path %q", i, rec.Path)
				}
			}
		})
	}
}

func TestRunnerColumnOrdering(t *testing.T) {
	batch := &Descriptor{
		Columns: []string{"sample", "pipe", "file_name", "pos", "temperature"},
		Rows:    [][]string{{"s1", "P1", "a.csv", "1", "21.5"}},
	}

	table, err := NewRunner(&stubAnalyzer{}).Process(batch, Sequential())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	want := []string{
		"sample", "pipe", "pos", "temperature",
		"prim_sec_amp", "prim_sec_phi",
		"prim_rec_amp", "prim_rec_phi",
		"sec_rec_amp", "sec_rec_phi",
		"sec_harm_db", "rec_harm_db",
	}
	got := table.Columns()
	if len(got) != len(want) {
		t.Fatalf("expected %d columns, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	keys := table.Records[0].Keys
	if len(keys) != 4 || keys[0].Name != "sample" || keys[2].Name != "pos" {
		t.Errorf("unexpected key fields: %+v", keys)
	}
}

func TestRunnerStrictFailurePolicy(t *testing.T) {
	sentinel := errors.New("bad recording")

	for _, mode := range []Mode{Sequential(), Pooled(3)} {
		batch := makeBatch(8)
		r := NewRunner(&stubAnalyzer{delay: true, failOn: "file-005.csv", failErr: sentinel})

		table, err := r.Process(batch, mode)
		if table != nil {
			t.Error("expected no table on per-file failure")
		}
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected wrapped sentinel error, got %v", err)
		}
		if !strings.Contains(err.Error(), "file-005.csv") {
			t.Errorf("error must identify the failing file, got %q", err.Error())
		}
	}
}

func TestRunnerRequiresDescriptorColumns(t *testing.T) {
	r := NewRunner(&stubAnalyzer{})

	_, err := r.Process(&Descriptor{Columns: []string{"pos"}}, Sequential())
	if err == nil {
		t.Error("expected error for missing file column")
	}

	_, err = r.Process(&Descriptor{Columns: []string{"file_name"}}, Sequential())
	if err == nil {
		t.Error("expected error for missing position column")
	}
}
