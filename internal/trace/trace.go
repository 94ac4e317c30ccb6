// Package trace reads raw channel recordings into uniformly sampled
// per-role traces. The file format is a delimited text export with one
// time column and one column per oscilloscope channel; a caller-supplied
// mapping assigns channel columns to the roles the analysis understands.
package trace

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// Role identifies what a recorded channel measured on the rig.
type Role string

const (
	// RoleDrive is the primary-current proxy (shunt resistor voltage).
	RoleDrive Role = "drive"

	// RoleSecondary is the secondary coil voltage.
	RoleSecondary Role = "secondary"

	// RoleReceiver is the receiver coil voltage.
	RoleReceiver Role = "receiver"

	// RoleReference is the signal-generator trigger. Optional, and never
	// conditioned: it carries no analog response content.
	RoleReference Role = "reference"
)

// Table holds the traces read from one recording. Channels share the Time
// axis and are immutable once read.
type Table struct {
	Time     []float64
	Channels map[Role][]float64
}

// SampleRate returns the sample rate in Hz estimated from the time axis.
func (t *Table) SampleRate() float64 {
	if len(t.Time) < 2 {
		return 0
	}
	span := t.Time[len(t.Time)-1] - t.Time[0]
	if span <= 0 {
		return 0
	}
	return float64(len(t.Time)-1) / span
}

// Reader yields channel trace tables given a file path and a role mapping.
// Implementations must be safe for concurrent use; the batch runner calls
// Read from multiple workers.
type Reader interface {
	Read(path string, mapping map[Role]string, maxSampleRate float64) (*Table, error)
}

// CSVReader reads oscilloscope CSV exports: a header row naming the
// columns, then one row per sample.
type CSVReader struct {
	// TimeColumn is the header name of the time column. Defaults to "t".
	TimeColumn string

	// Comma is the field delimiter. Defaults to ','.
	Comma rune
}

// Read parses the file at path and returns one trace per mapped role.
// When the recording's sample rate exceeds maxSampleRate (> 0), the traces
// are decimated by an integer stride to bring the rate under the cap.
func (r *CSVReader) Read(path string, mapping map[Role]string, maxSampleRate float64) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading traces from %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	if r.Comma != 0 {
		cr.Comma = r.Comma
	}
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading traces from %s: reading header: %w", path, err)
	}

	timeColumn := r.TimeColumn
	if timeColumn == "" {
		timeColumn = "t"
	}

	timeIdx := -1
	for i, name := range header {
		if name == timeColumn {
			timeIdx = i
			break
		}
	}
	if timeIdx < 0 {
		return nil, fmt.Errorf("reading traces from %s: no time column %q", path, timeColumn)
	}

	roleIdx := make(map[Role]int, len(mapping))
	for role, column := range mapping {
		idx := -1
		for i, name := range header {
			if name == column {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("reading traces from %s: no column %q for channel role %q", path, column, role)
		}
		roleIdx[role] = idx
	}

	tbl := Table{Channels: make(map[Role][]float64, len(mapping))}
	for {
		row, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading traces from %s: %w", path, err)
		}

		v, err := strconv.ParseFloat(row[timeIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("reading traces from %s: parsing time value %q: %w", path, row[timeIdx], err)
		}
		tbl.Time = append(tbl.Time, v)

		for role, idx := range roleIdx {
			v, err = strconv.ParseFloat(row[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("reading traces from %s: parsing %s value %q: %w", path, role, row[idx], err)
			}
			tbl.Channels[role] = append(tbl.Channels[role], v)
		}
	}
	if len(tbl.Time) == 0 {
		return nil, fmt.Errorf("reading traces from %s: no samples", path)
	}

	decimate(&tbl, maxSampleRate)
	return &tbl, nil
}

// decimate thins the table to bring its sample rate under the cap.
func decimate(tbl *Table, maxSampleRate float64) {
	if maxSampleRate <= 0 {
		return
	}
	rate := tbl.SampleRate()
	if rate <= maxSampleRate {
		return
	}

	stride := int(math.Ceil(rate / maxSampleRate))
	tbl.Time = thin(tbl.Time, stride)
	for role, values := range tbl.Channels {
		tbl.Channels[role] = thin(values, stride)
	}
}

func thin(values []float64, stride int) []float64 {
	out := values[:0]
	for i := 0; i < len(values); i += stride {
		out = append(out, values[i])
	}
	return out
}
