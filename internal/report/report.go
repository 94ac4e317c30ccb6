// Package report renders analysis result tables as CSV, in the flat
// per-recording layout and in the hierarchical layout grouped by pipe
// and position.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/roman-kulish/pipe-harmonics/internal/analysis"
)

// ColumnDescriptions is reference text for the flat result layout,
// suitable for printing alongside a report.
const ColumnDescriptions = `Column descriptions for the flat result table.

'key*':         key fields from the batch descriptor, passed through
'pos':          the position of a given measurement
'prim_sec_amp': amplitude of V_secondary / I_primary
'prim_sec_phi': phase of V_secondary / I_primary
'prim_rec_amp': amplitude of V_receiver / I_primary
'prim_rec_phi': phase of V_receiver / I_primary
'sec_rec_amp':  amplitude of V_receiver / V_secondary
'sec_rec_phi':  phase of V_receiver / V_secondary
'sec_harm_db':  harmonic power fraction of secondary in dB
'rec_harm_db':  harmonic power fraction of receiver in dB
`

// formatValue renders a derived value for CSV output. Non-finite values
// print as NaN, +Inf or -Inf rather than failing the report.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteFlat writes the batch result as CSV: one header row with the
// canonical column order, then one row per record in batch order.
func WriteFlat(w io.Writer, table *analysis.Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(table.Columns()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := make([]string, 0, len(table.KeyColumns)+len(analysis.DerivedFields))
	for i := range table.Records {
		rec := &table.Records[i]

		row = row[:0]
		for _, name := range table.KeyColumns {
			v, _ := rec.Key(name)
			row = append(row, v)
		}
		for _, field := range analysis.DerivedFields {
			row = append(row, formatValue(rec.Derived[field]))
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteHierarchical writes the reshaped result as CSV with a three-row
// header carrying the driver, detector and quantity labels, then one
// row per (pipe, position).
func WriteHierarchical(w io.Writer, h *analysis.Hierarchical) error {
	cw := csv.NewWriter(w)

	headers := [3][]string{
		{"", ""},
		{"", ""},
		{analysis.PipeColumn, analysis.PositionColumn},
	}
	for _, col := range h.Columns {
		headers[0] = append(headers[0], col.Driver)
		headers[1] = append(headers[1], col.Detector)
		headers[2] = append(headers[2], col.Quantity)
	}
	for i, header := range headers {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("writing header row %d: %w", i, err)
		}
	}

	row := make([]string, 0, len(h.Columns)+2)
	for i, key := range h.Rows {
		row = append(row[:0], key.Pipe, key.Position)
		for _, v := range h.Values[i] {
			row = append(row, formatValue(v))
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFlatFile writes the flat CSV report to path, creating or
// truncating the file.
func WriteFlatFile(path string, table *analysis.Table) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteFlat(w, table)
	})
}

// WriteHierarchicalFile writes the hierarchical CSV report to path,
// creating or truncating the file.
func WriteHierarchicalFile(path string, h *analysis.Hierarchical) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteHierarchical(w, h)
	})
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer closeWithError(f, &err)

	if err = write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
