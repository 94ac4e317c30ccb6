package app

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/roman-kulish/pipe-harmonics/internal/analysis"
)

const (
	sampleColumn  = "sample"
	fileTagColumn = "file_tag"
)

// csvTable is a small in-memory CSV frame used for the run-log join.
type csvTable struct {
	Columns []string
	Rows    [][]string
}

func (t *csvTable) columnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

func readCSVTable(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log '%s': %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading log '%s' header: %w", path, err)
	}

	table := csvTable{Columns: slices.Clone(header)}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading log '%s': %w", path, err)
		}
		table.Rows = append(table.Rows, slices.Clone(row))
	}
	return &table, nil
}

// joinLogs inner-joins the all-runs log with the samples-to-analyze log
// on the sample column, renaming the run log's file_name column to
// file_tag. Rows for samples absent from either log drop out.
func joinLogs(allRuns, samples *csvTable) (*csvTable, error) {
	runSample := allRuns.columnIndex(sampleColumn)
	if runSample < 0 {
		return nil, fmt.Errorf("run log has no %q column", sampleColumn)
	}
	fileName := allRuns.columnIndex(analysis.FileColumn)
	if fileName < 0 {
		return nil, fmt.Errorf("run log has no %q column", analysis.FileColumn)
	}
	wantSample := samples.columnIndex(sampleColumn)
	if wantSample < 0 {
		return nil, fmt.Errorf("samples log has no %q column", sampleColumn)
	}

	columns := slices.Clone(allRuns.Columns)
	columns[fileName] = fileTagColumn

	var extra []int
	for i, c := range samples.Columns {
		if i != wantSample && !slices.Contains(columns, c) {
			extra = append(extra, i)
			columns = append(columns, c)
		}
	}

	bySample := make(map[string][][]string, len(samples.Rows))
	for _, row := range samples.Rows {
		bySample[row[wantSample]] = append(bySample[row[wantSample]], row)
	}

	joined := csvTable{Columns: columns}
	for _, run := range allRuns.Rows {
		for _, want := range bySample[run[runSample]] {
			row := slices.Clone(run)
			for _, i := range extra {
				row = append(row, want[i])
			}
			joined.Rows = append(joined.Rows, row)
		}
	}
	return &joined, nil
}

// buildDescriptor turns discovered files, optionally joined with the run
// log, into the batch descriptor. The pipe and pos key columns derive
// from the file tag; with a run log, files without a matching log entry
// drop out and the log's remaining columns become additional keys.
func buildDescriptor(files []dataFile, log *csvTable) (*analysis.Descriptor, error) {
	columns := []string{analysis.FileColumn, analysis.PipeColumn, analysis.PositionColumn}

	var tagIdx int
	var logColumns []int
	if log != nil {
		if tagIdx = log.columnIndex(fileTagColumn); tagIdx < 0 {
			return nil, fmt.Errorf("run log has no %q column", fileTagColumn)
		}
		for i, c := range log.Columns {
			if i != tagIdx && !slices.Contains(columns, c) {
				logColumns = append(logColumns, i)
				columns = append(columns, c)
			}
		}
	}

	byTag := make(map[string][][]string)
	if log != nil {
		for _, row := range log.Rows {
			byTag[row[tagIdx]] = append(byTag[row[tagIdx]], row)
		}
	}

	desc := analysis.Descriptor{Columns: columns}
	for _, f := range files {
		pipe, pos := f.pipePos()

		if log == nil {
			desc.Rows = append(desc.Rows, []string{f.Path, pipe, pos})
			continue
		}

		for _, logRow := range byTag[f.Tag] {
			row := make([]string, 0, len(columns))
			row = append(row, f.Path, pipe, pos)
			for _, i := range logColumns {
				row = append(row, logRow[i])
			}
			desc.Rows = append(desc.Rows, row)
		}
	}
	return &desc, nil
}
