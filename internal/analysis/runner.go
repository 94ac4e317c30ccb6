package analysis

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
)

const (
	// FileColumn is the batch-descriptor column holding the recording path.
	FileColumn = "file_name"

	// PositionColumn is the batch-descriptor column holding the
	// measurement position.
	PositionColumn = "pos"
)

// Descriptor is the batch input: one row per recording, with a file path
// column, a position column and arbitrary additional key columns. It is
// read-only to the runner.
type Descriptor struct {
	Columns []string
	Rows    [][]string
}

func (d *Descriptor) columnIndex(name string) int {
	return slices.Index(d.Columns, name)
}

// Mode selects how a batch is executed.
type Mode struct {
	workers int
}

// Sequential runs every row in order on the calling goroutine.
func Sequential() Mode {
	return Mode{}
}

// Pooled dispatches each row to a fixed-size worker pool.
func Pooled(workers int) Mode {
	if workers < 1 {
		workers = 1
	}
	return Mode{workers: workers}
}

// WithRunnerLogger sets the logger for the batch runner.
func WithRunnerLogger(logger *slog.Logger) func(*Runner) {
	return func(r *Runner) {
		r.logger = logger
	}
}

// Runner applies a FileAnalyzer across a batch descriptor and assembles
// the ordered result table.
type Runner struct {
	analyzer FileAnalyzer
	logger   *slog.Logger
}

// NewRunner creates a batch runner around the given per-file analyzer.
func NewRunner(analyzer FileAnalyzer, options ...func(*Runner)) *Runner {
	r := Runner{
		analyzer: analyzer,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&r)
	}
	return &r
}

// Process analyzes every descriptor row and returns the result table.
// Output row order always matches descriptor row order, regardless of
// execution mode or completion order: each unit of work is re-associated
// with its originating row index before the table is assembled.
//
// The failure policy is strict: any per-file failure fails the whole
// batch, with every failing row identified by its index and file path.
func (r *Runner) Process(batch *Descriptor, mode Mode) (*Table, error) {
	fileIdx := batch.columnIndex(FileColumn)
	if fileIdx < 0 {
		return nil, fmt.Errorf("processing batch: descriptor has no %q column", FileColumn)
	}
	if batch.columnIndex(PositionColumn) < 0 {
		return nil, fmt.Errorf("processing batch: descriptor has no %q column", PositionColumn)
	}

	keyColumns := make([]string, 0, len(batch.Columns)-1)
	for _, c := range batch.Columns {
		if c != FileColumn {
			keyColumns = append(keyColumns, c)
		}
	}

	records := make([]Record, len(batch.Rows))
	errs := make([]error, len(batch.Rows))

	process := func(i int) {
		row := batch.Rows[i]
		path := row[fileIdx]

		keys := make([]KeyValue, 0, len(keyColumns))
		for j, c := range batch.Columns {
			if j != fileIdx {
				keys = append(keys, KeyValue{Name: c, Value: row[j]})
			}
		}

		rec, err := r.analyzer.Analyze(path, keys)
		if err != nil {
			errs[i] = fmt.Errorf("row %d (%s): %w", i, path, err)
			return
		}
		records[i] = rec
	}

	if mode.workers == 0 {
		for i := range batch.Rows {
			process(i)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup

		for w := 0; w < mode.workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					process(i)
				}
			}()
		}

		for i := range batch.Rows {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("processing batch: %w", err)
	}

	return &Table{KeyColumns: keyColumns, Records: records}, nil
}
