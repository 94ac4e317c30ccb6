package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/pipe-harmonics/internal/analysis"
	"github.com/roman-kulish/pipe-harmonics/internal/report"
	"github.com/roman-kulish/pipe-harmonics/internal/storage"
	"github.com/roman-kulish/pipe-harmonics/internal/trace"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	start := time.Now()

	batch, err := buildBatch(config, logger)
	if err != nil {
		return err
	}
	if len(batch.Rows) == 0 {
		return errors.New("no recordings to analyze")
	}

	table, err := processBatch(config, logger, batch)
	if err != nil {
		return err
	}

	if err = writeReports(config, logger, table); err != nil {
		return err
	}

	if config.Output.Database != "" {
		if err = storeResults(ctx, config, logger, table); err != nil {
			return err
		}
	}

	logger.Info("analysis complete",
		slog.String("records", humanize.Comma(int64(len(table.Records)))),
		slog.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return nil
}

func buildBatch(config *Config, logger *slog.Logger) (*analysis.Descriptor, error) {
	files, err := discoverFiles(config.Data.Dir, config.Data.MaxSamples)
	if err != nil {
		return nil, fmt.Errorf("discovering recordings: %w", err)
	}

	logger.Info("discovered recordings",
		slog.String("dir", config.Data.Dir),
		slog.Int("files", len(files)))

	var log *csvTable
	if config.Data.AllRunsLog != "" {
		allRuns, err := readCSVTable(config.Data.AllRunsLog)
		if err != nil {
			return nil, err
		}
		samples, err := readCSVTable(config.Data.SamplesLog)
		if err != nil {
			return nil, err
		}

		if log, err = joinLogs(allRuns, samples); err != nil {
			return nil, fmt.Errorf("joining run logs: %w", err)
		}

		logger.Info("joined run logs",
			slog.Int("runs", len(allRuns.Rows)),
			slog.Int("samples", len(samples.Rows)),
			slog.Int("selected", len(log.Rows)))
	}

	batch, err := buildDescriptor(files, log)
	if err != nil {
		return nil, fmt.Errorf("building batch: %w", err)
	}
	return batch, nil
}

func processBatch(config *Config, logger *slog.Logger, batch *analysis.Descriptor) (*analysis.Table, error) {
	reader := &trace.CSVReader{TimeColumn: config.Channels.Time}

	analyzer, err := analysis.NewAnalyzer(reader, config.Channels.Mapping(),
		analysis.WithHarmonic(config.Analysis.Harmonic),
		analysis.WithMaxSampleRate(config.Analysis.MaxSampleRate),
		analysis.WithLogger(logger),
		analysis.WithVerbose(config.Settings.Verbose))
	if err != nil {
		return nil, fmt.Errorf("creating analyzer: %w", err)
	}

	mode := analysis.Sequential()
	if config.Analysis.Jobs > 1 {
		mode = analysis.Pooled(config.Analysis.Jobs)
	}

	logger.Info("processing batch",
		slog.Int("recordings", len(batch.Rows)),
		slog.Int("jobs", max(config.Analysis.Jobs, 1)),
		slog.Int("harmonic", config.Analysis.Harmonic),
		slog.String("maxSampleRate", humanize.SIWithDigits(config.Analysis.MaxSampleRate, 0, "Hz")))

	runner := analysis.NewRunner(analyzer, analysis.WithRunnerLogger(logger))
	return runner.Process(batch, mode)
}

func writeReports(config *Config, logger *slog.Logger, table *analysis.Table) error {
	if err := report.WriteFlatFile(config.Output.Results, table); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	logger.Info("wrote flat results", slog.String("file", config.Output.Results))

	if config.Output.ByPosition == "" {
		return nil
	}

	// A duplicate (pipe, pos) pair fails the reshape but the flat report
	// above is already on disk, so warn and move on.
	h, err := analysis.Reshape(table)
	if err != nil {
		logger.Warn("skipping by-position report", slog.String("reason", err.Error()))
		return nil
	}

	if err = report.WriteHierarchicalFile(config.Output.ByPosition, h); err != nil {
		return fmt.Errorf("writing by-position report: %w", err)
	}
	logger.Info("wrote by-position report", slog.String("file", config.Output.ByPosition))
	return nil
}

func storeResults(ctx context.Context, config *Config, logger *slog.Logger, table *analysis.Table) (err error) {
	store := storage.New(config.Output.Database)
	defer closeWithError(store, &err)

	runID, err := store.CreateRun(ctx, config)
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}

	if err = store.StoreResults(ctx, runID, table); err != nil {
		return fmt.Errorf("storing results: %w", err)
	}

	logger.Info("stored results",
		slog.String("database", config.Output.Database),
		slog.Int64("run", runID))
	return nil
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
