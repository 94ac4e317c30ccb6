package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/roman-kulish/pipe-harmonics/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.New(config.DBPath)
	defer store.Close()

	return renderProfile(ctx, store, config, logger)
}

func renderProfile(ctx context.Context, store *storage.Store, config *Config, logger *slog.Logger) error {
	run, err := store.Run(ctx, config.RunID)
	if err != nil {
		return fmt.Errorf("loading run %d: %w", config.RunID, err)
	}

	results, err := store.Results(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("loading results: %w", err)
	}

	logger.Info("loaded analysis run",
		slog.Int64("run", run.ID),
		slog.String("uuid", run.RunUUID),
		slog.Int("results", len(results)))

	profile, err := NewProfileData(config.Quantity, results)
	if err != nil {
		return fmt.Errorf("arranging profile: %w", err)
	}

	bounds := computeBounds(profile.Samples(), config.MinValue, config.MaxValue)

	if config.FontPath == "" && !config.NoAnnotations {
		logger.Info("no font provided, skipping annotations")
	}

	renderer, err := NewProfileRenderer(RenderConfig{
		FontPath:      config.FontPath,
		NoAnnotations: config.NoAnnotations,
		CellSize:      config.CellSize,
		ColorTheme:    config.Theme,
	})
	if err != nil {
		return fmt.Errorf("creating profile renderer: %w", err)
	}

	logger.Info("rendering profile",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.String("quantity", profile.Quantity),
			slog.Int("pipes", len(profile.Pipes)),
			slog.Int("positions", len(profile.Positions)),
		),
		slog.Group("bounds",
			slog.Float64("min", bounds.Min),
			slog.Float64("max", bounds.Max),
		))

	img, err := renderer.Render(profile, bounds)
	if err != nil {
		return fmt.Errorf("rendering profile: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
