package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/pipe-harmonics/internal/trace"
)

const (
	defaultTimeColumn    = "t"
	defaultHarmonic      = 3
	defaultMaxSamples    = 2
	defaultMaxSampleRate = 1e9
	defaultResultsFile   = "results.csv"
)

// Config represents the main application configuration
type Config struct {
	Settings Settings       `yaml:"settings"`
	Channels ChannelConfig  `yaml:"channels"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Data     DataConfig     `yaml:"data"`
	Output   OutputConfig   `yaml:"output"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
	Verbose  bool   `yaml:"verbose"`
}

// Level parses the configured log level, defaulting to info.
func (s Settings) Level() slog.Level {
	var level slog.Level
	if s.LogLevel == "" {
		return slog.LevelInfo
	}
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ChannelConfig maps oscilloscope channel column names to their roles
// in the measurement rig.
type ChannelConfig struct {
	Time      string `yaml:"time"`
	Drive     string `yaml:"drive"`
	Secondary string `yaml:"secondary"`
	Receiver  string `yaml:"receiver"`
	Reference string `yaml:"reference"`
}

// Mapping returns the role to column mapping for the trace reader.
func (c ChannelConfig) Mapping() map[trace.Role]string {
	mapping := map[trace.Role]string{
		trace.RoleDrive:     c.Drive,
		trace.RoleSecondary: c.Secondary,
		trace.RoleReceiver:  c.Receiver,
	}
	if c.Reference != "" {
		mapping[trace.RoleReference] = c.Reference
	}
	return mapping
}

// AnalysisConfig represents analysis pipeline settings
type AnalysisConfig struct {
	Harmonic      int     `yaml:"harmonic"`
	Jobs          int     `yaml:"jobs"`
	MaxSampleRate float64 `yaml:"maxSampleRate"`
}

// DataConfig represents data discovery settings
type DataConfig struct {
	Dir        string `yaml:"dir"`
	AllRunsLog string `yaml:"allRunsLog"`
	SamplesLog string `yaml:"samplesLog"`
	MaxSamples int    `yaml:"maxSamples"`
}

// OutputConfig represents result output settings
type OutputConfig struct {
	Results    string `yaml:"results"`
	ByPosition string `yaml:"byPosition"`
	Database   string `yaml:"database"`
}

// LoadConfig reads and validates a yaml configuration file, filling in
// defaults for omitted settings.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	config := Config{
		Channels: ChannelConfig{
			Time:      defaultTimeColumn,
			Drive:     "b",
			Secondary: "d",
			Receiver:  "c",
			Reference: "a",
		},
		Analysis: AnalysisConfig{
			Harmonic:      defaultHarmonic,
			MaxSampleRate: defaultMaxSampleRate,
		},
		Data: DataConfig{
			MaxSamples: defaultMaxSamples,
		},
		Output: OutputConfig{
			Results: defaultResultsFile,
		},
	}
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err = config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func (c *Config) validate() error {
	if c.Settings.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
			return fmt.Errorf("unknown log level '%s'", c.Settings.LogLevel)
		}
	}
	if c.Data.Dir == "" {
		return errors.New("data directory is required")
	}
	if (c.Data.AllRunsLog == "") != (c.Data.SamplesLog == "") {
		return errors.New("allRunsLog and samplesLog must be set together")
	}
	if c.Channels.Drive == "" || c.Channels.Secondary == "" || c.Channels.Receiver == "" {
		return errors.New("drive, secondary and receiver channels are required")
	}
	if c.Analysis.Harmonic < 1 {
		return fmt.Errorf("invalid harmonic %d", c.Analysis.Harmonic)
	}
	if c.Analysis.MaxSampleRate <= 0 {
		return fmt.Errorf("invalid maximum sample rate %g", c.Analysis.MaxSampleRate)
	}
	if c.Data.MaxSamples < 1 {
		return fmt.Errorf("invalid maximum samples per tag %d", c.Data.MaxSamples)
	}
	return nil
}
