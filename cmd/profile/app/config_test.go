package app

import (
	"strings"
	"testing"

	"github.com/roman-kulish/pipe-harmonics/internal/analysis"
)

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		c := NewConfig()
		c.DBPath = "results.sqlite"
		c.RunID = 1
		c.OutputFile = "profile"
		return c
	}

	tests := []struct {
		name        string
		mutate      func(c *Config)
		imageFormat string
		theme       string
		wantErr     string
	}{
		{
			name:        "valid",
			imageFormat: ImagePNG,
			theme:       string(ClassicTheme),
		},
		{
			name:        "missing db path",
			mutate:      func(c *Config) { c.DBPath = "" },
			imageFormat: ImagePNG,
			theme:       string(ClassicTheme),
			wantErr:     "db path is required",
		},
		{
			name:        "unknown quantity",
			mutate:      func(c *Config) { c.Quantity = "voltage" },
			imageFormat: ImagePNG,
			theme:       string(ClassicTheme),
			wantErr:     "unknown quantity",
		},
		{
			name:        "invalid image format",
			imageFormat: "bmp",
			theme:       string(ClassicTheme),
			wantErr:     "invalid image format",
		},
		{
			name:        "invalid color theme",
			imageFormat: ImagePNG,
			theme:       "clasic",
			wantErr:     "invalid color theme",
		},
		{
			name:        "invalid cell size",
			mutate:      func(c *Config) { c.CellSize = 0 },
			imageFormat: ImagePNG,
			theme:       string(ThermalTheme),
			wantErr:     "invalid cell size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			if tt.mutate != nil {
				tt.mutate(c)
			}

			err := c.validate(tt.imageFormat, tt.theme)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateAcceptsAllThemes(t *testing.T) {
	for theme := range validColorThemes {
		c := NewConfig()
		c.DBPath = "results.sqlite"
		c.RunID = 1
		c.OutputFile = "profile"
		c.Quantity = analysis.FieldSecHarmDB

		if err := c.validate(ImagePNG, string(theme)); err != nil {
			t.Errorf("validate() with theme %q: %v", theme, err)
		}
	}
}
