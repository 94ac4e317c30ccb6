package app

import (
	"errors"
	"flag"
	"fmt"
	"slices"
	"strings"

	"github.com/roman-kulish/pipe-harmonics/internal/analysis"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath        string
	RunID         int64
	Quantity      string
	OutputFile    string
	Format        ImageFormat
	Theme         ColorTheme
	FontPath      string
	CellSize      int
	MinValue      *float64
	MaxValue      *float64
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

var validColorThemes = map[ColorTheme]struct{}{
	ClassicTheme:   {},
	GrayscaleTheme: {},
	JungleTheme:    {},
	ThermalTheme:   {},
	MarineTheme:    {},
}

func NewConfig() *Config {
	return &Config{
		Format:   ImagePNG,
		Quantity: analysis.FieldPrimSecAmp,
		Theme:    ClassicTheme,
		CellSize: defaultCellSize,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat, theme string
	var minValue, maxValue float64
	flag.StringVar(&c.DBPath, "db", "", "Path to the results database file")
	flag.Int64Var(&c.RunID, "run", 1, "Analysis run ID")
	flag.StringVar(&c.Quantity, "q", c.Quantity, fmt.Sprintf("Derived quantity to render. [%s]", strings.Join(analysis.DerivedFields, ", ")))
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.StringVar(&theme, "theme", string(ClassicTheme), "Color theme. [classic, grayscale, jungle, thermal, marine]")
	flag.StringVar(&c.FontPath, "font", "", "Path to a TTF font for annotations (annotations are skipped without it)")
	flag.IntVar(&c.CellSize, "cell", defaultCellSize, "Cell size in pixels")
	flag.Float64Var(&minValue, "min", 0, "Define a manual lower color bound")
	flag.Float64Var(&maxValue, "max", 0, "Define a manual upper color bound")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as position and pipe labels")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)
	theme = strings.ToLower(theme)

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "min" {
			c.MinValue = &minValue
		}
		if f.Name == "max" {
			c.MaxValue = &maxValue
		}
	})

	if err := c.validate(imageFormat, theme); err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.Theme = ColorTheme(theme)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}

func (c *Config) validate(imageFormat, theme string) error {
	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.RunID <= 0 {
		err = errors.New("run id is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if !slices.Contains(analysis.DerivedFields, c.Quantity) {
		err = fmt.Errorf("unknown quantity: %s", c.Quantity)
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if _, ok := validColorThemes[ColorTheme(theme)]; !ok {
		err = fmt.Errorf("invalid color theme: %s", theme)
	} else if c.CellSize < 1 {
		err = fmt.Errorf("invalid cell size: %d", c.CellSize)
	}
	return err
}
