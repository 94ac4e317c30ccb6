package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const (
	dpi            = 120.0
	fontSize       = 12.0
	tickMarkHeight = 5

	defaultCellSize = 32

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 40
	defaultRightBorder  = 40
)

// BorderConfig defines the sizes of white space around the profile grid
type BorderConfig struct {
	Top    int // Space for the position scale
	Left   int // Space for the pipe labels
	Bottom int // Space for the information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for profile visualization
type RenderConfig struct {
	// Annotation configuration
	FontPath      string  // Path to a TTF font; empty disables annotations
	FontSize      float64 // Font size in points
	NoAnnotations bool    // Skip scales and labels entirely

	// Visual configuration
	CellSize     int        // Cell edge length in pixels
	ColorTheme   ColorTheme // Color scheme for cell values
	ColorMapSize int        // Number of colors in gradient (0 for default)

	// Border configuration
	BorderConfig BorderConfig
}

// ProfileRenderer draws a (pipe × position) response-profile grid
type ProfileRenderer struct {
	colorMap *ColorMapper
	config   RenderConfig
}

// NewProfileRenderer creates a new profile renderer with the given configuration
func NewProfileRenderer(config RenderConfig) (*ProfileRenderer, error) {
	// Set defaults for zero values
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.CellSize == 0 {
		config.CellSize = defaultCellSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &ProfileRenderer{config: config}, nil
}

// Render creates an image of the profile grid with annotations
func (r *ProfileRenderer) Render(profile *ProfileData, bounds ValueBounds) (*image.RGBA, error) {
	gridWidth := len(profile.Positions) * r.config.CellSize
	gridHeight := len(profile.Pipes) * r.config.CellSize

	fullWidth := gridWidth + r.config.BorderConfig.Left + r.config.BorderConfig.Right
	fullHeight := gridHeight + r.config.BorderConfig.Top + r.config.BorderConfig.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	// Fill with white background
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	gridArea := image.Rect(
		r.config.BorderConfig.Left,
		r.config.BorderConfig.Top,
		r.config.BorderConfig.Left+gridWidth,
		r.config.BorderConfig.Top+gridHeight,
	)

	if r.colorMap == nil {
		r.colorMap = NewColorMapperWithSize(r.config.ColorTheme, bounds, r.config.ColorMapSize)
	} else {
		r.colorMap.UpdateBounds(bounds)
	}

	if !r.config.NoAnnotations && r.config.FontPath != "" {
		ann, err := newAnnotator(annotatorConfig{
			FontPath: r.config.FontPath,
			FontSize: r.config.FontSize,
			CellSize: r.config.CellSize,
			Borders:  r.config.BorderConfig,
		})
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err = ann.annotate(img, profile, bounds); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	r.renderGrid(img, gridArea, profile)

	return img, nil
}

// renderGrid draws the profile cells using the color map
func (r *ProfileRenderer) renderGrid(img *image.RGBA, area image.Rectangle, profile *ProfileData) {
	size := r.config.CellSize
	for row, values := range profile.Values {
		for col, value := range values {
			cell := image.Rect(
				area.Min.X+col*size,
				area.Min.Y+row*size,
				area.Min.X+(col+1)*size,
				area.Min.Y+(row+1)*size,
			)
			draw.Draw(img, cell, image.NewUniform(r.colorMap.GetColor(value)), image.Point{}, draw.Src)
		}
	}
}

// Internal annotator implementation
type annotatorConfig struct {
	FontPath string
	FontSize float64
	CellSize int
	Borders  BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	fontBytes, err := os.ReadFile(config.FontPath)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}

	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, profile *ProfileData, bounds ValueBounds) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawPositionScale(img, profile); err != nil {
		return fmt.Errorf("drawing position scale: %w", err)
	}
	if err := a.drawPipeScale(img, profile); err != nil {
		return fmt.Errorf("drawing pipe labels: %w", err)
	}
	if err := a.drawInfoBar(img, profile, bounds); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) drawPositionScale(img *image.RGBA, profile *ProfileData) error {
	// Get actual font height in pixels
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := a.config.Borders.Top - fontHeight/2

	for col, pos := range profile.Positions {
		// Center of the column
		x := a.config.Borders.Left + col*a.config.CellSize + a.config.CellSize/2

		// Draw tick mark
		for y := a.config.Borders.Top - tickMarkHeight; y < a.config.Borders.Top; y++ {
			img.Set(x, y, color.Black)
		}

		width := font.MeasureString(a.fontFace, pos)
		pt := freetype.Pt(x-(width.Round()/2), textY)
		if _, err := a.context.DrawString(pos, pt); err != nil {
			return fmt.Errorf("drawing position label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawPipeScale(img *image.RGBA, profile *ProfileData) error {
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	for row, pipe := range profile.Pipes {
		imgY := a.config.Borders.Top + row*a.config.CellSize + a.config.CellSize/2

		// Draw tick mark
		for x := a.config.Borders.Left - tickMarkHeight; x < a.config.Borders.Left; x++ {
			img.Set(x, imgY, color.Black)
		}

		textY := imgY + fontHeight/2 - metrics.Descent.Round()
		pt := freetype.Pt(10, textY)
		if _, err := a.context.DrawString(pipe, pt); err != nil {
			return fmt.Errorf("drawing pipe label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, profile *ProfileData, bounds ValueBounds) error {
	var sb strings.Builder

	sb.WriteString(profile.Quantity)
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("%s pipes x %s positions",
		humanize.Comma(int64(len(profile.Pipes))),
		humanize.Comma(int64(len(profile.Positions)))))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("range %s to %s",
		humanize.SIWithDigits(bounds.Min, 3, ""),
		humanize.SIWithDigits(bounds.Max, 3, "")))

	// Center text vertically in bottom border
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-fontHeight)/2 - metrics.Descent.Round()

	pt := freetype.Pt(a.config.Borders.Left, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}

	return nil
}
