package revbrief

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Page size constants.
const (
	PageSizeA4     = "a4"
	PageSizeLetter = "letter"
	PageSizeLegal  = "legal"
)

// Orientation constants.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Margin bounds in millimetres.
const (
	MinMargin     = 0.0
	MaxMargin     = 50.0
	DefaultMargin = 10.0
)

// Export constants. Not runtime-configurable.
const (
	// CaptureScale is the oversampling factor applied when capturing a surface.
	CaptureScale = 2.0

	// DefaultDocumentName is the file name offered for every exported brief.
	DefaultDocumentName = "study-cheatsheet.pdf"

	// DefaultViewportWidth is the preview width in CSS pixels (A4 width at 96 dpi).
	DefaultViewportWidth = 794
)

// portrait dimensions in millimetres, width then height.
var pageDimensions = map[string][2]float64{
	PageSizeA4:     {210, 297},
	PageSizeLetter: {215.9, 279.4},
	PageSizeLegal:  {215.9, 355.6},
}

// PageSettings selects a standard page by name.
type PageSettings struct {
	Size        string  // "a4", "letter", "legal"
	Orientation string  // "portrait", "landscape"
	Margin      float64 // millimetres, applied to all sides
}

// DefaultPageSettings returns A4 portrait with a 10 mm margin.
func DefaultPageSettings() *PageSettings {
	return &PageSettings{
		Size:        PageSizeA4,
		Orientation: OrientationPortrait,
		Margin:      DefaultMargin,
	}
}

// Validate checks that page settings are valid.
// Returns nil if p is nil (nil means use defaults).
// Does not mutate - uses case-insensitive comparison.
func (p *PageSettings) Validate() error {
	if p == nil {
		return nil
	}

	if _, ok := pageDimensions[strings.ToLower(p.Size)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPageSize, p.Size)
	}

	switch strings.ToLower(p.Orientation) {
	case OrientationPortrait, OrientationLandscape:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrientation, p.Orientation)
	}

	if p.Margin < MinMargin || p.Margin > MaxMargin {
		return fmt.Errorf("%w: %.2f (must be between %.0f and %.0f)", ErrInvalidMargin, p.Margin, MinMargin, MaxMargin)
	}

	return nil
}

// Geometry resolves the settings to physical page dimensions.
// A nil receiver yields DefaultGeometry.
func (p *PageSettings) Geometry() (PageGeometry, error) {
	if p == nil {
		return DefaultGeometry(), nil
	}
	if err := p.Validate(); err != nil {
		return PageGeometry{}, err
	}

	dims := pageDimensions[strings.ToLower(p.Size)]
	g := PageGeometry{Width: dims[0], Height: dims[1], Margin: p.Margin}
	if strings.ToLower(p.Orientation) == OrientationLandscape {
		g.Width, g.Height = g.Height, g.Width
	}
	return g, nil
}

// PageGeometry is a page in millimetres with the same margin on all sides.
type PageGeometry struct {
	Width  float64
	Height float64
	Margin float64
}

// DefaultGeometry returns A4 portrait with a 10 mm margin.
func DefaultGeometry() PageGeometry {
	g, _ := DefaultPageSettings().Geometry()
	return g
}

// PrintableWidth is the page width minus both margins.
func (g PageGeometry) PrintableWidth() float64 {
	return g.Width - 2*g.Margin
}

// PrintableHeight is the page height minus both margins.
func (g PageGeometry) PrintableHeight() float64 {
	return g.Height - 2*g.Margin
}

// Validate rejects geometries with no printable area.
func (g PageGeometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: %.1fx%.1f mm", ErrInvalidPageSize, g.Width, g.Height)
	}
	if g.Margin < 0 || g.PrintableWidth() <= 0 || g.PrintableHeight() <= 0 {
		return fmt.Errorf("%w: %.1f mm leaves no printable area on %.1fx%.1f mm", ErrInvalidMargin, g.Margin, g.Width, g.Height)
	}
	return nil
}

// Input contains export parameters.
type Input struct {
	Text     string        // generated brief text (required)
	Title    string        // document title (optional)
	CSS      string        // extra CSS appended after the style (optional)
	Page     *PageSettings // page settings (optional, nil = defaults)
	HTMLOnly bool          // skip rasterization, return markup and HTML only
}

// PagePlacement records where one slice of the capture went.
type PagePlacement struct {
	Index     int     // 0-based page number
	OffsetPx  int     // first captured row in this slice
	HeightPx  int     // rows in this slice
	WidthPx   int     // captured width
	X, Y      float64 // top-left on the page, mm
	W, H      float64 // placed size, mm
	PageBreak bool    // a page was added before this one
}

// Document is the finalized multi-page export.
type Document struct {
	Name  string
	PDF   []byte
	Pages []PagePlacement
}

// Result contains the outputs of an export.
type Result struct {
	Markup   string    // normalized brief markup
	HTML     []byte    // preview page handed to the renderer
	Document *Document // nil when Input.HTMLOnly
}

// Option configures an Exporter.
type Option func(*Exporter)

// exporterConfig holds internal configuration for Exporter.
type exporterConfig struct {
	timeout       time.Duration
	styleInput    string
	resolvedStyle string
	viewportWidth int
	logger        *slog.Logger
}

// defaultTimeout is used when no timeout is specified.
const defaultTimeout = 30 * time.Second

// WithTimeout bounds rendering and capture of one export.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("revbrief: WithTimeout duration must be positive")
	}
	return func(e *Exporter) {
		e.cfg.timeout = d
	}
}

// WithStyle sets the stylesheet: an embedded style name, a CSS file path,
// or raw CSS content.
func WithStyle(style string) Option {
	return func(e *Exporter) {
		e.cfg.styleInput = style
	}
}

// WithViewportWidth sets the preview width in CSS pixels.
// Panics if px <= 0.
func WithViewportWidth(px int) Option {
	if px <= 0 {
		panic("revbrief: WithViewportWidth must be positive")
	}
	return func(e *Exporter) {
		e.cfg.viewportWidth = px
	}
}

// WithLogger sets the logger for export state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.cfg.logger = l
		}
	}
}

// WithRenderer replaces the headless Chrome renderer.
func WithRenderer(r SurfaceRenderer) Option {
	return func(e *Exporter) {
		e.renderer = r
	}
}
