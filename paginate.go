package revbrief

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
)

// Raster limits for one slice canvas, matching Chrome's canvas caps.
const (
	maxCanvasDimension = 32767
	maxCanvasArea      = 268435456
)

// ExportState is the pagination state, exposed for logging.
type ExportState int

// Export states in the order they are entered. No state is revisited.
const (
	StateIdle ExportState = iota
	StateCapturing
	StateSlicing
	StateFinalized
)

func (s ExportState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateSlicing:
		return "slicing"
	case StateFinalized:
		return "finalized"
	}
	return fmt.Sprintf("ExportState(%d)", int(s))
}

// PageSink assembles placed slices into a paged document.
// A new sink already holds one empty page.
type PageSink interface {
	// AddPage starts a new page. Called before every page except the first.
	AddPage() error

	// PlaceImage draws a PNG-encoded slice on the current page.
	PlaceImage(pngData []byte, at PagePlacement) error

	// Output serializes the finished document.
	Output() ([]byte, error)
}

// canvasFunc allocates the raster surface for one slice.
type canvasFunc func(width, height int) (draw.Image, error)

// Paginator slices a captured surface into printable pages.
// The zero value is ready to use.
type Paginator struct {
	Logger *slog.Logger

	newCanvas canvasFunc
}

// Paginate slices surface onto pages of geometry using a zero Paginator.
func Paginate(ctx context.Context, surface Surface, geometry PageGeometry, sink PageSink) (*Document, error) {
	var p Paginator
	return p.Paginate(ctx, surface, geometry, sink)
}

// Paginate captures surface once at CaptureScale on white, cuts the capture
// into full-width horizontal bands that each fill one printable area, and
// places the bands top to bottom, one per page.
//
// The scale from captured pixels to millimetres is computed once and used
// for every page, so all pages share the same horizontal scale. Slice
// heights sum to the captured height exactly.
//
// Either a complete document is returned or an error with no document.
// Errors wrap ErrPreconditionViolation (empty surface, before capture),
// ErrRenderContextUnavailable (slice canvas allocation or context expiry),
// ErrCapture or ErrPDFGeneration.
func (p *Paginator) Paginate(ctx context.Context, surface Surface, geometry PageGeometry, sink PageSink) (*Document, error) {
	if surface == nil || sink == nil {
		return nil, fmt.Errorf("%w: nil surface or sink", ErrPreconditionViolation)
	}
	if err := geometry.Validate(); err != nil {
		return nil, err
	}

	printableWidth := geometry.PrintableWidth()
	printableHeight := geometry.PrintableHeight()

	p.enter(StateIdle)

	bounds, err := surface.Bounds(ctx)
	if err != nil {
		return nil, p.captureError(ctx, "measuring surface", err)
	}
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return nil, fmt.Errorf("%w: surface is %.0fx%.0f px", ErrPreconditionViolation, bounds.Width, bounds.Height)
	}

	p.enter(StateCapturing, "width_css_px", bounds.Width, "height_css_px", bounds.Height)

	if err := surface.Settle(ctx); err != nil {
		return nil, p.captureError(ctx, "settling layout", err)
	}

	captured, err := surface.Capture(ctx, CaptureOptions{Scale: CaptureScale, Background: color.White})
	if err != nil {
		return nil, p.captureError(ctx, "capturing surface", err)
	}

	src := captured.Bounds()
	capturedWidth, capturedHeight := src.Dx(), src.Dy()
	if capturedWidth <= 0 || capturedHeight <= 0 {
		return nil, fmt.Errorf("%w: capture is %dx%d px", ErrPreconditionViolation, capturedWidth, capturedHeight)
	}

	pixelsPerUnit := float64(capturedWidth) / printableWidth
	sliceHeightPx := int(math.Floor(printableHeight * pixelsPerUnit))
	if sliceHeightPx < 1 {
		return nil, fmt.Errorf("%w: %d px wide capture yields empty slices", ErrPreconditionViolation, capturedWidth)
	}

	pages := make([]PagePlacement, 0, (capturedHeight+sliceHeightPx-1)/sliceHeightPx)

	for renderedHeightPx := 0; renderedHeightPx < capturedHeight; {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRenderContextUnavailable, err)
		}

		index := len(pages)
		heightPx := min(sliceHeightPx, capturedHeight-renderedHeightPx)

		p.enter(StateSlicing, "page", index+1, "offset_px", renderedHeightPx, "height_px", heightPx)

		canvas, err := p.canvas(capturedWidth, heightPx)
		if err != nil {
			return nil, fmt.Errorf("%w: slice %d (%dx%d px): %v", ErrRenderContextUnavailable, index+1, capturedWidth, heightPx, err)
		}

		band := image.Rect(src.Min.X, src.Min.Y+renderedHeightPx, src.Max.X, src.Min.Y+renderedHeightPx+heightPx)
		draw.Copy(canvas, image.Point{}, captured, band, draw.Src, nil)

		encoded, err := encodeSlice(canvas)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding slice %d: %v", ErrPDFGeneration, index+1, err)
		}

		at := PagePlacement{
			Index:    index,
			OffsetPx: renderedHeightPx,
			HeightPx: heightPx,
			WidthPx:  capturedWidth,
			X:        geometry.Margin,
			Y:        geometry.Margin,
			W:        printableWidth,
			H:        float64(heightPx) / pixelsPerUnit,
		}

		if index > 0 {
			if err := sink.AddPage(); err != nil {
				return nil, fmt.Errorf("%w: adding page %d: %v", ErrPDFGeneration, index+1, err)
			}
			at.PageBreak = true
		}

		if err := sink.PlaceImage(encoded, at); err != nil {
			return nil, fmt.Errorf("%w: placing slice %d: %v", ErrPDFGeneration, index+1, err)
		}

		pages = append(pages, at)
		renderedHeightPx += heightPx
	}

	pdf, err := sink.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	p.enter(StateFinalized, "pages", len(pages), "bytes", len(pdf))

	return &Document{Name: DefaultDocumentName, PDF: pdf, Pages: pages}, nil
}

// captureError maps a surface failure. An expired or canceled context
// counts as an unavailable render context.
func (p *Paginator) captureError(ctx context.Context, step string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s: %v", ErrRenderContextUnavailable, step, ctx.Err())
	}
	return fmt.Errorf("%w: %s: %v", ErrCapture, step, err)
}

func (p *Paginator) enter(state ExportState, attrs ...any) {
	if p.Logger == nil {
		return
	}
	p.Logger.Debug("export state", append([]any{"state", state.String()}, attrs...)...)
}

func (p *Paginator) canvas(width, height int) (draw.Image, error) {
	if p.newCanvas != nil {
		return p.newCanvas(width, height)
	}
	return newSliceCanvas(width, height)
}

// newSliceCanvas allocates an RGBA canvas within browser raster limits.
func newSliceCanvas(width, height int) (draw.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	if width > maxCanvasDimension || height > maxCanvasDimension || width*height > maxCanvasArea {
		return nil, fmt.Errorf("canvas %dx%d exceeds raster limits", width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height)), nil
}

// encodeSlice encodes one slice as PNG at png.BestSpeed.
func encodeSlice(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
