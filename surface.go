package revbrief

import (
	"context"
	"image"
	"image/color"
)

// SurfaceBounds is the laid-out size of a surface in CSS pixels.
type SurfaceBounds struct {
	Width  float64
	Height float64
}

// CaptureOptions controls how a surface is rasterized.
type CaptureOptions struct {
	Scale      float64     // device pixels per CSS pixel
	Background color.Color // opaque fill behind the content
}

// Surface is a rendered, scrollable brief that can be captured as one image.
type Surface interface {
	// Bounds reports the full content size, including content beyond the viewport.
	Bounds(ctx context.Context) (SurfaceBounds, error)

	// Settle yields once to the host layout cycle so pending layout is applied.
	Settle(ctx context.Context) error

	// Capture rasterizes the whole surface into a single image.
	Capture(ctx context.Context, opts CaptureOptions) (image.Image, error)

	// Close releases the surface.
	Close() error
}

// SurfaceRenderer turns a complete HTML page into a Surface.
type SurfaceRenderer interface {
	Render(ctx context.Context, html string) (Surface, error)
	Close() error
}
