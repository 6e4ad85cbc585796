package revbrief

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/image/draw"

	"github.com/alnah/go-revbrief/internal/fileutil"
	"github.com/alnah/go-revbrief/internal/process"
)

// PreviewSelector is the element of the preview page exposed as the Surface.
const PreviewSelector = ".brief-preview"

// Compile-time interface checks
var (
	_ SurfaceRenderer = (*rodRenderer)(nil)
	_ Surface         = (*rodSurface)(nil)
)

// JavaScript evaluated in the preview page.
const (
	jsFontsReady = `() => document.fonts.ready.then(() => true)`
	jsNextFrame  = `() => new Promise(resolve => requestAnimationFrame(() => resolve(true)))`
	jsBounds     = `() => {
	const r = this.getBoundingClientRect();
	return {
		x: r.left + window.scrollX,
		y: r.top + window.scrollY,
		width: Math.max(r.width, this.scrollWidth),
		height: Math.max(r.height, this.scrollHeight)
	};
}`
)

// rodRenderer implements SurfaceRenderer using go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodRenderer struct {
	mu            sync.Mutex
	launcher      *launcher.Launcher
	browser       *rod.Browser
	timeout       time.Duration
	viewportWidth int
}

// newRodRenderer creates a rodRenderer with the given timeout and viewport width.
func newRodRenderer(timeout time.Duration, viewportWidth int) *rodRenderer {
	return &rodRenderer{timeout: timeout, viewportWidth: viewportWidth}
}

// BrowserLaunch describes how the renderer starts Chrome.
type BrowserLaunch struct {
	// Bin is the browser binary from ROD_BROWSER_BIN; empty means rod's lookup.
	Bin string `json:"bin,omitempty"`

	// NoSandbox is set under CI=true and for a pinned ROD_BROWSER_BIN, which
	// is how container images ship Chrome.
	NoSandbox bool `json:"no_sandbox"`

	// Reason names the variable that disabled the sandbox.
	Reason string `json:"reason,omitempty"`
}

// ResolveBrowserLaunch reads the launch settings from getenv.
func ResolveBrowserLaunch(getenv func(string) string) BrowserLaunch {
	s := BrowserLaunch{Bin: getenv("ROD_BROWSER_BIN")}
	switch {
	case getenv("CI") == "true":
		s.NoSandbox, s.Reason = true, "CI=true"
	case s.Bin != "":
		s.NoSandbox, s.Reason = true, "ROD_BROWSER_BIN"
	}
	return s
}

// ensureBrowser lazily launches and connects to the browser.
func (r *rodRenderer) ensureBrowser() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return nil
	}

	settings := ResolveBrowserLaunch(os.Getenv)

	l := launcher.New()
	if settings.Bin != "" {
		l = l.Bin(settings.Bin)
	}
	if settings.NoSandbox {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		process.KillTree(l.PID())
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.launcher = l
	r.browser = browser
	return nil
}

// Close releases browser resources and kills the browser process tree.
func (r *rodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		process.KillTree(r.launcher.PID())
		r.launcher.Kill()
		r.launcher.Cleanup()
		r.launcher = nil
	}
	return err
}

// Render loads a complete HTML page in headless Chrome and returns its
// preview container as a Surface. The caller must Close the surface.
func (r *rodRenderer) Render(ctx context.Context, htmlContent string) (Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "file://" + tmpPath})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	s := &rodSurface{page: page, cleanup: cleanup}
	if err := r.load(ctx, s); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// load sizes the viewport, waits for the page and its fonts, and finds the
// preview element.
func (r *rodRenderer) load(ctx context.Context, s *rodSurface) error {
	// Wait for page to load with timeout from context or default
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return context.DeadlineExceeded
		}
	}
	page := s.page.Context(ctx).Timeout(timeout)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             r.viewportWidth,
		Height:            800,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("%w: setting viewport: %v", ErrPageLoad, err)
	}

	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	if _, err := page.Eval(jsFontsReady); err != nil {
		return fmt.Errorf("%w: waiting for fonts: %v", ErrPageLoad, err)
	}

	el, err := page.Element(PreviewSelector)
	if err != nil {
		return fmt.Errorf("%w: preview element %q: %v", ErrPageLoad, PreviewSelector, err)
	}

	s.element = el
	return nil
}

// rodSurface is the preview element of a loaded page.
type rodSurface struct {
	page    *rod.Page
	element *rod.Element
	cleanup func()
	once    sync.Once
}

// surfaceRect is the element's document-relative box in CSS pixels.
type surfaceRect struct {
	X, Y, Width, Height float64
}

func (s *rodSurface) rect(ctx context.Context) (surfaceRect, error) {
	res, err := s.element.Context(ctx).Eval(jsBounds)
	if err != nil {
		return surfaceRect{}, err
	}
	return surfaceRect{
		X:      res.Value.Get("x").Num(),
		Y:      res.Value.Get("y").Num(),
		Width:  res.Value.Get("width").Num(),
		Height: res.Value.Get("height").Num(),
	}, nil
}

// Bounds reports the preview's full size in CSS pixels.
func (s *rodSurface) Bounds(ctx context.Context) (SurfaceBounds, error) {
	r, err := s.rect(ctx)
	if err != nil {
		return SurfaceBounds{}, fmt.Errorf("%w: measuring preview: %v", ErrCapture, err)
	}
	return SurfaceBounds{Width: r.Width, Height: r.Height}, nil
}

// Settle waits for one animation frame.
func (s *rodSurface) Settle(ctx context.Context) error {
	if _, err := s.page.Context(ctx).Eval(jsNextFrame); err != nil {
		return fmt.Errorf("%w: waiting for frame: %v", ErrCapture, err)
	}
	return nil
}

// Capture screenshots the preview, including content beyond the viewport,
// at opts.Scale and flattens it onto opts.Background.
func (s *rodSurface) Capture(ctx context.Context, opts CaptureOptions) (image.Image, error) {
	r, err := s.rect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: measuring preview: %v", ErrCapture, err)
	}

	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	data, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      r.X,
			Y:      r.Y,
			Width:  r.Width,
			Height: r.Height,
			Scale:  scale,
		},
		FromSurface:           true,
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding screenshot: %v", ErrCapture, err)
	}

	return flatten(img, opts.Background), nil
}

// Close closes the page and removes its temp file. Safe to call twice.
func (s *rodSurface) Close() error {
	var err error
	s.once.Do(func() {
		if s.page != nil {
			err = s.page.Close()
		}
		if s.cleanup != nil {
			s.cleanup()
		}
	})
	return err
}

// flatten composites img over an opaque background. A nil background
// returns img unchanged.
func flatten(img image.Image, bg color.Color) image.Image {
	if bg == nil {
		return img
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}
