package revbrief

// Notes:
// - fakeSurface returns a synthetic capture so pagination runs without a browser
// - recordingSink logs AddPage and PlaceImage calls in order, so page breaks
//   can be checked against the placements that follow them
// - Geometry 21x220 mm with a 10 mm margin gives a 1x200 mm printable area;
//   a 10 px wide capture then yields pixelsPerUnit = 10 and 2000 px slices

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"golang.org/x/image/draw"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeSurface struct {
	bounds     SurfaceBounds
	boundsErr  error
	settleErr  error
	captureErr error
	img        image.Image

	calls       []string
	captureOpts CaptureOptions
	closed      bool
}

func (f *fakeSurface) Bounds(ctx context.Context) (SurfaceBounds, error) {
	f.calls = append(f.calls, "bounds")
	return f.bounds, f.boundsErr
}

func (f *fakeSurface) Settle(ctx context.Context) error {
	f.calls = append(f.calls, "settle")
	return f.settleErr
}

func (f *fakeSurface) Capture(ctx context.Context, opts CaptureOptions) (image.Image, error) {
	f.calls = append(f.calls, "capture")
	f.captureOpts = opts
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return f.img, nil
}

func (f *fakeSurface) Close() error {
	f.closed = true
	return nil
}

// newStripedSurface returns a surface whose capture is w x h pixels, with
// each row's red channel set to row%256 so slices can be traced back.
func newStripedSurface(w, h int) *fakeSurface {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(y % 256), G: 10, B: 20, A: 255})
		}
	}
	return &fakeSurface{
		bounds: SurfaceBounds{Width: float64(w) / CaptureScale, Height: float64(h) / CaptureScale},
		img:    img,
	}
}

type sinkEvent struct {
	kind string // "addPage" or "place"
	at   PagePlacement
	png  []byte
}

type recordingSink struct {
	events    []sinkEvent
	addErr    error
	placeErr  error
	outputErr error
	outputs   int
}

func (s *recordingSink) AddPage() error {
	if s.addErr != nil {
		return s.addErr
	}
	s.events = append(s.events, sinkEvent{kind: "addPage"})
	return nil
}

func (s *recordingSink) PlaceImage(pngData []byte, at PagePlacement) error {
	if s.placeErr != nil {
		return s.placeErr
	}
	s.events = append(s.events, sinkEvent{kind: "place", at: at, png: pngData})
	return nil
}

func (s *recordingSink) Output() ([]byte, error) {
	s.outputs++
	if s.outputErr != nil {
		return nil, s.outputErr
	}
	return []byte("%PDF-fake"), nil
}

func (s *recordingSink) kinds() string {
	parts := make([]string, len(s.events))
	for i, e := range s.events {
		parts[i] = e.kind
	}
	return strings.Join(parts, ",")
}

// sliceGeometry is 1x200 mm printable: 10 px wide captures give 2000 px slices.
var sliceGeometry = PageGeometry{Width: 21, Height: 220, Margin: 10}

// ---------------------------------------------------------------------------
// TestPaginate - Slicing and placement
// ---------------------------------------------------------------------------

func TestPaginate_ThreePagesFrom5000Pixels(t *testing.T) {
	t.Parallel()

	surface := newStripedSurface(10, 5000)
	sink := &recordingSink{}

	doc, err := Paginate(context.Background(), surface, sliceGeometry, sink)
	if err != nil {
		t.Fatalf("Paginate() error: %v", err)
	}

	wantHeights := []int{2000, 2000, 1000}
	if len(doc.Pages) != len(wantHeights) {
		t.Fatalf("got %d pages, want %d", len(doc.Pages), len(wantHeights))
	}
	for i, want := range wantHeights {
		if doc.Pages[i].HeightPx != want {
			t.Errorf("page %d height = %d px, want %d", i+1, doc.Pages[i].HeightPx, want)
		}
	}

	// Breaks before pages 2 and 3 only
	if got, want := sink.kinds(), "place,addPage,place,addPage,place"; got != want {
		t.Errorf("sink calls = %s, want %s", got, want)
	}
	wantBreaks := []bool{false, true, true}
	for i, want := range wantBreaks {
		if doc.Pages[i].PageBreak != want {
			t.Errorf("page %d PageBreak = %v, want %v", i+1, doc.Pages[i].PageBreak, want)
		}
	}

	if sink.outputs != 1 {
		t.Errorf("Output called %d times, want 1", sink.outputs)
	}
	if doc.Name != DefaultDocumentName {
		t.Errorf("Name = %q, want %q", doc.Name, DefaultDocumentName)
	}
	if string(doc.PDF) != "%PDF-fake" {
		t.Errorf("PDF = %q, want sink output", doc.PDF)
	}
}

func TestPaginate_Placement(t *testing.T) {
	t.Parallel()

	surface := newStripedSurface(10, 5000)
	doc, err := Paginate(context.Background(), surface, sliceGeometry, &recordingSink{})
	if err != nil {
		t.Fatalf("Paginate() error: %v", err)
	}

	wantH := []float64{200, 200, 100}
	for i, p := range doc.Pages {
		if p.X != 10 || p.Y != 10 {
			t.Errorf("page %d placed at (%v, %v), want margin (10, 10)", i+1, p.X, p.Y)
		}
		if p.W != sliceGeometry.PrintableWidth() {
			t.Errorf("page %d width = %v mm, want printable width %v", i+1, p.W, sliceGeometry.PrintableWidth())
		}
		if p.H != wantH[i] {
			t.Errorf("page %d height = %v mm, want %v", i+1, p.H, wantH[i])
		}
		if p.WidthPx != 10 {
			t.Errorf("page %d width = %d px, want 10", i+1, p.WidthPx)
		}
		if p.Index != i {
			t.Errorf("page %d Index = %d", i+1, p.Index)
		}
	}
}

func TestPaginate_Coverage(t *testing.T) {
	t.Parallel()

	// Notes:
	// - Default A4 geometry: printable 190x277 mm
	// - Heights straddle exact multiples of the slice height

	geometry := DefaultGeometry()
	const width = 380 // pixelsPerUnit = 2

	sliceHeight := int(math.Floor(geometry.PrintableHeight() * 2))

	heights := []int{1, sliceHeight - 1, sliceHeight, sliceHeight + 1, 3 * sliceHeight, 3*sliceHeight + 7}

	for _, h := range heights {
		surface := newStripedSurface(width, h)
		doc, err := Paginate(context.Background(), surface, geometry, &recordingSink{})
		if err != nil {
			t.Fatalf("Paginate(height=%d) error: %v", h, err)
		}

		wantPages := (h + sliceHeight - 1) / sliceHeight
		if len(doc.Pages) != wantPages {
			t.Errorf("height %d: got %d pages, want ceil(%d/%d) = %d", h, len(doc.Pages), h, sliceHeight, wantPages)
		}

		next := 0
		for i, p := range doc.Pages {
			if p.OffsetPx != next {
				t.Errorf("height %d: page %d starts at %d, want %d (gap or overlap)", h, i+1, p.OffsetPx, next)
			}
			if i < len(doc.Pages)-1 && p.HeightPx != sliceHeight {
				t.Errorf("height %d: page %d height = %d, want full slice %d", h, i+1, p.HeightPx, sliceHeight)
			}
			if p.W != geometry.PrintableWidth() {
				t.Errorf("height %d: page %d width = %v, want %v", h, i+1, p.W, geometry.PrintableWidth())
			}
			next += p.HeightPx
		}
		if next != h {
			t.Errorf("height %d: slices cover %d px", h, next)
		}
	}
}

func TestPaginate_SliceContent(t *testing.T) {
	t.Parallel()

	surface := newStripedSurface(10, 5000)
	sink := &recordingSink{}

	if _, err := Paginate(context.Background(), surface, sliceGeometry, sink); err != nil {
		t.Fatalf("Paginate() error: %v", err)
	}

	for _, e := range sink.events {
		if e.kind != "place" {
			continue
		}
		img, err := png.Decode(bytes.NewReader(e.png))
		if err != nil {
			t.Fatalf("slice %d is not a PNG: %v", e.at.Index+1, err)
		}
		b := img.Bounds()
		if b.Dx() != 10 || b.Dy() != e.at.HeightPx {
			t.Errorf("slice %d is %dx%d, want 10x%d", e.at.Index+1, b.Dx(), b.Dy(), e.at.HeightPx)
		}
		// First row of each slice carries its source row index
		r, _, _, _ := img.At(b.Min.X, b.Min.Y).RGBA()
		if got, want := uint8(r>>8), uint8(e.at.OffsetPx%256); got != want {
			t.Errorf("slice %d first row red = %d, want %d", e.at.Index+1, got, want)
		}
	}
}

func TestPaginate_CaptureSequence(t *testing.T) {
	t.Parallel()

	surface := newStripedSurface(10, 100)
	if _, err := Paginate(context.Background(), surface, sliceGeometry, &recordingSink{}); err != nil {
		t.Fatalf("Paginate() error: %v", err)
	}

	if got := strings.Join(surface.calls, ","); got != "bounds,settle,capture" {
		t.Errorf("surface calls = %s, want bounds,settle,capture", got)
	}
	if surface.captureOpts.Scale != CaptureScale {
		t.Errorf("capture scale = %v, want %v", surface.captureOpts.Scale, CaptureScale)
	}
	if r, g, b, a := surface.captureOpts.Background.RGBA(); r != 0xffff || g != 0xffff || b != 0xffff || a != 0xffff {
		t.Errorf("capture background = %v, want opaque white", surface.captureOpts.Background)
	}
}

func TestPaginate_NonZeroOrigin(t *testing.T) {
	t.Parallel()

	base := newStripedSurface(10, 3000)
	sub := base.img.(*image.RGBA).SubImage(image.Rect(0, 500, 10, 3000))
	surface := &fakeSurface{bounds: SurfaceBounds{Width: 5, Height: 1250}, img: sub}

	doc, err := Paginate(context.Background(), surface, sliceGeometry, &recordingSink{})
	if err != nil {
		t.Fatalf("Paginate() error: %v", err)
	}
	if len(doc.Pages) != 2 || doc.Pages[0].HeightPx != 2000 || doc.Pages[1].HeightPx != 500 {
		t.Errorf("pages = %+v, want [2000 500]", doc.Pages)
	}
}

// ---------------------------------------------------------------------------
// TestPaginate - Failures
// ---------------------------------------------------------------------------

func TestPaginate_Preconditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		surface *fakeSurface
	}{
		{name: "zero height", surface: &fakeSurface{bounds: SurfaceBounds{Width: 400, Height: 0}}},
		{name: "negative height", surface: &fakeSurface{bounds: SurfaceBounds{Width: 400, Height: -1}}},
		{name: "zero width", surface: &fakeSurface{bounds: SurfaceBounds{Width: 0, Height: 400}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sink := &recordingSink{}
			doc, err := Paginate(context.Background(), tt.surface, sliceGeometry, sink)
			if !errors.Is(err, ErrPreconditionViolation) {
				t.Fatalf("error = %v, want ErrPreconditionViolation", err)
			}
			if doc != nil {
				t.Error("document returned on precondition failure")
			}
			for _, c := range tt.surface.calls {
				if c == "settle" || c == "capture" {
					t.Errorf("surface %s called before precondition check", c)
				}
			}
			if len(sink.events) != 0 || sink.outputs != 0 {
				t.Error("sink touched on precondition failure")
			}
		})
	}
}

func TestPaginate_EmptyCapture(t *testing.T) {
	t.Parallel()

	surface := &fakeSurface{
		bounds: SurfaceBounds{Width: 5, Height: 5},
		img:    image.NewRGBA(image.Rect(0, 0, 10, 0)),
	}

	_, err := Paginate(context.Background(), surface, sliceGeometry, &recordingSink{})
	if !errors.Is(err, ErrPreconditionViolation) {
		t.Errorf("error = %v, want ErrPreconditionViolation", err)
	}
}

func TestPaginate_NilArguments(t *testing.T) {
	t.Parallel()

	if _, err := Paginate(context.Background(), nil, sliceGeometry, &recordingSink{}); !errors.Is(err, ErrPreconditionViolation) {
		t.Errorf("nil surface: error = %v, want ErrPreconditionViolation", err)
	}
	if _, err := Paginate(context.Background(), newStripedSurface(1, 1), sliceGeometry, nil); !errors.Is(err, ErrPreconditionViolation) {
		t.Errorf("nil sink: error = %v, want ErrPreconditionViolation", err)
	}
}

func TestPaginate_InvalidGeometry(t *testing.T) {
	t.Parallel()

	geometry := PageGeometry{Width: 20, Height: 20, Margin: 10}
	surface := newStripedSurface(10, 10)

	_, err := Paginate(context.Background(), surface, geometry, &recordingSink{})
	if !errors.Is(err, ErrInvalidMargin) {
		t.Errorf("error = %v, want ErrInvalidMargin", err)
	}
	if len(surface.calls) != 0 {
		t.Errorf("surface used with invalid geometry: %v", surface.calls)
	}
}

func TestPaginate_CanvasUnavailable(t *testing.T) {
	t.Parallel()

	// Second slice canvas fails: no document, no Output.
	calls := 0
	p := &Paginator{
		newCanvas: func(w, h int) (draw.Image, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("out of raster memory")
			}
			return image.NewRGBA(image.Rect(0, 0, w, h)), nil
		},
	}

	sink := &recordingSink{}
	doc, err := p.Paginate(context.Background(), newStripedSurface(10, 5000), sliceGeometry, sink)
	if !errors.Is(err, ErrRenderContextUnavailable) {
		t.Fatalf("error = %v, want ErrRenderContextUnavailable", err)
	}
	if doc != nil {
		t.Error("partial document returned")
	}
	if sink.outputs != 0 {
		t.Error("sink finalized after canvas failure")
	}
	if !strings.Contains(err.Error(), "slice 2") {
		t.Errorf("error %q should name the failing slice", err)
	}
}

func TestPaginate_CanvasLimits(t *testing.T) {
	t.Parallel()

	// 40000 px wide capture exceeds the per-dimension canvas limit.
	surface := &fakeSurface{
		bounds: SurfaceBounds{Width: 20000, Height: 1},
		img:    image.NewRGBA(image.Rect(0, 0, 40000, 1)),
	}

	_, err := Paginate(context.Background(), surface, sliceGeometry, &recordingSink{})
	if !errors.Is(err, ErrRenderContextUnavailable) {
		t.Errorf("error = %v, want ErrRenderContextUnavailable", err)
	}
}

func TestNewSliceCanvas(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		w, h    int
		wantErr bool
	}{
		{name: "small", w: 10, h: 10},
		{name: "max dimension", w: maxCanvasDimension, h: 1},
		{name: "zero width", w: 0, h: 10, wantErr: true},
		{name: "zero height", w: 10, h: 0, wantErr: true},
		{name: "too wide", w: maxCanvasDimension + 1, h: 1, wantErr: true},
		{name: "too tall", w: 1, h: maxCanvasDimension + 1, wantErr: true},
		{name: "area", w: 20000, h: 20000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := newSliceCanvas(tt.w, tt.h)
			if (err != nil) != tt.wantErr {
				t.Errorf("newSliceCanvas(%d, %d) error = %v, wantErr %v", tt.w, tt.h, err, tt.wantErr)
			}
		})
	}
}

func TestPaginate_SurfaceErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	tests := []struct {
		name    string
		surface *fakeSurface
	}{
		{name: "bounds", surface: &fakeSurface{boundsErr: boom}},
		{name: "settle", surface: &fakeSurface{bounds: SurfaceBounds{Width: 1, Height: 1}, settleErr: boom}},
		{name: "capture", surface: &fakeSurface{bounds: SurfaceBounds{Width: 1, Height: 1}, captureErr: boom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Paginate(context.Background(), tt.surface, sliceGeometry, &recordingSink{})
			if !errors.Is(err, ErrCapture) {
				t.Errorf("error = %v, want ErrCapture", err)
			}
		})
	}
}

func TestPaginate_ExpiredContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	surface := &fakeSurface{bounds: SurfaceBounds{Width: 1, Height: 1}, captureErr: context.Canceled}

	_, err := Paginate(ctx, surface, sliceGeometry, &recordingSink{})
	if !errors.Is(err, ErrRenderContextUnavailable) {
		t.Errorf("error = %v, want ErrRenderContextUnavailable", err)
	}
}

func TestPaginate_SinkErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	tests := []struct {
		name string
		sink *recordingSink
	}{
		{name: "add page", sink: &recordingSink{addErr: boom}},
		{name: "place image", sink: &recordingSink{placeErr: boom}},
		{name: "output", sink: &recordingSink{outputErr: boom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := Paginate(context.Background(), newStripedSurface(10, 5000), sliceGeometry, tt.sink)
			if !errors.Is(err, ErrPDFGeneration) {
				t.Errorf("error = %v, want ErrPDFGeneration", err)
			}
			if doc != nil {
				t.Error("document returned on sink failure")
			}
		})
	}
}

func TestExportState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state ExportState
		want  string
	}{
		{StateIdle, "idle"},
		{StateCapturing, "capturing"},
		{StateSlicing, "slicing"},
		{StateFinalized, "finalized"},
		{ExportState(42), "ExportState(42)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("ExportState(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
