package revbrief

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alnah/go-revbrief/internal/assets"
	"github.com/alnah/go-revbrief/internal/fileutil"
	"github.com/alnah/go-revbrief/internal/pipeline"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.MarkdownPreprocessor = (*pipeline.MathNormalizer)(nil)
	_ pipeline.HTMLConverter        = (*pipeline.GoldmarkConverter)(nil)
	_ pipeline.HTMLSanitizer        = (*pipeline.BluemondaySanitizer)(nil)
	_ pipeline.PreviewBuilder       = (*pipeline.PreviewPage)(nil)
)

// defaultTitle is used for the preview page and PDF metadata when Input.Title is empty.
const defaultTitle = "Study cheat sheet"

// Exporter orchestrates the brief-to-PDF pipeline.
// Create with NewExporter, use Export for each brief, and Close when done.
// An Exporter runs one export at a time; use ExporterPool for parallelism.
type Exporter struct {
	cfg            exporterConfig
	preprocessor   pipeline.MarkdownPreprocessor
	htmlConverter  pipeline.HTMLConverter
	sanitizer      pipeline.HTMLSanitizer
	previewBuilder pipeline.PreviewBuilder
	renderer       SurfaceRenderer
	paginator      *Paginator
	newSink        func(geometry PageGeometry, title string) PageSink
	verify         func(pdf []byte, wantPages int) error
}

// NewExporter creates an Exporter with default configuration.
// Use options to customize behavior (e.g., WithTimeout, WithStyle).
// Returns error if the style or preview template cannot be loaded.
func NewExporter(opts ...Option) (*Exporter, error) {
	e := &Exporter{
		cfg: exporterConfig{
			timeout:       defaultTimeout,
			viewportWidth: DefaultViewportWidth,
			logger:        slog.New(slog.DiscardHandler),
		},
		preprocessor:  &pipeline.MathNormalizer{},
		htmlConverter: pipeline.NewGoldmarkConverter(),
		sanitizer:     pipeline.NewBluemondaySanitizer(),
		newSink: func(g PageGeometry, title string) PageSink {
			return newPDFSink(g, title)
		},
		verify: verifyDocument,
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.resolveStyle(); err != nil {
		return nil, err
	}

	tmpl, err := assets.LoadTemplate(assets.PreviewTemplate)
	if err != nil {
		return nil, fmt.Errorf("loading preview template: %w", err)
	}
	e.previewBuilder, err = pipeline.NewPreviewPage(tmpl)
	if err != nil {
		return nil, fmt.Errorf("initializing preview page: %w", err)
	}

	e.paginator = &Paginator{Logger: e.cfg.logger}

	// Create renderer if not injected (e.g., by tests)
	if e.renderer == nil {
		e.renderer = newRodRenderer(e.cfg.timeout, e.cfg.viewportWidth)
	}

	return e, nil
}

// Export runs the full pipeline and returns the normalized markup, the
// preview HTML and the paginated PDF.
// If input.HTMLOnly is true, rendering and pagination are skipped.
// Rendering and capture are bounded by the configured timeout; expiry is
// reported as ErrRenderContextUnavailable. No partial document is returned.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (e *Exporter) Export(ctx context.Context, input Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := validateInput(input); err != nil {
		return nil, err
	}
	geometry, err := input.Page.Geometry()
	if err != nil {
		return nil, err
	}

	markup := e.preprocessor.PreprocessMarkdown(ctx, input.Text)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fragment, err := e.htmlConverter.ToHTML(ctx, markup)
	if err != nil {
		return nil, fmt.Errorf("converting to HTML: %w", err)
	}

	fragment = e.sanitizer.SanitizeHTML(ctx, fragment)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Style first, caller CSS last so it can override
	css := e.cfg.resolvedStyle
	if input.CSS != "" {
		css += "\n" + input.CSS
	}

	title := input.Title
	if strings.TrimSpace(title) == "" {
		title = defaultTitle
	}

	page, err := e.previewBuilder.BuildPreview(ctx, &pipeline.PreviewData{
		Title:         title,
		CSS:           css,
		Body:          fragment,
		ViewportWidth: e.cfg.viewportWidth,
	})
	if err != nil {
		return nil, fmt.Errorf("building preview: %w", err)
	}

	res := &Result{Markup: markup, HTML: []byte(page)}

	if input.HTMLOnly {
		return res, nil
	}

	doc, err := e.rasterize(ctx, page, geometry, title)
	if err != nil {
		return nil, err
	}

	res.Document = doc
	return res, nil
}

// rasterize renders the preview page and paginates it into a verified PDF.
func (e *Exporter) rasterize(ctx context.Context, page string, geometry PageGeometry, title string) (*Document, error) {
	renderCtx, cancel := context.WithTimeout(ctx, e.cfg.timeout)
	defer cancel()

	surface, err := e.renderer.Render(renderCtx, page)
	if err != nil {
		if renderCtx.Err() != nil && !errors.Is(err, ErrRenderContextUnavailable) {
			return nil, fmt.Errorf("%w: rendering brief: %v", ErrRenderContextUnavailable, err)
		}
		return nil, fmt.Errorf("rendering brief: %w", err)
	}
	defer func() {
		if cerr := surface.Close(); cerr != nil {
			e.cfg.logger.Warn("closing surface", "error", cerr)
		}
	}()

	doc, err := e.paginator.Paginate(renderCtx, surface, geometry, e.newSink(geometry, title))
	if err != nil {
		return nil, fmt.Errorf("paginating brief: %w", err)
	}

	if err := e.verify(doc.PDF, len(doc.Pages)); err != nil {
		return nil, err
	}

	e.cfg.logger.Info("export finished", "pages", len(doc.Pages), "bytes", len(doc.PDF))
	return doc, nil
}

// Close releases resources (headless Chrome browser).
func (e *Exporter) Close() error {
	if e.renderer != nil {
		return e.renderer.Close()
	}
	return nil
}

// resolveStyle resolves the style input (name, path, or CSS content) to CSS content.
// Called during NewExporter after options are applied.
func (e *Exporter) resolveStyle() error {
	input := e.cfg.styleInput
	if input == "" {
		input = assets.DefaultStyle
	}

	// File path? (contains / or \)
	if fileutil.IsFilePath(input) {
		content, err := os.ReadFile(input) // #nosec G304 -- user-provided path
		if err != nil {
			return fmt.Errorf("%w: loading style file %q: %v", ErrStyleNotFound, input, err)
		}
		e.cfg.resolvedStyle = string(content)
		return nil
	}

	// CSS content? (contains {)
	if fileutil.IsCSS(input) {
		e.cfg.resolvedStyle = input
		return nil
	}

	css, err := assets.LoadStyle(input)
	if err != nil {
		return fmt.Errorf("%w: %q (available: %s)", ErrStyleNotFound, input, strings.Join(assets.Styles(), ", "))
	}
	e.cfg.resolvedStyle = css
	return nil
}

// validateInput checks that required fields are present and valid.
//
// This is a TRUST BOUNDARY for direct library users who build Input manually.
// CLI users have their input validated earlier by Config.Validate() at config load time.
func validateInput(input Input) error {
	if strings.TrimSpace(input.Text) == "" {
		return ErrEmptyText
	}
	return input.Page.Validate()
}
