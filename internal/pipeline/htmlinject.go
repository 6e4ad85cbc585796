package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// ErrPreviewRender indicates the preview page template failed to render.
var ErrPreviewRender = errors.New("preview template rendering failed")

// PreviewData holds everything placed into the preview page.
type PreviewData struct {
	Title         string
	CSS           string
	Body          string // sanitized HTML fragment
	ViewportWidth int    // CSS pixels
}

// PreviewBuilder defines the contract for assembling the page a browser captures.
type PreviewBuilder interface {
	BuildPreview(ctx context.Context, data *PreviewData) (string, error)
}

// PreviewPage renders a brief into a fixed-width preview container.
type PreviewPage struct {
	tmpl *template.Template
}

// NewPreviewPage creates a PreviewPage from template content.
// Returns error if the template cannot be parsed.
func NewPreviewPage(tmplContent string) (*PreviewPage, error) {
	tmpl, err := template.New("preview").Parse(tmplContent)
	if err != nil {
		return nil, fmt.Errorf("parsing preview template: %w", err)
	}
	return &PreviewPage{tmpl: tmpl}, nil
}

// BuildPreview renders a complete HTML document around data.Body.
// Body must already be sanitized; it is inserted as-is. CSS is escaped so it
// cannot close its <style> block.
func (p *PreviewPage) BuildPreview(ctx context.Context, data *PreviewData) (string, error) {
	if data == nil {
		return "", fmt.Errorf("%w: nil data", ErrPreviewRender)
	}
	if data.ViewportWidth <= 0 {
		return "", fmt.Errorf("%w: viewport width must be positive, got %d", ErrPreviewRender, data.ViewportWidth)
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	title := data.Title
	if strings.TrimSpace(title) == "" {
		title = "Revision brief"
	}

	view := struct {
		Title         string
		CSS           template.CSS
		Body          template.HTML
		ViewportWidth int
	}{
		Title:         title,
		CSS:           template.CSS(sanitizeCSS(data.CSS)), // #nosec G203 -- escaped by sanitizeCSS
		Body:          template.HTML(data.Body),            // #nosec G203 -- sanitized upstream
		ViewportWidth: data.ViewportWidth,
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPreviewRender, err)
	}
	return buf.String(), nil
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
