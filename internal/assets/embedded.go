package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed styles/*.css
var styles embed.FS

//go:embed templates/*.html
var templates embed.FS

// EmbeddedLoader serves the styles and templates compiled into the binary.
type EmbeddedLoader struct{}

// NewEmbeddedLoader creates an EmbeddedLoader.
func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{}
}

// LoadStyle returns the embedded stylesheet called name.
func (e *EmbeddedLoader) LoadStyle(name string) (string, error) {
	return readAsset(styles, "styles", name, ".css", ErrStyleNotFound)
}

// LoadTemplate returns the embedded HTML template called name.
func (e *EmbeddedLoader) LoadTemplate(name string) (string, error) {
	return readAsset(templates, "templates", name, ".html", ErrTemplateNotFound)
}

// Styles returns the embedded style names, sorted.
func (e *EmbeddedLoader) Styles() []string {
	entries, err := fs.ReadDir(styles, "styles")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), ".css"))
	}
	sort.Strings(names)
	return names
}

// readAsset loads dir/name+ext from fsys. Names are bare identifiers:
// separators and dots are refused so a name cannot leave dir or change ext.
func readAsset(fsys fs.FS, dir, name, ext string, notFound error) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\.") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}

	content, err := fs.ReadFile(fsys, path.Join(dir, name+ext))
	if err != nil {
		return "", fmt.Errorf("%w: %q", notFound, name)
	}
	return string(content), nil
}

var _ Loader = (*EmbeddedLoader)(nil)
