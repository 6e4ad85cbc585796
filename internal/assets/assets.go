package assets

// Names of the built-in assets.
const (
	DefaultStyle    = "brief"
	PreviewTemplate = "preview"
)

// Loader resolves stylesheets and page templates by bare name.
type Loader interface {
	LoadStyle(name string) (string, error)
	LoadTemplate(name string) (string, error)
}

var defaultLoader = NewEmbeddedLoader()

// LoadStyle loads an embedded CSS style by name.
func LoadStyle(name string) (string, error) {
	return defaultLoader.LoadStyle(name)
}

// LoadTemplate loads an embedded HTML template by name.
func LoadTemplate(name string) (string, error) {
	return defaultLoader.LoadTemplate(name)
}

// Styles lists the embedded style names.
func Styles() []string {
	return defaultLoader.Styles()
}
