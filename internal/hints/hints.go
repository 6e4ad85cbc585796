// Package hints provides actionable error hints for common export failures.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-revbrief/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// InCI reports whether a well-known CI environment variable is set.
func InCI() bool {
	for _, k := range ciVars {
		if os.Getenv(k) != "" {
			return true
		}
	}
	return false
}

var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// ForBrowserConnect returns hints for browser launch or connection errors.
// sandboxDisabled reports whether the launch already ran Chrome without its
// sandbox.
func ForBrowserConnect(sandboxDisabled bool) string {
	var hints []string

	if (InCI() || IsInContainer()) && !sandboxDisabled {
		hints = append(hints, "set CI=true or ROD_BROWSER_BIN to start Chrome without its sandbox")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing the export timeout.
func ForTimeout() string {
	return format("for long briefs, use --timeout or REVBRIEF_TIMEOUT")
}

// ForRenderContext returns a hint for slice canvases that could not be allocated.
func ForRenderContext() string {
	return format("the captured brief exceeds raster limits; reduce the margin, use a larger page, or split the brief")
}

// ForEmptySurface returns a hint for briefs that rendered to nothing.
func ForEmptySurface() string {
	return format("the brief rendered with zero height; check that the input is not only whitespace")
}

// ForConfigNotFound returns hints for config file not found errors.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, "go-revbrief") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForSource returns hints for brief generation API failures.
func ForSource() string {
	return format("check --api-url or REVBRIEF_API_URL and that the document IDs exist")
}

// ForStyleNotFound lists the available embedded styles.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
