package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-revbrief/internal/config"
)

// envPrefix marks environment variables read by revbrief.
const envPrefix = "REVBRIEF_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string        // REVBRIEF_CONFIG: config file path
	Style      string        // REVBRIEF_STYLE: style name, CSS path, or inline CSS
	Timeout    time.Duration // REVBRIEF_TIMEOUT: render timeout

	// Tier 2 - I/O and source
	InputDir  string // REVBRIEF_INPUT_DIR: default input directory
	OutputDir string // REVBRIEF_OUTPUT_DIR: default output directory
	APIURL    string // REVBRIEF_API_URL: brief generation API base URL

	// Tier 3 - Extended
	PageSize string  // REVBRIEF_PAGE_SIZE: a4, letter, legal
	Margin   float64 // REVBRIEF_MARGIN: margin in mm
	Workers  int     // REVBRIEF_WORKERS: parallel workers
}

// knownEnvVars lists valid REVBRIEF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"REVBRIEF_CONFIG":  true,
	"REVBRIEF_STYLE":   true,
	"REVBRIEF_TIMEOUT": true,
	// Tier 2 - I/O and source
	"REVBRIEF_INPUT_DIR":  true,
	"REVBRIEF_OUTPUT_DIR": true,
	"REVBRIEF_API_URL":    true,
	// Tier 3 - Extended
	"REVBRIEF_PAGE_SIZE": true,
	"REVBRIEF_MARGIN":    true,
	"REVBRIEF_WORKERS":   true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numeric values are ignored, as if the variable were unset.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("REVBRIEF_CONFIG"),
		Style:      os.Getenv("REVBRIEF_STYLE"),
		InputDir:   os.Getenv("REVBRIEF_INPUT_DIR"),
		OutputDir:  os.Getenv("REVBRIEF_OUTPUT_DIR"),
		APIURL:     os.Getenv("REVBRIEF_API_URL"),
		PageSize:   os.Getenv("REVBRIEF_PAGE_SIZE"),
		Margin:     -1,
	}

	if timeout := os.Getenv("REVBRIEF_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if margin := os.Getenv("REVBRIEF_MARGIN"); margin != "" {
		if m, err := strconv.ParseFloat(margin, 64); err == nil && m >= 0 {
			cfg.Margin = m
		}
	}

	if workers := os.Getenv("REVBRIEF_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized REVBRIEF_* variables.
// Helps catch typos like REVBRIEF_WORKER instead of REVBRIEF_WORKERS.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// A value is only applied where the config still holds its default, so a
// config file wins over the environment.
// This ensures: CLI flags > config file > env vars > defaults
// (CLI flags are applied later via mergeFlags)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	def := config.DefaultConfig()

	// Tier 1
	if env.Style != "" && cfg.Style.Name == def.Style.Name {
		cfg.Style.Name = env.Style
	}
	if env.Timeout > 0 && cfg.Export.Timeout == def.Export.Timeout {
		cfg.Export.Timeout = env.Timeout.String()
	}

	// Tier 2
	if env.InputDir != "" && cfg.Input.DefaultDir == "" {
		cfg.Input.DefaultDir = env.InputDir
	}
	if env.OutputDir != "" && cfg.Output.DefaultDir == "" {
		cfg.Output.DefaultDir = env.OutputDir
	}
	if env.APIURL != "" && cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = env.APIURL
	}

	// Tier 3
	if env.PageSize != "" && cfg.Page.Size == def.Page.Size {
		cfg.Page.Size = env.PageSize
	}
	if env.Margin >= 0 && cfg.Page.Margin == def.Page.Margin {
		cfg.Page.Margin = env.Margin
	}
	if env.Workers > 0 && cfg.Export.Workers == def.Export.Workers {
		cfg.Export.Workers = env.Workers
	}
}
