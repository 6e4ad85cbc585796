// Package config loads and validates revbrief YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-revbrief/internal/fileutil"
	"github.com/alnah/go-revbrief/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// appDirName is the directory under os.UserConfigDir searched for named configs.
const appDirName = "go-revbrief"

// Field length limits.
const (
	MaxPathLength        = 4096
	MaxURLLength         = 2048
	MaxTitleLength       = 200
	MaxPageSizeLength    = 10
	MaxOrientationLength = 10
	MaxStyleLength       = 4096
	MaxAddrLength        = 256
)

// Margin bounds in millimeters.
const (
	MinMarginMM = 0.0
	MaxMarginMM = 50.0
)

// MaxWorkers caps the workers setting; each worker owns a Chrome instance.
const MaxWorkers = 32

// Config holds all configuration for brief export.
type Config struct {
	Input  InputConfig  `yaml:"input"`
	Output OutputConfig `yaml:"output"`
	Page   PageConfig   `yaml:"page"`
	Style  StyleConfig  `yaml:"style"`
	Export ExportConfig `yaml:"export"`
	Source SourceConfig `yaml:"source"`
	Server ServerConfig `yaml:"server"`
}

// InputConfig defines where briefs are read from.
type InputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // empty = must be given on the command line
}

// OutputConfig defines where PDFs are written.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // empty = next to the source file
}

// PageConfig defines the output page geometry.
type PageConfig struct {
	Size        string  `yaml:"size"`        // "a4", "letter", "legal"
	Orientation string  `yaml:"orientation"` // "portrait", "landscape"
	Margin      float64 `yaml:"margin"`      // millimeters, all four sides
}

// StyleConfig selects the preview stylesheet.
type StyleConfig struct {
	Name string `yaml:"name"` // embedded style name, CSS file path, or inline CSS
}

// ExportConfig tunes the export run.
type ExportConfig struct {
	Title    string `yaml:"title"`   // PDF metadata title
	Timeout  string `yaml:"timeout"` // Go duration, e.g. "45s"
	Workers  int    `yaml:"workers"` // 0 = auto
	KeepHTML bool   `yaml:"keepHTML"`
}

// SourceConfig points at the brief generation API.
type SourceConfig struct {
	BaseURL string `yaml:"baseURL"`
	Timeout string `yaml:"timeout"`
}

// ServerConfig configures `revbrief serve`.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes"`
}

// Validate checks values that would otherwise fail deep inside an export.
// Called by LoadConfig; available to callers that build a Config by hand.
func (c *Config) Validate() error {
	checks := []struct {
		field string
		value string
		max   int
	}{
		{"input.defaultDir", c.Input.DefaultDir, MaxPathLength},
		{"output.defaultDir", c.Output.DefaultDir, MaxPathLength},
		{"page.size", c.Page.Size, MaxPageSizeLength},
		{"page.orientation", c.Page.Orientation, MaxOrientationLength},
		{"style.name", c.Style.Name, MaxStyleLength},
		{"export.title", c.Export.Title, MaxTitleLength},
		{"source.baseURL", c.Source.BaseURL, MaxURLLength},
		{"server.addr", c.Server.Addr, MaxAddrLength},
	}
	for _, ch := range checks {
		if err := validateFieldLength(ch.field, ch.value, ch.max); err != nil {
			return err
		}
	}

	if c.Page.Size != "" {
		switch strings.ToLower(c.Page.Size) {
		case "a4", "letter", "legal":
		default:
			return fmt.Errorf("%w: page.size %q (must be a4, letter, or legal)", ErrInvalidValue, c.Page.Size)
		}
	}
	if c.Page.Orientation != "" {
		switch strings.ToLower(c.Page.Orientation) {
		case "portrait", "landscape":
		default:
			return fmt.Errorf("%w: page.orientation %q (must be portrait or landscape)", ErrInvalidValue, c.Page.Orientation)
		}
	}
	if c.Page.Margin < MinMarginMM || c.Page.Margin > MaxMarginMM {
		return fmt.Errorf("%w: page.margin %.2f (must be between %.0f and %.0f mm)", ErrInvalidValue, c.Page.Margin, MinMarginMM, MaxMarginMM)
	}
	if c.Export.Workers < 0 || c.Export.Workers > MaxWorkers {
		return fmt.Errorf("%w: export.workers %d (must be between 0 and %d)", ErrInvalidValue, c.Export.Workers, MaxWorkers)
	}
	if err := validateDuration("export.timeout", c.Export.Timeout); err != nil {
		return err
	}
	if err := validateDuration("source.timeout", c.Source.Timeout); err != nil {
		return err
	}
	if c.Source.BaseURL != "" && !fileutil.IsURL(c.Source.BaseURL) {
		return fmt.Errorf("%w: source.baseURL %q (must start with http:// or https://)", ErrInvalidValue, c.Source.BaseURL)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: server.maxBodyBytes must not be negative", ErrInvalidValue)
	}
	return nil
}

// ExportTimeout returns the parsed export timeout, or 0 when unset.
// Validate has already rejected malformed values.
func (c *Config) ExportTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Export.Timeout)
	return d
}

// SourceTimeout returns the parsed source timeout, or 0 when unset.
func (c *Config) SourceTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Source.Timeout)
	return d
}

func validateDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrInvalidValue, field, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidValue, field, value)
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given:
// A4 portrait with a 10 mm margin and the embedded "brief" style.
func DefaultConfig() *Config {
	return &Config{
		Page: PageConfig{
			Size:        "a4",
			Orientation: "portrait",
			Margin:      10,
		},
		Style:  StyleConfig{Name: "brief"},
		Export: ExportConfig{Timeout: "30s"},
		Source: SourceConfig{Timeout: "2m"},
		Server: ServerConfig{Addr: ":8080", MaxBodyBytes: 1 << 20},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Keys missing from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.DecodeStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Marshal renders cfg as YAML, for `revbrief config init`.
func Marshal(cfg *Config) ([]byte, error) {
	return yamlutil.Encode(cfg)
}

// SearchPaths lists where a named config is looked up, in priority order.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, appDirName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing path from SearchPaths.
func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
