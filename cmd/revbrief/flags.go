package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// ErrUsage wraps flag parsing failures so they map to ExitUsage.
var ErrUsage = errors.New("invalid usage")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pageFlags holds page layout flags.
type pageFlags struct {
	size        string
	orientation string
	margin      float64
}

// marginUnset detects if --margin was explicitly set; 0 is a valid margin.
const marginUnset = -1.0

// sourceFlags select the brief generation API instead of local files.
type sourceFlags struct {
	docIDs []string
	apiURL string
}

// outputFlags holds output mode flags for debugging.
type outputFlags struct {
	html     bool // write the preview HTML alongside the PDF
	htmlOnly bool // write the preview HTML only, skip the PDF
}

// exportFlags holds all flags for the export command.
type exportFlags struct {
	common     commonFlags
	output     string
	workers    int
	timeout    string
	title      string
	style      string
	css        string
	page       pageFlags
	source     sourceFlags
	outputMode outputFlags
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common  commonFlags
	addr    string
	workers int
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs and timing")
}

// addPageFlags adds page layout flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.size, "page-size", "p", "", "page size: a4, letter, legal")
	fs.StringVar(&f.orientation, "orientation", "", "page orientation: portrait, landscape")
	fs.Float64Var(&f.margin, "margin", marginUnset, "page margin in mm (0-50)")
}

// addSourceFlags adds brief generation API flags to a FlagSet.
func addSourceFlags(fs *flag.FlagSet, f *sourceFlags) {
	fs.StringSliceVar(&f.docIDs, "doc-ids", nil, "generate the brief from these document IDs")
	fs.StringVar(&f.apiURL, "api-url", "", "brief generation API base URL")
}

// addOutputFlags adds output mode flags to a FlagSet.
func addOutputFlags(fs *flag.FlagSet, f *outputFlags) {
	fs.BoolVar(&f.html, "html", false, "write preview HTML alongside PDF")
	fs.BoolVar(&f.htmlOnly, "html-only", false, "write preview HTML only, skip PDF")
}

// newFlagSet returns a quiet FlagSet; usage is printed by the caller.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// buildExportFlagSet declares the export flags on a new FlagSet.
func buildExportFlagSet(f *exportFlags) *flag.FlagSet {
	fs := newFlagSet("export")

	// I/O flags
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "render timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.title, "title", "", "PDF metadata title")
	fs.StringVar(&f.style, "style", "", "style name, CSS file path, or inline CSS")
	fs.StringVar(&f.css, "css", "", "extra CSS file appended after the style")

	// Flag groups
	addCommonFlags(fs, &f.common)
	addPageFlags(fs, &f.page)
	addSourceFlags(fs, &f.source)
	addOutputFlags(fs, &f.outputMode)

	return fs
}

// parseExportFlags parses export command flags and returns positional args.
func parseExportFlags(args []string) (*exportFlags, []string, error) {
	f := &exportFlags{}
	fs := buildExportFlagSet(f)
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string) (*serveFlags, error) {
	fs := newFlagSet("serve")
	f := &serveFlags{}

	fs.StringVar(&f.addr, "addr", "", "listen address (default from config, :8080)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel exports (0 = auto)")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: serve takes no arguments, got %s", ErrUsage, strings.Join(fs.Args(), " "))
	}
	return f, nil
}

// parseCommonOnly parses commands that accept only the common flags.
func parseCommonOnly(name string, args []string) (*commonFlags, []string, error) {
	fs := newFlagSet(name)
	f := &commonFlags{}
	addCommonFlags(fs, f)
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return f, fs.Args(), nil
}
