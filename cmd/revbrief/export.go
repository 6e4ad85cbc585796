package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	revbrief "github.com/alnah/go-revbrief"
	"github.com/alnah/go-revbrief/internal/assets"
	"github.com/alnah/go-revbrief/internal/config"
	"github.com/alnah/go-revbrief/internal/fileutil"
	"github.com/alnah/go-revbrief/internal/hints"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput      = errors.New("no input specified")
	ErrReadCSS      = errors.New("failed to read CSS file")
	ErrReadBrief    = errors.New("failed to read brief")
	ErrWritePDF     = errors.New("failed to write PDF file")
	ErrWriteHTML    = errors.New("failed to write HTML file")
	ErrExporterInit = errors.New("failed to initialize exporter")
)

// Status lines printed after an export run.
const (
	statusSuccess = "Formatted PDF downloaded successfully."
	statusFailure = "PDF download failed."
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// ExportResult holds the outcome of a single export.
type ExportResult struct {
	InputPath  string
	OutputPath string
	Pages      int
	Err        error
	Duration   time.Duration
}

// exportParams groups parameters shared across a batch.
type exportParams struct {
	title      string
	css        string
	page       *revbrief.PageSettings
	keepHTML   bool
	htmlOnly   bool
	sourceWait time.Duration
}

// runExport orchestrates the export command.
func runExport(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseExportFlags(args)
	if err != nil {
		return err
	}
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	cfg, err := loadConfig(flags.common.config, env)
	if err != nil {
		return err
	}
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(env.Stderr, flags.common, slog.LevelWarn)

	extraCSS, err := readExtraCSS(flags.css)
	if err != nil {
		return err
	}

	jobs, err := resolveJobs(positional, flags, cfg)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("%w: no .txt, .md or .markdown files found", ErrNoInput)
	}

	params := &exportParams{
		title:      cfg.Export.Title,
		css:        extraCSS,
		page:       pageSettingsFrom(cfg),
		keepHTML:   cfg.Export.KeepHTML,
		htmlOnly:   flags.outputMode.htmlOnly,
		sourceWait: cfg.SourceTimeout(),
	}

	pool := env.NewPool(revbrief.ResolvePoolSize(cfg.Export.Workers), exporterOptions(cfg, logger)...)
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Warn("closing exporter pool", "error", cerr)
		}
	}()
	logger.Debug("export started", "jobs", len(jobs), "workers", pool.Size())

	results := exportBatch(ctx, pool, jobs, params)

	failed := printResults(results, flags.common, env)
	if failed > 0 {
		fmt.Fprintln(env.Stderr, statusFailure)
		if len(results) == 1 {
			return results[0].Err
		}
		return fmt.Errorf("%d export(s) failed", failed)
	}
	if !flags.common.quiet && !params.htmlOnly {
		fmt.Fprintln(env.Stdout, statusSuccess)
	}
	return nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(flags *exportFlags, cfg *config.Config) {
	if flags.output != "" {
		cfg.Output.DefaultDir = flags.output
	}
	if flags.workers > 0 {
		cfg.Export.Workers = flags.workers
	}
	if flags.timeout != "" {
		cfg.Export.Timeout = flags.timeout
	}
	if flags.title != "" {
		cfg.Export.Title = flags.title
	}
	if flags.style != "" {
		cfg.Style.Name = flags.style
	}
	if flags.page.size != "" {
		cfg.Page.Size = flags.page.size
	}
	if flags.page.orientation != "" {
		cfg.Page.Orientation = flags.page.orientation
	}
	if flags.page.margin != marginUnset {
		cfg.Page.Margin = flags.page.margin
	}
	if flags.source.apiURL != "" {
		cfg.Source.BaseURL = flags.source.apiURL
	}
	if flags.outputMode.html {
		cfg.Export.KeepHTML = true
	}
}

// exporterOptions translates config into exporter options.
func exporterOptions(cfg *config.Config, logger *slog.Logger) []revbrief.Option {
	opts := []revbrief.Option{
		revbrief.WithStyle(cfg.Style.Name),
		revbrief.WithLogger(logger),
	}
	if d := cfg.ExportTimeout(); d > 0 {
		opts = append(opts, revbrief.WithTimeout(d))
	}
	return opts
}

// pageSettingsFrom builds page settings from config. Validation happens in
// the exporter so both CLI and server report the same sentinel errors.
func pageSettingsFrom(cfg *config.Config) *revbrief.PageSettings {
	return &revbrief.PageSettings{
		Size:        strings.ToLower(cfg.Page.Size),
		Orientation: strings.ToLower(cfg.Page.Orientation),
		Margin:      cfg.Page.Margin,
	}
}

// readExtraCSS reads the --css file, if any.
func readExtraCSS(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	content, err := os.ReadFile(path) // #nosec G304 -- user-provided path
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadCSS, err)
	}
	return string(content), nil
}

// exportBatch processes jobs concurrently using the exporter pool.
func exportBatch(ctx context.Context, pool Pool, jobs []BriefJob, params *exportParams) []ExportResult {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(jobs))

	results := make([]ExportResult, len(jobs))
	var wg sync.WaitGroup
	queue := make(chan int, len(jobs))

	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()

			exp, err := pool.Acquire()
			if err != nil {
				// Exporter creation failed, mark remaining jobs as failed
				for idx := range queue {
					results[idx] = ExportResult{
						InputPath: jobs[idx].Name,
						Err:       fmt.Errorf("%w: %w", ErrExporterInit, err),
					}
				}
				return
			}
			defer pool.Release(exp)

			for idx := range queue {
				if ctx.Err() != nil {
					results[idx] = ExportResult{
						InputPath: jobs[idx].Name,
						Err:       ctx.Err(),
					}
					continue
				}
				results[idx] = exportOne(ctx, exp, jobs[idx], params)
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)

	wg.Wait()
	return results
}

// exportOne fetches, exports and writes a single brief.
func exportOne(ctx context.Context, exp BriefExporter, job BriefJob, params *exportParams) ExportResult {
	start := time.Now()
	result := ExportResult{
		InputPath:  job.Name,
		OutputPath: job.OutputPath,
	}
	fail := func(err error) ExportResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	text, err := fetchBrief(ctx, job, params.sourceWait)
	if err != nil {
		return fail(err)
	}

	if err := os.MkdirAll(filepath.Dir(job.OutputPath), dirPermissions); err != nil {
		return fail(fmt.Errorf("creating output directory: %w%s", err, hints.ForOutputDirectory()))
	}

	res, err := exp.Export(ctx, revbrief.Input{
		Text:     text,
		Title:    params.title,
		CSS:      params.css,
		Page:     params.page,
		HTMLOnly: params.htmlOnly,
	})
	if err != nil {
		return fail(withHint(err))
	}

	// Write HTML output if requested (--html or --html-only)
	if params.htmlOnly || params.keepHTML {
		htmlPath := htmlOutputPath(job.OutputPath)
		// #nosec G306 -- HTML files are meant to be readable
		if err := fileutil.WriteFileAtomic(htmlPath, res.HTML, filePermissions); err != nil {
			return fail(fmt.Errorf("%w: %v", ErrWriteHTML, err))
		}
		if params.htmlOnly {
			result.OutputPath = htmlPath
			result.Duration = time.Since(start)
			return result
		}
	}

	// #nosec G306 -- PDFs are meant to be readable
	if err := fileutil.WriteFileAtomic(job.OutputPath, res.Document.PDF, filePermissions); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrWritePDF, err))
	}

	result.Pages = len(res.Document.Pages)
	result.Duration = time.Since(start)
	return result
}

// fetchBrief asks the job's source for text, bounded by wait when positive.
func fetchBrief(ctx context.Context, job BriefJob, wait time.Duration) (string, error) {
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	text, err := job.Source.GenerateBrief(ctx, job.DocumentIDs)
	if err != nil {
		var apiErr *revbrief.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w%s", err, hints.ForSource())
		}
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return "", fmt.Errorf("%w: %w", ErrReadBrief, err)
		}
		return "", err
	}
	return text, nil
}

// withHint appends an actionable hint for well-known export failures.
func withHint(err error) error {
	switch {
	case errors.Is(err, revbrief.ErrBrowserConnect):
		return fmt.Errorf("%w%s", err, hints.ForBrowserConnect(revbrief.ResolveBrowserLaunch(os.Getenv).NoSandbox))
	case errors.Is(err, revbrief.ErrPreconditionViolation):
		return fmt.Errorf("%w%s", err, hints.ForEmptySurface())
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w%s", err, hints.ForTimeout())
	case errors.Is(err, revbrief.ErrRenderContextUnavailable):
		return fmt.Errorf("%w%s%s", err, hints.ForRenderContext(), hints.ForTimeout())
	case errors.Is(err, revbrief.ErrStyleNotFound):
		return fmt.Errorf("%w%s", err, hints.ForStyleNotFound(assets.Styles()))
	}
	return err
}

// ResultSummary holds the count of succeeded and failed exports.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed exports.
func countResults(results []ExportResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResults outputs export results and returns the failure count.
func printResults(results []ExportResult, common commonFlags, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			continue
		}

		if common.quiet {
			continue
		}

		if common.verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d pages, %v)\n", r.InputPath, r.OutputPath, r.Pages, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !common.quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary.Failed
}
