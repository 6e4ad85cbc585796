package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	revbrief "github.com/alnah/go-revbrief"
	"github.com/alnah/go-revbrief/internal/config"
	"github.com/alnah/go-revbrief/internal/fileutil"
)

// Sentinel errors for input discovery.
var (
	ErrInvalidExtension   = errors.New("file must have .txt, .md or .markdown extension")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// BriefJob is a single brief to export.
type BriefJob struct {
	Name        string // shown in results: a file path or "api:<ids>"
	OutputPath  string
	Source      revbrief.BriefSource
	DocumentIDs []string
}

// resolveJobs builds the job list from --doc-ids or from files on disk.
func resolveJobs(args []string, flags *exportFlags, cfg *config.Config) ([]BriefJob, error) {
	if len(flags.source.docIDs) > 0 {
		if len(args) > 0 {
			return nil, fmt.Errorf("%w: --doc-ids cannot be combined with input files", ErrUsage)
		}
		return apiJobs(flags.source.docIDs, cfg)
	}

	inputPath, err := resolveInputPath(args, cfg)
	if err != nil {
		return nil, err
	}
	return discoverBriefs(inputPath, cfg.Output.DefaultDir)
}

// apiJobs returns the single job that generates a brief remotely.
func apiJobs(ids []string, cfg *config.Config) ([]BriefJob, error) {
	if cfg.Source.BaseURL == "" {
		return nil, fmt.Errorf("%w: --doc-ids needs --api-url, REVBRIEF_API_URL or source.baseURL", ErrUsage)
	}

	out := cfg.Output.DefaultDir
	switch {
	case out == "":
		out = revbrief.DefaultDocumentName
	case !strings.HasSuffix(strings.ToLower(out), ".pdf"):
		out = filepath.Join(out, revbrief.DefaultDocumentName)
	}

	return []BriefJob{{
		Name:        "api:" + strings.Join(ids, ","),
		OutputPath:  out,
		Source:      revbrief.NewHTTPSource(cfg.Source.BaseURL, nil, cfg.SourceTimeout()),
		DocumentIDs: ids,
	}}, nil
}

// resolveInputPath determines the input path from args or config.
func resolveInputPath(args []string, cfg *config.Config) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.Input.DefaultDir != "" {
		return cfg.Input.DefaultDir, nil
	}
	return "", ErrNoInput
}

// discoverBriefs finds all brief files to export.
func discoverBriefs(inputPath, outputDir string) ([]BriefJob, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadBrief, err)
	}

	if !info.IsDir() {
		if err := validateBriefExtension(inputPath); err != nil {
			return nil, err
		}
		return []BriefJob{fileJob(inputPath, resolveOutputPath(inputPath, outputDir, ""))}, nil
	}

	var jobs []BriefJob
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() || !fileutil.IsBriefFile(path) {
			return nil
		}
		jobs = append(jobs, fileJob(path, resolveOutputPath(path, outputDir, inputPath)))
		return nil
	})

	return jobs, err
}

func fileJob(path, out string) BriefJob {
	return BriefJob{
		Name:       path,
		OutputPath: out,
		Source:     &revbrief.FileSource{Path: path},
	}
}

// resolveOutputPath determines the PDF output path for a brief file.
// Directory inputs keep their relative layout under outputDir.
func resolveOutputPath(inputPath, outputDir, baseInputDir string) string {
	if outputDir == "" {
		return fileutil.PDFPathFor(inputPath, "")
	}

	if strings.HasSuffix(strings.ToLower(outputDir), ".pdf") {
		return outputDir
	}

	if baseInputDir != "" {
		relPath, err := filepath.Rel(baseInputDir, inputPath)
		if err == nil {
			return fileutil.PDFPathFor(inputPath, filepath.Join(outputDir, filepath.Dir(relPath)))
		}
	}

	return fileutil.PDFPathFor(inputPath, outputDir)
}

// validateBriefExtension checks that the file has an accepted brief extension.
func validateBriefExtension(path string) error {
	if !fileutil.IsBriefFile(path) {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, filepath.Ext(path))
	}
	return nil
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > revbrief.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, revbrief.MaxPoolSize)
	}
	return nil
}

// htmlOutputPath returns the HTML path corresponding to a PDF path.
func htmlOutputPath(pdfPath string) string {
	return strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".html"
}
