package main

import (
	"errors"
	"os"

	revbrief "github.com/alnah/go-revbrief"
	"github.com/alnah/go-revbrief/internal/config"
)

// Exit codes for the revbrief CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful export
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser, capture, or rasterization errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser and render errors (exit 4)
	if errors.Is(err, revbrief.ErrBrowserConnect) ||
		errors.Is(err, revbrief.ErrPageCreate) ||
		errors.Is(err, revbrief.ErrPageLoad) ||
		errors.Is(err, revbrief.ErrCapture) ||
		errors.Is(err, revbrief.ErrRenderContextUnavailable) ||
		errors.Is(err, revbrief.ErrPreconditionViolation) ||
		errors.Is(err, revbrief.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadBrief) ||
		errors.Is(err, ErrReadCSS) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrWriteHTML) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, revbrief.ErrEmptyText) ||
		errors.Is(err, revbrief.ErrNoDocuments) ||
		errors.Is(err, revbrief.ErrInvalidPageSize) ||
		errors.Is(err, revbrief.ErrInvalidOrientation) ||
		errors.Is(err, revbrief.ErrInvalidMargin) ||
		errors.Is(err, revbrief.ErrStyleNotFound) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	return ExitGeneral
}
