package revbrief

import "errors"

// Sentinel errors for library operations.
var (
	// ErrRenderContextUnavailable means a slice raster surface could not be
	// created, or the render deadline expired. No partial document is returned.
	ErrRenderContextUnavailable = errors.New("render context unavailable")

	// ErrPreconditionViolation means the surface is empty or otherwise unusable.
	// Reported before any capture.
	ErrPreconditionViolation = errors.New("surface precondition violated")

	ErrEmptyText     = errors.New("brief text cannot be empty")
	ErrPDFGeneration = errors.New("PDF generation failed")

	// Browser errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrCapture        = errors.New("surface capture failed")

	// Page settings validation errors.
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidMargin      = errors.New("invalid margin")

	// Asset loading errors.
	ErrStyleNotFound = errors.New("style not found")
)
