// Package revbrief exports generated revision briefs as paginated PDFs.
//
// # Quick Start
//
// Create an exporter, export a brief, and close when done:
//
//	exp, err := revbrief.NewExporter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exp.Close()
//
//	result, err := exp.Export(ctx, revbrief.Input{
//	    Text: "Kinetic Energy: (1/2 * m * v^2)\nF = ma",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(result.Document.Name, result.Document.PDF, 0644)
//
// # Export Pipeline
//
//  1. Math normalization: formula-like lines become $$ display math
//  2. Markdown to HTML via Goldmark (GFM, highlighting, MathML)
//  3. Sanitization and preview page assembly
//  4. Rendering in headless Chrome (go-rod) and capture at 2x on white
//  5. Pagination: the capture is cut into page-height slices placed on
//     fixed-size PDF pages (gofpdf), then checked with pdfcpu
//
// Use Input.HTMLOnly to stop after step 3.
//
// # Pagination
//
// Paginate works on any Surface, so it can be driven without a browser:
//
//	doc, err := revbrief.Paginate(ctx, surface, revbrief.DefaultGeometry(), sink)
//
// The horizontal scale from captured pixels to millimetres is computed once
// per export. Slices never overlap and their heights sum to the captured
// height.
//
// # Parallel Processing
//
// For batch exports, use ExporterPool to manage multiple browser instances:
//
//	pool := revbrief.NewExporterPool(revbrief.ResolvePoolSize(0))
//	defer pool.Close()
//
//	exp, err := pool.Acquire()
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(exp)
//
// # Errors
//
// Errors wrap the sentinels in errors.go; test with errors.Is.
// ErrRenderContextUnavailable and ErrPreconditionViolation abort an export
// with no partial document.
package revbrief
