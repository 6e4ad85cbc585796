package revbrief

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfSink places slices on fixed-size pages with gofpdf.
type pdfSink struct {
	pdf *gofpdf.Fpdf
}

// Compile-time interface check.
var _ PageSink = (*pdfSink)(nil)

// newPDFSink creates a document in millimetres holding one empty page.
func newPDFSink(geometry PageGeometry, title string) *pdfSink {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: geometry.Width, Ht: geometry.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("go-revbrief", true)
	if title != "" {
		pdf.SetTitle(title, true)
	}
	pdf.AddPage()

	return &pdfSink{pdf: pdf}
}

// AddPage starts a new page of the document's size.
func (s *pdfSink) AddPage() error {
	s.pdf.AddPage()
	return s.pdf.Error()
}

// PlaceImage registers the PNG under a per-slice name and draws it at the placement.
func (s *pdfSink) PlaceImage(pngData []byte, at PagePlacement) error {
	name := "slice-" + strconv.Itoa(at.Index)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}

	s.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(pngData))
	if err := s.pdf.Error(); err != nil {
		return err
	}

	s.pdf.ImageOptions(name, at.X, at.Y, at.W, at.H, false, opts, 0, "")
	return s.pdf.Error()
}

// Output closes the document and returns its bytes.
func (s *pdfSink) Output() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var disablePDFConfigDir sync.Once

// verifyDocument parses the PDF with pdfcpu and checks it has exactly the
// expected number of pages.
func verifyDocument(pdf []byte, wantPages int) error {
	disablePDFConfigDir.Do(api.DisableConfigDir)

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), model.NewDefaultConfiguration())
	if err != nil {
		return fmt.Errorf("%w: validating output: %v", ErrPDFGeneration, err)
	}
	if ctx.PageCount != wantPages {
		return fmt.Errorf("%w: output has %d pages, want %d", ErrPDFGeneration, ctx.PageCount, wantPages)
	}
	return nil
}
