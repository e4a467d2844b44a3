package assemble

import (
	"io"
	"log/slog"
	"os"

	"github.com/jung-kurt/gofpdf"

	"github.com/baterdene/nomtran/internal/book"
)

const (
	pageMarginMM   = 15
	imageLeftMM    = 20
	imageWidthMM   = 170
	headingSizePt  = 14
	paragraphSizePt = 11
)

// renderPDF writes the document as a PDF to w.
func renderPDF(doc *book.Document, fonts Fonts, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")

	family := "Helvetica"
	boldStyle := "B"
	if fonts.Regular != "" {
		family = "NomtranSans"
		pdf.AddUTF8Font(family, "", fonts.Regular)
		if fonts.Bold != "" {
			pdf.AddUTF8Font(family, "B", fonts.Bold)
		} else {
			// No bold face available: headings reuse the regular face.
			boldStyle = ""
		}
	} else {
		slog.Warn("no UTF-8 font configured, Cyrillic text will not render", "book", doc.Title)
	}

	pdf.SetAutoPageBreak(true, pageMarginMM)
	pdf.SetHeaderFunc(func() {
		pdf.SetFont(family, "", 8)
		pdf.CellFormat(0, 10, "English-Mongolian Translation", "", 0, "C", false, 0, "")
		pdf.Ln(12)
	})
	pdf.AddPage()

	for _, b := range doc.Blocks {
		switch b.Type {
		case book.Image:
			embedImage(pdf, b.Path)
		case book.Heading:
			pdf.SetFont(family, boldStyle, headingSizePt)
			pdf.MultiCell(0, 10, b.Text(), "", "C", false)
			pdf.Ln(5)
		default:
			text := b.Text()
			if text == "" {
				continue
			}
			pdf.SetFont(family, "", paragraphSizePt)
			pdf.MultiCell(0, 7, text, "", "L", false)
			pdf.Ln(2)
		}
	}

	return pdf.Output(w)
}

// embedImage places an extracted image payload at the current position,
// full content width. A missing or unreadable image is skipped so one bad
// payload cannot sink the whole book.
func embedImage(pdf *gofpdf.Fpdf, path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		slog.Warn("image payload missing, skipping", "path", path)
		return
	}
	pdf.ImageOptions(path, imageLeftMM, 0, imageWidthMM, 0, true,
		gofpdf.ImageOptions{ReadDpi: true}, 0, "")
	if pdf.Err() {
		slog.Warn("image embed failed, skipping", "path", path, "error", pdf.Error())
		pdf.ClearError()
	}
	pdf.Ln(5)
}
