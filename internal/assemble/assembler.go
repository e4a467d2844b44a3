// Package assemble renders a fully translated document into the final book
// artifacts: a PDF and an EPUB. Every span is rendered through its
// target-else-source fallback, blocks stay in reading order, and image
// payloads are embedded at their original positions.
package assemble

import (
	"bytes"
	"log/slog"

	"github.com/baterdene/nomtran/internal/book"
	"github.com/baterdene/nomtran/internal/checkpoint"
)

// Fonts points at the UTF-8 TTF files used for PDF output. Mongolian
// Cyrillic needs a font with Cyrillic coverage; Noto Sans is the usual
// choice. Empty paths fall back to the built-in Helvetica, which renders
// Latin fallback text only.
type Fonts struct {
	Regular string
	Bold    string
}

// Assembler renders final artifacts.
type Assembler struct {
	fonts Fonts
}

// New creates an Assembler using the given fonts.
func New(fonts Fonts) *Assembler {
	return &Assembler{fonts: fonts}
}

// Run renders doc to pdfPath and epubPath. Both files are written atomically
// so a crash mid-render never leaves a partial artifact behind. The document
// is not mutated. Failures are RenderErrors, terminal for this book only.
func (a *Assembler) Run(doc *book.Document, pdfPath, epubPath string) error {
	var pdfBuf bytes.Buffer
	if err := renderPDF(doc, a.fonts, &pdfBuf); err != nil {
		return &book.RenderError{Book: doc.Title, Format: "pdf", Err: err}
	}
	if err := checkpoint.WriteFileAtomic(pdfPath, pdfBuf.Bytes()); err != nil {
		return &book.RenderError{Book: doc.Title, Format: "pdf", Err: err}
	}
	slog.Info("rendered pdf", "book", doc.Title, "path", pdfPath, "bytes", pdfBuf.Len())

	var epubBuf bytes.Buffer
	if err := renderEPUB(doc, &epubBuf); err != nil {
		return &book.RenderError{Book: doc.Title, Format: "epub", Err: err}
	}
	if err := checkpoint.WriteFileAtomic(epubPath, epubBuf.Bytes()); err != nil {
		return &book.RenderError{Book: doc.Title, Format: "epub", Err: err}
	}
	slog.Info("rendered epub", "book", doc.Title, "path", epubPath, "bytes", epubBuf.Len())

	return nil
}
