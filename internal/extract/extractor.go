// Package extract turns a source PDF into the structural document the rest
// of the pipeline operates on: one block per detected structural unit, text
// healed and split into sentence spans, images preserved as opaque payloads.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/baterdene/nomtran/internal/book"
	"github.com/baterdene/nomtran/internal/segment"
)

const (
	// headingSizeRatio: a block whose largest font exceeds the page average
	// by this factor is a heading.
	headingSizeRatio = 1.25
	// headingMaxRunes: bold text longer than this is emphasis, not a heading.
	headingMaxRunes = 200
	// blockGapRatio: a vertical gap larger than this multiple of the font
	// size starts a new block.
	blockGapRatio = 1.8
)

// Extractor builds structural documents from PDFs.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Run extracts title's structural document from the PDF at path. Image
// payloads are written under imagesDir and referenced from image blocks.
// An unparseable PDF or one yielding zero blocks is an ExtractionError.
func (e *Extractor) Run(ctx context.Context, path, title, imagesDir string) (*book.Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, &book.ExtractionError{Book: title, Err: fmt.Errorf("failed to open PDF: %w", err)}
	}
	defer f.Close()

	// Image extraction is best effort: a book without recoverable images is
	// still translatable.
	imagesByPage, imgErr := extractImages(path, imagesDir)
	if imgErr != nil {
		slog.Warn("image extraction failed, continuing without images",
			"book", title, "error", imgErr)
	}

	doc := &book.Document{Title: title}
	totalPages := r.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, &book.ExtractionError{Book: title, Err: err}
		}
		if pageNum%50 == 1 {
			slog.Debug("extracting", "book", title, "page", pageNum, "pages", totalPages)
		}

		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			slog.Warn("failed to read page text", "book", title, "page", pageNum, "error", err)
			continue
		}

		doc.Blocks = append(doc.Blocks, pageBlocks(rows, pageNum)...)

		for _, imgPath := range imagesByPage[pageNum] {
			doc.Blocks = append(doc.Blocks, book.Block{
				Page: pageNum,
				Type: book.Image,
				Path: imgPath,
			})
		}
	}

	if len(doc.Blocks) == 0 {
		return nil, &book.ExtractionError{Book: title, Err: fmt.Errorf("PDF yielded no structural blocks")}
	}

	slog.Info("extracted", "book", title, "pages", totalPages, "blocks", len(doc.Blocks))
	return doc, nil
}

// line is one text row condensed to what block grouping needs.
type line struct {
	text    string
	y       float64
	maxSize float64
	bold    bool
}

// pageBlocks groups a page's text rows into typed blocks. Rows merge into
// the current block until a large vertical gap or a font-size class change
// starts a new one.
func pageBlocks(rows pdf.Rows, pageNum int) []book.Block {
	lines, avgSize := collectLines(rows)
	if len(lines) == 0 {
		return nil
	}

	var blocks []book.Block
	var cur []line

	flush := func() {
		if b, ok := buildBlock(cur, avgSize, pageNum); ok {
			blocks = append(blocks, b)
		}
		cur = nil
	}

	for _, ln := range lines {
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			gap := prev.y - ln.y
			if gap > prev.maxSize*blockGapRatio || headingClass(ln, avgSize) != headingClass(prev, avgSize) {
				flush()
			}
		}
		cur = append(cur, ln)
	}
	flush()

	return blocks
}

// collectLines flattens rows into lines and computes the page's average font
// size, the baseline for heading detection.
func collectLines(rows pdf.Rows) ([]line, float64) {
	var lines []line
	var sizeSum float64
	var sizeCount int

	for _, row := range rows {
		var sb strings.Builder
		ln := line{y: float64(row.Position)}
		for _, t := range row.Content {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			sb.WriteString(t.S)
			if t.FontSize > ln.maxSize {
				ln.maxSize = t.FontSize
			}
			if strings.Contains(strings.ToLower(t.Font), "bold") {
				ln.bold = true
			}
			sizeSum += t.FontSize
			sizeCount++
		}
		ln.text = sb.String()
		if strings.TrimSpace(ln.text) == "" {
			continue
		}
		lines = append(lines, ln)
	}

	avg := 11.0
	if sizeCount > 0 {
		avg = sizeSum / float64(sizeCount)
	}
	return lines, avg
}

func headingClass(ln line, avgSize float64) bool {
	return ln.maxSize > avgSize*headingSizeRatio
}

// buildBlock merges lines into one block, heals the text, and splits it into
// sentence spans. Returns false when nothing translatable remains.
func buildBlock(lines []line, avgSize float64, pageNum int) (book.Block, bool) {
	if len(lines) == 0 {
		return book.Block{}, false
	}

	var parts []string
	var maxSize float64
	bold := false
	for _, ln := range lines {
		parts = append(parts, ln.text)
		if ln.maxSize > maxSize {
			maxSize = ln.maxSize
		}
		bold = bold || ln.bold
	}

	text := segment.Heal(strings.Join(parts, " "))
	if text == "" {
		return book.Block{}, false
	}

	blockType := book.Paragraph
	if maxSize > avgSize*headingSizeRatio || (bold && len([]rune(text)) < headingMaxRunes) {
		blockType = book.Heading
	}

	sentences := segment.SplitSentences(text)
	if len(sentences) == 0 {
		return book.Block{}, false
	}

	spans := make([]book.Span, len(sentences))
	for i, s := range sentences {
		spans[i] = book.Span{SourceText: s}
	}
	return book.Block{Page: pageNum, Type: blockType, Content: spans}, true
}
