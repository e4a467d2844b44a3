package assemble

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/baterdene/nomtran/internal/book"
)

func renderTestEPUB(t *testing.T, doc *book.Document) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	if err := renderEPUB(doc, &buf); err != nil {
		t.Fatalf("renderEPUB: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("output is not a zip archive: %v", err)
	}
	return zr
}

func readEntry(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(data)
	}
	t.Fatalf("archive has no entry %s", name)
	return ""
}

func sampleDoc() *book.Document {
	return &book.Document{
		Title: "Test_Book",
		Blocks: []book.Block{
			{Page: 1, Type: book.Heading, Content: []book.Span{
				{SourceText: "Chapter One", TargetText: "Нэгдүгээр бүлэг"},
			}},
			{Page: 1, Type: book.Paragraph, Content: []book.Span{
				{SourceText: "First sentence.", TargetText: "Эхний өгүүлбэр."},
				{SourceText: "Second sentence."},
			}},
			{Page: 2, Type: book.Heading, Content: []book.Span{
				{SourceText: "Chapter Two", TargetText: "Хоёрдугаар бүлэг"},
			}},
			{Page: 2, Type: book.Paragraph, Content: []book.Span{
				{SourceText: "More text.", TargetText: "Өөр текст."},
			}},
		},
	}
}

func TestRenderEPUB_Structure(t *testing.T) {
	zr := renderTestEPUB(t, sampleDoc())

	// mimetype must be the first entry, stored uncompressed.
	first := zr.File[0]
	if first.Name != "mimetype" {
		t.Errorf("first entry = %q, want mimetype", first.Name)
	}
	if first.Method != zip.Store {
		t.Error("mimetype entry must be stored, not deflated")
	}
	if got := readEntry(t, zr, "mimetype"); got != "application/epub+zip" {
		t.Errorf("mimetype = %q", got)
	}

	for _, required := range []string{
		"META-INF/container.xml",
		"OEBPS/content.opf",
		"OEBPS/nav.xhtml",
		"OEBPS/toc.ncx",
		"OEBPS/styles/style.css",
		"OEBPS/chap_0.xhtml",
		"OEBPS/chap_1.xhtml",
	} {
		readEntry(t, zr, required)
	}

	opf := readEntry(t, zr, "OEBPS/content.opf")
	if !strings.Contains(opf, "<dc:language>mn</dc:language>") {
		t.Error("package metadata missing Mongolian language")
	}
	if !strings.Contains(opf, "urn:uuid:") {
		t.Error("package identifier is not a urn:uuid")
	}
	if !strings.Contains(opf, "<dc:title>Test Book</dc:title>") {
		t.Error("title underscores not restored to spaces")
	}
}

func TestRenderEPUB_ChaptersSplitAtHeadings(t *testing.T) {
	zr := renderTestEPUB(t, sampleDoc())

	ch0 := readEntry(t, zr, "OEBPS/chap_0.xhtml")
	if !strings.Contains(ch0, "<h1>Нэгдүгээр бүлэг</h1>") {
		t.Error("first chapter missing its heading")
	}
	if !strings.Contains(ch0, "Эхний өгүүлбэр.") {
		t.Error("first chapter missing paragraph text")
	}
	if strings.Contains(ch0, "Өөр текст.") {
		t.Error("second chapter's text leaked into the first")
	}

	ch1 := readEntry(t, zr, "OEBPS/chap_1.xhtml")
	if !strings.Contains(ch1, "<h1>Хоёрдугаар бүлэг</h1>") {
		t.Error("second chapter missing its heading")
	}

	nav := readEntry(t, zr, "OEBPS/nav.xhtml")
	if !strings.Contains(nav, "chap_0.xhtml") || !strings.Contains(nav, "chap_1.xhtml") {
		t.Error("nav does not link both chapters")
	}
}

func TestRenderEPUB_UntranslatedSpanFallsBackToSource(t *testing.T) {
	zr := renderTestEPUB(t, sampleDoc())

	ch0 := readEntry(t, zr, "OEBPS/chap_0.xhtml")
	if !strings.Contains(ch0, "Second sentence.") {
		t.Error("untranslated span must render its source text")
	}
}

func TestRenderEPUB_NoLeadingHeading(t *testing.T) {
	doc := &book.Document{
		Title: "Plain_Book",
		Blocks: []book.Block{
			{Page: 1, Type: book.Paragraph, Content: []book.Span{
				{SourceText: "Starts without a heading.", TargetText: "Гарчиггүй эхэлнэ."},
			}},
		},
	}
	zr := renderTestEPUB(t, doc)

	ch0 := readEntry(t, zr, "OEBPS/chap_0.xhtml")
	if !strings.Contains(ch0, "<h1>Plain Book</h1>") {
		t.Error("headingless document should open a chapter titled after the book")
	}
	if !strings.Contains(ch0, "<p>Гарчиггүй эхэлнэ.</p>") {
		t.Error("paragraph text missing")
	}
}

func TestRenderEPUB_EscapesMarkup(t *testing.T) {
	doc := &book.Document{
		Title: "Escapes",
		Blocks: []book.Block{
			{Type: book.Paragraph, Content: []book.Span{
				{SourceText: "x", TargetText: `Хашилт & <tag> "дотор".`},
			}},
		},
	}
	zr := renderTestEPUB(t, doc)
	ch0 := readEntry(t, zr, "OEBPS/chap_0.xhtml")
	if strings.Contains(ch0, "<tag>") {
		t.Error("raw markup leaked into XHTML")
	}
	if !strings.Contains(ch0, "&amp;") || !strings.Contains(ch0, "&lt;tag&gt;") {
		t.Errorf("escaping missing: %s", ch0)
	}
}

func TestRenderEPUB_EmptyDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := renderEPUB(&book.Document{Title: "Empty"}, &buf); err == nil {
		t.Error("expected error for document with no content")
	}
}
