package assemble

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baterdene/nomtran/internal/book"
)

// chapter groups the blocks between two headings into one EPUB spine entry.
type chapter struct {
	id     string
	title  string
	body   string // inner XHTML
	images []string
}

// renderEPUB writes the document as an EPUB 3.0 archive to w. Chapters split
// at heading blocks; the first block opens a chapter regardless of type.
func renderEPUB(doc *book.Document, w io.Writer) error {
	chapters := splitChapters(doc)
	if len(chapters) == 0 {
		return fmt.Errorf("document has no renderable content")
	}

	zw := zip.NewWriter(w)
	defer zw.Close()

	// mimetype must be the first entry and stored uncompressed.
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return err
	}
	if _, err := mt.Write([]byte("application/epub+zip")); err != nil {
		return err
	}

	files := map[string]string{
		"META-INF/container.xml": containerXML,
		"OEBPS/styles/style.css": stylesheet,
	}

	bookID := uuid.New().String()
	files["OEBPS/content.opf"] = packageOPF(doc, chapters, bookID)
	files["OEBPS/nav.xhtml"] = navXHTML(doc, chapters)
	files["OEBPS/toc.ncx"] = tocNCX(doc, chapters, bookID)
	for _, ch := range chapters {
		files[fmt.Sprintf("OEBPS/%s.xhtml", ch.id)] = chapterXHTML(ch)
	}

	for name, content := range files {
		f, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := f.Write([]byte(content)); err != nil {
			return err
		}
	}

	// Image payloads, copied verbatim into the archive.
	for _, ch := range chapters {
		for _, img := range ch.images {
			if err := copyImage(zw, img); err != nil {
				slog.Warn("failed to embed epub image, skipping", "path", img, "error", err)
			}
		}
	}

	return zw.Close()
}

// splitChapters walks the block sequence and opens a new chapter at every
// heading. Image blocks attach to the current chapter at their position.
func splitChapters(doc *book.Document) []chapter {
	var chapters []chapter
	var cur *chapter

	open := func(title string) {
		chapters = append(chapters, chapter{
			id:    fmt.Sprintf("chap_%d", len(chapters)),
			title: title,
		})
		cur = &chapters[len(chapters)-1]
		cur.body = fmt.Sprintf("  <h1>%s</h1>\n", escapeXML(title))
	}

	for _, b := range doc.Blocks {
		if b.Type == book.Heading {
			title := b.Text()
			if title == "" {
				title = "Chapter"
			}
			open(title)
			continue
		}
		if cur == nil {
			open(strings.ReplaceAll(doc.Title, "_", " "))
		}
		switch {
		case b.Type == book.Image:
			if b.Path != "" {
				cur.images = append(cur.images, b.Path)
				cur.body += imageTag(b.Path)
			}
		default:
			if text := b.Text(); text != "" {
				cur.body += fmt.Sprintf("  <p>%s</p>\n", escapeXML(text))
			}
		}
	}
	return chapters
}

func imageTag(path string) string {
	return fmt.Sprintf("  <div><img src=\"images/%s\" alt=\"\"/></div>\n", escapeXML(filepath.Base(path)))
}

func copyImage(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.Create("OEBPS/images/" + filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const stylesheet = `body { font-family: serif; line-height: 1.5; margin: 5%; }
h1 { text-align: center; margin: 1em 0; }
p { text-indent: 1.2em; margin: 0 0 0.3em 0; }
img { max-width: 100%; }
`

func packageOPF(doc *book.Document, chapters []chapter, bookID string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="pub-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
`)
	fmt.Fprintf(&sb, "    <dc:identifier id=\"pub-id\">urn:uuid:%s</dc:identifier>\n", bookID)
	fmt.Fprintf(&sb, "    <dc:title>%s</dc:title>\n", escapeXML(strings.ReplaceAll(doc.Title, "_", " ")))
	sb.WriteString("    <dc:language>mn</dc:language>\n")
	fmt.Fprintf(&sb, "    <meta property=\"dcterms:modified\">%s</meta>\n",
		time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	sb.WriteString("  </metadata>\n  <manifest>\n")
	sb.WriteString("    <item id=\"nav\" href=\"nav.xhtml\" media-type=\"application/xhtml+xml\" properties=\"nav\"/>\n")
	sb.WriteString("    <item id=\"ncx\" href=\"toc.ncx\" media-type=\"application/x-dtbncx+xml\"/>\n")
	sb.WriteString("    <item id=\"style\" href=\"styles/style.css\" media-type=\"text/css\"/>\n")
	for _, ch := range chapters {
		fmt.Fprintf(&sb, "    <item id=\"%s\" href=\"%s.xhtml\" media-type=\"application/xhtml+xml\"/>\n", ch.id, ch.id)
	}
	seen := map[string]bool{}
	imgIdx := 0
	for _, ch := range chapters {
		for _, img := range ch.images {
			base := filepath.Base(img)
			if seen[base] {
				continue
			}
			seen[base] = true
			fmt.Fprintf(&sb, "    <item id=\"img_%d\" href=\"images/%s\" media-type=\"%s\"/>\n",
				imgIdx, escapeXML(base), imageMediaType(base))
			imgIdx++
		}
	}
	sb.WriteString("  </manifest>\n  <spine toc=\"ncx\">\n")
	for _, ch := range chapters {
		fmt.Fprintf(&sb, "    <itemref idref=\"%s\"/>\n", ch.id)
	}
	sb.WriteString("  </spine>\n</package>\n")
	return sb.String()
}

func imageMediaType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

func navXHTML(doc *book.Document, chapters []chapter) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
  <title>`)
	sb.WriteString(escapeXML(doc.Title))
	sb.WriteString(`</title>
  <link rel="stylesheet" type="text/css" href="styles/style.css"/>
</head>
<body>
  <nav epub:type="toc" id="toc">
    <h1>Гарчиг</h1>
    <ol>
`)
	for _, ch := range chapters {
		fmt.Fprintf(&sb, "      <li><a href=\"%s.xhtml\">%s</a></li>\n", ch.id, escapeXML(ch.title))
	}
	sb.WriteString(`    </ol>
  </nav>
</body>
</html>
`)
	return sb.String()
}

func tocNCX(doc *book.Document, chapters []chapter, bookID string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head>
    <meta name="dtb:uid" content="urn:uuid:`)
	sb.WriteString(bookID)
	sb.WriteString(`"/>
    <meta name="dtb:depth" content="1"/>
    <meta name="dtb:totalPageCount" content="0"/>
    <meta name="dtb:maxPageNumber" content="0"/>
  </head>
  <docTitle><text>`)
	sb.WriteString(escapeXML(doc.Title))
	sb.WriteString(`</text></docTitle>
  <navMap>
`)
	for i, ch := range chapters {
		fmt.Fprintf(&sb, "    <navPoint id=\"navpoint-%d\" playOrder=\"%d\">\n", i+1, i+1)
		fmt.Fprintf(&sb, "      <navLabel><text>%s</text></navLabel>\n", escapeXML(ch.title))
		fmt.Fprintf(&sb, "      <content src=\"%s.xhtml\"/>\n", ch.id)
		sb.WriteString("    </navPoint>\n")
	}
	sb.WriteString("  </navMap>\n</ncx>\n")
	return sb.String()
}

func chapterXHTML(ch chapter) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="mn">
<head>
  <title>`)
	sb.WriteString(escapeXML(ch.title))
	sb.WriteString(`</title>
  <link rel="stylesheet" type="text/css" href="styles/style.css"/>
</head>
<body>
`)
	sb.WriteString(ch.body)
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
