// Package book defines the structural representation of a book as it moves
// through the translation pipeline: an ordered sequence of typed blocks, each
// textual block holding translatable spans. The JSON shape of these types is
// also the training-data interchange format and must stay stable.
package book

import (
	"regexp"
	"strings"
)

// BlockType classifies one structural unit of a book page.
type BlockType string

const (
	Paragraph BlockType = "paragraph"
	Heading   BlockType = "heading"
	Image     BlockType = "image"
	Other     BlockType = "other"
)

// Translatable reports whether blocks of this type carry spans that the
// translation stages may touch.
func (t BlockType) Translatable() bool {
	return t == Paragraph || t == Heading
}

// minTargetRunes is the shortest target text accepted as a real translation.
// Anything shorter is treated as missing and re-queued by the patcher.
const minTargetRunes = 3

// Span is one translatable sentence inside a textual block.
type Span struct {
	SourceText string `json:"source_text"`
	TargetText string `json:"target_text,omitempty"`
}

// Missing reports whether the span still needs a translation.
func (s Span) Missing() bool {
	return len([]rune(strings.TrimSpace(s.TargetText))) < minTargetRunes
}

// Text returns the target text when present, falling back to the source text.
// The assembler renders every span through this method.
func (s Span) Text() string {
	if !s.Missing() {
		return s.TargetText
	}
	return s.SourceText
}

// Block is one structural unit of a page. For textual types Content holds the
// ordered spans; for image blocks Path points at the extracted image payload
// and Content is empty. Block order within a document is reading order and is
// never reordered or dropped by any stage.
type Block struct {
	Page    int       `json:"page"`
	Type    BlockType `json:"type"`
	Content []Span    `json:"content"`
	Path    string    `json:"path,omitempty"`
}

// Translatable reports whether the block carries spans to translate.
func (b Block) Translatable() bool {
	return b.Type.Translatable() && len(b.Content) > 0
}

// Text joins the block's rendered span texts with single spaces.
func (b Block) Text() string {
	parts := make([]string, 0, len(b.Content))
	for _, s := range b.Content {
		if t := s.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// SourceText joins the block's source texts with single spaces.
func (b Block) SourceText() string {
	parts := make([]string, 0, len(b.Content))
	for _, s := range b.Content {
		if s.SourceText != "" {
			parts = append(parts, s.SourceText)
		}
	}
	return strings.Join(parts, " ")
}

// Document is the full per-book structural representation.
type Document struct {
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

// Clone returns a deep copy. Stages that must not corrupt their input on
// partial failure (the refiner in particular) operate on a clone.
func (d *Document) Clone() *Document {
	out := &Document{Title: d.Title, Blocks: make([]Block, len(d.Blocks))}
	for i, b := range d.Blocks {
		nb := b
		if b.Content != nil {
			nb.Content = make([]Span, len(b.Content))
			copy(nb.Content, b.Content)
		}
		out.Blocks[i] = nb
	}
	return out
}

// SpanRef addresses one span by block and span index.
type SpanRef struct {
	Block int
	Span  int
}

// MissingSpans returns references to every untranslated span in reading
// order. Only translatable blocks are inspected.
func (d *Document) MissingSpans() []SpanRef {
	var refs []SpanRef
	for bi, b := range d.Blocks {
		if !b.Type.Translatable() {
			continue
		}
		for si, s := range b.Content {
			if s.Missing() {
				refs = append(refs, SpanRef{Block: bi, Span: si})
			}
		}
	}
	return refs
}

// Complete reports whether every translatable span carries a target text.
func (d *Document) Complete() bool {
	return len(d.MissingSpans()) == 0
}

// SpanCount returns the total number of spans in translatable blocks.
func (d *Document) SpanCount() int {
	n := 0
	for _, b := range d.Blocks {
		if b.Type.Translatable() {
			n += len(b.Content)
		}
	}
	return n
}

var unsafeNameRe = regexp.MustCompile(`[^\w\s-]`)

// SafeName turns a book title into the identifier used for checkpoint and
// artifact file names: non-word characters stripped, spaces collapsed to
// underscores.
func SafeName(title string) string {
	s := unsafeNameRe.ReplaceAllString(title, "")
	s = strings.TrimSpace(s)
	return strings.Join(strings.Fields(s), "_")
}
