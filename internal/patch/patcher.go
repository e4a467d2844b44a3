// Package patch fills the holes a translation pass left behind. It is the
// pipeline's only retry mechanism for failed batches: the translator never
// retries in-stage, it just leaves spans empty for the patcher.
package patch

import (
	"context"
	"log/slog"

	"github.com/baterdene/nomtran/internal/book"
	"github.com/baterdene/nomtran/internal/language"
	"github.com/baterdene/nomtran/internal/translate"
)

// Patcher re-translates exactly the spans that are missing a translation.
// With a verifier configured, spans whose target text is in the wrong
// language are treated as missing too.
type Patcher struct {
	translator *translate.Translator
	verifier   *language.Verifier
}

// New creates a Patcher that delegates the actual endpoint calls to
// translator. verifier may be nil to skip language verification.
func New(translator *translate.Translator, verifier *language.Verifier) *Patcher {
	return &Patcher{translator: translator, verifier: verifier}
}

// Run returns a document with previously missing spans translated, plus the
// number of spans it patched. When nothing is missing this is a no-op that
// issues zero endpoint calls and returns the input unchanged. A returned
// error means some spans are still missing; the document remains valid.
func (p *Patcher) Run(ctx context.Context, doc *book.Document) (*book.Document, int, error) {
	work := doc.Clone()

	invalidated := 0
	if p.verifier != nil {
		for bi := range work.Blocks {
			b := &work.Blocks[bi]
			if !b.Type.Translatable() {
				continue
			}
			for si := range b.Content {
				s := &b.Content[si]
				if !s.Missing() && !p.verifier.Valid(s.TargetText) {
					s.TargetText = ""
					invalidated++
				}
			}
		}
	}

	missing := len(work.MissingSpans())
	if missing == 0 {
		return doc, 0, nil
	}

	slog.Info("patching missing translations",
		"book", doc.Title, "missing", missing, "wrong_language", invalidated)

	out, err := p.translator.Run(ctx, work)
	patched := missing - len(out.MissingSpans())

	if patched > 0 {
		slog.Info("patched", "book", doc.Title, "spans", patched)
	}
	return out, patched, err
}
