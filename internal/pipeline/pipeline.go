// Package pipeline drives one book at a time through extraction,
// translation, patching, refinement, and assembly. Books are strictly
// sequential: book N+1 never starts before book N is assembled or failed,
// which is what guarantees that a crash leaves every earlier book fully
// rendered on disk rather than half the library half-done.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/baterdene/nomtran/internal/assemble"
	"github.com/baterdene/nomtran/internal/book"
	"github.com/baterdene/nomtran/internal/checkpoint"
	"github.com/baterdene/nomtran/internal/extract"
	"github.com/baterdene/nomtran/internal/patch"
	"github.com/baterdene/nomtran/internal/refine"
	"github.com/baterdene/nomtran/internal/translate"
)

// Pipeline owns the stage implementations and the checkpoint store.
type Pipeline struct {
	store      *checkpoint.Store
	extractor  *extract.Extractor
	translator *translate.Translator
	patcher    *patch.Patcher
	refiner    *refine.Refiner
	assembler  *assemble.Assembler
}

// New assembles a Pipeline from its stages.
func New(store *checkpoint.Store, extractor *extract.Extractor, translator *translate.Translator,
	patcher *patch.Patcher, refiner *refine.Refiner, assembler *assemble.Assembler) *Pipeline {
	return &Pipeline{
		store:      store,
		extractor:  extractor,
		translator: translator,
		patcher:    patcher,
		refiner:    refiner,
		assembler:  assembler,
	}
}

// Result is the outcome of one book.
type Result struct {
	Book  string
	State State
	Err   error
}

// Run processes the given source PDFs in order, one book completely before
// the next. A book's failure never halts the run; the error lands in that
// book's Result. Cancelling ctx stops before the next book starts.
func (p *Pipeline) Run(ctx context.Context, pdfPaths []string) []Result {
	results := make([]Result, 0, len(pdfPaths))

	for i, path := range pdfPaths {
		if ctx.Err() != nil {
			break
		}
		title := BookTitle(path)
		slog.Info("starting book", "book", title, "index", i+1, "total", len(pdfPaths))

		state, err := p.runBook(ctx, path, title)
		if err != nil {
			slog.Error("book did not complete", "book", title, "state", state, "error", err)
		} else {
			slog.Info("book complete", "book", title, "state", state)
		}
		results = append(results, Result{Book: title, State: state, Err: err})
	}

	return results
}

// BookTitle derives the book identifier from its source path.
func BookTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// runBook resumes a single book from its highest valid checkpoint and runs
// the remaining stages in order. Extraction and render failures are terminal
// (Failed); incomplete translation leaves the book at Translated for a later
// run to patch.
func (p *Pipeline) runBook(ctx context.Context, path, title string) (State, error) {
	cp := p.store.Book(title)

	// Clear out debris from interrupted runs so Resolve sees only real
	// checkpoints.
	for _, k := range []checkpoint.Kind{checkpoint.Extracted, checkpoint.Translated, checkpoint.Refined, checkpoint.Final} {
		cp.Sweep(k)
	}

	state := Resolve(cp)
	if state == Assembled {
		slog.Info("already assembled, skipping", "book", title)
		return Assembled, nil
	}
	slog.Info("resuming", "book", title, "state", state)

	var doc *book.Document
	var err error

	if state < Extracted {
		doc, err = p.extractor.Run(ctx, path, title, cp.ImagesDir())
		if err != nil {
			return Failed, err
		}
		if err := cp.WriteDoc(checkpoint.Extracted, doc); err != nil {
			return Failed, err
		}
		state = Extracted
	}

	if state < Translated {
		if doc == nil {
			if doc, err = cp.ReadDoc(checkpoint.Extracted); err != nil {
				return Failed, err
			}
		}
		doc, err = p.translator.Run(ctx, doc)
		if err != nil {
			// Soft failure: untranslated spans wait for the patcher.
			slog.Warn("translation incomplete", "book", title, "error", err)
		}
		if err := cp.WriteDoc(checkpoint.Translated, doc); err != nil {
			return Failed, err
		}
		state = Translated
	}

	if state < Refined {
		if doc == nil {
			if doc, err = cp.ReadDoc(checkpoint.Translated); err != nil {
				return Failed, err
			}
		}

		patched, patchedCount, patchErr := p.patcher.Run(ctx, doc)
		if patchedCount > 0 {
			if err := cp.WriteDoc(checkpoint.Translated, patched); err != nil {
				return Failed, err
			}
		}
		doc = patched
		if missing := len(doc.MissingSpans()); missing > 0 {
			// Never refine or assemble an incomplete document. The book
			// stays at Translated; the next run patches again.
			cause := fmt.Errorf("%d spans still untranslated", missing)
			if patchErr != nil {
				cause = fmt.Errorf("%d spans still untranslated: %w", missing, patchErr)
			}
			return Translated, &book.TranslationError{Book: title, Err: cause}
		}

		refined, refineErr := p.refiner.Run(ctx, doc)
		if refineErr != nil {
			// Chunk failures keep their draft text; the book still ships.
			slog.Warn("refinement incomplete, keeping draft text", "book", title, "error", refineErr)
		}
		if err := cp.WriteDoc(checkpoint.Refined, refined); err != nil {
			return Failed, err
		}
		doc = refined
		state = Refined
	}

	if doc == nil {
		if doc, err = cp.ReadDoc(checkpoint.Refined); err != nil {
			return Failed, err
		}
	}
	if err := p.assembler.Run(doc, cp.Path(checkpoint.Final), cp.EPUBPath()); err != nil {
		return Failed, err
	}

	return Assembled, nil
}

// Status resolves the current state of each book without running anything.
func (p *Pipeline) Status(pdfPaths []string) []Result {
	results := make([]Result, 0, len(pdfPaths))
	for _, path := range pdfPaths {
		title := BookTitle(path)
		results = append(results, Result{Book: title, State: Resolve(p.store.Book(title))})
	}
	return results
}
