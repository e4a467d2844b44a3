// Package refine runs the post-translation fluency pass. It rewrites the
// target text of translatable spans in bounded chunks, writing each chunk's
// results back into a full working copy of the document by original block
// index. The block sequence itself (count, order, types, image payloads)
// passes through untouched; rebuilding the document from the translatable
// subset alone is exactly the defect this package exists to prevent.
package refine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/baterdene/nomtran/internal/book"
	"github.com/baterdene/nomtran/internal/postprocess"
	"github.com/baterdene/nomtran/internal/translate"
)

// DefaultChunkBlocks is how many translatable blocks go into one refinement
// request; sized to fit the endpoint's refinement context window.
const DefaultChunkBlocks = 15

// Refiner rewrites existing translations for fluency.
type Refiner struct {
	client      translate.Client
	chunkBlocks int
}

// New creates a Refiner. chunkBlocks <= 0 selects DefaultChunkBlocks.
func New(client translate.Client, chunkBlocks int) *Refiner {
	if chunkBlocks <= 0 {
		chunkBlocks = DefaultChunkBlocks
	}
	return &Refiner{client: client, chunkBlocks: chunkBlocks}
}

// Run returns a refined copy of doc. The input is never mutated, so a crash
// mid-refinement cannot corrupt the translated checkpoint. A failed chunk
// keeps its existing text; the error for it is joined into the returned
// error while the rest of the document still refines.
func (r *Refiner) Run(ctx context.Context, doc *book.Document) (*book.Document, error) {
	out := doc.Clone()

	// Indices into out.Blocks of blocks that carry refinable text.
	var translatable []int
	for i, b := range out.Blocks {
		if b.Translatable() {
			translatable = append(translatable, i)
		}
	}
	if len(translatable) == 0 {
		return out, nil
	}

	totalChunks := (len(translatable) + r.chunkBlocks - 1) / r.chunkBlocks
	slog.Info("refining", "book", out.Title, "blocks", len(translatable), "chunks", totalChunks)

	var errs []error
	for start := 0; start < len(translatable); start += r.chunkBlocks {
		end := start + r.chunkBlocks
		if end > len(translatable) {
			end = len(translatable)
		}
		if err := r.refineChunk(ctx, out, translatable[start:end]); err != nil {
			slog.Warn("refinement chunk failed, keeping draft text",
				"book", out.Title, "chunk", start/r.chunkBlocks+1, "error", err)
			errs = append(errs, err)
		}
	}

	return out, errors.Join(errs...)
}

// refineChunk refines the spans of the blocks at the given indices and
// writes results back into doc by those same indices. Span order within the
// request is reading order, so position maps results one-to-one.
func (r *Refiner) refineChunk(ctx context.Context, doc *book.Document, blockIdx []int) error {
	var refs []book.SpanRef
	var sentences []string
	for _, bi := range blockIdx {
		for si, s := range doc.Blocks[bi].Content {
			if s.Missing() {
				continue
			}
			refs = append(refs, book.SpanRef{Block: bi, Span: si})
			sentences = append(sentences, s.TargetText)
		}
	}
	if len(sentences) == 0 {
		return nil
	}

	refined, err := r.client.Refine(ctx, translate.Request{
		Sentences: sentences,
		BookTitle: doc.Title,
	})
	if err != nil {
		return err
	}

	for i, ref := range refs {
		cleaned := postprocess.EnsureTerminal(postprocess.Clean(refined[i]))
		if cleaned == "" {
			continue
		}
		doc.Blocks[ref.Block].Content[ref.Span].TargetText = cleaned
	}
	return nil
}
