package translate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/baterdene/nomtran/internal/book"
	"github.com/baterdene/nomtran/internal/memory"
	"github.com/baterdene/nomtran/internal/postprocess"
)

// DefaultBatchSize matches the endpoint's comfortable request size: batches
// are flushed once this many sentences are pending.
const DefaultBatchSize = 30

// Config tunes the translation stage.
type Config struct {
	// BatchSize is the maximum number of sentences per endpoint request.
	BatchSize int
	// Workers bounds parallel batch requests. 1 means strictly sequential.
	// Results are only written into the document after every batch of the
	// call has returned, whatever the worker count.
	Workers int
}

// Translator runs the batch translation stage over a document. A failed
// batch leaves its spans untranslated rather than aborting the stage; the
// patcher is the retry path for those.
type Translator struct {
	client Client
	mem    *memory.Store
	cfg    Config
}

// New creates a Translator. mem may be nil to disable the translation memory.
func New(client Client, mem *memory.Store, cfg Config) *Translator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Translator{client: client, mem: mem, cfg: cfg}
}

// pending is one untranslated sentence awaiting a batch slot.
type pending struct {
	ref      book.SpanRef
	sentence string
	chapter  string
}

// batch is one endpoint request worth of pending sentences.
type batch struct {
	items []pending
}

// Run returns a new document with translations attached to previously
// untranslated spans. The input document is not mutated. The returned error
// joins per-batch failures; the document is still valid (and worth
// checkpointing) when an error is returned.
func (t *Translator) Run(ctx context.Context, doc *book.Document) (*book.Document, error) {
	out := doc.Clone()

	work := t.collect(ctx, out)
	if len(work) == 0 {
		return out, nil
	}

	batches := t.split(work)
	slog.Info("translating",
		"book", out.Title,
		"sentences", len(work),
		"batches", len(batches),
		"workers", t.cfg.Workers)

	results, errs := t.execute(ctx, out.Title, batches)

	// All batches are in; only now does the document change.
	for bi, translations := range results {
		if translations == nil {
			continue
		}
		t.assign(ctx, out, batches[bi].items, translations)
	}

	return out, errors.Join(errs...)
}

// collect walks the document in reading order, resolves memory hits in
// place, and returns the spans that still need the endpoint. The chapter
// context for each span is the most recent heading before it.
func (t *Translator) collect(ctx context.Context, doc *book.Document) []pending {
	var work []pending
	chapter := "Unknown"

	for bi := range doc.Blocks {
		b := &doc.Blocks[bi]
		if b.Type == book.Heading {
			chapter = b.SourceText()
		}
		if !b.Type.Translatable() {
			continue
		}
		for si := range b.Content {
			s := &b.Content[si]
			if !s.Missing() {
				continue
			}
			if t.mem != nil {
				if cached, ok, err := t.mem.Lookup(ctx, s.SourceText); err == nil && ok {
					s.TargetText = cached
					continue
				}
			}
			work = append(work, pending{
				ref:      book.SpanRef{Block: bi, Span: si},
				sentence: s.SourceText,
				chapter:  chapter,
			})
		}
	}
	return work
}

func (t *Translator) split(work []pending) []batch {
	var batches []batch
	for len(work) > 0 {
		n := t.cfg.BatchSize
		if n > len(work) {
			n = len(work)
		}
		batches = append(batches, batch{items: work[:n]})
		work = work[n:]
	}
	return batches
}

// execute runs every batch and returns a result slice parallel to batches
// (nil entry = failed batch) plus the collected errors. With Workers > 1
// batches fan out over a bounded worker pool.
func (t *Translator) execute(ctx context.Context, title string, batches []batch) ([][]string, []error) {
	results := make([][]string, len(batches))
	errsByBatch := make([]error, len(batches))

	if t.cfg.Workers == 1 {
		for i, bt := range batches {
			results[i], errsByBatch[i] = t.translateBatch(ctx, title, bt)
		}
	} else {
		sem := make(chan struct{}, t.cfg.Workers)
		var wg sync.WaitGroup
		for i, bt := range batches {
			wg.Add(1)
			go func(i int, bt batch) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results[i], errsByBatch[i] = t.translateBatch(ctx, title, bt)
			}(i, bt)
		}
		wg.Wait()
	}

	var errs []error
	for i, err := range errsByBatch {
		if err != nil {
			slog.Warn("batch failed, spans left for patcher",
				"book", title, "batch", i, "size", len(batches[i].items), "error", err)
			errs = append(errs, &book.TranslationError{Book: title, Err: err})
		}
	}
	return results, errs
}

func (t *Translator) translateBatch(ctx context.Context, title string, bt batch) ([]string, error) {
	sentences := make([]string, len(bt.items))
	for i, it := range bt.items {
		sentences[i] = it.sentence
	}
	return t.client.Translate(ctx, Request{
		Sentences: sentences,
		BookTitle: title,
		Context:   bt.items[0].chapter,
	})
}

// assign writes one successful batch back into the document by batch
// position and remembers the sentences in the translation memory.
func (t *Translator) assign(ctx context.Context, doc *book.Document, items []pending, translations []string) {
	for i, it := range items {
		cleaned := postprocess.EnsureTerminal(postprocess.Clean(translations[i]))
		if cleaned == "" {
			continue
		}
		doc.Blocks[it.ref.Block].Content[it.ref.Span].TargetText = cleaned
		if t.mem != nil {
			if err := t.mem.Save(ctx, it.sentence, cleaned, doc.Title); err != nil {
				slog.Warn("failed to update translation memory", "error", err)
			}
		}
	}
}
