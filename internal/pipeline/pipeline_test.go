package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/baterdene/nomtran/internal/assemble"
	"github.com/baterdene/nomtran/internal/book"
	"github.com/baterdene/nomtran/internal/checkpoint"
	"github.com/baterdene/nomtran/internal/extract"
	"github.com/baterdene/nomtran/internal/patch"
	"github.com/baterdene/nomtran/internal/pipeline"
	"github.com/baterdene/nomtran/internal/refine"
	"github.com/baterdene/nomtran/internal/translate"
)

// recordingClient echoes translations and counts endpoint traffic so tests
// can assert which stages actually ran.
type recordingClient struct {
	translateCalls int
	refineCalls    int
	failTranslate  bool
}

func (c *recordingClient) Translate(ctx context.Context, req translate.Request) ([]string, error) {
	c.translateCalls++
	if c.failTranslate {
		return nil, errors.New("endpoint down")
	}
	out := make([]string, len(req.Sentences))
	for i, s := range req.Sentences {
		out[i] = "МОН:" + s
	}
	return out, nil
}

func (c *recordingClient) Refine(ctx context.Context, req translate.Request) ([]string, error) {
	c.refineCalls++
	out := make([]string, len(req.Sentences))
	copy(out, req.Sentences)
	return out, nil
}

type fixture struct {
	store    *checkpoint.Store
	client   *recordingClient
	pipeline *pipeline.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	store, err := checkpoint.NewStore(checkpoint.Dirs{
		Cache: filepath.Join(root, "cache"),
		Post:  filepath.Join(root, "post"),
		Out:   filepath.Join(root, "out"),
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	client := &recordingClient{}
	translator := translate.New(client, nil, translate.Config{})
	return &fixture{
		store:  store,
		client: client,
		pipeline: pipeline.New(store, extract.New(), translator,
			patch.New(translator, nil), refine.New(client, 0), assemble.New(assemble.Fonts{})),
	}
}

// seedDoc writes a checkpoint large enough to be valid. translated controls
// whether spans carry target text.
func seedDoc(t *testing.T, cp *checkpoint.Book, kind checkpoint.Kind, translated bool) *book.Document {
	t.Helper()
	doc := &book.Document{Title: "My Book"}
	for i := 0; i < 15; i++ {
		span := book.Span{SourceText: fmt.Sprintf("A long enough source sentence number %d for checkpoint sizing.", i)}
		if translated {
			span.TargetText = fmt.Sprintf("Хангалттай урт орчуулсан өгүүлбэр %d дугаартай.", i)
		}
		doc.Blocks = append(doc.Blocks, book.Block{
			Page:    i + 1,
			Type:    book.Paragraph,
			Content: []book.Span{span},
		})
	}
	if err := cp.WriteDoc(kind, doc); err != nil {
		t.Fatalf("WriteDoc(%s): %v", kind, err)
	}
	return doc
}

func seedFinal(t *testing.T, cp *checkpoint.Book) {
	t.Helper()
	if err := os.WriteFile(cp.Path(checkpoint.Final), bytes.Repeat([]byte("p"), 11<<10), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cp.EPUBPath(), bytes.Repeat([]byte("e"), 2<<10), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBookTitle(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"books/My Book.pdf", "My Book"},
		{"/abs/path/war_and_peace.pdf", "war_and_peace"},
		{"plain.pdf", "plain"},
	}
	for _, tt := range tests {
		if got := pipeline.BookTitle(tt.path); got != tt.want {
			t.Errorf("BookTitle(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRun_AssembledBookSkipped(t *testing.T) {
	f := newFixture(t)
	cp := f.store.Book("My Book")
	seedDoc(t, cp, checkpoint.Extracted, false)
	seedDoc(t, cp, checkpoint.Translated, true)
	seedDoc(t, cp, checkpoint.Refined, true)
	seedFinal(t, cp)

	results := f.pipeline.Run(context.Background(), []string{"books/My Book.pdf"})
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].State != pipeline.Assembled || results[0].Err != nil {
		t.Errorf("result = %+v, want clean Assembled", results[0])
	}
	if f.client.translateCalls != 0 || f.client.refineCalls != 0 {
		t.Errorf("skipped book still hit the endpoint: %d translate, %d refine",
			f.client.translateCalls, f.client.refineCalls)
	}
}

func TestRun_ResumesFromTranslated(t *testing.T) {
	f := newFixture(t)
	cp := f.store.Book("My Book")
	seedDoc(t, cp, checkpoint.Extracted, false)
	seedDoc(t, cp, checkpoint.Translated, true)

	// The source PDF does not even exist: resume must not re-extract.
	results := f.pipeline.Run(context.Background(), []string{"missing/My Book.pdf"})
	if results[0].Err != nil {
		t.Fatalf("resume failed: %v", results[0].Err)
	}
	if results[0].State != pipeline.Assembled {
		t.Errorf("state = %s, want assembled", results[0].State)
	}
	if f.client.translateCalls != 0 {
		t.Errorf("complete translated checkpoint still produced %d translate calls", f.client.translateCalls)
	}
	if f.client.refineCalls == 0 {
		t.Error("refinement never ran")
	}
	if !cp.Valid(checkpoint.Refined) {
		t.Error("refined checkpoint missing after run")
	}
	for _, p := range []string{cp.Path(checkpoint.Final), cp.EPUBPath()} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("final artifact missing: %v", err)
		}
	}
}

func TestRun_ResumesFromRefined(t *testing.T) {
	f := newFixture(t)
	cp := f.store.Book("My Book")
	seedDoc(t, cp, checkpoint.Refined, true)

	results := f.pipeline.Run(context.Background(), []string{"missing/My Book.pdf"})
	if results[0].Err != nil {
		t.Fatalf("resume failed: %v", results[0].Err)
	}
	if results[0].State != pipeline.Assembled {
		t.Errorf("state = %s", results[0].State)
	}
	if f.client.translateCalls != 0 || f.client.refineCalls != 0 {
		t.Error("assembly-only resume must not hit the endpoint")
	}
}

func TestRun_IncompleteTranslationStaysTranslated(t *testing.T) {
	f := newFixture(t)
	f.client.failTranslate = true
	cp := f.store.Book("My Book")
	seedDoc(t, cp, checkpoint.Extracted, false)

	results := f.pipeline.Run(context.Background(), []string{"missing/My Book.pdf"})
	if results[0].Err == nil {
		t.Fatal("expected error while endpoint is down")
	}
	if results[0].State != pipeline.Translated {
		t.Errorf("state = %s, want translated (recoverable)", results[0].State)
	}
	var terr *book.TranslationError
	if !errors.As(results[0].Err, &terr) {
		t.Errorf("error chain missing TranslationError: %v", results[0].Err)
	}
	// Even the failed pass checkpoints its (empty) progress.
	if !cp.Valid(checkpoint.Translated) {
		t.Error("translated checkpoint missing after soft failure")
	}
	// No refined checkpoint, no final artifacts.
	if cp.Valid(checkpoint.Refined) || cp.Valid(checkpoint.Final) {
		t.Error("incomplete book must never refine or assemble")
	}

	// Endpoint recovers: the next run patches the same book to completion.
	f.client.failTranslate = false
	results = f.pipeline.Run(context.Background(), []string{"missing/My Book.pdf"})
	if results[0].Err != nil {
		t.Fatalf("recovery run failed: %v", results[0].Err)
	}
	if results[0].State != pipeline.Assembled {
		t.Errorf("recovery state = %s", results[0].State)
	}
}

func TestRun_ExtractionFailureIsTerminal(t *testing.T) {
	f := newFixture(t)

	results := f.pipeline.Run(context.Background(), []string{"/nonexistent/Broken Book.pdf"})
	if results[0].State != pipeline.Failed {
		t.Errorf("state = %s, want failed", results[0].State)
	}
	var xerr *book.ExtractionError
	if !errors.As(results[0].Err, &xerr) {
		t.Errorf("error = %v, want ExtractionError", results[0].Err)
	}
}

func TestRun_PoisonPillDoesNotHaltRun(t *testing.T) {
	f := newFixture(t)
	cp := f.store.Book("Good Book")
	seedDoc(t, cp, checkpoint.Refined, true)

	results := f.pipeline.Run(context.Background(), []string{
		"/nonexistent/Bad Book.pdf",
		"missing/Good Book.pdf",
	})
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].State != pipeline.Failed {
		t.Errorf("bad book state = %s", results[0].State)
	}
	if results[1].State != pipeline.Assembled || results[1].Err != nil {
		t.Errorf("good book after failure = %+v", results[1])
	}
}

func TestRun_CancelledContextStopsBetweenBooks(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := f.pipeline.Run(ctx, []string{"a.pdf", "b.pdf"})
	if len(results) != 0 {
		t.Errorf("cancelled run still processed %d books", len(results))
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	cp := f.store.Book("Half Done")
	seedDoc(t, cp, checkpoint.Translated, true)

	results := f.pipeline.Status([]string{"books/Half Done.pdf", "books/Untouched.pdf"})
	if results[0].State != pipeline.Translated {
		t.Errorf("Half Done state = %s", results[0].State)
	}
	if results[1].State != pipeline.NotStarted {
		t.Errorf("Untouched state = %s", results[1].State)
	}
}
