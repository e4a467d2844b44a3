package checkpoint_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/baterdene/nomtran/internal/book"
	"github.com/baterdene/nomtran/internal/checkpoint"
)

func newTestStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	root := t.TempDir()
	s, err := checkpoint.NewStore(checkpoint.Dirs{
		Cache: filepath.Join(root, "cache"),
		Post:  filepath.Join(root, "post"),
		Out:   filepath.Join(root, "out"),
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

// bigDoc builds a document whose JSON encoding clears the checkpoint size
// threshold.
func bigDoc(title string) *book.Document {
	doc := &book.Document{Title: title}
	for i := 0; i < 20; i++ {
		doc.Blocks = append(doc.Blocks, book.Block{
			Page: i + 1,
			Type: book.Paragraph,
			Content: []book.Span{{
				SourceText: fmt.Sprintf("A reasonably long source sentence number %d for sizing.", i),
				TargetText: fmt.Sprintf("Хэмжээ хангахад зориулсан %d дугаар урт өгүүлбэр.", i),
			}},
		})
	}
	return doc
}

func TestPathNamespaces(t *testing.T) {
	s := newTestStore(t)
	cp := s.Book("War & Peace: Vol. 1")

	for _, kind := range []checkpoint.Kind{checkpoint.Extracted, checkpoint.Translated, checkpoint.Refined, checkpoint.Final} {
		p := cp.Path(kind)
		if !strings.Contains(filepath.Base(p), "War_Peace_Vol_1") {
			t.Errorf("%s path %q not derived from sanitized title", kind, p)
		}
	}
	if !strings.HasSuffix(cp.Path(checkpoint.Final), "_Final.pdf") {
		t.Errorf("final path = %q", cp.Path(checkpoint.Final))
	}
	if !strings.HasSuffix(cp.EPUBPath(), ".epub") {
		t.Errorf("epub path = %q", cp.EPUBPath())
	}
}

func TestWriteReadDocRoundTrip(t *testing.T) {
	s := newTestStore(t)
	cp := s.Book("Round Trip")
	doc := bigDoc("Round Trip")

	if err := cp.WriteDoc(checkpoint.Translated, doc); err != nil {
		t.Fatalf("WriteDoc: %v", err)
	}
	got, err := cp.ReadDoc(checkpoint.Translated)
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}
	if got.Title != doc.Title || len(got.Blocks) != len(doc.Blocks) {
		t.Fatalf("round trip lost structure: %d blocks -> %d", len(doc.Blocks), len(got.Blocks))
	}
	if got.Blocks[3].Content[0].TargetText != doc.Blocks[3].Content[0].TargetText {
		t.Error("round trip lost span text")
	}
}

func TestValid_SizeThresholds(t *testing.T) {
	s := newTestStore(t)
	cp := s.Book("Thresholds")

	if cp.Valid(checkpoint.Translated) {
		t.Error("missing checkpoint reported valid")
	}

	// An undersized file is not a checkpoint.
	if err := os.WriteFile(cp.Path(checkpoint.Translated), []byte(`{"title":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if cp.Valid(checkpoint.Translated) {
		t.Error("undersized checkpoint reported valid")
	}

	if err := cp.WriteDoc(checkpoint.Translated, bigDoc("Thresholds")); err != nil {
		t.Fatal(err)
	}
	if !cp.Valid(checkpoint.Translated) {
		t.Error("full checkpoint reported invalid")
	}
}

func TestValid_FinalNeedsBothArtifacts(t *testing.T) {
	s := newTestStore(t)
	cp := s.Book("Both")

	pdf := bytes.Repeat([]byte("p"), 11<<10)
	epub := bytes.Repeat([]byte("e"), 2<<10)

	if err := os.WriteFile(cp.Path(checkpoint.Final), pdf, 0o644); err != nil {
		t.Fatal(err)
	}
	if cp.Valid(checkpoint.Final) {
		t.Error("final valid with PDF only")
	}
	if err := os.WriteFile(cp.EPUBPath(), epub, 0o644); err != nil {
		t.Fatal(err)
	}
	if !cp.Valid(checkpoint.Final) {
		t.Error("final invalid with both artifacts present")
	}
}

func TestSweep(t *testing.T) {
	s := newTestStore(t)
	cp := s.Book("Sweeper")

	// Debris from an interrupted run.
	if err := os.WriteFile(cp.Path(checkpoint.Extracted), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	cp.Sweep(checkpoint.Extracted)
	if _, err := os.Stat(cp.Path(checkpoint.Extracted)); !os.IsNotExist(err) {
		t.Error("undersized checkpoint survived sweep")
	}

	// A valid checkpoint is left alone.
	if err := cp.WriteDoc(checkpoint.Extracted, bigDoc("Sweeper")); err != nil {
		t.Fatal(err)
	}
	cp.Sweep(checkpoint.Extracted)
	if !cp.Valid(checkpoint.Extracted) {
		t.Error("valid checkpoint swept")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.json")

	if err := checkpoint.WriteFileAtomic(path, []byte("first")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if err := checkpoint.WriteFileAtomic(path, []byte("second")); err != nil {
		t.Fatalf("WriteFileAtomic overwrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q", data)
	}

	// No temp debris left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}
