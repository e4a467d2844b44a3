package memory_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/baterdene/nomtran/internal/memory"
)

func openTestStore(t *testing.T) *memory.Store {
	t.Helper()
	s, err := memory.Open(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLookupMiss(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Lookup(context.Background(), "never seen before")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Error("expected miss for unknown sentence")
	}
}

func TestSaveThenLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "The horse ran.", "Морь гүйв.", "Test Book"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.Lookup(ctx, "The horse ran.")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected hit after Save")
	}
	if got != "Морь гүйв." {
		t.Errorf("Lookup = %q, want %q", got, "Морь гүйв.")
	}
}

func TestLookup_NormalizedKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Save with a decomposed é, look up with the precomposed one.
	if err := s.Save(ctx, "café scene", "кафены үзэгдэл", "Book"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_, ok, err := s.Lookup(ctx, "café scene")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Error("NFC-equal source text should hit the same entry")
	}
}

func TestSave_UpsertsOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "Hello.", "Анхны хувилбар.", "Book A"); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := s.Save(ctx, "Hello.", "Шинэ хувилбар.", "Book B"); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, ok, err := s.Lookup(ctx, "Hello.")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if got != "Шинэ хувилбар." {
		t.Errorf("expected newest translation, got %q", got)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Entries != 1 {
		t.Errorf("expected 1 entry after upsert, got %d", st.Entries)
	}
}

func TestStatsAndClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sentences := map[string]string{
		"One.":   "Нэг.",
		"Two.":   "Хоёр.",
		"Three.": "Гурав.",
	}
	for src, tgt := range sentences {
		if err := s.Save(ctx, src, tgt, "Counting Book"); err != nil {
			t.Fatalf("Save(%q): %v", src, err)
		}
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Entries != 3 {
		t.Errorf("Entries = %d, want 3", st.Entries)
	}
	if st.Books != 1 {
		t.Errorf("Books = %d, want 1", st.Books)
	}

	n, err := s.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}

	st, err = s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats after Clear: %v", err)
	}
	if st.Entries != 0 {
		t.Errorf("Entries after Clear = %d, want 0", st.Entries)
	}
}
