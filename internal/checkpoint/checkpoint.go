// Package checkpoint persists per-book stage snapshots and answers the
// resume question: which stages of a book already completed? An artifact
// counts as a valid checkpoint only when it exists and exceeds its
// stage-specific minimum size; undersized files are treated as the debris
// of an interrupted run and swept before the stage re-runs.
//
// All JSON snapshots are written atomically (temp file + rename), so killing
// the process at any point never corrupts a previously written checkpoint.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/baterdene/nomtran/internal/book"
)

// Kind identifies one of the four checkpoints a book accumulates.
type Kind int

const (
	// Extracted is the raw structural document, spans untranslated.
	Extracted Kind = iota
	// Translated is the structural document with target texts attached.
	Translated
	// Refined is the post-fluency-pass document.
	Refined
	// Final covers both rendered artifacts (PDF and EPUB).
	Final
)

func (k Kind) String() string {
	switch k {
	case Extracted:
		return "extracted"
	case Translated:
		return "translated"
	case Refined:
		return "refined"
	case Final:
		return "final"
	}
	return "unknown"
}

// Size thresholds below which an artifact is not believed to be complete.
// These are completion heuristics, not content guarantees.
const (
	minDocBytes  = 1 << 10  // JSON checkpoints
	minPDFBytes  = 10 << 10 // rendered PDF
	minEPUBBytes = 1 << 10  // rendered EPUB
)

// Dirs names the three artifact locations of a run.
type Dirs struct {
	// Cache holds extraction/translation JSON and extracted images.
	Cache string
	// Post holds refined JSON.
	Post string
	// Out holds final rendered books.
	Out string
}

// Store manages checkpoints for every book of a run.
type Store struct {
	dirs Dirs
}

// NewStore creates the artifact directories and returns a Store.
func NewStore(dirs Dirs) (*Store, error) {
	for _, d := range []string{dirs.Cache, dirs.Post, dirs.Out} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}
	return &Store{dirs: dirs}, nil
}

// Book returns the checkpoint handle for one book title. Each book owns a
// distinct namespace derived from its sanitized name.
func (s *Store) Book(title string) *Book {
	return &Book{dirs: s.dirs, safe: book.SafeName(title)}
}

// Book is the per-book checkpoint namespace.
type Book struct {
	dirs Dirs
	safe string
}

// Path returns the artifact path for kind. For Final it returns the PDF
// path; the EPUB lives at EPUBPath.
func (b *Book) Path(kind Kind) string {
	switch kind {
	case Extracted:
		return filepath.Join(b.dirs.Cache, b.safe+"_extracted.json")
	case Translated:
		return filepath.Join(b.dirs.Cache, b.safe+"_structural.json")
	case Refined:
		return filepath.Join(b.dirs.Post, b.safe+"_refined.json")
	case Final:
		return filepath.Join(b.dirs.Out, b.safe+"_Final.pdf")
	}
	return ""
}

// EPUBPath returns where the rendered EPUB goes.
func (b *Book) EPUBPath() string {
	return filepath.Join(b.dirs.Out, b.safe+".epub")
}

// ImagesDir returns the directory for this book's extracted image payloads.
func (b *Book) ImagesDir() string {
	return filepath.Join(b.dirs.Cache, "images", b.safe)
}

// Valid reports whether the checkpoint exists and clears its size threshold.
// Final requires both artifacts.
func (b *Book) Valid(kind Kind) bool {
	if kind == Final {
		return sizedAtLeast(b.Path(Final), minPDFBytes) &&
			sizedAtLeast(b.EPUBPath(), minEPUBBytes)
	}
	return sizedAtLeast(b.Path(kind), minDocBytes)
}

// Sweep removes an invalid (present but undersized) artifact so the stage
// can rebuild it. Valid artifacts are left alone.
func (b *Book) Sweep(kind Kind) {
	if b.Valid(kind) {
		return
	}
	os.Remove(b.Path(kind))
	if kind == Final {
		os.Remove(b.EPUBPath())
	}
}

// WriteDoc atomically persists doc as the checkpoint of the given kind.
func (b *Book) WriteDoc(kind Kind, doc *book.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s checkpoint: %w", kind, err)
	}
	if err := WriteFileAtomic(b.Path(kind), data); err != nil {
		return fmt.Errorf("failed to write %s checkpoint: %w", kind, err)
	}
	return nil
}

// ReadDoc loads the checkpoint of the given kind.
func (b *Book) ReadDoc(kind Kind) (*book.Document, error) {
	data, err := os.ReadFile(b.Path(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s checkpoint: %w", kind, err)
	}
	var doc book.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s checkpoint: %w", kind, err)
	}
	return &doc, nil
}

// WriteFileAtomic writes data to path via a temp file in the same directory
// followed by a rename, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func sizedAtLeast(path string, min int64) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() >= min
}
