package book

import "fmt"

// ExtractionError is terminal for a book: the source PDF could not be parsed
// or yielded no structural blocks.
type ExtractionError struct {
	Book string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %q: %v", e.Book, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TranslationError is a recoverable per-batch failure: the endpoint was
// unreachable, returned a malformed response, or answered with the wrong
// number of translations. Affected spans stay untranslated for the patcher.
type TranslationError struct {
	Book string
	Err  error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed for %q: %v", e.Book, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// RenderError is terminal for a book: PDF or EPUB assembly failed.
type RenderError struct {
	Book   string
	Format string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s render failed for %q: %v", e.Format, e.Book, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
