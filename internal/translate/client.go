// Package translate talks to the locally hosted LLM endpoint and drives the
// batch translation stage. Batches are correlated to spans purely by
// position: the endpoint must return exactly one target string per source
// sentence, in order, and anything else is a translation error.
package translate

import "context"

// Request is one batch sent to the endpoint. Sentences are source-language
// text in document order; BookTitle and Context (the current chapter heading)
// frame the prompt.
type Request struct {
	Sentences []string
	BookTitle string
	Context   string
}

// Client is the LLM endpoint collaborator. Both methods return exactly
// len(req.Sentences) strings in request order, or an error. Implementations
// must never truncate or pad a short response into shape.
type Client interface {
	// Translate renders source-language sentences in the target language.
	Translate(ctx context.Context, req Request) ([]string, error)
	// Refine rewrites already-translated sentences for fluency.
	Refine(ctx context.Context, req Request) ([]string, error)
}
