package pipeline

import "github.com/baterdene/nomtran/internal/checkpoint"

// State is a book's position in the pipeline, computed once from checkpoint
// metadata when the book's turn comes around.
type State int

const (
	NotStarted State = iota
	Extracted
	Translated
	Refined
	Assembled
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Extracted:
		return "extracted"
	case Translated:
		return "translated"
	case Refined:
		return "refined"
	case Assembled:
		return "assembled"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Resolve maps a book's on-disk checkpoints to its pipeline state: the state
// after the highest-numbered valid checkpoint. Undersized artifacts do not
// count; Sweep removes them before their stage re-runs.
func Resolve(cp *checkpoint.Book) State {
	switch {
	case cp.Valid(checkpoint.Final):
		return Assembled
	case cp.Valid(checkpoint.Refined):
		return Refined
	case cp.Valid(checkpoint.Translated):
		return Translated
	case cp.Valid(checkpoint.Extracted):
		return Extracted
	}
	return NotStarted
}
