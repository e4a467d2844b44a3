// Package segment turns raw extracted block text into clean, translatable
// sentence units. Healing collapses the whitespace damage PDF extraction
// leaves behind; splitting is abbreviation-aware so that "Mr. Smith" does not
// become a sentence boundary.
package segment

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// minSentenceRunes filters out fragments too short to translate on their own
// (stray page numbers, orphaned punctuation).
const minSentenceRunes = 3

// abbreviations whose trailing period does not end a sentence.
var abbreviations = map[string]struct{}{
	"Mr": {}, "Mrs": {}, "Ms": {}, "Dr": {}, "St": {},
	"a": {}, "p": {}, "v": {}, "vs": {},
	"Inc": {}, "Ltd": {}, "Corp": {},
}

// Heal collapses all runs of whitespace to single spaces, trims the result,
// and applies NFC normalization so that equal sentences compare equal
// regardless of how the PDF encoded them.
func Heal(text string) string {
	return norm.NFC.String(strings.Join(strings.Fields(text), " "))
}

// SplitSentences splits healed text into sentences at terminal punctuation
// (. ! ?) followed by whitespace, keeping the punctuation with the sentence.
// A period after a known abbreviation is not a boundary. Fragments shorter
// than three runes are dropped.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	flush := func() {
		s := strings.TrimSpace(current.String())
		if len([]rune(s)) >= minSentenceRunes {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Boundary only when followed by whitespace (or end of text).
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && isAbbreviation(current.String()) {
			continue
		}
		flush()
		// Skip the whitespace run after the boundary.
		for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			i++
		}
	}
	flush()

	return sentences
}

// isAbbreviation reports whether the text ends in "<abbr>." for a known
// abbreviation.
func isAbbreviation(text string) bool {
	text = strings.TrimSuffix(text, ".")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	_, ok := abbreviations[fields[len(fields)-1]]
	return ok
}
