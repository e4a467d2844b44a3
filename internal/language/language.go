// Package language verifies that translated text is actually written in the
// target language. The patcher uses it (when enabled) to re-queue spans the
// model answered in the wrong language, typically English echoed back or
// Russian in place of Mongolian Cyrillic.
package language

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// minVerifyRunes is the shortest text worth running through the detector.
// Shorter texts produce unreliable results and are accepted as-is.
const minVerifyRunes = 20

// Verifier checks translations against an expected lingua language.
// The detector is expensive to build; construct once and reuse.
type Verifier struct {
	det    lingua.LanguageDetector
	target lingua.Language
}

// NewVerifier builds a verifier for the given target. The candidate set is
// restricted to the languages this pipeline can actually confuse, which keeps
// the model load small and the Cyrillic disambiguation sharp.
func NewVerifier(target lingua.Language) *Verifier {
	det := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Russian, lingua.Kazakh, target).
		Build()
	return &Verifier{det: det, target: target}
}

// NewMongolian returns a verifier for Mongolian Cyrillic output.
func NewMongolian() *Verifier {
	return NewVerifier(lingua.Mongolian)
}

// Valid reports whether text appears to be written in the target language.
// Empty text is invalid; short or undetectable text passes without challenge.
func (v *Verifier) Valid(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if len([]rune(text)) < minVerifyRunes {
		return true
	}
	detected, ok := v.det.DetectLanguageOf(text)
	if !ok {
		return true
	}
	return detected == v.target
}
