// Package postprocess cleans the raw text the LLM endpoint returns for a
// single sentence before it is written into a span's target text.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes common LLM artifacts and returns the trimmed result:
// leaked reasoning blocks, instruction echoes, and quote wrapping.
func Clean(text string) string {
	text = stripThinking(text)
	text = stripEchoes(text)
	text = stripQuoteWrap(text)
	return strings.TrimSpace(text)
}

// thinkingRe matches complete <think>…</think> style blocks. Tag variants are
// listed explicitly because RE2 has no backreferences.
var thinkingRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>`,
)

// openThinkingRe matches a reasoning block whose closing tag never arrived.
var openThinkingRe = regexp.MustCompile(`(?is)(?:<thinking>|<think>|<reasoning>).*$`)

func stripThinking(text string) string {
	text = thinkingRe.ReplaceAllString(text, "")
	return openThinkingRe.ReplaceAllString(text, "")
}

// echoRes match introductory phrases models prepend despite instructions.
// Anchored to the start and requiring a colon to avoid eating real content.
var echoRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:refined |polished |translated )?(?:translation|text|version)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:refined |polished |mongolian )?(?:translation|translated text)\s*:`),
}

func stripEchoes(text string) string {
	text = strings.TrimSpace(text)
	for _, re := range echoRes {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// stripQuoteWrap removes one matching pair of outer quotes when the whole
// text is wrapped in them.
func stripQuoteWrap(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	switch {
	case first == '"' && last == '"',
		first == '«' && last == '»',
		first == '“' && last == '”',
		first == '‘' && last == '’':
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}

// EnsureTerminal appends a period to a non-empty sentence that lacks terminal
// punctuation, so assembled paragraphs read as complete sentences.
func EnsureTerminal(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return t
	}
	switch t[len(t)-1] {
	case '.', '!', '?', ':', ';':
		return t
	}
	return t + "."
}
