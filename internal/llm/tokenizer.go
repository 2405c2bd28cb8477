package llm

import (
	"strings"
	"unicode"
)

// Tokenizer approximates the model's tokenizer closely enough for budget and
// windowing math. Encode/Decode round-trip on whitespace words; Count adds
// one token per CJK rune on top of the word count, since those scripts do
// not delimit words with spaces.
type Tokenizer interface {
	Encode(text string) []string
	Decode(tokens []string) string
	Count(text string) int
}

type heuristicTokenizer struct{}

func NewHeuristicTokenizer() Tokenizer {
	return heuristicTokenizer{}
}

func (heuristicTokenizer) Encode(text string) []string {
	return strings.Fields(text)
}

func (heuristicTokenizer) Decode(tokens []string) string {
	return strings.Join(tokens, " ")
}

func (heuristicTokenizer) Count(text string) int {
	count := len(strings.Fields(text))
	for _, r := range text {
		if isCJK(r) {
			count++
		}
	}
	return count
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
