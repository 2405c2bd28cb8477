package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeuristicTokenizer_EncodeDecodeRoundTrip(t *testing.T) {
	tok := NewHeuristicTokenizer()
	tokens := tok.Encode("  the quick\nbrown\tfox  ")
	require.Equal(t, []string{"the", "quick", "brown", "fox"}, tokens)
	require.Equal(t, "the quick brown fox", tok.Decode(tokens))
}

func TestHeuristicTokenizer_CountWords(t *testing.T) {
	tok := NewHeuristicTokenizer()
	require.Equal(t, 4, tok.Count("the quick brown fox"))
	require.Equal(t, 0, tok.Count("   \n\t "))
}

func TestHeuristicTokenizer_CountAddsCJKRunes(t *testing.T) {
	tok := NewHeuristicTokenizer()
	// one whitespace field plus one token per CJK rune
	require.Equal(t, 1+2, tok.Count("你好"))
	require.Equal(t, 2+3, tok.Count("hello 日本語"))
	require.Equal(t, 1+2, tok.Count("한국"))
}
