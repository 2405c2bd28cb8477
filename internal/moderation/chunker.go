package moderation

import "unicode"

// Chunk is a bounded piece of document text for classification, with its
// position span in the source text so violations can be mapped to pages.
type Chunk struct {
	Content string
	Start   int
	End     int
}

// ChunkText greedily packs whitespace-delimited words into chunks bounded by
// maxTokens*4 characters (the 4 chars/token estimate). A chunk is closed
// when the next word would overflow it, unless the chunk is still empty: a
// single oversized word is never split. Text that already fits is returned
// as one chunk, untouched.
func ChunkText(text string, maxTokens int) []Chunk {
	maxChars := maxTokens * 4
	if len(text) <= maxChars {
		if text == "" {
			return nil
		}
		return []Chunk{{Content: text, Start: 0, End: len(text)}}
	}

	words := splitWords(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	var currentWords []string
	currentLen := 0
	chunkStart := words[0].start
	chunkEnd := words[0].end

	flush := func() {
		if len(currentWords) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Content: joinWords(currentWords),
			Start:   chunkStart,
			End:     chunkEnd,
		})
		currentWords = nil
		currentLen = 0
	}

	for _, w := range words {
		wordLen := len(w.text) + 1
		if currentLen+wordLen > maxChars && len(currentWords) > 0 {
			flush()
			chunkStart = w.start
		}
		currentWords = append(currentWords, w.text)
		currentLen += wordLen
		chunkEnd = w.end
	}
	flush()
	return chunks
}

type word struct {
	text  string
	start int
	end   int
}

func splitWords(text string) []word {
	var words []word
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, word{text: text[start:i], start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, word{text: text[start:], start: start, end: len(text)})
	}
	return words
}

func joinWords(words []string) string {
	n := 0
	for _, w := range words {
		n += len(w) + 1
	}
	buf := make([]byte, 0, n)
	for i, w := range words {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, w...)
	}
	return string(buf)
}
