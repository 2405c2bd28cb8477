package summary

// chunkOverlap is the token overlap between consecutive map-phase windows,
// enough to keep a sentence from being cut blind at every boundary.
const chunkOverlap = 48

// SplitTokens slices a token sequence into windows of at most `window`
// tokens, each sharing `overlap` tokens with its predecessor. The last
// window may be shorter; an overlap >= window degrades to disjoint windows
// to guarantee forward progress.
func SplitTokens(tokens []string, window, overlap int) [][]string {
	if len(tokens) == 0 || window <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= window {
		overlap = 0
	}
	if len(tokens) <= window {
		return [][]string{tokens}
	}

	step := window - overlap
	var out [][]string
	for start := 0; start < len(tokens); start += step {
		end := start + window
		if end > len(tokens) {
			end = len(tokens)
		}
		out = append(out, tokens[start:end])
		if end == len(tokens) {
			break
		}
	}
	return out
}
