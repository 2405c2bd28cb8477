package model

import "sort"

// Span is a half-open [Start, End) character interval in a document's
// concatenated full text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// PageRanges maps 1-indexed page numbers to the span each page occupies in
// the full text. For an N-page document the keys are exactly 1..N, spans are
// non-overlapping, in page order, and jointly cover the full text.
type PageRanges map[int]Span

// PageFor resolves a character offset to a page number. Containment wins;
// an offset falling between pages resolves to the nearest preceding page.
// With no ranges at all, page 1 is assumed.
func (r PageRanges) PageFor(pos int) int {
	if len(r) == 0 {
		return 1
	}
	pages := make([]int, 0, len(r))
	for p := range r {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	best := pages[0]
	for _, p := range pages {
		span := r[p]
		if pos >= span.Start && pos < span.End {
			return p
		}
		if span.Start <= pos {
			best = p
		}
	}
	return best
}
