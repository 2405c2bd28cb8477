package document

import (
	"strings"

	"github.com/readee-ai/docproc/internal/model"
)

// BuildPageText concatenates per-page texts into a single document text,
// joining pages with a single newline (none after the last page), and
// records the half-open span each page occupies. Keys of the returned map
// are exactly 1..len(pages); spans partition the returned text with no gaps.
// A page that failed extraction should be passed as "" and contributes an
// empty (or newline-only) span rather than aborting the document.
func BuildPageText(pages []string) (string, model.PageRanges) {
	ranges := make(model.PageRanges, len(pages))
	var sb strings.Builder

	pos := 0
	for i, text := range pages {
		if i < len(pages)-1 {
			text += "\n"
		}
		sb.WriteString(text)
		ranges[i+1] = model.Span{Start: pos, End: pos + len(text)}
		pos += len(text)
	}
	return sb.String(), ranges
}
