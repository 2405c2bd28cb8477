package model

import "strings"

// DocFormat is the source document format.
type DocFormat string

const (
	FormatPDF  DocFormat = "pdf"
	FormatDocx DocFormat = "docx"
)

// DocImage is an embedded raster image, re-encoded as JPEG and downscaled,
// paired with the best-guess 1-indexed page it was embedded on.
type DocImage struct {
	Data   []byte
	Page   int
	Width  int
	Height int
}

// ExtractedDocument is the output of the extraction stage: the concatenated
// full text, the per-page spans into it, and the embedded images.
type ExtractedDocument struct {
	Format     DocFormat
	FullText   string
	PageRanges PageRanges
	Images     []DocImage
}

// PageText slices the direct text of one page out of the full text.
func (d *ExtractedDocument) PageText(page int) string {
	span, ok := d.PageRanges[page]
	if !ok {
		return ""
	}
	if span.Start < 0 || span.End > len(d.FullText) || span.Start > span.End {
		return ""
	}
	return d.FullText[span.Start:span.End]
}

// PageCount is the number of pages recorded in the range map.
func (d *ExtractedDocument) PageCount() int {
	return len(d.PageRanges)
}

// Empty reports whether the document yielded no usable text.
func (d *ExtractedDocument) Empty() bool {
	return strings.TrimSpace(d.FullText) == ""
}
