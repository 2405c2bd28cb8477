package ocr

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readee-ai/docproc/internal/document"
	"github.com/readee-ai/docproc/internal/model"
)

type fakeEngine struct {
	mu    sync.Mutex
	pages map[int]string
	fail  map[int]bool
	calls []int
}

func (f *fakeEngine) Document(ctx context.Context, path string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeEngine) Page(ctx context.Context, path string, page int) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	f.mu.Unlock()
	if f.fail[page] {
		return "", errors.New("ocr backend error")
	}
	return f.pages[page], nil
}

// pageText strips the newline the page-joining step appends to every page
// but the last.
func pageText(doc *model.ExtractedDocument, page int) string {
	return strings.TrimSuffix(doc.PageText(page), "\n")
}

func docFromPages(pages ...string) *model.ExtractedDocument {
	full, ranges := document.BuildPageText(pages)
	return &model.ExtractedDocument{
		Format:     model.FormatPDF,
		FullText:   full,
		PageRanges: ranges,
	}
}

func TestPagesNeedingOCR_FlagsShortPagesInOrder(t *testing.T) {
	a := NewAdapter(&fakeEngine{}, 10, 2)
	doc := docFromPages("this page has plenty of direct text", "x", "")
	require.Equal(t, []int{2, 3}, a.PagesNeedingOCR(doc))
}

func TestPagesNeedingOCR_WhitespaceOnlyCountsAsEmpty(t *testing.T) {
	a := NewAdapter(&fakeEngine{}, 10, 2)
	doc := docFromPages("   \t  ", "a real page with enough text on it")
	require.Equal(t, []int{1}, a.PagesNeedingOCR(doc))
}

func TestMerge_NoEngineReturnsDocumentUnchanged(t *testing.T) {
	a := NewAdapter(nil, 10, 2)
	doc := docFromPages("short")
	require.Same(t, doc, a.Merge(context.Background(), "f.pdf", doc))
}

func TestMerge_NoFlaggedPagesSkipsOCR(t *testing.T) {
	eng := &fakeEngine{}
	a := NewAdapter(eng, 10, 2)
	doc := docFromPages("this page has plenty of direct text already")

	out := a.Merge(context.Background(), "f.pdf", doc)
	require.Same(t, doc, out)
	require.Empty(t, eng.calls)
}

func TestMerge_LongerOCRTextWins(t *testing.T) {
	eng := &fakeEngine{pages: map[int]string{
		2: "recovered text from the scanned page image",
	}}
	a := NewAdapter(eng, 10, 2)
	doc := docFromPages("first page with enough direct text", "tiny")

	out := a.Merge(context.Background(), "f.pdf", doc)
	require.Equal(t, "first page with enough direct text", pageText(out, 1))
	require.Equal(t, "recovered text from the scanned page image", pageText(out, 2))
	require.Equal(t, 2, out.PageCount())
}

func TestMerge_DirectTextWinsOnTieOrShorterOCR(t *testing.T) {
	eng := &fakeEngine{pages: map[int]string{
		1: "less",
		2: "same#",
	}}
	a := NewAdapter(eng, 10, 2)
	doc := docFromPages("direct", "same!")

	out := a.Merge(context.Background(), "f.pdf", doc)
	require.Equal(t, "direct", pageText(out, 1))
	require.Equal(t, "same!", pageText(out, 2))
}

func TestMerge_EngineFailureFallsBackToDirectText(t *testing.T) {
	eng := &fakeEngine{
		pages: map[int]string{2: "ocr output for the empty page"},
		fail:  map[int]bool{1: true},
	}
	a := NewAdapter(eng, 10, 2)
	doc := docFromPages("partial", "")

	out := a.Merge(context.Background(), "f.pdf", doc)
	require.Equal(t, "partial", pageText(out, 1))
	require.Equal(t, "ocr output for the empty page", pageText(out, 2))
}

func TestMerge_ScannedTrailingPage(t *testing.T) {
	eng := &fakeEngine{pages: map[int]string{
		3: "text recovered from the scanned third page",
	}}
	a := NewAdapter(eng, 10, 2)
	doc := docFromPages(
		"page one carries plenty of direct text",
		"page two carries plenty of direct text too",
		"",
	)

	out := a.Merge(context.Background(), "f.pdf", doc)
	require.Equal(t, []int{3}, eng.calls)
	require.Equal(t, 3, out.PageCount())
	require.Equal(t,
		"page one carries plenty of direct text\n"+
			"page two carries plenty of direct text too\n"+
			"text recovered from the scanned third page",
		out.FullText)
}

func TestMerge_SharesImagesAndRebuildsRanges(t *testing.T) {
	images := []model.DocImage{{Data: []byte{0xff}, Page: 1}}
	eng := &fakeEngine{pages: map[int]string{1: "a much longer ocr replacement text"}}
	a := NewAdapter(eng, 10, 2)

	doc := docFromPages("stub", "second page with plenty of text here")
	doc.Images = images

	out := a.Merge(context.Background(), "f.pdf", doc)
	require.Equal(t, images, out.Images)

	// spans must partition the rebuilt text
	require.Equal(t, out.PageText(1)+out.PageText(2), out.FullText)
	require.Equal(t, "a much longer ocr replacement text", pageText(out, 1))
}
