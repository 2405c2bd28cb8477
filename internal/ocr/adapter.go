package ocr

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/readee-ai/docproc/internal/document"
	"github.com/readee-ai/docproc/internal/model"
)

const (
	// DefaultMinTextLength is the minimum direct-text length below which a
	// page is assumed to be scanned or to hide its content inside images.
	DefaultMinTextLength = 50
	// DefaultMaxWorkers bounds concurrent per-page OCR calls.
	DefaultMaxWorkers = 4
)

// Adapter decides which pages of an extracted document need OCR, runs the
// engine over those pages with bounded concurrency, and merges the results:
// per flagged page the longer text wins (ties favor direct extraction,
// which needs no lossy re-rendering). If the engine is unavailable the
// document proceeds with whatever direct text exists.
type Adapter struct {
	engine        Engine
	minTextLength int
	maxWorkers    int
}

func NewAdapter(engine Engine, minTextLength, maxWorkers int) *Adapter {
	if minTextLength <= 0 {
		minTextLength = DefaultMinTextLength
	}
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	return &Adapter{engine: engine, minTextLength: minTextLength, maxWorkers: maxWorkers}
}

// PagesNeedingOCR flags pages whose direct text is shorter than the
// configured minimum, in page order.
func (a *Adapter) PagesNeedingOCR(doc *model.ExtractedDocument) []int {
	var pages []int
	for page := range doc.PageRanges {
		if len(strings.TrimSpace(doc.PageText(page))) < a.minTextLength {
			pages = append(pages, page)
		}
	}
	sort.Ints(pages)
	return pages
}

// Merge returns the document with flagged pages OCR'd and merged in. The
// returned document shares images with the input; full text and page ranges
// are recomputed when any page was OCR'd.
func (a *Adapter) Merge(ctx context.Context, path string, doc *model.ExtractedDocument) *model.ExtractedDocument {
	logger := logutil.GetLogger(ctx)

	flagged := a.PagesNeedingOCR(doc)
	total := doc.PageCount()
	logger.Info("page ocr decision",
		zap.Int("total_pages", total),
		zap.Int("pages_needing_ocr", len(flagged)),
	)
	if len(flagged) == 0 || a.engine == nil {
		if len(flagged) > 0 {
			logger.Warn("ocr engine unavailable, proceeding with direct text only")
		}
		return doc
	}

	ocrTexts := a.runPages(ctx, path, flagged)

	flaggedSet := make(map[int]struct{}, len(flagged))
	for _, p := range flagged {
		flaggedSet[p] = struct{}{}
	}

	pages := make([]string, total)
	for page := 1; page <= total; page++ {
		direct := strings.TrimSpace(doc.PageText(page))
		if _, ok := flaggedSet[page]; !ok {
			pages[page-1] = direct
			continue
		}
		ocrText := strings.TrimSpace(ocrTexts[page])
		if len(ocrText) > len(direct) {
			pages[page-1] = ocrText
			logger.Debug("page merged from ocr",
				zap.Int("page", page),
				zap.Int("ocr_chars", len(ocrText)),
				zap.Int("direct_chars", len(direct)),
			)
			continue
		}
		// OCR did not improve on direct extraction (or failed entirely).
		if direct != "" {
			pages[page-1] = direct
		} else {
			pages[page-1] = ocrText
		}
	}

	full, ranges := document.BuildPageText(pages)
	logger.Info("page ocr merge completed",
		zap.Int("pages_from_ocr", len(flagged)),
		zap.Int("text_chars", len(full)),
	)
	return &model.ExtractedDocument{
		Format:     doc.Format,
		FullText:   full,
		PageRanges: ranges,
		Images:     doc.Images,
	}
}

// runPages OCRs the given pages with bounded concurrency. A page whose OCR
// call fails is simply absent from the result; the caller falls back to the
// page's direct text.
func (a *Adapter) runPages(ctx context.Context, path string, pages []int) map[int]string {
	logger := logutil.GetLogger(ctx)

	var mu sync.Mutex
	out := make(map[int]string, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxWorkers)
	for _, page := range pages {
		g.Go(func() error {
			text, err := a.engine.Page(gctx, path, page)
			if err != nil {
				logger.Warn("page ocr failed, falling back to direct text",
					zap.Int("page", page),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			out[page] = text
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
