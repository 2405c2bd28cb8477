package pipeline

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/readee-ai/docproc/internal/document"
	"github.com/readee-ai/docproc/internal/model"
	"github.com/readee-ai/docproc/internal/moderation"
	"github.com/readee-ai/docproc/internal/ocr"
	"github.com/readee-ai/docproc/internal/spool"
	"github.com/readee-ai/docproc/internal/summary"
)

const snippetLen = 200

// Options carries the moderation tuning the orchestrator applies on top of
// the classifier's own decisions.
type Options struct {
	ImageThreshold float64
	TextThreshold  float64
	ChunkTokens    int
}

// Orchestrator runs one document through the full verdict pipeline:
// extraction (with OCR merge for thin pages), concurrent image and text
// moderation, and tiered summarization for documents that pass the gate.
// Violations resolve image-first and stop at the first hit per stage, so a
// verdict carries at most one violation.
type Orchestrator struct {
	pdf   *document.PDFExtractor
	docx  *document.DocxExtractor
	ocr   *ocr.Adapter
	mod   moderation.Provider
	sum   summary.Triple
	store spool.Store
	opts  Options
}

func New(ocrAdapter *ocr.Adapter, mod moderation.Provider, sum summary.Triple, store spool.Store, opts Options) *Orchestrator {
	if opts.ImageThreshold <= 0 {
		opts.ImageThreshold = 0.5
	}
	if opts.TextThreshold <= 0 {
		opts.TextThreshold = 0.5
	}
	if opts.ChunkTokens <= 0 {
		opts.ChunkTokens = 100
	}
	return &Orchestrator{
		pdf:   document.NewPDFExtractor(),
		docx:  document.NewDocxExtractor(),
		ocr:   ocrAdapter,
		mod:   mod,
		sum:   sum,
		store: store,
		opts:  opts,
	}
}

// Process runs the pipeline over a spooled document. The spooled source and
// any staging copy are removed on every exit path.
func (o *Orchestrator) Process(ctx context.Context, key, filename string, speed bool) (*model.PipelineVerdict, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("filename", filename))
	start := time.Now()

	path, cleanup, err := o.store.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch spooled document: %w", err)
	}
	defer func() {
		cleanup()
		if rerr := o.store.Remove(ctx, key); rerr != nil {
			logger.Warn("remove spooled document failed", zap.Error(rerr))
		}
	}()

	var timings model.Timings

	t0 := time.Now()
	doc, err := o.extract(ctx, path, filename)
	if err != nil {
		return nil, err
	}
	timings.OCRMs = msSince(t0)
	logger.Info("document extracted",
		zap.Int("pages", doc.PageCount()),
		zap.Int("images", len(doc.Images)),
		zap.Int("text_chars", len(doc.FullText)),
	)

	violations := o.moderate(ctx, doc, &timings)
	if len(violations) > 0 {
		timings.TotalMs = msSince(start)
		logger.Info("document blocked",
			zap.String("violation_type", string(violations[0].Type)),
			zap.Float64("total_ms", timings.TotalMs),
		)
		return &model.PipelineVerdict{
			Status:     model.VerdictFail,
			Violations: violations,
			Timings:    timings,
		}, nil
	}

	t3 := time.Now()
	summaries, err := o.sum.SummarizeTriple(ctx, doc.FullText, speed)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	timings.SummaryMs = msSince(t3)
	timings.TotalMs = msSince(start)

	logger.Info("document processed", zap.Float64("total_ms", timings.TotalMs))
	return &model.PipelineVerdict{
		Status:     model.VerdictPass,
		Violations: []model.Violation{},
		Summaries:  summaries,
		Timings:    timings,
	}, nil
}

func (o *Orchestrator) extract(ctx context.Context, path, filename string) (*model.ExtractedDocument, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return o.extractPDF(ctx, path)
	case ".docx":
		return o.docx.Extract(ctx, path)
	}
	return nil, fmt.Errorf("unsupported document format: %s", filepath.Ext(filename))
}

// extractPDF pulls text and images concurrently, then routes thin pages
// through OCR.
func (o *Orchestrator) extractPDF(ctx context.Context, path string) (*model.ExtractedDocument, error) {
	var (
		fullText string
		ranges   model.PageRanges
		images   []model.DocImage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fullText, ranges, err = o.pdf.ExtractText(gctx, path)
		return err
	})
	g.Go(func() error {
		var err error
		images, err = o.pdf.ExtractImages(gctx, path)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract pdf: %w", err)
	}

	doc := &model.ExtractedDocument{
		Format:     model.FormatPDF,
		FullText:   fullText,
		PageRanges: ranges,
		Images:     images,
	}
	return o.ocr.Merge(ctx, path, doc), nil
}

// moderate fans out image and text classification concurrently. A failed
// classifier stage is logged and contributes no violations rather than
// failing the job; image violations take priority and each stage stops at
// its first hit.
func (o *Orchestrator) moderate(ctx context.Context, doc *model.ExtractedDocument, timings *model.Timings) []model.Violation {
	logger := logutil.GetLogger(ctx)

	var (
		wg        sync.WaitGroup
		imgPreds  []moderation.Prediction
		txtPreds  []moderation.Prediction
		txtChunks []moderation.Chunk
	)

	if len(doc.Images) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t := time.Now()
			preds, err := o.mod.PredictImages(ctx, doc.Images)
			timings.ImageModerationMs = msSince(t)
			if err != nil {
				logger.Warn("image moderation unavailable, skipping", zap.Error(err))
				return
			}
			imgPreds = preds
		}()
	}

	if strings.TrimSpace(doc.FullText) != "" {
		txtChunks = moderation.ChunkText(doc.FullText, o.opts.ChunkTokens)
	}
	if len(txtChunks) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			texts := make([]string, len(txtChunks))
			for i, c := range txtChunks {
				texts[i] = c.Content
			}
			t := time.Now()
			preds, err := o.mod.PredictTexts(ctx, texts)
			timings.TextModerationMs = msSince(t)
			if err != nil {
				logger.Warn("text moderation unavailable, skipping", zap.Error(err))
				return
			}
			txtPreds = preds
		}()
	}
	wg.Wait()

	for idx, pred := range imgPreds {
		if pred.IsToxic && pred.Confidence >= o.opts.ImageThreshold {
			return []model.Violation{{
				Type:              model.ViolationImage,
				Index:             idx,
				Prediction:        pred.Prediction,
				Confidence:        pred.Confidence,
				ConfidencePercent: toPercent(pred.Confidence),
				Page:              doc.Images[idx].Page,
			}}
		}
	}
	for idx, pred := range txtPreds {
		if pred.IsToxic && pred.Confidence >= o.opts.TextThreshold {
			chunk := txtChunks[idx]
			return []model.Violation{{
				Type:              model.ViolationText,
				Index:             idx,
				Prediction:        pred.Prediction,
				Confidence:        pred.Confidence,
				ConfidencePercent: toPercent(pred.Confidence),
				Page:              doc.PageRanges.PageFor(chunk.Start),
				Snippet:           snippet(chunk.Content),
				Chunk:             chunk.Content,
			}}
		}
	}
	return nil
}

func snippet(s string) string {
	if len(s) <= snippetLen {
		return s
	}
	// back off to a rune boundary
	cut := snippetLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func toPercent(confidence float64) float64 {
	return math.Round(confidence*10000) / 100
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
