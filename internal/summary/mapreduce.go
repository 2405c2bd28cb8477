package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/readee-ai/docproc/internal/llm"
	"github.com/readee-ai/docproc/internal/model"
)

const (
	// DefaultSafeInputTokens is the largest input the model digests in one
	// pass; longer inputs go through map-reduce.
	DefaultSafeInputTokens = 3072
	// DefaultPerChunkBudget caps each map-phase partial summary.
	DefaultPerChunkBudget = 160
	// DefaultSmallDirectThreshold is the input size above which map-reduce
	// kicks in.
	DefaultSmallDirectThreshold = 12000
)

// Options tunes the summarizer. Zero values fall back to defaults; Budgets
// must cover all three tiers.
type Options struct {
	SafeInputTokens      int
	PerChunkBudget       int
	SmallDirectThreshold int
	MaxGPUConcurrency    int
	Budgets              Budgets
}

// Summarizer produces tiered document summaries. Inputs above the direct
// threshold are first reduced by a map phase (short partial summaries over
// overlapping token windows, rejoined with blank lines); inputs above ten
// safe windows additionally force speed mode. All device work runs under the
// GPU gate, and the backend cache is released after the map phase and after
// every final generation, success or failure.
type Summarizer struct {
	driver *Driver
	gen    llm.Generator
	tok    llm.Tokenizer
	gate   *Gate
	opts   Options
}

func New(gen llm.Generator, tok llm.Tokenizer, opts Options) (*Summarizer, error) {
	if opts.SafeInputTokens <= 0 {
		opts.SafeInputTokens = DefaultSafeInputTokens
	}
	if opts.PerChunkBudget <= 0 {
		opts.PerChunkBudget = DefaultPerChunkBudget
	}
	if opts.SmallDirectThreshold <= 0 {
		opts.SmallDirectThreshold = DefaultSmallDirectThreshold
	}
	if err := opts.Budgets.Validate(); err != nil {
		return nil, fmt.Errorf("summary budgets: %w", err)
	}
	return &Summarizer{
		driver: NewDriver(gen, tok),
		gen:    gen,
		tok:    tok,
		gate:   NewGate(opts.MaxGPUConcurrency),
		opts:   opts,
	}, nil
}

// SummarizeTriple produces all three tiers in one generation pass.
func (s *Summarizer) SummarizeTriple(ctx context.Context, text string, speed bool) (*model.SummaryResult, error) {
	var out *model.SummaryResult
	err := s.gate.Do(ctx, func(ctx context.Context) error {
		res, err := s.summarizeTriple(ctx, text, speed)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

func (s *Summarizer) summarizeTriple(ctx context.Context, text string, speed bool) (*model.SummaryResult, error) {
	logger := logutil.GetLogger(ctx)

	base, nIn, effSpeed, err := s.prepareInput(ctx, text, speed)
	if err != nil {
		return nil, err
	}

	budgets := s.opts.Budgets.ForAll(nIn, s.opts.SafeInputTokens, effSpeed)

	results, runtimeMs, err := s.driver.GenerateTriple(ctx, base, budgets)
	s.gen.ReleaseCache(ctx)
	if err != nil {
		if llm.IsOOM(err) {
			logger.Error("device out of memory during summary generation",
				zap.Int("input_tokens", nIn),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("triple summary: %w", err)
	}

	logger.Info("triple summary completed",
		zap.Int("input_tokens", nIn),
		zap.Bool("speed", effSpeed),
		zap.Int64("runtime_ms", runtimeMs),
	)
	return &model.SummaryResult{
		InputTokens: nIn,
		Budgets:     budgets,
		RuntimeMs:   runtimeMs,
		Results:     results,
	}, nil
}

// SummarizeSingle produces one tier only.
func (s *Summarizer) SummarizeSingle(ctx context.Context, level model.Level, text string, speed bool) (*model.SingleResult, error) {
	if !model.ValidLevel(level) {
		return nil, fmt.Errorf("unknown summary level: %s", level)
	}

	var out *model.SingleResult
	err := s.gate.Do(ctx, func(ctx context.Context) error {
		logger := logutil.GetLogger(ctx)

		base, nIn, effSpeed, err := s.prepareInput(ctx, text, speed)
		if err != nil {
			return err
		}

		budget := s.opts.Budgets[level].BudgetFor(nIn, s.opts.SafeInputTokens, effSpeed)
		result, runtimeMs, err := s.driver.GenerateLevel(ctx, level, base, budget)
		s.gen.ReleaseCache(ctx)
		if err != nil {
			if llm.IsOOM(err) {
				logger.Error("device out of memory during summary generation",
					zap.Int("input_tokens", nIn),
					zap.Error(err),
				)
			}
			return fmt.Errorf("%s summary: %w", level, err)
		}

		out = &model.SingleResult{
			InputTokens: nIn,
			Budget:      budget,
			Result:      result,
			RuntimeMs:   runtimeMs,
		}
		return nil
	})
	return out, err
}

// prepareInput cleans the text, decides between direct and map-reduce paths,
// and returns the generation input, its token count, and the effective speed
// flag (forced on for huge inputs).
func (s *Summarizer) prepareInput(ctx context.Context, text string, speed bool) (string, int, bool, error) {
	cleaned := Preclean(text)
	nIn := s.tok.Count(cleaned)

	hugeThreshold := s.opts.SafeInputTokens * 10
	effSpeed := speed || nIn > hugeThreshold
	if nIn <= s.opts.SmallDirectThreshold {
		return cleaned, nIn, effSpeed, nil
	}

	combined, combinedTokens, err := s.buildPartials(ctx, cleaned, effSpeed)
	if err != nil {
		return "", 0, false, err
	}
	// The map phase leaves the whole document resident in the backend cache.
	s.gen.ReleaseCache(ctx)
	return combined, combinedTokens, effSpeed, nil
}

// buildPartials is the map phase: short summaries over overlapping token
// windows, each under a per-chunk budget that shrinks as the chunk count
// grows, rejoined with blank lines.
func (s *Summarizer) buildPartials(ctx context.Context, cleaned string, speed bool) (string, int, error) {
	logger := logutil.GetLogger(ctx)

	tokens := s.tok.Encode(cleaned)
	chunks := SplitTokens(tokens, s.opts.SafeInputTokens, chunkOverlap)

	base := s.opts.PerChunkBudget
	if base > 160 {
		base = 160
	}
	perChunk := base
	switch {
	case len(chunks) <= 4:
	case len(chunks) <= 12:
		perChunk = int(float64(base) * 0.75)
	default:
		perChunk = base / 2
	}
	if speed {
		perChunk = int(float64(perChunk) * 0.7)
	}
	if perChunk < 48 {
		perChunk = 48
	}

	logger.Info("map phase started",
		zap.Int("chunks", len(chunks)),
		zap.Int("per_chunk_budget", perChunk),
	)

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		chunkText := s.tok.Decode(chunk)
		res, _, err := s.driver.GenerateLevel(ctx, model.LevelShort, chunkText, perChunk)
		if err != nil {
			return "", 0, fmt.Errorf("map phase chunk %d/%d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, res.Text)
	}

	combined := strings.Join(partials, "\n\n")
	return combined, s.tok.Count(combined), nil
}
