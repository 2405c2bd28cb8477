package summary

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/readee-ai/docproc/internal/llm"
	"github.com/readee-ai/docproc/internal/model"
)

func fullTestBudgets() Budgets {
	return Budgets{
		model.LevelShort:    {MinTokens: 64, MaxTokens: 160, MinPct: 0.02, MaxPct: 0.10},
		model.LevelMedium:   {MinTokens: 128, MaxTokens: 320, MinPct: 0.04, MaxPct: 0.18},
		model.LevelDetailed: {MinTokens: 192, MaxTokens: 512, MinPct: 0.06, MaxPct: 0.28},
	}
}

// respondByPrompt answers map-phase (single level) prompts with a stub
// partial and the final triple prompt with marked sections.
func respondByPrompt(req llm.GenerateRequest) (string, error) {
	if strings.Contains(req.Prompt, markerShort) {
		return tripleOutput("- short", "- medium", "Detailed paragraph."), nil
	}
	return "partial summary text", nil
}

func newTestSummarizer(t *testing.T, gen llm.Generator, opts Options) *Summarizer {
	t.Helper()
	if opts.Budgets == nil {
		opts.Budgets = fullTestBudgets()
	}
	s, err := New(gen, llm.NewHeuristicTokenizer(), opts)
	require.NoError(t, err)
	return s
}

func TestSummarizeTriple_SmallInputGoesDirect(t *testing.T) {
	gen := &fakeGenerator{respond: respondByPrompt}
	s := newTestSummarizer(t, gen, Options{})

	text := strings.Repeat("plain words here ", 20)
	res, err := s.SummarizeTriple(context.Background(), text, false)
	require.NoError(t, err)
	require.Len(t, gen.reqs, 1, "small input must be a single triple call")
	require.Equal(t, 60, res.InputTokens)
	require.Equal(t, "- short", res.Results[model.LevelShort].Text)
	require.Len(t, res.Budgets, 3)
}

func TestSummarizeTriple_LargeInputRunsMapPhase(t *testing.T) {
	gen := &fakeGenerator{respond: respondByPrompt}
	s := newTestSummarizer(t, gen, Options{
		SafeInputTokens:      100,
		SmallDirectThreshold: 200,
	})

	words := make([]string, 1000)
	for i := range words {
		words[i] = "tok"
	}
	text := strings.Join(words, " ")

	res, err := s.SummarizeTriple(context.Background(), text, false)
	require.NoError(t, err)

	// 1000 tokens in windows of 100 with 48 overlap -> 19 map calls,
	// plus the final triple call.
	require.Len(t, gen.reqs, 20)
	for _, req := range gen.reqs[:19] {
		require.NotContains(t, req.Prompt, markerShort)
	}
	require.Contains(t, gen.reqs[19].Prompt, markerShort)

	// input tokens are recounted over the joined partials
	require.Equal(t, 19*3, res.InputTokens)
}

func TestSummarizeTriple_MapPhaseBudgetShrinksWithChunkCount(t *testing.T) {
	gen := &fakeGenerator{respond: respondByPrompt}
	s := newTestSummarizer(t, gen, Options{
		SafeInputTokens:      100,
		SmallDirectThreshold: 200,
		PerChunkBudget:       160,
	})

	words := make([]string, 1000)
	for i := range words {
		words[i] = "tok"
	}
	_, err := s.SummarizeTriple(context.Background(), strings.Join(words, " "), false)
	require.NoError(t, err)

	// 19 chunks falls in the ">12" bracket: 160 * 0.5 = 80
	for _, req := range gen.reqs[:19] {
		require.Equal(t, 80, req.MaxNewTokens)
	}
}

func TestSummarizeTriple_HugeInputForcesSpeed(t *testing.T) {
	gen := &fakeGenerator{respond: respondByPrompt}
	s := newTestSummarizer(t, gen, Options{
		SafeInputTokens:      10,
		SmallDirectThreshold: 100000,
	})

	// above 10*SafeInputTokens but below the direct threshold, so the
	// speed discount must show up in the final budgets
	words := make([]string, 200)
	for i := range words {
		words[i] = "tok"
	}
	res, err := s.SummarizeTriple(context.Background(), strings.Join(words, " "), false)
	require.NoError(t, err)

	budgets := fullTestBudgets()
	for _, level := range model.Levels {
		normal := budgets[level].BudgetFor(res.InputTokens, 10, false)
		forced := budgets[level].BudgetFor(res.InputTokens, 10, true)
		require.Equal(t, forced, res.Budgets[level])
		require.LessOrEqual(t, res.Budgets[level], normal)
	}
}

func TestSummarizeSingle_UnknownLevel(t *testing.T) {
	gen := &fakeGenerator{respond: respondByPrompt}
	s := newTestSummarizer(t, gen, Options{})

	_, err := s.SummarizeSingle(context.Background(), model.Level("verbose"), "text", false)
	require.Error(t, err)
}

func TestSummarizeSingle_ReturnsBudgetAndResult(t *testing.T) {
	gen := &fakeGenerator{respond: func(llm.GenerateRequest) (string, error) {
		return "- point one\n- point two", nil
	}}
	s := newTestSummarizer(t, gen, Options{})

	text := strings.Repeat("word ", 200)
	res, err := s.SummarizeSingle(context.Background(), model.LevelShort, text, false)
	require.NoError(t, err)
	require.Equal(t, 200, res.InputTokens)
	require.Equal(t, res.Budget, gen.reqs[0].MaxNewTokens)
	require.Equal(t, "- point one\n- point two", res.Result.Text)
}

func TestWrapLRUCache_MemoizesByTextAndSpeed(t *testing.T) {
	var calls atomic.Int64
	gen := &fakeGenerator{respond: func(req llm.GenerateRequest) (string, error) {
		calls.Add(1)
		return tripleOutput("- s", "- m", "D."), nil
	}}
	s := newTestSummarizer(t, gen, Options{})
	cached := WrapLRUCache(s, 8, time.Minute)

	ctx := context.Background()
	_, err := cached.SummarizeTriple(ctx, "same document text", false)
	require.NoError(t, err)
	_, err = cached.SummarizeTriple(ctx, "same document text", false)
	require.NoError(t, err)
	require.Equal(t, int64(1), calls.Load(), "identical request must hit the cache")

	_, err = cached.SummarizeTriple(ctx, "same document text", true)
	require.NoError(t, err)
	require.Equal(t, int64(2), calls.Load(), "speed flag is part of the key")
}
