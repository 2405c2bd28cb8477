package summary

import (
	"context"
	"strings"
	"time"

	"github.com/readee-ai/docproc/internal/llm"
	"github.com/readee-ai/docproc/internal/model"
)

// Driver turns summary requests into generation calls: it owns the prompts,
// the triple-marker parsing, and the output-token accounting. Concurrency
// and cache hygiene live one layer up in the Summarizer.
type Driver struct {
	gen llm.Generator
	tok llm.Tokenizer
}

func NewDriver(gen llm.Generator, tok llm.Tokenizer) *Driver {
	return &Driver{gen: gen, tok: tok}
}

// GenerateLevel produces one tier's summary under the given budget.
func (d *Driver) GenerateLevel(ctx context.Context, level model.Level, text string, budget int) (model.LevelSummary, int64, error) {
	start := time.Now()
	resp, err := d.gen.Generate(ctx, llm.GenerateRequest{
		System:       systemPrompt,
		Prompt:       singlePrompt(level, text),
		MaxNewTokens: budget,
	})
	if err != nil {
		return model.LevelSummary{}, 0, err
	}
	elapsed := time.Since(start).Milliseconds()

	out := model.LevelSummary{
		Text:         strings.TrimSpace(resp.Text),
		OutputTokens: resp.OutputTokens,
	}
	if out.OutputTokens == 0 {
		out.OutputTokens = d.tok.Count(out.Text)
	}
	return out, elapsed, nil
}

// GenerateTriple produces all three tiers in one generation call, bounded by
// the summed budgets plus slack for the section markers. A missing detailed
// section is reconstructed from the bulleted tiers; per-tier token counts
// are recounted from the extracted text and clamped to that tier's budget.
func (d *Driver) GenerateTriple(ctx context.Context, text string, budgets map[model.Level]int) (map[model.Level]model.LevelSummary, int64, error) {
	maxNew := 32
	for _, b := range budgets {
		maxNew += b
	}

	start := time.Now()
	resp, err := d.gen.Generate(ctx, llm.GenerateRequest{
		System:       systemPrompt,
		Prompt:       triplePrompt(text),
		MaxNewTokens: maxNew,
	})
	if err != nil {
		return nil, 0, err
	}
	elapsed := time.Since(start).Milliseconds()

	full := resp.Text
	results := map[model.Level]model.LevelSummary{
		model.LevelShort:    {Text: extractSection(full, markerShort, markerMedium)},
		model.LevelMedium:   {Text: extractSection(full, markerMedium, markerDetailed)},
		model.LevelDetailed: {Text: extractSection(full, markerDetailed, "")},
	}

	if results[model.LevelDetailed].Text == "" {
		source := results[model.LevelMedium].Text
		if source == "" {
			source = results[model.LevelShort].Text
		}
		results[model.LevelDetailed] = model.LevelSummary{Text: bulletsToParagraphs(source)}
	}

	for _, level := range model.Levels {
		entry := results[level]
		entry.OutputTokens = d.tok.Count(entry.Text)
		if budget := budgets[level]; budget > 0 && entry.OutputTokens > budget {
			entry.OutputTokens = budget
		}
		results[level] = entry
	}
	return results, elapsed, nil
}

// extractSection returns the trimmed text between two markers. A missing
// start marker yields ""; a missing end marker extends to the end of the
// generation.
func extractSection(full, startMarker, endMarker string) string {
	startIdx := strings.Index(full, startMarker)
	if startIdx == -1 {
		return ""
	}
	startIdx += len(startMarker)
	segment := full[startIdx:]
	if endMarker != "" {
		if endIdx := strings.Index(segment, endMarker); endIdx != -1 {
			segment = segment[:endIdx]
		}
	}
	return strings.TrimSpace(segment)
}
