package summary

import (
	"fmt"

	"github.com/readee-ai/docproc/internal/model"
)

// LevelBudget tunes the output budget curve for one summary tier.
type LevelBudget struct {
	MinTokens int
	MaxTokens int
	MinPct    float64
	MaxPct    float64
}

// BudgetFor computes the max-new-tokens budget for one tier from the input
// length. The curve pays out a generous percentage of short inputs and decays
// linearly to MinPct as the input approaches eight times the safe window, so
// long documents do not earn proportionally long summaries. Speed mode takes
// 30% off the final budget; tiny inputs (under 64 tokens) bypass the curve
// and the speed discount entirely.
func (b LevelBudget) BudgetFor(nIn, safeTokens int, speed bool) int {
	if nIn < 64 {
		budget := nIn
		if budget > b.MinTokens {
			budget = b.MinTokens
		}
		if budget < 16 {
			budget = 16
		}
		return budget
	}

	var pct float64
	switch {
	case nIn <= safeTokens:
		pct = b.MaxPct
	case nIn >= safeTokens*8:
		pct = b.MinPct
	default:
		ratio := float64(nIn-safeTokens) / float64(safeTokens*7)
		pct = b.MaxPct - (b.MaxPct-b.MinPct)*ratio
	}

	raw := int(float64(nIn) * pct)
	dynamicMin := nIn / 3
	if dynamicMin > b.MinTokens {
		dynamicMin = b.MinTokens
	}
	if dynamicMin < 32 {
		dynamicMin = 32
	}

	budget := raw
	if budget > b.MaxTokens {
		budget = b.MaxTokens
	}
	if budget < dynamicMin {
		budget = dynamicMin
	}

	if speed {
		budget = int(float64(budget) * 0.7)
		if budget < 32 {
			budget = 32
		}
	}
	return budget
}

// Budgets maps each tier to its curve parameters.
type Budgets map[model.Level]LevelBudget

func (b Budgets) Validate() error {
	for _, level := range model.Levels {
		spec, ok := b[level]
		if !ok {
			return fmt.Errorf("missing budget for level %s", level)
		}
		if spec.MinTokens <= 0 || spec.MaxTokens < spec.MinTokens {
			return fmt.Errorf("invalid token bounds for level %s", level)
		}
		if spec.MinPct <= 0 || spec.MaxPct < spec.MinPct {
			return fmt.Errorf("invalid percentage bounds for level %s", level)
		}
	}
	return nil
}

// ForAll computes per-tier budgets for one input length.
func (b Budgets) ForAll(nIn, safeTokens int, speed bool) map[model.Level]int {
	out := make(map[model.Level]int, len(model.Levels))
	for _, level := range model.Levels {
		out[level] = b[level].BudgetFor(nIn, safeTokens, speed)
	}
	return out
}
