package model

// Level is a summary granularity tier.
type Level string

const (
	LevelShort    Level = "short"
	LevelMedium   Level = "medium"
	LevelDetailed Level = "detailed"
)

// Levels lists the tiers in generation order.
var Levels = []Level{LevelShort, LevelMedium, LevelDetailed}

func ValidLevel(l Level) bool {
	switch l {
	case LevelShort, LevelMedium, LevelDetailed:
		return true
	}
	return false
}

// LevelSummary is one generated summary plus its decoded token count,
// clamped to the level's budget.
type LevelSummary struct {
	Text         string `json:"text"`
	OutputTokens int    `json:"output_tokens"`
}

// SummaryResult is the outcome of one summarization call.
type SummaryResult struct {
	InputTokens int                    `json:"input_tokens"`
	Budgets     map[Level]int          `json:"budgets"`
	RuntimeMs   int64                  `json:"runtime_ms_total"`
	Results     map[Level]LevelSummary `json:"results"`
}

// SingleResult is the outcome of a per-level summarization call.
type SingleResult struct {
	InputTokens int          `json:"input_tokens"`
	Budget      int          `json:"budget"`
	Result      LevelSummary `json:"result"`
	RuntimeMs   int64        `json:"runtime_ms"`
}
