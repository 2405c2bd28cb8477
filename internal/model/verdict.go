package model

// ViolationType tells which moderation stage produced a violation.
type ViolationType string

const (
	ViolationImage ViolationType = "image"
	ViolationText  ViolationType = "text"
)

// Violation is a single policy hit mapped back to its source. Image
// violations carry the index into the extracted image batch; text violations
// additionally carry the offending chunk and a short snippet of it.
//
// Page numbers for DOCX sources are estimates (see document.DocxExtractor)
// and should be presented to consumers as approximate.
type Violation struct {
	Type              ViolationType `json:"type"`
	Index             int           `json:"index"`
	Prediction        string        `json:"prediction"`
	Confidence        float64       `json:"confidence"`
	ConfidencePercent float64       `json:"confidence_percent"`
	Page              int           `json:"page,omitempty"`
	Snippet           string        `json:"snippet,omitempty"`
	Chunk             string        `json:"chunk,omitempty"`
}

// Timings is per-stage wall-clock telemetry in milliseconds.
type Timings struct {
	OCRMs             float64 `json:"ocr_ms"`
	ImageModerationMs float64 `json:"image_moderation_ms"`
	TextModerationMs  float64 `json:"text_moderation_ms"`
	SummaryMs         float64 `json:"summary_ms"`
	TotalMs           float64 `json:"total_ms"`
}

// VerdictStatus is the outcome of the moderation gate.
type VerdictStatus string

const (
	VerdictPass VerdictStatus = "pass"
	VerdictFail VerdictStatus = "fail"
)

// PipelineVerdict is the final result of one document job: either a blocked
// verdict carrying the violation list, or a pass verdict carrying the
// three-tier summaries. Exactly one of Violations / Summaries is populated.
type PipelineVerdict struct {
	Status     VerdictStatus  `json:"status"`
	Violations []Violation    `json:"violations"`
	Summaries  *SummaryResult `json:"summaries,omitempty"`
	Timings    Timings        `json:"timings"`
}

func (v *PipelineVerdict) Blocked() bool {
	return v != nil && v.Status == VerdictFail
}
