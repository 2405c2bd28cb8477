package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port           int              `json:"port"`
	APIKey         string           `json:"api_key"`
	MaxUploadBytes int64            `json:"max_upload_bytes"`
	LogConfig      logger.LogConfig `json:"log_config"`
	Spool          SpoolConfig      `json:"spool"`
	OCR            OCRConfig        `json:"ocr"`
	Moderation     ModerationConfig `json:"moderation"`
	LLM            LLMConfig        `json:"llm"`
	Summary        SummaryConfig    `json:"summary"`
	Queue          QueueConfig      `json:"queue"`
}

type SpoolConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type OCRConfig struct {
	Endpoint       string `json:"endpoint"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxWorkers     int    `json:"max_workers"`
	MinTextLength  int    `json:"min_text_length"`
}

type ModerationConfig struct {
	Provider       string  `json:"provider"`
	ImageEndpoint  string  `json:"image_endpoint"`
	TextEndpoint   string  `json:"text_endpoint"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	ImageThreshold float64 `json:"image_threshold"`
	TextThreshold  float64 `json:"text_threshold"`
	ChunkTokens    int     `json:"chunk_tokens"`
}

type LLMConfig struct {
	Provider          string      `json:"provider"`
	Model             string      `json:"model"`
	MaxGPUConcurrency int         `json:"max_gpu_concurrency"`
	Data              interface{} `json:"data"`
}

type LevelBudget struct {
	MinTokens int     `json:"min_tokens"`
	MaxTokens int     `json:"max_tokens"`
	MinPct    float64 `json:"min_pct"`
	MaxPct    float64 `json:"max_pct"`
}

type SummaryConfig struct {
	SafeInputTokens      int                    `json:"safe_input_tokens"`
	PerChunkBudget       int                    `json:"per_chunk_budget"`
	SmallDirectThreshold int                    `json:"small_direct_threshold"`
	Budgets              map[string]LevelBudget `json:"budgets"`
	CacheSize            int                    `json:"cache_size"`
	CacheTTLMinutes      int                    `json:"cache_ttl_minutes"`
}

type QueueConfig struct {
	Capacity       int    `json:"capacity"`
	RetentionHours int    `json:"retention_hours"`
	CleanupSpec    string `json:"cleanup_spec"`
	WebhookSecret  string `json:"webhook_secret"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("llm.provider is required")
	}
	if cfg.LLM.Model == "" {
		return nil, fmt.Errorf("llm.model is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	if cfg.Spool.Type == "" {
		cfg.Spool.Type = "local"
	}
	applyOCRDefaults(&cfg.OCR)
	applyModerationDefaults(&cfg.Moderation)
	applyLLMDefaults(&cfg.LLM)
	applySummaryDefaults(&cfg.Summary)
	applyQueueDefaults(&cfg.Queue)
	return &cfg, nil
}

func applyOCRDefaults(c *OCRConfig) {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 120
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = 4
	}
	if c.MinTextLength == 0 {
		c.MinTextLength = 50
	}
}

func applyModerationDefaults(c *ModerationConfig) {
	if c.Provider == "" {
		c.Provider = "http"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 60
	}
	if c.ImageThreshold == 0 {
		c.ImageThreshold = 0.5
	}
	if c.TextThreshold == 0 {
		c.TextThreshold = 0.5
	}
	if c.ChunkTokens == 0 {
		c.ChunkTokens = 100
	}
}

func applyLLMDefaults(c *LLMConfig) {
	if c.MaxGPUConcurrency == 0 {
		c.MaxGPUConcurrency = 2
	}
}

func applySummaryDefaults(c *SummaryConfig) {
	if c.SafeInputTokens == 0 {
		c.SafeInputTokens = 3072
	}
	if c.PerChunkBudget == 0 {
		c.PerChunkBudget = 160
	}
	if c.SmallDirectThreshold == 0 {
		c.SmallDirectThreshold = 12000
	}
	if len(c.Budgets) == 0 {
		c.Budgets = DefaultBudgets()
	}
	if c.CacheSize == 0 {
		c.CacheSize = 256
	}
	if c.CacheTTLMinutes == 0 {
		c.CacheTTLMinutes = 120
	}
}

func applyQueueDefaults(c *QueueConfig) {
	if c.Capacity == 0 {
		c.Capacity = 128
	}
	if c.RetentionHours == 0 {
		c.RetentionHours = 24
	}
	if c.CleanupSpec == "" {
		c.CleanupSpec = "*/30 * * * *"
	}
}

// DefaultBudgets mirrors the tuning the summarizer ships with: output grows
// with the tier, percentages shrink as inputs get longer.
func DefaultBudgets() map[string]LevelBudget {
	return map[string]LevelBudget{
		"short":    {MinTokens: 64, MaxTokens: 160, MinPct: 0.02, MaxPct: 0.10},
		"medium":   {MinTokens: 128, MaxTokens: 320, MinPct: 0.04, MaxPct: 0.18},
		"detailed": {MinTokens: 192, MaxTokens: 512, MinPct: 0.06, MaxPct: 0.28},
	}
}
