package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MinimalConfigGetsDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"llm": {"provider": "ollama", "model": "qwen2.5:7b"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
	require.Equal(t, "local", cfg.Spool.Type)
	require.Equal(t, 120, cfg.OCR.TimeoutSeconds)
	require.Equal(t, "http", cfg.Moderation.Provider)
	require.Equal(t, 0.5, cfg.Moderation.ImageThreshold)
	require.Equal(t, 2, cfg.LLM.MaxGPUConcurrency)
	require.Equal(t, 3072, cfg.Summary.SafeInputTokens)
	require.Equal(t, 12000, cfg.Summary.SmallDirectThreshold)
	require.Len(t, cfg.Summary.Budgets, 3)
	require.Equal(t, 128, cfg.Queue.Capacity)
	require.Equal(t, 24, cfg.Queue.RetentionHours)
	require.Equal(t, "*/30 * * * *", cfg.Queue.CleanupSpec)
}

func TestLoad_RequiredFields(t *testing.T) {
	_, err := Load(writeConfig(t, `{"llm": {"provider": "ollama", "model": "m"}}`))
	require.ErrorContains(t, err, "port is required")

	_, err = Load(writeConfig(t, `{"port": 8080, "llm": {"model": "m"}}`))
	require.ErrorContains(t, err, "llm.provider is required")

	_, err = Load(writeConfig(t, `{"port": 8080, "llm": {"provider": "ollama"}}`))
	require.ErrorContains(t, err, "llm.model is required")
}

func TestLoad_ExplicitValuesSurviveDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9090,
		"api_key": "sekret",
		"llm": {"provider": "gemini", "model": "gemini-2.0-flash", "max_gpu_concurrency": 1},
		"summary": {
			"safe_input_tokens": 2048,
			"budgets": {"short": {"min_tokens": 32, "max_tokens": 96, "min_pct": 0.01, "max_pct": 0.05}}
		},
		"queue": {"capacity": 16, "retention_hours": 48}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "sekret", cfg.APIKey)
	require.Equal(t, 1, cfg.LLM.MaxGPUConcurrency)
	require.Equal(t, 2048, cfg.Summary.SafeInputTokens)
	require.Len(t, cfg.Summary.Budgets, 1)
	require.Equal(t, 96, cfg.Summary.Budgets["short"].MaxTokens)
	require.Equal(t, 16, cfg.Queue.Capacity)
	require.Equal(t, 48, cfg.Queue.RetentionHours)
}

func TestLoad_MissingOrInvalidFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `{not json`))
	require.Error(t, err)
}
