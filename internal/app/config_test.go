package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

var configKeys = []string{
	"REVIEWER_CONFIG", "PORT", "CHUNKS_DIR", "INDEX_DIR", "DEFAULT_EXAM_TYPE",
	"RETRIEVAL_TOP_K", "RETRIEVAL_MAX_DISTANCE", "OCR_ENABLED", "OCR_DPI",
	"CORS_ORIGINS", "EXTERNAL_CALL_TIMEOUT_SECONDS", "OPENAI_MODEL", "ANSWER_TEMPERATURE",
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t, configKeys...)

	cfg, err := LoadConfig(logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "NLE", cfg.DefaultExamType)
	assert.Equal(t, 3, cfg.RetrievalTopK)
	assert.InDelta(t, 0.75, cfg.RetrievalMaxDistance, 1e-9)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, 200, cfg.OCR.DPI)
	assert.Equal(t, 60*time.Second, cfg.CallTimeout())
	assert.InDelta(t, 0.4, cfg.AnswerTemperature, 1e-9)
}

func TestLoadConfigKeepsZeroAnswerTemperature(t *testing.T) {
	clearEnv(t, configKeys...)
	t.Setenv("ANSWER_TEMPERATURE", "0")

	cfg, err := LoadConfig(logger.NewNop())
	require.NoError(t, err)
	assert.Zero(t, cfg.AnswerTemperature)

	t.Setenv("ANSWER_TEMPERATURE", "-0.5")
	_, err = LoadConfig(logger.NewNop())
	require.Error(t, err)
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	clearEnv(t, configKeys...)

	path := filepath.Join(t.TempDir(), "reviewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
default_exam_type: mtle
retrieval_top_k: 5
chunks_dir: /srv/chunks
ocr:
  enabled: false
  dpi: 300
openai:
  model: gpt-4o
`), 0o644))

	t.Setenv("REVIEWER_CONFIG", path)
	t.Setenv("RETRIEVAL_TOP_K", "7")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig(logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, "MTLE", cfg.DefaultExamType)
	assert.Equal(t, 7, cfg.RetrievalTopK, "env wins over file")
	assert.Equal(t, "/srv/chunks", cfg.ChunksDir)
	assert.Equal(t, "data/index", cfg.IndexDir, "unset keys keep defaults")
	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	clearEnv(t, configKeys...)

	t.Setenv("DEFAULT_EXAM_TYPE", "../etc")
	_, err := LoadConfig(logger.NewNop())
	require.Error(t, err)

	t.Setenv("DEFAULT_EXAM_TYPE", "")
	t.Setenv("RETRIEVAL_MAX_DISTANCE", "-1")
	_, err = LoadConfig(logger.NewNop())
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearEnv(t, configKeys...)
	t.Setenv("REVIEWER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig(logger.NewNop())
	require.Error(t, err)
}

func TestDirWritable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, dirWritable(dir)(t.Context()))
	assert.Error(t, dirWritable(filepath.Join(dir, "nope"))(t.Context()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")
}
