package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	t.Parallel()

	require.NoError(t, Default().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"embedding provider", func(c *Config) { c.Embedding.Provider = "word2vec" }},
		{"llm provider", func(c *Config) { c.Analysis.LLMProvider = "bard" }},
		{"anchor strategy", func(c *Config) { c.Anchors.Strategy = "random" }},
		{"ranking batch", func(c *Config) { c.Ranking.BatchSize = 0 }},
		{"ranking concurrency", func(c *Config) { c.Ranking.Concurrency = -1 }},
		{"analysis batch", func(c *Config) { c.Analysis.BatchSize = 0 }},
		{"threshold", func(c *Config) { c.CrossLink.Threshold = 1.5 }},
		{"notify provider", func(c *Config) { c.Notify.Provider = "pager" }},
		{"timeout", func(c *Config) { c.Schedule.Timeout = "soon" }},
		{"negative timeout", func(c *Config) { c.Schedule.Timeout = "-5m" }},
		{"smtp without host", func(c *Config) { c.Notify.Provider = NotifySMTP; c.Notify.ToAddr = "a@example.com" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestScheduleConfig_JobTimeout(t *testing.T) {
	t.Parallel()

	d, err := Default().Schedule.JobTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, d)

	d, err = ScheduleConfig{}.JobTimeout()
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = ScheduleConfig{Timeout: "90"}.JobTimeout()
	require.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Anchors.Strategy = AnchorsRoots
	cfg.Embedding.Provider = EmbeddingOllama
	cfg.Output.Database = "/tmp/narratives.db"

	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[anchors]\ntop_k = 3\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Anchors.TopK)
	assert.Equal(t, AnchorsTopK, cfg.Anchors.Strategy)
	assert.Equal(t, "en", cfg.Input.Language)
	assert.Equal(t, 256, cfg.Ranking.BatchSize)
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
