package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 4, cfg.Crawler.Concurrency)
	require.Equal(t, 90*time.Second, cfg.Crawler.FetchTimeout)
	require.Equal(t, 100, cfg.Crawler.MinContentChars)
	require.Equal(t, 8000, cfg.Extract.ContentBudget)
	require.Equal(t, 3, cfg.Extract.MaxAttempts)
	require.Equal(t, 500, cfg.Ingest.BatchSize)
	require.Equal(t, 2.2, cfg.Retrieval.Threshold)
	require.Equal(t, 25, cfg.Retrieval.K)
	require.Equal(t, 0.4, cfg.Retrieval.SourceBonus)
	require.Equal(t, 0.3, cfg.Retrieval.ImageBonus)
	require.True(t, cfg.Assets.RequireImage)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
crawler:
  concurrency: 2
  headless: false
retrieval:
  threshold: 1.5
llm:
  model: test-model
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Crawler.Concurrency)
	require.False(t, cfg.Crawler.Headless)
	require.Equal(t, 1.5, cfg.Retrieval.Threshold)
	require.Equal(t, "test-model", cfg.LLM.Model)
	// Untouched sections keep their defaults.
	require.Equal(t, 25, cfg.Retrieval.K)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawler:\n  concurrency: 0\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "concurrency")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
