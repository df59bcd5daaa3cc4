package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		t.Setenv("TEST_NEWSDATA_KEY", "secret-key")
		configContent := `
workers: 3
files:
  keywords: data/kw.csv
  rated: out/rated.csv
search:
  api_key: ${TEST_NEWSDATA_KEY}
  category: business
  timeout: 10s
analysis:
  provider: openai
  timeout: 45s
  openai:
    endpoint: http://localhost:11434/v1
    model: llama3
history:
  enabled: true
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o600)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 3, cfg.Workers)
		assert.Equal(t, "data/kw.csv", cfg.Files.Keywords)
		assert.Equal(t, "grcdata.csv", cfg.Files.Articles)
		assert.Equal(t, "out/rated.csv", cfg.Files.Rated)
		assert.Equal(t, "secret-key", cfg.Search.APIKey)
		assert.Equal(t, "business", cfg.Search.Category)
		assert.Equal(t, "en", cfg.Search.Language)
		assert.Equal(t, 10*time.Second, cfg.Search.Timeout)
		assert.Equal(t, AnalysisOpenAI, cfg.Analysis.Provider)
		assert.Equal(t, 45*time.Second, cfg.Analysis.Timeout)
		assert.Equal(t, "llama3", cfg.Analysis.OpenAI.Model)
		assert.Equal(t, "http://localhost:11434/v1", cfg.Analysis.OpenAI.Endpoint)
		require.NotNil(t, cfg.Analysis.OpenAI.Temperature)
		assert.InDelta(t, 0.3, *cfg.Analysis.OpenAI.Temperature, 0.0001)
		assert.True(t, cfg.History.Enabled)
	})

	t.Run("zero temperature kept", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(configPath, []byte("analysis:\n  openai:\n    temperature: 0\n"), 0o600))

		cfg, err := Load(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg.Analysis.OpenAI.Temperature)
		assert.Zero(t, *cfg.Analysis.OpenAI.Temperature)
	})

	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, 1, cfg.Workers)
		assert.Equal(t, "keywords.csv", cfg.Files.Keywords)
		assert.Equal(t, "grcdata.csv", cfg.Files.Articles)
		assert.Equal(t, "urls.csv", cfg.Files.URLs)
		assert.Equal(t, "grcdata_rated.csv", cfg.Files.Rated)
		assert.Equal(t, SearchNewsData, cfg.Search.Provider)
		assert.Equal(t, "technology", cfg.Search.Category)
		assert.Equal(t, 30*time.Second, cfg.Search.Timeout)
		assert.Equal(t, 5, cfg.Extraction.SummarySentences)
		assert.Equal(t, 10, cfg.Extraction.MaxKeywords)
		assert.Equal(t, AnalysisFabric, cfg.Analysis.Provider)
		assert.Equal(t, 30*time.Second, cfg.Analysis.Timeout)
		assert.Equal(t, "fabric", cfg.Analysis.Fabric.Command)
		assert.Equal(t, "label_and_rate", cfg.Analysis.Fabric.Pattern)
		assert.False(t, cfg.History.Enabled)
	})

	t.Run("file not found", func(t *testing.T) {
		cfg, err := Load("/non/existent/file.yml")
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.yml")
		err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0o600)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("invalid provider", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "bad.yml")
		err := os.WriteFile(configPath, []byte("search:\n  provider: bing\n"), 0o600)
		require.NoError(t, err)

		_, err = Load(configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown search provider "bing"`)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers must be at least 1"},
		{"short search timeout", func(c *Config) { c.Search.Timeout = time.Millisecond }, "search timeout"},
		{"short extraction timeout", func(c *Config) { c.Extraction.Timeout = time.Millisecond }, "extraction timeout"},
		{"short analysis timeout", func(c *Config) { c.Analysis.Timeout = 10 * time.Millisecond }, "analysis timeout"},
		{"unknown analysis", func(c *Config) { c.Analysis.Provider = "magic" }, "unknown analysis provider"},
		{"bad temperature", func(c *Config) {
			c.Analysis.Provider = AnalysisOpenAI
			temperature := 3.0
			c.Analysis.OpenAI.Temperature = &temperature
		}, "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.SetDefaults()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSchemaJSON(t *testing.T) {
	data, err := SchemaJSON()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Contains(t, string(data), "label_and_rate")
	assert.Contains(t, string(data), "summary_sentences")
}
