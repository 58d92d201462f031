package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"resumatch/internal/skills"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "config.yaml", "app:\n  logLevel: warn\n"))
	require.NoError(t, err)

	assert.Equal(t, skills.DefaultWeights(), cfg.Analysis.Weights)
	assert.Equal(t, "ngram", cfg.Analysis.Keyphrase.Strategy)
	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, "text", cfg.App.DefaultFormat)
	assert.Equal(t, 45*time.Second, cfg.Insight.Timeout)
	assert.False(t, cfg.Insight.Enabled)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, "resumatch.jobs", cfg.Worker.Queue)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestLoadConfigFileAndEnvironment(t *testing.T) {
	path := writeFile(t, "config.yaml", `
analysis:
  weights:
    technical: 80
    soft: 10
    operational: 10
  keyphrase:
    strategy: frequency
    topK: 25
server:
  port: "9000"
`)
	t.Setenv("RESUMATCH_SERVER_PORT", "9100")
	t.Setenv("RESUMATCH_SERVER_APIKEYS", "alpha, beta ,")
	t.Setenv("RESUMATCH_INSIGHT_ENABLED", "true")
	t.Setenv("RESUMATCH_INSIGHT_APIKEY", "sk-test")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, skills.Weights{Technical: 80, Soft: 10, Operational: 10}, cfg.Analysis.Weights)
	assert.Equal(t, 25, cfg.Analysis.Keyphrase.TopK)
	assert.Equal(t, "9100", cfg.Server.Port, "environment beats the file")
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Server.APIKeys)
	assert.True(t, cfg.Insight.Enabled)
	assert.Equal(t, "sk-test", cfg.Insight.APIKey)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "config.yaml", "app:\n  logLevel: loud\n"))
	assert.ErrorContains(t, err, "invalid configuration")

	_, err = LoadConfig(writeFile(t, "broken.yaml", "app: [\n"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig(writeFile(t, "config.yaml", "{}\n"))
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name: "negative weight",
			mutate: func(c *Config) {
				c.Analysis.Weights = skills.Weights{Technical: 60, Soft: -1, Operational: 20}
			},
			wantErr: "analysis weight for soft must be positive",
		},
		{
			name: "zero weight",
			mutate: func(c *Config) {
				c.Analysis.Weights = skills.Weights{Technical: 60, Soft: 40}
			},
			wantErr: "analysis weight for operational must be positive",
		},
		{
			name:    "insight enabled without key",
			mutate:  func(c *Config) { c.Insight.Enabled = true; c.Insight.APIKey = "" },
			wantErr: "insight API key is required",
		},
		{
			name:    "unknown default format",
			mutate:  func(c *Config) { c.App.DefaultFormat = "yaml" },
			wantErr: "invalid default format: yaml",
		},
		{
			name:    "unknown keyphrase strategy",
			mutate:  func(c *Config) { c.Analysis.Keyphrase.Strategy = "magic" },
			wantErr: "Strategy",
		},
		{
			name:    "worker concurrency below one",
			mutate:  func(c *Config) { c.Worker.Concurrency = 0 },
			wantErr: "Concurrency",
		},
		{
			name:    "missing taxonomy file",
			mutate:  func(c *Config) { c.Analysis.TaxonomyFile = filepath.Join(t.TempDir(), "nope.yaml") },
			wantErr: "taxonomy file",
		},
		{
			name:    "tls enabled without certificate",
			mutate:  func(c *Config) { c.Server.TLS.Mode = "server" },
			wantErr: "TLS configuration error: certFile is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewAnalyzerFromConfig(t *testing.T) {
	cfg := validConfig(t)

	a, err := cfg.NewAnalyzer()
	require.NoError(t, err)
	assert.Same(t, skills.DefaultTaxonomy(), a.Taxonomy())

	cfg.Analysis.TaxonomyFile = writeFile(t, "tax.yaml", `
categories:
  technical: [elixir]
  soft: [patience]
  operational: []
`)
	a, err = cfg.NewAnalyzer()
	require.NoError(t, err)
	assert.Equal(t, []string{"elixir"}, a.Analyze("Elixir daily", "Elixir and patience", cfg.Analysis.Weights).Matched)
}

func TestKeyphraseExtractor(t *testing.T) {
	cfg := validConfig(t)
	tax := skills.DefaultTaxonomy()

	cfg.Analysis.Keyphrase.MaxN = 1
	assert.Equal(t, skills.NGramExtractor{MaxN: tax.MaxSynonymWords()}, cfg.KeyphraseExtractor(tax))

	cfg.Analysis.Keyphrase.MaxN = 5
	assert.Equal(t, skills.NGramExtractor{MaxN: 5}, cfg.KeyphraseExtractor(tax))

	cfg.Analysis.Keyphrase = KeyphraseConfig{Strategy: "frequency", TopK: 7}
	assert.Equal(t, skills.FrequencyExtractor{TopK: 7}, cfg.KeyphraseExtractor(tax))
}
