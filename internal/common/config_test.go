package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medguard.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNewDefaultConfig_Valid(t *testing.T) {
	config := NewDefaultConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, 8085, config.Server.Port)
	assert.True(t, config.Redaction.RedactQuestions)
	assert.False(t, config.Redaction.Presidio.Enabled)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
	assert.Empty(t, config.Claude.APIKey)
	assert.Empty(t, config.Gemini.APIKey)
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	first := writeConfig(t, `
[server]
port = 9000
host = "0.0.0.0"

[sessions]
max_sessions = 10
`)
	second := writeConfig(t, `
[server]
port = 9100
`)

	config, err := LoadFromFiles(first, "", second)
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 10, config.Sessions.MaxSessions)
	// untouched sections keep defaults
	assert.Equal(t, "2h", config.Sessions.IdleTimeout)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("MEDGUARD_SERVER_PORT", "9200")
	t.Setenv("MEDGUARD_LOG_OUTPUT", "stdout, console")
	t.Setenv("MEDGUARD_PRESIDIO_ENABLED", "true")
	t.Setenv("MEDGUARD_ASSISTANT_PROVIDER", "gemini")
	t.Setenv("MEDGUARD_BADGER_ENABLED", "not-a-bool")

	config, err := LoadFromFiles(writeConfig(t, "[server]\nport = 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9200, config.Server.Port)
	assert.Equal(t, []string{"stdout", "console"}, config.Logging.Output)
	assert.True(t, config.Redaction.Presidio.Enabled)
	assert.Equal(t, LLMProviderGemini, config.Assistant.Provider)
	assert.True(t, config.Storage.Badger.Enabled)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadFromFiles(writeConfig(t, "[server\nport = 1"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad environment", func(c *Config) { c.Environment = "staging" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad provider", func(c *Config) { c.Assistant.Provider = "openai" }},
		{"bad presidio endpoint", func(c *Config) { c.Redaction.Presidio.Endpoint = "not a url" }},
		{"bad min score", func(c *Config) { c.Redaction.Presidio.MinScore = 1.5 }},
		{"bad referral address", func(c *Config) { c.Report.ReferralFrom = "nobody" }},
		{"bad duration", func(c *Config) { c.Sessions.IdleTimeout = "two hours" }},
		{"bad sweep schedule", func(c *Config) { c.Sessions.SweepSchedule = "*/5 * * * *" }},
		{"zero sessions", func(c *Config) { c.Sessions.MaxSessions = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("MEDGUARD_CLAUDE_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := ResolveAPIKey(t.Context(), nil, "anthropic_api_key", "")
	assert.Error(t, err)

	key, err := ResolveAPIKey(t.Context(), nil, "anthropic_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	key, err = ResolveAPIKey(t.Context(), nil, "anthropic_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

func TestParseDurationOr(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDurationOr("", 5*time.Second))
	assert.Equal(t, 5*time.Second, ParseDurationOr("soon", 5*time.Second))
	assert.Equal(t, time.Minute, ParseDurationOr("1m", 5*time.Second))
}

func TestIsProduction(t *testing.T) {
	config := NewDefaultConfig()
	assert.False(t, config.IsProduction())
	config.Environment = " PROD "
	assert.True(t, config.IsProduction())
}
