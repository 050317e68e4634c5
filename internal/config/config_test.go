// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonie-ai/harmonie/internal/gemini"
)

// writeConfig writes a temp config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harmonie.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123456:bot-token"

gemini:
  api_key: "ai-key"
  model: "gemini-1.5-flash"
  timeout: "45s"
  temperature: 0.7
  max_output_tokens: 2048

database:
  path: "./harmonie.db"

conversation:
  max_history_parts: 20

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123456:bot-token", cfg.Telegram.Token)
	assert.Equal(t, "ai-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-1.5-flash", cfg.Gemini.Model)
	assert.Equal(t, 45*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, 20, cfg.Conversation.MaxHistoryParts)
	assert.Equal(t, "debug", cfg.Logging.Level)

	decoding := cfg.Gemini.DecodingConfig()
	assert.Equal(t, 0.7, decoding.Temperature)
	assert.Equal(t, 2048, decoding.MaxOutputTokens)
	// Unset overrides keep the provider defaults.
	assert.Equal(t, 64, decoding.TopK)
	assert.Equal(t, 0.95, decoding.TopP)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "tok"
gemini:
  api_key: "key"
database:
  path: "./db.sqlite"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, cfg.Gemini.Model)
	assert.Equal(t, DefaultGenerateTimeout, cfg.Gemini.Timeout)
	assert.Equal(t, gemini.DefaultDecodingConfig, cfg.Gemini.DecodingConfig())
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("AI_API_KEY", "secret-from-env")
	t.Setenv("BOT_TOKEN", "tg-from-env")

	path := writeConfig(t, `
telegram:
  token: "${BOT_TOKEN}"
gemini:
  api_key: "${AI_API_KEY}"
database:
  path: "./db.sqlite"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-from-env", cfg.Gemini.APIKey)
	assert.Equal(t, "tg-from-env", cfg.Telegram.Token)
}

func TestLoad_MissingCredentialsFatal(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing telegram token",
			content: `
gemini:
  api_key: "key"
database:
  path: "./db.sqlite"
`,
			wantErr: "telegram.token",
		},
		{
			name: "missing api key",
			content: `
telegram:
  token: "tok"
database:
  path: "./db.sqlite"
`,
			wantErr: "gemini.api_key",
		},
		{
			name: "missing database path",
			content: `
telegram:
  token: "tok"
gemini:
  api_key: "key"
`,
			wantErr: "database.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_UnsetEnvVarBecomesEmptyAndFailsValidation(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "tok"
gemini:
  api_key: "${DEFINITELY_NOT_SET_ANYWHERE}"
database:
  path: "./db.sqlite"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.api_key")
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "tok"
gemini:
  api_key: "key"
  timeout: "soon"
database:
  path: "./db.sqlite"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
