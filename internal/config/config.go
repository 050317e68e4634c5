// ABOUTME: Configuration loading and parsing for the harmonie bot
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harmonie-ai/harmonie/internal/gemini"
)

// Config represents the complete harmonie configuration
type Config struct {
	Telegram     TelegramConfig     `yaml:"telegram"`
	Gemini       GeminiConfig       `yaml:"gemini"`
	Database     DatabaseConfig     `yaml:"database"`
	Conversation ConversationConfig `yaml:"conversation"`
	Persona      PersonaConfig      `yaml:"persona"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// TelegramConfig holds the chat transport configuration
type TelegramConfig struct {
	Token string `yaml:"token"`
}

// GeminiConfig holds provider credentials and decoding parameters
type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"-"`

	// Decoding overrides; zero values fall back to the provider defaults
	// applied in DecodingConfig.
	Temperature     float64 `yaml:"temperature"`
	TopK            int     `yaml:"top_k"`
	TopP            float64 `yaml:"top_p"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ConversationConfig holds turn-handling configuration
type ConversationConfig struct {
	// MaxHistoryParts caps stored transcript length; oldest whole
	// exchanges are dropped beyond it. <= 0 keeps the default.
	MaxHistoryParts int `yaml:"max_history_parts"`
}

// PersonaConfig points at an optional persona TOML file
type PersonaConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultModel is the generative model used when none is configured.
const DefaultModel = "gemini-1.5-pro"

// DefaultGenerateTimeout bounds one provider call when none is configured.
const DefaultGenerateTimeout = 60 * time.Second

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Missing credentials are a startup-fatal error, never silently disabled.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

// DecodingConfig builds the gateway decoding configuration, filling
// unset overrides from the provider defaults. The gateway itself never
// infers defaults; config is the one place they are applied.
func (c *GeminiConfig) DecodingConfig() gemini.DecodingConfig {
	decoding := gemini.DefaultDecodingConfig
	if c.Temperature > 0 {
		decoding.Temperature = c.Temperature
	}
	if c.TopK > 0 {
		decoding.TopK = c.TopK
	}
	if c.TopP > 0 {
		decoding.TopP = c.TopP
	}
	if c.MaxOutputTokens > 0 {
		decoding.MaxOutputTokens = c.MaxOutputTokens
	}
	return decoding
}

func applyDefaults(cfg *Config) {
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = DefaultModel
	}
	if cfg.Gemini.Timeout == 0 {
		cfg.Gemini.Timeout = DefaultGenerateTimeout
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Gemini.TimeoutRaw != "" {
		timeout, err := time.ParseDuration(cfg.Gemini.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing gemini.timeout %q: %w", cfg.Gemini.TimeoutRaw, err)
		}
		cfg.Gemini.Timeout = timeout
	}
	return nil
}
