// ABOUTME: Entry point for the harmonie conversational bot
// ABOUTME: Wires config, store, Gemini client, controller, and the Telegram transport

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/harmonie-ai/harmonie/internal/config"
	"github.com/harmonie-ai/harmonie/internal/conversation"
	"github.com/harmonie-ai/harmonie/internal/gemini"
	"github.com/harmonie-ai/harmonie/internal/persona"
	"github.com/harmonie-ai/harmonie/internal/store"
	"github.com/harmonie-ai/harmonie/internal/telegram"
)

// Version is set by goreleaser at build time.
var version = "dev"

const starterConfig = `telegram:
  token: "${BOT_TOKEN}"

gemini:
  api_key: "${AI_API_KEY}"
  model: "gemini-1.5-pro"
  timeout: "60s"

database:
  path: "${HOME}/.local/share/harmonie/harmonie.db"

conversation:
  max_history_parts: 40

logging:
  level: "info"
  format: "text"
`

// getConfigPath returns the path to the harmonie config file.
// Priority: HARMONIE_CONFIG env var > XDG_CONFIG_HOME/harmonie/harmonie.yaml > ~/.config/harmonie/harmonie.yaml
func getConfigPath() string {
	if envPath := os.Getenv("HARMONIE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "harmonie.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "harmonie", "harmonie.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: harmonie <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the bot")
		fmt.Println("  init      Write a starter config file")
		fmt.Println("  version   Print the version")
		os.Exit(1)
	}

	// Load a .env file if one exists; credentials referenced from the
	// config as ${VAR} come from the process environment.
	_ = godotenv.Load()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "init":
		err = runInit()
	case "version":
		fmt.Println(version)
	default:
		err = fmt.Errorf("unknown command: %s", os.Args[1])
	}

	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func runServe() error {
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", configPath, err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting harmonie", "version", version, "model", cfg.Gemini.Model)

	sessionStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer sessionStore.Close()

	client, err := gemini.NewClient(gemini.ClientConfig{
		APIKey:     cfg.Gemini.APIKey,
		Model:      cfg.Gemini.Model,
		HTTPClient: &http.Client{},
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("creating gemini client: %w", err)
	}

	p, err := persona.Load(cfg.Persona.Path)
	if err != nil {
		return fmt.Errorf("loading persona: %w", err)
	}

	controller := conversation.New(sessionStore, client, p, conversation.Options{
		Decoding:        cfg.Gemini.DecodingConfig(),
		Safety:          gemini.DefaultSafetySettings(),
		MaxHistoryParts: cfg.Conversation.MaxHistoryParts,
		GenerateTimeout: cfg.Gemini.Timeout,
		Logger:          logger,
	})

	bot, err := telegram.New(cfg.Telegram.Token, controller, p, logger)
	if err != nil {
		return fmt.Errorf("connecting to telegram: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bot.Run(ctx); err != nil {
		return fmt.Errorf("running bot: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func runInit() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(starterConfig), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	color.Green("Wrote starter config to %s", configPath)
	fmt.Println("Set BOT_TOKEN and AI_API_KEY in the environment (or a .env file), then run: harmonie serve")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format(time.TimeOnly) + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Handler-level attrs first (from WithAttrs), then record attrs
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
