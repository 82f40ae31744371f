// Package config loads process settings from the environment, an optional
// .env file and command-line flags, in that order of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	UIWeb = "web"
	UITUI = "tui"
)

type Config struct {
	AuthorityURL      string        `env:"STARS_PARTY_AUTHORITY_URL"      envDefault:"ws://localhost:5000/ws"`
	HTTPAddr          string        `env:"STARS_PARTY_HTTP_ADDR"          envDefault:"127.0.0.1:8090"`
	UI                string        `env:"STARS_PARTY_UI"                 envDefault:"web"`
	ReconnectAttempts int           `env:"STARS_PARTY_RECONNECT_ATTEMPTS" envDefault:"5"`
	ReconnectDelay    time.Duration `env:"STARS_PARTY_RECONNECT_DELAY"    envDefault:"3s"`
	DialTimeout       time.Duration `env:"STARS_PARTY_DIAL_TIMEOUT"       envDefault:"10s"`
	ToastTTL          time.Duration `env:"STARS_PARTY_TOAST_TTL"          envDefault:"3s"`
	LogLevel          string        `env:"STARS_PARTY_LOG_LEVEL"          envDefault:"info"`
	DevLogging        bool          `env:"STARS_PARTY_DEV_LOGGING"`
	// The terminal UI owns stdout, so logs go here in tui mode.
	LogFile string `env:"STARS_PARTY_LOG_FILE" envDefault:"stars-party.log"`
}

// Parse reads dotenv (if present), then env, then flags from args.
func Parse(fs *flag.FlagSet, args []string, dotenv ...string) (Config, error) {
	if err := loadDotenv(dotenv...); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.AuthorityURL, "authority", cfg.AuthorityURL, "websocket URL of the party server")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "listen address for the local web view")
	fs.StringVar(&cfg.UI, "ui", cfg.UI, "rendering target: web or tui")
	fs.IntVar(&cfg.ReconnectAttempts, "reconnect-attempts", cfg.ReconnectAttempts, "connection attempts before giving up")
	fs.DurationVar(&cfg.ReconnectDelay, "reconnect-delay", cfg.ReconnectDelay, "delay between connection attempts")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "timeout per connection attempt")
	fs.DurationVar(&cfg.ToastTTL, "toast-ttl", cfg.ToastTTL, "how long notices stay visible")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&cfg.DevLogging, "dev", cfg.DevLogging, "human-readable development logging")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log destination in tui mode")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// Load never overrides variables already set in the environment.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.AuthorityURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("%w: authority url %q must be ws:// or wss://", ErrInvalidConfig, c.AuthorityURL)
	}
	switch c.UI {
	case UIWeb, UITUI:
	default:
		return fmt.Errorf("%w: ui %q", ErrInvalidConfig, c.UI)
	}
	if c.ReconnectAttempts < 1 {
		return fmt.Errorf("%w: reconnect attempts must be at least 1", ErrInvalidConfig)
	}
	if c.ReconnectDelay < 0 || c.DialTimeout <= 0 || c.ToastTTL <= 0 {
		return fmt.Errorf("%w: durations must be positive", ErrInvalidConfig)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// NewLogger builds the process logger. In tui mode output goes to LogFile.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.DevLogging {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if c.UI == UITUI {
		zc.OutputPaths = []string{c.LogFile}
		zc.ErrorOutputPaths = []string{c.LogFile}
	}
	return zc.Build()
}
