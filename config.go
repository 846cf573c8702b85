package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment.
type Config struct {
	Port            string        `env:"CALLHANDLE_PORT"             envDefault:"37280"`
	AuthTokens      []string      `env:"CALLHANDLE_AUTH_TOKENS"      envSeparator:","`
	FlowDir         string        `env:"CALLHANDLE_FLOW_DIR"         envDefault:"./flows"`
	DefaultFlow     string        `env:"CALLHANDLE_DEFAULT_FLOW"     envDefault:"default"`
	WatchFlows      bool          `env:"CALLHANDLE_WATCH_FLOWS"      envDefault:"true"`
	MaxBodyBytes    int64         `env:"CALLHANDLE_MAX_BODY_BYTES"   envDefault:"1048576"`
	LogLevel        string        `env:"LOG_LEVEL"                   envDefault:"info"`
	ReadTimeout     time.Duration `env:"CALLHANDLE_READ_TIMEOUT"     envDefault:"15s"`
	WriteTimeout    time.Duration `env:"CALLHANDLE_WRITE_TIMEOUT"    envDefault:"15s"`
	IdleTimeout     time.Duration `env:"CALLHANDLE_IDLE_TIMEOUT"     envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"CALLHANDLE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

func loadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	// Drop blanks left by "a, ,b" style token lists
	var tokens []string
	for _, token := range cfg.AuthTokens {
		if trimmed := strings.TrimSpace(token); trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	cfg.AuthTokens = tokens

	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("CALLHANDLE_MAX_BODY_BYTES must be positive, got %d", cfg.MaxBodyBytes)
	}
	if err := validateFlowName(cfg.DefaultFlow); err != nil {
		return Config{}, fmt.Errorf("CALLHANDLE_DEFAULT_FLOW: %w", err)
	}

	return cfg, nil
}
