package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config carries process-level settings sourced from the environment.
type Config struct {
	Environment string
	HTTPAddr    string
	DatabaseURL string

	ReconcileInterval  time.Duration
	ReconcileBatchSize int
}

// IsProduction reports whether the process runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from the environment. A local .env file is
// honoured when present so development does not require exported vars.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:        envOr("OPSLEDGER_ENV", "development"),
		HTTPAddr:           envOr("OPSLEDGER_HTTP_ADDR", ":8080"),
		DatabaseURL:        strings.TrimSpace(os.Getenv("OPSLEDGER_DATABASE_URL")),
		ReconcileInterval:  envDurationOr("OPSLEDGER_RECONCILE_INTERVAL", 5*time.Minute),
		ReconcileBatchSize: envIntOr("OPSLEDGER_RECONCILE_BATCH_SIZE", 100),
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOr(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

var Module = fx.Module("config",
	fx.Provide(Load),
)
