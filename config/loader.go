package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path on top of DefaultConfig and applies
// FXTREE_* environment overrides. An empty path skips the file.
// The returned Config has been validated.
func Load(path string) (Config, error) {
	cfg := DefaultConfig

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setInt(&cfg.Steps, "FXTREE_STEPS")
	setFloat(&cfg.ProbabilityTolerance, "FXTREE_PROBABILITY_TOLERANCE")
	setFloat(&cfg.MinArrowDebreu, "FXTREE_MIN_ARROW_DEBREU")
	setFloat(&cfg.ExpiryTolerance, "FXTREE_EXPIRY_TOLERANCE")
	setFloat(&cfg.SpotBump, "FXTREE_SPOT_BUMP")
	setFloat(&cfg.VolBump, "FXTREE_VOL_BUMP")
	setFloat(&cfg.RateBump, "FXTREE_RATE_BUMP")
	if v := strings.TrimSpace(os.Getenv("FXTREE_LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
