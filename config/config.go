// Package config holds the numeric and runtime parameters of the tree pricer.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds tree construction, calibration and bump parameters.
// Calibrators and pricers take it explicitly. DefaultConfig is only read, as the
// fallback for a zero Config and for the tolerance NewData validates with.
type Config struct {
	// Steps is the default number of time layers of a tree. Must be at least 3.
	Steps int `toml:"steps"`

	// ProbabilityTolerance is the maximum deviation of a transition row sum from 1.
	ProbabilityTolerance float64 `toml:"probability_tolerance"`

	// MinArrowDebreu is the smallest Arrow-Debreu price for which the implied-tree
	// probabilities are solved from option prices. Below it the node uses the
	// moment-matching fallback, since the option-price solve divides by this value.
	MinArrowDebreu float64 `toml:"min_arrow_debreu"`

	// ExpiryTolerance is the maximum difference between a dataset's horizon and
	// the option's time to expiry.
	ExpiryTolerance float64 `toml:"expiry_tolerance"`

	// SpotBump is the relative spot shift used for delta and gamma.
	SpotBump float64 `toml:"spot_bump"`

	// VolBump is the absolute volatility shift used for vega.
	VolBump float64 `toml:"vol_bump"`

	// RateBump is the absolute zero-rate shift used for rho.
	RateBump float64 `toml:"rate_bump"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
}

// DefaultConfig provides production-ready default values. Copy it before
// changing a field.
var DefaultConfig = Config{
	Steps:                101,
	ProbabilityTolerance: 1e-12,
	MinArrowDebreu:       1e-9,
	ExpiryTolerance:      1e-10,
	SpotBump:             1e-4,
	VolBump:              1e-4,
	RateBump:             1e-4,
	LogLevel:             "info",
}

// Validate rejects configurations the tree cannot run with.
func (c Config) Validate() error {
	if c.Steps < 3 {
		return fmt.Errorf("%w: steps must be at least 3, got %d", ErrInvalidConfig, c.Steps)
	}
	if !(c.ProbabilityTolerance > 0) {
		return fmt.Errorf("%w: probability_tolerance must be positive", ErrInvalidConfig)
	}
	if c.MinArrowDebreu < 0 {
		return fmt.Errorf("%w: min_arrow_debreu must not be negative", ErrInvalidConfig)
	}
	if !(c.ExpiryTolerance > 0) {
		return fmt.Errorf("%w: expiry_tolerance must be positive", ErrInvalidConfig)
	}
	if !(c.SpotBump > 0) || !(c.VolBump > 0) || !(c.RateBump > 0) {
		return fmt.Errorf("%w: bumps must be positive", ErrInvalidConfig)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}
