// Package config provides configuration types and helpers for fbmask.
package config

import (
	"fmt"

	"github.com/tkrenek/fbmask/internal/pseudonym"
)

// Config holds the application-wide configuration.
type Config struct {
	Format  string `mapstructure:"format"`
	Verbose bool   `mapstructure:"verbose"`
	Color   string `mapstructure:"color"`

	// Pseudonymization settings.
	HashLength        int      `mapstructure:"hash_length"`
	SensitiveKeywords []string `mapstructure:"sensitive_keywords"`
	RedactAllLiterals bool     `mapstructure:"redact_all_literals"`
	AnalyzeOnly       bool     `mapstructure:"analyze_only"`
}

// Validate rejects unusable settings before any file is touched.
func (c Config) Validate() error {
	if c.HashLength < pseudonym.MinHashLength || c.HashLength > pseudonym.MaxHashLength {
		return fmt.Errorf("hash_length must be between %d and %d, got %d",
			pseudonym.MinHashLength, pseudonym.MaxHashLength, c.HashLength)
	}
	switch c.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	return nil
}

// EngineOptions builds the pseudonymization options from the config.
func (c Config) EngineOptions() pseudonym.Options {
	return pseudonym.Options{
		HashLength:        c.HashLength,
		Keywords:          c.SensitiveKeywords,
		RedactAllLiterals: c.RedactAllLiterals,
	}
}
