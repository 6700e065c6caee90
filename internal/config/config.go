// Package config provides layered configuration loading for docpairflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Lllllllleong/docpairflow/internal/models"
)

// Config represents the complete docpairflow configuration.
type Config struct {
	Patterns   PatternsConfig   `yaml:"patterns"`
	Categories CategoriesConfig `yaml:"categories"`
	Pairing    PairingConfig    `yaml:"pairing"`

	// Workers bounds per-document concurrency in every stage.
	Workers int `yaml:"workers"`
	// OnExists is the default output collision policy (skip|overwrite|suffix).
	OnExists string `yaml:"on_exists"`
	// SkipDirs are directory names excluded from corpus walks.
	SkipDirs []string `yaml:"skip_dirs"`
	// SofficePath overrides soffice discovery for the convert stage.
	SofficePath string `yaml:"soffice_path"`
}

// PatternsConfig defines the reference pattern library.
type PatternsConfig struct {
	// Clients is the enumerated set of client tokens opening a client
	// reference (client token + epoch + free code).
	Clients []string `yaml:"clients"`
	// Prefixes are the literal prefixes of prefix+digits identifiers.
	Prefixes []string `yaml:"prefixes"`
	// StageMarkers are document-stage tokens treated as version markers.
	StageMarkers []string `yaml:"stage_markers"`
}

// CategorySignals holds the filename/content signals for one category.
type CategorySignals struct {
	Keyword    string   `yaml:"keyword"`
	Phrases    []string `yaml:"phrases"`
	ShortToken string   `yaml:"short_token"`
}

// CategoriesConfig holds signals per classifiable category.
type CategoriesConfig struct {
	BRD     CategorySignals `yaml:"brd"`
	Scoping CategorySignals `yaml:"scoping"`
}

// PairingConfig configures the pairing stage.
type PairingConfig struct {
	SourceCategory string  `yaml:"source_category"`
	TargetCategory string  `yaml:"target_category"`
	Strategy       string  `yaml:"strategy"`
	TrainRatio     float64 `yaml:"train_ratio"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Patterns: PatternsConfig{
			Clients:      []string{"CAPS"},
			Prefixes:     []string{"RITM"},
			StageMarkers: []string{"DRAFT", "FINAL"},
		},
		Categories: CategoriesConfig{
			BRD: CategorySignals{
				Keyword: "brd",
				Phrases: []string{
					"business requirements document",
					"business requirement document",
					"business requirements",
				},
				ShortToken: "br",
			},
			Scoping: CategorySignals{},
		},
		Pairing: PairingConfig{
			SourceCategory: string(models.CategoryBRD),
			TargetCategory: string(models.CategoryScoping),
			Strategy:       string(models.StrategyVersionMatch),
			TrainRatio:     0.90,
		},
		Workers:     8,
		OnExists:    string(models.OnExistsSkip),
		SkipDirs:    []string{".git", "node_modules"},
		SofficePath: "",
	}
}

// Validate checks that the configuration is valid. Validation failures are
// configuration errors and abort the run before any stage begins.
func (c *Config) Validate() error {
	if len(c.Patterns.Clients) == 0 && len(c.Patterns.Prefixes) == 0 {
		return fmt.Errorf("patterns: at least one client token or prefix is required")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if _, err := models.ParseOnExists(c.OnExists); err != nil {
		return fmt.Errorf("on_exists: %w", err)
	}
	if _, err := models.ParseStrategy(c.Pairing.Strategy); err != nil {
		return fmt.Errorf("pairing.strategy: %w", err)
	}
	if c.Pairing.TrainRatio <= 0 || c.Pairing.TrainRatio > 1 {
		return fmt.Errorf("pairing.train_ratio must be in (0, 1], got %v", c.Pairing.TrainRatio)
	}
	src, err := models.ParseCategory(c.Pairing.SourceCategory)
	if err != nil {
		return fmt.Errorf("pairing.source_category: %w", err)
	}
	dst, err := models.ParseCategory(c.Pairing.TargetCategory)
	if err != nil {
		return fmt.Errorf("pairing.target_category: %w", err)
	}
	if src == dst {
		return fmt.Errorf("pairing: source and target categories must differ")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one; other takes precedence for
// non-zero values.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Patterns.Clients) > 0 {
		c.Patterns.Clients = other.Patterns.Clients
	}
	if len(other.Patterns.Prefixes) > 0 {
		c.Patterns.Prefixes = other.Patterns.Prefixes
	}
	if len(other.Patterns.StageMarkers) > 0 {
		c.Patterns.StageMarkers = other.Patterns.StageMarkers
	}

	if other.Categories.BRD.Keyword != "" {
		c.Categories.BRD.Keyword = other.Categories.BRD.Keyword
	}
	if len(other.Categories.BRD.Phrases) > 0 {
		c.Categories.BRD.Phrases = other.Categories.BRD.Phrases
	}
	if other.Categories.BRD.ShortToken != "" {
		c.Categories.BRD.ShortToken = other.Categories.BRD.ShortToken
	}
	if other.Categories.Scoping.Keyword != "" {
		c.Categories.Scoping.Keyword = other.Categories.Scoping.Keyword
	}
	if len(other.Categories.Scoping.Phrases) > 0 {
		c.Categories.Scoping.Phrases = other.Categories.Scoping.Phrases
	}
	if other.Categories.Scoping.ShortToken != "" {
		c.Categories.Scoping.ShortToken = other.Categories.Scoping.ShortToken
	}

	if other.Pairing.SourceCategory != "" {
		c.Pairing.SourceCategory = other.Pairing.SourceCategory
	}
	if other.Pairing.TargetCategory != "" {
		c.Pairing.TargetCategory = other.Pairing.TargetCategory
	}
	if other.Pairing.Strategy != "" {
		c.Pairing.Strategy = other.Pairing.Strategy
	}
	if other.Pairing.TrainRatio != 0 {
		c.Pairing.TrainRatio = other.Pairing.TrainRatio
	}

	if other.Workers != 0 {
		c.Workers = other.Workers
	}
	if other.OnExists != "" {
		c.OnExists = other.OnExists
	}
	if len(other.SkipDirs) > 0 {
		c.SkipDirs = other.SkipDirs
	}
	if other.SofficePath != "" {
		c.SofficePath = other.SofficePath
	}
}
