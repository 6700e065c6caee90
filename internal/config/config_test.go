package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Patterns.Clients) == 0 {
		t.Error("expected at least one default client token")
	}
	if len(cfg.Patterns.Prefixes) == 0 {
		t.Error("expected at least one default prefix")
	}
	if cfg.Pairing.Strategy != "version_match" {
		t.Errorf("expected default strategy version_match, got %s", cfg.Pairing.Strategy)
	}
	if cfg.Pairing.TrainRatio != 0.90 {
		t.Errorf("expected default train ratio 0.90, got %f", cfg.Pairing.TrainRatio)
	}
	if cfg.Workers != 8 {
		t.Errorf("expected default workers 8, got %d", cfg.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "no patterns at all",
			modify: func(c *Config) {
				c.Patterns.Clients = nil
				c.Patterns.Prefixes = nil
			},
			wantErr: true,
		},
		{
			name:    "prefixes alone suffice",
			modify:  func(c *Config) { c.Patterns.Clients = nil },
			wantErr: false,
		},
		{
			name:    "zero workers",
			modify:  func(c *Config) { c.Workers = 0 },
			wantErr: true,
		},
		{
			name:    "unknown on-exists policy",
			modify:  func(c *Config) { c.OnExists = "rename" },
			wantErr: true,
		},
		{
			name:    "unknown strategy",
			modify:  func(c *Config) { c.Pairing.Strategy = "newest" },
			wantErr: true,
		},
		{
			name:    "train ratio too high",
			modify:  func(c *Config) { c.Pairing.TrainRatio = 1.5 },
			wantErr: true,
		},
		{
			name:    "train ratio zero",
			modify:  func(c *Config) { c.Pairing.TrainRatio = 0 },
			wantErr: true,
		},
		{
			name:    "unknown source category",
			modify:  func(c *Config) { c.Pairing.SourceCategory = "memo" },
			wantErr: true,
		},
		{
			name: "source equals target",
			modify: func(c *Config) {
				c.Pairing.SourceCategory = "brd"
				c.Pairing.TargetCategory = "brd"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
patterns:
  clients:
    - ACME
  prefixes:
    - REQ
  stage_markers:
    - DRAFT
pairing:
  strategy: all_combinations
  train_ratio: 0.8
workers: 4
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if len(cfg.Patterns.Clients) != 1 || cfg.Patterns.Clients[0] != "ACME" {
		t.Errorf("expected clients [ACME], got %v", cfg.Patterns.Clients)
	}
	if cfg.Pairing.Strategy != "all_combinations" {
		t.Errorf("expected strategy all_combinations, got %s", cfg.Pairing.Strategy)
	}
	if cfg.Pairing.TrainRatio != 0.8 {
		t.Errorf("expected train ratio 0.8, got %f", cfg.Pairing.TrainRatio)
	}
	if cfg.Workers != 4 {
		t.Errorf("expected workers 4, got %d", cfg.Workers)
	}
	// Unset fields keep their defaults.
	if cfg.OnExists != "skip" {
		t.Errorf("expected default on_exists skip, got %s", cfg.OnExists)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Patterns: PatternsConfig{Clients: []string{"ACME"}},
		Workers:  2,
	}

	base.Merge(override)

	if len(base.Patterns.Clients) != 1 || base.Patterns.Clients[0] != "ACME" {
		t.Errorf("expected clients [ACME], got %v", base.Patterns.Clients)
	}
	if base.Workers != 2 {
		t.Errorf("expected workers 2, got %d", base.Workers)
	}
	// Fields the override left zero stay at base values.
	if len(base.Patterns.Prefixes) == 0 {
		t.Error("expected prefixes to remain from base")
	}
	if base.Pairing.Strategy != "version_match" {
		t.Errorf("expected strategy to remain default, got %s", base.Pairing.Strategy)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Workers = 3
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Workers != 3 {
		t.Errorf("expected workers 3 after round trip, got %d", loaded.Workers)
	}
}

func TestLoaderLoad_ExplicitPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "explicit.yaml")
	if err := os.WriteFile(configPath, []byte("workers: 5\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := NewLoader(nil).Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workers != 5 {
		t.Errorf("expected workers 5, got %d", cfg.Workers)
	}
}

func TestLoaderLoad_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "explicit.yaml")
	if err := os.WriteFile(configPath, []byte("workers: 5\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("DOCPAIRFLOW_WORKERS", "2")
	t.Setenv("DOCPAIRFLOW_ON_EXISTS", "overwrite")

	cfg, err := NewLoader(nil).Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workers != 2 {
		t.Errorf("expected env to override workers, got %d", cfg.Workers)
	}
	if cfg.OnExists != "overwrite" {
		t.Errorf("expected env to override on_exists, got %s", cfg.OnExists)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("DOCPAIRFLOW_TEST_KEY", "set")
	if got := GetEnv("DOCPAIRFLOW_TEST_KEY", "fallback"); got != "set" {
		t.Errorf("expected set, got %s", got)
	}
	if got := GetEnv("DOCPAIRFLOW_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %s", got)
	}
}
