package config

import (
	"os"
	"strconv"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// applyEnv overlays DOCPAIRFLOW_* environment variables on the config.
// Environment takes precedence over config files but not over CLI flags.
func applyEnv(c *Config) {
	c.SofficePath = GetEnv("DOCPAIRFLOW_SOFFICE_PATH", c.SofficePath)
	c.OnExists = GetEnv("DOCPAIRFLOW_ON_EXISTS", c.OnExists)
	c.Pairing.Strategy = GetEnv("DOCPAIRFLOW_STRATEGY", c.Pairing.Strategy)

	if v := GetEnv("DOCPAIRFLOW_WORKERS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}
	if v := GetEnv("DOCPAIRFLOW_TRAIN_RATIO", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Pairing.TrainRatio = f
		}
	}
}
