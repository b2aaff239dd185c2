package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		HTTPPort:        8080,
		HTTPTimeout:     15 * time.Second,
		WorkerPoolSize:  5,
		DownloadTimeout: time.Minute,
		CacheDir:        "./cache",
		LockDelay:       250 * time.Millisecond,
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.HTTPPort = 0 }},
		{"port out of range", func(c *Config) { c.HTTPPort = 70000 }},
		{"zero workers", func(c *Config) { c.WorkerPoolSize = 0 }},
		{"zero download timeout", func(c *Config) { c.DownloadTimeout = 0 }},
		{"empty cache dir", func(c *Config) { c.CacheDir = "" }},
		{"zero lock delay", func(c *Config) { c.LockDelay = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
