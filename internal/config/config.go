package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration settings.
type Config struct {
	Environment string `envconfig:"RC_ENV" default:"development"`

	HTTPPort    int           `envconfig:"RC_HTTP_PORT" default:"8080"`
	HTTPTimeout time.Duration `envconfig:"RC_HTTP_TIMEOUT" default:"15s"`

	WorkerPoolSize  int           `envconfig:"RC_WORKER_POOL_SIZE" default:"5"`
	DownloadTimeout time.Duration `envconfig:"RC_DOWNLOAD_TIMEOUT" default:"5m"`

	CacheDir  string        `envconfig:"RC_CACHE_DIR" default:"./cache"`
	LockDelay time.Duration `envconfig:"RC_LOCK_DELAY" default:"250ms"`

	Offline        bool   `envconfig:"RC_OFFLINE" default:"false"`
	ForceRefresh   bool   `envconfig:"RC_FORCE_REFRESH" default:"false"`
	DescriptorPath string `envconfig:"RC_DESCRIPTOR_PATH" default:""`

	ShutdownTimeout time.Duration `envconfig:"RC_SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"RC_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"RC_LOG_FORMAT" default:"json"`
}

// Validate checks the configuration for invalid or missing values.
// Returns an error describing the first invalid setting found.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("worker pool size must be positive: %d", c.WorkerPoolSize)
	}

	if c.DownloadTimeout <= 0 {
		return fmt.Errorf("download timeout must be positive: %s", c.DownloadTimeout)
	}

	if c.CacheDir == "" {
		return fmt.Errorf("cache directory cannot be empty")
	}

	if c.LockDelay <= 0 {
		return fmt.Errorf("lock retry delay must be positive: %s", c.LockDelay)
	}

	return nil
}
