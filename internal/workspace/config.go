package workspace

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultTempRoot      = "/tmp/transcriber_runs"
	DefaultSweepInterval = time.Minute
	DefaultMaxAge        = 5 * time.Minute
	DefaultReleaseWait   = 30 * time.Second
)

// Config holds working-directory and reaper settings.
type Config struct {
	// TempRoot is the shared directory under which every run gets a child.
	TempRoot string `mapstructure:"temp_root" validate:"required"`
	// SweepInterval is how often the reaper scans the temp root.
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
	// MaxAge is how old a run directory must be before the reaper deletes it.
	MaxAge time.Duration `mapstructure:"max_age" validate:"gt=0"`
	// RetainOnSuccess leaves delivered run directories for the reaper
	// instead of deleting them once the response is sent.
	RetainOnSuccess bool `mapstructure:"retain_on_success"`
	// ReleaseTimeout bounds the cleanup performed after a request ends.
	ReleaseTimeout time.Duration `mapstructure:"release_timeout"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.TempRoot == "" {
		c.TempRoot = DefaultTempRoot
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.ReleaseTimeout <= 0 {
		c.ReleaseTimeout = DefaultReleaseWait
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.TempRoot == "" {
		return fmt.Errorf("workspace: temp_root is required")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("workspace: sweep_interval must be positive")
	}
	if c.MaxAge <= 0 {
		return fmt.Errorf("workspace: max_age must be positive")
	}
	return nil
}
