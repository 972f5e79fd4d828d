package httpclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/kbukum/whisperbatch/security"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 10 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Headers go on every request unless the request sets them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// MaxBodyBytes caps how much of a response is read.
	MaxBodyBytes int64               `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	TLS          *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults sets a 30s timeout and a 10 MiB response cap.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("httpclient: timeout must be positive")
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("httpclient: %w", err)
	}
	return nil
}
