package observability

import (
	"errors"
	"fmt"
	"time"
)

// Config is the observability section of the service config.
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the collector's OTLP/HTTP host:port.
	Endpoint string `mapstructure:"endpoint"`
	// Insecure sends to the collector over plain HTTP.
	Insecure       bool          `mapstructure:"insecure"`
	SampleRate     float64       `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	MetricInterval time.Duration `mapstructure:"metric_interval"`
}

// ServiceInfo identifies the service on exported telemetry.
type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
}

func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = 15 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate: must be within [0, 1], got %v", c.SampleRate)
	}
	if c.Enabled && c.Endpoint == "" {
		return errors.New("observability.endpoint: required when export is enabled")
	}
	return nil
}
