package logger

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Config is the logging section of the service config.
type Config struct {
	// Level is a zerolog level name: trace, debug, info, warn or error.
	Level string `yaml:"level" mapstructure:"level"`
	// Format is json, console or pretty.
	Format    string `yaml:"format" mapstructure:"format"`
	Output    string `yaml:"output" mapstructure:"output"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults logs at info to stdout in console format. Timestamps are
// always on.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	c.Timestamp = true
}

func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil || c.Level == "" {
		return fmt.Errorf("logging.level: unknown level %q", c.Level)
	}
	switch c.Format {
	case FormatJSON, FormatConsole, FormatPretty:
	default:
		return fmt.Errorf("logging.format: must be json, console or pretty, got %q", c.Format)
	}
	switch c.Output {
	case "", "stdout", "stderr":
	default:
		return fmt.Errorf("logging.output: must be stdout or stderr, got %q", c.Output)
	}
	return nil
}
