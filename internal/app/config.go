// Package app wires the transcription service: configuration, storage,
// the batch processor, the reaper and the HTTP server.
package app

import (
	"time"

	"github.com/kbukum/whisperbatch/config"
	"github.com/kbukum/whisperbatch/internal/batch"
	"github.com/kbukum/whisperbatch/internal/workspace"
	"github.com/kbukum/whisperbatch/observability"
	"github.com/kbukum/whisperbatch/server"
	"github.com/kbukum/whisperbatch/transcription/openai"
	"github.com/kbukum/whisperbatch/util"
	"github.com/kbukum/whisperbatch/validation"
)

// ServiceName is the name the service loads its configuration under.
const ServiceName = "transcriber"

// Config is the complete service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	RateLimit     RateLimitConfig      `yaml:"rate_limit" mapstructure:"rate_limit"`
	Batch         BatchConfig          `yaml:"batch" mapstructure:"batch"`
	Workspace     workspace.Config     `yaml:"workspace" mapstructure:"workspace"`
	Provider      ProviderConfig       `yaml:"provider" mapstructure:"provider"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// RateLimitConfig holds the per-client request limits.
type RateLimitConfig struct {
	// DefaultPerMinute applies to every route without a limit of its own.
	DefaultPerMinute int `yaml:"default_per_minute" mapstructure:"default_per_minute" validate:"gt=0"`
	// TranscribePerMinute applies to POST /transcribe.
	TranscribePerMinute int `yaml:"transcribe_per_minute" mapstructure:"transcribe_per_minute" validate:"gt=0"`
}

// BatchConfig holds the batch limits and the provider call cap.
type BatchConfig struct {
	MaxItems             int      `yaml:"max_items" mapstructure:"max_items" validate:"gt=0"`
	MaxFileSize          string   `yaml:"max_file_size" mapstructure:"max_file_size" validate:"bytesize"`
	AllowedExtensions    []string `yaml:"allowed_extensions" mapstructure:"allowed_extensions" validate:"min=1"`
	AllowedMediaTypes    []string `yaml:"allowed_media_types" mapstructure:"allowed_media_types" validate:"min=1"`
	PermissiveExtensions []string `yaml:"permissive_extensions" mapstructure:"permissive_extensions"`
	Languages            []string `yaml:"languages" mapstructure:"languages" validate:"min=1"`

	// MaxConcurrentCalls caps provider calls across all requests.
	MaxConcurrentCalls int `yaml:"max_concurrent_calls" mapstructure:"max_concurrent_calls" validate:"gt=0"`
	// CallWait is how long a call may queue for a slot before failing.
	CallWait time.Duration `yaml:"call_wait" mapstructure:"call_wait"`
}

// ProviderConfig selects the transcription backend.
type ProviderConfig struct {
	Name     string         `yaml:"name" mapstructure:"name" validate:"oneof=openai whisper"`
	Settings map[string]any `yaml:"settings" mapstructure:"settings"`
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.RateLimit.ApplyDefaults()
	c.Batch.ApplyDefaults()
	c.Workspace.ApplyDefaults()
	c.Provider.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks the struct tags first, then the rules each section
// enforces by hand.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}

// ApplyDefaults sets the limits of the public service.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.DefaultPerMinute <= 0 {
		c.DefaultPerMinute = 10
	}
	if c.TranscribePerMinute <= 0 {
		c.TranscribePerMinute = 5
	}
}

// ApplyDefaults fills unset limits from batch.DefaultRules.
func (c *BatchConfig) ApplyDefaults() {
	def := batch.DefaultRules()
	if c.MaxItems <= 0 {
		c.MaxItems = def.MaxItems
	}
	if c.MaxFileSize == "" {
		c.MaxFileSize = "100MB"
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = def.AllowedExtensions
	}
	if len(c.AllowedMediaTypes) == 0 {
		c.AllowedMediaTypes = def.AllowedMediaTypes
	}
	if c.PermissiveExtensions == nil {
		c.PermissiveExtensions = def.PermissiveExtensions
	}
	if len(c.Languages) == 0 {
		c.Languages = def.Languages
	}
	if c.MaxConcurrentCalls <= 0 {
		c.MaxConcurrentCalls = 10
	}
	if c.CallWait <= 0 {
		c.CallWait = 2 * time.Minute
	}
}

// Rules converts the section into validator rules.
func (c *BatchConfig) Rules() batch.Rules {
	return batch.Rules{
		MaxItems:             c.MaxItems,
		MaxFileSize:          util.ParseSize(c.MaxFileSize, batch.DefaultRules().MaxFileSize),
		AllowedExtensions:    c.AllowedExtensions,
		AllowedMediaTypes:    c.AllowedMediaTypes,
		PermissiveExtensions: c.PermissiveExtensions,
		Languages:            c.Languages,
	}
}

// ApplyDefaults selects the OpenAI backend.
func (c *ProviderConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = openai.ProviderName
	}
	if c.Settings == nil {
		c.Settings = map[string]any{}
	}
}
