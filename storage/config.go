package storage

import "errors"

// Backends provided by the storage/local package.
const (
	ProviderLocal  = "local"
	ProviderMemory = "memory"
)

// Config selects a registered backend and the directory it is rooted at.
type Config struct {
	Provider string `mapstructure:"provider" json:"provider"`
	BasePath string `mapstructure:"base_path" json:"base_path"`
}

// ApplyDefaults selects the local backend.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderLocal
	}
}

// Validate requires a root for the local backend. Whether the provider
// exists is checked by New against the registry.
func (c *Config) Validate() error {
	if c.Provider == ProviderLocal && c.BasePath == "" {
		return errors.New("storage: base_path is required for the local provider")
	}
	return nil
}
