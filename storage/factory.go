package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/whisperbatch/logger"
)

// Factory opens a backend from cfg.
type Factory func(cfg Config, log *logger.Logger) (Storage, error)

var registry = struct {
	sync.RWMutex
	factories map[string]Factory
}{factories: map[string]Factory{}}

// RegisterFactory makes a backend available to New under name. Backend
// packages call it from init.
func RegisterFactory(name string, f Factory) {
	registry.Lock()
	registry.factories[name] = f
	registry.Unlock()
}

// Providers returns the registered backend names, sorted.
func Providers() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New opens the backend cfg selects. The backend package must be imported
// for its factory to be registered.
func New(cfg Config, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry.RLock()
	f, ok := registry.factories[cfg.Provider]
	registry.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: provider %q not registered (have %v)", cfg.Provider, Providers())
	}

	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("storage")
	log.Info("opening storage", logger.Fields("provider", cfg.Provider, "base_path", cfg.BasePath))
	return f(cfg, log)
}
