package provider

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrUnknown is wrapped by Create when no factory has the requested name.
var ErrUnknown = errors.New("unknown provider")

// Registry maps backend names to factories. Create builds a new instance
// on every call.
type Registry[T Provider] struct {
	mu    sync.RWMutex
	byKey map[string]Factory[T]
}

func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{byKey: make(map[string]Factory[T])}
}

// Register makes f available under name; a later call for the same name wins.
func (r *Registry[T]) Register(name string, f Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[name] = f
}

// Names lists the registered names in order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.byKey))
}

func (r *Registry[T]) Create(name string, settings map[string]any) (T, error) {
	var none T

	r.mu.RLock()
	f := r.byKey[name]
	r.mu.RUnlock()
	if f == nil {
		return none, fmt.Errorf("%w %q, have [%s]", ErrUnknown, name, strings.Join(r.Names(), " "))
	}

	p, err := f(settings)
	if err != nil {
		return none, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}
