package component

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/whisperbatch/logger"
)

// DefaultStopTimeout bounds each Stop call unless NewRegistry is given
// another limit.
const DefaultStopTimeout = 10 * time.Second

// Registry starts components in registration order and stops them in
// reverse. Components that started form a prefix of the registration
// order, so only that prefix is stopped.
type Registry struct {
	log         *logger.Logger
	stopTimeout time.Duration

	mu         sync.RWMutex
	components []Component
	started    int
}

// NewRegistry creates an empty registry. A nil log uses the global logger;
// a non-positive stopTimeout uses DefaultStopTimeout.
func NewRegistry(log *logger.Logger, stopTimeout time.Duration) *Registry {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Registry{log: log.WithComponent("registry"), stopTimeout: stopTimeout}
}

// Register appends c. Register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if slices.ContainsFunc(r.components, func(x Component) bool { return x.Name() == name }) {
		return fmt.Errorf("component %s already registered", name)
	}
	r.components = append(r.components, c)
	return nil
}

// StartAll starts every component not yet started and stops at the first
// failure. What did start stays started for StopAll to release.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.started < len(r.components) {
		c := r.components[r.started]
		begin := time.Now()
		if err := c.Start(ctx); err != nil {
			r.log.Error("start failed", logger.Fields(logger.FieldComponent, c.Name(), logger.FieldError, err.Error()))
			return fmt.Errorf("start %s: %w", c.Name(), err)
		}
		r.started++
		r.log.Debug("started", logger.Fields(logger.FieldComponent, c.Name(), logger.FieldDuration, time.Since(begin).Milliseconds()))
	}
	return nil
}

// StopAll stops the started components in reverse order, each under its
// own timeout. Every one is stopped even when an earlier stop fails.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for ; r.started > 0; r.started-- {
		c := r.components[r.started-1]
		stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
		err := c.Stop(stopCtx)
		cancel()
		if err != nil {
			r.log.Error("stop failed", logger.Fields(logger.FieldComponent, c.Name(), logger.FieldError, err.Error()))
			errs = append(errs, fmt.Errorf("stop %s: %w", c.Name(), err))
			continue
		}
		r.log.Debug("stopped", logger.Fields(logger.FieldComponent, c.Name()))
	}
	return errors.Join(errs...)
}

// HealthAll asks every component for its health, in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	components := r.All()
	reports := make([]Health, len(components))
	for i, c := range components {
		reports[i] = c.Health(ctx)
	}
	return reports
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.components)
}
