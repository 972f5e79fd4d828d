package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/whisperbatch/component"
	"github.com/kbukum/whisperbatch/config"
	"github.com/kbukum/whisperbatch/logger"
)

// DefaultGracefulTimeout bounds shutdown unless WithGracefulTimeout is given.
const DefaultGracefulTimeout = 15 * time.Second

// Config is satisfied by any struct embedding config.ServiceConfig that
// defaults and validates its own sections.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

// Option adjusts NewApp.
type Option func(*settings)

type settings struct {
	log        *logger.Logger
	grace      time.Duration
	summaryOut io.Writer
}

// WithLogger replaces the logger built from the logging section.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithGracefulTimeout bounds the stop hooks and component shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *settings) { s.grace = d }
}

// WithSummaryOutput redirects the startup summary; io.Discard silences it.
func WithSummaryOutput(w io.Writer) Option {
	return func(s *settings) { s.summaryOut = w }
}

// Phase names a point of the lifecycle where hooks run.
type Phase int

const (
	// PhaseStarted runs once every component has started.
	PhaseStarted Phase = iota
	// PhaseReady runs after the ready check, before serving.
	PhaseReady
	// PhaseStopping runs before components are stopped.
	PhaseStopping
)

func (p Phase) String() string {
	switch p {
	case PhaseStarted:
		return "started"
	case PhaseReady:
		return "ready"
	case PhaseStopping:
		return "stopping"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// App owns the config, the logger and the components of a service.
type App[C Config] struct {
	Cfg        C
	Logger     *logger.Logger
	Components *component.Registry
	Summary    *Summary

	grace time.Duration
	hooks map[Phase][]Hook
}

// NewApp defaults and validates cfg, then sets up logging. Without
// WithLogger the global logger is initialized from the logging section.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := settings{grace: DefaultGracefulTimeout}
	for _, opt := range opts {
		opt(&s)
	}

	svc := cfg.GetServiceConfig()
	if s.log == nil {
		logger.Init(&svc.Logging, svc.Name)
		s.log = logger.GetGlobalLogger()
	}

	a := &App[C]{
		Cfg:        cfg,
		Logger:     s.log,
		Components: component.NewRegistry(s.log, s.grace),
		Summary:    NewSummary(svc.Name, svc.Version),
		grace:      s.grace,
		hooks:      make(map[Phase][]Hook),
	}
	if s.summaryOut != nil {
		a.Summary.SetOutput(s.summaryOut)
	}
	return a, nil
}

// Name is the service name from the config.
func (a *App[C]) Name() string { return a.Cfg.GetServiceConfig().Name }

// RegisterComponent adds c. Components start in registration order.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// Hook registers fns to run at phase, in order.
func (a *App[C]) Hook(phase Phase, fns ...Hook) {
	a.hooks[phase] = append(a.hooks[phase], fns...)
}

func (a *App[C]) runHooks(ctx context.Context, phase Phase) error {
	for i, fn := range a.hooks[phase] {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("%s hook %d: %w", phase, i, err)
		}
	}
	return nil
}

// ReadyCheck fails when any component reports other than healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var bad []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		entry := h.Name + " " + string(h.Status)
		if h.Message != "" {
			entry += ": " + h.Message
		}
		bad = append(bad, entry)
	}
	if len(bad) > 0 {
		return fmt.Errorf("not ready: %s", strings.Join(bad, "; "))
	}
	return nil
}
