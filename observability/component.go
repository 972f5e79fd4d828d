package observability

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/whisperbatch/component"
	"github.com/kbukum/whisperbatch/logger"
)

// Component owns the telemetry providers for the lifetime of the
// application. Disabled, it leaves the global no-op providers in place.
type Component struct {
	cfg     Config
	service ServiceInfo
	log     *logger.Logger

	mu        sync.Mutex
	providers *Providers
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the telemetry component.
func NewComponent(cfg Config, service ServiceInfo, log *logger.Logger) *Component {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{cfg: cfg, service: service, log: log.WithComponent("observability")}
}

func (c *Component) Name() string { return "observability" }

func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.Enabled || c.providers != nil {
		return nil
	}
	p, err := Setup(ctx, c.cfg, c.service)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	c.providers = p
	c.log.Info("telemetry export started", logger.Fields(
		"endpoint", c.cfg.Endpoint,
		"sample_rate", c.cfg.SampleRate,
		"metric_interval", c.cfg.MetricInterval.String(),
	))
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	p := c.providers
	c.providers = nil
	c.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Shutdown(ctx)
}

// Health is always healthy; the details show whether export is running.
func (c *Component) Health(_ context.Context) component.Health {
	c.mu.Lock()
	exporting := c.providers != nil
	c.mu.Unlock()

	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Details: map[string]any{"enabled": c.cfg.Enabled, "exporting": exporting},
	}
}

func (c *Component) Describe() component.Description {
	d := component.Description{Name: "Telemetry", Type: "telemetry", Details: "export disabled"}
	if c.cfg.Enabled {
		d.Details = fmt.Sprintf("otlp http %s, sample %.2f", c.cfg.Endpoint, c.cfg.SampleRate)
	}
	return d
}
