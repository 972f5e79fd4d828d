// Package endpoint serves the operational routes every service exposes
// next to its API: health, readiness, liveness, info, version and runtime
// memory.
package endpoint

import (
	"context"
	"maps"
	"net/http"
	"runtime"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/kbukum/whisperbatch/component"
	"github.com/kbukum/whisperbatch/version"
)

// HealthChecker reports the health of the registered components.
type HealthChecker func(ctx context.Context) []component.Health

// InfoFunc adds service fields to the /info body. It cannot replace the
// built-in fields.
type InfoFunc func() map[string]any

// Probes serves the operational routes of one service.
type Probes struct {
	service string
	check   HealthChecker
	info    InfoFunc
	started time.Time
}

// New creates the probes. check and info may be nil.
func New(service string, check HealthChecker, info InfoFunc) *Probes {
	return &Probes{service: service, check: check, info: info, started: time.Now()}
}

var routes = map[string]func(*Probes) gin.HandlerFunc{
	"/health":    func(p *Probes) gin.HandlerFunc { return p.Health },
	"/readiness": func(p *Probes) gin.HandlerFunc { return p.Readiness },
	"/liveness":  func(p *Probes) gin.HandlerFunc { return p.Liveness },
	"/info":      func(p *Probes) gin.HandlerFunc { return p.Info },
	"/version":   func(p *Probes) gin.HandlerFunc { return p.Version },
	"/metrics":   func(p *Probes) gin.HandlerFunc { return p.Runtime },
}

// Paths returns the routes Register installs, sorted.
func Paths() []string { return slices.Sorted(maps.Keys(routes)) }

// IsProbe reports whether path is one of the operational routes.
func IsProbe(path string) bool {
	_, ok := routes[path]
	return ok
}

// Register installs every operational route as a GET on r.
func (p *Probes) Register(r gin.IRoutes) {
	for _, path := range Paths() {
		r.GET(path, routes[path](p))
	}
}

func (p *Probes) components(ctx context.Context) []component.Health {
	if p.check == nil {
		return nil
	}
	return p.check(ctx)
}

func (p *Probes) reply(c *gin.Context, code int, status string, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["status"] = status
	body["service"] = p.service
	body["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	c.JSON(code, body)
}

// Health reports the overall status and every component. An unhealthy
// component makes it a 503.
func (p *Probes) Health(c *gin.Context) {
	hs := p.components(c.Request.Context())
	overall := component.Overall(hs)

	code := http.StatusOK
	if overall == component.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	p.reply(c, code, string(overall), gin.H{"components": hs})
}

// Readiness is ready unless a component is unhealthy; degraded still
// takes traffic.
func (p *Probes) Readiness(c *gin.Context) {
	if component.Overall(p.components(c.Request.Context())) == component.StatusUnhealthy {
		p.reply(c, http.StatusServiceUnavailable, "not_ready", nil)
		return
	}
	p.reply(c, http.StatusOK, "ready", nil)
}

// Liveness answers as long as the process serves HTTP.
func (p *Probes) Liveness(c *gin.Context) {
	p.reply(c, http.StatusOK, "alive", nil)
}

// Info reports the build, the uptime and the InfoFunc fields.
func (p *Probes) Info(c *gin.Context) {
	v := version.GetVersionInfo()
	body := gin.H{
		"version":    v.Version,
		"git_commit": v.GitCommit,
		"go_version": v.GoVersion,
		"uptime":     time.Since(p.started).Round(time.Second).String(),
	}
	if p.info != nil {
		for k, val := range p.info() {
			switch k {
			case "status", "service", "timestamp":
				continue
			}
			if _, taken := body[k]; !taken {
				body[k] = val
			}
		}
	}
	p.reply(c, http.StatusOK, "ok", body)
}

// Version reports the build information.
func (p *Probes) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.GetVersionInfo())
}

// Runtime reports goroutines and heap figures. Uploads are streamed to
// disk, so steady heap growth points at a leak.
func (p *Probes) Runtime(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"goroutines": runtime.NumGoroutine(),
		"memory": gin.H{
			"alloc":       humanize.IBytes(m.Alloc),
			"total_alloc": humanize.IBytes(m.TotalAlloc),
			"sys":         humanize.IBytes(m.Sys),
			"gc_runs":     m.NumGC,
		},
	})
}
