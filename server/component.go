package server

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/whisperbatch/component"
	"github.com/kbukum/whisperbatch/server/endpoint"
)

const componentName = "http-server"

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

// Component runs a Server under the component registry.
type Component struct {
	server *Server
}

func NewComponent(s *Server) *Component { return &Component{server: s} }

func (sc *Component) Name() string                    { return componentName }
func (sc *Component) Start(ctx context.Context) error { return sc.server.Start(ctx) }
func (sc *Component) Stop(ctx context.Context) error  { return sc.server.Stop(ctx) }

// Health is healthy while the listener is bound.
func (sc *Component) Health(context.Context) component.Health {
	sc.server.mu.Lock()
	bound := sc.server.listener != nil
	sc.server.mu.Unlock()

	h := component.Health{Name: componentName, Status: component.StatusHealthy}
	if !bound {
		h.Status = component.StatusUnhealthy
		h.Message = "not listening"
	}
	return h
}

func (sc *Component) Describe() component.Description {
	cfg := sc.server.config
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: fmt.Sprintf("%s (h2c, body limit %s)", sc.server.Addr(), cfg.MaxBodySize),
		Port:    cfg.Port,
	}
}

var methodRank = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

func rank(method string) int {
	if i := slices.Index(methodRank, method); i >= 0 {
		return i
	}
	return len(methodRank)
}

// Routes lists the API routes by path, then the probes, each group sorted
// by path and method.
func (sc *Component) Routes() []component.Route {
	gr := sc.server.engine.Routes()
	slices.SortFunc(gr, func(a, b gin.RouteInfo) int {
		pa, pb := endpoint.IsProbe(a.Path), endpoint.IsProbe(b.Path)
		if pa != pb {
			if pa {
				return 1
			}
			return -1
		}
		return cmp.Or(strings.Compare(a.Path, b.Path), cmp.Compare(rank(a.Method), rank(b.Method)))
	})

	routes := make([]component.Route, len(gr))
	for i, r := range gr {
		handler := handlerName(r.Handler)
		if endpoint.IsProbe(r.Path) {
			handler += " (probe)"
		}
		routes[i] = component.Route{Method: r.Method, Path: r.Path, Handler: handler}
	}
	return routes
}

// handlerName shortens a Gin handler name such as
// "github.com/kbukum/whisperbatch/internal/api.(*Handler).Transcribe-fm"
// to "Handler.Transcribe".
func handlerName(full string) string {
	name := strings.TrimSuffix(full, "-fm")
	name = name[strings.LastIndex(name, "/")+1:]
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)

	if pkg, rest, ok := strings.Cut(name, "."); ok && rest != "" && strings.ToLower(pkg) == pkg {
		return rest
	}
	return name
}
