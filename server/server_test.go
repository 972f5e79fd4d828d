package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/whisperbatch/component"
	apperrors "github.com/kbukum/whisperbatch/errors"
	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/server/endpoint"
	"github.com/kbukum/whisperbatch/server/middleware"
)

func testConfig() Config {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New(testConfig(), logger.NewNop())
	gin.SetMode(gin.TestMode)
	s.ApplyMiddleware(nil)
	s.RegisterDefaultEndpoints("transcriber", func(context.Context) []component.Health {
		return []component.Health{{Name: "reaper", Status: component.StatusHealthy}}
	}, nil)
	return s
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Port != 8000 || cfg.Host != "0.0.0.0" {
		t.Errorf("unexpected listen address %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.MaxBodySize != "600MB" {
		t.Errorf("expected 600MB body limit, got %s", cfg.MaxBodySize)
	}
	if cfg.WriteTimeout != 15*time.Minute || cfg.ReadTimeout != 5*time.Minute {
		t.Errorf("unexpected timeouts read=%v write=%v", cfg.ReadTimeout, cfg.WriteTimeout)
	}
	if len(cfg.CORS.ExposedHeaders) == 0 {
		t.Error("expected exposed headers default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"negative timeout", func(c *Config) { c.WriteTimeout = -time.Second }},
		{"bad origin", func(c *Config) { c.CORS.AllowedOrigins = []string{"example.com"} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDefaultEndpoints(t *testing.T) {
	h := newTestServer(t).Handler()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/readiness", http.StatusOK},
		{"GET", "/liveness", http.StatusOK},
		{"GET", "/info", http.StatusOK},
		{"GET", "/version", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/nope", http.StatusNotFound},
		{"POST", "/health", http.StatusMethodNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, http.NoBody))
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
			if rr.Header().Get(middleware.HeaderRequestID) == "" {
				t.Error("expected request id on every response")
			}
		})
	}
}

func TestNotFoundBody(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(t).Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/missing", http.NoBody))

	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Detail != "Not Found" || body.Code != apperrors.ErrCodeNotFound {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestRecoveryWrapsRoutes(t *testing.T) {
	s := newTestServer(t)
	s.GinEngine().GET("/boom", func(*gin.Context) { panic("boom") })

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/boom", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"app error", apperrors.New("TOO_MANY_ITEMS", "A maximum of 5 files can be processed at once.", http.StatusBadRequest), http.StatusBadRequest, "A maximum of 5 files can be processed at once."},
		{"wrapped app error", fmt.Errorf("wrap: %w", apperrors.Unauthorized("nope")), http.StatusUnauthorized, "nope"},
		{"plain error", errors.New("disk full"), http.StatusInternalServerError, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rr)
			RespondWithError(c, tc.err)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			var body apperrors.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Detail == "" {
				t.Error("expected detail")
			}
			if tc.detail != "" && body.Detail != tc.detail {
				t.Errorf("expected detail %q, got %q", tc.detail, body.Detail)
			}
		})
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestComponentLifecycle(t *testing.T) {
	s := newTestServer(t)
	c := NewComponent(s)

	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}

	closed := 0
	s.AddCloser(closerFunc(func() error { closed++; return nil }))
	s.AddCloser(closerFunc(func() error { closed++; return errors.New("janitor stuck") }))

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := c.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy after start, got %s", h.Status)
	}

	resp, err := http.Get("http://" + s.Addr() + "/liveness")
	if err != nil {
		t.Fatalf("GET /liveness: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	err = c.Stop(context.Background())
	if err == nil {
		t.Error("expected closer error to be reported")
	}
	if closed != 2 {
		t.Errorf("expected both closers to run, got %d", closed)
	}
	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy after stop, got %s", h.Status)
	}
}

func TestComponentRoutes(t *testing.T) {
	s := newTestServer(t)
	s.GinEngine().POST("/transcribe", func(*gin.Context) {})
	s.GinEngine().GET("/", func(*gin.Context) {})

	routes := NewComponent(s).Routes()
	if len(routes) < 3 {
		t.Fatalf("expected routes, got %d", len(routes))
	}
	if routes[0].Path != "/" || routes[1].Path != "/transcribe" {
		t.Errorf("expected API routes first, got %s, %s", routes[0].Path, routes[1].Path)
	}
	last := routes[len(routes)-1]
	if !endpoint.IsProbe(last.Path) || !strings.HasSuffix(last.Handler, "(probe)") {
		t.Errorf("expected system route last, got %s", last.Path)
	}

	d := NewComponent(s).Describe()
	if d.Type != "server" || d.Name != "HTTP Server" {
		t.Errorf("unexpected description %+v", d)
	}
}

func TestHandlerName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"github.com/kbukum/whisperbatch/internal/api.(*Handler).Transcribe-fm", "Handler.Transcribe"},
		{"github.com/kbukum/whisperbatch/server/endpoint.(*Probes).Health-fm", "Probes.Health"},
		{"github.com/kbukum/whisperbatch/server.NotFound", "NotFound"},
		{"main.handle", "handle"},
	}
	for _, tc := range tests {
		if got := handlerName(tc.in); got != tc.want {
			t.Errorf("handlerName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRank(t *testing.T) {
	if rank("GET") >= rank("POST") || rank("DELETE") >= rank("OPTIONS") {
		t.Error("unexpected method ordering")
	}
}
