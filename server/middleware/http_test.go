package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric/noop"

	apperrors "github.com/kbukum/whisperbatch/errors"
	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/observability"
	"github.com/kbukum/whisperbatch/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestRecovery(t *testing.T) {
	wrap := middleware.Recovery(logger.NewNop())

	ok := wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "ok") }))
	if rr := serve(ok, httptest.NewRequest(http.MethodGet, "/", http.NoBody)); rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("passthrough: %d %q", rr.Code, rr.Body.String())
	}

	boom := wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := serve(boom, httptest.NewRequest(http.MethodPost, "/transcribe", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeError(t, rr)
	if body.Code != apperrors.ErrCodeInternal || body.Detail == "" || strings.Contains(body.Detail, "boom") {
		t.Errorf("body = %+v", body)
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated", "", false},
		{"kept", "req-42", true},
		{"oversized is replaced", strings.Repeat("x", 500), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var inCtx, inHeader string
			h := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				inCtx = logger.RequestIDFromContext(r.Context())
				inHeader = r.Header.Get(middleware.HeaderRequestID)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tc.incoming != "" {
				req.Header.Set(middleware.HeaderRequestID, tc.incoming)
			}
			got := serve(h, req).Header().Get(middleware.HeaderRequestID)

			if tc.keep && got != tc.incoming {
				t.Errorf("id = %q, want %q", got, tc.incoming)
			}
			if !tc.keep && len(got) != 36 {
				t.Errorf("id = %q, want a UUID", got)
			}
			if inCtx != got || inHeader != got {
				t.Errorf("context %q, header %q, response %q", inCtx, inHeader, got)
			}
		})
	}
}

func corsEngine(cfg middleware.CORSConfig) *gin.Engine {
	r := gin.New()
	r.Use(middleware.CORS(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/transcribe", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		cfg         middleware.CORSConfig
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantExposed string
		wantCreds   string
	}{
		{
			name: "allowed origin",
			cfg: middleware.CORSConfig{
				AllowedOrigins: []string{"https://example.com"},
				AllowedMethods: []string{"GET", "POST"},
				ExposedHeaders: []string{"Content-Disposition"},
			},
			method: http.MethodGet, origin: "https://example.com",
			wantStatus: http.StatusOK, wantOrigin: "https://example.com", wantExposed: "Content-Disposition",
		},
		{
			name:   "preflight",
			cfg:    middleware.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST"}, AllowedHeaders: []string{"Authorization"}},
			method: http.MethodOptions, origin: "https://app.example.com",
			wantStatus: http.StatusNoContent, wantOrigin: "*",
		},
		{
			name:   "foreign origin",
			cfg:    middleware.CORSConfig{AllowedOrigins: []string{"https://allowed.com"}, AllowedMethods: []string{"GET"}},
			method: http.MethodGet, origin: "https://evil.com",
			wantOrigin: "",
		},
		{
			name:   "wildcard with credentials",
			cfg:    middleware.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}, AllowCredentials: true},
			method: http.MethodGet, origin: "https://app.example.com",
			wantStatus: http.StatusOK, wantOrigin: "https://app.example.com", wantCreds: "true",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target := "/"
			if tc.method == http.MethodOptions {
				target = "/transcribe"
			}
			req := httptest.NewRequest(tc.method, target, http.NoBody)
			req.Header.Set("Origin", tc.origin)
			if tc.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := serve(corsEngine(tc.cfg), req)

			if tc.wantStatus != 0 && rr.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Errorf("allow-origin = %q, want %q", got, tc.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, tc.wantExposed) {
				t.Errorf("expose-headers = %q", got)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != tc.wantCreds {
				t.Errorf("allow-credentials = %q, want %q", got, tc.wantCreds)
			}
		})
	}
}

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestRequestLogger(t *testing.T) {
	wrap := middleware.RequestLogger(logger.NewNop())

	for _, path := range []string{"/transcribe", "/health"} {
		called := false
		h := wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusCreated)
		}))
		if rr := serve(h, httptest.NewRequest(http.MethodPost, path, http.NoBody)); !called || rr.Code != http.StatusCreated {
			t.Errorf("%s: called %v, status %d", path, called, rr.Code)
		}
	}

	fr := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	streaming := wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "chunk")
		http.NewResponseController(w).Flush()
	}))
	streaming.ServeHTTP(fr, httptest.NewRequest(http.MethodGet, "/stream", http.NoBody))
	if fr.flushes != 1 {
		t.Errorf("flushes = %d, want 1", fr.flushes)
	}
}

func TestBodySizeLimit(t *testing.T) {
	h := middleware.BodySizeLimit("1KB")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.Copy(io.Discard, r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	if rr := serve(h, httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader("small"))); rr.Code != http.StatusOK {
		t.Errorf("within limit: status %d", rr.Code)
	}

	rr := serve(h, httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader(strings.Repeat("a", 2048))))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("declared length: status %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Code != apperrors.ErrCodeTooLarge {
		t.Errorf("declared length: body %+v", body)
	}

	streamed := httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader(strings.Repeat("a", 2048)))
	streamed.ContentLength = -1
	if rr := serve(h, streamed); rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("streamed: status %d", rr.Code)
	}
}

func TestChain_FirstIsOutermost(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
				order = append(order, "/"+name)
			})
		}
	}

	h := middleware.Chain(tag("a"), tag("b"), tag("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "h")
	}))
	serve(h, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if got := strings.Join(order, " "); got != "a b c h /c /b /a" {
		t.Errorf("order = %s", got)
	}
}

func TestMetrics(t *testing.T) {
	m, err := observability.NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name    string
		metrics *observability.Metrics
	}{{"recording", m}, {"nil", nil}} {
		r := gin.New()
		r.Use(middleware.Metrics(tc.metrics))
		r.GET("/info", func(c *gin.Context) { c.Status(http.StatusTeapot) })

		for path, want := range map[string]int{"/info": http.StatusTeapot, "/missing": http.StatusNotFound} {
			if rr := serve(r, httptest.NewRequest(http.MethodGet, path, http.NoBody)); rr.Code != want {
				t.Errorf("%s %s: status %d, want %d", tc.name, path, rr.Code, want)
			}
		}
	}
}
