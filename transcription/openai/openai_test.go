package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/kbukum/whisperbatch/transcription"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewProvider(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	return p
}

func TestTranscribe_SendsMultipartRequest(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("expected bearer credential, got %q", got)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "transcriber/") {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("expected model whisper-1, got %q", r.FormValue("model"))
		}
		if r.FormValue("language") != "pt" {
			t.Errorf("expected language pt, got %q", r.FormValue("language"))
		}
		if r.FormValue("response_format") != "json" {
			t.Errorf("expected json response format, got %q", r.FormValue("response_format"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "song.mp3" || string(data) != "ID3audio" {
			t.Errorf("unexpected file %q with %q", hdr.Filename, data)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"  ola mundo  "}`)
	})

	resp, err := p.Transcribe(context.Background(), transcription.TranscriptionRequest{
		Audio:      strings.NewReader("ID3audio"),
		FileName:   "song.mp3",
		Language:   "pt",
		Credential: "sk-test",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "  ola mundo  " {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.Language != "pt" {
		t.Errorf("expected language pt, got %q", resp.Language)
	}
}

func TestTranscribe_ErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    transcription.ErrorKind
		message string
	}{
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
			kind:    transcription.KindAuth,
			message: "Incorrect API key provided",
		},
		{
			name:    "forbidden",
			status:  http.StatusForbidden,
			body:    `{"error":{"message":"Country not supported"}}`,
			kind:    transcription.KindAuth,
			message: "Country not supported",
		},
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    `{"error":{"message":"Invalid file format."}}`,
			kind:    transcription.KindAPI,
			message: "Invalid file format.",
		},
		{
			name:    "server error with plain body",
			status:  http.StatusBadGateway,
			body:    "upstream down",
			kind:    transcription.KindAPI,
			message: "upstream down",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			_, err := p.Transcribe(context.Background(), transcription.TranscriptionRequest{
				Audio:      strings.NewReader("data"),
				FileName:   "a.mp3",
				Language:   "en",
				Credential: "sk-test",
			})
			pe, ok := transcription.AsProviderError(err)
			if !ok {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if pe.Kind != tc.kind {
				t.Errorf("expected kind %s, got %s", tc.kind, pe.Kind)
			}
			if pe.StatusCode != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, pe.StatusCode)
			}
			if pe.Message != tc.message {
				t.Errorf("expected message %q, got %q", tc.message, pe.Message)
			}
		})
	}
}

func TestTranscribe_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewProvider(Config{BaseURL: url, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Transcribe(context.Background(), transcription.TranscriptionRequest{
		Audio:      strings.NewReader("data"),
		FileName:   "a.mp3",
		Credential: "sk-test",
	})
	pe, ok := transcription.AsProviderError(err)
	if !ok || pe.Kind != transcription.KindConnection {
		t.Fatalf("expected connection ProviderError, got %v", err)
	}
}

func TestTranscribe_MalformedResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = io.WriteString(w, "not json")
	})

	_, err := p.Transcribe(context.Background(), transcription.TranscriptionRequest{
		Audio:      strings.NewReader("data"),
		Credential: "sk-test",
	})
	pe, ok := transcription.AsProviderError(err)
	if !ok || pe.Kind != transcription.KindAPI {
		t.Fatalf("expected api ProviderError, got %v", err)
	}
}

func TestTranscribe_RejectsInvalidCredentialWithoutCalling(t *testing.T) {
	called := false
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := p.Transcribe(context.Background(), transcription.TranscriptionRequest{
		Audio:      strings.NewReader("data"),
		Credential: "sk test",
	})
	if !errors.Is(err, transcription.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if called {
		t.Error("backend must not be called with an invalid credential")
	}
}

func TestValidateCredential(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		key   string
		valid bool
	}{
		{"sk-proj-abc123", true},
		{"", false},
		{"sk abc", false},
		{"sk-abc\n", false},
		{"sk-\x00abc", false},
		{"sk-ção", false},
	}
	for _, tc := range tests {
		err := p.ValidateCredential(tc.key)
		if (err == nil) != tc.valid {
			t.Errorf("ValidateCredential(%q) = %v, want valid=%v", tc.key, err, tc.valid)
		}
	}
}

func TestIsAvailable(t *testing.T) {
	ok, _ := NewProvider(Config{})
	if !ok.IsAvailable(context.Background()) {
		t.Error("default base URL should be available")
	}
	bad, _ := NewProvider(Config{BaseURL: "not a url"})
	if bad.IsAvailable(context.Background()) {
		t.Error("invalid base URL should not be available")
	}
}

func TestFactory(t *testing.T) {
	p, err := Factory()(map[string]any{"base_url": "http://localhost:9999/v1", "timeout": "30s"})
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	op := p.(*Provider)
	if op.cfg.BaseURL != "http://localhost:9999/v1" || op.cfg.Timeout != 30*time.Second || op.cfg.Model != DefaultModel {
		t.Errorf("unexpected config %+v", op.cfg)
	}

	if _, err := Factory()(map[string]any{"timeout": "later"}); err == nil {
		t.Error("expected error for bad timeout")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	if got := apiErrorMessage([]byte(`{"error":{"message":"Incorrect API key provided"}}`)); got != "Incorrect API key provided" {
		t.Errorf("json body: %q", got)
	}
	if got := apiErrorMessage([]byte("  bad gateway \n")); got != "bad gateway" {
		t.Errorf("text body: %q", got)
	}

	long := "x" + strings.Repeat("é", 300)
	got := apiErrorMessage([]byte(long))
	if !utf8.ValidString(got) {
		t.Errorf("truncated message is not valid UTF-8: %q", got[len(got)-4:])
	}
	if len(got) != 511 || !strings.HasPrefix(long, got) {
		t.Errorf("len = %d, want 511 bytes of the body", len(got))
	}
}
