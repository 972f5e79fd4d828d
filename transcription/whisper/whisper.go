// Package whisper implements transcription.Provider against a self-hosted
// faster-whisper HTTP sidecar. The sidecar needs no credential; the one on
// the request is ignored.
package whisper

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/whisperbatch/httpclient"
	"github.com/kbukum/whisperbatch/provider"
	"github.com/kbukum/whisperbatch/security"
	"github.com/kbukum/whisperbatch/transcription"
	"github.com/kbukum/whisperbatch/version"
)

const (
	ProviderName = "whisper"

	// DefaultBaseURL is where the sidecar listens when run next to the service.
	DefaultBaseURL = "http://localhost:8387"
	DefaultModel   = "base"

	defaultTimeout = 2 * time.Minute
	probeTimeout   = 2 * time.Second
)

type Config struct {
	BaseURL string              `mapstructure:"base_url"`
	Model   string              `mapstructure:"model"`
	Timeout time.Duration       `mapstructure:"timeout"`
	TLS     *security.TLSConfig `mapstructure:"tls"`
}

// Provider posts audio to the sidecar's /transcribe route.
type Provider struct {
	model  string
	client *httpclient.Client
}

var _ transcription.Provider = (*Provider)(nil)

func NewProvider(cfg Config) (*Provider, error) {
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cmp.Or(cfg.BaseURL, DefaultBaseURL),
		Timeout: cmp.Or(cfg.Timeout, defaultTimeout),
		TLS:     cfg.TLS,
		Headers: map[string]string{"User-Agent": version.UserAgent("transcriber")},
	})
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return &Provider{model: cmp.Or(cfg.Model, DefaultModel), client: client}, nil
}

// Factory reads base_url, model, timeout and tls from the provider settings.
func Factory() provider.Factory[transcription.Provider] {
	return func(settings map[string]any) (transcription.Provider, error) {
		cfg := Config{
			BaseURL: provider.StringSetting(settings, "base_url", DefaultBaseURL),
			Model:   provider.StringSetting(settings, "model", DefaultModel),
		}
		var err error
		if cfg.Timeout, err = provider.DurationSetting(settings, "timeout", defaultTimeout); err != nil {
			return nil, err
		}
		if cfg.TLS, err = provider.TLSSetting(settings, "tls"); err != nil {
			return nil, err
		}
		return NewProvider(cfg)
	}
}

func (p *Provider) Name() string { return ProviderName }

// IsAvailable asks the sidecar's /health route, giving it two seconds.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	resp, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil && resp.OK()
}

func (p *Provider) Transcribe(ctx context.Context, req transcription.TranscriptionRequest) (*transcription.TranscriptionResponse, error) {
	audio, err := req.OpenAudio()
	if err != nil {
		return nil, err
	}
	defer func() { _ = audio.Close() }()

	form := &httpclient.MultipartBody{
		Fields: map[string]string{"model": cmp.Or(req.Model, p.model)},
		Files:  []httpclient.FileField{{FieldName: "audio", FileName: req.Name(), Reader: audio}},
	}
	if req.Language != "" {
		form.Fields["language"] = req.Language
	}

	resp, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/transcribe", Body: form})
	if err != nil {
		var reason string
		if resp != nil {
			reason = strings.TrimSpace(resp.Text())
		}
		return nil, transcription.ClassifyError(ProviderName, err, reason)
	}

	var out result
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, transcription.ClassifyError(ProviderName, fmt.Errorf("decode response: %w", err), "")
	}
	return out.response(), nil
}

// result is the sidecar's JSON answer.
type result struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

// response converts r; the duration is where the last segment ends.
func (r *result) response() *transcription.TranscriptionResponse {
	out := &transcription.TranscriptionResponse{
		Text:     r.Text,
		Language: r.Language,
		Segments: make([]transcription.Segment, 0, len(r.Segments)),
	}
	for _, s := range r.Segments {
		out.Segments = append(out.Segments, transcription.Segment{Start: s.Start, End: s.End, Text: s.Text})
		out.Duration = max(out.Duration, s.End)
	}
	return out
}
