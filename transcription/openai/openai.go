// Package openai implements transcription.Provider against the OpenAI
// audio transcription endpoint.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/kbukum/whisperbatch/httpclient"
	"github.com/kbukum/whisperbatch/provider"
	"github.com/kbukum/whisperbatch/security"
	"github.com/kbukum/whisperbatch/transcription"
	"github.com/kbukum/whisperbatch/version"
)

const (
	// ProviderName is the registered name for the OpenAI provider.
	ProviderName = "openai"

	// DefaultBaseURL is the public OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the speech-to-text model used when none is configured.
	DefaultModel = "whisper-1"

	defaultTimeout    = 10 * time.Minute
	transcriptionPath = "/audio/transcriptions"
	maxErrorMessage   = 512
)

// Config holds configuration for the OpenAI provider.
type Config struct {
	BaseURL string              `mapstructure:"base_url"`
	Model   string              `mapstructure:"model"`
	Timeout time.Duration       `mapstructure:"timeout"`
	TLS     *security.TLSConfig `mapstructure:"tls"`
}

// Provider calls the OpenAI transcription API. The API key is supplied per
// request; the provider itself holds no credential.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

var (
	_ transcription.Provider            = (*Provider)(nil)
	_ transcription.CredentialValidator = (*Provider)(nil)
)

// NewProvider creates a new OpenAI transcription provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		TLS:     cfg.TLS,
		Headers: map[string]string{
			"User-Agent": version.UserAgent("transcriber"),
			"Accept":     "application/json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Factory returns a provider.Factory that builds the provider from a
// settings map (base_url, model, timeout, tls).
func Factory() provider.Factory[transcription.Provider] {
	return func(settings map[string]any) (transcription.Provider, error) {
		timeout, err := provider.DurationSetting(settings, "timeout", defaultTimeout)
		if err != nil {
			return nil, err
		}
		tlsConfig, err := provider.TLSSetting(settings, "tls")
		if err != nil {
			return nil, err
		}
		return NewProvider(Config{
			BaseURL: provider.StringSetting(settings, "base_url", DefaultBaseURL),
			Model:   provider.StringSetting(settings, "model", DefaultModel),
			Timeout: timeout,
			TLS:     tlsConfig,
		})
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the configured base URL is usable. The API
// itself is not probed since every call needs the caller's key.
func (p *Provider) IsAvailable(_ context.Context) bool {
	u, err := url.Parse(p.cfg.BaseURL)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ValidateCredential rejects keys that could never be sent as a bearer
// token: empty, containing whitespace or containing non-printable runes.
func (p *Provider) ValidateCredential(credential string) error {
	if credential == "" {
		return fmt.Errorf("%w: empty key", transcription.ErrInvalidCredential)
	}
	for _, r := range credential {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) || r > unicode.MaxASCII {
			return fmt.Errorf("%w: key contains illegal characters", transcription.ErrInvalidCredential)
		}
	}
	return nil
}

// Transcribe uploads the audio as multipart form data and returns the text.
func (p *Provider) Transcribe(ctx context.Context, req transcription.TranscriptionRequest) (*transcription.TranscriptionResponse, error) {
	if err := p.ValidateCredential(req.Credential); err != nil {
		return nil, &transcription.ProviderError{
			Provider: ProviderName,
			Kind:     transcription.KindAuth,
			Message:  err.Error(),
			Err:      err,
		}
	}

	audio, err := req.OpenAudio()
	if err != nil {
		return nil, err
	}
	defer func() { _ = audio.Close() }()

	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}

	fields := map[string]string{
		"model":           model,
		"response_format": "json",
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   transcriptionPath,
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{{
				FieldName:   "file",
				FileName:    req.Name(),
				ContentType: "audio/mpeg",
				Reader:      audio,
			}},
		},
		Token: req.Credential,
	})
	if err != nil {
		var body []byte
		if resp != nil {
			body = resp.Body
		}
		return nil, transcription.ClassifyError(ProviderName, err, apiErrorMessage(body))
	}

	var result transcriptionResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, transcription.ClassifyError(ProviderName, fmt.Errorf("decode response: %w", err), "")
	}

	return &transcription.TranscriptionResponse{
		Text:     result.Text,
		Language: req.Language,
		Duration: result.Duration,
	}, nil
}

type transcriptionResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration,omitempty"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// apiErrorMessage extracts the message from an OpenAI error body, falling
// back to the raw body text.
func apiErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		return er.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) <= maxErrorMessage {
		return msg
	}
	cut := maxErrorMessage
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
