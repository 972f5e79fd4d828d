package transcription

import (
	"context"

	"github.com/kbukum/whisperbatch/provider"
)

// Provider is the interface that transcription backends must implement.
type Provider interface {
	provider.Provider // embeds Name() and IsAvailable()

	// Transcribe sends audio for transcription and returns the result.
	Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error)
}

// CredentialValidator is implemented by providers that can reject a
// malformed credential locally, before any audio is uploaded.
type CredentialValidator interface {
	ValidateCredential(credential string) error
}

// Call is a transcription provider seen as a request/response provider, the
// shape provider middleware operates on.
type Call = provider.RequestResponse[TranscriptionRequest, *TranscriptionResponse]

// AsRequestResponse adapts p so it can be wrapped with provider.Chain.
func AsRequestResponse(p Provider) Call {
	return &providerCall{p: p}
}

type providerCall struct {
	p Provider
}

func (c *providerCall) Name() string                         { return c.p.Name() }
func (c *providerCall) IsAvailable(ctx context.Context) bool { return c.p.IsAvailable(ctx) }

func (c *providerCall) Execute(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	return c.p.Transcribe(ctx, req)
}
