package batch

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/provider"
	"github.com/kbukum/whisperbatch/resilience"
	"github.com/kbukum/whisperbatch/storage"
	"github.com/kbukum/whisperbatch/transcription"
)

// ErrEmptyFile is returned when a saved file has no content.
var ErrEmptyFile = errors.New("file is empty")

// Stage transcribes saved files through a provider. Calls are logged, traced
// and capped by a bulkhead shared by every batch.
type Stage struct {
	store     storage.Storage
	call      transcription.Call
	validator transcription.CredentialValidator
	log       *logger.Logger
}

// NewStage wraps p with logging, tracing and the bulkhead. A nil bulkhead
// leaves the number of concurrent calls unbounded.
func NewStage(store storage.Storage, p transcription.Provider, bulkhead *resilience.Bulkhead, serviceName string, log *logger.Logger) *Stage {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("provider." + p.Name())
	call := provider.Chain(
		provider.WithLogging[transcription.TranscriptionRequest, *transcription.TranscriptionResponse](log),
		provider.WithTracing[transcription.TranscriptionRequest, *transcription.TranscriptionResponse](serviceName),
		provider.WithBulkhead[transcription.TranscriptionRequest, *transcription.TranscriptionResponse](bulkhead),
	)(transcription.AsRequestResponse(p))
	validator, _ := p.(transcription.CredentialValidator)
	return &Stage{store: store, call: call, validator: validator, log: log}
}

// Provider returns the name of the underlying provider.
func (s *Stage) Provider() string { return s.call.Name() }

// ValidateCredential checks the credential's format locally when the
// provider supports it.
func (s *Stage) ValidateCredential(credential string) error {
	if s.validator == nil {
		return nil
	}
	return s.validator.ValidateCredential(credential)
}

// Transcribe sends the file at p to the provider and returns the text.
func (s *Stage) Transcribe(ctx context.Context, credential, p, language string) (string, error) {
	info, err := s.store.Stat(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("file does not exist: %s", path.Base(p))
		}
		return "", err
	}
	if info.Size == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyFile, path.Base(p))
	}

	audio, err := s.store.Download(ctx, p)
	if err != nil {
		return "", err
	}
	defer func() { _ = audio.Close() }()

	s.log.WithContext(ctx).Debug("sending audio to provider", logger.Fields(logger.FieldFile, path.Base(p), "bytes", info.Size))
	resp, err := s.call.Execute(ctx, transcription.TranscriptionRequest{
		Audio:      audio,
		FileName:   path.Base(p),
		Language:   language,
		Credential: credential,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("provider returned no transcription")
	}
	if resp.Text == "" {
		s.log.WithContext(ctx).Warn("transcription result is empty", logger.Fields(logger.FieldFile, path.Base(p)))
	}
	return resp.Text, nil
}
