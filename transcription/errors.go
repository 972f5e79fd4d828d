package transcription

import (
	"errors"
	"fmt"

	"github.com/kbukum/whisperbatch/httpclient"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	// KindAuth means the backend rejected the credential.
	KindAuth ErrorKind = "auth"
	// KindConnection means the backend could not be reached or timed out.
	KindConnection ErrorKind = "connection"
	// KindAPI covers every other backend failure.
	KindAPI ErrorKind = "api"
)

// ErrInvalidCredential is returned by CredentialValidator implementations.
var ErrInvalidCredential = errors.New("invalid credential")

// ProviderError is a failure reported by a transcription backend.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s error (HTTP %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s error: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ClassifyError converts a transport or HTTP error into a ProviderError.
// message, when not empty, replaces the generic HTTP message with the one
// the backend sent.
func ClassifyError(providerName string, err error, message string) *ProviderError {
	pe := &ProviderError{
		Provider: providerName,
		Kind:     KindAPI,
		Message:  message,
		Err:      err,
	}

	var he *httpclient.Error
	if errors.As(err, &he) {
		pe.StatusCode = he.StatusCode
		if pe.Message == "" {
			pe.Message = he.Message
		}
	}

	switch {
	case httpclient.IsAuth(err):
		pe.Kind = KindAuth
	case httpclient.IsConnection(err), httpclient.IsTimeout(err):
		pe.Kind = KindConnection
	}

	if pe.Message == "" && err != nil {
		pe.Message = err.Error()
	}
	return pe
}

// AsProviderError extracts a ProviderError from err's chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsProviderError reports whether err came from a backend.
func IsProviderError(err error) bool {
	_, ok := AsProviderError(err)
	return ok
}
