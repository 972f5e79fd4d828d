package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind says why an upstream call failed.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindAuth       Kind = "auth"
	KindThrottled  Kind = "throttled"
	KindRejected   Kind = "rejected"
	KindUpstream   Kind = "upstream"
)

// Error is returned for transport failures and non-2xx responses.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("httpclient: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether repeating the call later may succeed.
func (e *Error) Temporary() bool {
	switch e.Kind {
	case KindTimeout, KindConnection, KindThrottled:
		return true
	case KindUpstream:
		return e.StatusCode >= 500
	}
	return false
}

// NewTimeoutError wraps a deadline or client timeout.
func NewTimeoutError(err error) *Error {
	return &Error{Kind: KindTimeout, Message: err.Error(), Err: err}
}

// NewConnectionError wraps a dial, TLS or read failure.
func NewConnectionError(err error) *Error {
	return &Error{Kind: KindConnection, Message: err.Error(), Err: err}
}

// ClassifyStatusCode maps a response status to an *Error. 2xx yields nil.
func ClassifyStatusCode(status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	e := &Error{
		Kind:       KindUpstream,
		StatusCode: status,
		Message:    fmt.Sprintf("HTTP %d", status),
		Body:       body,
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
	case status == http.StatusTooManyRequests:
		e.Kind = KindThrottled
	case status >= 400 && status < 500:
		e.Kind = KindRejected
	}
	return e
}

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsTimeout reports whether err is a timeout *Error.
func IsTimeout(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTimeout
}

// IsConnection reports whether err is a connection *Error.
func IsConnection(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindConnection
}

// IsAuth reports whether the upstream rejected the credential.
func IsAuth(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindAuth
}

// IsTemporary reports whether err is an *Error worth retrying.
func IsTemporary(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Temporary()
}
