package batch

import (
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/kbukum/whisperbatch/errors"
	"github.com/kbukum/whisperbatch/transcription"
)

// Batch error codes.
const (
	ErrCodeTooManyItems        apperrors.ErrorCode = "TOO_MANY_ITEMS"
	ErrCodeUnsupportedLanguage apperrors.ErrorCode = "UNSUPPORTED_LANGUAGE"
	ErrCodeMissingCredential   apperrors.ErrorCode = "MISSING_CREDENTIAL"
	ErrCodeInvalidCredential   apperrors.ErrorCode = "INVALID_CREDENTIAL"
	ErrCodeNoValidItems        apperrors.ErrorCode = "NO_VALID_ITEMS"
	ErrCodeProvider            apperrors.ErrorCode = "PROVIDER_ERROR"
	ErrCodeProcessingFailed    apperrors.ErrorCode = "PROCESSING_FAILED"
)

// ErrTooManyItems is returned when a batch holds more than limit items.
func ErrTooManyItems(limit int) *apperrors.AppError {
	return apperrors.New(ErrCodeTooManyItems,
		fmt.Sprintf("A maximum of %d files can be processed at once.", limit),
		http.StatusBadRequest).WithDetail("max_items", limit)
}

// ErrUnsupportedLanguage is returned for a language outside the configured set.
func ErrUnsupportedLanguage(lang string) *apperrors.AppError {
	return apperrors.New(ErrCodeUnsupportedLanguage, "Unsupported language selected.",
		http.StatusBadRequest).WithDetail("language", lang)
}

// ErrMissingCredential is returned when no bearer credential was sent.
func ErrMissingCredential() *apperrors.AppError {
	return apperrors.New(ErrCodeMissingCredential,
		"API key must be provided in the Authorization header as 'Bearer <api_key>'",
		http.StatusBadRequest)
}

// ErrInvalidCredential is returned when the provider rejects the credential's
// format before any upload.
func ErrInvalidCredential(cause error) *apperrors.AppError {
	return apperrors.New(ErrCodeInvalidCredential, "Invalid OpenAI API Key format.",
		http.StatusBadRequest).WithCause(cause)
}

// ErrNoValidItems is returned when every item of the batch was rejected.
func ErrNoValidItems(reasons []string) *apperrors.AppError {
	return apperrors.New(ErrCodeNoValidItems,
		"No valid MP3 files were provided. Errors: "+strings.Join(reasons, "; "),
		http.StatusBadRequest).WithDetail("rejected", len(reasons))
}

// ErrProvider wraps a provider failure that aborted the whole batch.
func ErrProvider(err error) *apperrors.AppError {
	msg := err.Error()
	if pe, ok := transcription.AsProviderError(err); ok {
		msg = pe.Message
	}
	return apperrors.New(ErrCodeProvider, "OpenAI API Error: "+msg,
		http.StatusUnauthorized).WithCause(err)
}

// ErrProcessingFailed wraps any unexpected failure of the batch.
func ErrProcessingFailed(err error) *apperrors.AppError {
	return apperrors.New(ErrCodeProcessingFailed, "Processing failed: "+err.Error(),
		http.StatusInternalServerError).WithCause(err)
}

// AsAppError maps err to the error returned to the client. Application
// errors pass through, provider errors become 401 and anything else 500.
func AsAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	if transcription.IsProviderError(err) {
		return ErrProvider(err)
	}
	return ErrProcessingFailed(err)
}
