// Package middleware holds the HTTP middleware of the server.
//
// Middleware that must see every request, including those Gin never
// routes, has the net/http signature and wraps the root handler.
// Middleware that needs the matched route (CORS, metrics, rate limiting)
// is a gin.HandlerFunc attached to the engine or a route.
package middleware

import (
	"encoding/json"
	"net/http"
	"slices"

	apperrors "github.com/kbukum/whisperbatch/errors"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes mws; the first one sees the request first.
func Chain(mws ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for _, mw := range slices.Backward(mws) {
			h = mw(h)
		}
		return h
	}
}

// writeError answers with the JSON error body handlers use.
func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err.HTTPStatus)
	_ = json.NewEncoder(w).Encode(err.ToResponse())
}
