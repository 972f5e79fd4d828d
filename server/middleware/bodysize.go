package middleware

import (
	"net/http"

	apperrors "github.com/kbukum/whisperbatch/errors"
	"github.com/kbukum/whisperbatch/util"
)

const defaultMaxBodySize = 10 << 20

// BodySizeLimit caps request bodies at maxSize ("600MB"). A declared
// length above the cap is refused up front; a streamed body fails on the
// read that crosses it.
func BodySizeLimit(maxSize string) Middleware {
	limit := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeError(w, apperrors.New(apperrors.ErrCodeTooLarge, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
