package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/whisperbatch/errors"
)

var (
	errNotFound = apperrors.New(apperrors.ErrCodeNotFound, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	errNoMethod = apperrors.New(apperrors.ErrCodeMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
)

// RespondWithError aborts c with the AppError in err's chain, or with a
// generic 500 when there is none.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	abort(c, appErr)
}

// NotFound is the NoRoute handler.
func NotFound(c *gin.Context) { abort(c, errNotFound) }

// MethodNotAllowed is the NoMethod handler.
func MethodNotAllowed(c *gin.Context) { abort(c, errNoMethod) }

func abort(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}
