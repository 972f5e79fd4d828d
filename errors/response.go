package errors

import stderrors "errors"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string    `json:"detail"`
	Code   ErrorCode `json:"code,omitempty"`
}

// ToResponse drops everything the client must not see.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Detail: e.Message, Code: e.Code}
}

// AsAppError finds an AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
