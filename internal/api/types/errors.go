package types

import (
	"errors"

	appErr "github.com/stage-app/engine/pkg/errors"
)

// FromAppError converts err into the wire error. Non-AppError values keep
// their text with code unknown.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var e *appErr.AppError
	if errors.As(err, &e) {
		return &APIError{Code: string(e.Code), Message: e.Message}
	}
	return &APIError{Code: string(appErr.CodeUnknown), Message: err.Error()}
}
