package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/faceattr/internal/app"
	"github.com/okian/faceattr/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrMissingFile      = errors.New("multipart field \"file\" is required")
	ErrBadJSON          = errors.New("request body must be a JSON object")
)

// Error codes returned in the JSON body.
const (
	codeMethodNotAllowed = "method_not_allowed"
	codeBadRequest       = "bad_request"
	codeFileTooLarge     = "file_too_large"
	codeInvalidImage     = "invalid_image"
	codeNoFace           = "no_face"
	codeAlignFailed      = "align_failed"
	codeInternal         = "internal_error"
)

// statusFor maps a pipeline error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, codeFileTooLarge
	case errors.Is(err, service.ErrInvalidImage):
		return http.StatusBadRequest, codeInvalidImage
	case errors.Is(err, service.ErrNoFace):
		return http.StatusBadRequest, codeNoFace
	case errors.Is(err, service.ErrAlignFailed):
		return http.StatusBadRequest, codeAlignFailed
	case service.KindOf(err) == service.KindClient:
		return http.StatusBadRequest, codeBadRequest
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Error(ctx, "request failed", logger.String("code", code), logger.Error(err))
	}
	writeError(w, status, code, service.Detail(err))
}
