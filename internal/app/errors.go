package service

import (
	"errors"
	"fmt"
)

// Kind separates caller mistakes from faults on our side.
type Kind int

const (
	// KindClient means the request itself was unacceptable (HTTP 4xx).
	KindClient Kind = iota + 1
	// KindServer means the service failed to handle a valid request (HTTP 5xx).
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Pipeline stages.
const (
	StageUpload  = "upload"
	StageDecode  = "decode"
	StageDetect  = "detect"
	StageAlign   = "align"
	StageInfer   = "infer"
	StagePersist = "persist"
)

// Client errors. The messages are returned to callers as-is.
var ( //nolint:staticcheck // capitalized, caller-facing text
	ErrFileTooLarge    = errors.New("File too large. Maximum size is 10MB")
	ErrInvalidImage    = errors.New("Invalid image format")
	ErrNoFace          = errors.New("No face detected in image")
	ErrAlignFailed     = errors.New("Failed to align detected face")
	ErrEmptyPrediction = errors.New("predictions field is required")
)

// Server errors.
var (
	ErrDetect    = errors.New("face detection failed")
	ErrInference = errors.New("model inference failed")
	ErrPersist   = errors.New("failed to write archive file")
)

// StageError records which pipeline stage failed and whose fault it was.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func clientErr(stage string, sentinel error, cause error) error {
	return &StageError{Stage: stage, Kind: KindClient, Err: join(sentinel, cause)}
}

func serverErr(stage string, sentinel error, cause error) error {
	return &StageError{Stage: stage, Kind: KindServer, Err: join(sentinel, cause)}
}

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// KindOf reports the Kind of err, defaulting to KindServer for errors that
// did not come out of the pipeline.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindServer
}

// ErrInternal is the detail reported for failures outside the pipeline.
var ErrInternal = errors.New("internal server error")

// Detail is the caller-facing message for err: the sentinel text for both
// client and server errors. Causes are never exposed; callers log them.
func Detail(err error) string {
	sentinels := []error{ErrDetect, ErrInference, ErrPersist}
	if KindOf(err) == KindClient {
		sentinels = []error{ErrFileTooLarge, ErrInvalidImage, ErrNoFace, ErrAlignFailed, ErrEmptyPrediction}
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return ErrInternal.Error()
}
