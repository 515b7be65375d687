package storage

import "errors"

var (
	// ErrNameExhausted is returned when every suffixed name for a timestamp is taken.
	ErrNameExhausted = errors.New("no free file name for timestamp")
	// ErrEmptyPayload is returned when asked to store nothing.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrMirrorConfig is returned when the S3 mirror cannot be configured.
	ErrMirrorConfig = errors.New("invalid mirror configuration")
	// ErrMirrorBusy is returned when the upload queue is full or closed.
	ErrMirrorBusy = errors.New("mirror queue unavailable")
)
