package vision

import "errors"

var (
	// ErrEmptyImage is returned when the input decodes to nothing.
	ErrEmptyImage = errors.New("image is empty or not decodable")
	// ErrModelMissing is returned when a dlib model file is absent.
	ErrModelMissing = errors.New("dlib model file missing")
	// ErrDetectorClosed is returned by Detect after Close.
	ErrDetectorClosed = errors.New("face detector is closed")
	// ErrWarpFailed is returned when the affine warp yields no pixels.
	ErrWarpFailed = errors.New("face warp produced no output")
)
