package inference

import "errors"

var (
	// ErrModelMissing is returned when the ONNX file does not exist.
	ErrModelMissing = errors.New("classifier model file missing")
	// ErrCUDAUnavailable is returned when device "cuda" is forced but the
	// CUDA execution provider cannot be used.
	ErrCUDAUnavailable = errors.New("cuda execution provider unavailable")
	// ErrNoFace is returned when Classify is given an empty crop.
	ErrNoFace = errors.New("empty face crop")
)
