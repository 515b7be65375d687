package inference

// Option configures a Classifier.
type Option func(*Classifier)

// WithDevice selects "auto", "cuda" or "cpu".
func WithDevice(device string) Option {
	return func(c *Classifier) {
		if device != "" {
			c.wantDevice = device
		}
	}
}

// WithLibraryPath points ONNX Runtime at a specific shared library.
func WithLibraryPath(path string) Option {
	return func(c *Classifier) {
		c.libraryPath = path
	}
}

// WithInputSize sets the square input edge the model expects.
func WithInputSize(size int) Option {
	return func(c *Classifier) {
		if size > 0 {
			c.inputSize = size
		}
	}
}
