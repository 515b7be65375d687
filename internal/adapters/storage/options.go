package storage

import (
	"time"

	"github.com/okian/faceattr/pkg/logger"
)

// Option configures an Album.
type Option func(*Album)

// WithMirror copies every archived file to m after it is written to disk.
func WithMirror(m Mirror) Option {
	return func(a *Album) {
		a.mirror = m
	}
}

// WithClock replaces time.Now, used for file names.
func WithClock(now func() time.Time) Option {
	return func(a *Album) {
		if now != nil {
			a.now = now
		}
	}
}

// WithJPEGQuality sets the quality of aligned face JPEGs (1-100).
func WithJPEGQuality(q int) Option {
	return func(a *Album) {
		if q >= 1 && q <= 100 {
			a.jpegQuality = q
		}
	}
}

// WithLogger sets the logger used for mirror failures.
func WithLogger(l logger.Logger) Option {
	return func(a *Album) {
		if l != nil {
			a.log = l
		}
	}
}
