package vision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/faceattr/internal/domain/model"
)

// Model files loaded from the dlib models directory.
const (
	DetectorModelFile = "mmod_human_face_detector.dat"
	ShapeModelFile    = "shape_predictor_5_face_landmarks.dat"
)

// DefaultUpsample doubles the image once before detection so faces down to
// roughly 40px are found.
const DefaultUpsample = 1

// Detector runs dlib's CNN face detector and 5-point shape predictor.
// The dlib network is not safe for concurrent use, so calls are serialized.
type Detector struct {
	mu       sync.Mutex
	net      *mmodNet
	upsample int
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithUpsample sets how many times the image is pyramid-upsampled before
// detection. Zero disables it.
func WithUpsample(n int) DetectorOption {
	return func(d *Detector) {
		if n >= 0 {
			d.upsample = n
		}
	}
}

// NewDetector loads the dlib models from dir.
func NewDetector(dir string, opts ...DetectorOption) (*Detector, error) {
	d := &Detector{upsample: DefaultUpsample}
	for _, opt := range opts {
		opt(d)
	}

	paths := make([]string, 0, 2)
	for _, name := range []string{DetectorModelFile, ShapeModelFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrModelMissing, path, err)
		}
		paths = append(paths, path)
	}

	net, err := newMMODNet(paths[0], paths[1])
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", dir, err)
	}
	d.net = net
	return d, nil
}

// Detect returns every face in the CNN's output order, which is by
// descending confidence. The slice is empty, not an error, when no face is
// found.
func (d *Detector) Detect(ctx context.Context, img *model.RGBImage) ([]model.DetectedFace, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// the lock can be held by a slow CNN pass; give up if the caller is gone
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.net == nil {
		return nil, ErrDetectorClosed
	}

	found, err := d.net.detect(img, d.upsample)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	return model.FromUpsampled(found, d.upsample), nil
}

// Close releases the dlib models.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.net != nil {
		d.net.close()
		d.net = nil
	}
}
