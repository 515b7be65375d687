package inference

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/okian/faceattr/internal/domain/model"
	"github.com/okian/faceattr/internal/domain/prediction"
)

// Device names reported by Classifier.Device.
const (
	DeviceCUDA = "cuda:0"
	DeviceCPU  = "cpu"
)

const (
	inputName  = "input"
	outputName = "output"
)

var envOnce struct {
	sync.Mutex
	done bool
}

// initEnvironment initializes the process-wide ONNX Runtime environment once.
func initEnvironment(libraryPath string) error {
	envOnce.Lock()
	defer envOnce.Unlock()
	if envOnce.done || ort.IsInitialized() {
		envOnce.done = true
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	envOnce.done = true
	return nil
}

// Classifier wraps an ONNX Runtime session for the 18-output face attribute
// network. Each call allocates its own tensors, so Classify is safe for
// concurrent use.
type Classifier struct {
	session     *ort.DynamicAdvancedSession
	device      string
	wantDevice  string
	libraryPath string
	inputSize   int
}

// NewClassifier loads the model at path.
func NewClassifier(path string, opts ...Option) (*Classifier, error) {
	c := &Classifier{wantDevice: "auto", inputSize: 224}
	for _, opt := range opts {
		opt(c)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelMissing, path, err)
	}
	if err := initEnvironment(c.libraryPath); err != nil {
		return nil, err
	}

	want := strings.ToLower(c.wantDevice)
	if want != DeviceCPU {
		session, err := newSession(path, true)
		if err == nil {
			c.session, c.device = session, DeviceCUDA
			return c, nil
		}
		if want == "cuda" {
			return nil, fmt.Errorf("%w: %v", ErrCUDAUnavailable, err)
		}
	}

	session, err := newSession(path, false)
	if err != nil {
		return nil, err
	}
	c.session, c.device = session, DeviceCPU
	return c, nil
}

func newSession(path string, cuda bool) (*ort.DynamicAdvancedSession, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()

	if cuda {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("cuda provider options: %w", err)
		}
		defer cudaOpts.Destroy()
		if err := cudaOpts.Update(map[string]string{"device_id": "0"}); err != nil {
			return nil, fmt.Errorf("cuda provider options: %w", err)
		}
		if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			return nil, fmt.Errorf("append cuda provider: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{inputName}, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("create session for %s: %w", path, err)
	}
	return session, nil
}

// Device reports where inference runs: "cuda:0" or "cpu".
func (c *Classifier) Device() string { return c.device }

// Classify returns the raw 18 scores for face.
func (c *Classifier) Classify(ctx context.Context, face *model.AlignedFace) ([]float32, error) {
	if face == nil || !face.Image.Valid() {
		return nil, ErrNoFace
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := Tensor(face.Image, c.inputSize)
	size := int64(c.inputSize)
	input, err := ort.NewTensor(ort.NewShape(1, 3, size, size), data)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, prediction.OutputSize))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer output.Destroy()

	if err := c.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	raw := output.GetData()
	out := make([]float32, len(raw))
	copy(out, raw)
	return out, nil
}

// Close destroys the session. The ONNX environment stays up for the life of
// the process.
func (c *Classifier) Close() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Destroy()
	c.session = nil
	if err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}
