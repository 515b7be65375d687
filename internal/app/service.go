// Package service runs the face analysis pipeline behind the HTTP API:
// decode, detect, align, classify, archive.
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/okian/faceattr/internal/domain/model"
	"github.com/okian/faceattr/internal/domain/prediction"
	"github.com/okian/faceattr/pkg/logger"
	"github.com/okian/faceattr/pkg/metrics"
)

// DefaultMaxUploadBytes is the upload ceiling (10 MiB).
const DefaultMaxUploadBytes int64 = 10 << 20

// Decoder turns uploaded bytes into pixels.
type Decoder interface {
	Decode(data []byte) (*model.RGBImage, error)
}

// FaceDetector finds faces and their 5-point landmarks.
type FaceDetector interface {
	Detect(ctx context.Context, img *model.RGBImage) ([]model.DetectedFace, error)
}

// FaceAligner produces the normalized chip for one face.
type FaceAligner interface {
	Align(img *model.RGBImage, face model.DetectedFace) (*model.AlignedFace, error)
}

// Classifier runs the attribute network and returns its raw scores.
type Classifier interface {
	Classify(ctx context.Context, face *model.AlignedFace) ([]float32, error)
	Device() string
}

// Archive stores aligned faces and submitted analyses.
type Archive interface {
	SaveAligned(ctx context.Context, img image.Image) (string, error)
	SaveAnalysis(ctx context.Context, data []byte) (string, error)
	Dir() string
}

// Analysis is the outcome of one successful pipeline run.
type Analysis struct {
	Result      prediction.Result
	AlignedPath string
	Faces       int
}

// CleanupReport describes one cleanup run.
type CleanupReport struct {
	Status     string
	Message    string
	HeapBefore uint64
	HeapAfter  uint64
}

// Health is the liveness snapshot served by the health endpoint.
type Health struct {
	Status       string
	ModelsLoaded bool
	Device       string
	AlbumsDir    string
}

// Service is built once at startup and shared read-only by all requests.
type Service struct {
	decoder        Decoder
	detector       FaceDetector
	aligner        FaceAligner
	classifier     Classifier
	archive        Archive
	maxUploadBytes int64
	closers        []func() error
	logger         logger.Logger
	startedAt      time.Time

	mu       sync.Mutex
	outcomes map[string]int64
	saved    int64
	cleanups int64
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDecoder sets the image decoder.
func WithDecoder(d Decoder) Option { return func(s *Service) { s.decoder = d } }

// WithDetector sets the face detector.
func WithDetector(d FaceDetector) Option { return func(s *Service) { s.detector = d } }

// WithAligner sets the face aligner.
func WithAligner(a FaceAligner) Option { return func(s *Service) { s.aligner = a } }

// WithClassifier sets the attribute classifier.
func WithClassifier(c Classifier) Option { return func(s *Service) { s.classifier = c } }

// WithArchive sets where artifacts are written.
func WithArchive(a Archive) Option { return func(s *Service) { s.archive = a } }

// WithMaxUploadBytes sets the upload ceiling.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithCloser registers a release hook run by Close in reverse order.
func WithCloser(fn func() error) Option {
	return func(s *Service) {
		if fn != nil {
			s.closers = append(s.closers, fn)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New assembles a Service. Every pipeline component is required.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		maxUploadBytes: DefaultMaxUploadBytes,
		outcomes:       make(map[string]int64),
		startedAt:      time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case s.decoder == nil:
		return nil, errors.New("service: decoder is required")
	case s.detector == nil:
		return nil, errors.New("service: detector is required")
	case s.aligner == nil:
		return nil, errors.New("service: aligner is required")
	case s.classifier == nil:
		return nil, errors.New("service: classifier is required")
	case s.archive == nil:
		return nil, errors.New("service: archive is required")
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	return s, nil
}

// MaxUploadBytes returns the upload ceiling.
func (s *Service) MaxUploadBytes() int64 { return s.maxUploadBytes }

// Health reports the loaded device and archive location.
func (s *Service) Health() Health {
	return Health{
		Status:       "healthy",
		ModelsLoaded: true,
		Device:       s.classifier.Device(),
		AlbumsDir:    s.archive.Dir(),
	}
}

// Analyze runs the full pipeline on an uploaded image. Errors are
// *StageError values; use KindOf to tell client faults from server faults.
func (s *Service) Analyze(ctx context.Context, data []byte) (*Analysis, error) {
	a, err := s.analyze(ctx, data)
	s.countOutcome(err)
	if err != nil {
		lvl := s.logger.Warn
		if KindOf(err) == KindServer {
			lvl = s.logger.Error
		}
		lvl(ctx, "analysis failed", logger.Int("bytes", len(data)), logger.Error(err))
		return nil, err
	}
	s.logger.Info(ctx, "analysis complete",
		logger.String("race", a.Result.Race.Label),
		logger.String("gender", a.Result.Gender.Label),
		logger.String("age", a.Result.Age.Label),
		logger.Int("faces", a.Faces),
		logger.String("aligned", a.AlignedPath))
	return a, nil
}

func (s *Service) analyze(ctx context.Context, data []byte) (*Analysis, error) {
	if int64(len(data)) > s.maxUploadBytes {
		return nil, clientErr(StageUpload, ErrFileTooLarge, nil)
	}

	var img *model.RGBImage
	err := timed(metrics.StageDecode, func() (err error) {
		img, err = s.decoder.Decode(data)
		return err
	})
	if err != nil {
		return nil, clientErr(StageDecode, ErrInvalidImage, err)
	}

	var faces []model.DetectedFace
	err = timed(metrics.StageDetect, func() (err error) {
		faces, err = s.detector.Detect(ctx, img)
		return err
	})
	if err != nil {
		return nil, serverErr(StageDetect, ErrDetect, err)
	}
	metrics.RecordFacesDetected(len(faces))
	if len(faces) == 0 {
		return nil, clientErr(StageDetect, ErrNoFace, nil)
	}

	var chip *model.AlignedFace
	err = timed(metrics.StageAlign, func() (err error) {
		chip, err = s.aligner.Align(img, faces[0])
		return err
	})
	if err == nil && (chip == nil || !chip.Image.Valid()) {
		err = errors.New("empty chip")
	}
	if err != nil {
		return nil, clientErr(StageAlign, ErrAlignFailed, err)
	}

	var result prediction.Result
	err = timed(metrics.StageInfer, func() error {
		raw, err := s.classifier.Classify(ctx, chip)
		if err != nil {
			return err
		}
		result, err = prediction.FromLogits(raw)
		return err
	})
	if err != nil {
		return nil, serverErr(StageInfer, ErrInference, err)
	}

	var path string
	err = timed(metrics.StagePersist, func() (err error) {
		path, err = s.archive.SaveAligned(ctx, chip.Image)
		return err
	})
	if err != nil {
		return nil, serverErr(StagePersist, ErrPersist, err)
	}

	return &Analysis{Result: result, AlignedPath: path, Faces: len(faces)}, nil
}

// SaveAnalysis stores predictions verbatim and returns the file path.
func (s *Service) SaveAnalysis(ctx context.Context, predictions []byte) (string, error) {
	if len(predictions) == 0 {
		return "", clientErr(StagePersist, ErrEmptyPrediction, nil)
	}
	path, err := s.archive.SaveAnalysis(ctx, predictions)
	if err != nil {
		s.logger.Error(ctx, "saving analysis failed", logger.Error(err))
		return "", serverErr(StagePersist, ErrPersist, err)
	}

	s.mu.Lock()
	s.saved++
	s.mu.Unlock()
	s.logger.Info(ctx, "analysis saved", logger.String("path", path))
	return path, nil
}

// Cleanup forces a garbage collection and hands freed memory back to the OS.
// It never fails; problems are reported in the returned status.
func (s *Service) Cleanup(ctx context.Context) (report CleanupReport) {
	defer func() {
		if r := recover(); r != nil {
			report = CleanupReport{Status: "error", Message: fmt.Sprint(r)}
		}
		metrics.RecordCleanup(report.Status)
		s.mu.Lock()
		s.cleanups++
		s.mu.Unlock()
	}()

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	runtime.GC()
	debug.FreeOSMemory()
	runtime.ReadMemStats(&after)

	s.logger.Info(ctx, "memory cleanup",
		logger.Int64("heap_before", int64(before.HeapAlloc)),
		logger.Int64("heap_after", int64(after.HeapAlloc)))
	return CleanupReport{
		Status:     "success",
		Message:    "Memory cleaned up",
		HeapBefore: before.HeapAlloc,
		HeapAfter:  after.HeapAlloc,
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes := make(map[string]int64, len(s.outcomes))
	var total int64
	for k, v := range s.outcomes {
		outcomes[k] = v
		total += v
	}
	return map[string]interface{}{
		"device":         s.classifier.Device(),
		"albumsDir":      s.archive.Dir(),
		"uptimeSeconds":  int64(time.Since(s.startedAt).Seconds()),
		"analyses":       total,
		"outcomes":       outcomes,
		"savedAnalyses":  s.saved,
		"cleanups":       s.cleanups,
		"maxUploadBytes": s.maxUploadBytes,
	}
}

// Close releases models in reverse registration order.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) countOutcome(err error) {
	outcome := Outcome(err)
	metrics.RecordAnalysis(outcome)
	s.mu.Lock()
	s.outcomes[outcome]++
	s.mu.Unlock()
}

// Outcome names the result of an analysis for metrics and stats.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, ErrInvalidImage):
		return "invalid_image"
	case errors.Is(err, ErrNoFace):
		return "no_face"
	case errors.Is(err, ErrAlignFailed):
		return "align_failed"
	case errors.Is(err, ErrDetect):
		return "detect_error"
	case errors.Is(err, ErrInference):
		return "inference_error"
	case errors.Is(err, ErrPersist):
		return "persist_error"
	default:
		return "error"
	}
}

func timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStageDuration(stage, float64(time.Since(start).Microseconds())/1000)
	return err
}
