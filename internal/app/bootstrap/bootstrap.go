// Package bootstrap loads the native models and storage from configuration
// and assembles the service around them. It is the only package that links
// OpenCV, dlib and onnxruntime into the service graph.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/faceattr/internal/adapters/inference"
	"github.com/okian/faceattr/internal/adapters/storage"
	"github.com/okian/faceattr/internal/adapters/vision"
	service "github.com/okian/faceattr/internal/app"
	"github.com/okian/faceattr/internal/config"
	"github.com/okian/faceattr/pkg/logger"
)

// mirrorDrainTimeout bounds how long Close waits for queued uploads.
const mirrorDrainTimeout = 15 * time.Second

// Load brings up the archive, dlib models and classifier described by cfg
// and assembles a Service around them. Any failure is a *StartupError and
// releases whatever was already loaded.
func Load(ctx context.Context, cfg *config.Config, log logger.Logger) (svc *service.Service, err error) {
	if log == nil {
		log = logger.Named("loader")
	}

	var closers []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}()

	albumOpts := []storage.Option{storage.WithLogger(logger.Named("storage"))}
	if cfg.S3Bucket != "" {
		mirror, merr := storage.NewS3Mirror(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if merr != nil {
			return nil, &StartupError{Component: "s3 mirror", Err: merr}
		}
		async := storage.NewAsyncMirror(ctx, mirror, storage.AsyncOptions{
			QueueSize: cfg.S3QueueSize,
			Workers:   cfg.S3Workers,
			Logger:    logger.Named("mirror"),
		})
		closers = append(closers, func() error {
			drainCtx, cancel := context.WithTimeout(context.Background(), mirrorDrainTimeout)
			defer cancel()
			return async.Close(drainCtx)
		})
		albumOpts = append(albumOpts, storage.WithMirror(async))
		log.Info(ctx, "archive mirror enabled",
			logger.String("bucket", cfg.S3Bucket),
			logger.String("prefix", cfg.S3Prefix),
			logger.Int("workers", cfg.S3Workers))
	}
	album, err := storage.NewAlbum(cfg.AlbumsDir, albumOpts...)
	if err != nil {
		return nil, &StartupError{Component: "albums", Err: err}
	}

	start := time.Now()
	detector, err := vision.NewDetector(cfg.DlibModelsDir, vision.WithUpsample(cfg.DetectorUpsample))
	if err != nil {
		return nil, &StartupError{Component: "face detector", Err: err}
	}
	closers = append(closers, func() error { detector.Close(); return nil })
	log.Info(ctx, "dlib models loaded",
		logger.String("dir", cfg.DlibModelsDir),
		logger.Duration("took", time.Since(start)))

	start = time.Now()
	classifier, err := inference.NewClassifier(cfg.ModelPath,
		inference.WithDevice(cfg.Device),
		inference.WithLibraryPath(cfg.ONNXLibraryPath),
		inference.WithInputSize(cfg.InputSize),
	)
	if err != nil {
		return nil, &StartupError{Component: "classifier", Err: err}
	}
	closers = append(closers, classifier.Close)
	log.Info(ctx, "classifier loaded",
		logger.String("model", cfg.ModelPath),
		logger.String("device", classifier.Device()),
		logger.Duration("took", time.Since(start)))

	opts := []service.Option{
		service.WithDecoder(vision.NewDecoder()),
		service.WithDetector(detector),
		service.WithAligner(vision.NewAligner(cfg.ChipSize, cfg.ChipPadding)),
		service.WithClassifier(classifier),
		service.WithArchive(album),
		service.WithMaxUploadBytes(cfg.MaxUploadBytes),
		service.WithLogger(logger.Named("service")),
	}
	for _, c := range closers {
		opts = append(opts, service.WithCloser(c))
	}

	svc, err = service.New(opts...)
	if err != nil {
		return nil, &StartupError{Component: "service", Err: err}
	}
	return svc, nil
}

// StartupError wraps any failure to bring up models or storage. It is fatal.
type StartupError struct {
	Component string
	Err       error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup: %s: %v", e.Component, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }
