package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/faceattr/internal/adapters/http/api"
	"github.com/okian/faceattr/internal/adapters/http/swagger"
	service "github.com/okian/faceattr/internal/app"
	"github.com/okian/faceattr/internal/app/bootstrap"
	"github.com/okian/faceattr/internal/config"
	"github.com/okian/faceattr/pkg/logger"
	"github.com/okian/faceattr/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger format depends on config, so report on stderr
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	log.Info(ctx, "loading models",
		logger.String("model_path", cfg.ModelPath),
		logger.String("dlib_models_dir", cfg.DlibModelsDir),
		logger.Int("detector_upsample", cfg.DetectorUpsample),
		logger.String("device", cfg.Device),
	)
	svc, err := bootstrap.Load(ctx, cfg, logger.Named("bootstrap"))
	if err != nil {
		var se *bootstrap.StartupError
		if errors.As(err, &se) {
			log.Fatal(ctx, "startup failed", logger.String("component", se.Component), logger.Error(se.Err))
		}
		log.Fatal(ctx, "startup failed", logger.Error(err))
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error(context.Background(), "release models", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)

	handler, err := newHandler(ctx, svc)
	if err != nil {
		log.Fatal(ctx, "register routes", logger.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("device", svc.Health().Device),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
}

// newHandler registers every route on a fresh mux and wraps it with the
// request-scoped middleware.
func newHandler(ctx context.Context, svc *service.Service) (http.Handler, error) {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	if err := swagger.Register(ctx, mux); err != nil {
		return nil, err
	}
	return api.Chain(mux,
		api.RequestIDMiddleware,
		api.RecoverMiddleware,
		api.AccessLogMiddleware,
	), nil
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
