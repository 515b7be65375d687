package smoke

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/faceattr/pkg/logger"
)

// ErrFailures is returned when at least one request failed.
var ErrFailures = errors.New("smoke run had failures")

type sample struct {
	name string
	data []byte
}

// Run executes the complete smoke test and returns the collected stats.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	runID := uuid.NewString()
	log := logger.Named("smoke")

	log.Info(ctx, "starting faceattr smoke run",
		logger.String("run", runID),
		logger.String("baseURL", config.BaseURL),
		logger.Int("images", len(config.Images)),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("save", config.Save))

	samples, err := loadSamples(config.Images)
	if err != nil {
		return stats, err
	}

	client := NewHTTPClient(config.BaseURL, config.Timeout)
	health, err := client.Health(ctx)
	if err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	log.Info(ctx, "service is healthy", logger.String("device", health.Device))

	var successful, rejected, failed, saved, submitted int64
	jobs := make(chan int, config.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				atomic.AddInt64(&submitted, 1)
				s := samples[i%len(samples)]
				reqID := fmt.Sprintf("%s-%d", runID, i)
				rctx := logger.ContextWithRequestID(ctx, reqID)

				pred, raw, err := client.Analyze(rctx, reqID, s.name, s.data)
				var se *StatusError
				switch {
				case errors.As(err, &se) && se.Code < 500:
					atomic.AddInt64(&rejected, 1)
					log.Warn(rctx, "upload rejected", logger.String("image", s.name), logger.Error(err))
					continue
				case err != nil:
					atomic.AddInt64(&failed, 1)
					log.Error(rctx, "upload failed", logger.String("image", s.name), logger.Error(err))
					continue
				}
				if err := Verify(pred); err != nil {
					atomic.AddInt64(&failed, 1)
					log.Error(rctx, "bad prediction", logger.String("image", s.name), logger.Error(err))
					continue
				}
				atomic.AddInt64(&successful, 1)
				if config.Verbose {
					log.Info(rctx, "prediction",
						logger.String("image", s.name),
						logger.String("race", pred.Race),
						logger.String("gender", pred.Gender),
						logger.String("age", pred.Age))
				}

				if config.Save {
					if err := client.SaveAnalysis(rctx, reqID, raw); err != nil {
						atomic.AddInt64(&failed, 1)
						log.Error(rctx, "save-analysis failed", logger.Error(err))
						continue
					}
					atomic.AddInt64(&saved, 1)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < config.Requests; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(submitted)
	stats.Successful = int(successful)
	stats.Rejected = int(rejected)
	stats.Failed = int(failed)
	stats.Saved = int(saved)
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrFailures, stats.Failed, stats.Submitted)
	}
	return stats, ctx.Err()
}

func loadSamples(paths []string) ([]sample, error) {
	if len(paths) == 0 {
		return nil, errors.New("no images given")
	}
	out := make([]sample, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		out = append(out, sample{name: p, data: data})
	}
	return out, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * 100
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("saved", stats.Saved),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", perSecond))
}
