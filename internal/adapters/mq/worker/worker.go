// Package worker runs a fixed pool of goroutines that drain a queue in the
// background.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/faceattr/pkg/logger"
	"github.com/okian/faceattr/pkg/metrics"
)

const defaultJobTimeout = 30 * time.Second

// Handler processes one item. Errors are logged and counted, never retried.
type Handler[T any] func(ctx context.Context, item T) error

// Source is where workers read items from. The channel must be closed to
// let workers exit after draining.
type Source[T any] interface {
	Dequeue() <-chan T
}

// InMemoryWorker processes items from a Source one at a time.
type InMemoryWorker[T any] struct {
	pool       string
	name       string
	source     Source[T]
	handle     Handler[T]
	jobTimeout time.Duration
	logger     logger.Logger
	done       chan struct{}
}

// Run handles items until the source is drained and closed or ctx is done.
func (w *InMemoryWorker[T]) Run(ctx context.Context) {
	defer close(w.done)

	items := w.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-items:
			if !ok {
				return
			}
			w.process(ctx, item)
		}
	}
}

func (w *InMemoryWorker[T]) process(ctx context.Context, item T) {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	start := time.Now()
	err := w.handle(jobCtx, item)
	metrics.RecordWorkerJob(w.pool, err == nil, float64(time.Since(start).Milliseconds()))
	if err != nil {
		w.logger.Warn(ctx, "job failed", logger.Error(err))
	}
}

// Pool manages a fixed set of workers sharing one Source.
type Pool[T any] struct {
	name    string
	source  Source[T]
	workers []*InMemoryWorker[T]
	logger  logger.Logger

	cancel    context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewPool creates a pool of workerCount workers (at least one) that call
// handle for every item read from source.
func NewPool[T any](name string, workerCount int, source Source[T], handle Handler[T], opts ...Option) *Pool[T] {
	cfg := config{jobTimeout: defaultJobTimeout, logger: logger.Named("worker-pool")}
	for _, opt := range opts {
		opt(&cfg)
	}
	if workerCount < 1 {
		workerCount = 1
	}

	p := &Pool[T]{
		name:    name,
		source:  source,
		workers: make([]*InMemoryWorker[T], workerCount),
		logger:  cfg.logger.Named(name),
		cancel:  func() {},
	}
	for i := range p.workers {
		wname := name + "-" + strconv.Itoa(i)
		p.workers[i] = &InMemoryWorker[T]{
			pool:       name,
			name:       wname,
			source:     source,
			handle:     handle,
			jobTimeout: cfg.jobTimeout,
			logger:     cfg.logger.Named(wname),
			done:       make(chan struct{}),
		}
	}
	return p
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int { return len(p.workers) }

// Start launches every worker. Jobs run under ctx, so cancelling it aborts
// in-flight work.
func (p *Pool[T]) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		for _, w := range p.workers {
			go w.Run(ctx)
		}
		metrics.UpdateWorkerActiveCount(p.name, len(p.workers))
	})
}

// Shutdown closes the source when it supports Close and waits for the
// workers to drain it. When ctx expires first, in-flight jobs are cancelled
// and an error is returned.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		if closer, ok := p.source.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
			}
		}

		for i, w := range p.workers {
			select {
			case <-w.done:
			case <-ctx.Done():
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				err = fmt.Errorf("shutdown %s: %w", p.name, ctx.Err())
			}
			if err != nil {
				break
			}
		}
		p.cancel()
		metrics.UpdateWorkerActiveCount(p.name, 0)
	})
	return err
}
