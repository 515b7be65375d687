package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/faceattr/internal/adapters/mq/queue"
	"github.com/okian/faceattr/internal/adapters/mq/worker"
	"github.com/okian/faceattr/pkg/logger"
)

// MirrorPoolName labels the async mirror's queue and worker metrics.
const MirrorPoolName = "s3-mirror"

// Upload is one file waiting to be mirrored.
type Upload struct {
	Key         string
	ContentType string
	Data        []byte
}

// AsyncMirror hands uploads to a background worker pool so request latency
// does not include the object store. Put fails fast with ErrMirrorBusy when
// the queue is full.
type AsyncMirror struct {
	queue *queue.InMemoryQueue[Upload]
	pool  *worker.Pool[Upload]
}

// AsyncOptions sizes an AsyncMirror. Zero values pick defaults.
type AsyncOptions struct {
	QueueSize  int
	Workers    int
	JobTimeout time.Duration
	Logger     logger.Logger
}

// NewAsyncMirror starts workers that forward queued uploads to next.
func NewAsyncMirror(ctx context.Context, next Mirror, o AsyncOptions) *AsyncMirror {
	q := queue.NewInMemoryQueue[Upload](MirrorPoolName, queue.WithCapacity(o.QueueSize))
	upload := func(ctx context.Context, u Upload) error {
		return next.Put(ctx, u.Key, u.ContentType, u.Data)
	}
	pool := worker.NewPool[Upload](MirrorPoolName, o.Workers, q, upload,
		worker.WithJobTimeout(o.JobTimeout),
		worker.WithLogger(o.Logger),
	)
	// uploads must outlive the request that queued them
	pool.Start(context.WithoutCancel(ctx))
	return &AsyncMirror{queue: q, pool: pool}
}

// Put queues a copy of data for upload.
func (m *AsyncMirror) Put(ctx context.Context, key, contentType string, data []byte) error {
	u := Upload{Key: key, ContentType: contentType, Data: append([]byte(nil), data...)}
	if !m.queue.Enqueue(ctx, u) {
		return fmt.Errorf("%w: %s", ErrMirrorBusy, key)
	}
	return nil
}

// Pending returns the number of uploads not yet picked up.
func (m *AsyncMirror) Pending() int { return m.queue.Len() }

// Close stops accepting uploads and waits for queued ones until ctx expires.
func (m *AsyncMirror) Close(ctx context.Context) error {
	return m.pool.Shutdown(ctx)
}
