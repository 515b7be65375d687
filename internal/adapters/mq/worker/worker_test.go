package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/faceattr/internal/adapters/mq/queue"
	"github.com/okian/faceattr/internal/adapters/mq/worker"
	logging "github.com/okian/faceattr/pkg/logger"
)

func init() {
	_ = logging.Init(logging.WithOutput(discard{}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) handle(_ context.Context, item string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, item)
	if item == "bad" {
		return errors.New("rejected")
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool draining an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue[string]("pool-test", queue.WithCapacity(16))
		rec := &recorder{}
		pool := worker.NewPool[string]("pool-test", 3, q, rec.handle)
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		ctx := context.Background()
		pool.Start(ctx)

		convey.Convey("When items are queued and the pool shuts down", func() {
			for _, item := range []string{"a", "b", "bad", "c"} {
				convey.So(q.Enqueue(ctx, item), convey.ShouldBeTrue)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then every item is handled, failures included", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(rec.count(), convey.ShouldEqual, 4)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})

			convey.Convey("And a second shutdown is a no-op", func() {
				convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a pool with a zero worker count", t, func() {
		q := queue.NewInMemoryQueue[string]("pool-min")
		pool := worker.NewPool[string]("pool-min", 0, q, func(context.Context, string) error { return nil })

		convey.Convey("Then it still runs one worker", func() {
			convey.So(pool.Size(), convey.ShouldEqual, 1)
		})
	})
}

func TestPoolShutdownTimeout(t *testing.T) {
	convey.Convey("Given a job that blocks until cancelled", t, func() {
		q := queue.NewInMemoryQueue[string]("pool-slow")
		started := make(chan struct{})
		var cancelled bool
		var mu sync.Mutex
		handle := func(ctx context.Context, _ string) error {
			close(started)
			<-ctx.Done()
			mu.Lock()
			cancelled = true
			mu.Unlock()
			return ctx.Err()
		}
		pool := worker.NewPool[string]("pool-slow", 1, q, handle, worker.WithJobTimeout(time.Minute))
		pool.Start(context.Background())
		convey.So(q.Enqueue(context.Background(), "stuck"), convey.ShouldBeTrue)
		<-started

		convey.Convey("When shutdown's deadline passes", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := pool.Shutdown(ctx)

			convey.Convey("Then it reports the timeout and cancels the job", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
				convey.So(func() bool {
					for i := 0; i < 100; i++ {
						mu.Lock()
						done := cancelled
						mu.Unlock()
						if done {
							return true
						}
						time.Sleep(time.Millisecond)
					}
					return false
				}(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestPoolJobTimeout(t *testing.T) {
	convey.Convey("Given a short job timeout", t, func() {
		q := queue.NewInMemoryQueue[string]("pool-deadline")
		errs := make(chan error, 1)
		handle := func(ctx context.Context, _ string) error {
			<-ctx.Done()
			errs <- ctx.Err()
			return ctx.Err()
		}
		pool := worker.NewPool[string]("pool-deadline", 1, q, handle, worker.WithJobTimeout(10*time.Millisecond))
		pool.Start(context.Background())
		convey.So(q.Enqueue(context.Background(), "x"), convey.ShouldBeTrue)

		convey.Convey("Then the handler's context expires", func() {
			convey.So(errors.Is(<-errs, context.DeadlineExceeded), convey.ShouldBeTrue)
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})
}
