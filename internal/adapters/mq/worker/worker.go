// Package worker runs match tasks off a queue on a fixed number of goroutines.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/dilemma/internal/domain/model"
	"github.com/okian/dilemma/pkg/logger"
	"github.com/okian/dilemma/pkg/metrics"
)

// DefaultWorkerCount is the worker budget of a tournament run.
const DefaultWorkerCount = 4

// Task abstracts what workers read off the queue.
type Task = model.Task

// Handler executes one task. Errors are logged and counted; they never stop
// the pool.
type Handler interface {
	Handle(ctx context.Context, t Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, t Task) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, t Task) error { return f(ctx, t) }

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Task
}

// worker pulls tasks until its channel closes or the pool is cancelled.
type worker struct {
	name    string
	pool    *Pool
	handled int
	logger  logger.Logger
}

func (w *worker) run(ctx context.Context) {
	tasks := w.pool.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			err := w.process(ctx, t)
			w.handled++
			if w.pool.onDone != nil {
				w.pool.onDone(t, err)
			}
		}
	}
}

func (w *worker) process(ctx context.Context, t Task) (err error) {
	start := time.Now()
	metrics.AddWorkerActive(1)
	defer func() {
		metrics.AddWorkerActive(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %d: %w: %v", t.Seq, ErrHandlerPanic, r)
		}
		if err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "handler_error")
			w.logger.Error(ctx, "task failed",
				logger.Int("seq", t.Seq),
				logger.String("home", t.HomeID),
				logger.String("away", t.AwayID),
				logger.Error(err),
			)
		}
	}()

	return w.pool.handler.Handle(ctx, t)
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers []*worker
	queue   Queue
	handler Handler
	onDone  func(Task, error)

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount falls back
// to DefaultWorkerCount.
func NewPool(workerCount int, queue Queue, handler Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = DefaultWorkerCount
	}

	p := &Pool{
		workers: make([]*worker, workerCount),
		queue:   queue,
		handler: handler,
		logger:  logger.Get().Named("worker-pool"),
	}

	for _, opt := range opts {
		opt(p)
	}

	for i := range p.workers {
		name := "worker-" + strconv.Itoa(i)
		p.workers[i] = &worker{name: name, pool: p, logger: p.logger.Named(name)}
	}

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(len(p.workers))
	for _, w := range p.workers {
		go func(w *worker) {
			defer p.wg.Done()
			w.run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained or the pool is cancelled.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Handled returns the number of tasks each worker finished.
// It is only meaningful after Wait returns.
func (p *Pool) Handled() []int {
	out := make([]int, len(p.workers))
	for i, w := range p.workers {
		out[i] = w.handled
	}
	return out
}

// Shutdown closes the queue, cancels in-flight work and waits for the
// workers to return or ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
