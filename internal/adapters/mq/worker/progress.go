package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/dilemma/pkg/logger"
	"github.com/okian/dilemma/pkg/metrics"
)

// StatusWriter persists a progress percentage.
type StatusWriter interface {
	WriteProgress(ctx context.Context, percent int) error
}

// StatusWriterFunc adapts a function to StatusWriter.
type StatusWriterFunc func(ctx context.Context, percent int) error

// WriteProgress calls f.
func (f StatusWriterFunc) WriteProgress(ctx context.Context, percent int) error { return f(ctx, percent) }

// Progress counts completed tasks and reports floor(done*100/total).
//
// Workers call Done from any goroutine; it never blocks. A single writer
// goroutine turns signals into StatusWriter calls, so writes are serialized
// and strictly increasing.
type Progress struct {
	total  int64
	done   atomic.Int64
	signal chan struct{}
	writer StatusWriter

	last    int // owned by the writer goroutine until stopped is closed
	writes  int
	stopped chan struct{}
	once    sync.Once

	logger logger.Logger
}

// NewProgress returns a tracker for total tasks. Call Start before Done.
func NewProgress(total int, w StatusWriter, opts ...ProgressOption) (*Progress, error) {
	if total < 1 {
		return nil, fmt.Errorf("%d: %w", total, ErrInvalidTotal)
	}
	p := &Progress{
		total:   int64(total),
		signal:  make(chan struct{}, 1),
		writer:  w,
		last:    -1,
		stopped: make(chan struct{}),
		logger:  logger.Get().Named("progress"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start launches the writer goroutine.
func (p *Progress) Start(ctx context.Context) {
	go p.loop(context.WithoutCancel(ctx))
}

// Done records one completed task.
func (p *Progress) Done() {
	p.done.Add(1)
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// Completed returns the number of tasks recorded so far.
func (p *Progress) Completed() int64 { return p.done.Load() }

// Percent returns the current floor percentage, capped at 100.
func (p *Progress) Percent() int {
	d := p.done.Load()
	if d >= p.total {
		return 100
	}
	return int(d * 100 / p.total)
}

// Close flushes the final value and stops the writer. It returns the last
// percentage written and how many writes were made in total.
func (p *Progress) Close() (last, writes int) {
	p.once.Do(func() { close(p.signal) })
	<-p.stopped
	return p.last, p.writes
}

func (p *Progress) loop(ctx context.Context) {
	defer close(p.stopped)
	for range p.signal {
		p.flush(ctx)
	}
	p.flush(ctx)
}

func (p *Progress) flush(ctx context.Context) {
	pct := p.Percent()
	if pct <= p.last {
		return
	}
	if err := p.writer.WriteProgress(ctx, pct); err != nil {
		metrics.RecordPersistenceError("write_progress")
		p.logger.Warn(ctx, "progress write failed", logger.Int("percent", pct), logger.Error(err))
		return
	}
	metrics.RecordProgressWrite()
	p.last = pct
	p.writes++
}
