package persist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultQueueSize    = 1024
	defaultWriteTimeout = 5 * time.Second
)

var ErrWriterClosed = errors.New("write-behind queue is closed")

// Job is one durable write. It runs on the writer goroutine with a
// per-job deadline.
type Job struct {
	Op        string
	SessionID string
	Run       func(ctx context.Context, gw Gateway) error
	done      chan struct{}
}

type WriterOption func(*Writer)

func WithQueueSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

func WithWriteTimeout(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// Writer runs gateway writes in FIFO order on one background goroutine.
// Enqueue never blocks; a full queue drops the job and logs it.
type Writer struct {
	gw        Gateway
	queueSize int
	timeout   time.Duration

	jobs chan Job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewWriter(gw Gateway, opts ...WriterOption) (*Writer, error) {
	if gw == nil {
		return nil, errors.New("persistence gateway is required")
	}
	w := &Writer{
		gw:        gw,
		queueSize: defaultQueueSize,
		timeout:   defaultWriteTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.jobs = make(chan Job, w.queueSize)

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Enqueue schedules job and reports whether it was accepted.
func (w *Writer) Enqueue(job Job) bool {
	if job.Run == nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		writesDropped.WithLabelValues(job.Op, "closed").Inc()
		log.Warn().Str("op", job.Op).Str("session_id", job.SessionID).Msg("write dropped: queue closed")
		return false
	}

	select {
	case w.jobs <- job:
		queueDepth.Inc()
		return true
	default:
		writesDropped.WithLabelValues(job.Op, "full").Inc()
		log.Warn().
			Str("op", job.Op).
			Str("session_id", job.SessionID).
			Int("queue_size", w.queueSize).
			Msg("write dropped: queue full")
		return false
	}
}

// Flush waits until every job enqueued before the call has run.
func (w *Writer) Flush(ctx context.Context) error {
	done := make(chan struct{})
	barrier := Job{
		Op:   "flush",
		Run:  func(context.Context, Gateway) error { return nil },
		done: done,
	}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWriterClosed
	}
	select {
	case w.jobs <- barrier:
		queueDepth.Inc()
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and drains what is queued.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for job := range w.jobs {
		queueDepth.Dec()
		w.run(job)
	}
}

func (w *Writer) run(job Job) {
	if job.done != nil {
		defer close(job.done)
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx, w.gw)
	if job.done != nil {
		return
	}
	if err != nil {
		writesTotal.WithLabelValues(job.Op, "error").Inc()
		log.Error().
			Err(err).
			Str("op", job.Op).
			Str("session_id", job.SessionID).
			Dur("elapsed", time.Since(start)).
			Msg("durable write failed")
		return
	}
	writesTotal.WithLabelValues(job.Op, "ok").Inc()
	log.Debug().
		Str("op", job.Op).
		Str("session_id", job.SessionID).
		Dur("elapsed", time.Since(start)).
		Msg("durable write done")
}
