package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned by Submit when every slot is taken.
	ErrQueueFull = errors.New("analysis: queue is full")

	// ErrQueueClosed is returned by Submit after Shutdown.
	ErrQueueClosed = errors.New("analysis: queue is shutting down")
)

const defaultQueueSize = 100

// Result is delivered to the Submit callback.
type Result struct {
	Request Request
	Lines   []Line
	Err     error
}

type task struct {
	ctx      context.Context
	req      Request
	callback func(Result)
}

// Queue runs analysis requests on a fixed pool of workers. Each worker owns
// its own Analyzer, built by the factory, so engine processes are never
// shared between concurrent searches.
type Queue struct {
	tasks   chan task
	workers int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts workers goroutines, each with an Analyzer from factory.
func NewQueue(workers int, factory func() (Analyzer, error)) *Queue {
	if workers < 1 {
		workers = 2 // Default
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		tasks:   make(chan task, defaultQueueSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i, factory)
	}
	return q
}

// worker processes analysis tasks until the queue is shut down.
func (q *Queue) worker(id int, factory func() (Analyzer, error)) {
	defer q.wg.Done()

	analyzer, err := factory()
	if err != nil {
		log.Printf("analysis: worker %d failed to initialize analyzer: %v", id, err)
	} else if c, ok := analyzer.(io.Closer); ok {
		defer c.Close()
	}

	for t := range q.tasks {
		if err != nil {
			t.callback(Result{Request: t.req, Err: fmt.Errorf("worker %d: %w", id, err)})
			continue
		}
		t.callback(q.process(analyzer, t))
	}
}

func (q *Queue) process(analyzer Analyzer, t task) Result {
	ctx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(q.ctx, cancel)
	defer stop()

	if q.ctx.Err() != nil {
		return Result{Request: t.req, Err: context.Canceled}
	}
	if err := ctx.Err(); err != nil {
		return Result{Request: t.req, Err: err}
	}

	lines, err := analyzer.Analyze(ctx, t.req)
	return Result{Request: t.req, Lines: lines, Err: err}
}

// Submit queues req. The callback runs on a worker goroutine once the
// analysis finishes, fails or is cancelled through ctx.
func (q *Queue) Submit(ctx context.Context, req Request, callback func(Result)) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task{ctx: ctx, req: req, callback: callback}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued requests not yet picked up.
func (q *Queue) Pending() int {
	return len(q.tasks)
}

// Shutdown cancels running analyses, fails queued ones and waits for the
// workers to exit.
func (q *Queue) Shutdown(timeout time.Duration) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cancel()
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
