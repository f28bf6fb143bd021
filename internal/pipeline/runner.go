package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Task is one unit of asynchronous pipeline work.
type Task func(ctx context.Context)

// Runner is a bounded in-process worker pool. Submit hands tasks to it and
// returns to the caller immediately; tasks run to completion even during
// shutdown, since an accepted job must always reach a terminal status.
type Runner struct {
	tasks   chan Task
	workers int
	logger  zerolog.Logger

	startOnce sync.Once
	wg        sync.WaitGroup
	baseCtx   context.Context

	mu      sync.Mutex
	stopped bool
}

// NewRunner creates a runner with the given worker count and queue size.
func NewRunner(workers, queueSize int, logger zerolog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Runner{
		tasks:   make(chan Task, queueSize),
		workers: workers,
		logger:  logger,
		baseCtx: context.Background(),
	}
}

// Start launches the worker goroutines. Tasks execute under ctx; pass a
// context that outlives request handling, as tasks are never cancelled
// mid-flight.
func (r *Runner) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		if ctx != nil {
			r.baseCtx = ctx
		}
		r.logger.Info().Int("workers", r.workers).Msg("runner: started")
		for i := 0; i < r.workers; i++ {
			r.wg.Add(1)
			go r.work()
		}
	})
}

func (r *Runner) work() {
	defer r.wg.Done()
	for task := range r.tasks {
		task(r.baseCtx)
	}
}

// Enqueue schedules a task and reports whether it was accepted. It blocks
// only when the queue is full, which applies backpressure to submitters
// instead of dropping accepted jobs. After Stop every task is rejected.
func (r *Runner) Enqueue(task Task) bool {
	if task == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	// The send may block on a full queue; workers keep draining until Stop
	// closes the channel, and Stop waits on the same mutex.
	r.tasks <- task
	return true
}

// Stop drains the queue and waits for in-flight tasks to finish. Tasks
// enqueued afterwards are rejected.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.tasks)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info().Msg("runner: stopped")
}
