// Package dispatch provides a small per-key serialized task executor.
//
// The configuration-admin managed-service delivery path (spec §4.F) and
// the service registry's listener callbacks both need "deliver these
// calls to this one recipient in order, without blocking the caller, and
// without one recipient's misbehavior affecting any other" — a shape
// distinct from a general worker pool, where unrelated tasks may run out
// of order. Executor gives each key ("gid"/PID style identifier for a
// managed service, or a plugin ID for listener dispatch) its own
// single-goroutine FIFO queue, started lazily on first Submit and retired
// after it sits idle, instead of a single shared pool.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultIdleTimeout = 30 * time.Second

// Executor runs tasks submitted under the same key one at a time, in
// submission order, isolating panics so one task's failure never blocks
// or corrupts the queue for that key or any other.
type Executor struct {
	mu          sync.Mutex
	id          string
	queues      map[string]*keyQueue
	idleTimeout time.Duration
	logger      *slog.Logger
	closed      bool
	wg          sync.WaitGroup
}

// Option configures an Executor.
type Option func(*Executor)

// WithIdleTimeout overrides the default 30s idle timeout after which a
// key's worker goroutine exits when its queue is empty.
func WithIdleTimeout(d time.Duration) Option {
	return func(e *Executor) { e.idleTimeout = d }
}

// WithLogger attaches a structured logger for recovered panics. If unset,
// recovered panics are logged via slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// New creates an Executor ready to accept Submit calls. Each Executor
// gets a short random id, included in its log lines so panics and
// shutdown diagnostics from several Executors in one process (one per
// ConfigAdmin, say) can be told apart.
func New(opts ...Option) *Executor {
	e := &Executor{
		id:          uuid.New().String()[:8],
		queues:      make(map[string]*keyQueue),
		idleTimeout: defaultIdleTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the Executor's short random identifier, for correlating its
// log lines across an application with several Executors.
func (e *Executor) ID() string {
	return e.id
}

type keyQueue struct {
	mu      sync.Mutex
	pending []func()
	running bool
	wake    chan struct{}
}

// Submit enqueues task to run after every previously submitted task under
// the same key has completed. It returns immediately; task runs
// asynchronously. Submit is a no-op once the Executor has been shut down.
func (e *Executor) Submit(key string, task func()) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	q, ok := e.queues[key]
	if !ok {
		q = &keyQueue{wake: make(chan struct{}, 1)}
		e.queues[key] = q
	}
	e.mu.Unlock()

	q.mu.Lock()
	q.pending = append(q.pending, task)
	start := !q.running
	if start {
		q.running = true
	}
	q.mu.Unlock()

	if start {
		e.wg.Add(1)
		go e.run(key, q)
	} else {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
}

// run drains q's pending tasks in order. Once the queue is empty it waits
// up to the configured idle timeout for a new task before retiring,
// rather than spawning a fresh goroutine on every Submit.
func (e *Executor) run(key string, q *keyQueue) {
	defer e.wg.Done()

	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			task := q.pending[0]
			q.pending = q.pending[1:]
			q.mu.Unlock()
			e.runTask(key, task)
			continue
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
			continue
		case <-time.After(e.idleTimeout):
			q.mu.Lock()
			if len(q.pending) > 0 {
				q.mu.Unlock()
				continue
			}
			q.running = false
			q.mu.Unlock()
			e.retireIfEmpty(key, q)
			return
		}
	}
}

// retireIfEmpty drops key's queue from the executor's index once its last
// worker goroutine exits, so a key that is never reused again doesn't
// leak an entry forever. A Submit racing in between re-creates the queue,
// which is safe: the old goroutine already returned before this runs.
func (e *Executor) retireIfEmpty(key string, q *keyQueue) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if current, ok := e.queues[key]; ok && current == q {
		q.mu.Lock()
		empty := len(q.pending) == 0 && !q.running
		q.mu.Unlock()
		if empty {
			delete(e.queues, key)
		}
	}
}

// runTask executes task with panic recovery, matching
// ctkManagedServiceTracker::asynchUpdated's isolation of exceptions
// raised while delivering an update to a single managed service.
func (e *Executor) runTask(key string, task func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("dispatch task panicked", "executor", e.id, "key", key, "panic", r)
		}
	}()
	task()
}

// Shutdown waits for every key's queue to drain, or until ctx is done.
// After Shutdown returns, further Submit calls are no-ops.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
