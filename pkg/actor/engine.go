package actor

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mindmesh/mindmesh/pkg/cmap"
)

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 4

// Config holds the configuration for an Engine.
type Config struct {
	// Workers is the fixed worker pool size.
	Workers int

	// MailboxCapacity is the per-actor mailbox size.
	MailboxCapacity int

	// TableShards is the shard count of the actor table.
	TableShards int
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("engine workers must be positive, got %d", c.Workers)
	}
	if c.MailboxCapacity < 0 {
		return fmt.Errorf("mailbox capacity cannot be negative, got %d", c.MailboxCapacity)
	}
	return nil
}

// engineLogger is the minimal logger interface used by the Engine.
type engineLogger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopEngineLogger struct{}

func (nopEngineLogger) Debug(msg string, args ...any) {}
func (nopEngineLogger) Warn(msg string, args ...any)  {}
func (nopEngineLogger) Error(msg string, args ...any) {}

// MetricsRecorder defines the interface for recording engine metrics.
type MetricsRecorder interface {
	RecordMessage(kind string, duration time.Duration)
	RecordHandlerError(kind string)
	SetLiveActors(n int)
	SetQueuedMessages(n int)
	IncPoisoned()
}

type nopMetrics struct{}

func (nopMetrics) RecordMessage(string, time.Duration) {}
func (nopMetrics) RecordHandlerError(string)           {}
func (nopMetrics) SetLiveActors(int)                   {}
func (nopMetrics) SetQueuedMessages(int)               {}
func (nopMetrics) IncPoisoned()                        {}

// readyQueue is the unbounded set of actor handles with pending work,
// consumed by the worker pool.
type readyQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []uint64
	closed bool
}

func newReadyQueue() *readyQueue {
	q := &readyQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *readyQueue) push(h uint64) {
	q.mu.Lock()
	if !q.closed {
		q.items = append(q.items, h)
		q.cond.Signal()
	}
	q.mu.Unlock()
}

// pop blocks until a handle is available or the queue is closed.
func (q *readyQueue) pop() (uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return 0, false
	}
	h := q.items[0]
	q.items = q.items[1:]
	return h, true
}

func (q *readyQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Engine owns the worker pool, the actor table, and the ready queue.
type Engine struct {
	cfg    Config
	actors *cmap.Map[*Actor]
	ready  *readyQueue

	nextHandle atomic.Uint64
	closed     atomic.Bool
	wg         sync.WaitGroup

	// inflight counts enqueued-but-not-finished messages across all actors.
	inflight atomic.Int64
	idleMu   sync.Mutex
	idleCond *sync.Cond

	logger  engineLogger
	metrics MetricsRecorder
}

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l engineLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder for the engine.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// NewEngine creates an Engine and starts its worker pool.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MailboxCapacity <= 0 {
		cfg.MailboxCapacity = DefaultMailboxCapacity
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		actors:  cmap.New[*Actor](cfg.TableShards),
		ready:   newReadyQueue(),
		logger:  nopEngineLogger{},
		metrics: nopMetrics{},
	}
	e.idleCond = sync.NewCond(&e.idleMu)

	for _, opt := range opts {
		opt(e)
	}

	for i := 0; i < cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	return e, nil
}

// Spawn registers a new actor for the receiver and returns its handle.
// No message is sent as part of spawn.
func (e *Engine) Spawn(receiver Receiver) (uint64, error) {
	if e.closed.Load() {
		return 0, &EngineClosedError{}
	}
	h := e.nextHandle.Add(1)
	e.actors.Put(h, newActor(h, receiver, e.cfg.MailboxCapacity))
	e.metrics.SetLiveActors(e.Count())
	return h, nil
}

// Receiver returns the receiver registered under the handle. Callers must
// not race with mailbox handlers: use it only right after Spawn (before any
// message is sent) or for eventually-consistent stats reads.
func (e *Engine) Receiver(handle uint64) (Receiver, bool) {
	a, ok := e.actors.Get(handle)
	if !ok {
		return nil, false
	}
	return a.receiver, true
}

// Count returns the number of registered actors.
func (e *Engine) Count() int {
	return e.actors.Count()
}

// Send enqueues a message into the actor's mailbox and marks the actor
// ready for scheduling.
func (e *Engine) Send(handle uint64, msg Message) error {
	if e.closed.Load() {
		return &EngineClosedError{}
	}
	a, ok := e.actors.Get(handle)
	if !ok {
		return &UnknownHandleError{Handle: handle}
	}
	if err := a.enqueue(msg); err != nil {
		return err
	}
	e.metrics.SetQueuedMessages(int(e.inflight.Add(1)))

	// The actor may have been poisoned between the enqueue's flag check and
	// the channel send, in which case the drain may already have run and the
	// message would sit undeliverable. Drain it back out ourselves if the
	// busy mutex is free; otherwise the holder's retire pass picks it up.
	if a.poisoned.Load() {
		if a.busy.TryLock() {
			if n := a.drain(); n > 0 {
				e.inflight.Add(int64(-n))
			}
			a.busy.Unlock()
		}
		e.signalIdle()
		return &ActorGoneError{Handle: handle}
	}

	e.ready.push(handle)
	return nil
}

// Poison marks the actor for termination. The in-flight message, if any,
// runs to completion; queued messages are disposed without delivery and the
// actor is removed from the table.
func (e *Engine) Poison(handle uint64) error {
	a, ok := e.actors.Get(handle)
	if !ok {
		return &UnknownHandleError{Handle: handle}
	}
	if a.poisoned.Swap(true) {
		return nil
	}
	e.metrics.IncPoisoned()
	// Wake a worker to drain and unregister the actor.
	e.ready.push(handle)
	return nil
}

// WaitFor blocks until the actor's mailbox is empty and no worker is
// handling a message for it; for a poisoned actor, until it has been removed
// from the table. Returns immediately if the handle is unknown.
func (e *Engine) WaitFor(handle uint64) {
	e.idleMu.Lock()
	defer e.idleMu.Unlock()
	for {
		a, ok := e.actors.Get(handle)
		if !ok || (a.Idle() && !a.Poisoned()) {
			return
		}
		e.idleCond.Wait()
	}
}

// WaitAll blocks until no actor has queued or in-flight messages. Messages
// sent by handlers while WaitAll runs extend the wait.
func (e *Engine) WaitAll() {
	e.idleMu.Lock()
	defer e.idleMu.Unlock()
	for e.inflight.Load() > 0 {
		e.idleCond.Wait()
	}
}

// Shutdown stops the worker pool and disposes every queued message.
func (e *Engine) Shutdown() {
	if e.closed.Swap(true) {
		return
	}
	e.ready.close()
	e.wg.Wait()

	e.actors.Range(func(_ uint64, a *Actor) bool {
		a.poisoned.Store(true)
		a.busy.Lock()
		if n := a.drain(); n > 0 {
			e.inflight.Add(int64(-n))
		}
		a.busy.Unlock()
		e.actors.Remove(a.handle)
		return true
	})
	e.signalIdle()
	e.metrics.SetLiveActors(0)
}

func (e *Engine) signalIdle() {
	e.idleMu.Lock()
	e.idleCond.Broadcast()
	e.idleMu.Unlock()
}

// worker is the main loop for each pool goroutine: one message per busy
// mutex acquisition, parallel across actors, serialized within an actor.
func (e *Engine) worker(id int) {
	defer e.wg.Done()

	for {
		handle, ok := e.ready.pop()
		if !ok {
			return
		}

		a, ok := e.actors.Get(handle)
		if !ok {
			continue
		}

		if !a.busy.TryLock() {
			// Another worker holds the actor; requeue and move on.
			e.ready.push(handle)
			runtime.Gosched()
			continue
		}

		if a.poisoned.Load() {
			e.retire(a)
			a.busy.Unlock()
			e.signalIdle()
			continue
		}

		msg, got := a.dequeue()
		if got {
			e.deliver(a, msg)
		}

		if a.poisoned.Load() {
			e.retire(a)
		} else if len(a.mailbox) > 0 {
			e.ready.push(handle)
		}
		a.busy.Unlock()

		if got {
			e.signalIdle()
		}
	}
}

// deliver invokes the receiver for one message, containing panics and errors.
func (e *Engine) deliver(a *Actor, msg Message) {
	kind := msg.Payload.Kind()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.metrics.RecordHandlerError(kind)
			e.logger.Error("handler panic",
				"actor", a.handle,
				"kind", kind,
				"panic", r,
			)
		}
		a.pending.Add(-1)
		e.metrics.SetQueuedMessages(int(e.inflight.Add(-1)))
		e.metrics.RecordMessage(kind, time.Since(start))
	}()

	if cl, ok := msg.Payload.(*Closure); ok {
		cl.Invoke(a.receiver)
		return
	}

	if err := a.receiver.Receive(msg); err != nil {
		e.metrics.RecordHandlerError(kind)
		e.logger.Warn("handler error",
			"actor", a.handle,
			"kind", kind,
			"error", err,
		)
	}
}

// retire drains a poisoned actor and removes it from the table.
// Called with the busy mutex held.
func (e *Engine) retire(a *Actor) {
	if n := a.drain(); n > 0 {
		e.inflight.Add(int64(-n))
		e.logger.Debug("dropped queued messages for poisoned actor",
			"actor", a.handle,
			"count", n,
		)
	}
	if e.actors.Remove(a.handle) {
		e.metrics.SetLiveActors(e.Count())
	}
}
