package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/omnicamp/eventcore/eventsrc"
)

// State describes where a projection is in its lifecycle.
type State int32

const (
	// Stopped means the projection's consumer loop is not running.
	Stopped State = iota
	// CatchingUp means the projection is replaying events behind the tail.
	CatchingUp
	// Live means the projection has caught up to the tail it observed and is
	// consuming newly appended events as they arrive.
	Live
	// Stalled means a poison event exhausted its retries; the checkpoint is
	// parked just before it and the loop keeps re-attempting on each poll.
	Stalled
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case CatchingUp:
		return "catching-up"
	case Live:
		return "live"
	case Stalled:
		return "stalled"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// ErrUnknownProjection is returned when an operation names a projection that
// was never registered.
var ErrUnknownProjection = errors.New("unknown projection")

type runner struct {
	proj    Projection
	handles map[string]struct{} // nil handles everything
	state   atomic.Int32

	// checkpoint is read by the consumer goroutine and written by both the
	// consumer and Rebuild, hence atomic.
	checkpoint atomic.Int64

	// quit and done are guarded by Manager.mu.
	quit chan struct{}
	done chan struct{}
}

func newRunner(p Projection) *runner {
	r := &runner{proj: p}
	if types := p.EventTypes(); len(types) > 0 {
		r.handles = make(map[string]struct{}, len(types))
		for _, t := range types {
			r.handles[t] = struct{}{}
		}
	}
	return r
}

func (r *runner) handlesType(eventType string) bool {
	if r.handles == nil {
		return true
	}
	_, ok := r.handles[eventType]
	return ok
}

func (r *runner) setState(s State) { r.state.Store(int32(s)) }
func (r *runner) getState() State  { return State(r.state.Load()) }

// Manager drives registered projections over the global event feed. Each
// projection runs on its own goroutine with its own checkpoint; one
// projection stalling never blocks another.
type Manager struct {
	store       eventsrc.Store
	checkpoints CheckpointStore
	transactor  Transactor

	pollInterval   time.Duration
	batchSize      int
	maxRetries     uint
	maxElapsedTime time.Duration

	mu      sync.Mutex
	runners map[string]*runner
	started bool
	ctx     context.Context
	wg      sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithPollInterval sets how long a live projection sleeps between polls.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) { m.pollInterval = d }
}

// WithBatchSize sets how many events are read from the feed per query.
func WithBatchSize(n int) Option {
	return func(m *Manager) { m.batchSize = n }
}

// WithMaxRetries bounds how many times a failing apply is attempted before
// the event is quarantined as poison.
func WithMaxRetries(n uint) Option {
	return func(m *Manager) { m.maxRetries = n }
}

// WithMaxElapsedTime bounds the total backoff time spent retrying one apply.
func WithMaxElapsedTime(d time.Duration) Option {
	return func(m *Manager) { m.maxElapsedTime = d }
}

// NewManager creates a projection manager. The transactor must span the
// projection's read-model store and the checkpoint store, so that an apply
// and its checkpoint update commit as one unit.
func NewManager(store eventsrc.Store, checkpoints CheckpointStore, transactor Transactor, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		checkpoints:    checkpoints,
		transactor:     transactor,
		pollInterval:   500 * time.Millisecond,
		batchSize:      100,
		maxRetries:     5,
		maxElapsedTime: 1 * time.Minute,
		runners:        make(map[string]*runner),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a projection. It must be called before Start.
func (m *Manager) Register(p Projection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("cannot register projection %s: manager already started", p.Name())
	}
	if _, ok := m.runners[p.Name()]; ok {
		return fmt.Errorf("projection %s is already registered", p.Name())
	}
	m.runners[p.Name()] = newRunner(p)
	return nil
}

// Start launches one consumer goroutine per registered projection. Each loads
// its persisted checkpoint, catches up from checkpoint+1, and then keeps
// consuming newly appended events until Stop is called or ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true
	m.ctx = ctx

	for _, r := range m.runners {
		m.launch(ctx, r)
	}
	slog.InfoContext(ctx, "Projection manager started", "projections", len(m.runners))
}

// launch must be called with m.mu held. The quit and done channels are
// handed to the goroutine by value: Stop and Rebuild nil the fields under the
// mutex, which the goroutine must never observe.
func (m *Manager) launch(ctx context.Context, r *runner) {
	quit := make(chan struct{})
	done := make(chan struct{})
	r.quit = quit
	r.done = done
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(done)
		m.runLoop(ctx, r, quit)
	}()
}

// Stop gracefully stops all consumer loops and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	for _, r := range m.runners {
		if r.quit != nil {
			close(r.quit)
			r.quit = nil
		}
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// Status reports the lifecycle state of a registered projection.
func (m *Manager) Status(name string) (State, error) {
	m.mu.Lock()
	r, ok := m.runners[name]
	m.mu.Unlock()
	if !ok {
		return Stopped, fmt.Errorf("%w: %s", ErrUnknownProjection, name)
	}
	return r.getState(), nil
}

// Rebuild resets a projection's read model and checkpoint to zero and re-runs
// catch-up from the beginning of the log. Use it after schema changes or bug
// fixes in apply logic. If the projection is running it is stopped first and
// relaunched afterwards. Safe to call concurrently with Stop: the relaunch
// only happens while the manager is still started.
func (m *Manager) Rebuild(ctx context.Context, name string) error {
	m.mu.Lock()
	r, ok := m.runners[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownProjection, name)
	}
	if r.quit != nil {
		close(r.quit)
		r.quit = nil
	}
	done := r.done
	m.mu.Unlock()

	// The consumer goroutine may still be mid-drain even if Stop already
	// closed the quit channel; wait for it before touching its state.
	if done != nil {
		<-done
	}

	err := m.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := r.proj.Reset(txCtx); err != nil {
			return fmt.Errorf("failed to reset read model: %w", err)
		}
		return m.checkpoints.Save(txCtx, name, 0)
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild projection %s: %w", name, err)
	}
	r.checkpoint.Store(0)
	slog.InfoContext(ctx, "Projection rebuild initiated", "projection", name)

	m.mu.Lock()
	if m.started && r.quit == nil {
		m.launch(m.ctx, r)
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) runLoop(ctx context.Context, r *runner, quit <-chan struct{}) {
	name := r.proj.Name()
	r.setState(CatchingUp)
	defer r.setState(Stopped)

	checkpoint, err := m.loadCheckpoint(ctx, name)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load projection checkpoint, loop not started",
			"projection", name, "error", err)
		return
	}
	r.checkpoint.Store(checkpoint)
	slog.InfoContext(ctx, "Projection consumer started", "projection", name, "checkpoint", checkpoint)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		caughtUp, err := m.drain(ctx, r)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			var poison ApplyError
			if errors.As(err, &poison) {
				r.setState(Stalled)
				slog.ErrorContext(ctx, "Poison event: projection stalled, checkpoint held",
					"projection", name,
					"globalSequence", poison.GlobalSequence,
					"error", poison.Err)
			} else {
				slog.ErrorContext(ctx, "Projection feed read failed, will retry",
					"projection", name, "error", err)
			}
		case caughtUp:
			r.setState(Live)
		default:
			r.setState(CatchingUp)
		}

		select {
		case <-ticker.C:
		case <-quit:
			slog.InfoContext(ctx, "Projection consumer shutting down", "projection", name)
			return
		case <-ctx.Done():
			slog.InfoContext(ctx, "Context cancelled, projection consumer shutting down", "projection", name)
			return
		}
	}
}

// drain consumes the feed from the runner's checkpoint until it reaches the
// tail (a short batch) or an event refuses to apply. It reports whether the
// tail was reached.
func (m *Manager) drain(ctx context.Context, r *runner) (bool, error) {
	name := r.proj.Name()
	for {
		batch, err := m.readBatch(ctx, r)
		if err != nil {
			return false, err
		}

		for _, evt := range batch {
			if r.handlesType(evt.EventType) {
				if err := m.applyWithRetry(ctx, r, evt); err != nil {
					return false, ApplyError{Projection: name, GlobalSequence: evt.GlobalSequence, Err: err}
				}
			} else if err := m.checkpoints.Save(ctx, name, evt.GlobalSequence); err != nil {
				return false, fmt.Errorf("failed to advance checkpoint past unhandled event: %w", err)
			}
			r.checkpoint.Store(evt.GlobalSequence)
		}

		if len(batch) < m.batchSize {
			return true, nil
		}
	}
}

// readBatch reads the next feed batch, retrying transient store failures with
// backoff. Exhaustion falls back to the poll loop, which tries again on the
// next tick.
func (m *Manager) readBatch(ctx context.Context, r *runner) ([]eventsrc.StoredEvent, error) {
	operation := func() ([]eventsrc.StoredEvent, error) {
		return m.store.ReadAll(ctx, r.checkpoint.Load()+1, m.batchSize)
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(m.maxRetries),
		backoff.WithMaxElapsedTime(m.maxElapsedTime),
	)
}

// applyWithRetry folds one event into the read model and persists the new
// checkpoint within a single transaction, retrying transient failures with
// exponential backoff. Serialization failures are not retried: a payload
// that cannot be decoded will not decode better on the next attempt.
func (m *Manager) applyWithRetry(ctx context.Context, r *runner, evt eventsrc.StoredEvent) error {
	operation := func() (any, error) {
		err := m.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := r.proj.Apply(txCtx, evt); err != nil {
				return err
			}
			return m.checkpoints.Save(txCtx, r.proj.Name(), evt.GlobalSequence)
		})
		if err == nil {
			return nil, nil
		}

		var serErr eventsrc.ErrSerialization
		if errors.As(err, &serErr) || errors.Is(err, context.Canceled) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(m.maxRetries),
		backoff.WithMaxElapsedTime(m.maxElapsedTime),
	)
	return err
}

// loadCheckpoint retries transient checkpoint-store failures on startup.
func (m *Manager) loadCheckpoint(ctx context.Context, name string) (int64, error) {
	operation := func() (int64, error) {
		return m.checkpoints.Load(ctx, name)
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(m.maxElapsedTime),
	)
}
