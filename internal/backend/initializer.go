package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Backend is a constructed gated service.
type Backend interface {
	// Handler returns the responder for a mount.
	Handler(m Mount) http.Handler

	// Close releases the backend's resources.
	Close(ctx context.Context) error
}

// Factory constructs a Backend. It may be slow and may fail.
type Factory func(ctx context.Context) (Backend, error)

// Options configures an Initializer.
type Options struct {
	Logger *slog.Logger

	// BootstrapTimeout bounds a single factory call (0 = unbounded).
	BootstrapTimeout time.Duration

	// OnTransition is called after every state change.
	OnTransition func(State)

	// OnBootstrap is called when a bootstrap attempt finishes.
	OnBootstrap func(err error, elapsed time.Duration)
}

type installation struct {
	backend Backend // nil when degraded
	http    http.Handler
	sse     http.Handler
}

// Initializer lazily bootstraps the backend exactly once per lifecycle.
//
// Readers that observe a terminal state take no lock. The bootstrap runs
// detached from the caller that triggered it, so a caller that gives up
// waiting never aborts the attempt the others are waiting on.
type Initializer struct {
	factory Factory
	opts    Options
	logger  *slog.Logger

	// lock is a one-slot semaphore used as the slow-path mutex; unlike
	// sync.Mutex its acquisition can be abandoned when ctx is done.
	lock chan struct{}

	state     atomic.Int32
	installed atomic.Pointer[installation]
	lastErr   atomic.Pointer[error]

	// attempt is closed when the current bootstrap finishes. Guarded by lock.
	attempt chan struct{}
}

// NewInitializer creates an Initializer in the Uninitialized state.
func NewInitializer(factory Factory, opts Options) *Initializer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Initializer{
		factory: factory,
		opts:    opts,
		logger:  logger.With("component", "backend"),
		lock:    make(chan struct{}, 1),
	}
}

// State returns the current state.
func (in *Initializer) State() State {
	return State(in.state.Load())
}

// Readiness reports whether the backend is Ready, with the state name.
func (in *Initializer) Readiness() (bool, string) {
	s := in.State()
	return s == StateReady, s.String()
}

// LastError returns the error of the most recent failed bootstrap, or nil.
func (in *Initializer) LastError() error {
	if p := in.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Responder returns the handler installed for m: the live backend's when
// Ready, the Fallback when Degraded, nil otherwise.
func (in *Initializer) Responder(m Mount) http.Handler {
	inst := in.installed.Load()
	if inst == nil {
		return nil
	}
	if m == MountSSE {
		return inst.sse
	}
	return inst.http
}

// EnsureReady bootstraps the backend if needed and waits for a terminal
// state. If ctx is done first it returns the current state and ctx.Err();
// the bootstrap itself keeps running.
func (in *Initializer) EnsureReady(ctx context.Context) (State, error) {
	if s := in.State(); s.Terminal() {
		return s, nil
	}

	select {
	case in.lock <- struct{}{}:
	case <-ctx.Done():
		return in.State(), ctx.Err()
	}

	s := in.State()
	if s.Terminal() {
		<-in.lock
		return s, nil
	}
	if s == StateUninitialized {
		in.attempt = make(chan struct{})
		in.setState(StateInitializing)
		go in.bootstrap(context.Background(), in.attempt)
	}
	done := in.attempt
	<-in.lock

	select {
	case <-done:
		return in.State(), nil
	case <-ctx.Done():
		return in.State(), ctx.Err()
	}
}

func (in *Initializer) bootstrap(ctx context.Context, done chan struct{}) {
	defer close(done)

	start := time.Now()
	b, err := in.build(ctx)
	elapsed := time.Since(start)

	if err != nil {
		in.lastErr.Store(&err)
		fb := Fallback()
		in.installed.Store(&installation{http: fb, sse: fb})
		in.setState(StateDegraded)
		in.logger.Error("backend bootstrap failed, serving fallback",
			"error", err,
			"duration_ms", elapsed.Milliseconds(),
		)
	} else {
		in.lastErr.Store(nil)
		in.installed.Store(&installation{
			backend: b,
			http:    b.Handler(MountHTTP),
			sse:     b.Handler(MountSSE),
		})
		in.setState(StateReady)
		in.logger.Info("backend ready", "duration_ms", elapsed.Milliseconds())
	}

	if in.opts.OnBootstrap != nil {
		in.opts.OnBootstrap(err, elapsed)
	}
}

// build runs the factory, converting a panic into an error.
func (in *Initializer) build(ctx context.Context) (b Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, fmt.Errorf("backend bootstrap panicked: %v", r)
		}
	}()

	if in.opts.BootstrapTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.opts.BootstrapTimeout)
		defer cancel()
	}

	b, err = in.factory(ctx)
	if err == nil && b == nil {
		err = errors.New("backend factory returned nil")
	}
	return b, err
}

// Shutdown waits for an in-flight bootstrap, closes a live backend and
// resets to Uninitialized. It is idempotent.
func (in *Initializer) Shutdown(ctx context.Context) error {
	select {
	case in.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-in.lock }()

	if in.State() == StateInitializing {
		select {
		case <-in.attempt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	inst := in.installed.Swap(nil)
	in.attempt = nil
	if in.State() != StateUninitialized {
		in.setState(StateUninitialized)
	}

	if inst == nil || inst.backend == nil {
		return nil
	}
	if err := inst.backend.Close(ctx); err != nil {
		return fmt.Errorf("close backend: %w", err)
	}
	in.logger.Info("backend shut down")
	return nil
}

func (in *Initializer) setState(s State) {
	in.state.Store(int32(s))
	if in.opts.OnTransition != nil {
		in.opts.OnTransition(s)
	}
}
