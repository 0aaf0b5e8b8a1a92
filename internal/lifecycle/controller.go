// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package lifecycle

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/nmoreau/vantage/internal/logging"
	"github.com/nmoreau/vantage/internal/metrics"
)

// DrainHook releases one resource during shutdown. Hooks run strictly in
// registration order, each under its own timeout, so the realtime channel
// closes before the store connection it publishes through.
type DrainHook struct {
	// Name identifies the hook in logs and metrics.
	Name string

	// Timeout bounds this hook alone. Zero means DefaultHookTimeout.
	Timeout time.Duration

	// Fn performs the drain work. The context carries the hook timeout.
	Fn func(ctx context.Context) error
}

// DefaultHookTimeout bounds a drain hook that does not set its own.
const DefaultHookTimeout = 5 * time.Second

// DefaultWatchdogTimeout is the hard ceiling on the whole drain sequence.
const DefaultWatchdogTimeout = 30 * time.Second

// Controller is the lifecycle state machine.
//
// Shutdown is idempotent: signal handlers, the supervisor, and error paths
// can all call it; the drain sequence runs once and later callers block
// until it finishes.
type Controller struct {
	mu    sync.Mutex
	state State
	hooks []DrainHook

	shutdownOnce sync.Once
	done         chan struct{}

	watchdog time.Duration

	// exit is swappable for tests. Production is os.Exit.
	exit func(code int)

	// reporter receives FailAsync and Crash errors. May be nil.
	reporter func(ctx context.Context, err error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithWatchdog overrides the drain watchdog ceiling.
func WithWatchdog(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.watchdog = d
		}
	}
}

// WithReporter wires an error reporter for FailAsync and Crash.
func WithReporter(report func(ctx context.Context, err error)) Option {
	return func(c *Controller) { c.reporter = report }
}

// withExit swaps the process-exit function. Test hook.
func withExit(exit func(int)) Option {
	return func(c *Controller) { c.exit = exit }
}

// NewController creates a controller in StateStarting.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		state:    StateStarting,
		done:     make(chan struct{}),
		watchdog: DefaultWatchdogTimeout,
		exit:     os.Exit,
	}
	for _, opt := range opts {
		opt(c)
	}
	metrics.SetLifecycleState(int(StateStarting))
	return c
}

// OnDrain registers a hook. Registration order is release order.
func (c *Controller) OnDrain(hook DrainHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hook.Timeout <= 0 {
		hook.Timeout = DefaultHookTimeout
	}
	c.hooks = append(c.hooks, hook)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready reports whether the server accepts traffic. Wired to the readiness
// probe.
func (c *Controller) Ready() bool {
	return c.State() == StateReady
}

// SetReady transitions Starting -> Ready. Any other transition is ignored:
// a controller that already started draining must not flip back.
func (c *Controller) SetReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateStarting {
		return
	}
	c.setStateLocked(StateReady)
	logging.Info().Msg("Server ready, accepting traffic")
}

// BeginDrain flips the state to Draining without running the drain hooks.
// The HTTP service calls this before closing its listener so the readiness
// probe fails while in-flight requests finish; Shutdown still runs the full
// sequence afterward. Terminal states are left alone.
func (c *Controller) BeginDrain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateStarting || c.state == StateReady {
		c.setStateLocked(StateDraining)
	}
}

// Done is closed when shutdown has completed.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Shutdown drains and stops. The first caller runs the sequence; every
// caller blocks until it completes. A watchdog forces exit(1) if the drain
// wedges past its ceiling.
func (c *Controller) Shutdown(ctx context.Context) {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		alreadyTerminal := c.state == StateStopped || c.state == StateCrashed
		if !alreadyTerminal {
			c.setStateLocked(StateDraining)
		}
		hooks := make([]DrainHook, len(c.hooks))
		copy(hooks, c.hooks)
		c.mu.Unlock()

		if alreadyTerminal {
			close(c.done)
			return
		}

		logging.Info().Int("hooks", len(hooks)).Msg("Draining started")

		watchdog := time.AfterFunc(c.watchdog, func() {
			logging.Error().
				Dur("watchdog", c.watchdog).
				Msg("Drain watchdog expired, forcing exit")
			c.exit(1)
		})
		defer watchdog.Stop()

		c.runHooks(ctx, hooks)

		c.mu.Lock()
		c.setStateLocked(StateStopped)
		c.mu.Unlock()
		logging.Info().Msg("Shutdown complete")
		close(c.done)
	})

	<-c.done
}

// runHooks executes the drain hooks in order, each under its own timeout.
// A failing or timed-out hook is logged and skipped; later hooks still run
// so one stuck resource cannot hold every other release hostage.
func (c *Controller) runHooks(ctx context.Context, hooks []DrainHook) {
	for _, hook := range hooks {
		hookCtx, cancel := context.WithTimeout(ctx, hook.Timeout)
		start := time.Now()

		errCh := make(chan error, 1)
		go func() { errCh <- hook.Fn(hookCtx) }()

		var err error
		select {
		case err = <-errCh:
		case <-hookCtx.Done():
			err = hookCtx.Err()
		}
		cancel()

		elapsed := time.Since(start)
		metrics.RecordDrainHook(hook.Name, elapsed)
		if err != nil {
			logging.Error().
				Err(err).
				Str("hook", hook.Name).
				Dur("elapsed", elapsed).
				Msg("Drain hook failed")
			continue
		}
		logging.Info().
			Str("hook", hook.Name).
			Dur("elapsed", elapsed).
			Msg("Drain hook completed")
	}
}

// FailAsync reports a background fault without leaving Ready. Used for
// failures that degrade a feature but leave the core serving loop healthy.
func (c *Controller) FailAsync(ctx context.Context, err error) {
	logging.Err(err).Msg("Background failure")
	if c.reporter != nil {
		c.reporter(ctx, err)
	}
}

// Crash reports a fatal fault, drains what it can, and exits 1. The drain
// still runs so buffered telemetry and the store connection are released.
func (c *Controller) Crash(ctx context.Context, err error) {
	logging.Error().Err(err).Msg("Fatal fault, crashing")

	c.mu.Lock()
	c.setStateLocked(StateCrashed)
	c.mu.Unlock()

	if c.reporter != nil {
		c.reporter(ctx, err)
	}

	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		hooks := make([]DrainHook, len(c.hooks))
		copy(hooks, c.hooks)
		c.mu.Unlock()

		c.runHooks(ctx, hooks)
		close(c.done)
	})

	c.exit(1)
}

// setStateLocked updates state and the metrics gauge. Caller holds mu.
func (c *Controller) setStateLocked(s State) {
	c.state = s
	metrics.SetLifecycleState(int(s))
	logging.Debug().Str("state", s.String()).Msg("Lifecycle state change")
}
