// Package bootstrap drives the startup of a worker: it reads the locale and
// worker script addresses from the worker's own startup address and hands
// them, in order, to a script-loading capability.
package bootstrap

import (
	"context"
	"sync"

	"github.com/hermeznetwork/tracerr"
	"github.com/leo-stone-dot/worker_boot_go/log"
	"github.com/leo-stone-dot/worker_boot_go/metric"
)

// LoadFunc loads and executes the scripts at addrs, in order, before
// returning. It is the host's importScripts.
type LoadFunc func(ctx context.Context, addrs ...string) error

// State is the position of a Sequencer in its one-shot lifecycle.
type State int

const (
	// StateAwaitingConfig is the initial state.
	StateAwaitingConfig State = iota
	// StateDispatched means the scripts were handed to the loader.
	StateDispatched
	// StateFailed means the startup address was unusable; nothing was loaded.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDispatched:
		return "dispatched"
	case StateFailed:
		return "failed"
	default:
		return "awaiting-config"
	}
}

// Sequencer runs the bootstrap sequence of a single worker exactly once.
type Sequencer struct {
	load LoadFunc

	mu     sync.Mutex
	state  State
	config Config
}

// NewSequencer returns a Sequencer that loads scripts through load.
func NewSequencer(load LoadFunc) *Sequencer {
	return &Sequencer{load: load}
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Config returns the configuration read by Run. It is the zero Config until
// Run has dispatched.
func (s *Sequencer) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Run decodes selfAddress and loads the locale script (if any) followed by
// the worker script with a single call to the load function. A missing
// worker parameter fails before anything is loaded. Errors from the load
// function are returned as *LoadError; the sequencer still counts as
// dispatched.
func (s *Sequencer) Run(ctx context.Context, selfAddress string) error {
	s.mu.Lock()
	if s.state != StateAwaitingConfig {
		s.mu.Unlock()
		return tracerr.Wrap(ErrAlreadyRun)
	}
	cfg, err := ConfigFromAddress(selfAddress)
	if err != nil {
		s.state = StateFailed
		s.mu.Unlock()
		metric.BootstrapRuns.WithLabelValues(StateFailed.String()).Inc()
		log.Errorw("Worker bootstrap failed", "address", selfAddress, "err", err)
		return tracerr.Wrap(err)
	}
	s.state = StateDispatched
	s.config = cfg
	s.mu.Unlock()
	metric.BootstrapRuns.WithLabelValues(StateDispatched.String()).Inc()

	scripts := cfg.Scripts()
	log.Debugw("Dispatching worker scripts", "scripts", scripts)
	if err := s.load(ctx, scripts...); err != nil {
		return tracerr.Wrap(&LoadError{Scripts: scripts, Err: tracerr.Unwrap(err)})
	}
	return nil
}

// Run runs the bootstrap sequence for a worker started at selfAddress.
func Run(ctx context.Context, selfAddress string, load LoadFunc) error {
	return NewSequencer(load).Run(ctx, selfAddress)
}
