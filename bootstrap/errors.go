package bootstrap

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoWorker is returned when the startup address carries no usable
	// worker parameter.
	ErrNoWorker = errors.New("no worker script address given")
	// ErrAmbiguousParam is returned when locale or worker occur more than once.
	ErrAmbiguousParam = errors.New("parameter given more than once")
	// ErrAlreadyRun is returned by a Sequencer that has already run.
	ErrAlreadyRun = errors.New("bootstrap sequence already ran")
)

// ConfigError reports a startup address whose parameters cannot drive the
// bootstrap sequence. It unwraps to ErrNoWorker or ErrAmbiguousParam.
type ConfigError struct {
	Param string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("bootstrap: %s: %v", e.Param, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LoadError reports a failure of the script-loading capability.
type LoadError struct {
	Scripts []string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("bootstrap: loading [%s]: %v", strings.Join(e.Scripts, ", "), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
