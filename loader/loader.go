// Package loader implements the host capability "load and execute these
// scripts, in order, before continuing".
package loader

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/hermeznetwork/tracerr"
	"github.com/leo-stone-dot/worker_boot_go/log"
	"golang.org/x/sync/errgroup"
)

// ExecFunc executes the source of the script fetched from addr.
type ExecFunc func(ctx context.Context, addr string, src []byte) error

// FetchError reports a script that could not be fetched.
type FetchError struct {
	Addr string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Addr, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExecError reports a script that failed while executing.
type ExecError struct {
	Addr string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("executing %s: %v", e.Addr, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Loader fetches batches of scripts and executes them in order.
type Loader struct {
	fetcher Fetcher
	exec    ExecFunc
}

// New returns a Loader fetching with fetcher and executing with exec.
func New(fetcher Fetcher, exec ExecFunc) *Loader {
	return &Loader{fetcher: fetcher, exec: exec}
}

// Load fetches every address concurrently and, once all of them are
// available, executes them one after another in the given order. If any
// fetch fails nothing is executed. Execution stops at the first failing
// script.
func (l *Loader) Load(ctx context.Context, addrs ...string) error {
	sources := make([][]byte, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	for i, addr := range addrs {
		i, addr := i, addr
		g.Go(func() error {
			src, err := l.fetcher.Fetch(gctx, addr)
			if err != nil {
				return &FetchError{Addr: addr, Err: tracerr.Unwrap(err)}
			}
			sources[i] = src
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warnw("Script batch not executed", "scripts", addrs, "err", err)
		return tracerr.Wrap(err)
	}

	for i, addr := range addrs {
		if err := ctx.Err(); err != nil {
			return tracerr.Wrap(err)
		}
		log.Debugw("Executing script", "addr", addr, "bytes", len(sources[i]))
		if err := l.exec(ctx, addr, sources[i]); err != nil {
			return tracerr.Wrap(&ExecError{Addr: addr, Err: tracerr.Unwrap(err)})
		}
	}
	return nil
}

// Resolve resolves addr against base, the address of the script that
// requests it. Absolute addresses and an empty base leave addr unchanged.
func Resolve(base, addr string) (string, error) {
	if base == "" {
		return addr, nil
	}
	ref, err := url.Parse(addr)
	if err != nil {
		return "", tracerr.Wrap(err)
	}
	if ref.IsAbs() {
		return addr, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", tracerr.Wrap(err)
	}
	if b.Scheme == "" && !path.IsAbs(b.Path) && !path.IsAbs(ref.Path) {
		// relative filesystem path: stay relative to the working directory
		return path.Join(path.Dir(b.Path), ref.Path), nil
	}
	return b.ResolveReference(ref).String(), nil
}
