// Package worker hosts a worker script context on a goja JavaScript runtime.
//
// A Worker exposes the globals a bootstrap script and the scripts it loads
// expect from a dedicated worker scope: self, location, importScripts and
// console. Boot runs the bootstrap sequence against the worker's own
// address, loading the locale and worker scripts into the runtime.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dop251/goja"
	"github.com/hermeznetwork/tracerr"
	"github.com/leo-stone-dot/worker_boot_go/bootstrap"
	"github.com/leo-stone-dot/worker_boot_go/loader"
	"github.com/leo-stone-dot/worker_boot_go/log"
	"github.com/leo-stone-dot/worker_boot_go/metric"
	"go.uber.org/zap"
)

// Worker is a single worker scope. It is not safe for concurrent use, like
// the goja runtime it wraps.
type Worker struct {
	href    string
	vm      *goja.Runtime
	fetcher loader.Fetcher
	logger  *zap.SugaredLogger
	seq     *bootstrap.Sequencer

	// ctx of the script currently running, used by importScripts calls
	// made from JavaScript.
	ctx context.Context
}

// Option configures a Worker.
type Option func(*Worker)

// WithFetcher sets the fetcher used by importScripts.
func WithFetcher(f loader.Fetcher) Option {
	return func(w *Worker) {
		w.fetcher = f
	}
}

// WithLogger sets the logger that receives console output.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(w *Worker) {
		w.logger = l
	}
}

// DefaultFetcher fetches http, https, file and data addresses.
func DefaultFetcher() *loader.Mux {
	m := loader.NewMux()
	httpFetcher := loader.NewHTTPFetcher(http.DefaultClient, "", 0)
	m.Handle("http", httpFetcher)
	m.Handle("https", httpFetcher)
	m.Handle("file", &loader.FileFetcher{})
	m.Handle("data", loader.DataFetcher{})
	return m
}

// New creates a worker whose startup address is href.
func New(href string, opts ...Option) *Worker {
	w := &Worker{
		href: href,
		vm:   goja.New(),
		ctx:  context.Background(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.fetcher == nil {
		w.fetcher = DefaultFetcher()
	}
	if w.logger == nil {
		w.logger = log.Logger().Named("worker")
	}
	w.seq = bootstrap.NewSequencer(w.ImportScripts)
	if err := w.installGlobals(); err != nil {
		panic(err)
	}
	return w
}

// Href returns the worker's startup address.
func (w *Worker) Href() string {
	return w.href
}

// Runtime returns the JavaScript runtime of the worker.
func (w *Worker) Runtime() *goja.Runtime {
	return w.vm
}

// Boot runs the bootstrap sequence: it reads the locale and worker
// parameters of the startup address and imports those scripts. A worker
// boots at most once.
func (w *Worker) Boot(ctx context.Context) error {
	if err := w.seq.Run(ctx, w.href); err != nil {
		return tracerr.Wrap(err)
	}
	cfg := w.seq.Config()
	w.logger.Infow("Worker booted", "href", w.href, "locale", cfg.Locale, "worker", cfg.Worker)
	return nil
}

// State returns the bootstrap state of the worker.
func (w *Worker) State() bootstrap.State {
	return w.seq.State()
}

// Config returns the script configuration read at boot.
func (w *Worker) Config() bootstrap.Config {
	return w.seq.Config()
}

// ImportScripts resolves addrs against the worker's address, fetches them
// and runs them in order in the worker's runtime.
func (w *Worker) ImportScripts(ctx context.Context, addrs ...string) error {
	resolved := make([]string, len(addrs))
	for i, addr := range addrs {
		r, err := loader.Resolve(w.href, addr)
		if err != nil {
			return tracerr.Wrap(err)
		}
		resolved[i] = r
	}
	return loader.New(w.fetcher, w.exec).Load(ctx, resolved...)
}

// Eval runs src in the worker's global scope and returns the exported result.
func (w *Worker) Eval(ctx context.Context, name, src string) (interface{}, error) {
	v, err := w.run(ctx, name, src)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return v.Export(), nil
}

func (w *Worker) exec(ctx context.Context, addr string, src []byte) error {
	_, err := w.run(ctx, addr, string(src))
	if err != nil {
		return err
	}
	metric.ScriptsExecuted.Inc()
	return nil
}

func (w *Worker) run(ctx context.Context, name, src string) (goja.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prev := w.ctx
	w.ctx = ctx
	defer func() { w.ctx = prev }()

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		w.vm.Interrupt(ctx.Err())
		close(interrupted)
	})
	v, err := w.vm.RunScript(name, src)
	if !stop() {
		<-interrupted
		w.vm.ClearInterrupt()
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// setter records the first error of a series of Set calls on obj.
type setter struct {
	obj *goja.Object
	err error
}

func (s *setter) set(name string, value interface{}) {
	if s.err != nil {
		return
	}
	if err := s.obj.Set(name, value); err != nil {
		s.err = fmt.Errorf("setting %s: %w", name, err)
	}
}

func (w *Worker) installGlobals() error {
	loc, err := w.location()
	if err != nil {
		return err
	}
	console, err := w.console()
	if err != nil {
		return err
	}
	g := &setter{obj: w.vm.GlobalObject()}
	g.set("self", w.vm.GlobalObject())
	g.set("location", loc)
	g.set("importScripts", w.jsImportScripts)
	g.set("console", console)
	return g.err
}

func (w *Worker) location() (*goja.Object, error) {
	loc := &setter{obj: w.vm.NewObject()}
	loc.set("href", w.href)
	if u, err := url.Parse(w.href); err == nil {
		loc.set("protocol", u.Scheme+":")
		loc.set("host", u.Host)
		loc.set("pathname", u.Path)
		search := ""
		if u.RawQuery != "" {
			search = "?" + u.RawQuery
		}
		loc.set("search", search)
	}
	loc.set("toString", func(goja.FunctionCall) goja.Value {
		return w.vm.ToValue(w.href)
	})
	return loc.obj, loc.err
}

// jsImportScripts is importScripts as seen from JavaScript. Failures are
// thrown into the calling script.
func (w *Worker) jsImportScripts(call goja.FunctionCall) goja.Value {
	addrs := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		addrs[i] = arg.String()
	}
	if err := w.ImportScripts(w.ctx, addrs...); err != nil {
		panic(w.vm.NewGoError(tracerr.Unwrap(err)))
	}
	return goja.Undefined()
}

func (w *Worker) console() (*goja.Object, error) {
	c := &setter{obj: w.vm.NewObject()}
	for name, logFn := range map[string]func(...interface{}){
		"log":   w.logger.Info,
		"info":  w.logger.Info,
		"debug": w.logger.Debug,
		"warn":  w.logger.Warn,
		"error": w.logger.Error,
	} {
		logFn := logFn
		c.set(name, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			logFn(strings.Join(parts, " "))
			return goja.Undefined()
		})
	}
	return c.obj, c.err
}
