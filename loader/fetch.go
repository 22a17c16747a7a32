package loader

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dghubble/sling"
	"github.com/hermeznetwork/tracerr"
	"github.com/leo-stone-dot/worker_boot_go/metric"
)

// DefaultMaxScriptBytes caps the size of a single fetched script.
const DefaultMaxScriptBytes = 10 << 20

var (
	// ErrScriptTooLarge is returned when a script exceeds the size cap.
	ErrScriptTooLarge = errors.New("script exceeds size limit")
	// ErrUnsupportedScheme is returned for addresses no fetcher handles.
	ErrUnsupportedScheme = errors.New("unsupported address scheme")
	// ErrMalformedDataURL is returned for data: addresses without a payload.
	ErrMalformedDataURL = errors.New("malformed data URL")
)

// A Fetcher retrieves the source of the script at an address.
type Fetcher interface {
	Fetch(ctx context.Context, addr string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, addr string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, addr string) ([]byte, error) {
	return f(ctx, addr)
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Addr       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.Addr, e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPFetcher fetches http and https addresses.
type HTTPFetcher struct {
	client   *http.Client
	base     *sling.Sling
	maxBytes int64
}

// NewHTTPFetcher returns an HTTPFetcher using client. A zero maxBytes
// means DefaultMaxScriptBytes.
func NewHTTPFetcher(client *http.Client, userAgent string, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxScriptBytes
	}
	base := sling.New().Client(client).
		Set("Accept", "application/javascript, text/javascript, */*;q=0.1")
	if userAgent != "" {
		base = base.Set("User-Agent", userAgent)
	}
	return &HTTPFetcher{client: client, base: base, maxBytes: maxBytes}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, addr string) ([]byte, error) {
	req, err := f.base.New().Get(addr).Request()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	resp, err := f.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, tracerr.Wrap(&StatusError{Addr: addr, StatusCode: resp.StatusCode})
	}
	return readLimited(resp.Body, f.maxBytes)
}

// FileFetcher reads file: addresses and plain filesystem paths.
type FileFetcher struct {
	MaxBytes int64
}

// Fetch implements Fetcher.
func (f *FileFetcher) Fetch(_ context.Context, addr string) ([]byte, error) {
	path := addr
	if u, err := url.Parse(addr); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	defer file.Close() //nolint:errcheck
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxScriptBytes
	}
	return readLimited(file, limit)
}

// DataFetcher decodes data: addresses, base64 or percent-encoded.
type DataFetcher struct{}

// Fetch implements Fetcher.
func (DataFetcher) Fetch(_ context.Context, addr string) ([]byte, error) {
	rest, ok := strings.CutPrefix(addr, "data:")
	if !ok {
		return nil, tracerr.Wrap(ErrMalformedDataURL)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, tracerr.Wrap(ErrMalformedDataURL)
	}
	if strings.HasSuffix(meta, ";base64") {
		payload, err := url.PathUnescape(payload)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		return b, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return []byte(s), nil
}

// Mux dispatches fetches by address scheme. An address without a scheme is
// fetched with the "file" fetcher.
type Mux struct {
	fetchers map[string]Fetcher
}

// NewMux returns an empty Mux.
func NewMux() *Mux {
	return &Mux{fetchers: make(map[string]Fetcher)}
}

// Handle registers f for scheme, replacing any previous fetcher.
func (m *Mux) Handle(scheme string, f Fetcher) {
	m.fetchers[strings.ToLower(scheme)] = f
}

// Handles reports whether a fetcher is registered for scheme.
func (m *Mux) Handles(scheme string) bool {
	_, ok := m.fetchers[strings.ToLower(scheme)]
	return ok
}

// Fetch implements Fetcher.
func (m *Mux) Fetch(ctx context.Context, addr string) ([]byte, error) {
	scheme := schemeOf(addr)
	f, ok := m.fetchers[scheme]
	if !ok {
		metric.FetchFailures.WithLabelValues(scheme).Inc()
		return nil, tracerr.Wrap(fmt.Errorf("%w %q in %s", ErrUnsupportedScheme, scheme, addr))
	}
	start := time.Now()
	src, err := f.Fetch(ctx, addr)
	metric.MeasureDuration(metric.FetchDuration, start, scheme)
	if err != nil {
		metric.FetchFailures.WithLabelValues(scheme).Inc()
		return nil, err
	}
	metric.ScriptsFetched.WithLabelValues(scheme).Inc()
	metric.BytesFetched.Add(float64(len(src)))
	return src, nil
}

func schemeOf(addr string) string {
	u, err := url.Parse(addr)
	if err != nil || u.Scheme == "" {
		if strings.HasPrefix(addr, "data:") {
			return "data"
		}
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	if int64(len(b)) > limit {
		return nil, tracerr.Wrap(fmt.Errorf("%w of %d bytes", ErrScriptTooLarge, limit))
	}
	return b, nil
}
