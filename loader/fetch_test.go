package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hermeznetwork/tracerr"
	"github.com/leo-stone-dot/worker_boot_go/metric"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScriptServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ts.worker.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte("self.ts = '" + r.Header.Get("User-Agent") + "';"))
	})
	mux.HandleFunc("/big.js", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher(t *testing.T) {
	srv := newScriptServer(t)
	f := NewHTTPFetcher(srv.Client(), "workerboot-test", 0)

	src, err := f.Fetch(context.Background(), srv.URL+"/ts.worker.js")
	require.NoError(t, err)
	assert.Equal(t, "self.ts = 'workerboot-test';", string(src))
}

func TestHTTPFetcherStatus(t *testing.T) {
	srv := newScriptServer(t)
	f := NewHTTPFetcher(srv.Client(), "", 0)

	_, err := f.Fetch(context.Background(), srv.URL+"/missing.js")
	var statusErr *StatusError
	require.True(t, errors.As(tracerr.Unwrap(err), &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestHTTPFetcherSizeLimit(t *testing.T) {
	srv := newScriptServer(t)
	f := NewHTTPFetcher(srv.Client(), "", 16)

	_, err := f.Fetch(context.Background(), srv.URL+"/big.js")
	assert.True(t, errors.Is(tracerr.Unwrap(err), ErrScriptTooLarge))
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "w.js")
	require.NoError(t, os.WriteFile(path, []byte("var w = 1;"), 0600))

	f := &FileFetcher{}
	src, err := f.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "var w = 1;", string(src))

	src, err = f.Fetch(context.Background(), "file://"+filepath.ToSlash(path))
	require.NoError(t, err)
	assert.Equal(t, "var w = 1;", string(src))

	_, err = f.Fetch(context.Background(), filepath.Join(dir, "missing.js"))
	assert.True(t, errors.Is(tracerr.Unwrap(err), os.ErrNotExist))

	_, err = (&FileFetcher{MaxBytes: 4}).Fetch(context.Background(), path)
	assert.True(t, errors.Is(tracerr.Unwrap(err), ErrScriptTooLarge))
}

func TestDataFetcher(t *testing.T) {
	cases := []struct {
		addr string
		want string
	}{
		{"data:text/javascript,var%20a%20%3D%201%3B", "var a = 1;"},
		{"data:,plain", "plain"},
		{"data:text/javascript;base64,dmFyIGEgPSAxOw==", "var a = 1;"},
		{"data:text/javascript;base64,dmFyIGEgPSAxOw%3D%3D", "var a = 1;"},
	}
	for _, c := range cases {
		src, err := DataFetcher{}.Fetch(context.Background(), c.addr)
		require.NoError(t, err, c.addr)
		assert.Equal(t, c.want, string(src), c.addr)
	}

	_, err := DataFetcher{}.Fetch(context.Background(), "data:text/javascript")
	assert.True(t, errors.Is(tracerr.Unwrap(err), ErrMalformedDataURL))
	_, err = DataFetcher{}.Fetch(context.Background(), "data:;base64,***")
	assert.Error(t, err)
}

func TestMuxDispatchAndMetrics(t *testing.T) {
	srv := newScriptServer(t)
	m := NewMux()
	m.Handle("http", NewHTTPFetcher(srv.Client(), "", 0))
	m.Handle("DATA", DataFetcher{})
	assert.True(t, m.Handles("data"))
	assert.False(t, m.Handles("ftp"))

	fetched := testutil.ToFloat64(metric.ScriptsFetched.WithLabelValues("data"))
	failed := testutil.ToFloat64(metric.FetchFailures.WithLabelValues("ftp"))

	src, err := m.Fetch(context.Background(), "data:,1")
	require.NoError(t, err)
	assert.Equal(t, "1", string(src))
	assert.Equal(t, fetched+1, testutil.ToFloat64(metric.ScriptsFetched.WithLabelValues("data")))

	src, err = m.Fetch(context.Background(), srv.URL+"/ts.worker.js")
	require.NoError(t, err)
	assert.Contains(t, string(src), "self.ts")

	_, err = m.Fetch(context.Background(), "ftp://host/x.js")
	assert.True(t, errors.Is(tracerr.Unwrap(err), ErrUnsupportedScheme))
	assert.Equal(t, failed+1, testutil.ToFloat64(metric.FetchFailures.WithLabelValues("ftp")))

	_, err = m.Fetch(context.Background(), "relative/w.js")
	assert.True(t, errors.Is(tracerr.Unwrap(err), ErrUnsupportedScheme))
}
