package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/hermeznetwork/tracerr"
	"github.com/leo-stone-dot/worker_boot_go/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuxFromConfig(t *testing.T) {
	srv := newScriptServer(t)
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.HTTP.UserAgent = "configured"
	cfg.Worker.AllowSchemes = []string{"http", "data"}

	m := MuxFromConfig(cfg)
	assert.True(t, m.Handles("http"))
	assert.True(t, m.Handles("data"))
	assert.False(t, m.Handles("https"))
	assert.False(t, m.Handles("file"))

	src, err := m.Fetch(context.Background(), srv.URL+"/ts.worker.js")
	require.NoError(t, err)
	assert.Equal(t, "self.ts = 'configured';", string(src))

	_, err = m.Fetch(context.Background(), "file:///etc/hostname")
	assert.True(t, errors.Is(tracerr.Unwrap(err), ErrUnsupportedScheme))
}

func TestMuxFromConfigSizeLimit(t *testing.T) {
	srv := newScriptServer(t)
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.HTTP.MaxScriptBytes = 16

	_, err = MuxFromConfig(cfg).Fetch(context.Background(), srv.URL+"/big.js")
	assert.True(t, errors.Is(tracerr.Unwrap(err), ErrScriptTooLarge))
}
