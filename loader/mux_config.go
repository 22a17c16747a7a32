package loader

import (
	"net/http"

	"github.com/leo-stone-dot/worker_boot_go/config"
)

// MuxFromConfig returns a Mux handling the schemes of
// cfg.Worker.AllowSchemes, with http and https requests limited by the
// cfg.HTTP settings.
func MuxFromConfig(cfg *config.Config) *Mux {
	client := &http.Client{Timeout: cfg.HTTP.Timeout.Duration}
	httpFetcher := NewHTTPFetcher(client, cfg.HTTP.UserAgent, cfg.HTTP.MaxScriptBytes)
	m := NewMux()
	for _, scheme := range cfg.Worker.AllowSchemes {
		switch scheme {
		case "http", "https":
			m.Handle(scheme, httpFetcher)
		case "file":
			m.Handle(scheme, &FileFetcher{MaxBytes: cfg.HTTP.MaxScriptBytes})
		case "data":
			m.Handle(scheme, DataFetcher{})
		}
	}
	return m
}
