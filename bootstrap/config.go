package bootstrap

import (
	"github.com/hermeznetwork/tracerr"
	"github.com/leo-stone-dot/worker_boot_go/querystring"
)

const (
	// ParamLocale names the optional locale script parameter.
	ParamLocale = "locale"
	// ParamWorker names the required worker script parameter.
	ParamWorker = "worker"
)

// Config is the script configuration carried by a worker startup address.
type Config struct {
	// Locale is the address of the locale data script, or "" when none is
	// given.
	Locale string
	// Worker is the address of the main worker script.
	Worker string
}

// Scripts returns the addresses to load, in load order.
func (c Config) Scripts() []string {
	if c.Locale != "" {
		return []string{c.Locale, c.Worker}
	}
	return []string{c.Worker}
}

// ConfigFromParams reads the locale and worker parameters. Flags and empty
// values count as absent.
func ConfigFromParams(params *querystring.Params) (Config, error) {
	worker, err := param(params, ParamWorker)
	if err != nil {
		return Config{}, err
	}
	if worker == "" {
		return Config{}, tracerr.Wrap(&ConfigError{Param: ParamWorker, Err: ErrNoWorker})
	}
	locale, err := param(params, ParamLocale)
	if err != nil {
		return Config{}, err
	}
	return Config{Locale: locale, Worker: worker}, nil
}

// ConfigFromAddress decodes the query of a startup address and reads the
// script configuration from it.
func ConfigFromAddress(selfAddress string) (Config, error) {
	params, err := querystring.Parse(querystring.Extract(selfAddress))
	if err != nil {
		return Config{}, tracerr.Wrap(err)
	}
	return ConfigFromParams(params)
}

func param(params *querystring.Params, name string) (string, error) {
	v, ok := params.Get(name)
	if !ok {
		return "", nil
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case []any:
		return "", tracerr.Wrap(&ConfigError{Param: name, Err: ErrAmbiguousParam})
	default:
		return "", nil
	}
}
