package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hermeznetwork/tracerr"
	"github.com/mitchellh/copystructure"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/go-playground/validator.v9"
)

// EnvPrefix prefixes every environment variable that overrides a
// configuration value, as in WORKERBOOT_HTTP_TIMEOUT.
const EnvPrefix = "WORKERBOOT_"

// Duration is a wrapper type that parses time duration from text.
type Duration struct {
	time.Duration `validate:"required"`
}

// UnmarshalText unmarshalls time duration from text.
func (d *Duration) UnmarshalText(data []byte) error {
	duration, err := time.ParseDuration(string(data))
	if err != nil {
		return tracerr.Wrap(err)
	}
	d.Duration = duration
	return nil
}

// Log is the logging configuration
type Log struct {
	// Level is one of debug, info, warn or error
	Level string `validate:"required,oneof=debug info warn error"`
	// ErrorsPath is a file that receives a copy of every error log.
	// Empty disables it.
	ErrorsPath string
}

// HTTP is the configuration of the http(s) script fetcher
type HTTP struct {
	// Timeout of a whole script request
	Timeout Duration `validate:"required"`
	// UserAgent sent with every request. Empty sends none.
	UserAgent string
	// MaxScriptBytes limits the size of a fetched script
	MaxScriptBytes int64 `validate:"required,gt=0"`
}

// Worker is the configuration of the worker scope
type Worker struct {
	// AllowSchemes lists the address schemes importScripts may fetch
	AllowSchemes []string `validate:"required,min=1,dive,oneof=http https file data"`
}

// Config is the workerboot configuration
type Config struct {
	Log    Log    `validate:"required"`
	HTTP   HTTP   `validate:"required"`
	Worker Worker `validate:"required"`
}

var (
	defaultOnce sync.Once
	defaultCfg  Config
	defaultErr  error
)

// Default returns a fresh copy of the default configuration.
func Default() (*Config, error) {
	defaultOnce.Do(func() {
		if _, err := toml.Decode(DefaultValues, &defaultCfg); err != nil {
			defaultErr = tracerr.Wrap(fmt.Errorf("error loading default configuration: %w", err))
		}
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	cp, err := copystructure.Copy(defaultCfg)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	cfg := cp.(Config)
	return &cfg, nil
}

// Load loads the configuration. Values are taken from the defaults, then
// from the TOML file at path (if path is not empty), then from the
// WORKERBOOT_ environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, tracerr.Wrap(fmt.Errorf("error loading configuration file: %w", err))
		}
	}
	if err := ApplyEnv(cfg, os.Environ()); err != nil {
		return nil, tracerr.Wrap(err)
	}
	if err := Validate(cfg); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return cfg, nil
}

// Validate checks cfg against its validation tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return tracerr.Wrap(fmt.Errorf("error validating configuration: %w", err))
	}
	return nil
}

// ApplyEnv overrides the values of cfg with the variables of environ (in
// os.Environ form) named WORKERBOOT_<SECTION>_<FIELD>. Names are matched
// case-insensitively. Lists are comma separated.
func ApplyEnv(cfg *Config, environ []string) error {
	sections := map[string]map[string]interface{}{}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		rest, ok := strings.CutPrefix(strings.ToUpper(name), EnvPrefix)
		if !ok {
			continue
		}
		section, field, ok := strings.Cut(rest, "_")
		if !ok || section == "" || field == "" {
			continue
		}
		if sections[section] == nil {
			sections[section] = map[string]interface{}{}
		}
		sections[section][field] = value
	}
	if len(sections) == 0 {
		return nil
	}

	clearLists(cfg, sections)
	input := make(map[string]interface{}, len(sections))
	for section, fields := range sections {
		input[section] = fields
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			durationHook,
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return tracerr.Wrap(err)
	}
	if err := dec.Decode(input); err != nil {
		return tracerr.Wrap(fmt.Errorf("error loading configuration from environment: %w", err))
	}
	return nil
}

// clearLists resets the list fields named in sections. mapstructure decodes
// into an existing slice element by element, so a shorter list would keep
// the tail of the old one.
func clearLists(cfg *Config, sections map[string]map[string]interface{}) {
	root := reflect.ValueOf(cfg).Elem()
	for section, fields := range sections {
		sv := fieldFold(root, section)
		if !sv.IsValid() || sv.Kind() != reflect.Struct {
			continue
		}
		for field := range fields {
			if fv := fieldFold(sv, field); fv.IsValid() && fv.Kind() == reflect.Slice {
				fv.Set(reflect.Zero(fv.Type()))
			}
		}
	}
}

func fieldFold(v reflect.Value, name string) reflect.Value {
	return v.FieldByNameFunc(func(n string) bool {
		return strings.EqualFold(n, name)
	})
}

func durationHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(Duration{}) || from.Kind() != reflect.String {
		return data, nil
	}
	d, err := time.ParseDuration(data.(string))
	if err != nil {
		return nil, err
	}
	return Duration{Duration: d}, nil
}
