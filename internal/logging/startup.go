package logging

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects the resolved configuration of a run, then emits a
// single structured event so the run log shows exactly how the pipeline
// was configured. Secrets are never registered, only their presence.
type StartupLogger struct {
	name         string
	version      string
	initDuration time.Duration

	resources map[string]string
	secrets   map[string]bool
	features  map[string]bool
	config    map[string]string
}

// NewStartupLogger creates a StartupLogger for the given command name.
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:      name,
		resources: make(map[string]string),
		secrets:   make(map[string]bool),
		features:  make(map[string]bool),
		config:    make(map[string]string),
	}
}

// Version sets the version baked into the binary at build time.
func (s *StartupLogger) Version(v string) *StartupLogger {
	s.version = v
	return s
}

// Resource registers an external resource (bucket, database, folder).
func (s *StartupLogger) Resource(label, name string) *StartupLogger {
	s.resources[label] = name
	return s
}

// Secret records whether a secret was resolved. The value is not taken.
func (s *StartupLogger) Secret(name string, resolved bool) *StartupLogger {
	s.secrets[name] = resolved
	return s
}

// Feature registers a boolean feature flag (e.g. "reset", "metrics").
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// InitDuration records how long startup took.
func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// Log emits a single structured INFO event with all collected information.
func (s *StartupLogger) Log() {
	evt := log.Info()

	app := zerolog.Dict().
		Str("name", s.name).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", zerolog.GlobalLevel().String())
	if s.version != "" {
		app = app.Str("version", s.version)
	}
	evt = evt.Dict("app", app)

	if len(s.resources) > 0 {
		evt = evt.Dict("resources", dictFromMap(s.resources))
	}
	if len(s.secrets) > 0 {
		evt = evt.Dict("secrets", boolDict(s.secrets))
	}
	if len(s.features) > 0 {
		evt = evt.Dict("features", boolDict(s.features))
	}
	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}
	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Startup complete")
}

func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}

func boolDict(m map[string]bool) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Bool(k, v)
	}
	return d
}
