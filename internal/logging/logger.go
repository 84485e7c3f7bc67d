// Package logging configures the global zerolog logger for media-seed.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnvVar selects the log level: debug, info, warn, error (default: info).
const LevelEnvVar = "MEDIA_MAP_LOG_LEVEL"

// ParseLevel maps a level name to a zerolog level; unknown names are info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init initializes the global logger with a console writer on stderr.
// MEDIA_MAP_LOG_LEVEL controls the log level.
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnvVar)))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// InitWithRunLog initializes the global logger to write both to the
// console and, as JSON lines, to the append-only run log at path. The
// returned closer flushes the run log.
func InitWithRunLog(path string) (io.Closer, error) {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnvVar)))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	log.Logger = newRunLogger(os.Stderr, f)
	return f, nil
}

func newRunLogger(console, runLog io.Writer) zerolog.Logger {
	w := zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: console}, runLog)
	return zerolog.New(w).With().Timestamp().Logger()
}
