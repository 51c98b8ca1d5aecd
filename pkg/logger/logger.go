// Package logger builds the zerolog logger shared by the service components.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment is the deployment environment of the service.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// ParseEnvironment normalises v; unknown values fall back to Development.
func ParseEnvironment(v string) Environment {
	switch Environment(v) {
	case Production:
		return Production
	case Testing:
		return Testing
	default:
		return Development
	}
}

// Options controls how New builds the logger.
type Options struct {
	Environment Environment
	Level       string
	Output      io.Writer
}

// New returns a JSON logger in production and a console logger with caller info elsewhere.
// An unparsable level falls back to info in production and debug otherwise.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.DebugLevel
		if opts.Environment == Production {
			level = zerolog.InfoLevel
		}
	}

	var l zerolog.Logger
	if opts.Environment == Production {
		l = zerolog.New(out).With().Timestamp().Logger()
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Caller().Logger()
	}
	return l.Level(level)
}

// Init installs the logger as zerolog's global logger and returns it.
func Init(opts Options) zerolog.Logger {
	l := New(opts)
	log.Logger = l
	return l
}
