// Package logx configures the process-wide zerolog logger.
package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment is the deployment environment of the service.
type Environment string

// Known environments
const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// ParseEnvironment maps v onto a known environment. Unknown values fall back to Development.
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

// LoggerOpts controls logger initialisation.
type LoggerOpts struct {
	Environment Environment
	Output      io.Writer
}

// Init replaces the global logger. Production logs JSON at info level,
// everything else logs to a console writer at debug level.
func Init(opts LoggerOpts) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	switch opts.Environment {
	case Production:
		log.Logger = zerolog.New(out).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	case Testing:
		log.Logger = zerolog.New(out).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	default:
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Caller().Logger().Level(zerolog.DebugLevel)
	}
}

// Debug starts a debug event on the global logger.
func Debug() *zerolog.Event {
	return log.Debug()
}

// Info starts an info event on the global logger.
func Info() *zerolog.Event {
	return log.Info()
}

// Warn starts a warn event on the global logger.
func Warn() *zerolog.Event {
	return log.Warn()
}

// Error starts an error event on the global logger.
func Error() *zerolog.Event {
	return log.Error()
}

// Fatal starts a fatal event on the global logger.
func Fatal() *zerolog.Event {
	return log.Fatal()
}
