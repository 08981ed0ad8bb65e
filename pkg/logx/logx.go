// Package logx is the project-wide logging facade. It exposes a small
// leveled API with structured fields and delegates the actual formatting
// and output to zerolog. Configuration comes from the environment:
// LOG_LEVEL (trace|debug|info|warn|error) and LOG_FORMAT (console|json).
package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level is the minimum severity a message needs to be emitted.
type Level string

const (
	LevelTrace Level = "trace"
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Fields is a set of structured log fields.
type Fields map[string]interface{}

var defaultLogger zerolog.Logger

func init() {
	defaultLogger = newFromEnv()
}

func newFromEnv() zerolog.Logger {
	var w io.Writer = os.Stdout
	if strings.ToLower(os.Getenv("LOG_FORMAT")) != "json" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	level := toZerolog(ParseLevel(os.Getenv("LOG_LEVEL")))
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ParseLevel parses a level name, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func toZerolog(l Level) zerolog.Level {
	switch l {
	case LevelTrace:
		return zerolog.TraceLevel
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLevel changes the minimum level of the default logger.
func SetLevel(l Level) {
	defaultLogger = defaultLogger.Level(toZerolog(l))
}

// SetOutput redirects the default logger's output.
func SetOutput(w io.Writer) {
	defaultLogger = defaultLogger.Output(w)
}
