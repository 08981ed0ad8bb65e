package logx

import "github.com/rs/zerolog"

// Entry is a log statement being built up with structured fields.
type Entry struct {
	l zerolog.Logger
}

// WithField adds a field to the entry (chainable).
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{l: e.l.With().Interface(key, value).Logger()}
}

// WithFields adds multiple fields to the entry (chainable).
func (e *Entry) WithFields(fields Fields) *Entry {
	return &Entry{l: e.l.With().Fields(map[string]interface{}(fields)).Logger()}
}

// WithError adds an error field (chainable).
func (e *Entry) WithError(err error) *Entry {
	return &Entry{l: e.l.With().Err(err).Logger()}
}

// Trace logs the entry at trace level.
func (e *Entry) Trace(msg string) { e.l.Trace().Msg(msg) }

// Debug logs the entry at debug level.
func (e *Entry) Debug(msg string) { e.l.Debug().Msg(msg) }

// Info logs the entry at info level.
func (e *Entry) Info(msg string) { e.l.Info().Msg(msg) }

// Warn logs the entry at warn level.
func (e *Entry) Warn(msg string) { e.l.Warn().Msg(msg) }

// Error logs the entry at error level.
func (e *Entry) Error(msg string) { e.l.Error().Msg(msg) }

// Tracef logs a formatted message at trace level.
func (e *Entry) Tracef(format string, args ...interface{}) { e.l.Trace().Msgf(format, args...) }

// Debugf logs a formatted message at debug level.
func (e *Entry) Debugf(format string, args ...interface{}) { e.l.Debug().Msgf(format, args...) }

// Infof logs a formatted message at info level.
func (e *Entry) Infof(format string, args ...interface{}) { e.l.Info().Msgf(format, args...) }

// Warnf logs a formatted message at warn level.
func (e *Entry) Warnf(format string, args ...interface{}) { e.l.Warn().Msgf(format, args...) }

// Errorf logs a formatted message at error level.
func (e *Entry) Errorf(format string, args ...interface{}) { e.l.Error().Msgf(format, args...) }
