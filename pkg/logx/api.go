package logx

// ============================================================================
// Simple logging functions
// ============================================================================

// Trace logs a trace level message.
func Trace(msg string) {
	defaultLogger.Trace().Msg(msg)
}

// Debug logs a debug level message.
func Debug(msg string) {
	defaultLogger.Debug().Msg(msg)
}

// Info logs an info level message.
func Info(msg string) {
	defaultLogger.Info().Msg(msg)
}

// Warn logs a warning level message.
func Warn(msg string) {
	defaultLogger.Warn().Msg(msg)
}

// Error logs an error level message.
func Error(msg string) {
	defaultLogger.Error().Msg(msg)
}

// Fatal logs a fatal level message and exits.
func Fatal(msg string) {
	defaultLogger.Fatal().Msg(msg)
}

// ============================================================================
// Formatted logging functions
// ============================================================================

// Tracef logs a formatted trace message.
func Tracef(format string, args ...interface{}) {
	defaultLogger.Trace().Msgf(format, args...)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	defaultLogger.Debug().Msgf(format, args...)
}

// Infof logs a formatted info message.
func Infof(format string, args ...interface{}) {
	defaultLogger.Info().Msgf(format, args...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) {
	defaultLogger.Warn().Msgf(format, args...)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) {
	defaultLogger.Error().Msgf(format, args...)
}

// Fatalf logs a formatted fatal message and exits.
func Fatalf(format string, args ...interface{}) {
	defaultLogger.Fatal().Msgf(format, args...)
}

// ============================================================================
// Structured logging
// ============================================================================

// WithError creates an entry with an error field.
func WithError(err error) *Entry {
	return &Entry{l: defaultLogger.With().Err(err).Logger()}
}

// WithField creates an entry with a single field.
func WithField(key string, value interface{}) *Entry {
	return &Entry{l: defaultLogger.With().Interface(key, value).Logger()}
}

// WithFields creates an entry with multiple fields.
func WithFields(fields Fields) *Entry {
	return &Entry{l: defaultLogger.With().Fields(map[string]interface{}(fields)).Logger()}
}
