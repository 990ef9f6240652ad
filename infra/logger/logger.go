package logger

import corelogger "github.com/kilianp07/prefetch/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.NopLogger

// Config selects the global log level and output format.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `json:"level" yaml:"level"`
	// Format is "json" or "console". Empty defers to APP_ENV.
	Format string `json:"format" yaml:"format"`
}

// New returns a Logger for the given component. The output format follows
// the configured format, or the APP_ENV variable when none is set.
func New(component string) Logger {
	return NewZerologLogger(component)
}
