// Package debug provides debug logging gated behind the --debug flag and
// the QUARRY_DEBUG environment variable.
package debug

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// logger is the global debug logger instance
	logger = zerolog.Nop()
	// enabled indicates if debug logging is enabled
	enabled bool
	// mu protects the logger and enabled flag
	mu sync.RWMutex
)

// Init initializes the debug logger.
// If enable is true, debug logs are written to os.Stderr in a
// human-readable format. If enable is false, debug logs are discarded.
func Init(enable bool) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enable

	if enable {
		output := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
		logger = zerolog.New(output).
			Level(zerolog.DebugLevel).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.Nop()
	}
}

// Enabled returns whether debug logging is enabled
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Debug starts a debug-level event on the shared logger
func Debug() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return logger.Debug()
}

// Logger returns the shared logger instance
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
