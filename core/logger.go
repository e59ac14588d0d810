package core

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// loggerPtr stores the active logger. Accessed atomically so SetLogger can
// race with the render goroutine.
var loggerPtr atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.Nop()
	loggerPtr.Store(&l)
}

// SetLogger configures the logger for montage and all its sub-packages.
// By default nothing is logged.
//
// Levels used:
//   - debug: per-frame statistics, skipped document fields
//   - info: media opened, playback started/stopped
//   - warn: rejected property values, decode failures
//
// Example:
//
//	core.SetLogger(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
//		With().Timestamp().Logger().Level(zerolog.DebugLevel))
func SetLogger(l zerolog.Logger) {
	loggerPtr.Store(&l)
}

// Logger returns the current logger.
func Logger() *zerolog.Logger {
	return loggerPtr.Load()
}
