// Package burble implements the diagnostic toggle: when enabled, the engine
// emits one structured trace line per format-conversion or kernel-variant
// decision. It is a pure observability hook with no effect on results.
package burble

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var enabled atomic.Bool

var logger atomic.Pointer[zerolog.Logger]

var nop = zerolog.Nop()

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Str("component", "graphblas").Logger()
	logger.Store(&l)
}

// Enable turns the burble on or off.
func Enable(on bool) { enabled.Store(on) }

// Enabled reports the current setting.
func Enabled() bool { return enabled.Load() }

// SetLogger replaces the destination logger.
func SetLogger(l zerolog.Logger) { logger.Store(&l) }

// Log returns a debug event on the burble logger, or a disabled event when
// the burble is off. Callers chain fields and call Msg as with any zerolog
// event.
func Log() *zerolog.Event {
	if !enabled.Load() {
		return nop.Debug()
	}
	return logger.Load().Debug()
}
