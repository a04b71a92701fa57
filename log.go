package quant8

import (
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// defaultLogger is the process-wide zerolog logger that Logger returns.
// Nothing logs through it unless a caller installs it as the log callback
// via ZerologSink; with no LogFunc installed, Quantize and Remap log nothing.
var defaultLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
	With().Timestamp().Str("component", "quant8").Logger()

// Logger returns the process-wide default zerolog logger, for callers that
// want to wrap it with ZerologSink instead of building their own.
func Logger() zerolog.Logger { return defaultLogger }

// ZerologSink adapts a zerolog.Logger into a LogFunc, attaching the
// Attributes' tuning knobs as structured fields on every line so verbose
// output from a parallel histogram/k-means pass can be told apart by caller.
func ZerologSink(logger zerolog.Logger) LogFunc {
	return func(attrs *Attributes, message string) {
		logger.Debug().
			Int("max_colors", attrs.MaxColors).
			Int("speed", attrs.Speed).
			Msg(message)
	}
}

// newCorrelationID returns a fresh request id used to tag one Quantize or
// Remap call's log lines, so concurrent calls against shared Attributes
// don't interleave unreadably. Callbacks may be invoked from any worker
// goroutine.
func newCorrelationID() string {
	return uuid.NewString()
}

// logEvent forwards one stage message, tagged with reqID, to the callback
// handle; the message is only formatted when a log callback is installed.
func (a *Attributes) logEvent(reqID, stage, detail string) {
	a.callbacks.logf(a, "[%s] %s: %s", reqID, stage, detail)
}

func init() {
	// Process-wide zerolog level. ZerologSink writes at Debug level, so its
	// lines are filtered out unless a caller lowers the global level.
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
