package logging

import "log/slog"

// EnableTrace turns on per-frame logging (progress ticks, fade steps). Off by default.
var EnableTrace = false

// Trace logs at DEBUG only when EnableTrace is set.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if EnableTrace {
		logger.Debug(msg, args...)
	}
}
