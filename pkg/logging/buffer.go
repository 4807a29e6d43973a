package logging

import (
	"strings"
	"sync"
)

const captureDepth = 50

// LogCaptureWriter is a thread-safe writer that keeps the most recent log lines.
type LogCaptureWriter struct {
	mu    sync.RWMutex
	lines []string
}

// GlobalLogCapture backs the /api/log/latest endpoint.
var GlobalLogCapture = &LogCaptureWriter{}

// Write implements io.Writer. Each call is treated as one line.
func (w *LogCaptureWriter) Write(p []byte) (n int, err error) {
	line := strings.TrimRight(string(p), "\n")

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, line)
	if len(w.lines) > captureDepth {
		w.lines = w.lines[len(w.lines)-captureDepth:]
	}
	return len(p), nil
}

// GetLastLine returns the most recent log line.
func (w *LogCaptureWriter) GetLastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.lines) == 0 {
		return ""
	}
	return w.lines[len(w.lines)-1]
}

// Recent returns up to n of the newest lines, oldest first.
func (w *LogCaptureWriter) Recent(n int) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if n <= 0 || n > len(w.lines) {
		n = len(w.lines)
	}
	out := make([]string, n)
	copy(out, w.lines[len(w.lines)-n:])
	return out
}
