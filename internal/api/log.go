package api

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"tripreel/pkg/logging"
)

// Regex to capture key=value or key="value with spaces"
var logRegex = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

const maxParamLen = 24

// handleLatestLog returns the last captured log line, or the last ?n= lines.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	if n, err := strconv.Atoi(r.URL.Query().Get("n")); err == nil && n > 1 {
		raw := logging.GlobalLogCapture.Recent(n)
		lines := make([]string, len(raw))
		for i, l := range raw {
			lines[i] = formatLogLine(l)
		}
		writeJSON(w, http.StatusOK, map[string][]string{"logs": lines})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"log": formatLogLine(logging.GlobalLogCapture.GetLastLine()),
	})
}

// formatLogLine turns a slog text line into "HH:MM:SS msg (k=v, ...)".
// Level is dropped, params are sorted and long values are left out.
func formatLogLine(raw string) string {
	matches := logRegex.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return raw
	}

	var msg, timeStr string
	var params []string
	for _, m := range matches {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				timeStr = t.Format("15:04:05")
			}
		case "level":
		case "msg":
			msg = val
		default:
			if len(val) <= maxParamLen {
				params = append(params, fmt.Sprintf("%s=%s", key, val))
			}
		}
	}
	if msg == "" {
		return raw
	}

	sort.Strings(params)
	out := msg
	if timeStr != "" {
		out = timeStr + " " + msg
	}
	if len(params) > 0 {
		out += " (" + strings.Join(params, ", ") + ")"
	}
	return out
}
