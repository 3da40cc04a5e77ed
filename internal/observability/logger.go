package observability

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds a logger writing to w. format "text" selects the
// human-readable handler; anything else emits JSON. Unknown levels log at
// info.
//
// The long-running server logs through the shared service logger on stdout.
// Commands that print their result on stdout log to stderr with this one.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.Replace(strings.ToLower(level), "warning", "warn", 1))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
