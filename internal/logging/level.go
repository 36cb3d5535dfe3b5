package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// ParseLevel accepts the slog level names ("debug", "info", "warn",
// "error", optionally with an offset such as "info+2"), case-insensitively.
// "warning" is accepted as "warn" and an empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}
