package server

import (
	"fmt"

	"github.com/decred/slog"
)

// GetDebugLevel converts a level name to an slog.Level.
func GetDebugLevel(debugStr string) (slog.Level, error) {
	var debugLevel slog.Level
	switch debugStr {
	case "trace":
		debugLevel = slog.LevelTrace
	case "debug":
		debugLevel = slog.LevelDebug
	case "info", "":
		debugLevel = slog.LevelInfo
	case "warn":
		debugLevel = slog.LevelWarn
	case "error":
		debugLevel = slog.LevelError
	case "off":
		debugLevel = slog.LevelOff
	default:
		return 0, fmt.Errorf("unknown debug level: %s", debugStr)
	}

	return debugLevel, nil
}
