package app

import (
	"strings"

	"github.com/nguyenvh/custodesk/pkg/logger"
)

// ConfigureLogging installs the global logger at the configured level.
// The value arrives straight from config, so it is normalised first and a
// couple of common operator spellings are accepted.
func ConfigureLogging(level string) error {
	normalised := strings.ToLower(strings.TrimSpace(level))
	switch normalised {
	case "":
		normalised = "info"
	case "warning":
		normalised = "warn"
	}
	return logger.Init(normalised)
}
