package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a zerolog logger configured for stdout. The level is read
// from WDN_LOG_LEVEL when set; unknown values fall back to info.
func New() zerolog.Logger {
	level := zerolog.InfoLevel
	if raw, ok := os.LookupEnv("WDN_LOG_LEVEL"); ok {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw))); err == nil {
			level = parsed
		}
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}
