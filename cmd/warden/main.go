package main

import (
	"os"

	"github.com/opsforge/warden/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := logging.New()
		logger.Error().Err(err).Msg("warden failed")
		os.Exit(1)
	}
}
