package bootstrap

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ravindran79-arch/smartbid-compliance/config"
)

// NewLogger builds the process logger from the logging section and sets the
// global level to match.
func NewLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Str("service", "smartbid").Logger()
}
