package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/tuncerburak97/securecall/internal/config"
)

var log zerolog.Logger

// Init configures the process-wide logger and installs it as zerolog's global.
func Init(cfg config.LogConfig) *zerolog.Logger {
	return InitWriter(cfg, os.Stdout)
}

func InitWriter(cfg config.LogConfig, w io.Writer) *zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	log = zerolog.New(w).With().Timestamp().Str("service", "securecall").Logger()
	zlog.Logger = log
	return &log
}

func GetLogger() *zerolog.Logger {
	return &log
}
