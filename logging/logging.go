// Package logging configures zerolog for the sync binaries. Console output
// is used when stderr is a terminal, JSON otherwise.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger zerolog.Logger

func init() {
	defaultLogger = newLogger(os.Stderr, zerolog.InfoLevel)
}

// Setup applies the configured level to the global logger.
func Setup(level string) {
	defaultLogger = newLogger(os.Stderr, ParseLevel(level))
	log.Logger = defaultLogger
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// ParseLevel maps a config string onto a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func newLogger(out *os.File, level zerolog.Level) zerolog.Logger {
	var writer io.Writer = out
	if isatty.IsTerminal(out.Fd()) && os.Getenv("LOG_FORMAT") != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
