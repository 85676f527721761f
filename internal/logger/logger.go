// Package logger configures the process-wide zerolog root that the API
// server, the workers and the CLI tools all derive their component loggers
// from.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the root logger.
//   - level: zerolog level name (trace, debug, info, warn, error, fatal, panic);
//     unknown names fall back to info
//   - format: "json" for production, "pretty" for human-readable dev output
//
// Every component attaches its own "component" field to the returned logger.
func Setup(level, format string) zerolog.Logger {
	var writer io.Writer

	if format == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	} else {
		writer = os.Stdout
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()
}
