package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the root logger every component logger derives from.
//   - level: zerolog level string (trace, debug, info, warn, error, fatal, panic);
//     unknown values fall back to info
//   - format: "pretty" for human-readable dev output, anything else emits JSON
//
// Components tag themselves with a "component" field on their derived
// logger; the root carries the service name so aggregated logs from several
// deployments stay distinguishable.
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
		Str("service", "prepdeck-backend").
		Logger()
}
