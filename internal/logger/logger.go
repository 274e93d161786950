package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger zerolog.Logger
	output io.Writer = io.Discard
)

func init() {
	// Silent until a command turns output on
	SetSilentMode(true)
}

// SetSilentMode switches the base logger between io.Discard and a console
// writer on stderr. The global level is left untouched.
func SetSilentMode(silent bool) {
	if silent {
		output = io.Discard
	} else {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    !isTerminal(os.Stderr),
		}
	}

	logger = zerolog.New(output).With().Timestamp().Logger()
}

// New returns the base logger
func New() zerolog.Logger {
	return logger
}

// Component returns a child logger tagged with the component name. Loggers
// taken before SetSilentMode keep their previous output.
func Component(name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// SetLevel sets the global log level: debug, info, warn or error
func SetLevel(level string) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return fmt.Errorf("unknown log level %q", level)
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
