package telemetry

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures NewLogger.
type Options struct {
	// Level is the minimum level: trace, debug, info, warn or error.
	Level string
	// Format is console or json.
	Format string
	// Output is stdout, stderr or a file path. Ignored when Writer is set.
	Output string
	Writer io.Writer
}

// NewLogger builds a timestamped zerolog logger. The level is applied
// globally so SetLevel can change it later for every logger derived
// from this one.
func NewLogger(opts Options) (zerolog.Logger, error) {
	writer := opts.Writer
	if writer == nil {
		switch opts.Output {
		case "", "stderr":
			writer = os.Stderr
		case "stdout":
			writer = os.Stdout
		default:
			file, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return zerolog.Nop(), fmt.Errorf("open log output: %w", err)
			}
			writer = file
		}
	}

	switch opts.Format {
	case "", "console":
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", opts.Format)
	}

	if err := SetLevel(opts.Level); err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(writer).With().Timestamp().Logger(), nil
}

// SetLevel changes the process-wide minimum log level.
func SetLevel(level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
