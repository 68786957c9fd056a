package auth

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologAdapter satisfies Logger with a structured zerolog backend.
type ZerologAdapter struct {
	log zerolog.Logger
}

// LoggerOptions controls zerolog initialisation.
type LoggerOptions struct {
	// Level is the minimum log level: debug, info, warn, error.
	// Defaults to "info" when empty or unrecognised.
	Level string
	// Pretty enables human friendly console output; leave false in
	// production to emit pure JSON.
	Pretty bool
	// Output is the writer logs are sent to. Defaults to os.Stdout.
	Output io.Writer
}

// NewZerologAdapter builds the production logger for the auth components.
func NewZerologAdapter(opts LoggerOptions) *ZerologAdapter {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	log := zerolog.New(out).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Str("component", "auth").
		Logger()

	return &ZerologAdapter{log: log}
}

// Zerolog exposes the underlying logger for callers that want sub-loggers.
func (z *ZerologAdapter) Zerolog() zerolog.Logger {
	return z.log
}

// Debug implements Logger.
func (z *ZerologAdapter) Debug(format string, args ...any) {
	z.log.Debug().Msgf(format, args...)
}

// Info implements Logger.
func (z *ZerologAdapter) Info(format string, args ...any) {
	z.log.Info().Msgf(format, args...)
}

// Warn implements Logger.
func (z *ZerologAdapter) Warn(format string, args ...any) {
	z.log.Warn().Msgf(format, args...)
}

// Error implements Logger.
func (z *ZerologAdapter) Error(format string, args ...any) {
	z.log.Error().Msgf(format, args...)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

var _ Logger = (*ZerologAdapter)(nil)
