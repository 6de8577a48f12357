package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps a zerolog logger so the rest of the codebase never imports
// zerolog directly.
type Logger struct {
	logger zerolog.Logger
}

// Config selects the log level and output format.
type Config struct {
	Level  string
	Format string // json or console
}

// New creates a logger writing to stdout.
func New(cfg Config) *Logger {
	var output io.Writer = os.Stdout

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return &Logger{logger: zerolog.New(output).With().Timestamp().Logger()}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Debug(msg string) { l.logger.Debug().Msg(msg) }

func (l *Logger) Debugf(format string, v ...interface{}) { l.logger.Debug().Msgf(format, v...) }

func (l *Logger) Info(msg string) { l.logger.Info().Msg(msg) }

func (l *Logger) Infof(format string, v ...interface{}) { l.logger.Info().Msgf(format, v...) }

func (l *Logger) Warn(msg string) { l.logger.Warn().Msg(msg) }

func (l *Logger) Warnf(format string, v ...interface{}) { l.logger.Warn().Msgf(format, v...) }

func (l *Logger) Error(msg string) { l.logger.Error().Msg(msg) }

func (l *Logger) Errorf(format string, v ...interface{}) { l.logger.Error().Msgf(format, v...) }

func (l *Logger) ErrorWithErr(err error, msg string) { l.logger.Error().Err(err).Msg(msg) }

func (l *Logger) Fatal(msg string) { l.logger.Fatal().Msg(msg) }

func (l *Logger) Fatalf(format string, v ...interface{}) { l.logger.Fatal().Msgf(format, v...) }

// With returns a child logger carrying one extra field.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithFields returns a child logger carrying the given fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

// WithError returns a child logger carrying the error as a field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

// Init replaces zerolog's package-level logger so libraries logging through
// it share our configuration.
func Init(cfg Config) {
	log.Logger = New(cfg).logger
}
