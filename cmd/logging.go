package cmd

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	// Parse log level
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}

	// Set up output
	var output io.Writer
	if logFile != "" {
		output = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	} else {
		// Use pretty console output if logging to stderr
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// lastfmLogger routes Last.fm client messages into zerolog
type lastfmLogger struct {
	logger zerolog.Logger
}

func newLastFMLogger(logger zerolog.Logger) *lastfmLogger {
	return &lastfmLogger{logger: logger.With().Str("component", "lastfm").Logger()}
}

func (l *lastfmLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *lastfmLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}
