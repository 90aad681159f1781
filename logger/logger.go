package logger

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger represents a structured logger
type Logger struct {
	logger zerolog.Logger
}

// Fields represents log fields
type Fields map[string]interface{}

var (
	// Default is the default logger instance
	Default *Logger

	initOnce sync.Once
)

// Init initializes the logger with the given configuration
func Init() {
	initOnce.Do(func() {
		level := getLogLevel()

		zerolog.TimeFieldFormat = time.RFC3339
		zerolog.SetGlobalLevel(level)

		// Console output outside production, JSON lines in production
		var l zerolog.Logger
		if os.Getenv("DETAIL_ENVIRONMENT") == "production" {
			l = zerolog.New(os.Stdout).With().Timestamp().Logger()
		} else {
			output := zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: time.RFC3339,
			}
			l = zerolog.New(output).With().Timestamp().Logger()
		}

		Default = &Logger{logger: l}

		Default.Info().
			Str("level", level.String()).
			Msg("Logger initialized")
	})
}

// getLogLevel returns the log level from environment variable
func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("DETAIL_ENVIRONMENT") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// New wraps an existing zerolog logger. Tests use it with zerolog.Nop().
func New(l zerolog.Logger) *Logger {
	return &Logger{logger: l}
}

// WithFields creates a new logger with fields
func (l *Logger) WithFields(fields Fields) *Logger {
	newLogger := l.logger.With()
	for k, v := range fields {
		newLogger = newLogger.Interface(k, v)
	}
	return &Logger{logger: newLogger.Logger()}
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// Debug returns a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info returns an info event
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn returns a warn event
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error returns an error event
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// Fatal returns a fatal event
func (l *Logger) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}

// WithError adds an error to the logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

// ForExtractor creates a logger for a platform extractor
func ForExtractor(platform string) *Logger {
	Init()
	return Default.WithField("extractor", platform)
}

// ForWorker creates a logger for the background refresher
func ForWorker() *Logger {
	Init()
	return Default.WithField("component", "worker")
}

// ForPublisher creates a logger for the publisher
func ForPublisher() *Logger {
	Init()
	return Default.WithField("component", "publisher")
}

// ForCache creates a logger for the cache manager
func ForCache() *Logger {
	Init()
	return Default.WithField("component", "cache")
}

// ForStore creates a logger for the listing store
func ForStore() *Logger {
	Init()
	return Default.WithField("component", "store")
}

// ForBrowser creates a logger for headless browser automation
func ForBrowser() *Logger {
	Init()
	return Default.WithField("component", "browser")
}

// ForProxy creates a logger for the SOCKS5 proxy pool
func ForProxy() *Logger {
	Init()
	return Default.WithField("component", "proxy")
}

// ForFetcher creates a logger for the HTML fetcher
func ForFetcher() *Logger {
	Init()
	return Default.WithField("component", "fetcher")
}
