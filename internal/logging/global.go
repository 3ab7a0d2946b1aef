package logging

import (
	"os"
	"sync"
	"time"

	"github.com/kyleking/xu-rsd-gen/internal/config"
)

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// InitializeLogger sets the process-wide logger. Only the first call has an
// effect.
func InitializeLogger(cfg config.LoggingConfig) error {
	var err error

	loggerOnce.Do(func() {
		globalLogger, err = NewLogger(cfg)
	})

	return err
}

// GetLogger returns the process-wide logger, installing the fallback logger
// when none was initialized
func GetLogger() *Logger {
	if globalLogger == nil {
		SetupFallbackLogger()
	}

	return globalLogger
}

// SetupFallbackLogger installs a text logger on stderr at info level
func SetupFallbackLogger() {
	globalLogger = NewWriterLogger(os.Stderr, InfoLevel, "text")
}

func Debug(message string) { GetLogger().Debug(message) }
func Info(message string)  { GetLogger().Info(message) }
func Warn(message string)  { GetLogger().Warn(message) }
func Error(message string) { GetLogger().Error(message) }

func ErrorWithErr(message string, err error) {
	GetLogger().ErrorWithErr(message, err)
}

func WithField(key string, value interface{}) *Logger {
	return GetLogger().WithField(key, value)
}

func WithFields(fields map[string]interface{}) *Logger {
	return GetLogger().WithFields(fields)
}

func WithError(err error) *Logger {
	return GetLogger().WithError(err)
}

// Track runs fn and logs how long the named operation took. Failures are
// logged at error level and returned unchanged.
func Track(operation string, fn func() error) error {
	logger := WithField(FieldOperation, operation)
	logger.Debug("Starting operation")

	start := time.Now()
	err := fn()
	logger = logger.WithField(FieldDuration, time.Since(start).Round(time.Millisecond).String())

	if err != nil {
		logger.ErrorWithErr("Operation failed", err)
		return err
	}

	logger.Debug("Operation completed")

	return nil
}
