package magic

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

// LogLevel controls how chatty a Logger is.
type LogLevel int

const (
	LogError LogLevel = iota
	LogWarn
	LogInfo
	LogDebug
)

// String returns the level name used in log prefixes.
func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "ERROR"
	case LogWarn:
		return "WARN"
	case LogInfo:
		return "INFO"
	case LogDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Logger is the logging interface consumed by the factory and sessions.
// Callers can plug in their own implementation through Options.Logger.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	SetLevel(level LogLevel)
}

// DefaultLogger writes levelled lines to a single writer.
type DefaultLogger struct {
	level  LogLevel
	mu     sync.Mutex
	output io.Writer
}

// NewDefaultLogger creates a logger writing to stdout.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return NewDefaultLoggerWithOutput(level, os.Stdout)
}

// NewDefaultLoggerWithOutput creates a logger writing to the given writer.
func NewDefaultLoggerWithOutput(level LogLevel, output io.Writer) *DefaultLogger {
	return &DefaultLogger{level: level, output: output}
}

// SetLevel changes the logging threshold.
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *DefaultLogger) Debug(format string, args ...interface{}) {
	l.log(LogDebug, format, args...)
}

func (l *DefaultLogger) Info(format string, args ...interface{}) {
	l.log(LogInfo, format, args...)
}

func (l *DefaultLogger) Warn(format string, args ...interface{}) {
	l.log(LogWarn, format, args...)
}

func (l *DefaultLogger) Error(format string, args ...interface{}) {
	l.log(LogError, format, args...)
}

func (l *DefaultLogger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level {
		return
	}
	fmt.Fprintf(l.output, "[%s] %s\n", level.String(), fmt.Sprintf(format, args...))
}

// NoOpLogger discards everything. Used to silence sessions in tests.
type NoOpLogger struct{}

// NewNoOpLogger creates a logger that discards all output.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(format string, args ...interface{}) {}
func (l *NoOpLogger) Info(format string, args ...interface{})  {}
func (l *NoOpLogger) Warn(format string, args ...interface{})  {}
func (l *NoOpLogger) Error(format string, args ...interface{}) {}
func (l *NoOpLogger) SetLevel(level LogLevel)                  {}

// gormLogBridge routes GORM's internal logging into a Logger so engines built
// by the factory do not print through GORM's own stdout logger.
type gormLogBridge struct {
	logger Logger
}

func newGormLogBridge(logger Logger) gormlogger.Interface {
	return &gormLogBridge{logger: logger}
}

func (b *gormLogBridge) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	// Level filtering is handled by the wrapped Logger.
	return b
}

func (b *gormLogBridge) Info(_ context.Context, format string, args ...interface{}) {
	b.logger.Info(format, args...)
}

func (b *gormLogBridge) Warn(_ context.Context, format string, args ...interface{}) {
	b.logger.Warn(format, args...)
}

func (b *gormLogBridge) Error(_ context.Context, format string, args ...interface{}) {
	b.logger.Error(format, args...)
}

func (b *gormLogBridge) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, rows := fc()
	elapsed := time.Since(begin)
	if err != nil {
		b.logger.Error("[SQL] %s (%d rows, %s): %v", sql, rows, elapsed, err)
		return
	}
	b.logger.Debug("[SQL] %s (%d rows, %s)", sql, rows, elapsed)
}
