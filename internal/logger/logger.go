// File: internal/logger/logger.go
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines common logging interface for all packages
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps a LOG_LEVEL value to a LogLevel. Unknown values give INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LogLevelDebug
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// ProductionLogger is a structured logger for production use
type ProductionLogger struct {
	sugar      *zap.SugaredLogger
	level      zap.AtomicLevel
	service    string
	structured bool
}

// NewProductionLogger creates a production-ready logger writing JSON to stdout
func NewProductionLogger(service string) *ProductionLogger {
	return NewProductionLoggerWithLevel(service, LogLevelInfo, true)
}

// NewProductionLoggerWithLevel creates logger with specific log level and encoding
func NewProductionLoggerWithLevel(service string, level LogLevel, structured bool) *ProductionLogger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	return &ProductionLogger{
		sugar:      newZap(service, atom, structured, zapcore.Lock(os.Stdout)),
		level:      atom,
		service:    service,
		structured: structured,
	}
}

// NewWithCore builds a logger on top of an existing zap core. Tests use it with
// zaptest/observer to assert on mirrored reports.
func NewWithCore(service string, core zapcore.Core) *ProductionLogger {
	return &ProductionLogger{
		sugar:      zap.New(core).Sugar().With("service", service),
		level:      zap.NewAtomicLevelAt(zapcore.DebugLevel),
		service:    service,
		structured: true,
	}
}

func newZap(service string, atom zap.AtomicLevel, structured bool, out zapcore.WriteSyncer) *zap.SugaredLogger {
	var enc zapcore.Encoder
	if structured {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.MessageKey = "message"
		cfg.EncodeTime = zapcore.RFC3339TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.RFC3339TimeEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	core := zapcore.NewCore(enc, out, atom)
	return zap.New(core).Sugar().With("service", service)
}

// SetLevel updates the logging level
func (p *ProductionLogger) SetLevel(level LogLevel) {
	p.level.SetLevel(level.zapLevel())
}

// Info logs informational messages
func (p *ProductionLogger) Info(msg string, keysAndValues ...interface{}) {
	p.sugar.Infow(msg, keysAndValues...)
}

// Error logs error messages
func (p *ProductionLogger) Error(msg string, keysAndValues ...interface{}) {
	p.sugar.Errorw(msg, keysAndValues...)
}

// Debug logs debug messages
func (p *ProductionLogger) Debug(msg string, keysAndValues ...interface{}) {
	p.sugar.Debugw(msg, keysAndValues...)
}

// Warn logs warning messages
func (p *ProductionLogger) Warn(msg string, keysAndValues ...interface{}) {
	p.sugar.Warnw(msg, keysAndValues...)
}

// Sync flushes buffered entries.
func (p *ProductionLogger) Sync() error {
	return p.sugar.Sync()
}

// NoOpLogger is a logger that does nothing (for testing, or when no console is available)
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *NoOpLogger) Error(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Warn(msg string, keysAndValues ...interface{})  {}

// New is the environment-based logger factory.
// env "test" yields a NoOpLogger, "production" yields JSON output.
func New(service, env, level string) Logger {
	if strings.EqualFold(env, "test") {
		return &NoOpLogger{}
	}
	structured := strings.EqualFold(env, "production")
	return NewProductionLoggerWithLevel(service, ParseLevel(level), structured)
}

// FromEnv builds a logger from GO_ENV and LOG_LEVEL.
func FromEnv(service string) Logger {
	return New(service, os.Getenv("GO_ENV"), os.Getenv("LOG_LEVEL"))
}

// OrNop substitutes a NoOpLogger for a missing logger.
func OrNop(l Logger) Logger {
	if l == nil {
		return &NoOpLogger{}
	}
	return l
}
