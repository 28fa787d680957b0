// =============================================================================
// TTC Price Export - Logging
// =============================================================================
//
// Every module logs through the small Logger interface below. The production
// implementation is backed by zap; tests plug in an observer core or Nop.
//
// LEVELS:
//   debug, info, warn, error (case-insensitive). An unknown level falls back
//   to info. The --verbose flag always selects debug.
//
// =============================================================================

package logger

import (
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the printf-style logging interface used across the tool.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// ZapLogger implements Logger on top of a zap SugaredLogger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New creates a console logger writing to out.
//
// PARAMETERS:
//   - out: Destination of log lines (usually os.Stderr).
//   - level: One of debug, info, warn, error.
//   - verbose: Forces the debug level.
//
// RETURNS:
//   - The logger and whether level was recognized.
func New(out io.Writer, level string, verbose bool) (*ZapLogger, bool) {
	lvl, known := ParseLevel(level)
	if verbose {
		lvl = zapcore.DebugLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(zapcore.AddSync(out)),
		lvl,
	)
	return FromZap(zap.New(core)), known
}

// FromZap wraps an existing zap logger.
func FromZap(l *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: l.Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() *ZapLogger {
	return FromZap(zap.NewNop())
}

// ParseLevel maps a level name to a zap level. Unknown names map to info.
func ParseLevel(level string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// With returns a child logger that adds the given key/value pairs to every entry.
func (l *ZapLogger) With(keysAndValues ...interface{}) *ZapLogger {
	return &ZapLogger{sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugf(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.sugar.Infof(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnf(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorf(msg, args...) }
