// Package console provides the leveled logger shared by every pipeline
// stage. The configured level is decided once at process start; besides
// gating messages it also decides whether subprocess output is streamed
// or captured (see internal/execx).
package console

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level orders verbosity from quietest to loudest. A message at level L
// is emitted iff the configured level is >= L.
type Level int

const (
	LevelError Level = iota + 1
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// ParseLevel maps the external log-level string onto a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (expected error|warn|info|debug|trace)", s)
	}
}

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Logger routes errors to stderr and everything else to stdout, gated by
// the configured Level. Gating happens here, not in zap: zap has no trace
// level, so the cores accept everything and the Logger decides.
type Logger struct {
	level Level
	out   *zap.SugaredLogger
	err   *zap.SugaredLogger
}

// New builds a Logger writing to the process streams. The timestamp
// toggle adds a time prefix to every line.
func New(level Level, timestamps bool) *Logger {
	return NewWithSinks(level, timestamps, zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr))
}

// NewWithSinks is New with explicit sinks, for tests.
func NewWithSinks(level Level, timestamps bool, out, errOut zapcore.WriteSyncer) *Logger {
	enc := zapcore.NewConsoleEncoder(encoderConfig(timestamps))
	all := zap.LevelEnablerFunc(func(zapcore.Level) bool { return true })

	outCore := zapcore.NewCore(enc, out, all)
	errCore := zapcore.NewCore(enc, errOut, all)

	return &Logger{
		level: level,
		out:   zap.New(outCore).Sugar(),
		err:   zap.New(errCore).Sugar(),
	}
}

func encoderConfig(timestamps bool) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if timestamps {
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	}
	return cfg
}

// Level returns the configured verbosity.
func (l *Logger) Level() Level { return l.level }

func (l *Logger) Errorf(format string, args ...interface{}) {
	// Error is the floor level and is always emitted.
	l.err.Errorf(format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.level >= LevelWarn {
		l.out.Warnf(format, args...)
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LevelInfo {
		l.out.Infof(format, args...)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LevelDebug {
		l.out.Debugf(format, args...)
	}
}

func (l *Logger) Tracef(format string, args ...interface{}) {
	if l.level >= LevelTrace {
		l.out.Debugf(format, args...)
	}
}

// Sync flushes both sinks. Errors are ignored: stdout/stderr on Linux
// report EINVAL for Sync.
func (l *Logger) Sync() {
	_ = l.out.Sync()
	_ = l.err.Sync()
}
