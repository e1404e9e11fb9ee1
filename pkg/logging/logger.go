// Package logging provides a colorized, component-tagged wrapper around zap.
package logging

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ANSI color codes.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"

	BrightRed    = "\033[91m"
	BrightYellow = "\033[93m"
	BrightBlue   = "\033[94m"
	BrightCyan   = "\033[96m"
	BrightWhite  = "\033[97m"
)

// Component identifies the subsystem emitting a log line, for color coding.
type Component string

const (
	ComponentGateway   Component = "GATEWAY"
	ComponentAuth      Component = "AUTH"
	ComponentStream    Component = "STREAM"
	ComponentPubSub    Component = "PUBSUB"
	ComponentFilter    Component = "FILTER"
	ComponentTransport Component = "TRANSPORT"
	ComponentHeartbeat Component = "HEARTBEAT"
	ComponentStore     Component = "STORE"
)

func componentColor(c Component) string {
	switch c {
	case ComponentGateway:
		return BrightBlue
	case ComponentAuth:
		return Green
	case ComponentStream:
		return BrightCyan
	case ComponentPubSub:
		return Cyan
	case ComponentFilter:
		return Yellow
	case ComponentTransport:
		return Blue
	case ComponentHeartbeat:
		return Gray
	case ComponentStore:
		return BrightYellow
	default:
		return BrightWhite
	}
}

func levelColor(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return Gray
	case zapcore.InfoLevel:
		return BrightWhite
	case zapcore.WarnLevel:
		return BrightYellow
	case zapcore.ErrorLevel:
		return BrightRed
	default:
		return Red
	}
}

// Logger wraps zap.Logger with component-tagged helper methods.
type Logger struct {
	*zap.Logger
	colors bool
}

func coloredEncoder(colors bool) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		s := t.Format("2006-01-02T15:04:05.000Z0700")
		if colors {
			enc.AppendString(Dim + s + Reset)
		} else {
			enc.AppendString(s)
		}
	}
	cfg.EncodeLevel = func(lv zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		s := fmt.Sprintf("%-5s", lv.CapitalString())
		if colors {
			enc.AppendString(levelColor(lv) + Bold + s + Reset)
		} else {
			enc.AppendString(s)
		}
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// New builds a Logger at debug level writing to stdout.
func New(colors bool) *Logger {
	core := zapcore.NewCore(coloredEncoder(colors), zapcore.AddSync(os.Stdout), zapcore.DebugLevel)
	return &Logger{Logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), colors: colors}
}

func (l *Logger) tag(c Component, msg string) string {
	if l.colors {
		return fmt.Sprintf("%s[%s]%s %s", componentColor(c), c, Reset, msg)
	}
	return fmt.Sprintf("[%s] %s", c, msg)
}

func (l *Logger) ComponentInfo(c Component, msg string, fields ...zap.Field) {
	l.Info(l.tag(c, msg), fields...)
}

func (l *Logger) ComponentWarn(c Component, msg string, fields ...zap.Field) {
	l.Warn(l.tag(c, msg), fields...)
}

func (l *Logger) ComponentError(c Component, msg string, fields ...zap.Field) {
	l.Error(l.tag(c, msg), fields...)
}

func (l *Logger) ComponentDebug(c Component, msg string, fields ...zap.Field) {
	l.Debug(l.tag(c, msg), fields...)
}
