package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

type Field struct {
	Key   string
	Value any
}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Enabled(level Level) bool
	Sync() error
}

type Options struct {
	Level       Level
	Development bool
}

type zapLogger struct {
	base  *zap.Logger
	level Level
}

// New writes JSON lines to out, or console-formatted lines when
// opts.Development is set.
func New(out io.Writer, opts Options) Logger {
	if out == nil {
		out = os.Stdout
	}
	encoder := zapcore.NewJSONEncoder(encoderConfig(false))
	if opts.Development {
		encoder = zapcore.NewConsoleEncoder(encoderConfig(true))
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), zapLevel(opts.Level))
	return &zapLogger{base: zap.New(core), level: opts.Level}
}

// NewFile appends to path, creating it with owner-only permissions.
func NewFile(path string, opts Options) (Logger, io.Closer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return New(file, opts), file, nil
}

func Nop() Logger {
	return &zapLogger{base: zap.NewNop(), level: Error + 1}
}

func (l *zapLogger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	return level >= l.level
}

func (l *zapLogger) With(fields ...Field) Logger {
	if l == nil {
		return Nop()
	}
	return &zapLogger{base: l.base.With(zapFields(fields)...), level: l.level}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.log(Debug, msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.log(Info, msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.log(Warn, msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.log(Error, msg, fields...) }

func (l *zapLogger) Sync() error {
	if l == nil || l.base == nil {
		return nil
	}
	return l.base.Sync()
}

func (l *zapLogger) log(level Level, msg string, fields ...Field) {
	if l == nil || l.base == nil || level < l.level {
		return
	}
	zf := zapFields(fields)
	switch level {
	case Debug:
		l.base.Debug(msg, zf...)
	case Warn:
		l.base.Warn(msg, zf...)
	case Error:
		l.base.Error(msg, zf...)
	default:
		l.base.Info(msg, zf...)
	}
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		switch v := field.Value.(type) {
		case error:
			if v == nil {
				out = append(out, zap.Skip())
				continue
			}
			out = append(out, zap.NamedError(field.Key, v))
		case time.Duration:
			out = append(out, zap.Duration(field.Key, v))
		default:
			out = append(out, zap.Any(field.Key, v))
		}
	}
	return out
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if development {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return cfg
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case Debug:
		return zapcore.DebugLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func NewRequestID() string {
	return uuid.NewString()
}

func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}
