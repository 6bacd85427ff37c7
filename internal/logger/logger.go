// Package logger wraps zap behind the small leveled interface used across legiurls.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Interface is the logging contract injected into fetchers, resolvers and the canonicalizer.
// Fields are alternating key/value pairs.
type Interface interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	With(fields ...any) Interface
}

// Config selects level and encoding. Output always goes to stderr.
type Config struct {
	Level    string
	Encoding string
}

// Logger implements Interface.
type Logger struct {
	sugar *zap.SugaredLogger
}

var logLevels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// ParseLevel maps a level name to zap's level.
func ParseLevel(level string) (zapcore.Level, error) {
	lvl, ok := logLevels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

// New builds a zap logger writing to stderr.
func New(cfg Config) (Interface, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	switch cfg.Encoding {
	case "json":
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "", "console":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unknown log encoding %q", cfg.Encoding)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return FromZap(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))), nil
}

// FromZap adapts an existing zap logger.
func FromZap(l *zap.Logger) Interface {
	return &Logger{sugar: l.Sugar()}
}

// NewNop returns a logger that discards everything.
func NewNop() Interface {
	return FromZap(zap.NewNop())
}

func (l *Logger) Debug(msg string, fields ...any) { l.sugar.Debugw(msg, fields...) }
func (l *Logger) Info(msg string, fields ...any)  { l.sugar.Infow(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...any)  { l.sugar.Warnw(msg, fields...) }
func (l *Logger) Error(msg string, fields ...any) { l.sugar.Errorw(msg, fields...) }

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...any) Interface {
	return &Logger{sugar: l.sugar.With(fields...)}
}
