// internal/logger/logger.go
package logger

import (
	"errors"
	"os"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a logger that writes human readable lines to stdout and JSON
// lines to a rotated file.
func New(cfg Config) (*zap.Logger, error) {
	encoderConfig := encoderConfig(cfg)
	level := levelFor(cfg)

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level),
	}
	if fc := fileCore(cfg, encoderConfig, level); fc != nil {
		cores = append(cores, fc)
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// NewTUI builds a logger for full-screen terminal programs: nothing goes to
// stdout, console lines go to buf and JSON lines to the rotated file.
func NewTUI(cfg Config, buf *Buffer) (*zap.Logger, error) {
	if buf == nil {
		return nil, errors.New("buffer is required for TUI logger")
	}

	encoderConfig := encoderConfig(cfg)
	encoderConfig.CallerKey = ""
	encoderConfig.StacktraceKey = ""
	level := levelFor(cfg)

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(buf), level),
	}
	if fc := fileCore(cfg, encoderConfig, level); fc != nil {
		cores = append(cores, fc)
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// Sync flushes l, ignoring the errors terminals return for fsync.
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

func encoderConfig(cfg Config) zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	if cfg.Development {
		ec = zap.NewDevelopmentEncoderConfig()
	}
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	ec.EncodeDuration = zapcore.StringDurationEncoder
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	return ec
}

func levelFor(cfg Config) zapcore.Level {
	if cfg.Development {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func fileCore(cfg Config, ec zapcore.EncoderConfig, level zapcore.Level) zapcore.Core {
	if cfg.LogFile == "" {
		return nil
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(ec), zapcore.AddSync(rotator), level)
}
