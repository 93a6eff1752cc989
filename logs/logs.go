package logs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cube2222/remotescan/config"
)

// NewLogger builds a logger writing to the configured file, rotated by size and age.
// Without a configured file it logs to ~/.remotescan/logs.txt.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't parse log level")
	}

	encoder, err := newEncoder(cfg.Format)
	if err != nil {
		return nil, err
	}

	filename := cfg.Filename
	if filename == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		filename = filepath.Join(dir, "logs.txt")
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, errors.Wrap(err, "couldn't create log directory")
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxDays,
		MaxBackups: cfg.MaxBackups,
	})

	return zap.New(zapcore.NewCore(encoder, sink, level), zap.AddCaller()), nil
}

// NewConsoleLogger logs to stderr, used by commands which aren't long-running.
func NewConsoleLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't parse log level")
	}
	encoder, err := newEncoder(cfg.Format)
	if err != nil {
		return nil, err
	}
	return zap.New(zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)), nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch format {
	case "json":
		return zapcore.NewJSONEncoder(encoderConfig), nil
	case "console", "":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig), nil
	default:
		return nil, errors.Errorf("unsupported log format: %s", format)
	}
}
