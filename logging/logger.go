// Package logging builds the application's structured logger
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/amirphl/drift-bottle/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a zap logger from the logging configuration.
// File output is rotated with lumberjack.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(levelOrDefault(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoder := buildEncoder(cfg.Format)

	var syncers []zapcore.WriteSyncer
	switch cfg.Output {
	case "", "stdout":
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	case "file":
		ws, err := fileWriteSyncer(cfg)
		if err != nil {
			return nil, err
		}
		syncers = append(syncers, ws)
	case "both":
		ws, err := fileWriteSyncer(cfg)
		if err != nil {
			return nil, err
		}
		syncers = append(syncers, zapcore.AddSync(os.Stdout), ws)
	default:
		return nil, fmt.Errorf("unsupported log output: %s", cfg.Output)
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(syncers...), level)

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(core, opts...), nil
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}
	return level
}

func buildEncoder(format string) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	if format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewJSONEncoder(encCfg)
}

func fileWriteSyncer(cfg config.LoggingConfig) (zapcore.WriteSyncer, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("file path is required for file output")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}), nil
}
