package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"candlefuse/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a zap.Logger configured based on the given options.
func New(opts config.LogConfig) (*zap.Logger, error) {
	// Parse log level
	lvl := zapcore.InfoLevel
	if opts.Level != "" {
		if err := lvl.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	// Determine console encoding
	encoding := "json"
	if opts.Environment == "dev" || opts.Format == "console" {
		encoding = "console"
	}

	var cores []zapcore.Core

	// Console (stdout) output
	cores = append(cores, zapcore.NewCore(
		consoleEncoder(encoding),
		zapcore.Lock(os.Stdout),
		lvl,
	))

	// Optional file output with rotation via lumberjack, always JSON
	if opts.OutputFile != "" {
		dir := filepath.Dir(opts.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.OutputFile,
			MaxSize:    10,   // max file size (MB) before rotation
			MaxBackups: 5,    // max number of old log files to keep
			MaxAge:     7,    // max age (days) to retain a log file
			Compress:   true, // compress rotated files
		})

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			fileWriter,
			lvl,
		))
	}

	core := zapcore.NewTee(cores...)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger.With(zap.String("app", "candlefuse")), nil
}

// consoleEncoder returns the stdout encoder for the given format.
func consoleEncoder(format string) zapcore.Encoder {
	if format == "console" {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
}
