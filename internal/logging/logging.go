// Package logging builds the process logger: a console core on stderr
// whose level follows the verbosity flag, plus an optional file core
// that always records the full debug stream.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02T15:04:05.000"

// ConsoleLevel maps the repeated -v count to a console level:
// 0 → warn, 1 → info, 2 and up → debug.
func ConsoleLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zapcore.WarnLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Build assembles the logger. With no file configured only the console
// core is active; otherwise both cores run at independent levels, the
// console following verbosity and the file recording debug. The log
// file is appended to across runs. The caller owns Sync.
func Build(verbosity int, logFile string) (*zap.Logger, error) {
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.Lock(os.Stderr),
		ConsoleLevel(verbosity),
	)
	if logFile == "" {
		return zap.New(console), nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	file := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.Lock(f),
		zapcore.DebugLevel,
	)
	return zap.New(zapcore.NewTee(console, file)), nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}
