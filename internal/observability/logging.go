// Package observability owns logger construction for the CLI and the
// server. Two loggers exist on purpose: CLILogger writes human-oriented
// console output to stderr (stdout is reserved for data records), while
// Logger is the structured JSON logger used by long-running components.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the structured logger for server and batch components.
	Logger = zap.NewNop()

	// CLILogger writes console-encoded logs to stderr for interactive use.
	CLILogger = zap.NewNop()
)

// Config selects log level and encoding.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Format is "json" or "console".
	Format string `mapstructure:"format"`
}

// Init builds the package loggers from config. Call once at startup;
// callers that skip Init get no-op loggers.
func Init(cfg Config) error {
	level, err := zapcore.ParseLevel(defaultString(cfg.Level, "info"))
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch defaultString(cfg.Format, "json") {
	case "console":
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	Logger = zap.New(core)

	cliEncoderCfg := zap.NewDevelopmentEncoderConfig()
	cliCore := zapcore.NewCore(zapcore.NewConsoleEncoder(cliEncoderCfg), zapcore.Lock(os.Stderr), level)
	CLILogger = zap.New(cliCore)

	return nil
}

// Sync flushes buffered log entries. Errors are ignored; stderr sync
// failures at exit are not actionable.
func Sync() {
	_ = Logger.Sync()
	_ = CLILogger.Sync()
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
