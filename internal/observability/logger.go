// Package observability owns the process-wide CLI logger.
package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the logger used by commands.
//
// It is a no-op logger until InitCLILogger is called so packages and tests
// can log unconditionally.
var CLILogger = zap.NewNop()

// InitCLILogger configures CLILogger for the named binary.
//
// Output goes to stderr so stdout stays reserved for status output and JSONL
// records. verbose forces debug level.
func InitCLILogger(name string, verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	CLILogger = newLogger(name, level, "console")
}

// InitCLILoggerWithConfig configures CLILogger from the logging config block.
//
// Unknown levels fall back to info; format is "console" or "json".
func InitCLILoggerWithConfig(name, level, format string, verbose bool) {
	lvl := ParseLevel(level)
	if verbose {
		lvl = zapcore.DebugLevel
	}
	CLILogger = newLogger(name, lvl, format)
}

// ParseLevel maps a config level string to a zap level.
func ParseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func newLogger(name string, level zapcore.Level, format string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(format, "json") {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	return zap.New(core).Named(name)
}
