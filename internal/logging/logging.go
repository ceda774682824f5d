// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"trafficgen/internal/config"
)

// LevelEnv overrides the configured level when set.
const LevelEnv = "LOGGING_LEVEL"

// Level resolves the effective level: the environment wins over cfg.
func Level(cfg config.LoggingConfig) zapcore.Level {
	name := cfg.Level
	if env := os.Getenv(LevelEnv); env != "" {
		name = env
	}
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewEncoder returns the encoder for cfg.Format.
func NewEncoder(format string) zapcore.Encoder {
	ec := encoderConfig()
	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

// New writes to w at the configured level. Extra cores (log shipping) are
// teed behind the primary one and see the same records.
func New(cfg config.LoggingConfig, w io.Writer, extra ...zapcore.Core) *zap.Logger {
	primary := zapcore.NewCore(NewEncoder(cfg.Format), zapcore.AddSync(w), Level(cfg))
	cores := append([]zapcore.Core{primary}, extra...)
	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}
