package logutil

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GetDefaultZapLoggerConfig returns a new default zap logger configuration.
func GetDefaultZapLoggerConfig() zap.Config {
	return zap.Config{
		Level: zap.NewAtomicLevelAt(ConvertToZapLevel(DefaultLogLevel)),

		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},

		Encoding: "console",

		// copied from "zap.NewProductionEncoderConfig" with some updates
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},

		// Use "/dev/null" to discard all
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// AddOutputPaths adds output paths to the existing logger configuration.
// It deduplicates the paths and sorts them.
func AddOutputPaths(lcfg zap.Config, outputPaths, errorOutputPaths []string) zap.Config {
	op := make(map[string]struct{})
	for _, v := range lcfg.OutputPaths {
		op[v] = struct{}{}
	}
	for _, v := range outputPaths {
		op[v] = struct{}{}
	}
	lcfg.OutputPaths = []string{}
	for k := range op {
		lcfg.OutputPaths = append(lcfg.OutputPaths, k)
	}
	sort.Strings(lcfg.OutputPaths)

	ep := make(map[string]struct{})
	for _, v := range lcfg.ErrorOutputPaths {
		ep[v] = struct{}{}
	}
	for _, v := range errorOutputPaths {
		ep[v] = struct{}{}
	}
	lcfg.ErrorOutputPaths = []string{}
	for k := range ep {
		lcfg.ErrorOutputPaths = append(lcfg.ErrorOutputPaths, k)
	}
	sort.Strings(lcfg.ErrorOutputPaths)

	return lcfg
}
