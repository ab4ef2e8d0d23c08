// Package obslog provides the structured logger the CLI
// (cmd/sessiondiff) uses. The core packages never log:
// they are synchronous and side-effect-free, and report everything
// through returned errors instead.
package obslog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger writing leveled, human-readable console
// output with caller info to stderr. debug lowers the minimum level from
// Info to Debug; the output format is the same either way.
func New(debug bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderCfg.TimeKey = ""

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	return zap.New(core, zap.AddCaller()).Sugar()
}

// Nop returns a logger that discards everything, for package tests that
// need to satisfy a *zap.SugaredLogger parameter without asserting on log
// output.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
