package cli

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger logs human-readable lines to w. Debug messages (every command
// line run, every state transition) are only shown with --verbose.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}
