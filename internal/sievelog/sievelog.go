// internal/sievelog/sievelog.go
// Package sievelog builds the process logger. Console encoding on
// stderr keeps stdout free for piped output.
package sievelog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns the run logger. verbose lowers the level to debug, which
// includes per-chunk progress lines.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
