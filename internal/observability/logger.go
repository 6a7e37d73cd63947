// Package observability owns logger construction for the CLI.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the shared command-line logger. It is a no-op until Init
// runs so package init order never matters.
var CLILogger = zap.NewNop()

// Init builds the CLI logger. Verbose mode lowers the level to Debug.
func Init(verbose bool) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return
	}
	CLILogger = logger
}
