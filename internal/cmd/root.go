package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/3leaps/offloadc/internal/errors"
	"github.com/3leaps/offloadc/internal/observability"
)

var (
	rootVerbose    bool
	rootConfigFile string
)

var rootCmd = &cobra.Command{
	Use:   "offloadc",
	Short: "Device compilation driver for heterogeneous offload targets",
	Long: `offloadc coordinates device compilation for GPU offload targets.

It detects the installed compute SDK, resolves per-architecture
device-support libraries, and drives the external tool pipeline that
produces a single multi-architecture fat binary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.Init(rootVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Verbose output (echo tool invocations, add symbol dumps)")
	rootCmd.PersistentFlags().StringVar(&rootConfigFile, "config", "", "Path to config file")
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *errwrap.ExitError
		if errors.As(err, &exitErr) {
			observability.CLILogger.Error(exitErr.Message, zap.Error(exitErr.Err))
			return exitErr.Code
		}
		observability.CLILogger.Error("command failed", zap.Error(err))
		return errwrap.ExitCompilationFailed
	}
	return 0
}
