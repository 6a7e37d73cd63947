package cmd

import (
	"fmt"
	"math/bits"
	"runtime"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/3leaps/offloadc/internal/config"
	errwrap "github.com/3leaps/offloadc/internal/errors"
	"github.com/3leaps/offloadc/internal/observability"
	"github.com/3leaps/offloadc/pkg/device"
	"github.com/3leaps/offloadc/pkg/diag"
	"github.com/3leaps/offloadc/pkg/install"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Detect the SDK installation and device-library coverage",
	Long: `Probe the well-known SDK install roots and report what was found:
install path, detected version, and the device-support library resolved
for each requested architecture.

Example:
  offloadc probe
  offloadc probe --arch sm_35 --arch gfx803`,
	RunE: runProbe,
}

var (
	probeArchs   []string
	probeSDKPath string
	probeGCNPath string
)

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringSliceVarP(&probeArchs, "arch", "a", nil, "Architecture to look up (repeatable)")
	probeCmd.Flags().StringVar(&probeSDKPath, "sdk-path", "", "Explicit SDK installation root")
	probeCmd.Flags().StringVar(&probeGCNPath, "gcn-path", "", "Explicit GCN device-library root")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootConfigFile)
	if err != nil {
		return errwrap.NewExitError(errwrap.ExitInvalidArgument, "invalid configuration", err)
	}

	wantGCN := false
	for _, name := range probeArchs {
		if device.ParseArch(name).Family == device.FamilyGCN {
			wantGCN = true
		}
	}

	reporter := diag.NewZapReporter(observability.CLILogger)
	inst := install.Resolve(install.Options{
		Fs:              afero.NewOsFs(),
		ExplicitPath:    firstNonEmpty(probeSDKPath, cfg.SDKPath),
		HostWindows:     runtime.GOOS == "windows",
		Host64Bit:       bits.UintSize == 64,
		WantGCN:         wantGCN,
		GCNPath:         probeGCNPath,
		GCNRootOverride: cfg.GCNRoot,
	}, reporter)

	fmt.Println(inst.Describe())
	for _, name := range probeArchs {
		if file, ok := inst.DeviceLibrary(name); ok {
			fmt.Printf("  %-12s %s\n", name, file)
		} else {
			fmt.Printf("  %-12s (no device library)\n", name)
		}
	}
	if inst.Valid {
		return nil
	}
	return errwrap.NewExitError(errwrap.ExitNoInstallation, "no SDK installation found", nil)
}
