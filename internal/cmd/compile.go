package cmd

import (
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/offloadc/internal/config"
	errwrap "github.com/3leaps/offloadc/internal/errors"
	"github.com/3leaps/offloadc/internal/observability"
	"github.com/3leaps/offloadc/pkg/device"
	"github.com/3leaps/offloadc/pkg/diag"
	"github.com/3leaps/offloadc/pkg/hostargs"
	"github.com/3leaps/offloadc/pkg/install"
	"github.com/3leaps/offloadc/pkg/manifest"
	"github.com/3leaps/offloadc/pkg/pipeline"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile device code for one or more architectures",
	Long: `Compile device inputs for every requested architecture and package
the per-architecture artifacts into one fat-binary container.

Example:
  offloadc compile --input kernel.bc --arch gfx803 --output app.fatbin
  offloadc compile --input kernel.s --arch sm_35 --arch sm_60 -o app.fatbin
  offloadc compile --job build.yaml`,
	RunE: runCompile,
}

var (
	compileJobPath        string
	compileInputs         []string
	compileArchs          []string
	compileOutput         string
	compileSDKPath        string
	compileGCNPath        string
	compileAssemblerPath  string
	compilePackagerPath   string
	compileOptLevel       string
	compileDeviceDebug    bool
	compileNoBuiltinInc   bool
	compileNoSDKInclude   bool
	compileNoDeviceLib    bool
	compileNoVersionCheck bool
	compileEmbedIR        bool
	compileDryRun         bool
	compileLibraryPaths   []string
	compileXAssembler     []string
	compileXPackager      []string
	compileHostArgs       []string
)

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileJobPath, "job", "j", "", "Path to job manifest (YAML or JSON)")
	compileCmd.Flags().StringSliceVarP(&compileInputs, "input", "i", nil, "Device input file (repeatable)")
	compileCmd.Flags().StringSliceVarP(&compileArchs, "arch", "a", nil, "Target architecture, e.g. sm_35 or gfx803 (repeatable)")
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "Fat-binary output path")
	compileCmd.Flags().StringVar(&compileSDKPath, "sdk-path", "", "Explicit SDK installation root")
	compileCmd.Flags().StringVar(&compileGCNPath, "gcn-path", "", "Explicit GCN device-library root")
	compileCmd.Flags().StringVar(&compileAssemblerPath, "assembler-path", "", "Override the device assembler executable")
	compileCmd.Flags().StringVar(&compilePackagerPath, "packager-path", "", "Override the packaging executable")
	compileCmd.Flags().StringVar(&compileOptLevel, "opt-level", "", "Host optimization level (0-4, s, z, fast)")
	compileCmd.Flags().BoolVar(&compileDeviceDebug, "device-debug", false, "Emit device debug info (overrides optimization)")
	compileCmd.Flags().BoolVar(&compileNoBuiltinInc, "no-builtin-include", false, "Suppress wrapper-header include injection")
	compileCmd.Flags().BoolVar(&compileNoSDKInclude, "no-sdk-include", false, "Suppress SDK header injection")
	compileCmd.Flags().BoolVar(&compileNoDeviceLib, "no-device-lib", false, "Suppress device-support library injection")
	compileCmd.Flags().BoolVar(&compileNoVersionCheck, "no-version-check", false, "Disable the SDK version-compatibility check")
	compileCmd.Flags().BoolVar(&compileEmbedIR, "embed-ir", false, "Also embed intermediate-representation inputs in the container")
	compileCmd.Flags().BoolVar(&compileDryRun, "dry-run", false, "Print the stage plan without executing")
	compileCmd.Flags().StringSliceVarP(&compileLibraryPaths, "library-path", "L", nil, "Extra device-library search directory (repeatable)")
	compileCmd.Flags().StringSliceVar(&compileXAssembler, "xassembler", nil, "Pass flag through to the assemble stage (repeatable)")
	compileCmd.Flags().StringSliceVar(&compileXPackager, "xpackager", nil, "Pass flag through to the packaging stage (repeatable)")
	compileCmd.Flags().StringSliceVar(&compileHostArgs, "host-arg", nil, "Host compiler argument to translate per architecture, including -Xarch_<arch> scoping (repeatable)")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootConfigFile)
	if err != nil {
		return errwrap.NewExitError(errwrap.ExitInvalidArgument, "invalid configuration", err)
	}

	job, err := buildJob(cfg)
	if err != nil {
		return err
	}

	archs := make([]device.Arch, 0, len(job.Architectures))
	wantGCN := false
	for _, name := range job.Architectures {
		arch := device.ParseArch(name)
		if arch.IsUnknown() {
			return errwrap.NewExitError(errwrap.ExitInvalidArgument,
				"unknown architecture", fmt.Errorf("unrecognized target %q", name))
		}
		if arch.Family == device.FamilyGCN {
			wantGCN = true
		}
		archs = append(archs, arch)
	}

	fs := afero.NewOsFs()
	reporter := diag.NewZapReporter(observability.CLILogger)
	inst := install.Resolve(install.Options{
		Fs:              fs,
		ExplicitPath:    job.SDKPath,
		HostWindows:     runtime.GOOS == "windows",
		Host64Bit:       bits.UintSize == 64,
		ResourceDir:     cfg.ResourceDir,
		WantGCN:         wantGCN,
		GCNPath:         job.GCNPath,
		GCNRootOverride: cfg.GCNRoot,
	}, reporter)
	observability.CLILogger.Debug(inst.Describe())

	hostFlags := inst.IncludeArgs(install.IncludeFlags{
		NoBuiltinInclude: compileNoBuiltinInc,
		NoSDKInclude:     compileNoSDKInclude,
	})
	observability.CLILogger.Debug("host include flags", zap.Strings("flags", hostFlags))

	tmpDir, err := os.MkdirTemp("", "offloadc-")
	if err != nil {
		return errwrap.NewExitError(errwrap.ExitCompilationFailed, "create session directory", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	session := pipeline.NewSession(fs, tmpDir)
	defer session.Cleanup()

	gcnRoot := job.GCNPath
	if gcnRoot == "" && cfg.GCNRoot != "" {
		gcnRoot = cfg.GCNRoot
	}
	if gcnRoot == "" {
		gcnRoot = "/opt/rocm/libamdgcn"
	}

	baseCfg := pipeline.Config{
		ToolDir:        cfg.ToolDir,
		AssemblerPath:  firstNonEmpty(compileAssemblerPath, cfg.AssemblerPath),
		PackagerPath:   firstNonEmpty(compilePackagerPath, cfg.PackagerPath),
		GCNRoot:        gcnRoot,
		LibraryPaths:   job.LibraryPaths,
		LinkFlags:      cfg.LinkFlags,
		OptFlags:       cfg.OptFlags,
		LowerFlags:     cfg.LowerFlags,
		AssemblerFlags: job.AssemblerFlags,
		PackagerFlags:  job.PackagerFlags,
		OptLevel:       job.OptLevel,
		DeviceDebug:    job.DeviceDebug,
		Verbose:        rootVerbose,
		NoVersionCheck: compileNoVersionCheck,
		Host64Bit:      bits.UintSize == 64,
	}

	plan := &pipeline.Job{}
	var packInputs []pipeline.PackInput

	for _, arch := range archs {
		targetFlags, err := inst.TargetArgs(arch, compileNoDeviceLib)
		if err != nil {
			return errwrap.NewExitError(errwrap.ExitCompilationFailed,
				"device compilation failed for "+arch.Name, err)
		}
		observability.CLILogger.Debug("host target flags",
			zap.String("arch", arch.Name), zap.Strings("flags", targetFlags))

		// Per-architecture coordinator: architecture-scoped host args
		// resolve differently under each binding.
		archCfg := baseCfg
		if len(compileHostArgs) > 0 {
			translated := hostargs.Translate(compileHostArgs, arch.Name, reporter)
			archCfg.AssemblerFlags = append(append([]string{}, archCfg.AssemblerFlags...), translated...)
		}
		coord := pipeline.NewCoordinator(archCfg, inst, session, fs)

		switch arch.Family {
		case device.FamilyGCN:
			optimized := session.TempPath("opt-"+arch.Name, "bc")
			stages, err := coord.BackendStages(arch, job.Inputs, optimized)
			if err != nil {
				return errwrap.NewExitError(errwrap.ExitCompilationFailed,
					"device compilation failed for "+arch.Name, err)
			}
			plan.Append(stages...)

			codeObject := session.TempPath("codeobj-"+arch.Name, "so")
			stages, err = coord.AssembleStages(arch, []string{optimized}, codeObject)
			if err != nil {
				return errwrap.NewExitError(errwrap.ExitCompilationFailed,
					"device compilation failed for "+arch.Name, err)
			}
			plan.Append(stages...)
			packInputs = append(packInputs, pipeline.PackInput{File: codeObject, Arch: arch})

		case device.FamilyPTX:
			object := session.TempPath("cubin-"+arch.Name, "cubin")
			stages, err := coord.AssembleStages(arch, job.Inputs, object)
			if err != nil {
				return errwrap.NewExitError(errwrap.ExitCompilationFailed,
					"device compilation failed for "+arch.Name, err)
			}
			plan.Append(stages...)
			packInputs = append(packInputs, pipeline.PackInput{File: object, Arch: arch})

			if compileEmbedIR {
				for _, in := range job.Inputs {
					if isIRInput(in) {
						packInputs = append(packInputs, pipeline.PackInput{File: in, Arch: arch, IR: true})
					}
				}
			}
		}
	}

	packager := pipeline.NewCoordinator(baseCfg, inst, session, fs)
	plan.Append(packager.PackageStages(packInputs, job.Output)...)

	if compileDryRun {
		printPlan(plan)
		return nil
	}

	exec := pipeline.NewExecutor(observability.CLILogger, rootVerbose)
	if err := exec.Run(cmd.Context(), plan); err != nil {
		return errwrap.NewExitError(errwrap.ExitCompilationFailed, "compilation failed", err)
	}
	observability.CLILogger.Info("wrote fat binary",
		zap.String("output", job.Output), zap.Int("architectures", len(archs)))
	return nil
}

// buildJob resolves the effective job description: manifest file when
// given, with command-line flags taking precedence over manifest fields.
func buildJob(cfg *config.Config) (*manifest.Manifest, error) {
	job := &manifest.Manifest{}
	if compileJobPath != "" {
		m, err := manifest.Load(compileJobPath)
		if err != nil {
			return nil, errwrap.NewExitError(errwrap.ExitInvalidArgument, "invalid job manifest", err)
		}
		job = m
	}

	if len(compileInputs) > 0 {
		job.Inputs = compileInputs
	}
	if len(compileArchs) > 0 {
		job.Architectures = compileArchs
	}
	if compileOutput != "" {
		job.Output = compileOutput
	}
	if compileOptLevel != "" {
		job.OptLevel = compileOptLevel
	}
	if compileDeviceDebug {
		job.DeviceDebug = true
	}
	if compileSDKPath != "" {
		job.SDKPath = compileSDKPath
	}
	if job.SDKPath == "" {
		job.SDKPath = cfg.SDKPath
	}
	if compileGCNPath != "" {
		job.GCNPath = compileGCNPath
	}
	if len(compileLibraryPaths) > 0 {
		job.LibraryPaths = append(compileLibraryPaths, job.LibraryPaths...)
	}
	if len(compileXAssembler) > 0 {
		job.AssemblerFlags = append(job.AssemblerFlags, compileXAssembler...)
	}
	if len(compileXPackager) > 0 {
		job.PackagerFlags = append(job.PackagerFlags, compileXPackager...)
	}

	job.ApplyDefaults()
	if err := job.Validate(); err != nil {
		return nil, errwrap.NewExitError(errwrap.ExitInvalidArgument, "invalid compile job", err)
	}
	return job, nil
}

func printPlan(plan *pipeline.Job) {
	fmt.Println("=== Compilation Plan (dry-run) ===")
	for i, stage := range plan.Stages() {
		fmt.Printf("%2d. [%s] %s %s\n", i+1, stage.Name, stage.Exec, strings.Join(stage.Args, " "))
	}
}

func isIRInput(path string) bool {
	switch filepath.Ext(path) {
	case ".s", ".ptx":
		return true
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
