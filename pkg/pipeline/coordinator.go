package pipeline

import (
	"fmt"
	"path"

	"github.com/spf13/afero"

	"github.com/3leaps/offloadc/pkg/device"
	"github.com/3leaps/offloadc/pkg/install"
)

// gcnSupportLibraries is the fixed ordered list of device-support bitcode
// modules merged into every GCN device link. Order matters to the merge
// tool and matches the vendor's runtime layering.
var gcnSupportLibraries = []string{
	"libcuda2gcn.bc",
	"opencl.amdgcn.bc",
	"ockl.amdgcn.bc",
	"irif.amdgcn.bc",
	"ocml.amdgcn.bc",
	"oclc_finite_only_off.amdgcn.bc",
	"oclc_daz_opt_off.amdgcn.bc",
	"oclc_correctly_rounded_sqrt_on.amdgcn.bc",
	"oclc_unsafe_math_off.amdgcn.bc",
	"hc.amdgcn.bc",
	"oclc_isa_version.amdgcn.bc",
}

// Coordinator turns architecture targets into ordered tool invocations.
// It holds no mutable state of its own; per-compilation state lives in the
// Session and in the installation record's version-check cache.
type Coordinator struct {
	cfg     Config
	inst    *install.Record
	session *Session
	fs      afero.Fs
}

func NewCoordinator(cfg Config, inst *install.Record, session *Session, fs afero.Fs) *Coordinator {
	return &Coordinator{cfg: cfg, inst: inst, session: session, fs: fs}
}

func (c *Coordinator) toolPath(name string) string {
	if c.cfg.ToolDir == "" {
		return name
	}
	return path.Join(c.cfg.ToolDir, name)
}

// librarySearchPaths orders the bitcode search directories: explicit -L
// paths first, then the per-architecture subtree of the alternate root.
func (c *Coordinator) librarySearchPaths(arch device.Arch) []string {
	paths := append([]string{}, c.cfg.LibraryPaths...)
	if c.cfg.GCNRoot != "" {
		paths = append(paths, path.Join(c.cfg.GCNRoot, arch.Name, "lib"))
	}
	return paths
}

func (c *Coordinator) findBitcodeLibrary(name string, searchPaths []string) (string, error) {
	for _, dir := range searchPaths {
		p := path.Join(dir, name)
		if ok, _ := afero.Exists(c.fs, p); ok {
			return p, nil
		}
	}
	return "", &install.DeviceLibraryError{Arch: name}
}

// BackendStages builds the GCN bitcode merge and optimize stages. The
// merge output is a session temporary consumed by the optimize stage (and
// by the verbose symbol dump).
func (c *Coordinator) BackendStages(arch device.Arch, inputs []string, output string) ([]Stage, error) {
	if arch.Family != device.FamilyGCN {
		return nil, fmt.Errorf("backend stage is only defined for gcn targets, got %s", arch.Name)
	}

	searchPaths := c.librarySearchPaths(arch)
	mergeInputs := append([]string{}, inputs...)
	for _, lib := range gcnSupportLibraries {
		p, err := c.findBitcodeLibrary(lib, searchPaths)
		if err != nil {
			return nil, fmt.Errorf("resolve support library %s for %s: %w", lib, arch.Name, err)
		}
		mergeInputs = append(mergeInputs, p)
	}

	merged := c.session.TempPath("opt-input", "bc")
	mergeArgs := append([]string{}, mergeInputs...)
	mergeArgs = append(mergeArgs, c.cfg.LinkFlags...)
	mergeArgs = append(mergeArgs, "-suppress-warnings", "-o", merged)

	stages := []Stage{{
		Name:   "merge",
		Exec:   c.toolPath("llvm-link"),
		Args:   mergeArgs,
		Inputs: mergeInputs,
		Output: merged,
		Temp:   true,
	}}

	optFlags := c.cfg.OptFlags
	if len(optFlags) == 0 {
		optFlags = []string{"-O2"}
	}
	optArgs := []string{merged}
	optArgs = append(optArgs, optFlags...)
	optArgs = append(optArgs, "-S", "-mcpu="+arch.Name,
		"-infer-address-spaces", "-dce", "-globaldce", "-o", output)

	stages = append(stages, Stage{
		Name:   "optimize",
		Exec:   c.toolPath("opt"),
		Args:   optArgs,
		Inputs: []string{merged},
		Output: output,
	})

	if c.cfg.Verbose {
		stages = append(stages, Stage{
			Name:   "symbol-dump",
			Exec:   c.toolPath("llvm-nm"),
			Args:   []string{merged, "-debug-syms"},
			Inputs: []string{merged},
		})
	}
	return stages, nil
}

// AssembleStages lowers one architecture's device code to its final
// per-architecture artifact: a native object for PTX targets via the
// device assembler, a loadable shared code object for GCN targets via a
// codegen + link pair.
func (c *Coordinator) AssembleStages(arch device.Arch, inputs []string, output string) ([]Stage, error) {
	switch arch.Family {
	case device.FamilyGCN:
		return c.lowerStages(arch, inputs, output), nil
	case device.FamilyPTX:
		return c.assemblePTX(arch, inputs, output), nil
	default:
		return nil, fmt.Errorf("cannot assemble for unknown architecture %q", arch.Name)
	}
}

func (c *Coordinator) lowerStages(arch device.Arch, inputs []string, output string) []Stage {
	lowered := c.session.TempPath("lc-output", "o")

	lowerArgs := append([]string{}, inputs...)
	lowerArgs = append(lowerArgs, "-mtriple=amdgcn--cuda", "-filetype=obj")
	lowerArgs = append(lowerArgs, c.cfg.LowerFlags...)
	lowerArgs = append(lowerArgs, "-mcpu="+arch.Name, "-o", lowered)

	return []Stage{
		{
			Name:   "lower",
			Exec:   c.toolPath("llc"),
			Args:   lowerArgs,
			Inputs: inputs,
			Output: lowered,
			Temp:   true,
		},
		{
			Name:   "link",
			Exec:   c.toolPath("lld"),
			Args:   []string{"-flavor", "gnu", "--no-undefined", "-shared", "-o", output, lowered},
			Inputs: []string{lowered},
			Output: output,
		},
	}
}

func (c *Coordinator) assemblePTX(arch device.Arch, inputs []string, output string) []Stage {
	if !c.cfg.NoVersionCheck {
		c.inst.CheckVersionSupportsArch(arch)
	}

	var args []string
	if c.cfg.Host64Bit {
		args = append(args, "-m64")
	} else {
		args = append(args, "-m32")
	}

	if c.cfg.DeviceDebug {
		// The assembler rejects -g alongside optimization, so debug mode
		// discards the host optimization level entirely.
		args = append(args, "-g", "--dont-merge-basicblocks", "--return-at-end")
	} else {
		args = append(args, "-O"+deviceOptLevel(c.cfg.OptLevel))
	}

	args = append(args, "--gpu-name", arch.Name, "--output-file", output)
	args = append(args, inputs...)
	args = append(args, c.cfg.AssemblerFlags...)

	exec := c.cfg.AssemblerPath
	if exec == "" {
		exec = c.sdkTool("ptxas")
	}

	return []Stage{{
		Name:   "assemble",
		Exec:   exec,
		Args:   args,
		Inputs: inputs,
		Output: output,
	}}
}

// sdkTool resolves a tool that ships with the SDK, preferring the
// detected installation's bin directory.
func (c *Coordinator) sdkTool(name string) string {
	if c.inst != nil && c.inst.Valid {
		return path.Join(c.inst.BinDir, name)
	}
	return name
}

// deviceOptLevel remaps the host -O flag to the device assembler's scale.
// The assembler defaults to aggressive optimization, so an absent host
// flag maps to 0 rather than the assembler default.
func deviceOptLevel(host string) string {
	switch host {
	case "":
		return "0"
	case "0":
		return "0"
	case "1":
		return "1"
	case "2":
		return "2"
	case "3":
		return "3"
	case "4", "fast":
		return "3"
	case "s", "z":
		return "2"
	default:
		return "2"
	}
}
