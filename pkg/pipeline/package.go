package pipeline

import (
	"strings"

	"github.com/3leaps/offloadc/pkg/device"
)

// gcnPlaceholderProfile stands in for GCN inputs in the packaging stage.
// The packaging tool rejects gfx profile names outright, so a known PTX
// profile is written and repaired afterwards by the fixup stage.
const gcnPlaceholderProfile = "sm_37"

// PackInput is one per-architecture artifact entering the packaging stage.
type PackInput struct {
	File string
	Arch device.Arch
	// IR marks intermediate-representation inputs, which are tagged with
	// the virtual (forward-compatible) profile instead of the concrete one.
	IR bool
}

// PackageStages merges every per-architecture artifact into one
// fat-binary container. When any GCN input participates, the container is
// written to a session temporary and a metadata-repair stage rewrites the
// placeholder profiles with the true architecture set.
func (c *Coordinator) PackageStages(inputs []PackInput, output string) []Stage {
	hasGCN := false
	for _, in := range inputs {
		if in.Arch.Family == device.FamilyGCN {
			hasGCN = true
			break
		}
	}

	args := []string{"--cuda"}
	if c.cfg.Host64Bit {
		args = append(args, "-64")
	} else {
		args = append(args, "-32")
	}
	args = append(args, "--create")

	containerOut := output
	if hasGCN {
		containerOut = c.session.TempPath("fb-fixup", "fatbin")
	}
	args = append(args, containerOut)

	var inputFiles []string
	for _, in := range inputs {
		inputFiles = append(inputFiles, in.File)
		if in.Arch.Family == device.FamilyGCN && !in.IR {
			args = append(args, "--no-asm",
				"--image=profile="+gcnPlaceholderProfile+",file="+in.File)
			continue
		}
		profile := in.Arch.Name
		if in.IR {
			profile = device.VirtualArch(in.Arch).Name
		}
		args = append(args, "--image=profile="+profile+",file="+in.File)
	}
	args = append(args, c.cfg.PackagerFlags...)

	exec := c.cfg.PackagerPath
	if exec == "" {
		exec = c.sdkTool("fatbinary")
	}

	stages := []Stage{{
		Name:   "package",
		Exec:   exec,
		Args:   args,
		Inputs: inputFiles,
		Output: containerOut,
		Temp:   hasGCN,
	}}

	if hasGCN {
		var archs []string
		for _, in := range inputs {
			if !in.IR {
				archs = append(archs, in.Arch.Name)
			}
		}
		stages = append(stages, Stage{
			Name: "metadata-repair",
			Exec: c.toolPath("clang-fixup-fatbin"),
			Args: []string{
				"-offload-archs=" + strings.Join(archs, ","),
				containerOut,
				output,
			},
			Inputs: []string{containerOut},
			Output: output,
		})
	}
	return stages
}
