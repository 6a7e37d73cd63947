// Package manifest loads build-job manifests describing one device
// compilation: inputs, target architectures, output container, and tool
// overrides.
package manifest

import (
	"errors"
	"fmt"
)

// Manifest is a declarative description of one compilation job.
type Manifest struct {
	// Inputs are the device bitcode/assembly files to compile, in order.
	Inputs []string `yaml:"inputs" json:"inputs"`

	// Architectures are the target identifiers (sm_NN, gfxNNN),
	// repeatable and mixed-family.
	Architectures []string `yaml:"architectures" json:"architectures"`

	// Output is the fat-binary container path.
	Output string `yaml:"output" json:"output"`

	// OptLevel is the host optimization level ("0".."4", "s", "z",
	// "fast"); empty means the host passed none.
	OptLevel string `yaml:"opt_level" json:"opt_level"`

	// DeviceDebug requests device debug info.
	DeviceDebug bool `yaml:"device_debug" json:"device_debug"`

	// SDKPath and GCNPath override installation discovery.
	SDKPath string `yaml:"sdk_path" json:"sdk_path"`
	GCNPath string `yaml:"gcn_path" json:"gcn_path"`

	// AssemblerFlags and PackagerFlags pass through unmodified to the
	// assemble and packaging stages.
	AssemblerFlags []string `yaml:"assembler_flags" json:"assembler_flags"`
	PackagerFlags  []string `yaml:"packager_flags" json:"packager_flags"`

	// LibraryPaths are extra device-library search directories.
	LibraryPaths []string `yaml:"library_paths" json:"library_paths"`
}

// Errors rejecting manifests that cannot drive a compilation.
var (
	ErrNoInputs        = errors.New("manifest declares no inputs")
	ErrNoArchitectures = errors.New("manifest declares no architectures")
)

// ApplyDefaults fills optional fields after a successful load.
func (m *Manifest) ApplyDefaults() {
	if m.Output == "" {
		m.Output = "a.fatbin"
	}
}

// Validate checks the loaded manifest for required fields.
func (m *Manifest) Validate() error {
	if len(m.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(m.Architectures) == 0 {
		return ErrNoArchitectures
	}
	for _, in := range m.Inputs {
		if in == "" {
			return fmt.Errorf("manifest contains an empty input path")
		}
	}
	return nil
}
