package install

import (
	"fmt"
	"path"

	"github.com/3leaps/offloadc/pkg/device"
	"github.com/3leaps/offloadc/pkg/diag"
)

// DeviceLibraryError is returned when no device-support library is mapped
// for a requested architecture. It is fatal for that architecture's device
// compilation.
type DeviceLibraryError struct {
	Arch string
}

func (e *DeviceLibraryError) Error() string {
	return fmt.Sprintf("no device-support library for architecture %s", e.Arch)
}

// IncludeFlags controls include-path injection.
type IncludeFlags struct {
	// NoBuiltinInclude suppresses the wrapper-header include directory.
	NoBuiltinInclude bool
	// NoSDKInclude suppresses SDK header injection entirely.
	NoSDKInclude bool
}

// IncludeArgs returns the host-compiler flags injecting device headers.
// When SDK headers are requested against an invalid installation it
// reports a diagnostic and injects nothing from the SDK.
func (r *Record) IncludeArgs(flags IncludeFlags) []string {
	var args []string
	if !flags.NoBuiltinInclude && r.resourceDir != "" {
		wrappers := path.Join(r.resourceDir, "include", "cuda_wrappers")
		args = append(args, "-internal-isystem", wrappers)
	}

	if flags.NoSDKInclude {
		return args
	}
	if !r.Valid {
		r.reporter.Report(diag.Diagnostic{
			Code:    diag.CodeNoInstallation,
			Message: "no valid SDK installation was found; device headers are unavailable",
		})
		return args
	}

	args = append(args, "-internal-isystem", r.IncludeDir)
	args = append(args, "-include", "__clang_cuda_runtime_wrapper.h")
	return args
}

// TargetArgs returns the per-architecture host-compiler flags that bind
// the device-support library. PTX targets link the bitcode during host
// compilation and pin the PTX ISA level the 7.0-era library requires; GCN
// targets pick the library up in the device link stage instead, so only
// the lookup is performed here.
func (r *Record) TargetArgs(arch device.Arch, noDeviceLib bool) ([]string, error) {
	if noDeviceLib {
		return nil, nil
	}

	file, ok := r.DeviceLibrary(arch.Name)
	if !ok {
		r.reporter.Report(diag.Diagnostic{
			Code:    diag.CodeNoDeviceLibrary,
			Message: "no device-support library for requested architecture",
			Fields:  map[string]string{"arch": arch.Name},
		})
		return nil, &DeviceLibraryError{Arch: arch.Name}
	}

	if arch.Family == device.FamilyGCN {
		return nil, nil
	}

	return []string{
		"-mlink-cuda-bitcode", file,
		"-target-feature", "+ptx42",
	}, nil
}

// CheckVersionSupportsArch emits a version-too-low diagnostic when the
// detected SDK cannot target arch. Unknown architectures and unknown
// versions are ignored, and each architecture is flagged at most once per
// resolver instance even when checked for every translation unit.
func (r *Record) CheckVersionSupportsArch(arch device.Arch) {
	if arch.IsUnknown() || r.Version == device.VersionUnknown || r.flagged[arch.Name] {
		return
	}
	required := device.MinVersionForArch(arch)
	if r.Version >= required {
		return
	}
	r.flagged[arch.Name] = true
	r.reporter.Report(diag.Diagnostic{
		Code:    diag.CodeVersionTooLow,
		Message: "installed SDK is too old for requested architecture",
		Fields: map[string]string{
			"install_path":     r.Root,
			"arch":             arch.Name,
			"detected_version": r.Version.String(),
			"required_version": required.String(),
		},
	})
}
