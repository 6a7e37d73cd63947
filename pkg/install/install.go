// Package install locates and validates the device-compute SDK and the
// alternate GCN device-library tree, and exposes the per-architecture
// device-support library map built during resolution.
package install

import (
	"fmt"
	"path"

	"github.com/spf13/afero"

	"github.com/3leaps/offloadc/pkg/device"
	"github.com/3leaps/offloadc/pkg/diag"
)

// sdkVersions is the set of versioned well-known install roots, newest
// first so a newer release wins over an older one at the same priority.
var sdkVersions = []string{"8.0", "7.5", "7.0"}

// Options configures resolution. All filesystem access goes through Fs so
// tests can run against an in-memory tree.
type Options struct {
	Fs afero.Fs

	// SysRoot is prepended to every generated candidate path.
	SysRoot string

	// ExplicitPath, when non-empty, is the sole SDK candidate.
	ExplicitPath string

	// HostWindows selects the versioned "Program Files" candidate set.
	HostWindows bool

	// Host64Bit prefers the lib64 native-library directory.
	Host64Bit bool

	// ResourceDir is the host compiler's resource directory, used for
	// wrapper-header include injection.
	ResourceDir string

	// WantGCN enables the alternate-family resolver; it is set when at
	// least one requested target belongs to the GCN family.
	WantGCN bool

	// GCNPath is the explicit alternate-family root override.
	GCNPath string

	// GCNRootOverride is the configured (environment-sourced) alternate
	// root, consulted when GCNPath is empty.
	GCNRootOverride string
}

// Record describes one resolved SDK installation. It is immutable after
// Resolve apart from the version-compatibility cache, which only the gate
// mutates.
type Record struct {
	Root         string
	BinDir       string
	IncludeDir   string
	LibDeviceDir string
	LibDir       string
	Version      device.Version

	// Valid is true only when a candidate with all required
	// subdirectories was found. Consumers needing headers or libraries
	// must check it and surface a diagnostic at the point of use.
	Valid bool

	resourceDir string
	libDevice   map[string]string
	flagged     map[string]bool
	reporter    diag.Reporter
}

// Resolve probes the candidate install roots in priority order and returns
// the record for the first structurally valid one. Failing to find any
// candidate is not an error: the record comes back with Valid=false and
// downstream consumers report it when the SDK is actually needed.
func Resolve(opts Options, reporter diag.Reporter) *Record {
	rec := &Record{
		resourceDir: opts.ResourceDir,
		libDevice:   map[string]string{},
		flagged:     map[string]bool{},
		reporter:    reporter,
	}

	for _, root := range candidatePaths(opts) {
		if root == "" {
			continue
		}
		fs := opts.Fs
		exists, _ := afero.Exists(fs, root)
		if !exists {
			continue
		}

		binDir := path.Join(root, "bin")
		includeDir := path.Join(root, "include")
		libDeviceDir := path.Join(root, "nvvm", "libdevice")
		if !allExist(fs, includeDir, binDir, libDeviceDir) {
			continue
		}

		// Both lib and lib64 can be present; the host word size picks.
		// Neither existing disqualifies the candidate.
		libDir := ""
		if opts.Host64Bit {
			if ok, _ := afero.Exists(fs, path.Join(root, "lib64")); ok {
				libDir = path.Join(root, "lib64")
			}
		}
		if libDir == "" {
			if ok, _ := afero.Exists(fs, path.Join(root, "lib")); ok {
				libDir = path.Join(root, "lib")
			}
		}
		if libDir == "" {
			continue
		}

		rec.Root = root
		rec.BinDir = binDir
		rec.IncludeDir = includeDir
		rec.LibDeviceDir = libDeviceDir
		rec.LibDir = libDir
		rec.Version = readVersion(fs, root)
		rec.libDevice = scanLibDevice(fs, libDeviceDir, rec.Version)
		rec.Valid = true
		break
	}

	if opts.WantGCN {
		if root := resolveGCNRoot(opts); root != "" {
			for arch, file := range scanGCNLibraries(opts.Fs, root) {
				rec.libDevice[arch] = file
			}
		}
	}

	return rec
}

// candidatePaths generates the ordered SDK candidate list. An explicit
// override is the sole candidate; order matters elsewhere because the
// first structurally valid root wins.
func candidatePaths(opts Options) []string {
	if opts.ExplicitPath != "" {
		return []string{opts.ExplicitPath}
	}
	var candidates []string
	if opts.HostWindows {
		for _, v := range sdkVersions {
			candidates = append(candidates,
				opts.SysRoot+"/Program Files/NVIDIA GPU Computing Toolkit/CUDA/v"+v)
		}
		return candidates
	}
	candidates = append(candidates, opts.SysRoot+"/usr/local/cuda")
	for _, v := range sdkVersions {
		candidates = append(candidates, opts.SysRoot+"/usr/local/cuda-"+v)
	}
	return candidates
}

func allExist(fs afero.Fs, paths ...string) bool {
	for _, p := range paths {
		ok, _ := afero.Exists(fs, p)
		if !ok {
			return false
		}
	}
	return true
}

// readVersion reads the version descriptor at the install root. The
// legacy 7.0 release shipped without version.txt, so an absent file means
// 7.0, not unknown.
func readVersion(fs afero.Fs, root string) device.Version {
	content, err := afero.ReadFile(fs, path.Join(root, "version.txt"))
	if err != nil {
		return device.Version70
	}
	return device.ParseVersionFile(string(content))
}

// DeviceLibrary returns the device-support library file mapped to the
// given architecture identifier.
func (r *Record) DeviceLibrary(arch string) (string, bool) {
	file, ok := r.libDevice[arch]
	return file, ok
}

// Describe renders the detection result for verbose/probe output.
func (r *Record) Describe() string {
	if !r.Valid {
		return "no SDK installation found"
	}
	return fmt.Sprintf("found SDK installation: %s, version %s", r.Root, r.Version)
}
