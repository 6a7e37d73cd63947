package install

import (
	"path"
	"strings"

	"github.com/spf13/afero"
)

const (
	defaultGCNRoot = "/opt/rocm/libamdgcn"
	gcnLibRelPath  = "lib/opencl.amdgcn.bc"
	gcnArchPrefix  = "gfx"
)

// resolveGCNRoot picks the alternate-family root: explicit flag override,
// then the configured environment override, then the fixed default. The
// chosen root must exist.
func resolveGCNRoot(opts Options) string {
	var candidates []string
	switch {
	case opts.GCNPath != "":
		candidates = []string{opts.GCNPath}
	case opts.GCNRootOverride != "":
		candidates = []string{opts.SysRoot + opts.GCNRootOverride}
	default:
		candidates = []string{opts.SysRoot + defaultGCNRoot}
	}
	root := ""
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if ok, _ := afero.Exists(opts.Fs, c); ok {
			root = c
		}
	}
	return root
}

// scanGCNLibraries treats every immediate gfx-prefixed subdirectory of the
// root as an architecture identifier and maps it to the fixed library file
// underneath, when present.
func scanGCNLibraries(fs afero.Fs, root string) map[string]string {
	out := map[string]string{}
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, gcnArchPrefix) {
			continue
		}
		file := path.Join(root, name, gcnLibRelPath)
		if ok, _ := afero.Exists(fs, file); ok {
			out[name] = file
		}
	}
	return out
}
