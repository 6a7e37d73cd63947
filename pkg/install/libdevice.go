package install

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/3leaps/offloadc/pkg/device"
)

// Device-support bitcode files are named <prefix>.<family>.<ext>, e.g.
// libdevice.compute_30.10.bc.
const (
	libDevicePrefix  = "libdevice."
	libDevicePattern = "libdevice.*.bc"
)

type versionPredicate func(device.Version) bool

func anyVersion(device.Version) bool { return true }

func below(v device.Version) versionPredicate {
	return func(detected device.Version) bool { return detected < v }
}

func atLeast(v device.Version) versionPredicate {
	return func(detected device.Version) bool { return detected >= v }
}

// fanOutRule maps one capability family's library file to the concrete
// targets it serves under the given version predicate.
type fanOutRule struct {
	family  string
	applies versionPredicate
	targets []string
}

// fanOutRules reproduces the vendor's historical packaging. The split
// handling of sm_50/52/53 is intentional: they ship against compute_30
// before the 8.0 release and against compute_50 from 8.0 on, never both.
var fanOutRules = []fanOutRule{
	{"compute_20", anyVersion, []string{"sm_20", "sm_21", "sm_32"}},
	{"compute_30", anyVersion, []string{"sm_30", "sm_60", "sm_61", "sm_62"}},
	{"compute_30", below(device.Version80), []string{"sm_50", "sm_52", "sm_53"}},
	{"compute_35", anyVersion, []string{"sm_35", "sm_37"}},
	{"compute_50", atLeast(device.Version80), []string{"sm_50", "sm_52", "sm_53"}},
}

// scanLibDevice builds the architecture → library-file map from the
// device-library directory. Each matching file is recorded under its
// capability family, then fanned out to the concrete targets the rule
// table maps to that family at the detected version.
func scanLibDevice(fs afero.Fs, dir string, version device.Version) map[string]string {
	out := map[string]string{}
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ok, _ := doublestar.Match(libDevicePattern, name); !ok {
			continue
		}
		rest := strings.TrimPrefix(name, libDevicePrefix)
		dot := strings.IndexByte(rest, '.')
		if dot < 0 {
			continue
		}
		family := rest[:dot]
		file := path.Join(dir, name)
		out[family] = file

		for _, rule := range fanOutRules {
			if rule.family != family || !rule.applies(version) {
				continue
			}
			for _, target := range rule.targets {
				out[target] = file
			}
		}
	}
	return out
}
