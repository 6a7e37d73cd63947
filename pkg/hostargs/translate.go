// Package hostargs rewrites the host compiler's argument list for a
// device compilation bound to a single architecture: it resolves
// architecture-scoped flags and pins the architecture-selection flag so
// every downstream stage sees one unambiguous target.
package hostargs

import (
	"strings"

	"github.com/3leaps/offloadc/pkg/diag"
)

const (
	archScopedPrefix = "-Xarch_"
	marchPrefix      = "-march="
)

// driverOnlyFlags are payloads that would alter top-level driver behavior
// and therefore can never be forwarded to a single device compilation.
var driverOnlyFlags = map[string]bool{
	"-c":            true,
	"-S":            true,
	"-E":            true,
	"-o":            true,
	"-v":            true,
	"-fsyntax-only": true,
	"-save-temps":   true,
	"-M":            true,
	"-MM":           true,
	"--help":        true,
}

// Translate produces the argument list for the device compilation bound
// to boundArch (empty when no concrete architecture is bound).
//
// An architecture-scoped flag `-Xarch_<arch> <payload>` is forwarded
// (payload only) when its scope matches the bound architecture and
// silently dropped otherwise. Payloads that are not a single well-formed
// argument, or that would alter driver behavior, are rejected with a
// diagnostic and dropped regardless of binding. With a concrete
// architecture bound, every generic -march flag is replaced by one naming
// the bound architecture.
func Translate(args []string, boundArch string, reporter diag.Reporter) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, archScopedPrefix) {
			scope := strings.TrimPrefix(arg, archScopedPrefix)
			payload := ""
			if i+1 < len(args) {
				i++
				payload = args[i]
			}

			// Payload validation happens before the scope check: a
			// malformed or driver-altering payload is a mistake in the
			// invocation itself, not in this particular binding.
			if payload == "" || strings.ContainsAny(payload, " \t") {
				reporter.Report(diag.Diagnostic{
					Code:    diag.CodeBadArchArgument,
					Message: "architecture-scoped argument is not a single well-formed flag",
					Fields:  map[string]string{"arg": arg + " " + payload},
				})
				continue
			}
			if isDriverOnly(payload) {
				reporter.Report(diag.Diagnostic{
					Code:    diag.CodeArchArgDriverFlag,
					Message: "architecture-scoped argument would alter driver behavior",
					Fields:  map[string]string{"arg": arg + " " + payload},
				})
				continue
			}
			if boundArch == "" || scope != boundArch {
				continue
			}
			out = append(out, payload)
			continue
		}

		if boundArch != "" && strings.HasPrefix(arg, marchPrefix) {
			continue
		}
		out = append(out, arg)
	}

	if boundArch != "" {
		out = append(out, marchPrefix+boundArch)
	}
	return out
}

func isDriverOnly(payload string) bool {
	flag := payload
	if eq := strings.IndexByte(flag, '='); eq >= 0 {
		flag = flag[:eq]
	}
	return driverOnlyFlags[flag]
}
