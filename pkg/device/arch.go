// Package device models GPU offload targets: architecture identifiers,
// the two backend tool families, and SDK version compatibility.
package device

import (
	"strconv"
	"strings"
)

// Family distinguishes the two backend tool chains by their
// architecture-identifier naming convention.
type Family int

const (
	FamilyUnknown Family = iota
	// FamilyPTX covers sm_NN (concrete) and compute_NN (virtual) targets,
	// assembled directly to a native device object.
	FamilyPTX
	// FamilyGCN covers gfxNNN targets, which go through a bitcode
	// link/optimize pipeline and are packaged as loadable code objects.
	FamilyGCN
)

func (f Family) String() string {
	switch f {
	case FamilyPTX:
		return "ptx"
	case FamilyGCN:
		return "gcn"
	default:
		return "unknown"
	}
}

// Arch is a single parsed architecture target. The zero value is the
// unknown architecture.
type Arch struct {
	// Name is the identifier as given, e.g. "sm_35", "compute_30", "gfx803".
	Name string
	// Family selects the backend tool chain.
	Family Family
	// Capability is the numeric compute capability, used to order targets
	// of the same family for compatibility comparisons.
	Capability int
	// Virtual is true for compute_NN identifiers, which name a capability
	// family rather than a specific chip and stay forward-compatible.
	Virtual bool
}

// IsUnknown reports whether a is the zero (unrecognized) architecture.
func (a Arch) IsUnknown() bool { return a.Family == FamilyUnknown }

// ParseArch parses a user-supplied architecture identifier. Unrecognized
// identifiers yield the zero Arch rather than an error: callers decide
// whether an unknown target is fatal.
func ParseArch(name string) Arch {
	switch {
	case strings.HasPrefix(name, "sm_"):
		capability, ok := parseCapability(name[len("sm_"):])
		if !ok {
			return Arch{}
		}
		return Arch{Name: name, Family: FamilyPTX, Capability: capability}
	case strings.HasPrefix(name, "compute_"):
		capability, ok := parseCapability(name[len("compute_"):])
		if !ok {
			return Arch{}
		}
		return Arch{Name: name, Family: FamilyPTX, Capability: capability, Virtual: true}
	case strings.HasPrefix(name, "gfx"):
		// GCN names are open-ended (gfx701, gfx803, ...); the numeric run
		// after the prefix orders them, trailing letters are tolerated.
		suffix := name[len("gfx"):]
		if suffix == "" {
			return Arch{}
		}
		end := 0
		for end < len(suffix) && suffix[end] >= '0' && suffix[end] <= '9' {
			end++
		}
		if end == 0 {
			return Arch{}
		}
		capability, _ := strconv.Atoi(suffix[:end])
		return Arch{Name: name, Family: FamilyGCN, Capability: capability}
	default:
		return Arch{}
	}
}

func parseCapability(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// VirtualArch returns the virtual (capability-family) identifier for a
// concrete PTX target. sm_21 shares compute_20's instruction set; every
// other concrete target maps 1:1. Virtual and GCN targets map to
// themselves.
func VirtualArch(a Arch) Arch {
	if a.Family != FamilyPTX || a.Virtual {
		return a
	}
	capability := a.Capability
	if capability == 21 {
		capability = 20
	}
	return Arch{
		Name:       "compute_" + strconv.Itoa(capability),
		Family:     FamilyPTX,
		Capability: capability,
		Virtual:    true,
	}
}

// minVersionForArch lists the first SDK release that can assemble each
// concrete PTX target.
var minVersionForArch = map[string]Version{
	"sm_20": Version70,
	"sm_21": Version70,
	"sm_30": Version70,
	"sm_32": Version70,
	"sm_35": Version70,
	"sm_37": Version70,
	"sm_50": Version70,
	"sm_52": Version70,
	"sm_53": Version70,
	"sm_60": Version80,
	"sm_61": Version80,
	"sm_62": Version80,
}

// MinVersionForArch returns the minimum SDK version required to target a.
// Targets without a recorded minimum (virtual and GCN identifiers) require
// only the oldest supported release.
func MinVersionForArch(a Arch) Version {
	if v, ok := minVersionForArch[a.Name]; ok {
		return v
	}
	return Version70
}
