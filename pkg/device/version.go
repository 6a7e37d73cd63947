package device

import (
	"strconv"
	"strings"
)

// Version is the detected SDK release, ordered oldest to newest.
// VersionUnknown sorts below every real release.
type Version int

const (
	VersionUnknown Version = iota
	Version70
	Version75
	Version80
)

// versionPrefix is the fixed leader of the version descriptor file, e.g.
// "CUDA Version 7.5.18".
const versionPrefix = "CUDA Version "

func (v Version) String() string {
	switch v {
	case Version70:
		return "7.0"
	case Version75:
		return "7.5"
	case Version80:
		return "8.0"
	default:
		return "unknown"
	}
}

// ParseVersionFile parses the contents of the SDK's version descriptor.
// Anything that does not carry the fixed prefix followed by a dotted
// MAJOR.MINOR pair the SDK has shipped is VersionUnknown. It never fails;
// unrecognized content simply maps to the bottom element.
func ParseVersionFile(content string) Version {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, versionPrefix) {
		return VersionUnknown
	}
	s = strings.TrimPrefix(s, versionPrefix)

	fields := strings.SplitN(s, ".", 3)
	if len(fields) < 2 {
		return VersionUnknown
	}
	major, err := strconv.Atoi(fields[0])
	if err != nil {
		return VersionUnknown
	}
	minor, err := strconv.Atoi(fields[1])
	if err != nil {
		return VersionUnknown
	}

	switch {
	case major == 7 && minor == 0:
		return Version70
	case major == 7 && minor == 5:
		return Version75
	case major == 8 && minor == 0:
		return Version80
	default:
		return VersionUnknown
	}
}
