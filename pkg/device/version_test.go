package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersionFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Version
	}{
		{"release 7.0", "CUDA Version 7.0.28", Version70},
		{"release 7.5", "CUDA Version 7.5.18", Version75},
		{"release 8.0", "CUDA Version 8.0.44", Version80},
		{"trailing newline", "CUDA Version 7.5.18\n", Version75},
		{"two fields only", "CUDA Version 8.0", Version80},
		{"unknown pair", "CUDA Version 9.0.176", VersionUnknown},
		{"unknown minor", "CUDA Version 7.2.1", VersionUnknown},
		{"missing prefix", "Version 7.5.18", VersionUnknown},
		{"non-numeric major", "CUDA Version x.5.18", VersionUnknown},
		{"non-numeric minor", "CUDA Version 7.y.18", VersionUnknown},
		{"single field", "CUDA Version 7", VersionUnknown},
		{"empty", "", VersionUnknown},
		{"garbage", "not a version file", VersionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVersionFile(tt.content))
		})
	}
}

func TestVersionOrdering(t *testing.T) {
	// Unknown is the bottom element; releases order oldest to newest.
	assert.Less(t, VersionUnknown, Version70)
	assert.Less(t, Version70, Version75)
	assert.Less(t, Version75, Version80)
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "7.0", Version70.String())
	assert.Equal(t, "7.5", Version75.String())
	assert.Equal(t, "8.0", Version80.String())
	assert.Equal(t, "unknown", VersionUnknown.String())
}
