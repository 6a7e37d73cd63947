package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeManifest(t, "job.yaml", `
inputs:
  - kernel.s
  - helpers.s
architectures:
  - sm_35
  - gfx803
output: app.fatbin
opt_level: "2"
device_debug: true
assembler_flags:
  - --allow-expensive-optimizations=true
library_paths:
  - /opt/bitcode
`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"kernel.s", "helpers.s"}, m.Inputs)
	assert.Equal(t, []string{"sm_35", "gfx803"}, m.Architectures)
	assert.Equal(t, "app.fatbin", m.Output)
	assert.Equal(t, "2", m.OptLevel)
	assert.True(t, m.DeviceDebug)
	assert.Equal(t, []string{"--allow-expensive-optimizations=true"}, m.AssemblerFlags)
	assert.Equal(t, []string{"/opt/bitcode"}, m.LibraryPaths)
}

func TestLoadJSON(t *testing.T) {
	path := writeManifest(t, "job.json",
		`{"inputs": ["kernel.s"], "architectures": ["sm_60"], "sdk_path": "/opt/sdk"}`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"kernel.s"}, m.Inputs)
	assert.Equal(t, "/opt/sdk", m.SDKPath)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeManifest(t, "job.yaml", `
inputs: [kernel.s]
architectures: [sm_35]
`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "a.fatbin", m.Output)
}

func TestLoadUnknownExtensionFallsBack(t *testing.T) {
	yamlPath := writeManifest(t, "job.manifest", "inputs: [kernel.s]\narchitectures: [sm_35]\n")
	m, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"kernel.s"}, m.Inputs)

	jsonPath := writeManifest(t, "other.manifest",
		`{"inputs": ["kernel.s"], "architectures": ["sm_35"]}`)
	m, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"kernel.s"}, m.Inputs)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{"no inputs", "a.yaml", "architectures: [sm_35]\n", ErrNoInputs},
		{"no architectures", "b.yaml", "inputs: [kernel.s]\n", ErrNoArchitectures},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, tt.file, tt.content)
			_, err := Load(path)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("empty input path", func(t *testing.T) {
		path := writeManifest(t, "c.yaml", "inputs: [kernel.s, \"\"]\narchitectures: [sm_35]\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "empty input path")
	})

	t.Run("malformed content", func(t *testing.T) {
		path := writeManifest(t, "d.yaml", "inputs: [unclosed\n")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeManifest(t, "e.yaml", "")
		_, err := Load(path)
		assert.ErrorContains(t, err, "empty")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "not found")
	})
}
