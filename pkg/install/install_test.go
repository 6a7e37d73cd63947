package install

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/offloadc/pkg/device"
	"github.com/3leaps/offloadc/pkg/diag"
)

// newSDKTree lays out a structurally valid installation at root. An empty
// version means no version.txt (the legacy layout).
func newSDKTree(t *testing.T, fs afero.Fs, root, version string, libFiles ...string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(root+"/bin", 0o755))
	require.NoError(t, fs.MkdirAll(root+"/include", 0o755))
	require.NoError(t, fs.MkdirAll(root+"/nvvm/libdevice", 0o755))
	require.NoError(t, fs.MkdirAll(root+"/lib64", 0o755))
	require.NoError(t, fs.MkdirAll(root+"/lib", 0o755))
	if version != "" {
		require.NoError(t, afero.WriteFile(fs, root+"/version.txt", []byte(version), 0o644))
	}
	for _, name := range libFiles {
		require.NoError(t, afero.WriteFile(fs, root+"/nvvm/libdevice/"+name, []byte("BC"), 0o644))
	}
}

func resolveWith(fs afero.Fs, opts Options) (*Record, *diag.Collector) {
	collector := &diag.Collector{}
	opts.Fs = fs
	return Resolve(opts, collector), collector
}

func TestResolveFirstValidCandidateWins(t *testing.T) {
	fs := afero.NewMemMapFs()
	// Unversioned default root comes first even when a versioned root
	// with a newer release also validates.
	newSDKTree(t, fs, "/usr/local/cuda", "CUDA Version 7.5.18")
	newSDKTree(t, fs, "/usr/local/cuda-8.0", "CUDA Version 8.0.44")

	rec, _ := resolveWith(fs, Options{Host64Bit: true})
	require.True(t, rec.Valid)
	assert.Equal(t, "/usr/local/cuda", rec.Root)
	assert.Equal(t, device.Version75, rec.Version)
}

func TestResolveVersionedCandidatesDescending(t *testing.T) {
	fs := afero.NewMemMapFs()
	newSDKTree(t, fs, "/usr/local/cuda-7.0", "")
	newSDKTree(t, fs, "/usr/local/cuda-8.0", "CUDA Version 8.0.44")

	rec, _ := resolveWith(fs, Options{Host64Bit: true})
	require.True(t, rec.Valid)
	assert.Equal(t, "/usr/local/cuda-8.0", rec.Root)
}

func TestResolveExplicitPathIsSoleCandidate(t *testing.T) {
	fs := afero.NewMemMapFs()
	newSDKTree(t, fs, "/opt/sdk", "CUDA Version 8.0.44")
	newSDKTree(t, fs, "/usr/local/cuda", "CUDA Version 7.5.18")

	rec, _ := resolveWith(fs, Options{Host64Bit: true, ExplicitPath: "/opt/sdk"})
	require.True(t, rec.Valid)
	assert.Equal(t, "/opt/sdk", rec.Root)

	// An explicit path that does not validate must not fall back.
	rec, _ = resolveWith(fs, Options{Host64Bit: true, ExplicitPath: "/nonexistent"})
	assert.False(t, rec.Valid)
}

func TestResolveWindowsCandidates(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/Program Files/NVIDIA GPU Computing Toolkit/CUDA/v7.5"
	newSDKTree(t, fs, root, "CUDA Version 7.5.18")

	rec, _ := resolveWith(fs, Options{Host64Bit: true, HostWindows: true})
	require.True(t, rec.Valid)
	assert.Equal(t, root, rec.Root)
}

func TestResolveRequiresAllSubdirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/usr/local/cuda/bin", 0o755))
	require.NoError(t, fs.MkdirAll("/usr/local/cuda/include", 0o755))
	// No nvvm/libdevice, no lib: structurally invalid.

	rec, _ := resolveWith(fs, Options{Host64Bit: true})
	assert.False(t, rec.Valid)
	assert.Equal(t, device.VersionUnknown, rec.Version)
}

func TestResolveNativeLibraryDirectory(t *testing.T) {
	t.Run("prefers lib64 on 64-bit hosts", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		newSDKTree(t, fs, "/usr/local/cuda", "CUDA Version 7.5.18")
		rec, _ := resolveWith(fs, Options{Host64Bit: true})
		require.True(t, rec.Valid)
		assert.Equal(t, "/usr/local/cuda/lib64", rec.LibDir)
	})

	t.Run("uses lib on 32-bit hosts", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		newSDKTree(t, fs, "/usr/local/cuda", "CUDA Version 7.5.18")
		rec, _ := resolveWith(fs, Options{Host64Bit: false})
		require.True(t, rec.Valid)
		assert.Equal(t, "/usr/local/cuda/lib", rec.LibDir)
	})

	t.Run("falls back to lib when lib64 is absent", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		newSDKTree(t, fs, "/usr/local/cuda", "CUDA Version 7.5.18")
		require.NoError(t, fs.RemoveAll("/usr/local/cuda/lib64"))
		rec, _ := resolveWith(fs, Options{Host64Bit: true})
		require.True(t, rec.Valid)
		assert.Equal(t, "/usr/local/cuda/lib", rec.LibDir)
	})

	t.Run("disqualifies candidates with neither", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		newSDKTree(t, fs, "/usr/local/cuda", "CUDA Version 7.5.18")
		require.NoError(t, fs.RemoveAll("/usr/local/cuda/lib64"))
		require.NoError(t, fs.RemoveAll("/usr/local/cuda/lib"))
		rec, _ := resolveWith(fs, Options{Host64Bit: true})
		assert.False(t, rec.Valid)
	})
}

func TestResolveVersionDetection(t *testing.T) {
	t.Run("missing descriptor means legacy release", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		newSDKTree(t, fs, "/usr/local/cuda", "")
		rec, _ := resolveWith(fs, Options{Host64Bit: true})
		require.True(t, rec.Valid)
		assert.Equal(t, device.Version70, rec.Version)
	})

	t.Run("unparseable descriptor means unknown", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		newSDKTree(t, fs, "/usr/local/cuda", "CUDA Version 99.1.0")
		rec, _ := resolveWith(fs, Options{Host64Bit: true})
		require.True(t, rec.Valid)
		assert.Equal(t, device.VersionUnknown, rec.Version)
	})
}

func TestResolveGCNLibraries(t *testing.T) {
	newGCNTree := func(t *testing.T, fs afero.Fs, root string, archs ...string) {
		t.Helper()
		for _, arch := range archs {
			require.NoError(t, fs.MkdirAll(root+"/"+arch+"/lib", 0o755))
			require.NoError(t, afero.WriteFile(fs, root+"/"+arch+"/lib/opencl.amdgcn.bc", []byte("BC"), 0o644))
		}
	}

	t.Run("default root", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		newGCNTree(t, fs, "/opt/rocm/libamdgcn", "gfx701", "gfx803")
		// A gfx dir without the library file is not mapped.
		require.NoError(t, fs.MkdirAll("/opt/rocm/libamdgcn/gfx900/lib", 0o755))
		// Non-gfx entries are ignored.
		require.NoError(t, fs.MkdirAll("/opt/rocm/libamdgcn/share", 0o755))

		rec, _ := resolveWith(fs, Options{Host64Bit: true, WantGCN: true})
		file, ok := rec.DeviceLibrary("gfx803")
		require.True(t, ok)
		assert.Equal(t, "/opt/rocm/libamdgcn/gfx803/lib/opencl.amdgcn.bc", file)
		_, ok = rec.DeviceLibrary("gfx900")
		assert.False(t, ok)
		_, ok = rec.DeviceLibrary("share")
		assert.False(t, ok)
	})

	t.Run("explicit path beats configured override", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		newGCNTree(t, fs, "/custom/gcn", "gfx803")
		newGCNTree(t, fs, "/env/gcn", "gfx701")

		rec, _ := resolveWith(fs, Options{
			Host64Bit:       true,
			WantGCN:         true,
			GCNPath:         "/custom/gcn",
			GCNRootOverride: "/env/gcn",
		})
		_, ok := rec.DeviceLibrary("gfx803")
		assert.True(t, ok)
		_, ok = rec.DeviceLibrary("gfx701")
		assert.False(t, ok)
	})

	t.Run("configured override used when no explicit path", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		newGCNTree(t, fs, "/env/gcn", "gfx701")

		rec, _ := resolveWith(fs, Options{
			Host64Bit:       true,
			WantGCN:         true,
			GCNRootOverride: "/env/gcn",
		})
		_, ok := rec.DeviceLibrary("gfx701")
		assert.True(t, ok)
	})

	t.Run("not scanned unless a gcn target is requested", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		newGCNTree(t, fs, "/opt/rocm/libamdgcn", "gfx803")

		rec, _ := resolveWith(fs, Options{Host64Bit: true})
		_, ok := rec.DeviceLibrary("gfx803")
		assert.False(t, ok)
	})
}

func TestDescribe(t *testing.T) {
	fs := afero.NewMemMapFs()
	newSDKTree(t, fs, "/usr/local/cuda", "CUDA Version 8.0.44")
	rec, _ := resolveWith(fs, Options{Host64Bit: true})
	assert.Contains(t, rec.Describe(), "/usr/local/cuda")
	assert.Contains(t, rec.Describe(), "8.0")

	rec, _ = resolveWith(afero.NewMemMapFs(), Options{Host64Bit: true})
	assert.Contains(t, rec.Describe(), "no SDK installation")
}
