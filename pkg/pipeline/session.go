package pipeline

import (
	"path"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Session owns the temporary artifacts of one compilation. Intermediate
// files produced by earlier stages stay alive until teardown because later
// stages and verbose diagnostic stages still reference them.
type Session struct {
	fs        afero.Fs
	dir       string
	artifacts []string
}

func NewSession(fs afero.Fs, dir string) *Session {
	return &Session{fs: fs, dir: dir}
}

// TempPath reserves a session-scoped temporary artifact path. The name
// carries a uuid fragment so repeated stages with the same prefix never
// collide within a session.
func (s *Session) TempPath(prefix, ext string) string {
	name := prefix + "-" + uuid.New().String()[:8] + "." + ext
	p := path.Join(s.dir, name)
	s.artifacts = append(s.artifacts, p)
	return p
}

// Artifacts returns the registered temporary paths in creation order.
func (s *Session) Artifacts() []string {
	return s.artifacts
}

// Cleanup removes every registered artifact. Missing files are ignored;
// a stage may have failed before producing its output.
func (s *Session) Cleanup() {
	for _, p := range s.artifacts {
		_ = s.fs.Remove(p)
	}
}
