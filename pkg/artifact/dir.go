package artifact

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/spritestack/pkg/export"
)

// DirStore writes artifacts as files named by the artifact.
type DirStore struct {
	dir string
}

// NewDirStore returns a store writing into dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DirStore{dir: dir}, nil
}

// Put writes art.Data to <dir>/<art.Name>, replacing any existing file.
func (s *DirStore) Put(_ context.Context, art *export.Artifact, _ Record) (string, error) {
	path := filepath.Join(s.dir, art.Name)
	tmp, err := os.CreateTemp(s.dir, ".export-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(art.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

// Close does nothing for directory stores.
func (s *DirStore) Close(context.Context) error { return nil }

var _ Store = (*DirStore)(nil)
