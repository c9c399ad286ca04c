package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// LocalFS is the default storage backend: a plain directory on the local
// filesystem, with atomic write-then-rename for Put.
type LocalFS struct {
	Dir string
}

// NewLocalFS returns a LocalFS rooted at dir. dir is created if missing.
func NewLocalFS(dir string) (*LocalFS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create storage dir %s", dir)
	}
	return &LocalFS{Dir: dir}, nil
}

func (l *LocalFS) path(name string) string {
	return filepath.Join(l.Dir, name)
}

// Put writes data to a sibling temp file and renames it into place, so
// readers never observe a partial file.
func (l *LocalFS) Put(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(l.path(name)), 0o755); err != nil {
		return errors.Wrapf(err, "create dir for %s", name)
	}
	return errors.Wrapf(renameio.WriteFile(l.path(name), data, 0o644), "atomic write %s", name)
}

func (l *LocalFS) Get(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(l.path(name))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(core.ErrNotFound, "%s", name)
	}
	return b, errors.Wrapf(err, "read %s", name)
}

func (l *LocalFS) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", l.Dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (l *LocalFS) Probe(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(l.path(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "stat %s", name)
	}
	return true, nil
}
