// Package statefile manages current_restore_point.txt, the one-line file
// that is the sole authoritative record of where DR has been advanced to.
package statefile

import (
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// File is the durable consumer state file at a fixed path.
type File struct {
	Path string
}

// New returns a File at path.
func New(path string) *File {
	return &File{Path: path}
}

// Read returns the recorded restore-point name, or "" if the file
// doesn't exist yet (no restore point has ever been consumed).
func (f *File) Read() (string, error) {
	b, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "read state file %s", f.Path)
	}
	return strings.TrimSpace(string(b)), nil
}

// Advance atomically replaces the recorded restore-point name.
func (f *File) Advance(name string) error {
	return errors.Wrapf(renameio.WriteFile(f.Path, []byte(name+"\n"), 0o644), "write state file %s", f.Path)
}
