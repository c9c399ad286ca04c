// Package receipt writes the audit record a consumer run produces after
// validating (or failing to validate) a restore point.
package receipt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// Writer persists receipts to a local directory, one file per attempt.
type Writer struct {
	Dir string
}

// New returns a Writer rooted at dir. The directory must already exist.
func New(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Write stamps r with a run ID (if unset) and writes it atomically under
// Dir. Filenames start as "<restore_point>.receipt.json"; on collision
// (a previous attempt at the same restore point already has a receipt)
// it falls back to "<restore_point>.<n>.receipt.json" for increasing n,
// so earlier attempts are never overwritten.
func (w *Writer) Write(r *core.Receipt) (string, error) {
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}

	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal receipt")
	}

	base := r.TargetRestorePoint
	if base == "" {
		base = r.CurrentRestorePoint
	}

	path := filepath.Join(w.Dir, base+".receipt.json")
	for attempt := 1; ; attempt++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(w.Dir, fmt.Sprintf("%s.%d.receipt.json", base, attempt))
	}

	if err := renameio.WriteFile(path, body, 0o644); err != nil {
		return "", errors.Wrapf(err, "write receipt %s", path)
	}
	return path, nil
}
