// Package recovery implements the recovery applier: for one DR
// instance, writes the standby marker and rewrites the recovery-relevant
// keys in postgresql.conf, atomically.
package recovery

import (
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

const standbySignalName = "standby.signal"
const postgresqlConfName = "postgresql.conf"

// Applier rewrites one DR instance's recovery configuration.
type Applier struct{}

// Apply writes standby.signal (idempotent) and rewrites
// recovery_target_lsn / recovery_target_action / recovery_target_inclusive
// to target, clearing recovery_target_name/time/xid.
// Unrelated keys, comments, and formatting are preserved byte-for-byte.
func (a *Applier) Apply(inst core.Instance, target core.LSN) error {
	if err := a.writeStandbySignal(inst.DataDir); err != nil {
		return errors.Wrapf(core.ErrApply, "segment %d: standby signal: %v", inst.SegmentID, err)
	}
	if err := a.rewriteConf(inst.DataDir, target); err != nil {
		return errors.Wrapf(core.ErrApply, "segment %d: rewrite postgresql.conf: %v", inst.SegmentID, err)
	}
	return nil
}

func (a *Applier) writeStandbySignal(dataDir string) error {
	path := filepath.Join(dataDir, standbySignalName)
	if _, err := os.Stat(path); err == nil {
		return nil // already present, idempotent
	}
	return errors.Wrap(renameio.WriteFile(path, nil, 0o644), "write standby signal")
}

func (a *Applier) rewriteConf(dataDir string, target core.LSN) error {
	path := filepath.Join(dataDir, postgresqlConfName)

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	kv := map[string]string{
		"recovery_target_lsn":       target.String(),
		"recovery_target_action":    "shutdown",
		"recovery_target_inclusive": "true",
		"recovery_target_name":      "",
		"recovery_target_time":      "",
		"recovery_target_xid":       "",
	}

	rewritten := rewriteKeys(data, kv)

	return errors.Wrapf(renameio.WriteFile(path, rewritten, 0o644), "write %s", path)
}
