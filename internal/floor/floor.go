// Package floor implements the floor computer: for each DR
// instance, the minimum LSN at which it may safely stop.
package floor

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// minRecoveryEndLocationQuery reads the same field the offline inspector
// reports, from the live control view, so both paths observe the same
// name for the same quantity.
const minRecoveryEndLocationQuery = `SELECT min_recovery_end_lsn::text FROM pg_control_recovery()`

// offlineFieldRE matches the offline control-data inspector's
// "Minimum recovery ending location:" line.
var offlineFieldRE = regexp.MustCompile(`(?i)Minimum recovery ending location:\s*([0-9A-Fa-f]+/[0-9A-Fa-f]+)`)

// Computer computes recovery floors for DR instances.
type Computer struct {
	// OfflineInspectCommand is a template with {data_dir} and {host}
	// placeholders, invoking the offline control-data inspector when an
	// instance isn't accepting SQL.
	OfflineInspectCommand string
}

// LiveFloor queries the minimum recovery end location from an instance
// that is up and accepting SQL.
func (c *Computer) LiveFloor(ctx context.Context, conn *pgx.Conn) (core.LSN, error) {
	var text string
	if err := conn.QueryRow(ctx, minRecoveryEndLocationQuery).Scan(&text); err != nil {
		return 0, errors.Wrap(err, "query minimum recovery end location")
	}
	lsn, err := core.ParseLSN(text)
	if err != nil {
		return 0, errors.Wrap(err, "parse minimum recovery end location")
	}
	return lsn, nil
}

// OfflineFloor inspects inst's data directory via the offline control-data
// inspector when the instance isn't up.
func (c *Computer) OfflineFloor(ctx context.Context, inst core.Instance) (core.LSN, error) {
	if c.OfflineInspectCommand == "" {
		return 0, errors.Wrap(core.ErrUnknownFloor, "no offline inspector configured")
	}

	cmdline := strings.NewReplacer(
		"{data_dir}", shellQuote(inst.DataDir),
		"{host}", shellQuote(inst.Host),
	).Replace(c.OfflineInspectCommand)

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdline)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, errors.Wrapf(core.ErrUnknownFloor, "offline inspector for segment %d: %v (stderr: %s)", inst.SegmentID, err, stderr.String())
	}

	m := offlineFieldRE.FindStringSubmatch(stdout.String())
	if m == nil {
		return 0, errors.Wrapf(core.ErrUnknownFloor, "offline inspector for segment %d: no recovery field in output", inst.SegmentID)
	}

	lsn, err := core.ParseLSN(m[1])
	if err != nil {
		return 0, errors.Wrapf(err, "offline inspector for segment %d: parse floor", inst.SegmentID)
	}
	return lsn, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
