// Package rpcreate implements the restore-point creator:
// issues, on one session against the Primary coordinator, a cluster-wide
// restore-point creation call and an optional WAL-switch call.
package rpcreate

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// createRestorePointQuery names the point and returns one LSN per
// instance (coordinator plus every content segment), matching how a
// cluster-wide restore point call reports back per-instance positions.
const createRestorePointQuery = `SELECT gp_segment_id, pg_create_restore_point($1)::text FROM gp_dist_random('gp_id') UNION ALL SELECT -1, pg_create_restore_point($1)::text`

const switchWALQuery = `SELECT gp_segment_id, pg_switch_wal()::text FROM gp_dist_random('gp_id') UNION ALL SELECT -1, pg_switch_wal()::text`

const currentTimelineQuery = `SELECT timeline_id FROM pg_control_checkpoint()`

// Result is the outcome of one restore-point creation call.
type Result struct {
	Name           string
	TimelineID     int
	LSNBySegmentID map[int]core.LSN
}

// Creator issues restore-point creation calls against the Primary
// coordinator.
type Creator struct {
	DSN string
}

// Create names a restore point on every instance and, unless
// switchWAL is false, forces WAL rotation afterward. name is supplied by
// the caller, pre-generated from wall clock; a duplicate
// name surfaces as core.ErrDuplicateRestorePoint so the caller can
// generate a new one.
func (c *Creator) Create(ctx context.Context, name string, switchWAL bool) (*Result, error) {
	conn, err := pgx.Connect(ctx, c.DSN)
	if err != nil {
		return nil, errors.Wrapf(core.ErrConnect, "dial primary coordinator: %v", err)
	}
	defer conn.Close(ctx)

	lsnBySegment, err := queryPerSegmentLSN(ctx, conn, createRestorePointQuery, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(core.ErrDuplicateRestorePoint, "%s", name)
		}
		return nil, errors.Wrapf(err, "create restore point %s", name)
	}

	var timeline int
	if err := conn.QueryRow(ctx, currentTimelineQuery).Scan(&timeline); err != nil {
		return nil, errors.Wrap(err, "read current timeline")
	}

	if switchWAL {
		if _, err := queryPerSegmentLSN(ctx, conn, switchWALQuery); err != nil {
			return nil, errors.Wrap(err, "switch wal")
		}
	}

	return &Result{Name: name, TimelineID: timeline, LSNBySegmentID: lsnBySegment}, nil
}

func queryPerSegmentLSN(ctx context.Context, conn *pgx.Conn, query string, args ...any) (map[int]core.LSN, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]core.LSN{}
	for rows.Next() {
		var segID int
		var lsnText string
		if err := rows.Scan(&segID, &lsnText); err != nil {
			return nil, errors.Wrap(err, "scan per-segment lsn row")
		}
		lsn, err := core.ParseLSN(lsnText)
		if err != nil {
			return nil, errors.Wrap(err, "parse per-segment lsn")
		}
		out[segID] = lsn
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "23505") || strings.Contains(strings.ToLower(err.Error()), "already exists")
}
