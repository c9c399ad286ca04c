// Package topology implements the topology resolver: it
// queries the Primary coordinator for the current set of content segments
// plus the coordinator itself. No caching — every publisher cycle calls
// Resolve again.
package topology

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// segmentConfigQuery enumerates live content segments and the
// coordinator from the cluster's own segment-configuration catalog.
const segmentConfigQuery = `
SELECT content, hostname, port, datadir
FROM gp_segment_configuration
WHERE role = 'p' AND status = 'u'
ORDER BY content`

// Resolver connects to the Primary coordinator and enumerates its
// topology.
type Resolver struct {
	DSN string
}

// Resolve returns the ordered list of instance descriptors: the
// coordinator (segment_id == core.CoordinatorSegmentID) and every live
// content segment.
func (r *Resolver) Resolve(ctx context.Context) ([]core.Instance, error) {
	conn, err := pgx.Connect(ctx, r.DSN)
	if err != nil {
		return nil, errors.Wrapf(core.ErrConnect, "dial primary coordinator: %v", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, segmentConfigQuery)
	if err != nil {
		return nil, errors.Wrapf(core.ErrConnect, "query topology: %v", err)
	}
	defer rows.Close()

	seen := map[int]bool{}
	var instances []core.Instance
	for rows.Next() {
		var inst core.Instance
		if err := rows.Scan(&inst.SegmentID, &inst.Host, &inst.Port, &inst.DataDir); err != nil {
			return nil, errors.Wrap(err, "scan topology row")
		}
		if seen[inst.SegmentID] {
			return nil, errors.Wrapf(core.ErrTopologyMismatch, "segment %d reported twice", inst.SegmentID)
		}
		seen[inst.SegmentID] = true
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read topology rows")
	}

	return instances, nil
}
