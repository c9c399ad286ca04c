// Package target implements the target selector: picks the
// safest-forward READY manifest that satisfies every DR instance's
// recovery floor.
package target

import (
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// Select picks a target manifest from manifests (already filtered to
// Ready == true, newest-first by restore-point name). floors maps
// segment_id to its recovery floor; a segment_id absent from floors
// disqualifies a candidate until resolved, rather than erroring.
// configSegmentIDs is the DR-side configured topology, used to detect a
// segment present in config but absent from a candidate manifest
// (core.ErrTopologyMismatch, fatal regardless of floors).
//
// If explicitTarget is non-empty, only that manifest is considered and a
// floor violation is a hard core.ErrFloorAboveTarget.
func Select(manifests []*core.Manifest, floors map[int]core.LSN, configSegmentIDs []int, explicitTarget string) (*core.Manifest, error) {
	if explicitTarget != "" {
		for _, m := range manifests {
			if m.RestorePoint != explicitTarget {
				continue
			}
			ok, err := satisfiesFloors(m, floors, configSegmentIDs)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.Wrapf(core.ErrFloorAboveTarget, "explicit target %s is below a DR instance floor", explicitTarget)
			}
			return m, nil
		}
		return nil, errors.Wrapf(core.ErrNotFound, "manifest %s", explicitTarget)
	}

	for _, m := range manifests {
		ok, err := satisfiesFloors(m, floors, configSegmentIDs)
		if err != nil {
			return nil, err
		}
		if ok {
			return m, nil
		}
	}
	return nil, errors.Wrap(core.ErrFloorAboveTarget, "no ready manifest satisfies every DR instance floor")
}

// satisfiesFloors reports whether every configured segment's floor is known
// and met by m. A segment configured on the DR side but missing from m is
// a fatal topology mismatch, independent of floors.
func satisfiesFloors(m *core.Manifest, floors map[int]core.LSN, configSegmentIDs []int) (bool, error) {
	ok := true
	for _, segID := range configSegmentIDs {
		mi, found := m.InstanceBySegment(segID)
		if !found {
			return false, errors.Wrapf(core.ErrTopologyMismatch, "segment %d in dr config but absent from manifest %s", segID, m.RestorePoint)
		}

		floorLSN, known := floors[segID]
		if !known {
			ok = false
			continue
		}
		if mi.RestoreLSN < floorLSN {
			ok = false
		}
	}
	return ok, nil
}
