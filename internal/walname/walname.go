// Package walname computes and parses archive WAL segment filenames. It is
// a pure, dependency-free leaf: the publisher cycle derives every
// manifest's wal_filename through Compute, so there is exactly one place
// that can get the naming wrong.
package walname

import (
	"fmt"
	"strconv"

	"github.com/percona/pg-dr-sync/internal/core"
)

// MinSegmentSize and MaxSegmentSize bound the valid wal_segment_size_bytes
// range: a power of two between 1 MiB and 1 GiB.
const (
	MinSegmentSize = 1 << 20
	MaxSegmentSize = 1 << 30
)

// ValidSegmentSize reports whether size is a power of two in [1MiB, 1GiB].
func ValidSegmentSize(size uint64) bool {
	if size < MinSegmentSize || size > MaxSegmentSize {
		return false
	}
	return size&(size-1) == 0
}

// Compute maps (timeline, lsn, segment_size_bytes) to the 24-hex-character
// archive filename: an 8-hex timeline, followed by the high and low halves
// of the logical segment number the LSN falls in, each 8 hex digits. When
// lsn sits exactly on a segment boundary (lsn % segmentSize == 0), the
// filename names that boundary's own starting segment.
func Compute(timelineID uint32, lsn core.LSN, segmentSizeBytes uint64) (string, error) {
	if !ValidSegmentSize(segmentSizeBytes) {
		return "", fmt.Errorf("wal segment size %d is not a power of two between %d and %d", segmentSizeBytes, MinSegmentSize, MaxSegmentSize)
	}

	segno := uint64(lsn) / segmentSizeBytes

	// segsPerXlogID is the number of segments per 4GiB "logical WAL
	// file" bucket, i.e. 1<<32 / segmentSizeBytes.
	segsPerXlogID := uint64(1) << 32 / segmentSizeBytes

	xlogID := segno / segsPerXlogID
	segInXlogID := segno % segsPerXlogID

	return fmt.Sprintf("%08X%08X%08X", timelineID, xlogID, segInXlogID), nil
}

// Segment is the decoded form of an archive WAL filename.
type Segment struct {
	TimelineID uint32
	LogicalID  uint64
	SegmentID  uint64
}

// Parse decodes a 24-hex-character archive filename back into its
// timeline, logical-file, and segment components. This inverse isn't
// needed by the publisher or consumer at runtime, but makes the round-trip
// property directly testable and is useful for operator
// tooling inspecting an archive directory by hand.
func Parse(name string) (Segment, error) {
	if len(name) != 24 {
		return Segment{}, fmt.Errorf("invalid wal filename %q: want 24 hex characters", name)
	}

	timeline, err := strconv.ParseUint(name[0:8], 16, 32)
	if err != nil {
		return Segment{}, fmt.Errorf("invalid wal filename %q: timeline: %w", name, err)
	}
	logicalID, err := strconv.ParseUint(name[8:16], 16, 64)
	if err != nil {
		return Segment{}, fmt.Errorf("invalid wal filename %q: logical id: %w", name, err)
	}
	segID, err := strconv.ParseUint(name[16:24], 16, 64)
	if err != nil {
		return Segment{}, fmt.Errorf("invalid wal filename %q: segment id: %w", name, err)
	}

	return Segment{TimelineID: uint32(timeline), LogicalID: logicalID, SegmentID: segID}, nil
}
