package walname

import (
	"testing"

	"github.com/frankban/quicktest"

	"github.com/percona/pg-dr-sync/internal/core"
)

func TestComputeMatchesKnownNames(t *testing.T) {
	c := quicktest.New(t)

	lsn, err := core.ParseLSN("9/E40000C8")
	c.Assert(err, quicktest.IsNil)

	name, err := Compute(1, lsn, 16<<20)
	c.Assert(err, quicktest.IsNil)
	c.Assert(name, quicktest.Equals, "0000000100000009000000E4")
}

func TestComputeRejectsBadSegmentSize(t *testing.T) {
	c := quicktest.New(t)

	_, err := Compute(1, 0, 3<<20)
	c.Assert(err, quicktest.ErrorMatches, "wal segment size .* is not a power of two.*")
}

func TestSegmentBoundaryNamesStartingSegment(t *testing.T) {
	c := quicktest.New(t)

	segSize := uint64(16 << 20)
	boundary := core.LSN(segSize * 5)

	name, err := Compute(1, boundary, segSize)
	c.Assert(err, quicktest.IsNil)

	oneByteBefore := core.LSN(segSize*5 - 1)
	nameBefore, err := Compute(1, oneByteBefore, segSize)
	c.Assert(err, quicktest.IsNil)

	c.Assert(name, quicktest.Not(quicktest.Equals), nameBefore)

	oneByteAfter, err := Compute(1, boundary+1, segSize)
	c.Assert(err, quicktest.IsNil)
	c.Assert(name, quicktest.Equals, oneByteAfter)
}

func TestRoundTrip(t *testing.T) {
	c := quicktest.New(t)

	for _, lsn := range []core.LSN{0, 1, 16 << 20, 0xFFFFFFFF, 0x9E40000C8, 0xFFFFFFFFFFFFFFFF} {
		name, err := Compute(7, lsn, 16<<20)
		c.Assert(err, quicktest.IsNil)

		seg, err := Parse(name)
		c.Assert(err, quicktest.IsNil)
		c.Assert(seg.TimelineID, quicktest.Equals, uint32(7))

		recomputed, err := Compute(seg.TimelineID, core.LSN((seg.LogicalID*256+seg.SegmentID)*(1<<24)), 16<<20)
		c.Assert(err, quicktest.IsNil)
		c.Assert(recomputed, quicktest.Equals, name)
	}
}

func TestParseRejectsWrongLength(t *testing.T) {
	c := quicktest.New(t)
	_, err := Parse("short")
	c.Assert(err, quicktest.ErrorMatches, "invalid wal filename.*")
}
