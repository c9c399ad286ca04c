package target

import (
	"testing"

	"github.com/frankban/quicktest"

	"github.com/percona/pg-dr-sync/internal/core"
)

func lsn(c *quicktest.C, s string) core.LSN {
	l, err := core.ParseLSN(s)
	c.Assert(err, quicktest.IsNil)
	return l
}

func twoInstanceManifest(c *quicktest.C, name, coordLSN, seg0LSN string) *core.Manifest {
	return &core.Manifest{
		RestorePoint: name,
		Ready:        true,
		Instances: []core.ManifestInstance{
			{SegmentID: -1, RestoreLSN: lsn(c, coordLSN), Present: true},
			{SegmentID: 0, RestoreLSN: lsn(c, seg0LSN), Present: true},
		},
	}
}

func TestSelectPicksLatestWhenItSatisfiesFloors(t *testing.T) {
	c := quicktest.New(t)

	latest := twoInstanceManifest(c, "sync_point_20260201_181406", "9/E40000C8", "9/EC0000C8")
	older := twoInstanceManifest(c, "sync_point_20260201_180000", "9/00000000", "9/00000000")

	floors := map[int]core.LSN{-1: lsn(c, "9/00000000"), 0: lsn(c, "9/00000000")}

	got, err := Select([]*core.Manifest{latest, older}, floors, []int{-1, 0}, "")
	c.Assert(err, quicktest.IsNil)
	c.Assert(got.RestorePoint, quicktest.Equals, latest.RestorePoint)
}

func TestSelectFallsBackToOlderManifestWhenLatestBelowFloor(t *testing.T) {
	c := quicktest.New(t)

	latest := twoInstanceManifest(c, "sync_point_20260201_181406", "9/E40000C8", "9/EC0000C8")
	older := twoInstanceManifest(c, "sync_point_20260201_180000", "A/00000000", "A/00000000")

	// floor on segment -1 is above latest's coordinator LSN, but older
	// satisfies it.
	floors := map[int]core.LSN{-1: lsn(c, "A/00000000"), 0: lsn(c, "9/00000000")}

	got, err := Select([]*core.Manifest{latest, older}, floors, []int{-1, 0}, "")
	c.Assert(err, quicktest.IsNil)
	c.Assert(got.RestorePoint, quicktest.Equals, older.RestorePoint)
}

func TestSelectErrorsWhenNoManifestSatisfiesFloors(t *testing.T) {
	c := quicktest.New(t)

	m := twoInstanceManifest(c, "sync_point_20260201_181406", "9/E40000C8", "9/EC0000C8")
	floors := map[int]core.LSN{-1: lsn(c, "F/00000000"), 0: lsn(c, "9/00000000")}

	_, err := Select([]*core.Manifest{m}, floors, []int{-1, 0}, "")
	c.Assert(err, quicktest.ErrorMatches, ".*floor above target.*")
}

func TestSelectUnknownFloorDisqualifies(t *testing.T) {
	c := quicktest.New(t)

	m := twoInstanceManifest(c, "sync_point_20260201_181406", "9/E40000C8", "9/EC0000C8")
	floors := map[int]core.LSN{-1: lsn(c, "0/00000000")} // segment 0 floor unknown

	_, err := Select([]*core.Manifest{m}, floors, []int{-1, 0}, "")
	c.Assert(err, quicktest.ErrorMatches, ".*floor above target.*")
}

func TestSelectExplicitTargetHardErrorsOnFloorViolation(t *testing.T) {
	c := quicktest.New(t)

	m := twoInstanceManifest(c, "sync_point_20260201_180000", "9/E40000C8", "9/EC0000C8")
	floors := map[int]core.LSN{-1: lsn(c, "A/00000000"), 0: lsn(c, "0/00000000")}

	_, err := Select([]*core.Manifest{m}, floors, []int{-1, 0}, "sync_point_20260201_180000")
	c.Assert(err, quicktest.ErrorMatches, ".*floor above target.*")
}

func TestSelectExplicitTargetNotFound(t *testing.T) {
	c := quicktest.New(t)

	m := twoInstanceManifest(c, "sync_point_20260201_180000", "9/E40000C8", "9/EC0000C8")

	_, err := Select([]*core.Manifest{m}, nil, []int{-1, 0}, "sync_point_does_not_exist")
	c.Assert(err, quicktest.ErrorMatches, ".*not found.*")
}

func TestSelectTopologyMismatch(t *testing.T) {
	c := quicktest.New(t)

	m := twoInstanceManifest(c, "sync_point_20260201_180000", "9/E40000C8", "9/EC0000C8")
	floors := map[int]core.LSN{-1: 0, 0: 0, 1: 0}

	_, err := Select([]*core.Manifest{m}, floors, []int{-1, 0, 1}, "")
	c.Assert(err, quicktest.ErrorMatches, ".*topology mismatch.*")
}
