package manifeststore

import (
	"context"
	"testing"
	"time"

	"github.com/frankban/quicktest"

	"github.com/percona/pg-dr-sync/internal/compress"
	"github.com/percona/pg-dr-sync/internal/core"
	"github.com/percona/pg-dr-sync/internal/storage"
)

func TestPutGetListAndLatest(t *testing.T) {
	c := quicktest.New(t)
	ctx := context.Background()

	fs, err := storage.NewLocalFS(t.TempDir())
	c.Assert(err, quicktest.IsNil)

	store := New(fs, true, compress.CompressionTypeNone)

	older := &core.Manifest{RestorePoint: "sync_point_20260201_180000", Ready: true}
	newer := &core.Manifest{RestorePoint: "sync_point_20260201_181406", Ready: true}

	c.Assert(store.Put(ctx, older), quicktest.IsNil)
	c.Assert(store.Put(ctx, newer), quicktest.IsNil)

	names, err := store.List(ctx)
	c.Assert(err, quicktest.IsNil)
	c.Assert(names, quicktest.DeepEquals, []string{"sync_point_20260201_181406", "sync_point_20260201_180000"})

	got, err := store.Get(ctx, "sync_point_20260201_181406")
	c.Assert(err, quicktest.IsNil)
	c.Assert(got.Ready, quicktest.IsTrue)

	now := time.Date(2026, 2, 1, 18, 15, 0, 0, time.UTC)
	c.Assert(store.UpdateLatest(ctx, newer.RestorePoint, now), quicktest.IsNil)

	ptr, err := store.GetLatest(ctx)
	c.Assert(err, quicktest.IsNil)
	c.Assert(ptr.RestorePoint, quicktest.Equals, "sync_point_20260201_181406")
}

func TestCompressedRemoteRoundTrip(t *testing.T) {
	c := quicktest.New(t)
	ctx := context.Background()

	fs, err := storage.NewLocalFS(t.TempDir())
	c.Assert(err, quicktest.IsNil)

	store := New(fs, false, compress.CompressionTypeS2)

	m := &core.Manifest{RestorePoint: "sync_point_20260201_181406", Ready: true, TimelineID: 1}
	c.Assert(store.Put(ctx, m), quicktest.IsNil)

	got, err := store.Get(ctx, m.RestorePoint)
	c.Assert(err, quicktest.IsNil)
	c.Assert(got.RestorePoint, quicktest.Equals, m.RestorePoint)
	c.Assert(got.TimelineID, quicktest.Equals, 1)
}
