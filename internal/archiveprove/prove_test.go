package archiveprove

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/frankban/quicktest"

	"github.com/percona/pg-dr-sync/internal/core"
)

func TestProveAllBuiltInLocalCheck(t *testing.T) {
	c := quicktest.New(t)
	dir := t.TempDir()

	c.Assert(os.WriteFile(filepath.Join(dir, "0000000100000009000000E4"), []byte("x"), 0o644), quicktest.IsNil)

	p := &Prover{ArchiveDir: dir}
	instances := []core.ManifestInstance{
		{SegmentID: -1, WALFilename: "0000000100000009000000E4"},
		{SegmentID: 0, WALFilename: "missing-file"},
	}

	out, err := p.ProveAll(context.Background(), instances)
	c.Assert(err, quicktest.IsNil)
	c.Assert(out[0].Present, quicktest.IsTrue)
	c.Assert(out[1].Present, quicktest.IsFalse)
}

func TestProveAllPerSegmentTemplateOverridesGlobal(t *testing.T) {
	c := quicktest.New(t)

	p := &Prover{
		GlobalTemplate:      "false",
		PerSegmentTemplates: map[int]string{0: "echo present"},
	}
	instances := []core.ManifestInstance{
		{SegmentID: -1, WALFilename: "a"},
		{SegmentID: 0, WALFilename: "b"},
	}

	out, err := p.ProveAll(context.Background(), instances)
	c.Assert(err, quicktest.IsNil)
	c.Assert(out[0].Present, quicktest.IsFalse, quicktest.Commentf("coordinator uses the global template, which fails"))
	c.Assert(out[1].Present, quicktest.IsTrue, quicktest.Commentf("segment 0 uses its own override"))
}

func TestProveAllVerifierFailureIsAbsentNotError(t *testing.T) {
	c := quicktest.New(t)

	p := &Prover{GlobalTemplate: "exit 1"}
	instances := []core.ManifestInstance{{SegmentID: 0, WALFilename: "a"}}

	out, err := p.ProveAll(context.Background(), instances)
	c.Assert(err, quicktest.IsNil)
	c.Assert(out[0].Present, quicktest.IsFalse)
}

func TestSubstitutePlaceholders(t *testing.T) {
	c := quicktest.New(t)

	inst := core.ManifestInstance{WALFilename: "f", Host: "seg0.example"}
	got := substitute("check {host} {archive_dir} {wal_filename} {wal_path}", "/archive", inst)
	c.Assert(got, quicktest.Equals, "check 'seg0.example' '/archive' 'f' '/archive/f'")
}
