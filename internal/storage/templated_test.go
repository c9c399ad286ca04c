package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/frankban/quicktest"

	"github.com/percona/pg-dr-sync/internal/core"
)

func TestTemplatedGetRunsFetchCommand(t *testing.T) {
	c := quicktest.New(t)
	dir := t.TempDir()
	c.Assert(os.WriteFile(filepath.Join(dir, "sync_point_a.json"), []byte(`{"ready":true}`), 0o644), quicktest.IsNil)

	tmpl := &Templated{Dir: dir, FetchCommand: "cat {manifest_path}"}
	b, err := tmpl.Get(context.Background(), "sync_point_a.json")
	c.Assert(err, quicktest.IsNil)
	c.Assert(string(b), quicktest.Equals, `{"ready":true}`)
}

func TestTemplatedGetMissingFileIsNotFound(t *testing.T) {
	c := quicktest.New(t)
	tmpl := &Templated{Dir: t.TempDir(), FetchCommand: "cat {manifest_path}"}
	_, err := tmpl.Get(context.Background(), "missing.json")
	c.Assert(errors.Is(err, core.ErrNotFound), quicktest.IsTrue)
}

func TestTemplatedListParsesOneNamePerLine(t *testing.T) {
	c := quicktest.New(t)
	tmpl := &Templated{Dir: t.TempDir(), ListCommand: "printf 'sync_point_a.json\\nsync_point_b.json\\n'"}
	names, err := tmpl.List(context.Background(), "")
	c.Assert(err, quicktest.IsNil)
	c.Assert(names, quicktest.DeepEquals, []string{"sync_point_a.json", "sync_point_b.json"})
}

func TestTemplatedPutIsUnsupported(t *testing.T) {
	c := quicktest.New(t)
	tmpl := &Templated{Dir: t.TempDir()}
	err := tmpl.Put(context.Background(), "x.json", []byte("{}"))
	c.Assert(err, quicktest.IsNotNil)
}

func TestTemplatedWithoutFetchCommandIsConfigError(t *testing.T) {
	c := quicktest.New(t)
	tmpl := &Templated{Dir: t.TempDir()}
	_, err := tmpl.Get(context.Background(), "x.json")
	c.Assert(errors.Is(err, core.ErrConfig), quicktest.IsTrue)
}
