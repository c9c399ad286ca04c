package pidfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/frankban/quicktest"
)

func TestWriteAndReadRoundTrip(t *testing.T) {
	c := quicktest.New(t)
	f := New(filepath.Join(t.TempDir(), "dr.pid"))

	c.Assert(f.Write(), quicktest.IsNil)
	pid, err := f.Read()
	c.Assert(err, quicktest.IsNil)
	c.Assert(pid, quicktest.Equals, os.Getpid())
}

func TestAliveIsTrueForOwnProcess(t *testing.T) {
	c := quicktest.New(t)
	f := New(filepath.Join(t.TempDir(), "dr.pid"))
	c.Assert(f.Write(), quicktest.IsNil)

	alive, pid, err := f.Alive()
	c.Assert(err, quicktest.IsNil)
	c.Assert(alive, quicktest.IsTrue)
	c.Assert(pid, quicktest.Equals, os.Getpid())
}

func TestAliveIsFalseWhenFileMissing(t *testing.T) {
	c := quicktest.New(t)
	f := New(filepath.Join(t.TempDir(), "missing.pid"))

	alive, _, err := f.Alive()
	c.Assert(err, quicktest.IsNil)
	c.Assert(alive, quicktest.IsFalse)
}

func TestAliveIsFalseForStalePID(t *testing.T) {
	c := quicktest.New(t)
	path := filepath.Join(t.TempDir(), "dr.pid")
	// 999999999 is far above any PID the OS hands out, so no live process
	// holds it; that stands in for a stale file without mocking the OS.
	c.Assert(os.WriteFile(path, []byte("999999999"), 0o644), quicktest.IsNil)

	f := New(path)
	alive, _, err := f.Alive()
	c.Assert(err, quicktest.IsNil)
	c.Assert(alive, quicktest.IsFalse)
}

func TestRemoveIsNotAnErrorWhenMissing(t *testing.T) {
	c := quicktest.New(t)
	f := New(filepath.Join(t.TempDir(), "missing.pid"))
	c.Assert(f.Remove(), quicktest.IsNil)
}

func TestStopIsNoOpForStalePID(t *testing.T) {
	c := quicktest.New(t)
	path := filepath.Join(t.TempDir(), "dr.pid")
	c.Assert(os.WriteFile(path, []byte("999999999"), 0o644), quicktest.IsNil)

	f := New(path)
	c.Assert(f.Stop(os.Interrupt), quicktest.IsNil)
}
