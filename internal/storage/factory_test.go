package storage

import (
	"testing"

	"github.com/frankban/quicktest"
)

func TestNewDefaultsToLocal(t *testing.T) {
	c := quicktest.New(t)
	s, err := New(Config{Dir: t.TempDir()})
	c.Assert(err, quicktest.IsNil)
	_, ok := s.(*LocalFS)
	c.Assert(ok, quicktest.IsTrue)
}

func TestNewTemplatedWiresCommands(t *testing.T) {
	c := quicktest.New(t)
	s, err := New(Config{Kind: "templated", FetchCommand: "cat {manifest_path}", ListCommand: "ls {manifest_dir}"})
	c.Assert(err, quicktest.IsNil)
	tmpl, ok := s.(*Templated)
	c.Assert(ok, quicktest.IsTrue)
	c.Assert(tmpl.FetchCommand, quicktest.Equals, "cat {manifest_path}")
}

func TestNewUnknownKindErrors(t *testing.T) {
	c := quicktest.New(t)
	_, err := New(Config{Kind: "carrier-pigeon"})
	c.Assert(err, quicktest.IsNotNil)
}
