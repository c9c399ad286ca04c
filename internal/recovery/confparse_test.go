package recovery

import (
	"testing"

	"github.com/frankban/quicktest"
)

func TestRewriteKeysPreservesUnrelatedLines(t *testing.T) {
	c := quicktest.New(t)

	orig := "# a comment\nshared_buffers = 128MB\nrecovery_target_name = 'old_point'\n\nmax_connections = 100  # inline comment\n"

	out := rewriteKeys([]byte(orig), map[string]string{
		"recovery_target_lsn":    "9/EC0000C8",
		"recovery_target_action": "shutdown",
		"recovery_target_name":   "",
	})

	got := string(out)
	c.Assert(got, quicktest.Contains, "# a comment\n")
	c.Assert(got, quicktest.Contains, "shared_buffers = 128MB\n")
	c.Assert(got, quicktest.Contains, "max_connections = 100  # inline comment\n")
	c.Assert(got, quicktest.Contains, "recovery_target_name=''\n")
	c.Assert(got, quicktest.Contains, "recovery_target_lsn='9/EC0000C8'\n")
	c.Assert(got, quicktest.Contains, "recovery_target_action='shutdown'\n")
}

func TestRewriteKeysAppendsMissingKeys(t *testing.T) {
	c := quicktest.New(t)

	out := rewriteKeys([]byte("shared_buffers = 128MB\n"), map[string]string{
		"recovery_target_lsn": "9/EC0000C8",
	})

	c.Assert(string(out), quicktest.Contains, "shared_buffers = 128MB\n")
	c.Assert(string(out), quicktest.Contains, "recovery_target_lsn='9/EC0000C8'\n")
}

func TestRewriteKeysIdempotentOnSecondApply(t *testing.T) {
	c := quicktest.New(t)

	kv := map[string]string{"recovery_target_lsn": "9/EC0000C8"}
	once := rewriteKeys([]byte("a = 1\n"), kv)
	twice := rewriteKeys(once, kv)
	c.Assert(string(twice), quicktest.Equals, string(once))
}
