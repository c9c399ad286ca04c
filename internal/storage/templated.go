package storage

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// Templated is the remote-manifest-store variant: fetch and list are
// delegated to operator-supplied shell command templates (e.g. wrapping a
// remote-shell or object-store CLI).
// Substitution is literal text replacement of the named placeholders,
// shell-quoted for the subprocess boundary.
type Templated struct {
	Dir          string // used only to build {manifest_dir}/{manifest_path}
	FetchCommand string // template with {manifest_path}, {manifest_dir}, {manifest_file}
	ListCommand  string // template with {manifest_dir}
}

func (t *Templated) substitute(tmpl, file string) string {
	path := t.Dir
	if file != "" {
		path = t.Dir + "/" + file
	}
	r := strings.NewReplacer(
		"{manifest_path}", shellQuote(path),
		"{manifest_dir}", shellQuote(t.Dir),
		"{manifest_file}", shellQuote(file),
	)
	return r.Replace(tmpl)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (t *Templated) run(ctx context.Context, cmdline string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdline)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "run %q: %s", cmdline, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, errors.Errorf("run %q: empty output", cmdline)
	}
	return stdout.Bytes(), nil
}

// Get fetches a manifest via FetchCommand.
func (t *Templated) Get(ctx context.Context, name string) ([]byte, error) {
	if t.FetchCommand == "" {
		return nil, errors.Wrap(core.ErrConfig, "storage.manifest_fetch_command is not set")
	}
	b, err := t.run(ctx, t.substitute(t.FetchCommand, name))
	if err != nil {
		return nil, errors.Wrapf(core.ErrNotFound, "%s: %v", name, err)
	}
	return b, nil
}

// List lists manifest names via ListCommand, one name per output line.
func (t *Templated) List(ctx context.Context, prefix string) ([]string, error) {
	if t.ListCommand == "" {
		return nil, errors.Wrap(core.ErrConfig, "storage.manifest_list_command is not set")
	}
	b, err := t.run(ctx, t.substitute(t.ListCommand, ""))
	if err != nil {
		return nil, err
	}

	var names []string
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if prefix != "" && !strings.HasPrefix(line, prefix) {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

// Probe fetches the object and reports whether that succeeded. The remote
// CLI wrappers this templates around (rsync/scp/cloud-CLI) don't uniformly
// expose a cheap existence check, so probing costs a full fetch here.
func (t *Templated) Probe(ctx context.Context, name string) (bool, error) {
	_, err := t.Get(ctx, name)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Put is not supported: remote publication of a manifest produced locally
// is an external concern ("remote shell / object-store CLIs used
// for transport"), not something the templated reader should drive.
func (t *Templated) Put(context.Context, string, []byte) error {
	return errors.New("templated storage is read-only: put a manifest locally and publish it out-of-band")
}
