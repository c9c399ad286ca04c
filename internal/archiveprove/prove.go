// Package archiveprove implements the archive prover: for each
// manifest instance, runs an archive verifier and records present/absent,
// fanned out across instances with a bounded worker pool.
package archiveprove

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/percona/pg-dr-sync/internal/core"
	"github.com/percona/pg-dr-sync/internal/logx"
)

// MaxWorkers is the hard worker cap imposed on every parallel
// pool in this system.
const MaxWorkers = 32

// Prover probes WAL-file presence for every instance in a manifest.
type Prover struct {
	// ArchiveDir is the built-in local-filesystem verifier's root.
	ArchiveDir string
	// GlobalTemplate is the fallback verifier template, used when a
	// segment has no per-segment override.
	GlobalTemplate string
	// PerSegmentTemplates overrides GlobalTemplate for specific segments.
	PerSegmentTemplates map[int]string

	Log *logx.Event
}

// template resolves the verifier precedence: (a) per-segment
// override, (b) global template, (c) "" meaning the built-in local check.
func (p *Prover) template(segmentID int) string {
	if t, ok := p.PerSegmentTemplates[segmentID]; ok && t != "" {
		return t
	}
	return p.GlobalTemplate
}

// ProveAll probes every instance in parallel (cap MaxWorkers) and returns
// the updated instance list with Present set. Individual absent files or
// verifier failures never abort the pass — only an unrecoverable error
// (e.g. the context being cancelled) does, matching the "fail-fast at
// the manifest level but per-instance tolerant" rule. Here "fail-fast at
// the manifest level" only fires on such unrecoverable errors; a normal
// absent result always lets the other probes run to completion so a
// single probing pass gets a complete, consistent present/absent picture.
func (p *Prover) ProveAll(ctx context.Context, instances []core.ManifestInstance) ([]core.ManifestInstance, error) {
	out := make([]core.ManifestInstance, len(instances))
	copy(out, instances)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxWorkers)

	for i := range out {
		i := i
		g.Go(func() error {
			present, err := p.probe(gctx, out[i])
			if err != nil {
				return err
			}
			out[i].Present = present
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// probe runs the resolved verifier for one instance. A verifier process
// that fails or returns an ambiguous result is treated as absent and
// logged, never as a hard error.
func (p *Prover) probe(ctx context.Context, inst core.ManifestInstance) (bool, error) {
	tmpl := p.template(inst.SegmentID)
	if tmpl == "" {
		return p.probeLocal(inst)
	}

	cmdline := substitute(tmpl, p.ArchiveDir, inst)

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdline)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		if p.Log != nil {
			p.Log.WithSegment(inst.SegmentID).Warning("verifier failed for %s: %v (stderr: %s)", inst.WALFilename, err, stderr.String())
		}
		return false, nil
	}
	if stdout.Len() == 0 {
		if p.Log != nil {
			p.Log.WithSegment(inst.SegmentID).Warning("verifier returned empty output for %s", inst.WALFilename)
		}
		return false, nil
	}
	return true, nil
}

func (p *Prover) probeLocal(inst core.ManifestInstance) (bool, error) {
	path := filepath.Join(p.ArchiveDir, inst.WALFilename)
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		if p.Log != nil {
			p.Log.WithSegment(inst.SegmentID).Warning("stat %s: %v", path, err)
		}
		return false, nil
	}
	return true, nil
}

// substitute performs literal placeholder substitution, shell-quoted for
// the verifier process boundary.
func substitute(tmpl, archiveDir string, inst core.ManifestInstance) string {
	walPath := filepath.Join(archiveDir, inst.WALFilename)
	r := strings.NewReplacer(
		"{archive_dir}", shellQuote(archiveDir),
		"{wal_filename}", shellQuote(inst.WALFilename),
		"{wal_path}", shellQuote(walPath),
		"{host}", shellQuote(inst.Host),
	)
	return r.Replace(tmpl)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
