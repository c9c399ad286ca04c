// Package manifeststore implements the manifest store component: put,
// list, get of restore-point manifests, plus the LATEST pointer, atop a
// pluggable storage.Storage backend.
package manifeststore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/compress"
	"github.com/percona/pg-dr-sync/internal/core"
	"github.com/percona/pg-dr-sync/internal/storage"
)

const manifestSuffix = ".json"
const latestName = "LATEST.json"

// Store is the manifest store: every operation funnels through one
// storage.Storage backend.
type Store struct {
	backend     storage.Storage
	compression compress.CompressionType
	// local is true when backend is the local-filesystem variant, which
	// never compresses.
	local bool
}

// New builds a Store. local marks the backend as the local-filesystem
// variant (compression is skipped for it regardless of compression).
func New(backend storage.Storage, local bool, compression compress.CompressionType) *Store {
	return &Store{backend: backend, compression: compression, local: local}
}

func fileName(restorePoint string) string {
	return restorePoint + manifestSuffix
}

func (s *Store) codec() compress.CompressionType {
	if s.local {
		return compress.CompressionTypeNone
	}
	return s.compression
}

// Put writes a manifest. A manifest that is
// already Ready must never be passed here a second time; the caller (the
// publisher cycle) is responsible for that discipline. Put itself does not
// special-case Ready — it's a single atomic write either way.
func (s *Store) Put(ctx context.Context, m *core.Manifest) error {
	b, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal manifest")
	}

	enc, err := compress.Compress(b, s.codec())
	if err != nil {
		return errors.Wrap(err, "compress manifest")
	}

	return errors.Wrapf(s.backend.Put(ctx, fileName(m.RestorePoint), enc), "put manifest %s", m.RestorePoint)
}

// Get reads and decodes one manifest by restore point name.
func (s *Store) Get(ctx context.Context, restorePoint string) (*core.Manifest, error) {
	raw, err := s.backend.Get(ctx, fileName(restorePoint))
	if err != nil {
		return nil, errors.Wrapf(err, "get manifest %s", restorePoint)
	}

	b, err := s.decode(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "decode manifest %s", restorePoint)
	}

	m := &core.Manifest{}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, errors.Wrapf(err, "unmarshal manifest %s", restorePoint)
	}
	return m, nil
}

func (s *Store) decode(raw []byte) ([]byte, error) {
	if s.codec() == compress.CompressionTypeNone {
		return raw, nil
	}
	rd, err := compress.Decompress(bytes.NewReader(raw), s.codec())
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	return io.ReadAll(rd)
}

// List returns manifest names, newest-first by the embedded restore-point
// timestamp.
func (s *Store) List(ctx context.Context) ([]string, error) {
	names, err := s.backend.List(ctx, "sync_point_")
	if err != nil {
		return nil, errors.Wrap(err, "list manifests")
	}

	var points []string
	for _, n := range names {
		if len(n) > len(manifestSuffix) && n[len(n)-len(manifestSuffix):] == manifestSuffix {
			points = append(points, n[:len(n)-len(manifestSuffix)])
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(points)))
	return points, nil
}

// UpdateLatest atomically replaces the LATEST pointer. Callers must only
// call this after the named manifest is durably Ready ("LATEST
// is updated last, after the ready manifest is durable").
func (s *Store) UpdateLatest(ctx context.Context, restorePoint string, updatedAt time.Time) error {
	ptr := core.LatestPointer{
		RestorePoint: restorePoint,
		Path:         fileName(restorePoint),
		UpdatedAtUTC: updatedAt.UTC(),
	}
	b, err := json.Marshal(ptr)
	if err != nil {
		return errors.Wrap(err, "marshal latest pointer")
	}
	return errors.Wrap(s.backend.Put(ctx, latestName, b), "update latest pointer")
}

// GetLatest reads the LATEST pointer. Readers must tolerate a stale (older)
// value racing a concurrent publisher cycle.
func (s *Store) GetLatest(ctx context.Context) (*core.LatestPointer, error) {
	b, err := s.backend.Get(ctx, latestName)
	if err != nil {
		return nil, errors.Wrap(err, "get latest pointer")
	}
	ptr := &core.LatestPointer{}
	if err := json.Unmarshal(b, ptr); err != nil {
		return nil, errors.Wrap(err, "unmarshal latest pointer")
	}
	return ptr, nil
}
