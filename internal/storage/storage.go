// Package storage implements the pluggable storage capability set
// {probe, fetch, list, put} used by the manifest store (the archive
// prover's built-in local check stats the archive directory itself). Two
// variants cover the concrete backends this system targets: local filesystem and templated
// subprocess — and three more (S3, Azure Blob, Minio) extend the manifest
// store to the cloud/object-store backends deployments commonly use.
package storage

import "context"

// Storage is the capability set a backend exposes: probe an object's
// presence, fetch its bytes, list objects under a prefix, and atomically
// put new bytes under a name.
type Storage interface {
	// Put atomically stores data under name. Implementations must never
	// expose a partially written object to a concurrent Get/Probe.
	Put(ctx context.Context, name string, data []byte) error

	// Get retrieves the named object's bytes. Returns core.ErrNotFound if
	// it doesn't exist.
	Get(ctx context.Context, name string) ([]byte, error)

	// List returns object names under prefix. Order is backend-defined;
	// callers that need newest-first ordering (manifest listing) sort by
	// the embedded restore-point timestamp themselves.
	List(ctx context.Context, prefix string) ([]string, error)

	// Probe reports whether name exists, without necessarily fetching it.
	Probe(ctx context.Context, name string) (bool, error)
}
