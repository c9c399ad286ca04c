package core

import "time"

// ManifestInstance is one instance's evidence entry within a manifest.
type ManifestInstance struct {
	SegmentID         int    `json:"segment_id"`
	Host              string `json:"host"`
	Port              int    `json:"port"`
	DataDir           string `json:"data_dir"`
	RestoreLSN        LSN    `json:"restore_lsn"`
	WALFilename       string `json:"wal_filename"`
	ArchiveSourceHost string `json:"archive_source_host"`
	ArchiveSourcePath string `json:"archive_source_path"`
	Present           bool   `json:"present"`
}

// Manifest is the immutable-after-ready JSON document describing one
// restore point. Callers must treat a manifest with
// Ready == true as frozen: no field may be mutated again once observed
// ready. The manifest store does not check this; the publisher writes
// each manifest once, under a freshly generated restore-point name.
type Manifest struct {
	RestorePoint string             `json:"restore_point"`
	CreatedAtUTC time.Time          `json:"created_at_utc"`
	TimelineID   int                `json:"timeline_id"`
	Ready        bool               `json:"ready"`
	Instances    []ManifestInstance `json:"instances"`
}

// AllPresent reports whether every instance in the manifest is present.
// A manifest with no instances is never all-present. The publisher sets
// Ready from AllPresent() after the archive prover's probing pass.
func (m *Manifest) AllPresent() bool {
	for _, i := range m.Instances {
		if !i.Present {
			return false
		}
	}
	return len(m.Instances) > 0
}

// InstanceBySegment looks up an instance's evidence entry by segment_id.
func (m *Manifest) InstanceBySegment(segmentID int) (*ManifestInstance, bool) {
	for i := range m.Instances {
		if m.Instances[i].SegmentID == segmentID {
			return &m.Instances[i], true
		}
	}
	return nil, false
}

// TargetLSNs returns the per-segment restore LSNs as a plain map, the form
// receipts and the target selector consume.
func (m *Manifest) TargetLSNs() map[int]LSN {
	out := make(map[int]LSN, len(m.Instances))
	for _, i := range m.Instances {
		out[i.SegmentID] = i.RestoreLSN
	}
	return out
}

// LatestPointer is the small pointer document naming the newest READY
// manifest. The manifest store keeps it as LATEST.json in the same
// backend as the manifests; storage.latest_path is not read.
type LatestPointer struct {
	RestorePoint string    `json:"restore_point"`
	Path         string    `json:"path"`
	UpdatedAtUTC time.Time `json:"updated_at_utc"`
}
