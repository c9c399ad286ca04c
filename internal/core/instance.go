package core

// CoordinatorSegmentID is the reserved segment_id denoting the cluster
// coordinator rather than a content segment.
const CoordinatorSegmentID = -1

// Instance describes one member of the cluster: the coordinator
// (SegmentID == CoordinatorSegmentID) or a content segment.
type Instance struct {
	SegmentID int    `json:"segment_id"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	DataDir   string `json:"data_dir"`
	IsLocal   bool   `json:"is_local"`
	LogPath   string `json:"log_path"` // defaults to <data_dir>/log/postgresql.log when empty
}

// ResolvedLogPath returns LogPath, or its default under DataDir when unset.
func (i Instance) ResolvedLogPath() string {
	if i.LogPath != "" {
		return i.LogPath
	}
	return i.DataDir + "/log/postgresql.log"
}

// IsCoordinator reports whether the instance is the cluster coordinator.
func (i Instance) IsCoordinator() bool {
	return i.SegmentID == CoordinatorSegmentID
}
