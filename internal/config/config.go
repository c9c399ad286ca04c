// Package config loads the single JSON configuration document whose keys
// are the JSON tags of Config and its section types below.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// Primary is the connection info for the Primary coordinator plus the
// publisher daemon's own lifecycle file paths.
type Primary struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	DB      string `json:"db"`
	User    string `json:"user"`
	PIDFile string `json:"pid_file"`
	LogFile string `json:"log_file"`
}

// Storage configures the manifest store.
type Storage struct {
	ManifestDir          string `json:"manifest_dir"`
	LatestPath           string `json:"latest_path"`
	ManifestFetchCommand string `json:"manifest_fetch_command"`
	ManifestListCommand  string `json:"manifest_list_command"`
	Kind                 string `json:"kind"` // "local", "s3", "azure", "minio", "templated"; empty = local
	Bucket               string `json:"bucket"`
	Prefix               string `json:"prefix"`
	Region               string `json:"region"`
	Endpoint             string `json:"endpoint"`
	Compression          string `json:"compression"` // "", "gzip", "snappy", "lz4", "s2"
}

// Archive configures the WAL archive and its verifier.
type Archive struct {
	ArchiveDir string `json:"archive_dir"`
}

// DR configures the consumer side.
type DR struct {
	StateDir    string          `json:"state_dir"`
	ReceiptsDir string          `json:"receipts_dir"`
	GPHome      string          `json:"gp_home"`
	Instances   []core.Instance `json:"instances"`
	PIDFile     string          `json:"pid_file"`
	LogFile     string          `json:"log_file"`
}

// StatePath returns the path of current_restore_point.txt under StateDir.
func (d DR) StatePath() string {
	return filepath.Join(d.StateDir, "current_restore_point.txt")
}

// SegmentIDs returns the configured DR instances' segment_ids, in the
// order they appear in Instances.
func (d DR) SegmentIDs() []int {
	out := make([]int, len(d.Instances))
	for i, inst := range d.Instances {
		out[i] = inst.SegmentID
	}
	return out
}

// Behavior configures timing and algorithmic knobs.
type Behavior struct {
	PublisherSleepSecs     int            `json:"publisher_sleep_secs"`
	ConsumerSleepSecs      int            `json:"consumer_sleep_secs"`
	ConsumerReachPollSecs  int            `json:"consumer_reach_poll_secs"`
	ConsumerWaitReachSecs  int            `json:"consumer_wait_reach_secs"`
	WALSegmentSizeMB       int            `json:"wal_segment_size_mb"`
	WALCheckCommand        string         `json:"wal_check_command"`
	WALCheckCommands       map[int]string `json:"wal_check_commands"`
	LogWindowBytes         int64          `json:"log_window_bytes"`
	AllowBestEffortSuccess bool           `json:"allow_best_effort_success"`
	LogLevel               string         `json:"log_level"`
	InstanceStopCommand    string         `json:"instance_stop_command"`
	InstanceStopCommands   map[int]string `json:"instance_stop_commands"`
	InstanceStartCommand   string         `json:"instance_start_command"`
	InstanceStartCommands  map[int]string `json:"instance_start_commands"`
	OfflineInspectCommand  string         `json:"offline_inspect_command"`
	InstanceDB             string         `json:"instance_db"`
}

// Config is the root configuration document, loaded once at startup.
type Config struct {
	Primary  Primary  `json:"primary"`
	Storage  Storage  `json:"storage"`
	Archive  Archive  `json:"archive"`
	DR       DR       `json:"dr"`
	Behavior Behavior `json:"behavior"`
}

// defaults applied after parse.
func (c *Config) applyDefaults() {
	if c.Behavior.PublisherSleepSecs == 0 {
		c.Behavior.PublisherSleepSecs = 60
	}
	if c.Behavior.ConsumerSleepSecs == 0 {
		c.Behavior.ConsumerSleepSecs = 60
	}
	if c.Behavior.ConsumerReachPollSecs == 0 {
		c.Behavior.ConsumerReachPollSecs = 5
	}
	if c.Behavior.ConsumerWaitReachSecs == 0 {
		c.Behavior.ConsumerWaitReachSecs = 1800
	}
	if c.Behavior.WALSegmentSizeMB == 0 {
		c.Behavior.WALSegmentSizeMB = 64
	}
	if c.Behavior.LogWindowBytes == 0 {
		c.Behavior.LogWindowBytes = 1 << 20
	}
	if c.Behavior.LogLevel == "" {
		c.Behavior.LogLevel = "info"
	}
	if c.Storage.LatestPath == "" && c.Storage.ManifestDir != "" {
		c.Storage.LatestPath = c.Storage.ManifestDir + "/LATEST.json"
	}
	if c.Behavior.InstanceDB == "" {
		c.Behavior.InstanceDB = "postgres"
	}
	if c.Primary.PIDFile == "" {
		c.Primary.PIDFile = "/var/run/pgdrsync-primary.pid"
	}
	if c.DR.PIDFile == "" {
		c.DR.PIDFile = "/var/run/pgdrsync-dr.pid"
	}
}

// Load reads and parses the JSON configuration document at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(core.ErrConfig, "read %s: %v", path, err)
	}

	c := &Config{}
	if err := json.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(core.ErrConfig, "parse %s: %v", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	c.applyDefaults()
	return c, nil
}

// Validate checks the structural and cross-field invariants this system
// require before the config is usable.
func (c *Config) Validate() error {
	if c.Primary.Host == "" {
		return errors.Wrap(core.ErrConfig, "primary.host is required")
	}
	remoteObjectKind := c.Storage.Kind == "s3" || c.Storage.Kind == "azure" || c.Storage.Kind == "minio"
	if remoteObjectKind && c.Storage.Bucket == "" {
		return errors.Wrap(core.ErrConfig, "storage.bucket is required for remote storage kinds")
	}
	if c.Storage.Kind == "templated" && c.Storage.ManifestFetchCommand == "" {
		return errors.Wrap(core.ErrConfig, "storage.manifest_fetch_command is required for storage.kind=templated")
	}
	if sz := c.Behavior.WALSegmentSizeMB; sz != 0 && !isPowerOfTwoMB(sz) {
		return errors.Wrap(core.ErrConfig, "behavior.wal_segment_size_mb must be a power of two between 1 and 1024")
	}
	seen := map[int]bool{}
	for _, inst := range c.DR.Instances {
		if seen[inst.SegmentID] {
			return errors.Wrapf(core.ErrConfig, "duplicate dr.instances segment_id %d", inst.SegmentID)
		}
		seen[inst.SegmentID] = true
	}
	return nil
}

func isPowerOfTwoMB(mb int) bool {
	if mb < 1 || mb > 1024 {
		return false
	}
	return mb&(mb-1) == 0
}
