package core

import (
	"regexp"
	"time"

	"github.com/pkg/errors"
)

const restorePointLayout = "20060102_150405"

var restorePointRE = regexp.MustCompile(`^sync_point_(\d{8}_\d{6})$`)

// NewRestorePointName formats the UTC wall-clock time into the canonical
// "sync_point_YYYYMMDD_HHMMSS" name. Names are monotonically comparable as
// plain strings by construction.
func NewRestorePointName(at time.Time) string {
	return "sync_point_" + at.UTC().Format(restorePointLayout)
}

// ParseRestorePointTime extracts the embedded timestamp from a restore
// point name, for ordering and display. Returns an error if the name is
// not well-formed.
func ParseRestorePointTime(name string) (time.Time, error) {
	m := restorePointRE.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, errors.Errorf("not a restore point name: %q", name)
	}
	t, err := time.ParseInLocation(restorePointLayout, m[1], time.UTC)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse restore point name %q", name)
	}
	return t, nil
}

// IsRestorePointName reports whether name matches the restore point naming
// convention.
func IsRestorePointName(name string) bool {
	return restorePointRE.MatchString(name)
}
