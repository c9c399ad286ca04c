package core

import "github.com/pkg/errors"

// Error kinds returned by this system. Each is a plain sentinel wrapped with context
// by pkg/errors at the call site (errors.Wrap(ErrConnect, "dial primary")),
// and compared with errors.Is up the call stack.
var (
	ErrConfig                = errors.New("config error")
	ErrConnect               = errors.New("connect error")
	ErrTopologyMismatch      = errors.New("topology mismatch")
	ErrDuplicateRestorePoint = errors.New("duplicate restore point")
	ErrArchiveGap            = errors.New("archive gap")
	ErrFloorAboveTarget      = errors.New("floor above target")
	ErrApply                 = errors.New("apply error")
	ErrReachTimeout          = errors.New("reach timeout")
	ErrWrongPoint            = errors.New("wrong point")
	ErrNoEvidence            = errors.New("no evidence")

	// ErrNotFound is returned by the manifest store and receipt reader when
	// the named artifact doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownFloor signals a floor computer couldn't determine the
	// minimum recovery end location for an instance (neither live nor
	// offline inspection succeeded).
	ErrUnknownFloor = errors.New("floor unknown")
)
