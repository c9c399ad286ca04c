// Package evidence implements the evidence validator: reads a
// bounded tail of a DR instance's most recent server log and determines
// whether it halted at the intended restore point.
package evidence

import (
	"io"
	"os"
	"regexp"

	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// Verdict is the evidence validator's per-instance conclusion.
type Verdict string

const (
	OKByName   Verdict = "ok_by_name"
	OKByLSN    Verdict = "ok_by_lsn"
	WrongPoint Verdict = "wrong_point"
	NoEvidence Verdict = "no_evidence"
)

// Pass reports whether v counts toward the orchestrator's overall pass
// condition ("every instance must be ok_by_name or ok_by_lsn").
func (v Verdict) Pass() bool {
	return v == OKByName || v == OKByLSN
}

// DefaultWindowBytes is the bounded tail-read size when config doesn't
// override it.
const DefaultWindowBytes = 1 << 20

// signatureRE matches the canonical shutdown line, capturing the LSN.
var signatureRE = regexp.MustCompile(`recovery stopping after WAL location \(LSN\) ([0-9A-Fa-f]+/[0-9A-Fa-f]+)`)

// nameRE matches a restore-point name mentioned anywhere in the scanned
// window, when the server emits one; the first match is used.
var nameRE = regexp.MustCompile(`restore point "([^"]+)"`)

// Result is the outcome of validating one instance's log.
type Result struct {
	Verdict   Verdict
	ReplayLSN core.LSN
	FoundName string
	RawLine   string
}

// ValidateLog scans logPath's last windowBytes for the shutdown signature
// and classifies it against targetName/targetLSN.
func ValidateLog(logPath string, windowBytes int64, targetName string, targetLSN core.LSN) (Result, error) {
	window, err := tailRead(logPath, windowBytes)
	if err != nil {
		return Result{}, errors.Wrapf(err, "read log %s", logPath)
	}

	m := signatureRE.FindStringSubmatch(window)
	if m == nil {
		return Result{Verdict: NoEvidence}, nil
	}

	lsn, err := core.ParseLSN(m[1])
	if err != nil {
		return Result{Verdict: NoEvidence}, errors.Wrapf(err, "parse lsn in shutdown signature")
	}

	res := Result{ReplayLSN: lsn, RawLine: m[0]}

	if nm := nameRE.FindStringSubmatch(window); nm != nil {
		res.FoundName = nm[1]
		if nm[1] == targetName {
			res.Verdict = OKByName
		} else {
			res.Verdict = WrongPoint
		}
		return res, nil
	}

	if lsn == targetLSN {
		res.Verdict = OKByLSN
		return res, nil
	}

	res.Verdict = WrongPoint
	return res, nil
}

// tailRead reads the last n bytes of path (or the whole file, if smaller).
func tailRead(path string, n int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	start := int64(0)
	if info.Size() > n {
		start = info.Size() - n
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return "", err
	}

	b, err := io.ReadAll(f)
	return string(b), err
}
