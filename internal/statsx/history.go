// Package statsx computes summary statistics over historical receipts,
// feeding the "status --include-history" CLI output.
package statsx

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// Summary is the aggregate over a set of receipts.
type Summary struct {
	Count          int     `json:"count"`
	SuccessCount   int     `json:"success_count"`
	SuccessRatio   float64 `json:"success_ratio"`
	MeanWaitedSecs float64 `json:"mean_waited_secs"`
	P95WaitedSecs  float64 `json:"p95_waited_secs"`
}

// LoadReceipts reads every "*.receipt.json" file under dir, newest first
// by CheckedAtUTC, capped at limit (0 means unlimited).
func LoadReceipts(dir string, limit int) ([]*core.Receipt, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read receipts dir %s", dir)
	}

	var out []*core.Receipt
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".receipt.json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", e.Name())
		}
		var r core.Receipt
		if err := json.Unmarshal(b, &r); err != nil {
			return nil, errors.Wrapf(err, "parse %s", e.Name())
		}
		out = append(out, &r)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CheckedAtUTC.After(out[j].CheckedAtUTC)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Summarize computes the waited-time mean/p95 and success ratio across
// receipts. An empty receipt set yields a zero Summary, not an error.
func Summarize(receipts []*core.Receipt) (Summary, error) {
	s := Summary{Count: len(receipts)}
	if len(receipts) == 0 {
		return s, nil
	}

	waited := make(stats.Float64Data, 0, len(receipts))
	for _, r := range receipts {
		waited = append(waited, r.WaitedSecs)
		if r.Status.SuccessClass() {
			s.SuccessCount++
		}
	}
	s.SuccessRatio = float64(s.SuccessCount) / float64(s.Count)

	mean, err := waited.Mean()
	if err != nil {
		return Summary{}, errors.Wrap(err, "compute mean waited_secs")
	}
	s.MeanWaitedSecs = mean

	p95, err := waited.Percentile(95)
	if err != nil {
		return Summary{}, errors.Wrap(err, "compute p95 waited_secs")
	}
	s.P95WaitedSecs = p95

	return s, nil
}
