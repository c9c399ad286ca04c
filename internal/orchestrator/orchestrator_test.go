package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/frankban/quicktest"

	"github.com/percona/pg-dr-sync/internal/core"
	"github.com/percona/pg-dr-sync/internal/procctl"
)

type fakeApplier struct{}

func (fakeApplier) Apply(core.Instance, core.LSN) error { return nil }

// fakeController serves a scripted sequence of poll results per segment;
// the last entry repeats once exhausted.
type fakeController struct {
	mu      sync.Mutex
	scripts map[int][]procctl.PollResult
	calls   map[int]int
}

func newFakeController() *fakeController {
	return &fakeController{scripts: map[int][]procctl.PollResult{}, calls: map[int]int{}}
}

func (f *fakeController) Stop(context.Context, core.Instance) error  { return nil }
func (f *fakeController) Start(context.Context, core.Instance) error { return nil }

func (f *fakeController) Poll(_ context.Context, inst core.Instance) (procctl.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	script := f.scripts[inst.SegmentID]
	i := f.calls[inst.SegmentID]
	if i >= len(script) {
		i = len(script) - 1
	}
	f.calls[inst.SegmentID] = f.calls[inst.SegmentID] + 1
	return script[i], nil
}

func writeLog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "postgresql.log")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunSucceedsWhenAllInstancesStopAtTarget(t *testing.T) {
	c := quicktest.New(t)
	target0, _ := core.ParseLSN("9/EC0000C8")
	targetNeg1, _ := core.ParseLSN("9/E40000C8")

	ctrl := newFakeController()
	ctrl.scripts[0] = []procctl.PollResult{{Up: false}}
	ctrl.scripts[-1] = []procctl.PollResult{{Up: false}}

	inst0 := core.Instance{SegmentID: 0, LogPath: writeLog(t, "LOG:  recovery stopping after WAL location (LSN) 9/EC0000C8\n")}
	instNeg1 := core.Instance{SegmentID: -1, LogPath: writeLog(t, "LOG:  recovery stopping after WAL location (LSN) 9/E40000C8\n")}

	o := &Orchestrator{
		Instances:      []core.Instance{inst0, instNeg1},
		Applier:        fakeApplier{},
		ProcCtl:        ctrl,
		ReachPollEvery: time.Millisecond,
		WaitReachCap:   time.Second,
	}

	receipt, advance := o.Run(context.Background(), "run-1", "sync_point_old", "sync_point_new", map[int]core.LSN{0: target0, -1: targetNeg1})
	c.Assert(advance, quicktest.IsTrue)
	c.Assert(receipt.Status, quicktest.Equals, core.StatusSuccess)
	c.Assert(receipt.PerInstance[0].Down, quicktest.IsTrue)
}

func TestRunTimesOutWhenInstanceNeverSettles(t *testing.T) {
	c := quicktest.New(t)
	target, _ := core.ParseLSN("9/EC0000C8")

	ctrl := newFakeController()
	ctrl.scripts[0] = []procctl.PollResult{{Up: true, ReplayLSN: 0}}

	inst := core.Instance{SegmentID: 0, LogPath: writeLog(t, "")}

	o := &Orchestrator{
		Instances:      []core.Instance{inst},
		Applier:        fakeApplier{},
		ProcCtl:        ctrl,
		ReachPollEvery: time.Millisecond,
		WaitReachCap:   20 * time.Millisecond,
	}

	receipt, advance := o.Run(context.Background(), "run-2", "sync_point_old", "sync_point_new", map[int]core.LSN{0: target})
	c.Assert(advance, quicktest.IsFalse)
	c.Assert(receipt.Status, quicktest.Equals, core.StatusTimeout)
}

func TestRunDownBeforeReachWithNameMatchSucceeds(t *testing.T) {
	c := quicktest.New(t)
	target, _ := core.ParseLSN("9/EC0000C8")

	ctrl := newFakeController()
	// Reports down immediately, before reaching target LSN.
	ctrl.scripts[0] = []procctl.PollResult{{Up: false}}

	inst := core.Instance{SegmentID: 0, LogPath: writeLog(t, "LOG:  recovery stopping after WAL location (LSN) 9/EB000000\nLOG:  recovery has paused at restore point \"sync_point_new\"\n")}

	o := &Orchestrator{
		Instances:      []core.Instance{inst},
		Applier:        fakeApplier{},
		ProcCtl:        ctrl,
		ReachPollEvery: time.Millisecond,
		WaitReachCap:   time.Second,
	}

	receipt, advance := o.Run(context.Background(), "run-3", "sync_point_old", "sync_point_new", map[int]core.LSN{0: target})
	c.Assert(advance, quicktest.IsTrue)
	c.Assert(receipt.Status, quicktest.Equals, core.StatusSuccess)
}

func TestRunWrongPointFailsWithoutAdvance(t *testing.T) {
	c := quicktest.New(t)
	target, _ := core.ParseLSN("9/EC0000C8")

	ctrl := newFakeController()
	ctrl.scripts[0] = []procctl.PollResult{{Up: false}}

	inst := core.Instance{SegmentID: 0, LogPath: writeLog(t, "LOG:  recovery stopping after WAL location (LSN) 9/AA000000\nLOG:  recovery has paused at restore point \"sync_point_other\"\n")}

	o := &Orchestrator{
		Instances:      []core.Instance{inst},
		Applier:        fakeApplier{},
		ProcCtl:        ctrl,
		ReachPollEvery: time.Millisecond,
		WaitReachCap:   time.Second,
	}

	receipt, advance := o.Run(context.Background(), "run-4", "sync_point_old", "sync_point_new", map[int]core.LSN{0: target})
	c.Assert(advance, quicktest.IsFalse)
	c.Assert(receipt.Status, quicktest.Equals, core.StatusStoppedWrongPoint)
}

func TestRunNoEvidenceAdvancesOnlyWhenBestEffortAllowedAndLSNMet(t *testing.T) {
	c := quicktest.New(t)
	target, _ := core.ParseLSN("9/EC0000C8")

	ctrl := newFakeController()
	ctrl.scripts[0] = []procctl.PollResult{{Up: true, ReplayLSN: target}, {Up: false}}

	inst := core.Instance{SegmentID: 0, LogPath: writeLog(t, "LOG:  database system is ready to accept connections\n")}

	mk := func(allowBestEffort bool) *Orchestrator {
		return &Orchestrator{
			Instances:       []core.Instance{inst},
			Applier:         fakeApplier{},
			ProcCtl:         ctrl,
			ReachPollEvery:  time.Millisecond,
			WaitReachCap:    time.Second,
			AllowBestEffort: allowBestEffort,
		}
	}

	receipt, advance := mk(false).Run(context.Background(), "run-5", "sync_point_old", "sync_point_new", map[int]core.LSN{0: target})
	c.Assert(advance, quicktest.IsFalse)
	c.Assert(receipt.Status, quicktest.Equals, core.StatusReachedShutdownBestEffort)

	ctrl.calls = map[int]int{}
	receipt, advance = mk(true).Run(context.Background(), "run-6", "sync_point_old", "sync_point_new", map[int]core.LSN{0: target})
	c.Assert(advance, quicktest.IsTrue)
	c.Assert(receipt.Status, quicktest.Equals, core.StatusReachedShutdownBestEffort)
}
