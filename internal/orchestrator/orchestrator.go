// Package orchestrator drives every DR instance through the five
// barriered phases of one consumer run: configure, start, poll for
// reach, await shutdown, and validate.
package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/percona/pg-dr-sync/internal/core"
	"github.com/percona/pg-dr-sync/internal/evidence"
	"github.com/percona/pg-dr-sync/internal/logx"
	"github.com/percona/pg-dr-sync/internal/procctl"
)

// MaxWorkers is the hard worker cap imposed on every parallel pool in
// this system.
const MaxWorkers = 32

// InstanceController stops and starts an instance and reports its
// liveness and replay position. procctl.Controller is the production
// implementation; tests supply a fake.
type InstanceController interface {
	Stop(ctx context.Context, inst core.Instance) error
	Start(ctx context.Context, inst core.Instance) error
	Poll(ctx context.Context, inst core.Instance) (procctl.PollResult, error)
}

// ConfigApplier rewrites one instance's recovery configuration.
type ConfigApplier interface {
	Apply(inst core.Instance, target core.LSN) error
}

// Orchestrator runs one consumer attempt against a fixed set of
// instances and target LSNs.
type Orchestrator struct {
	Instances       []core.Instance
	Applier         ConfigApplier
	ProcCtl         InstanceController
	ReachPollEvery  time.Duration
	WaitReachCap    time.Duration
	LogWindowBytes  int64
	AllowBestEffort bool
	Log             *logx.Event
}

// perInstanceState tracks what's known about one instance across phases.
type perInstanceState struct {
	inst      core.Instance
	target    core.LSN
	reached   bool // observed replay_lsn >= target before going down
	down      bool
	replayLSN core.LSN
	verdict   evidence.Verdict
	rawLine   string
}

// Run drives instances through P1-P5 for one target restore point and
// returns the receipt plus whether current_restore_point.txt should
// advance to targetName.
func (o *Orchestrator) Run(ctx context.Context, runID, previousRestorePoint, targetName string, targetLSNs map[int]core.LSN) (*core.Receipt, bool) {
	start := time.Now()

	states := make([]*perInstanceState, len(o.Instances))
	for i, inst := range o.Instances {
		states[i] = &perInstanceState{inst: inst, target: targetLSNs[inst.SegmentID]}
	}

	receipt := &core.Receipt{
		CurrentRestorePoint: previousRestorePoint,
		TargetRestorePoint:  targetName,
		CheckedAtUTC:        time.Now().UTC(),
		Mode:                "shutdown",
		TargetLSNs:          targetLSNs,
		PerInstance:         map[int]core.InstanceEvidence{},
		RunID:               runID,
	}

	if err := o.phase1Configure(ctx, states); err != nil {
		receipt.Status = core.StatusAborted
		receipt.Error = err.Error()
		receipt.WaitedSecs = time.Since(start).Seconds()
		return receipt, false
	}

	if err := o.phase2Start(ctx, states); err != nil {
		receipt.Status = core.StatusAborted
		receipt.Error = err.Error()
		receipt.WaitedSecs = time.Since(start).Seconds()
		return receipt, false
	}

	waitCap := o.WaitReachCap
	if waitCap <= 0 {
		waitCap = 30 * time.Minute
	}
	reachCtx, cancel := context.WithTimeout(ctx, waitCap)
	defer cancel()

	timedOut := o.phase3PollReach(reachCtx, states)
	if timedOut {
		receipt.Status = core.StatusTimeout
		receipt.WaitedSecs = time.Since(start).Seconds()
		o.fillPerInstance(receipt, states)
		return receipt, false
	}

	o.phase4AwaitDown(reachCtx, states)

	o.phase5Validate(states, targetName)

	receipt.WaitedSecs = time.Since(start).Seconds()
	o.fillPerInstance(receipt, states)

	status, advance := o.classify(states)
	receipt.Status = status
	return receipt, advance
}

// phase1Configure stops each instance (if up) and applies the recovery
// configuration that targets it at its floor-satisfying LSN. Barrier:
// every instance is configured, none running, before phase 2 starts any.
func (o *Orchestrator) phase1Configure(ctx context.Context, states []*perInstanceState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxWorkers)
	for _, s := range states {
		s := s
		g.Go(func() error {
			if err := o.ProcCtl.Stop(gctx, s.inst); err != nil {
				o.logf(s.inst.SegmentID, "stop before configure: %v (continuing)", err)
			}
			return o.Applier.Apply(s.inst, s.target)
		})
	}
	return g.Wait()
}

// phase2Start launches every instance in standby recovery. Barrier:
// every instance has been started or the launch attempt has failed.
func (o *Orchestrator) phase2Start(ctx context.Context, states []*perInstanceState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxWorkers)
	for _, s := range states {
		s := s
		g.Go(func() error {
			return o.ProcCtl.Start(gctx, s.inst)
		})
	}
	return g.Wait()
}

// phase3PollReach polls every instance until its replay position reaches
// target or it goes DOWN, capped by ctx's deadline. Returns true if the
// cap expired before every instance settled.
func (o *Orchestrator) phase3PollReach(ctx context.Context, states []*perInstanceState) bool {
	interval := o.ReachPollEvery
	if interval <= 0 {
		interval = 5 * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxWorkers)
	for _, s := range states {
		s := s
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				res, err := o.ProcCtl.Poll(gctx, s.inst)
				if err == nil {
					if !res.Up {
						s.down = true
						return nil
					}
					s.replayLSN = res.ReplayLSN
					if res.ReplayLSN >= s.target {
						s.reached = true
						return nil
					}
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
				}
			}
		})
	}
	return g.Wait() != nil
}

// phase4AwaitDown waits for every instance that reached its target (but
// hasn't shut down yet) to actually go DOWN. Instances already DOWN from
// phase 3's "down before reach" path are already satisfied.
func (o *Orchestrator) phase4AwaitDown(ctx context.Context, states []*perInstanceState) {
	interval := o.ReachPollEvery
	if interval <= 0 {
		interval = 5 * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxWorkers)
	for _, s := range states {
		if s.down {
			continue
		}
		s := s
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				res, err := o.ProcCtl.Poll(gctx, s.inst)
				if err == nil && !res.Up {
					s.down = true
					return nil
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
				}
			}
		})
	}
	_ = g.Wait() // a still-up instance here is reported as such in P5's evidence
}

// phase5Validate inspects each DOWN instance's recent log for the
// shutdown signature and classifies the verdict.
func (o *Orchestrator) phase5Validate(states []*perInstanceState, targetName string) {
	windowBytes := o.LogWindowBytes
	if windowBytes <= 0 {
		windowBytes = evidence.DefaultWindowBytes
	}
	for _, s := range states {
		if !s.down {
			s.verdict = evidence.NoEvidence
			continue
		}
		res, err := evidence.ValidateLog(s.inst.ResolvedLogPath(), windowBytes, targetName, s.target)
		if err != nil {
			s.verdict = evidence.NoEvidence
			o.logf(s.inst.SegmentID, "validate log: %v", err)
			continue
		}
		s.verdict = res.Verdict
		s.rawLine = res.RawLine
		if res.ReplayLSN != 0 {
			s.replayLSN = res.ReplayLSN
		}
	}
}

func (o *Orchestrator) fillPerInstance(receipt *core.Receipt, states []*perInstanceState) {
	for _, s := range states {
		receipt.PerInstance[s.inst.SegmentID] = core.InstanceEvidence{
			ReplayLSN:   s.replayLSN,
			Down:        s.down,
			LogEvidence: s.rawLine,
		}
	}
}

// classify aggregates per-instance verdicts into an overall receipt
// status and reports whether current_restore_point.txt may advance.
func (o *Orchestrator) classify(states []*perInstanceState) (core.ReceiptStatus, bool) {
	allPass := true
	anyWrong := false
	allLSNOK := true
	for _, s := range states {
		if s.verdict == evidence.WrongPoint {
			anyWrong = true
		}
		if !s.verdict.Pass() {
			allPass = false
		}
		if s.replayLSN < s.target {
			allLSNOK = false
		}
	}

	if anyWrong {
		return core.StatusStoppedWrongPoint, false
	}
	if allPass {
		return core.StatusSuccess, true
	}
	// Remaining instances are no_evidence. Only advance state here when
	// the operator has opted in and every instance's last observed LSN
	// met its target.
	if o.AllowBestEffort && allLSNOK {
		return core.StatusReachedShutdownBestEffort, true
	}
	return core.StatusReachedShutdownBestEffort, false
}

func (o *Orchestrator) logf(segmentID int, format string, args ...any) {
	if o.Log == nil {
		return
	}
	o.Log.WithSegment(segmentID).Warning(format, args...)
}
