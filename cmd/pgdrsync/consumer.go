package main

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/config"
	"github.com/percona/pg-dr-sync/internal/core"
	"github.com/percona/pg-dr-sync/internal/floor"
	"github.com/percona/pg-dr-sync/internal/logx"
	"github.com/percona/pg-dr-sync/internal/orchestrator"
	"github.com/percona/pg-dr-sync/internal/pidfile"
	"github.com/percona/pg-dr-sync/internal/procctl"
	"github.com/percona/pg-dr-sync/internal/receipt"
	"github.com/percona/pg-dr-sync/internal/recovery"
	"github.com/percona/pg-dr-sync/internal/statefile"
	"github.com/percona/pg-dr-sync/internal/target"
)

// exitCode values shared by every dr subcommand.
const (
	exitOK           = 0
	exitFailure      = 1
	exitConfig       = 2
	exitNotAvailable = 3
	exitNotAdvanced  = 4
)

func drRun(cfg *config.Config, log *logx.Event, once bool, explicitTarget string) int {
	pf := pidfile.New(cfg.DR.PIDFile)
	if err := pf.Write(); err != nil {
		log.Error("write pid file: %v", err)
		return exitFailure
	}
	defer pf.Remove()

	code := exitOK
	for {
		code = consumeOnce(context.Background(), cfg, log, explicitTarget)
		if once {
			return code
		}
		time.Sleep(time.Duration(cfg.Behavior.ConsumerSleepSecs) * time.Second)
	}
}

// consumeOnce runs one consumer attempt: pick a target manifest, drive
// every DR instance through it, and record the outcome.
func consumeOnce(ctx context.Context, cfg *config.Config, log *logx.Event, explicitTarget string) int {
	store, err := openManifestStore(cfg)
	if err != nil {
		log.Error("open manifest store: %v", err)
		return exitFailure
	}

	names, err := store.List(ctx)
	if err != nil {
		log.Error("list manifests: %v", err)
		return exitFailure
	}

	var ready []*core.Manifest
	for _, name := range names {
		m, err := store.Get(ctx, name)
		if err != nil {
			log.Warning("get manifest %s: %v", name, err)
			continue
		}
		if m.Ready {
			ready = append(ready, m)
		}
	}

	fc := &floor.Computer{OfflineInspectCommand: cfg.Behavior.OfflineInspectCommand}
	floors := resolveFloors(ctx, cfg, fc)

	picked, err := target.Select(ready, floors, cfg.DR.SegmentIDs(), explicitTarget)
	if err != nil {
		log.Warning("select target: %v", err)
		if errors.Is(err, core.ErrFloorAboveTarget) || errors.Is(err, core.ErrNotFound) {
			return exitNotAvailable
		}
		if errors.Is(err, core.ErrTopologyMismatch) {
			return exitConfig
		}
		return exitFailure
	}

	sf := statefile.New(statePath(cfg))
	previous, err := sf.Read()
	if err != nil {
		log.Error("read state file: %v", err)
		return exitFailure
	}
	if previous == picked.RestorePoint {
		log.Info("already at %s, nothing to do", picked.RestorePoint)
		return exitOK
	}

	runID := uuid.NewString()
	runLog := log.WithRun(runID)

	orch := &orchestrator.Orchestrator{
		Instances: cfg.DR.Instances,
		Applier:   &recovery.Applier{},
		ProcCtl: &procctl.Controller{
			StopCommand:   cfg.Behavior.InstanceStopCommand,
			StopCommands:  cfg.Behavior.InstanceStopCommands,
			StartCommand:  cfg.Behavior.InstanceStartCommand,
			StartCommands: cfg.Behavior.InstanceStartCommands,
			DB:            cfg.Behavior.InstanceDB,
		},
		ReachPollEvery:  time.Duration(cfg.Behavior.ConsumerReachPollSecs) * time.Second,
		WaitReachCap:    time.Duration(cfg.Behavior.ConsumerWaitReachSecs) * time.Second,
		LogWindowBytes:  cfg.Behavior.LogWindowBytes,
		AllowBestEffort: cfg.Behavior.AllowBestEffortSuccess,
		Log:             runLog,
	}

	rec, advance := orch.Run(ctx, runID, previous, picked.RestorePoint, picked.TargetLSNs())

	rw := receipt.New(receiptsDir(cfg))
	path, err := rw.Write(rec)
	if err != nil {
		runLog.Error("write receipt: %v", err)
		return exitFailure
	}
	runLog.Info("receipt written to %s, status=%s", path, rec.Status)

	if advance {
		if err := sf.Advance(picked.RestorePoint); err != nil {
			runLog.Error("advance state file: %v", err)
			return exitFailure
		}
		return exitOK
	}
	return exitNotAdvanced
}

func drStop(cfg *config.Config, log *logx.Event) int {
	pf := pidfile.New(cfg.DR.PIDFile)
	if err := pf.Stop(syscall.SIGTERM); err != nil {
		log.Error("stop consumer: %v", err)
		return 1
	}
	return 0
}

func drPIDStatus(cfg *config.Config) int {
	pf := pidfile.New(cfg.DR.PIDFile)
	alive, pid, err := pf.Alive()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pid-status: %v\n", err)
		return 1
	}
	if !alive {
		fmt.Println("consumer: not running")
		return 0
	}
	fmt.Printf("consumer: running, pid %d\n", pid)
	return 0
}

func drStatus(cfg *config.Config, format string, includeHistory bool) int {
	sf := statefile.New(statePath(cfg))
	current, err := sf.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "status: %v\n", err)
		return 1
	}
	return printConsumerStatus(cfg, current, format, includeHistory)
}

func drLogs(cfg *config.Config, n int) int {
	return tailLogCommand(cfg.DR.LogFile, n)
}
