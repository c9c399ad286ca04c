package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/archiveprove"
	"github.com/percona/pg-dr-sync/internal/config"
	"github.com/percona/pg-dr-sync/internal/core"
	"github.com/percona/pg-dr-sync/internal/logx"
	"github.com/percona/pg-dr-sync/internal/pidfile"
	"github.com/percona/pg-dr-sync/internal/rpcreate"
	"github.com/percona/pg-dr-sync/internal/topology"
	"github.com/percona/pg-dr-sync/internal/walname"
)

// maxCreateAttempts bounds retries against a restore-point name collision:
// two cycles landing on the same wall-clock second is the only expected
// cause, and a second's wait clears it.
const maxCreateAttempts = 3

func primaryRun(cfg *config.Config, log *logx.Event, once bool, switchWAL bool) int {
	pf := pidfile.New(cfg.Primary.PIDFile)
	if err := pf.Write(); err != nil {
		log.Error("write pid file: %v", err)
		return 1
	}
	defer pf.Remove()

	for {
		if err := publishOnce(context.Background(), cfg, log, switchWAL); err != nil {
			log.Error("publish cycle: %v", err)
			if once {
				return 1
			}
		}
		if once {
			return 0
		}
		time.Sleep(time.Duration(cfg.Behavior.PublisherSleepSecs) * time.Second)
	}
}

// publishOnce runs one publisher cycle: resolve topology, create a named
// restore point, compute each instance's expected archive filename, prove
// archive presence, and write the resulting manifest.
func publishOnce(ctx context.Context, cfg *config.Config, log *logx.Event, switchWAL bool) error {
	resolver := &topology.Resolver{DSN: primaryDSN(cfg)}
	instances, err := resolver.Resolve(ctx)
	if err != nil {
		return errors.Wrap(err, "resolve topology")
	}
	bysegment := make(map[int]core.Instance, len(instances))
	for _, inst := range instances {
		bysegment[inst.SegmentID] = inst
	}

	creator := &rpcreate.Creator{DSN: primaryDSN(cfg)}
	var result *rpcreate.Result
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		name := core.NewRestorePointName(time.Now())
		result, err = creator.Create(ctx, name, switchWAL)
		if err == nil {
			break
		}
		if !errors.Is(err, core.ErrDuplicateRestorePoint) {
			return errors.Wrap(err, "create restore point")
		}
		log.Warning("restore point name %s already exists, retrying", name)
		time.Sleep(time.Second)
	}
	if err != nil {
		return errors.Wrap(err, "create restore point: exhausted retries")
	}

	segmentSize := uint64(cfg.Behavior.WALSegmentSizeMB) << 20

	manifestInstances := make([]core.ManifestInstance, 0, len(result.LSNBySegmentID))
	for segID, lsn := range result.LSNBySegmentID {
		inst, ok := bysegment[segID]
		if !ok {
			log.Warning("restore point names segment %d, absent from topology", segID)
			continue
		}
		walFile, err := walname.Compute(uint32(result.TimelineID), lsn, segmentSize)
		if err != nil {
			return errors.Wrapf(err, "compute wal filename for segment %d", segID)
		}
		manifestInstances = append(manifestInstances, core.ManifestInstance{
			SegmentID:         segID,
			Host:              inst.Host,
			Port:              inst.Port,
			DataDir:           inst.DataDir,
			RestoreLSN:        lsn,
			WALFilename:       walFile,
			ArchiveSourceHost: inst.Host,
			ArchiveSourcePath: filepath.Join(cfg.Archive.ArchiveDir, walFile),
		})
	}

	prover := &archiveprove.Prover{
		ArchiveDir:          cfg.Archive.ArchiveDir,
		GlobalTemplate:      cfg.Behavior.WALCheckCommand,
		PerSegmentTemplates: cfg.Behavior.WALCheckCommands,
		Log:                 log,
	}
	proved, err := prover.ProveAll(ctx, manifestInstances)
	if err != nil {
		return errors.Wrap(err, "prove archive presence")
	}

	m := &core.Manifest{
		RestorePoint: result.Name,
		CreatedAtUTC: time.Now().UTC(),
		TimelineID:   result.TimelineID,
		Instances:    proved,
	}
	m.Ready = m.AllPresent()

	store, err := openManifestStore(cfg)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, m); err != nil {
		return errors.Wrap(err, "write manifest")
	}

	if !m.Ready {
		log.Warning("restore point %s not ready: archive gap on one or more instances", m.RestorePoint)
		return nil
	}

	if err := store.UpdateLatest(ctx, m.RestorePoint, m.CreatedAtUTC); err != nil {
		return errors.Wrap(err, "update latest pointer")
	}
	log.Info("restore point %s ready, latest pointer advanced", m.RestorePoint)
	return nil
}

func primaryStop(cfg *config.Config, log *logx.Event) int {
	pf := pidfile.New(cfg.Primary.PIDFile)
	if err := pf.Stop(syscall.SIGTERM); err != nil {
		log.Error("stop publisher: %v", err)
		return 1
	}
	return 0
}

func primaryPIDStatus(cfg *config.Config) int {
	pf := pidfile.New(cfg.Primary.PIDFile)
	alive, pid, err := pf.Alive()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pid-status: %v\n", err)
		return 1
	}
	if !alive {
		fmt.Println("publisher: not running")
		return 0
	}
	fmt.Printf("publisher: running, pid %d\n", pid)
	return 0
}

func primaryStatus(cfg *config.Config, format string) int {
	ctx := context.Background()
	store, err := openManifestStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "status: %v\n", err)
		return 1
	}
	ptr, err := store.GetLatest(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "status: no latest restore point yet: %v\n", err)
		return 1
	}
	printLatestPointer(ptr, format)
	return 0
}

func primaryLogs(cfg *config.Config, n int) int {
	return tailLogCommand(cfg.Primary.LogFile, n)
}
