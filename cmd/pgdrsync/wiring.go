package main

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/compress"
	"github.com/percona/pg-dr-sync/internal/config"
	"github.com/percona/pg-dr-sync/internal/core"
	"github.com/percona/pg-dr-sync/internal/floor"
	"github.com/percona/pg-dr-sync/internal/manifeststore"
	"github.com/percona/pg-dr-sync/internal/storage"
)

// primaryDSN builds the connection string for direct SQL access to the
// Primary coordinator.
func primaryDSN(cfg *config.Config) string {
	port := cfg.Primary.Port
	if port == 0 {
		port = 5432
	}
	dsn := "host=" + cfg.Primary.Host + " port=" + strconv.Itoa(port) + " sslmode=prefer"
	if cfg.Primary.DB != "" {
		dsn += " dbname=" + cfg.Primary.DB
	}
	if cfg.Primary.User != "" {
		dsn += " user=" + cfg.Primary.User
	}
	return dsn
}

// openManifestStore builds the manifest store described by cfg.Storage.
func openManifestStore(cfg *config.Config) (*manifeststore.Store, error) {
	sc := storage.Config{
		Kind:         cfg.Storage.Kind,
		Dir:          cfg.Storage.ManifestDir,
		Bucket:       cfg.Storage.Bucket,
		Prefix:       cfg.Storage.Prefix,
		Region:       cfg.Storage.Region,
		Endpoint:     cfg.Storage.Endpoint,
		FetchCommand: cfg.Storage.ManifestFetchCommand,
		ListCommand:  cfg.Storage.ManifestListCommand,
	}
	backend, err := storage.New(sc)
	if err != nil {
		return nil, errors.Wrap(err, "open manifest storage")
	}
	local := cfg.Storage.Kind == "" || cfg.Storage.Kind == "local"
	return manifeststore.New(backend, local, compress.CompressionType(cfg.Storage.Compression)), nil
}

// resolveFloors computes the recovery floor for every configured DR
// instance: live, via a direct SQL connection, when the instance is up;
// offline, via the control-data inspector, otherwise.
func resolveFloors(ctx context.Context, cfg *config.Config, fc *floor.Computer) map[int]core.LSN {
	out := make(map[int]core.LSN, len(cfg.DR.Instances))
	for _, inst := range cfg.DR.Instances {
		lsn, err := resolveOneFloor(ctx, fc, inst, cfg.Behavior.InstanceDB)
		if err != nil {
			continue // absent from the map: target.Select treats this as unresolved
		}
		out[inst.SegmentID] = lsn
	}
	return out
}

func resolveOneFloor(ctx context.Context, fc *floor.Computer, inst core.Instance, db string) (core.LSN, error) {
	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	port := inst.Port
	if port == 0 {
		port = 5432
	}
	connStr := "host=" + inst.Host + " port=" + strconv.Itoa(port) + " dbname=" + db + " sslmode=prefer"
	conn, err := pgx.Connect(dctx, connStr)
	if err == nil {
		defer conn.Close(context.Background())
		return fc.LiveFloor(dctx, conn)
	}
	return fc.OfflineFloor(ctx, inst)
}

func statePath(cfg *config.Config) string {
	return cfg.DR.StatePath()
}

func receiptsDir(cfg *config.Config) string {
	return cfg.DR.ReceiptsDir
}
