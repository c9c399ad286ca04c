// Package procctl starts and stops DR instance processes and reports
// their liveness and replay position, via configurable shell templates
// and a direct SQL connection to the instance itself.
package procctl

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

const replayLSNQuery = `SELECT pg_last_wal_replay_lsn()::text`

const connectTimeout = 5 * time.Second

// Controller issues instance-level stop/start commands and SQL liveness
// checks. Stop and Start templates follow the same {data_dir}/{host}
// substitution rule as the offline control-data inspector.
type Controller struct {
	StopCommand   string
	StopCommands  map[int]string
	StartCommand  string
	StartCommands map[int]string
	DB            string
}

// PollResult is one liveness+position observation for an instance.
type PollResult struct {
	Up        bool
	ReplayLSN core.LSN
}

// Stop runs the resolved stop template for inst. A missing template is a
// no-op: some deployments manage process lifecycle externally.
func (c *Controller) Stop(ctx context.Context, inst core.Instance) error {
	return c.run(ctx, resolve(c.StopCommand, c.StopCommands, inst.SegmentID), inst)
}

// Start runs the resolved start template for inst.
func (c *Controller) Start(ctx context.Context, inst core.Instance) error {
	return c.run(ctx, resolve(c.StartCommand, c.StartCommands, inst.SegmentID), inst)
}

func (c *Controller) run(ctx context.Context, tmpl string, inst core.Instance) error {
	if tmpl == "" {
		return nil
	}
	cmdline := strings.NewReplacer(
		"{data_dir}", shellQuote(inst.DataDir),
		"{host}", shellQuote(inst.Host),
	).Replace(tmpl)

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdline)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Errorf("segment %d: %v (stderr: %s)", inst.SegmentID, err, stderr.String())
	}
	return nil
}

// Poll connects to inst directly and reports whether it is up and, if so,
// its current replay position. A connection failure is treated as "down",
// not an error: that is the expected terminal state once
// recovery_target_action=shutdown fires.
func (c *Controller) Poll(ctx context.Context, inst core.Instance) (PollResult, error) {
	dctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db := c.DB
	if db == "" {
		db = "postgres"
	}
	connStr := pgConnString(inst.Host, inst.Port, db)
	conn, err := pgx.Connect(dctx, connStr)
	if err != nil {
		return PollResult{Up: false}, nil
	}
	defer conn.Close(context.Background())

	var text string
	if err := conn.QueryRow(dctx, replayLSNQuery).Scan(&text); err != nil {
		return PollResult{Up: true}, errors.Wrap(err, "query replay lsn")
	}
	lsn, err := core.ParseLSN(text)
	if err != nil {
		return PollResult{Up: true}, errors.Wrap(err, "parse replay lsn")
	}
	return PollResult{Up: true, ReplayLSN: lsn}, nil
}

func resolve(global string, perSegment map[int]string, segmentID int) string {
	if t, ok := perSegment[segmentID]; ok && t != "" {
		return t
	}
	return global
}

func pgConnString(host string, port int, db string) string {
	if port == 0 {
		port = 5432
	}
	return "host=" + host + " port=" + strconv.Itoa(port) + " dbname=" + db + " sslmode=prefer"
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
