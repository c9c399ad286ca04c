// Command pgdrsync runs the publisher (primary) or consumer (dr) half of
// the restore-point synchronization system, selected by its first
// subcommand.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin"

	"github.com/percona/pg-dr-sync/internal/config"
	"github.com/percona/pg-dr-sync/internal/logx"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	app := kingpin.New("pgdrsync", "Restore-point synchronization between a Primary cluster and its DR replica.")
	configPath := app.Flag("config", "path to the JSON configuration document").Default("/etc/pgdrsync/config.json").String()

	primary := app.Command("primary", "publisher-side commands")
	primaryRunCmd := primary.Command("run", "run the publisher cycle")
	primaryOnce := primaryRunCmd.Flag("once", "run a single cycle and exit instead of looping").Bool()
	primaryNoSwitch := primaryRunCmd.Flag("no-gp-switch-wal", "skip forcing a WAL switch after creating the restore point").Bool()
	primaryStopCmd := primary.Command("stop", "stop a running publisher daemon")
	primaryPIDCmd := primary.Command("pid-status", "report whether a publisher daemon is running")
	primaryStatusCmd := primary.Command("status", "show the latest published restore point")
	primaryFormat := primaryStatusCmd.Flag("format", "output format").Default("table").Enum("table", "json", "prometheus")
	primaryLogsCmd := primary.Command("logs", "show recent publisher log lines")
	primaryLogsN := primaryLogsCmd.Flag("n", "number of lines to show").Default("50").Int()

	dr := app.Command("dr", "consumer-side commands")
	drRunCmd := dr.Command("run", "run the consumer cycle")
	drOnce := drRunCmd.Flag("once", "run a single cycle and exit instead of looping").Bool()
	drTarget := drRunCmd.Flag("target", "restore point name to require, overriding automatic selection").String()
	drStopCmd := dr.Command("stop", "stop a running consumer daemon")
	drPIDCmd := dr.Command("pid-status", "report whether a consumer daemon is running")
	drStatusCmd := dr.Command("status", "show the current synced restore point")
	drFormat := drStatusCmd.Flag("format", "output format").Default("table").Enum("table", "json", "prometheus")
	drHistory := drStatusCmd.Flag("include-history", "include summary statistics over recorded receipts").Bool()
	drLogsCmd := dr.Command("logs", "show recent consumer log lines")
	drLogsN := drLogsCmd.Flag("n", "number of lines to show").Default("50").Int()

	cmd, err := app.Parse(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pgdrsync: %v\n", err)
		return exitConfig
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pgdrsync: %v\n", err)
		return exitConfig
	}

	switch cmd {
	case primaryRunCmd.FullCommand():
		log, cerr := initLog(cfg.Behavior.LogLevel, cfg.Primary.LogFile)
		if cerr != nil {
			fmt.Fprintf(os.Stderr, "pgdrsync: %v\n", cerr)
			return exitFailure
		}
		return primaryRun(cfg, log, *primaryOnce, !*primaryNoSwitch)
	case primaryStopCmd.FullCommand():
		log, _ := initLog(cfg.Behavior.LogLevel, "")
		return primaryStop(cfg, log)
	case primaryPIDCmd.FullCommand():
		return primaryPIDStatus(cfg)
	case primaryStatusCmd.FullCommand():
		return primaryStatus(cfg, *primaryFormat)
	case primaryLogsCmd.FullCommand():
		return primaryLogs(cfg, *primaryLogsN)

	case drRunCmd.FullCommand():
		log, cerr := initLog(cfg.Behavior.LogLevel, cfg.DR.LogFile)
		if cerr != nil {
			fmt.Fprintf(os.Stderr, "pgdrsync: %v\n", cerr)
			return exitFailure
		}
		return drRun(cfg, log, *drOnce, *drTarget)
	case drStopCmd.FullCommand():
		log, _ := initLog(cfg.Behavior.LogLevel, "")
		return drStop(cfg, log)
	case drPIDCmd.FullCommand():
		return drPIDStatus(cfg)
	case drStatusCmd.FullCommand():
		return drStatus(cfg, *drFormat, *drHistory)
	case drLogsCmd.FullCommand():
		return drLogs(cfg, *drLogsN)
	}

	fmt.Fprintf(os.Stderr, "pgdrsync: unrecognized command %q\n", cmd)
	return exitConfig
}

func initLog(level, logFile string) (*logx.Event, error) {
	if err := logx.Init(level, logFile); err != nil {
		return nil, err
	}
	return logx.Component("pgdrsync"), nil
}
