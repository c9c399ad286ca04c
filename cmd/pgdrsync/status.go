package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/percona/pg-dr-sync/internal/config"
	"github.com/percona/pg-dr-sync/internal/core"
	"github.com/percona/pg-dr-sync/internal/statsx"
)

func printLatestPointer(ptr *core.LatestPointer, format string) {
	switch format {
	case "json":
		b, _ := json.MarshalIndent(ptr, "", "  ")
		fmt.Println(string(b))
	case "prometheus":
		fmt.Printf("pgdrsync_primary_latest_restore_point_timestamp_seconds %d\n", ptr.UpdatedAtUTC.Unix())
		fmt.Printf("pgdrsync_primary_latest_restore_point_info{restore_point=%q} 1\n", ptr.RestorePoint)
	default:
		fmt.Printf("latest restore point: %s (updated %s)\n", ptr.RestorePoint, ptr.UpdatedAtUTC.Format("2006-01-02 15:04:05 UTC"))
	}
}

type consumerStatus struct {
	CurrentRestorePoint string          `json:"current_restore_point"`
	History             *statsx.Summary `json:"history,omitempty"`
}

func printConsumerStatus(cfg *config.Config, current, format string, includeHistory bool) int {
	st := consumerStatus{CurrentRestorePoint: current}
	if includeHistory {
		receipts, err := statsx.LoadReceipts(receiptsDir(cfg), 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "status: load receipt history: %v\n", err)
			return 1
		}
		summary, err := statsx.Summarize(receipts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "status: summarize receipt history: %v\n", err)
			return 1
		}
		st.History = &summary
	}

	switch format {
	case "json":
		b, _ := json.MarshalIndent(st, "", "  ")
		fmt.Println(string(b))
	case "prometheus":
		printConsumerPrometheus(st)
	default:
		printConsumerTable(st)
	}
	return 0
}

func printConsumerTable(st consumerStatus) {
	name := st.CurrentRestorePoint
	if name == "" {
		name = "(none)"
	}
	fmt.Printf("current restore point: %s\n", name)
	if st.History == nil {
		return
	}
	h := st.History
	fmt.Printf("history: %d attempts, %d successful (%.1f%%)\n", h.Count, h.SuccessCount, h.SuccessRatio*100)
	fmt.Printf("waited_secs: mean=%.1f p95=%.1f\n", h.MeanWaitedSecs, h.P95WaitedSecs)
}

func printConsumerPrometheus(st consumerStatus) {
	fmt.Printf("pgdrsync_consumer_current_restore_point_info{restore_point=%q} 1\n", st.CurrentRestorePoint)
	if st.History == nil {
		return
	}
	h := st.History
	fmt.Printf("pgdrsync_consumer_history_attempts_total %d\n", h.Count)
	fmt.Printf("pgdrsync_consumer_history_success_total %d\n", h.SuccessCount)
	fmt.Printf("pgdrsync_consumer_history_success_ratio %f\n", h.SuccessRatio)
	fmt.Printf("pgdrsync_consumer_history_waited_secs_mean %f\n", h.MeanWaitedSecs)
	fmt.Printf("pgdrsync_consumer_history_waited_secs_p95 %f\n", h.P95WaitedSecs)
}

// tailLogCommand prints the last n lines of logFile to stdout. An
// unconfigured logFile (daemon logging to stderr only) is reported on
// stderr and exits 1, like an unreadable one.
func tailLogCommand(logFile string, n int) int {
	if logFile == "" {
		fmt.Fprintln(os.Stderr, "logs: no log_file configured for this mode, daemon logs to stderr")
		return 1
	}
	f, err := os.Open(logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logs: %v\n", err)
		return 1
	}
	defer f.Close()

	lines := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "logs: %v\n", err)
		return 1
	}
	for _, l := range lines {
		fmt.Println(l)
	}
	return 0
}
