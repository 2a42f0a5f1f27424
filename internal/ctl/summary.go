package ctl

import (
	"fmt"
	"strings"
	"time"
)

// Summary shows aggregate classification statistics from the daemon.
func Summary(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		PointsClassified int64  `json:"points_classified"`
		BatchRows        int64  `json:"batch_rows"`
		BatchJobs        int64  `json:"batch_jobs"`
		Closed           int64  `json:"closed"`
		Open             int64  `json:"open"`
		IMF              int64  `json:"imf"`
		LastJobAt        string `json:"last_job_at"`
		UptimeSeconds    int64  `json:"uptime_seconds"`
	}
	if err := getJSON(baseURL, "/api/summary", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  CLASSIFICATION SUMMARY"))
	fmt.Println("  " + strings.Repeat("─", 42))
	fmt.Printf("  Uptime:          %s\n", formatDuration(time.Duration(resp.UptimeSeconds)*time.Second))
	fmt.Printf("  Single points:   %d\n", resp.PointsClassified)
	fmt.Printf("  Batch rows:      %d\n", resp.BatchRows)
	fmt.Printf("  Batch jobs:      %d\n", resp.BatchJobs)

	if resp.LastJobAt != "" {
		fmt.Printf("  Last job:        %s\n", resp.LastJobAt)
	} else {
		fmt.Printf("  Last job:        none\n")
	}

	total := resp.Closed + resp.Open + resp.IMF
	if total > 0 {
		fmt.Println()
		fmt.Println(header("  BY TOPOLOGY"))
		t := newTable("  ", "Topology", "Count", "Share")
		t.alignRight(1, 2)
		for _, row := range []struct {
			label string
			count int64
		}{
			{"closed", resp.Closed},
			{"open", resp.Open},
			{"IMF", resp.IMF},
		} {
			pct := float64(row.count) / float64(total) * 100
			t.row(row.label, fmt.Sprintf("%d", row.count), fmt.Sprintf("%.1f%%", pct))
		}
		t.flush()
	}

	fmt.Println()
	return nil
}
