package ctl

import (
	"fmt"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string         `json:"name"`
	State         string         `json:"state"`
	Mode          string         `json:"mode"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	DataRoot      string         `json:"data_root"`
	ModelAddr     string         `json:"model_addr"`
	ExternalField string         `json:"external_field"`
	WSClients     int            `json:"ws_clients"`
	Disk          map[string]any `json:"disk"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	stateStr := colorize(stateColor(s.State), s.State)

	fmt.Println()
	fmt.Println(header("  FIELDLINE ENGINE STATUS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-12s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Printf("  %-12s %s\n", colorize(dim, "State:"), stateStr)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Mode:"), s.Mode)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Data:"), s.DataRoot)
	if s.Mode == "live" {
		fmt.Printf("  %-12s %s\n", colorize(dim, "Model:"), s.ModelAddr+" ("+s.ExternalField+")")
	}
	fmt.Printf("  %-12s %d\n", colorize(dim, "Watchers:"), s.WSClients)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Host:"), baseURL)

	if s.Disk != nil {
		if avail, ok := s.Disk["available_bytes"].(float64); ok {
			fmt.Printf("  %-12s %s free\n", colorize(dim, "Disk:"), formatBytes(int64(avail)))
		}
	}
	fmt.Println()

	return nil
}
