package ctl

import (
	"fmt"
	"strings"
)

// BatchOptions describes a batch classification submission.
type BatchOptions struct {
	JSON    bool
	Input   string
	Output  string
	Workers int
}

// jobJSON mirrors one job object returned by the daemon.
type jobJSON struct {
	ID       int    `json:"id"`
	Input    string `json:"input"`
	Output   string `json:"output"`
	Workers  int    `json:"workers"`
	State    string `json:"state"`
	Error    string `json:"error"`
	Queued   string `json:"queued_at"`
	Started  string `json:"started_at"`
	Finished string `json:"finished_at"`
	Summary  *struct {
		Rows   int `json:"rows"`
		Closed int `json:"closed"`
		Open   int `json:"open"`
		IMF    int `json:"imf"`
	} `json:"summary"`
}

// Batch submits an orbit file for classification and prints the queued job.
func Batch(baseURL string, opts BatchOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		OK  bool    `json:"ok"`
		Job jobJSON `json:"job"`
	}
	body := map[string]any{
		"input":   opts.Input,
		"output":  opts.Output,
		"workers": opts.Workers,
	}
	if err := postJSON(baseURL, "/api/batch", body, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Printf("  %s job %d queued\n", colorize(green, "ok"), resp.Job.ID)
	fmt.Printf("  %-10s %s\n", colorize(dim, "input:"), resp.Job.Input)
	fmt.Printf("  %-10s %s\n", colorize(dim, "output:"), resp.Job.Output)
	fmt.Printf("  %-10s %d\n", colorize(dim, "workers:"), resp.Job.Workers)
	fmt.Println()
	fmt.Println(colorize(dim, "  follow progress with: fieldctl watch --filter progress,batch_summary"))
	fmt.Println()

	return nil
}
