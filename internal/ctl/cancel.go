package ctl

import (
	"fmt"
	"strings"
)

// Cancel aborts a queued or running batch job by ID.
func Cancel(baseURL string, id int, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}
	if err := postJSON(baseURL, "/api/jobs/cancel", map[string]any{"id": id}, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Printf("  %s %s\n", colorize(green, "ok"), resp.Message)
	return nil
}
