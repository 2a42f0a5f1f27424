package ctl

import (
	"fmt"
	"net/url"
	"strings"
)

// JobsOptions filters the job listing.
type JobsOptions struct {
	JSON  bool
	State string
}

// Jobs lists batch jobs known to the daemon, newest first.
func Jobs(baseURL string, opts JobsOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	path := "/api/jobs"
	if opts.State != "" {
		path += "?state=" + url.QueryEscape(opts.State)
	}

	var resp struct {
		Jobs []jobJSON `json:"jobs"`
	}
	if err := getJSON(baseURL, path, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  BATCH JOBS"))
	if len(resp.Jobs) == 0 {
		fmt.Println(colorize(dim, "  no jobs"))
		fmt.Println()
		return nil
	}

	t := newTable("  ", "ID", "State", "Input", "Rows", "Closed", "Open", "IMF")
	t.alignRight(0, 3, 4, 5, 6)
	for _, j := range resp.Jobs {
		rows, closed, open, imf := "-", "-", "-", "-"
		if j.Summary != nil {
			rows = fmt.Sprintf("%d", j.Summary.Rows)
			closed = fmt.Sprintf("%d", j.Summary.Closed)
			open = fmt.Sprintf("%d", j.Summary.Open)
			imf = fmt.Sprintf("%d", j.Summary.IMF)
		}
		t.row(fmt.Sprintf("%d", j.ID), j.State, shortPath(j.Input), rows, closed, open, imf)
	}
	t.flush()

	for _, j := range resp.Jobs {
		if j.Error != "" {
			fmt.Printf("  %s job %d: %s\n", colorize(red, "error"), j.ID, j.Error)
		}
	}
	fmt.Println()

	return nil
}

// shortPath trims a path to its final element for compact tables.
func shortPath(p string) string {
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}
