package ctl

import (
	"fmt"
	"math"
	"strings"
)

// GenerateOptions controls server-side orbit file generation. Zero values
// defer to the daemon's configured defaults; NaN driver fields are omitted.
type GenerateOptions struct {
	JSON        bool
	Filename    string
	Steps       int
	StepSeconds int
	Start       string
	TLE         string
	Pdyn        float64
	Dst         float64
	ByIMF       float64
	BzIMF       float64
}

// Generate asks the daemon to propagate an orbit and write a ready-to-batch
// orbit file into its data root.
func Generate(baseURL string, opts GenerateOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	body := map[string]any{
		"filename":     opts.Filename,
		"steps":        opts.Steps,
		"step_seconds": opts.StepSeconds,
		"start":        opts.Start,
		"tle":          opts.TLE,
	}
	for key, v := range map[string]float64{
		"pdyn":   opts.Pdyn,
		"dst":    opts.Dst,
		"by_imf": opts.ByIMF,
		"bz_imf": opts.BzIMF,
	} {
		if !math.IsNaN(v) {
			body[key] = v
		}
	}

	var resp struct {
		OK       bool   `json:"ok"`
		Filename string `json:"filename"`
		Path     string `json:"path"`
		Rows     int    `json:"rows"`
	}
	if err := postJSON(baseURL, "/api/orbit/generate", body, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Printf("  %s generated %s (%d rows)\n", colorize(green, "ok"), resp.Filename, resp.Rows)
	fmt.Printf("  %-8s %s\n", colorize(dim, "path:"), resp.Path)
	fmt.Println()
	fmt.Println(colorize(dim, "  classify it with: fieldctl batch "+resp.Filename))
	fmt.Println()

	return nil
}
