package ctl

import (
	"fmt"
	"os"
	"strings"
)

// TraceOptions extends the shared point request with an optional SVG
// destination. When SVGPath is set, the daemon renders the field line and
// the image is written to that file instead of printing numbers.
type TraceOptions struct {
	ClassifyOptions
	SVGPath string
}

// Trace asks the daemon for a full field line through the given point.
func Trace(baseURL string, opts TraceOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	if opts.SVGPath != "" {
		svg, err := postRaw(baseURL, "/api/trace?format=svg", opts.requestBody())
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.SVGPath, svg, 0o644); err != nil {
			return err
		}
		if !opts.JSON {
			fmt.Printf("  wrote %s (%s)\n", opts.SVGPath, formatBytes(int64(len(svg))))
		}
		return nil
	}

	var resp struct {
		DateTime  string  `json:"datetime"`
		NumPoints int     `json:"num_points"`
		LShell    float64 `json:"l_shell"`
		BMinNT    float64 `json:"b_min_nt"`
		Points    []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
			Z float64 `json:"z"`
		} `json:"points"`
	}
	if err := postJSON(baseURL, "/api/trace", opts.requestBody(), &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  FIELD LINE TRACE"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-12s %s\n", colorize(dim, "Time:"), resp.DateTime)
	fmt.Printf("  %-12s %d\n", colorize(dim, "Points:"), resp.NumPoints)
	fmt.Printf("  %-12s %.3f\n", colorize(dim, "L shell:"), resp.LShell)
	fmt.Printf("  %-12s %.2f nT\n", colorize(dim, "B min:"), resp.BMinNT)

	if len(resp.Points) > 0 {
		first := resp.Points[0]
		last := resp.Points[len(resp.Points)-1]
		fmt.Printf("  %-12s (%.3f, %.3f, %.3f)\n", colorize(dim, "Start:"), first.X, first.Y, first.Z)
		fmt.Printf("  %-12s (%.3f, %.3f, %.3f)\n", colorize(dim, "End:"), last.X, last.Y, last.Z)
	}
	fmt.Println()

	return nil
}
