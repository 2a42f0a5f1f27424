package ctl

import (
	"fmt"
	"math"
	"strings"
)

// ClassifyOptions holds the point and driver parameters for one
// classification request. Driver fields left as NaN are omitted from the
// request so the daemon can reject genuinely missing inputs.
type ClassifyOptions struct {
	JSON     bool
	X1       float64
	X2       float64
	X3       float64
	Units    string
	DateTime string
	Pdyn     float64
	Dst      float64
	ByIMF    float64
	BzIMF    float64
}

// driverMap builds the "drivers" request object, skipping NaN fields.
func (o ClassifyOptions) driverMap() map[string]float64 {
	d := map[string]float64{}
	for key, v := range map[string]float64{
		"pdyn":   o.Pdyn,
		"dst":    o.Dst,
		"by_imf": o.ByIMF,
		"bz_imf": o.BzIMF,
	} {
		if !math.IsNaN(v) {
			d[key] = v
		}
	}
	return d
}

func (o ClassifyOptions) requestBody() map[string]any {
	return map[string]any{
		"x1":       o.X1,
		"x2":       o.X2,
		"x3":       o.X3,
		"units":    o.Units,
		"datetime": o.DateTime,
		"drivers":  o.driverMap(),
	}
}

// classifyResponse mirrors the JSON returned by POST /api/classify.
type classifyResponse struct {
	Classification string  `json:"classification"`
	Code           int     `json:"code"`
	FoundCount     int     `json:"found_count"`
	DateTime       string  `json:"datetime"`
	Position       struct {
		X1 float64 `json:"x1"`
		X2 float64 `json:"x2"`
		X3 float64 `json:"x3"`
	} `json:"position"`
	Hemispheres []struct {
		Hemisphere string `json:"hemisphere"`
		Found      bool   `json:"found"`
		Footpoint  *struct {
			AltKm  float64 `json:"alt_km"`
			LatDeg float64 `json:"lat_deg"`
			LonDeg float64 `json:"lon_deg"`
		} `json:"footpoint"`
		Error string `json:"error"`
	} `json:"hemispheres"`
}

// Classify sends a single point to the daemon and prints the resulting
// field line topology.
func Classify(baseURL string, opts ClassifyOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp classifyResponse
	if err := postJSON(baseURL, "/api/classify", opts.requestBody(), &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	classStr := colorize(classColor(resp.Classification), strings.ToUpper(resp.Classification))

	fmt.Println()
	fmt.Println(header("  FIELD LINE CLASSIFICATION"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 44)))
	fmt.Printf("  %-12s (%.3f, %.3f, %.3f)\n", colorize(dim, "Position:"), resp.Position.X1, resp.Position.X2, resp.Position.X3)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Time:"), resp.DateTime)
	fmt.Printf("  %-12s %s  (code %d, %d footpoint(s))\n", colorize(dim, "Topology:"), classStr, resp.Code, resp.FoundCount)
	fmt.Println()

	t := newTable("  ", "Hemisphere", "Found", "Alt km", "Lat deg", "Lon deg")
	t.alignRight(2, 3, 4)
	for _, h := range resp.Hemispheres {
		found := "no"
		alt, lat, lon := "-", "-", "-"
		switch {
		case h.Error != "":
			found = "error"
		case h.Found && h.Footpoint != nil:
			found = "yes"
			alt = fmt.Sprintf("%.1f", h.Footpoint.AltKm)
			lat = fmt.Sprintf("%.2f", h.Footpoint.LatDeg)
			lon = fmt.Sprintf("%.2f", h.Footpoint.LonDeg)
		}
		t.row(h.Hemisphere, found, alt, lat, lon)
	}
	t.flush()

	for _, h := range resp.Hemispheres {
		if h.Error != "" {
			fmt.Printf("  %s %s: %s\n", colorize(red, "error"), h.Hemisphere, h.Error)
		}
	}
	fmt.Println()

	return nil
}
