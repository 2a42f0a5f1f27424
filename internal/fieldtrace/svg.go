// Package fieldtrace renders traced field lines for diagnostics: an SVG
// plot of the line in the X-Z plane with the Earth disc and start marker.
// Purely presentational; the classification path never consults a trace.
package fieldtrace

import (
	"fmt"
	"math"
	"strings"

	"github.com/large-farva/fieldline-engine/internal/magfield"
)

const (
	svgSize   = 800.0 // square viewport, pixels
	svgMargin = 60.0
)

// RenderSVG draws the trace projected onto the X-Z plane (the natural
// noon-midnight meridian view for a GSM-coordinate trace). The viewport is
// scaled so both the full line and the Earth disc stay visible.
func RenderSVG(tr *magfield.Trace) ([]byte, error) {
	if tr.NumPoints() == 0 {
		return nil, fmt.Errorf("trace has no points to render")
	}

	// Half-width of the plotted region in Earth radii. At least 1.5 so the
	// Earth disc never fills the frame.
	limit := 1.5
	for _, p := range tr.Points {
		limit = math.Max(limit, math.Max(math.Abs(p.X), math.Abs(p.Z)))
	}
	limit *= 1.05

	plot := svgSize - 2*svgMargin
	toPx := func(x, z float64) (float64, float64) {
		// X grows rightward, Z grows upward.
		px := svgMargin + (x+limit)/(2*limit)*plot
		py := svgMargin + (limit-z)/(2*limit)*plot
		return px, py
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`+"\n",
		svgSize, svgSize, svgSize, svgSize)
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>` + "\n")

	// Coordinate axes through the origin.
	ox, oy := toPx(0, 0)
	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#bbbbbb" stroke-width="1"/>`+"\n",
		svgMargin, oy, svgSize-svgMargin, oy)
	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#bbbbbb" stroke-width="1"/>`+"\n",
		ox, svgMargin, ox, svgSize-svgMargin)

	// Earth disc, one Earth radius.
	earthPx := plot / (2 * limit)
	fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="lightblue" fill-opacity="0.5" stroke="#4488aa"/>`+"\n",
		ox, oy, earthPx)

	// The field line itself.
	b.WriteString(`<polyline fill="none" stroke="blue" stroke-width="2" points="`)
	for i, p := range tr.Points {
		if i > 0 {
			b.WriteByte(' ')
		}
		px, py := toPx(p.X, p.Z)
		fmt.Fprintf(&b, "%.1f,%.1f", px, py)
	}
	b.WriteString(`"/>` + "\n")

	// Start point marker.
	sx, sy := toPx(tr.Points[0].X, tr.Points[0].Z)
	fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="6" fill="red"/>`+"\n", sx, sy)

	// Labels.
	fmt.Fprintf(&b, `<text x="%.0f" y="30" font-family="sans-serif" font-size="18" text-anchor="middle">Magnetic Field Line Trace</text>`+"\n",
		svgSize/2)
	fmt.Fprintf(&b, `<text x="%.0f" y="%.0f" font-family="sans-serif" font-size="13" text-anchor="middle">%d points, L=%.2f, Bmin=%.2f nT</text>`+"\n",
		svgSize/2, svgSize-20.0, tr.NumPoints(), tr.LShell, tr.BMin)
	fmt.Fprintf(&b, `<text x="%.0f" y="%.0f" font-family="sans-serif" font-size="13">X (RE)</text>`+"\n",
		svgSize-svgMargin+8, oy+4)
	fmt.Fprintf(&b, `<text x="%.0f" y="%.0f" font-family="sans-serif" font-size="13">Z (RE)</text>`+"\n",
		ox+8, svgMargin-8)

	b.WriteString("</svg>\n")
	return []byte(b.String()), nil
}
