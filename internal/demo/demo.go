// Package demo simulates classification activity so the daemon, CLI, and
// dashboard can be tested end-to-end without a running field model server.
// The simulated queries cycle through plausible magnetospheric positions and
// emit the same event shapes the real classifier produces.
package demo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/large-farva/fieldline-engine/internal/classify"
	"github.com/large-farva/fieldline-engine/internal/magfield"
	"github.com/large-farva/fieldline-engine/internal/telemetry"
	"github.com/large-farva/fieldline-engine/internal/ws"
)

// demoPoint is one canned query: a position and how many hemispheres find a
// footpoint for it.
type demoPoint struct {
	x1, x2, x3 float64
	foundCount int
}

// demoPoints are positions the classifier is typically exercised with: a
// dayside closed line, a lobe line with a single footpoint, a point on the
// X-axis well inside the magnetopause, and a far-tail IMF case.
var demoPoints = []demoPoint{
	{7.5, 3.0, 2.0, 1},
	{4.0, 0.0, 0.0, 2},
	{3.0, 0.0, 3.0, 2},
	{14.0, -6.0, 4.0, 0},
}

// Runner broadcasts simulated classification events on a configurable interval.
type Runner struct {
	Hub      *ws.Hub
	Interval time.Duration // time between simulated classifications

	pointIndex int // cycles through the canned positions
}

// New creates a demo runner with a sensible default interval.
func New(hub *ws.Hub) *Runner {
	return &Runner{
		Hub:      hub,
		Interval: 15 * time.Second,
	}
}

// Run kicks off the demo loop. It classifies one point immediately, then
// repeats on the configured interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, setState func(string)) {
	r.broadcast(map[string]any{
		"type":    "log",
		"level":   "info",
		"message": "demo mode active: simulating field-line classifications",
	})

	if !sleepOrCancel(ctx, 2*time.Second) {
		return
	}
	r.runClassification(ctx, setState)

	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.runClassification(ctx, setState)
		}
	}
}

// runClassification simulates one single-point classification: the two
// hemisphere attempts with plausible footpoints or sentinels, then the
// resulting category.
func (r *Runner) runClassification(ctx context.Context, setState func(string)) {
	p := r.nextPoint()
	now := time.Now().UTC()

	setState("CLASSIFYING")
	r.broadcast(map[string]any{
		"type":    "log",
		"level":   "info",
		"message": fmt.Sprintf("classifying field line through (%.1f, %.1f, %.1f) RE", p.x1, p.x2, p.x3),
	})

	found := 0
	for _, hemi := range []magfield.Hemisphere{magfield.North, magfield.South} {
		if !sleepOrCancel(ctx, 500*time.Millisecond) {
			return
		}

		ev := telemetry.HemisphereAttempt{
			Event:      telemetry.Event{Type: telemetry.EventHemisphere, TS: telemetry.NowTS()},
			Hemisphere: hemi.String(),
		}
		if found < p.foundCount {
			found++
			ev.Found = true
			ev.AltKm = 100
			ev.LatDeg = float64(hemi) * (55 + rand.Float64()*20)
			ev.LonDeg = rand.Float64()*360 - 180
		} else {
			ev.AltKm = -9999
			ev.LatDeg = -9999
			ev.LonDeg = -9999
		}
		r.Hub.BroadcastJSON(ev)
	}

	class := classify.FromCount(found)
	r.Hub.BroadcastJSON(telemetry.ClassificationResult{
		Event:          telemetry.Event{Type: telemetry.EventClassification, TS: telemetry.NowTS()},
		X1:             p.x1,
		X2:             p.x2,
		X3:             p.x3,
		DateTime:       now.Format("2006-01-02T15:04:05"),
		Classification: string(class),
		Code:           class.Code(),
		FoundCount:     found,
	})
	r.broadcast(map[string]any{
		"type":    "log",
		"level":   "info",
		"message": fmt.Sprintf("field line is %s (%d footpoints), next point in %s", class, found, r.Interval.Truncate(time.Second)),
	})

	setState("IDLE")
}

// nextPoint cycles through the canned positions so each simulated
// classification exercises a different category.
func (r *Runner) nextPoint() demoPoint {
	p := demoPoints[r.pointIndex%len(demoPoints)]
	r.pointIndex++
	return p
}

func (r *Runner) broadcast(v map[string]any) {
	v["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	v["component"] = "demo"
	r.Hub.BroadcastJSON(v)
}

func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
