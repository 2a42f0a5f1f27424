// Package classify implements the field-line classifier: it queries the
// external field model for an ionospheric footpoint in each hemisphere and
// maps the number of valid footpoints to a closed / open / IMF category.
package classify

import (
	"context"
	"log"
	"time"

	"github.com/large-farva/fieldline-engine/internal/magfield"
	"github.com/large-farva/fieldline-engine/internal/observability"
	"github.com/large-farva/fieldline-engine/internal/telemetry"
	"github.com/large-farva/fieldline-engine/internal/ws"
)

// StopAltitudeKm is the reference altitude a footpoint trace stops at.
const StopAltitudeKm = 100.0

// Classification is the three-way field-line category.
type Classification string

const (
	Closed Classification = "closed" // both ends reach valid footpoints
	Open   Classification = "open"   // one end reaches a valid footpoint
	IMF    Classification = "IMF"    // neither end does
)

// Code returns the numeric encoding used in orbit data files: closed 2,
// open 0, IMF 1, anything unrecognized -1.
func (c Classification) Code() int {
	switch c {
	case Closed:
		return 2
	case Open:
		return 0
	case IMF:
		return 1
	default:
		return -1
	}
}

// FromCount maps the number of valid footpoints found across the two
// hemisphere queries to a classification. Any count outside {1, 2} lands on
// IMF, which also covers the defensive case of a corrupted count.
func FromCount(found int) Classification {
	switch found {
	case 2:
		return Closed
	case 1:
		return Open
	default:
		return IMF
	}
}

// hemispheres is the fixed query order: north first, then south. Both are
// always attempted.
var hemispheres = [2]magfield.Hemisphere{magfield.North, magfield.South}

// HemisphereResult is the outcome of one footpoint query as an ordinary
// value: either a footpoint (possibly sentinel-laden, hence Found) or an
// absorbed model failure.
type HemisphereResult struct {
	Hemisphere magfield.Hemisphere
	Footpoint  *magfield.Footpoint // raw model output; nil when the call failed
	Found      bool
	Err        error // absorbed failure, diagnostic only
}

// Result is a full single-point classification with its diagnostic trail.
type Result struct {
	Classification Classification
	FoundCount     int
	Hemispheres    [2]HemisphereResult
}

// Classifier wraps a field model with the footpoint-counting algorithm.
// The model handle is injected once and reused across calls.
type Classifier struct {
	model     magfield.Model
	log       *log.Logger
	hub       *ws.Hub
	metrics   *observability.Collector
	stopAltKm float64
}

// New creates a classifier. Hub and metrics may be nil; the logger must not.
func New(model magfield.Model, logger *log.Logger, hub *ws.Hub, metrics *observability.Collector) *Classifier {
	return &Classifier{
		model:     model,
		log:       logger,
		hub:       hub,
		metrics:   metrics,
		stopAltKm: StopAltitudeKm,
	}
}

// SetStopAltitude overrides the footpoint stop altitude. Zero and negative
// values are ignored.
func (c *Classifier) SetStopAltitude(km float64) {
	if km > 0 {
		c.stopAltKm = km
	}
}

// ClassifyPoint classifies the field line through pos at the position's
// timestamp. Model failures for a single hemisphere are absorbed: they are
// logged, broadcast, and counted as "no footpoint", and never prevent the
// other hemisphere from being attempted. The classification is a pure
// function of the resulting found count.
func (c *Classifier) ClassifyPoint(ctx context.Context, pos magfield.Position, drivers magfield.DriverParameters) Result {
	var res Result

	for i, hemi := range hemispheres {
		hr := c.queryHemisphere(ctx, pos, drivers, hemi)
		res.Hemispheres[i] = hr
		if hr.Found {
			res.FoundCount++
		}
	}

	res.Classification = FromCount(res.FoundCount)

	c.log.Printf("classify: (%.3f, %.3f, %.3f) at %s -> %s (%d footpoints)",
		pos.X1, pos.X2, pos.X3, pos.ISOTime(), res.Classification, res.FoundCount)
	c.metrics.ObserveClassification(string(res.Classification))
	c.hub.BroadcastJSON(telemetry.ClassificationResult{
		Event:          telemetry.Event{Type: telemetry.EventClassification, TS: telemetry.NowTS()},
		X1:             pos.X1,
		X2:             pos.X2,
		X3:             pos.X3,
		DateTime:       pos.ISOTime(),
		Classification: string(res.Classification),
		Code:           res.Classification.Code(),
		FoundCount:     res.FoundCount,
	})

	return res
}

// TraceFieldLine passes a trace request through to the model, timing it for
// metrics. Unlike footpoint queries, trace failures surface to the caller:
// a trace is an explicit user request, not half of a counting loop.
func (c *Classifier) TraceFieldLine(ctx context.Context, pos magfield.Position, drivers magfield.DriverParameters) (*magfield.Trace, error) {
	start := time.Now()
	tr, err := c.model.TraceFieldLine(ctx, pos, drivers)
	c.metrics.ObserveModelCall("trace_field_line", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	c.log.Printf("classify: traced field line through (%.3f, %.3f, %.3f): %d points, L=%.2f, Bmin=%.2f nT",
		pos.X1, pos.X2, pos.X3, tr.NumPoints(), tr.LShell, tr.BMin)
	return tr, nil
}

func (c *Classifier) queryHemisphere(ctx context.Context, pos magfield.Position, drivers magfield.DriverParameters, hemi magfield.Hemisphere) HemisphereResult {
	start := time.Now()
	fp, err := c.model.FindFootpoint(ctx, pos, drivers, c.stopAltKm, hemi)
	c.metrics.ObserveModelCall("find_foot_point", err, time.Since(start))

	hr := HemisphereResult{Hemisphere: hemi}
	ev := telemetry.HemisphereAttempt{
		Event:      telemetry.Event{Type: telemetry.EventHemisphere, TS: telemetry.NowTS()},
		Hemisphere: hemi.String(),
	}

	if err != nil {
		hr.Err = err
		c.log.Printf("classify: footpoint query failed for %s hemisphere: %v", hemi, err)
		ev.Error = err.Error()
		c.hub.BroadcastJSON(ev)
		return hr
	}

	hr.Footpoint = fp
	hr.Found = fp.Valid()
	if fp != nil {
		ev.AltKm = fp.AltKm
		ev.LatDeg = fp.LatDeg
		ev.LonDeg = fp.LonDeg
	}
	ev.Found = hr.Found
	c.hub.BroadcastJSON(ev)
	return hr
}
