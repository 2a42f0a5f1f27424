// Package magfield defines the typed inputs and outputs of the external
// geomagnetic field model and the client used to reach it. The model itself
// (Tsyganenko-class external field, coordinate transforms, field-line
// integration) is a pre-existing native library running out of process; this
// package only speaks its request/response contract.
package magfield

import (
	"context"
	"fmt"
	"time"
)

// EarthRadiusKm converts between kilometer positions and the Earth-radii
// units the model expects.
const EarthRadiusKm = 6371.0

// Hemisphere selects which magnetic hemisphere a footpoint trace targets.
type Hemisphere int

const (
	North Hemisphere = 1
	South Hemisphere = -1
)

func (h Hemisphere) String() string {
	switch h {
	case North:
		return "north"
	case South:
		return "south"
	default:
		return fmt.Sprintf("hemisphere(%d)", int(h))
	}
}

// Position is a point in the model's configured coordinate system (GSM by
// default), in Earth radii, paired with the evaluation time.
type Position struct {
	X1, X2, X3 float64
	Time       time.Time
}

// FromKilometers builds a Position from kilometer coordinates.
func FromKilometers(x, y, z float64, t time.Time) Position {
	return Position{
		X1:   x / EarthRadiusKm,
		X2:   y / EarthRadiusKm,
		X3:   z / EarthRadiusKm,
		Time: t,
	}
}

// ISOTime formats the position's timestamp the way the model wants it.
func (p Position) ISOTime() string {
	return p.Time.UTC().Format("2006-01-02T15:04:05")
}

// DriverParameters are the solar-wind and geomagnetic-index inputs the
// external field model needs to evaluate the field at a given time. Which
// fields are actually consumed depends on the configured Variant; Validate
// on the variant is the fail-fast contract for that.
type DriverParameters struct {
	Pdyn  float64 // solar wind dynamic pressure, nPa
	Dst   float64 // Dst index, nT
	ByIMF float64 // IMF By, GSM, nT
	BzIMF float64 // IMF Bz, GSM, nT
}

// badData holds the model-documented sentinel values that mark a footpoint
// coordinate as "no physically valid result".
var badData = [4]float64{1e31, -1e31, -9999, 9999}

// Footpoint is the point where a traced field line crosses the stop altitude:
// geodetic altitude in km, latitude and longitude in degrees.
type Footpoint struct {
	AltKm  float64 `json:"alt_km"`
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
}

// Valid reports whether the footpoint is physically meaningful. A nil
// footpoint or any coordinate equal to a sentinel value means the model found
// no crossing. Comparison is exact equality: the sentinels are documented
// constants written verbatim by the model, not computed results, so an
// epsilon here would start rejecting real coordinates near 9999.
func (f *Footpoint) Valid() bool {
	if f == nil {
		return false
	}
	for _, v := range []float64{f.AltKm, f.LatDeg, f.LonDeg} {
		for _, bad := range badData {
			if v == bad {
				return false
			}
		}
	}
	return true
}

// Point is one sample along a traced field line, in Earth radii.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Trace is a materialized field line with its auxiliary scalars. It is a
// diagnostic product; the classification path never consumes it.
type Trace struct {
	Points []Point `json:"points"`
	LShell float64 `json:"l_shell"`
	BMin   float64 `json:"b_min_nt"` // minimum field magnitude along the line, nT
}

// NumPoints returns the number of samples along the trace.
func (t *Trace) NumPoints() int {
	if t == nil {
		return 0
	}
	return len(t.Points)
}

// Model is the call interface to the external geomagnetic field model.
//
// FindFootpoint returns the ionospheric footpoint of the field line through
// pos, traced toward hemi down to stopAltKm. The returned footpoint may carry
// sentinel coordinates; callers must check Valid. TraceFieldLine returns the
// full field line through pos for plotting and diagnostics.
type Model interface {
	FindFootpoint(ctx context.Context, pos Position, drivers DriverParameters, stopAltKm float64, hemi Hemisphere) (*Footpoint, error)
	TraceFieldLine(ctx context.Context, pos Position, drivers DriverParameters) (*Trace, error)
}
