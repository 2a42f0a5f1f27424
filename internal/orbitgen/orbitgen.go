// Package orbitgen produces synthetic orbit sample files for the batch
// classifier: SGP4-propagated spacecraft positions at a fixed time step,
// written in the same tab-separated layout the real mission exports use.
// The driver-parameter columns carry constant quiet-time values, so the
// output exercises the full classification pipeline without needing archived
// solar-wind data.
package orbitgen

import (
	"fmt"
	"strconv"
	"time"

	"github.com/akhenakh/sgp4"

	"github.com/large-farva/fieldline-engine/internal/magfield"
	"github.com/large-farva/fieldline-engine/internal/orbit"
)

// DefaultTLE is a fallback element set (ISS) so generation works out of the
// box without supplying orbital elements.
const DefaultTLE = `ISS (ZARYA)
1 25544U 98067A   25138.37048074  .00007749  00000+0  14567-3 0  9994
2 25544  51.6369  94.7823 0002558 120.7586  15.7840 15.49587957510533`

// Options control one generation run.
type Options struct {
	TLE     string        // three-line element set; DefaultTLE when empty
	Start   time.Time     // first sample time; TLE epoch when zero
	Steps   int           // number of rows to produce
	Step    time.Duration // sample spacing
	Drivers magfield.DriverParameters
}

// Generate propagates the orbit and returns a table with the batch driver's
// required columns. Positions are inertial-frame kilometers straight from
// the propagator; for pipeline testing that is what matters, not frame
// fidelity.
func Generate(opts Options) (*orbit.Table, error) {
	if opts.Steps <= 0 {
		return nil, fmt.Errorf("orbitgen: steps must be positive, got %d", opts.Steps)
	}
	if opts.Step <= 0 {
		return nil, fmt.Errorf("orbitgen: step duration must be positive, got %s", opts.Step)
	}

	raw := opts.TLE
	if raw == "" {
		raw = DefaultTLE
	}
	tle, err := sgp4.ParseTLE(raw)
	if err != nil {
		return nil, fmt.Errorf("orbitgen: parse TLE: %w", err)
	}

	start := opts.Start
	if start.IsZero() {
		start = tle.EpochTime()
	}
	epoch := tle.EpochTime()

	t := orbit.NewTable(
		orbit.ColX, orbit.ColY, orbit.ColZ, orbit.ColDateTime,
		orbit.ColDst, orbit.ColPdyn, orbit.ColBy, orbit.ColBz,
	)

	dst := formatDriver(opts.Drivers.Dst)
	pdyn := formatDriver(opts.Drivers.Pdyn)
	by := formatDriver(opts.Drivers.ByIMF)
	bz := formatDriver(opts.Drivers.BzIMF)

	for i := 0; i < opts.Steps; i++ {
		at := start.Add(time.Duration(i) * opts.Step)
		tsince := at.Sub(epoch).Minutes()

		eci, err := tle.FindPosition(tsince)
		if err != nil {
			return nil, fmt.Errorf("orbitgen: propagate step %d (%s): %w", i, at.Format(time.RFC3339), err)
		}

		t.Rows = append(t.Rows, []string{
			formatKm(eci.Position.X),
			formatKm(eci.Position.Y),
			formatKm(eci.Position.Z),
			at.UTC().Format("2006-01-02 15:04:05"),
			dst, pdyn, by, bz,
		})
	}

	return t, nil
}

// GenerateFile writes a generated table to path.
func GenerateFile(path string, opts Options) (int, error) {
	t, err := Generate(opts)
	if err != nil {
		return 0, err
	}
	if err := t.WriteFile(path); err != nil {
		return 0, err
	}
	return len(t.Rows), nil
}

func formatKm(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatDriver(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
