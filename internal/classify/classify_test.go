package classify

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/fieldline-engine/internal/magfield"
)

// stubModel answers footpoint queries from a per-hemisphere script.
type stubModel struct {
	footpoints map[magfield.Hemisphere]*magfield.Footpoint
	errs       map[magfield.Hemisphere]error
	trace      *magfield.Trace
	traceErr   error

	calls []magfield.Hemisphere
}

func (m *stubModel) FindFootpoint(_ context.Context, _ magfield.Position, _ magfield.DriverParameters, _ float64, hemi magfield.Hemisphere) (*magfield.Footpoint, error) {
	m.calls = append(m.calls, hemi)
	if err := m.errs[hemi]; err != nil {
		return nil, err
	}
	return m.footpoints[hemi], nil
}

func (m *stubModel) TraceFieldLine(context.Context, magfield.Position, magfield.DriverParameters) (*magfield.Trace, error) {
	return m.trace, m.traceErr
}

var (
	validNorth = &magfield.Footpoint{AltKm: 100, LatDeg: 65.0, LonDeg: -147.0}
	validSouth = &magfield.Footpoint{AltKm: 100, LatDeg: -64.0, LonDeg: 32.0}
	sentinel   = &magfield.Footpoint{AltKm: -9999, LatDeg: -9999, LonDeg: -9999}
)

func testPosition() magfield.Position {
	return magfield.Position{
		X1:   7.5,
		X2:   3.0,
		X3:   2.0,
		Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testDrivers() magfield.DriverParameters {
	return magfield.DriverParameters{Pdyn: 2.0, Dst: 0, ByIMF: 0.0, BzIMF: 0.0}
}

func newTestClassifier(m magfield.Model) *Classifier {
	return New(m, log.New(io.Discard, "", 0), nil, nil)
}

func TestClassifyPointBothFound(t *testing.T) {
	m := &stubModel{footpoints: map[magfield.Hemisphere]*magfield.Footpoint{
		magfield.North: validNorth,
		magfield.South: validSouth,
	}}

	res := newTestClassifier(m).ClassifyPoint(context.Background(), testPosition(), testDrivers())

	assert.Equal(t, Closed, res.Classification)
	assert.Equal(t, 2, res.FoundCount)
	assert.Equal(t, 2, res.Classification.Code())
}

func TestClassifyPointOneFound(t *testing.T) {
	m := &stubModel{footpoints: map[magfield.Hemisphere]*magfield.Footpoint{
		magfield.North: validNorth,
		magfield.South: sentinel,
	}}

	res := newTestClassifier(m).ClassifyPoint(context.Background(), testPosition(), testDrivers())

	assert.Equal(t, Open, res.Classification)
	assert.Equal(t, 1, res.FoundCount)
	assert.Equal(t, 0, res.Classification.Code())
	assert.True(t, res.Hemispheres[0].Found)
	assert.False(t, res.Hemispheres[1].Found)
}

func TestClassifyPointNoneFound(t *testing.T) {
	m := &stubModel{footpoints: map[magfield.Hemisphere]*magfield.Footpoint{
		magfield.North: sentinel,
		magfield.South: sentinel,
	}}

	res := newTestClassifier(m).ClassifyPoint(context.Background(), testPosition(), testDrivers())

	assert.Equal(t, IMF, res.Classification)
	assert.Equal(t, 0, res.FoundCount)
	assert.Equal(t, 1, res.Classification.Code())
}

func TestClassifyPointHemisphereFailureIsAbsorbed(t *testing.T) {
	m := &stubModel{
		footpoints: map[magfield.Hemisphere]*magfield.Footpoint{
			magfield.South: validSouth,
		},
		errs: map[magfield.Hemisphere]error{
			magfield.North: errors.New("field line did not converge"),
		},
	}

	res := newTestClassifier(m).ClassifyPoint(context.Background(), testPosition(), testDrivers())

	// The failed hemisphere contributes zero and the other is still attempted.
	require.Equal(t, []magfield.Hemisphere{magfield.North, magfield.South}, m.calls)
	assert.Equal(t, Open, res.Classification)
	assert.Equal(t, 1, res.FoundCount)
	assert.Error(t, res.Hemispheres[0].Err)
	assert.NoError(t, res.Hemispheres[1].Err)
}

func TestClassifyPointBothFail(t *testing.T) {
	boom := errors.New("model unreachable")
	m := &stubModel{errs: map[magfield.Hemisphere]error{
		magfield.North: boom,
		magfield.South: boom,
	}}

	res := newTestClassifier(m).ClassifyPoint(context.Background(), testPosition(), testDrivers())

	assert.Equal(t, IMF, res.Classification)
	assert.Equal(t, 0, res.FoundCount)
}

func TestClassifyPointQueriesNorthThenSouth(t *testing.T) {
	m := &stubModel{footpoints: map[magfield.Hemisphere]*magfield.Footpoint{
		magfield.North: validNorth,
		magfield.South: validSouth,
	}}

	newTestClassifier(m).ClassifyPoint(context.Background(), testPosition(), testDrivers())

	assert.Equal(t, []magfield.Hemisphere{magfield.North, magfield.South}, m.calls)
}

func TestFromCount(t *testing.T) {
	assert.Equal(t, Closed, FromCount(2))
	assert.Equal(t, Open, FromCount(1))
	assert.Equal(t, IMF, FromCount(0))
	// Defensive mapping for impossible counts.
	assert.Equal(t, IMF, FromCount(-1))
	assert.Equal(t, IMF, FromCount(3))
}

func TestClassificationCodes(t *testing.T) {
	assert.Equal(t, 2, Closed.Code())
	assert.Equal(t, 0, Open.Code())
	assert.Equal(t, 1, IMF.Code())
	assert.Equal(t, -1, Classification("bogus").Code())
}

func TestTraceFieldLinePassThrough(t *testing.T) {
	want := &magfield.Trace{
		Points: []magfield.Point{{X: 7.5, Y: 3, Z: 2}, {X: 6, Y: 2, Z: 1}},
		LShell: 8.1,
		BMin:   14.2,
	}
	m := &stubModel{trace: want}

	tr, err := newTestClassifier(m).TraceFieldLine(context.Background(), testPosition(), testDrivers())
	require.NoError(t, err)
	assert.Equal(t, want, tr)

	m2 := &stubModel{traceErr: errors.New("trace failed")}
	_, err = newTestClassifier(m2).TraceFieldLine(context.Background(), testPosition(), testDrivers())
	assert.Error(t, err)
}
