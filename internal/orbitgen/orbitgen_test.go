package orbitgen

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/fieldline-engine/internal/magfield"
	"github.com/large-farva/fieldline-engine/internal/orbit"
)

func TestGenerate(t *testing.T) {
	tbl, err := Generate(Options{
		Steps:   10,
		Step:    time.Minute,
		Drivers: magfield.DriverParameters{Pdyn: 2.0, Dst: -15, ByIMF: 0.5, BzIMF: -2},
	})
	require.NoError(t, err)

	require.Len(t, tbl.Rows, 10)
	require.NoError(t, tbl.RequireColumns())

	// Rows must be directly consumable by the batch driver.
	s, err := tbl.Sample(0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.Drivers.Pdyn)
	assert.Equal(t, -15.0, s.Drivers.Dst)

	// An orbiting spacecraft sits somewhere above 1 Earth radius but well
	// inside the magnetosphere.
	r := s.Position.X1*s.Position.X1 + s.Position.X2*s.Position.X2 + s.Position.X3*s.Position.X3
	assert.Greater(t, r, 1.0)
	assert.Less(t, r, 100.0)

	// Timestamps advance by the configured step.
	s1, err := tbl.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, s1.Position.Time.Sub(s.Position.Time))
}

func TestGenerateValidation(t *testing.T) {
	_, err := Generate(Options{Steps: 0, Step: time.Minute})
	assert.Error(t, err)

	_, err = Generate(Options{Steps: 5, Step: 0})
	assert.Error(t, err)

	_, err = Generate(Options{Steps: 5, Step: time.Minute, TLE: "junk"})
	assert.Error(t, err)
}

func TestGenerateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orbit.txt")

	n, err := GenerateFile(path, Options{
		Steps:   5,
		Step:    30 * time.Second,
		Drivers: magfield.DriverParameters{Pdyn: 2.0},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	tbl, err := orbit.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 5)
	require.NoError(t, tbl.RequireColumns())

	// Coordinate cells are plain decimal kilometers.
	xi, _ := tbl.ColumnIndex(orbit.ColX)
	_, err = strconv.ParseFloat(tbl.Rows[0][xi], 64)
	assert.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
