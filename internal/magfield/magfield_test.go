package magfield

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFootpointValid(t *testing.T) {
	cases := []struct {
		name string
		fp   *Footpoint
		want bool
	}{
		{"nil footpoint", nil, false},
		{"ordinary coordinates", &Footpoint{AltKm: 100, LatDeg: 65.2, LonDeg: -147.9}, true},
		{"zero coordinates", &Footpoint{}, true},
		{"positive overflow sentinel in altitude", &Footpoint{AltKm: 1e31, LatDeg: 65, LonDeg: 10}, false},
		{"negative overflow sentinel in latitude", &Footpoint{AltKm: 100, LatDeg: -1e31, LonDeg: 10}, false},
		{"minus 9999 sentinel in longitude", &Footpoint{AltKm: 100, LatDeg: 65, LonDeg: -9999}, false},
		{"plus 9999 sentinel in altitude", &Footpoint{AltKm: 9999, LatDeg: 65, LonDeg: 10}, false},
		{"all sentinels", &Footpoint{AltKm: -9999, LatDeg: -9999, LonDeg: -9999}, false},
		{"near-sentinel value is still valid", &Footpoint{AltKm: 9999.0001, LatDeg: 65, LonDeg: 10}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.fp.Valid())
		})
	}
}

func TestFromKilometers(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pos := FromKilometers(6371, -12742, 0, at)

	assert.InDelta(t, 1.0, pos.X1, 1e-12)
	assert.InDelta(t, -2.0, pos.X2, 1e-12)
	assert.Zero(t, pos.X3)
	assert.Equal(t, "2024-01-01T00:00:00", pos.ISOTime())
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant(7)
	require.NoError(t, err)
	assert.Equal(t, VariantT96, v)
	assert.Equal(t, "T96", v.String())

	_, err = ParseVariant(42)
	assert.Error(t, err)
}

func TestVariantValidate(t *testing.T) {
	good := DriverParameters{Pdyn: 2.0, Dst: 0, ByIMF: 0, BzIMF: 0}
	require.NoError(t, VariantT96.Validate(good))

	bad := good
	bad.BzIMF = math.NaN()
	err := VariantT96.Validate(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BzIMF")

	// The quiet-time model reads no drivers, so even a NaN-laden struct is fine.
	assert.NoError(t, VariantOPQuiet.Validate(bad))
}

func TestVariantEncode(t *testing.T) {
	m, err := VariantT96.Encode(DriverParameters{Pdyn: 2.0, Dst: -30, ByIMF: 1.5, BzIMF: -4})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		"Pdyn":  2.0,
		"Dst":   -30,
		"ByIMF": 1.5,
		"BzIMF": -4,
	}, m)

	m, err = VariantOPQuiet.Encode(DriverParameters{})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestHemisphereString(t *testing.T) {
	assert.Equal(t, "north", North.String())
	assert.Equal(t, "south", South.String())
}
