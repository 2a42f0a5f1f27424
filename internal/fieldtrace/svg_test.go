package fieldtrace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/fieldline-engine/internal/magfield"
)

func TestRenderSVG(t *testing.T) {
	tr := &magfield.Trace{
		Points: []magfield.Point{
			{X: 7.5, Y: 3.0, Z: 2.0},
			{X: 6.0, Y: 2.5, Z: 1.2},
			{X: 4.1, Y: 1.9, Z: 0.3},
			{X: 2.0, Y: 1.0, Z: -0.8},
		},
		LShell: 8.4,
		BMin:   12.5,
	}

	out, err := RenderSVG(tr)
	require.NoError(t, err)
	svg := string(out)

	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(svg), "</svg>"))
	assert.Contains(t, svg, "<polyline")
	assert.Contains(t, svg, "lightblue")
	assert.Contains(t, svg, `fill="red"`)
	assert.Contains(t, svg, "4 points, L=8.40, Bmin=12.50 nT")
	// One polyline coordinate pair per trace point.
	pointsAttr := svg[strings.Index(svg, `points="`)+len(`points="`):]
	pointsAttr = pointsAttr[:strings.Index(pointsAttr, `"`)]
	assert.Len(t, strings.Fields(pointsAttr), 4)
}

func TestRenderSVGEmptyTrace(t *testing.T) {
	_, err := RenderSVG(&magfield.Trace{})
	assert.Error(t, err)
}
