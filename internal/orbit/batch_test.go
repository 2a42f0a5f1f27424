package orbit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/fieldline-engine/internal/classify"
	"github.com/large-farva/fieldline-engine/internal/magfield"
)

// scriptedModel decides footpoint validity from the radial distance of the
// query position: far positions lose their southern footpoint, very far
// positions lose both. Deterministic, so parallel runs stay reproducible.
type scriptedModel struct{}

func (scriptedModel) FindFootpoint(_ context.Context, pos magfield.Position, _ magfield.DriverParameters, _ float64, hemi magfield.Hemisphere) (*magfield.Footpoint, error) {
	r := pos.X1
	switch {
	case r > 6:
		return &magfield.Footpoint{AltKm: 1e31, LatDeg: 1e31, LonDeg: 1e31}, nil
	case r > 3 && hemi == magfield.South:
		return &magfield.Footpoint{AltKm: -9999, LatDeg: -9999, LonDeg: -9999}, nil
	default:
		return &magfield.Footpoint{AltKm: 100, LatDeg: 60 * float64(hemi), LonDeg: 10}, nil
	}
}

func (scriptedModel) TraceFieldLine(context.Context, magfield.Position, magfield.DriverParameters) (*magfield.Trace, error) {
	return nil, errors.New("not used")
}

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestBatch() *Batch {
	c := classify.New(scriptedModel{}, discardLogger(), nil, nil)
	return NewBatch(c, discardLogger(), nil, nil)
}

// batchTable builds a table whose rows alternate closed / open / IMF by
// choosing x so that x/6371 lands in the scripted model's bands.
func batchTable(t *testing.T, rows int) *Table {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("x(km)\ty(km)\tz(km)\tdatetime\tDst_index\tPdyn\tBY_GSM\tBZ_GSM\n")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		var xkm float64
		switch i % 3 {
		case 0:
			xkm = 2 * magfield.EarthRadiusKm // closed
		case 1:
			xkm = 5 * magfield.EarthRadiusKm // open
		case 2:
			xkm = 8 * magfield.EarthRadiusKm // IMF
		}
		fmt.Fprintf(&sb, "%.1f\t0.0\t0.0\t%s\t0\t2.0\t0.0\t0.0\n",
			xkm, base.Add(time.Duration(i)*time.Minute).Format("2006-01-02 15:04:05"))
	}

	path := filepath.Join(t.TempDir(), "orbit.txt")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	tbl, err := ReadFile(path)
	require.NoError(t, err)
	return tbl
}

func TestBatchRunSequential(t *testing.T) {
	tbl := batchTable(t, 6)

	summary, err := newTestBatch().Run(context.Background(), tbl, 1)
	require.NoError(t, err)

	assert.Equal(t, Summary{Rows: 6, Closed: 2, Open: 2, IMF: 2}, summary)

	ci, ok := tbl.ColumnIndex(ColClassification)
	require.True(t, ok)
	want := []string{"2", "0", "1", "2", "0", "1"}
	for i, row := range tbl.Rows {
		assert.Equal(t, want[i], row[ci], "row %d", i)
	}
}

func TestBatchRunParallelPreservesOrder(t *testing.T) {
	tbl := batchTable(t, 30)

	summary, err := newTestBatch().Run(context.Background(), tbl, 8)
	require.NoError(t, err)
	assert.Equal(t, 30, summary.Rows)

	ci, _ := tbl.ColumnIndex(ColClassification)
	for i, row := range tbl.Rows {
		want := []string{"2", "0", "1"}[i%3]
		assert.Equal(t, want, row[ci], "row %d", i)
	}
}

func TestBatchRunMalformedRowAborts(t *testing.T) {
	tbl := batchTable(t, 3)
	tbl.Rows[1][0] = "garbage"

	_, err := newTestBatch().Run(context.Background(), tbl, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch aborted")
	assert.Contains(t, err.Error(), "row 1")

	// The output column must not be attached on failure.
	_, ok := tbl.ColumnIndex(ColClassification)
	assert.False(t, ok)
}

func TestBatchRunMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.txt")
	require.NoError(t, os.WriteFile(path, []byte("x(km)\ty(km)\n1\t2\n"), 0o644))
	tbl, err := ReadFile(path)
	require.NoError(t, err)

	_, err = newTestBatch().Run(context.Background(), tbl, 1)
	assert.Error(t, err)
}

func TestBatchRunCancelled(t *testing.T) {
	tbl := batchTable(t, 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestBatch().Run(ctx, tbl, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchRunFile(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("x(km)\ty(km)\tz(km)\tdatetime\tDst_index\tPdyn\tBY_GSM\tBZ_GSM\textra\n")
	fmt.Fprintf(&sb, "%.1f\t0.0\t0.0\t2024-01-01 00:00:00\t0\t2.0\t0.0\t0.0\tkeep me\n", 2*magfield.EarthRadiusKm)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "in_classified.txt")
	require.NoError(t, os.WriteFile(in, []byte(sb.String()), 0o644))

	summary, err := newTestBatch().RunFile(context.Background(), in, out, 1)
	require.NoError(t, err)
	assert.Equal(t, Summary{Rows: 1, Closed: 1}, summary)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(got), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "\textra\tfield_line_type"))
	assert.True(t, strings.HasSuffix(lines[1], "\tkeep me\t2"))

	// Input file is left untouched.
	orig, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, sb.String(), string(orig))
}
