package orbit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTSV = "x(km)\ty(km)\tz(km)\tdatetime\tDst_index\tPdyn\tBY_GSM\tBZ_GSM\tnote\n" +
	"6371.0\t12742.0\t0.0\t2024-01-01 00:00:00\t-30\t2.0\t1.5\t-4.0\tperigee leg\n" +
	"19113.0\t0.0\t6371.0\t2024-01-01 00:05:00\t-28\t2.1\t1.4\t-3.8\tascending\n"

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orbit.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleTSV), 0o644))
	return path
}

func TestReadFile(t *testing.T) {
	tbl, err := ReadFile(writeSample(t))
	require.NoError(t, err)

	assert.Len(t, tbl.Columns, 9)
	assert.Len(t, tbl.Rows, 2)
	require.NoError(t, tbl.RequireColumns())

	// Unknown columns ride along untouched.
	i, ok := tbl.ColumnIndex("note")
	require.True(t, ok)
	assert.Equal(t, "perigee leg", tbl.Rows[0][i])
}

func TestReadFileRejectsRaggedRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\tb\n1\t2\t3\n"), 0o644))

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header has 2 columns")
}

func TestRequireColumnsReportsMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.txt")
	require.NoError(t, os.WriteFile(path, []byte("x(km)\ty(km)\n1\t2\n"), 0o644))

	tbl, err := ReadFile(path)
	require.NoError(t, err)

	err = tbl.RequireColumns()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "z(km)")
	assert.Contains(t, err.Error(), "BZ_GSM")
}

func TestSampleParsesRow(t *testing.T) {
	tbl, err := ReadFile(writeSample(t))
	require.NoError(t, err)

	s, err := tbl.Sample(0)
	require.NoError(t, err)

	// Kilometers are converted to Earth radii.
	assert.InDelta(t, 1.0, s.Position.X1, 1e-12)
	assert.InDelta(t, 2.0, s.Position.X2, 1e-12)
	assert.Zero(t, s.Position.X3)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s.Position.Time)

	assert.Equal(t, -30.0, s.Drivers.Dst)
	assert.Equal(t, 2.0, s.Drivers.Pdyn)
	assert.Equal(t, 1.5, s.Drivers.ByIMF)
	assert.Equal(t, -4.0, s.Drivers.BzIMF)
}

func TestSampleMalformedCell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mal.txt")
	bad := strings.Replace(sampleTSV, "\t2.1\t", "\tnot-a-number\t", 1)
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	tbl, err := ReadFile(path)
	require.NoError(t, err)

	_, err = tbl.Sample(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
	assert.Contains(t, err.Error(), "Pdyn")
}

func TestAppendColumnAndWriteRoundTrip(t *testing.T) {
	tbl, err := ReadFile(writeSample(t))
	require.NoError(t, err)

	require.NoError(t, tbl.AppendColumn(ColClassification, []string{"2", "0"}))
	assert.Error(t, tbl.AppendColumn("too_short", []string{"1"}))

	out := filepath.Join(t.TempDir(), "classified.txt")
	require.NoError(t, tbl.WriteFile(out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(got), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "x(km)\ty(km)\tz(km)\tdatetime\tDst_index\tPdyn\tBY_GSM\tBZ_GSM\tnote\tfield_line_type", lines[0])
	// Original cells are preserved byte for byte, with only the new column added.
	assert.Equal(t, strings.Split(sampleTSV, "\n")[1]+"\t2", lines[1])
	assert.Equal(t, strings.Split(sampleTSV, "\n")[2]+"\t0", lines[2])
}

func TestParseTimeLayouts(t *testing.T) {
	for _, s := range []string{
		"2024-01-01 00:00:00",
		"2024-01-01T00:00:00",
		"2024-01-01T00:00:00Z",
	} {
		ts, err := parseTime(s)
		require.NoError(t, err, s)
		assert.Equal(t, 2024, ts.Year())
	}

	_, err := parseTime("today")
	assert.Error(t, err)
}
