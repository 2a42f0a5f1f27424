// Package orbit reads, classifies, and writes tab-separated orbit sample
// tables. The batch driver applies the single-point classifier to every row
// and appends the numeric field_line_type column, leaving every original
// cell untouched.
package orbit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/large-farva/fieldline-engine/internal/magfield"
)

// Column names the batch driver requires in its input.
const (
	ColX        = "x(km)"
	ColY        = "y(km)"
	ColZ        = "z(km)"
	ColDateTime = "datetime"
	ColDst      = "Dst_index"
	ColPdyn     = "Pdyn"
	ColBy       = "BY_GSM"
	ColBz       = "BZ_GSM"

	// ColClassification is the single column the batch driver appends.
	ColClassification = "field_line_type"
)

var requiredColumns = []string{ColX, ColY, ColZ, ColDateTime, ColDst, ColPdyn, ColBy, ColBz}

// timeLayouts are the timestamp formats accepted in the datetime column.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Table is a tab-separated table held as raw strings so columns this code
// does not understand pass through a classify-rewrite cycle byte for byte.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable creates an empty table with the given header.
func NewTable(columns ...string) *Table {
	t := &Table{Columns: columns}
	t.buildIndex()
	return t
}

// ReadFile loads a tab-separated table with a header row.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open orbit file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read orbit header: %w", err)
		}
		return nil, fmt.Errorf("orbit file %s is empty", path)
	}

	t := &Table{Columns: splitRow(sc.Text())}
	t.buildIndex()

	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := splitRow(line)
		if len(cells) != len(t.Columns) {
			return nil, fmt.Errorf("orbit row %d: %d cells, header has %d columns",
				len(t.Rows)+1, len(cells), len(t.Columns))
		}
		t.Rows = append(t.Rows, cells)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read orbit file: %w", err)
	}

	return t, nil
}

// WriteFile writes the table tab-separated via a temp file and rename so
// readers never see a half-written file.
func (t *Table) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "orbit-*.tmp")
	if err != nil {
		return err
	}

	w := bufio.NewWriter(tmp)
	write := func(cells []string) error {
		_, err := w.WriteString(strings.Join(cells, "\t") + "\n")
		return err
	}

	werr := write(t.Columns)
	for _, row := range t.Rows {
		if werr != nil {
			break
		}
		werr = write(row)
	}
	if werr == nil {
		werr = w.Flush()
	}
	if werr == nil {
		werr = tmp.Close()
	} else {
		tmp.Close()
	}
	if werr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write orbit file: %w", werr)
	}

	return os.Rename(tmp.Name(), path)
}

// ColumnIndex returns the position of a named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// RequireColumns fails fast if any column the batch driver needs is missing,
// so a bad input aborts before the first model call instead of mid-run.
func (t *Table) RequireColumns() error {
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := t.index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("orbit file missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// AppendColumn adds one column with a value per row.
func (t *Table) AppendColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("append column %s: %d values for %d rows", name, len(values), len(t.Rows))
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	t.buildIndex()
	return nil
}

// Sample is one parsed orbit row: the position in Earth radii and the driver
// parameters taken from the row's index columns.
type Sample struct {
	Position magfield.Position
	Drivers  magfield.DriverParameters
}

// Sample parses row i into typed model inputs. Kilometer coordinates are
// converted to Earth radii here. Any malformed cell is a fatal row error.
func (t *Table) Sample(i int) (Sample, error) {
	row := t.Rows[i]

	cell := func(name string) string {
		return row[t.index[name]]
	}
	num := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(cell(name)), 64)
		if err != nil {
			return 0, fmt.Errorf("row %d: column %s: %w", i, name, err)
		}
		return v, nil
	}

	x, err := num(ColX)
	if err != nil {
		return Sample{}, err
	}
	y, err := num(ColY)
	if err != nil {
		return Sample{}, err
	}
	z, err := num(ColZ)
	if err != nil {
		return Sample{}, err
	}

	ts, err := parseTime(cell(ColDateTime))
	if err != nil {
		return Sample{}, fmt.Errorf("row %d: column %s: %w", i, ColDateTime, err)
	}

	var s Sample
	s.Position = magfield.FromKilometers(x, y, z, ts)

	if s.Drivers.Dst, err = num(ColDst); err != nil {
		return Sample{}, err
	}
	if s.Drivers.Pdyn, err = num(ColPdyn); err != nil {
		return Sample{}, err
	}
	if s.Drivers.ByIMF, err = num(ColBy); err != nil {
		return Sample{}, err
	}
	if s.Drivers.BzIMF, err = num(ColBz); err != nil {
		return Sample{}, err
	}

	return s, nil
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, name := range t.Columns {
		t.index[name] = i
	}
}

func splitRow(line string) []string {
	cells := strings.Split(line, "\t")
	for i := range cells {
		cells[i] = strings.TrimRight(cells[i], "\r")
	}
	return cells
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
