package ingestion

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInputMissing is returned when a required input file does not exist.
	ErrInputMissing = errors.New("input file missing")
	// ErrMissingColumn is returned when a log header lacks a required column.
	ErrMissingColumn = errors.New("required column missing")
)

// LoadStats counts the rows read from one log.
type LoadStats struct {
	Rows     int `json:"rows"`
	Rejected int `json:"rejected"`
}

// table reads a headed CSV log and resolves columns by name.
type table struct {
	reader *csv.Reader
	index  map[string]int
	width  int
	line   int
}

func newTable(r io.Reader, required, optional []string) (*table, error) {
	reader := csv.NewReader(r)
	// Leading spaces are kept so that a bare JSON payload split on its commas
	// is not mistaken for a quoted field; cells are trimmed on access.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Wrapf(ErrMissingColumn, "%s", strings.Join(missing, ", "))
	}

	known := make(map[string]int, len(required)+len(optional))
	for _, name := range append(append([]string{}, required...), optional...) {
		if i, ok := index[name]; ok {
			known[name] = i
		}
	}

	return &table{reader: reader, index: known, width: len(header), line: 1}, nil
}

// next returns the following record, or io.EOF.
func (t *table) next() (record, error) {
	row, err := t.reader.Read()
	t.line++
	if err != nil {
		if err == io.EOF {
			return record{}, io.EOF
		}
		return record{}, errors.Wrapf(err, "line %d", t.line)
	}
	return record{row: row, index: t.index, width: t.width, line: t.line}, nil
}

type record struct {
	row   []string
	index map[string]int
	width int
	line  int
}

func (r record) str(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

// rest is str for the last header column, except that surplus cells are
// joined back with commas. Dump logs often carry unquoted JSON payloads.
func (r record) rest(col string) string {
	i, ok := r.index[col]
	if !ok || i != r.width-1 || len(r.row) <= r.width {
		return r.str(col)
	}
	return strings.TrimSpace(strings.Join(r.row[i:], ","))
}

// float returns nil for empty, NaN or non-numeric cells.
func (r record) float(col string) *float64 {
	s := r.str(col)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func (r record) bool(col string) bool {
	switch strings.ToLower(r.str(col)) {
	case "true", "1", "yes", "t", "y":
		return true
	default:
		return false
	}
}

// complete reports whether the row holds a cell for every header column.
func (r record) complete() bool {
	for _, i := range r.index {
		if i >= len(r.row) {
			return false
		}
	}
	return true
}
