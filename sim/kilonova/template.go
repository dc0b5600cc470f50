// Package kilonova loads kilonova photometric templates: tables of phase
// (days since merger) against apparent magnitude in one or more filters.
// A Template is immutable once loaded and safe to share between goroutines.
package kilonova

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// DefaultPhaseColumn is the phase column of the reference template.
const DefaultPhaseColumn = "ofphase"

// Template is a phase-sorted photometric table.
type Template struct {
	phaseColumn string
	phases      []float64
	columns     map[string][]float64
	names       []string // filter column names in file order
}

// Load reads a template file. See Parse for the format.
func Load(path, phaseColumn string) (*Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening kilonova template: %w", err)
	}
	defer f.Close()
	t, err := Parse(f, phaseColumn)
	if err != nil {
		return nil, fmt.Errorf("parsing kilonova template %s: %w", path, err)
	}
	return t, nil
}

// Parse reads a whitespace-separated table. The header is the last line
// before the first data row whose fields are not all numeric (a leading '#'
// is stripped), so free-text comments may precede it. Once data starts,
// lines beginning with '#' are comments. The table needs the phase column
// plus at least two filter columns. Rows are sorted by phase.
func Parse(r io.Reader, phaseColumn string) (*Template, error) {
	if phaseColumn == "" {
		phaseColumn = DefaultPhaseColumn
	}
	var header []string
	var rows [][]float64

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		comment := strings.HasPrefix(line, "#")
		if len(rows) == 0 {
			fields := strings.Fields(strings.TrimLeft(line, "#"))
			if len(fields) == 0 {
				continue
			}
			if !allNumeric(fields) {
				header = fields
				continue
			}
		}
		if comment {
			continue
		}
		if header == nil {
			return nil, fmt.Errorf("line %d: data before header", lineNo)
		}
		fields := strings.Fields(line)
		if len(fields) != len(header) {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", lineNo, len(fields), len(header))
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", lineNo, header[i], err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	if header == nil {
		return nil, fmt.Errorf("template has no header")
	}
	if len(header) < 3 {
		return nil, fmt.Errorf("template needs a phase column and at least two filters, got %v", header)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("template has no rows")
	}
	phaseIdx := -1
	for i, name := range header {
		if name == phaseColumn {
			phaseIdx = i
		}
	}
	if phaseIdx < 0 {
		return nil, fmt.Errorf("template has no phase column %q (columns: %v)", phaseColumn, header)
	}

	sort.SliceStable(rows, func(a, b int) bool { return rows[a][phaseIdx] < rows[b][phaseIdx] })

	t := &Template{
		phaseColumn: phaseColumn,
		phases:      make([]float64, len(rows)),
		columns:     make(map[string][]float64, len(header)-1),
	}
	for i, row := range rows {
		t.phases[i] = row[phaseIdx]
	}
	for c, name := range header {
		if c == phaseIdx {
			continue
		}
		if _, dup := t.columns[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		col := make([]float64, len(rows))
		for i, row := range rows {
			col[i] = row[c]
		}
		t.columns[name] = col
		t.names = append(t.names, name)
	}
	return t, nil
}

func allNumeric(fields []string) bool {
	for _, f := range fields {
		if _, err := strconv.ParseFloat(f, 64); err != nil {
			return false
		}
	}
	return true
}

// Len returns the number of rows.
func (t *Template) Len() int { return len(t.phases) }

// Phases returns a copy of the sorted phase column.
func (t *Template) Phases() []float64 {
	return append([]float64(nil), t.phases...)
}

// Filters returns the filter column names in file order.
func (t *Template) Filters() []string {
	return append([]string(nil), t.names...)
}

// Column returns a copy of a filter column in phase order.
func (t *Template) Column(name string) ([]float64, error) {
	col, ok := t.columns[name]
	if !ok {
		return nil, fmt.Errorf("template has no column %q (filters: %v)", name, t.names)
	}
	return append([]float64(nil), col...), nil
}

// PhaseRange returns the first and last phase.
func (t *Template) PhaseRange() (lo, hi float64) {
	return t.phases[0], t.phases[len(t.phases)-1]
}

// Nearest returns the index of the row whose phase is closest to phase.
// No interpolation is done; ties go to the earlier row.
func (t *Template) Nearest(phase float64) int {
	i := sort.SearchFloat64s(t.phases, phase)
	if i == 0 {
		return 0
	}
	if i == len(t.phases) {
		return i - 1
	}
	if math.Abs(t.phases[i]-phase) < math.Abs(phase-t.phases[i-1]) {
		return i
	}
	return i - 1
}
