package query

import (
	"fmt"

	"github.com/rtm0/gridquery/internal/extract"
)

// Diagnostic column names, kept from the CDS extraction tooling.
const (
	DistanceColumn   = "DistFrmGrdPnt"
	TimeOffsetColumn = "TimeOffset"
)

// Column holds one extracted variable, one cell per query.
type Column struct {
	Name  string
	Cells []extract.Cell
}

// Table is the column-oriented result of a run. Every slice has one entry
// per query, in query order.
type Table struct {
	Queries    []Query
	Distance   []float64
	TimeOffset []float64
	Columns    []Column
}

// Rows returns the number of rows, which is the number of queries.
func (t *Table) Rows() int {
	return len(t.Queries)
}

// Column returns the named variable column.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Names returns the variable column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// TableBuilder assembles a Table for a fixed set of queries. It refuses
// columns of the wrong length so the built table is never ragged.
type TableBuilder struct {
	t *Table
}

// NewTableBuilder starts a table with the query echo and zeroed diagnostic
// columns.
func NewTableBuilder(queries []Query) *TableBuilder {
	n := len(queries)
	return &TableBuilder{t: &Table{
		Queries:    append([]Query(nil), queries...),
		Distance:   make([]float64, n),
		TimeOffset: make([]float64, n),
	}}
}

// SetDiagnostics records the grid-point distance and time offset of query i.
func (b *TableBuilder) SetDiagnostics(i int, distance, timeOffset float64) {
	b.t.Distance[i] = distance
	b.t.TimeOffset[i] = timeOffset
}

// AddColumn appends a variable column.
func (b *TableBuilder) AddColumn(name string, cells []extract.Cell) error {
	if len(cells) != b.t.Rows() {
		return fmt.Errorf("column %q has %d cells, want %d", name, len(cells), b.t.Rows())
	}
	if _, ok := b.t.Column(name); ok {
		return fmt.Errorf("duplicate column %q", name)
	}
	b.t.Columns = append(b.t.Columns, Column{Name: name, Cells: cells})
	return nil
}

// Build returns the table. The builder must not be used afterwards.
func (b *TableBuilder) Build() *Table {
	t := b.t
	b.t = nil
	return t
}
