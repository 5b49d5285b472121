// Package grid provides a sparse, auto-growing table addressed by
// (column, row).
//
// Rows and cells are created on demand: addressing a cell beyond the current
// bounds backfills the missing rows, and the missing cells of the addressed
// row, with empty ones. Callers never declare dimensions up front.
//
//	g := grid.New()
//	g.SetTitle(1, "Temperature")
//	g.Set(1, 3, "21.5")
//	v, _ := g.Get(0, 3) // "" - created on the way to (1, 3)
//
// A Grid is not safe for concurrent use.
package grid

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNegativeIndex is returned when a column or row index is below zero.
	ErrNegativeIndex = errors.New("negative index")
	// ErrIndexTooLarge is returned for an index of MaxIndex or more, whose
	// slot count would not fit in an int.
	ErrIndexTooLarge = errors.New("index too large")
)

// MaxIndex bounds column and row indices from above.
const MaxIndex = math.MaxInt

// Cell is one addressable slot of a grid.
type Cell struct {
	Column int
	Row    int
	Value  string
}

// ID returns the stable identifier of the cell.
func (c *Cell) ID() string {
	return fmt.Sprintf("%s/col-%d", rowID(c.Row), c.Column)
}

// Row is one data row of a grid.
type Row struct {
	Index int
	ID    string
	Cells []*Cell
}

// Grid holds an optional header of titles and the data rows.
type Grid struct {
	header bool
	titles []string
	rows   []*Row
}

// New returns an empty grid with no rows and no header.
func New() *Grid {
	return &Grid{}
}

// SetTitle sets the title of a column, creating the header and any missing
// title slots before it.
func (g *Grid) SetTitle(column int, title string) error {
	if err := checkIndex("title column", column); err != nil {
		return err
	}
	g.header = true
	g.titles = grow(g.titles, column+1, func(int) string { return "" })
	g.titles[column] = title
	return nil
}

// Cell returns the cell at (column, row), growing the grid as needed.
// Addressing the same position twice returns the same cell.
func (g *Grid) Cell(column, row int) (*Cell, error) {
	if err := checkIndex("column", column); err != nil {
		return nil, err
	}
	if err := checkIndex("row", row); err != nil {
		return nil, err
	}

	g.rows = grow(g.rows, row+1, func(i int) *Row {
		return &Row{Index: i, ID: rowID(i)}
	})
	r := g.rows[row]
	r.Cells = grow(r.Cells, column+1, func(i int) *Cell {
		return &Cell{Column: i, Row: row}
	})
	return r.Cells[column], nil
}

// Get returns the text of the cell at (column, row).
func (g *Grid) Get(column, row int) (string, error) {
	c, err := g.Cell(column, row)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// Set replaces the text of the cell at (column, row).
func (g *Grid) Set(column, row int, value string) error {
	c, err := g.Cell(column, row)
	if err != nil {
		return err
	}
	c.Value = value
	return nil
}

// HasHeader reports whether a title was ever set.
func (g *Grid) HasHeader() bool {
	return g.header
}

// Titles returns a copy of the header titles.
func (g *Grid) Titles() []string {
	return append([]string(nil), g.titles...)
}

// Len returns the number of data rows.
func (g *Grid) Len() int {
	return len(g.rows)
}

// Row returns the data row at index i, or nil if it was never created.
// It does not grow the grid.
func (g *Grid) Row(i int) *Row {
	if i < 0 || i >= len(g.rows) {
		return nil
	}
	return g.rows[i]
}

// Width returns the cell count of the widest row.
func (g *Grid) Width() int {
	w := 0
	for _, r := range g.rows {
		w = max(w, len(r.Cells))
	}
	return w
}

// Values returns the cell texts row by row. Rows keep their own lengths.
func (g *Grid) Values() [][]string {
	out := make([][]string, len(g.rows))
	for i, r := range g.rows {
		vals := make([]string, len(r.Cells))
		for j, c := range r.Cells {
			vals[j] = c.Value
		}
		out[i] = vals
	}
	return out
}

func checkIndex(name string, i int) error {
	switch {
	case i < 0:
		return fmt.Errorf("%s %d: %w", name, i, ErrNegativeIndex)
	case i >= MaxIndex:
		return fmt.Errorf("%s %d: %w", name, i, ErrIndexTooLarge)
	}
	return nil
}

func rowID(i int) string {
	return fmt.Sprintf("row-%d", i)
}
