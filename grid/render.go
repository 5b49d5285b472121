package grid

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

// Render draws the grid as a bordered text table. Short rows are padded with
// empty cells so every row spans the widest one.
func (g *Grid) Render() string {
	width := max(g.Width(), len(g.titles))
	if width == 0 {
		return ""
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle
			}
			return cellStyle
		})

	if g.header {
		t = t.Headers(pad(g.titles, width)...)
	}
	for _, vals := range g.Values() {
		t = t.Row(pad(vals, width)...)
	}
	return t.String()
}

func pad(vals []string, n int) []string {
	out := make([]string, n)
	copy(out, vals)
	return out
}
