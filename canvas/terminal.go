package canvas

import (
	"math"

	"github.com/gdamore/tcell/v2"
)

// Terminal is a Surface that rasterizes onto a tcell screen. Surface units
// map to character cells through ScaleX and ScaleY.
type Terminal struct {
	screen tcell.Screen
	scaleX float64
	scaleY float64

	fill   tcell.Color
	stroke tcell.Color
	width  float64

	path    [][]point
	current *point
}

type point struct{ x, y float64 }

// NewTerminal returns a terminal surface. A non-positive scale defaults to
// 8 units per column and 16 per row.
func NewTerminal(screen tcell.Screen, scaleX, scaleY float64) *Terminal {
	if scaleX <= 0 {
		scaleX = 8
	}
	if scaleY <= 0 {
		scaleY = 16
	}
	return &Terminal{
		screen: screen,
		scaleX: scaleX,
		scaleY: scaleY,
		fill:   tcell.ColorDefault,
		stroke: tcell.ColorDefault,
		width:  1,
	}
}

func (t *Terminal) BeginPath() {
	t.path = nil
	t.current = nil
}

func (t *Terminal) Rect(x, y, w, h float64) {
	t.path = append(t.path, []point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}, {x, y}})
	t.current = &point{x, y}
}

func (t *Terminal) MoveTo(x, y float64) {
	t.path = append(t.path, []point{{x, y}})
	t.current = &point{x, y}
}

func (t *Terminal) LineTo(x, y float64) {
	if t.current == nil {
		t.MoveTo(x, y)
		return
	}
	last := len(t.path) - 1
	t.path[last] = append(t.path[last], point{x, y})
	t.current = &point{x, y}
}

// Stroke draws every subpath of the current path in the stroke color.
func (t *Terminal) Stroke() {
	style := tcell.StyleDefault.Foreground(t.stroke)
	for _, sub := range t.path {
		for i := 1; i < len(sub); i++ {
			t.segment(sub[i-1], sub[i], style)
		}
	}
}

func (t *Terminal) FillRect(x, y, w, h float64) {
	style := tcell.StyleDefault.Background(t.fill)
	sw, sh := t.screen.Size()
	x0, x1 := span(x/t.scaleX, (x+w)/t.scaleX, sw)
	y0, y1 := span(y/t.scaleY, (y+h)/t.scaleY, sh)
	for cy := y0; cy < y1; cy++ {
		for cx := x0; cx < x1; cx++ {
			t.screen.SetContent(cx, cy, ' ', nil, style)
		}
	}
}

func (t *Terminal) FillText(text string, x, y, maxWidth float64) {
	style := tcell.StyleDefault.Foreground(t.fill)
	sw, sh := t.screen.Size()
	fx, fy := math.Floor(x/t.scaleX), math.Floor(y/t.scaleY)
	if !finite(fx, fy) || fy < 0 || fy >= float64(sh) || fx >= float64(sw) {
		return
	}
	limit := math.MaxInt
	if maxWidth > 0 {
		limit = max(1, int(min(maxWidth/t.scaleX, float64(sw))))
	}
	n := 0
	for _, r := range text {
		if n >= limit {
			break
		}
		col := fx + float64(n)
		if col >= float64(sw) {
			break
		}
		if col >= 0 {
			t.screen.SetContent(int(col), int(fy), r, nil, style)
		}
		n++
	}
}

func (t *Terminal) SetFillStyle(style string)   { t.fill = tcell.GetColor(style) }
func (t *Terminal) SetStrokeStyle(style string) { t.stroke = tcell.GetColor(style) }

// SetLineWidth sets the stroke width. Widths above 1 draw with heavy glyphs.
func (t *Terminal) SetLineWidth(width float64) { t.width = width }

// segment plots a line between two surface points with Bresenham's
// algorithm, clipped to the screen.
func (t *Terminal) segment(a, b point, style tcell.Style) {
	sw, sh := t.screen.Size()
	ax, ay := a.x/t.scaleX, a.y/t.scaleY
	bx, by := b.x/t.scaleX, b.y/t.scaleY
	glyph := t.glyph(math.Floor(ax), math.Floor(ay), math.Floor(bx), math.Floor(by))

	ax, ay, bx, by, ok := clipLine(ax, ay, bx, by, float64(sw), float64(sh))
	if !ok {
		return
	}
	x0, y0 := clampCell(ax, sw), clampCell(ay, sh)
	x1, y1 := clampCell(bx, sw), clampCell(by, sh)

	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		t.screen.SetContent(x0, y0, glyph, nil, style)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (t *Terminal) glyph(x0, y0, x1, y1 float64) rune {
	heavy := t.width > 1
	switch {
	case y0 == y1 && heavy:
		return '━'
	case y0 == y1:
		return '─'
	case x0 == x1 && heavy:
		return '┃'
	case x0 == x1:
		return '│'
	case (x1 > x0) == (y1 > y0):
		return '╲'
	default:
		return '╱'
	}
}

// clipLine clips the segment to the rectangle [0,w]x[0,h] with the
// Liang-Barsky algorithm. It reports false when nothing is left.
func clipLine(x0, y0, x1, y1, w, h float64) (float64, float64, float64, float64, bool) {
	dx, dy := x1-x0, y1-y0
	if !finite(x0, y0, x1, y1, dx, dy) {
		return 0, 0, 0, 0, false
	}
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{{-dx, x0}, {dx, w - x0}, {-dy, y0}, {dy, h - y0}}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = min(t1, r)
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

// span returns the cell range [lo, hi) covered by two cell coordinates,
// clamped to [0, n].
func span(a, b float64, n int) (int, int) {
	if !finite(a, b) {
		return 0, 0
	}
	lo := math.Floor(min(a, b))
	hi := math.Floor(max(a, b))
	limit := float64(n)
	return int(max(0, min(lo, limit))), int(max(0, min(hi, limit)))
}

func clampCell(v float64, n int) int {
	return max(0, min(int(math.Floor(v)), n-1))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
