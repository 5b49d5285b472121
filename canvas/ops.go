package canvas

import "fmt"

// Kind identifies a batch layout.
type Kind int

const (
	KindRect Kind = iota
	KindFillRect
	KindText
	KindLine
)

// Stride returns the number of values in one group of the batch.
func (k Kind) Stride() int {
	if k == KindLine {
		return 4
	}
	return 5
}

func (k Kind) String() string {
	switch k {
	case KindRect:
		return "rect"
	case KindFillRect:
		return "fill-rect"
	case KindText:
		return "text"
	case KindLine:
		return "line"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Op is one decoded draw operation.
type Op interface {
	Kind() Kind
}

// Rect is an unfilled rectangle added to the current path.
type Rect struct {
	X, Y, W, H float64
}

// FillRect is a rectangle filled immediately with its own color.
type FillRect struct {
	X, Y, W, H float64
	Color      string
}

// Text is a string filled at a position, limited to MaxWidth.
type Text struct {
	X, Y     float64
	Text     string
	Color    string
	MaxWidth float64
}

// Line is a single stroked segment.
type Line struct {
	X1, Y1, X2, Y2 float64
}

func (Rect) Kind() Kind     { return KindRect }
func (FillRect) Kind() Kind { return KindFillRect }
func (Text) Kind() Kind     { return KindText }
func (Line) Kind() Kind     { return KindLine }

// Decode groups values by the stride of kind into typed operations.
// The whole batch is rejected if its length is not a multiple of the stride
// or a slot holds the wrong type.
func Decode(kind Kind, values []Value) ([]Op, error) {
	stride := kind.Stride()
	if len(values)%stride != 0 {
		return nil, fmt.Errorf("%w: %s batch has %d values, not a multiple of %d",
			ErrMalformedBatch, kind, len(values), stride)
	}

	ops := make([]Op, 0, len(values)/stride)
	for n := 0; n < len(values); n += stride {
		g := group{kind: kind, base: n, values: values[n : n+stride]}
		var op Op
		switch kind {
		case KindRect:
			op = Rect{X: g.num(0), Y: g.num(1), W: g.num(2), H: g.num(3)}
		case KindFillRect:
			op = FillRect{X: g.num(0), Y: g.num(1), W: g.num(2), H: g.num(3), Color: g.str(4)}
		case KindText:
			op = Text{X: g.num(0), Y: g.num(1), Text: g.text(2), Color: g.str(3), MaxWidth: g.num(4)}
		case KindLine:
			op = Line{X1: g.num(0), Y1: g.num(1), X2: g.num(2), Y2: g.num(3)}
		default:
			return nil, fmt.Errorf("%w: unknown kind %s", ErrMalformedBatch, kind)
		}
		if g.err != nil {
			return nil, g.err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// group reads typed slots of one stride, keeping the first type error.
type group struct {
	kind   Kind
	base   int
	values []Value
	err    error
}

func (g *group) num(i int) float64 {
	v := g.values[i]
	if !v.IsNumber() {
		g.fail(i, "number", v)
		return 0
	}
	return v.num
}

func (g *group) str(i int) string {
	v := g.values[i]
	if !v.IsString() {
		g.fail(i, "string", v)
		return ""
	}
	return v.str
}

// text accepts numbers as well, in their shortest string form.
func (g *group) text(i int) string {
	v := g.values[i]
	if !v.IsString() && !v.IsNumber() {
		g.fail(i, "string", v)
		return ""
	}
	return v.String()
}

func (g *group) fail(i int, want string, got Value) {
	if g.err == nil {
		g.err = fmt.Errorf("%w: %s value %d: want %s, got %s",
			ErrMalformedBatch, g.kind, g.base+i, want, got)
	}
}
