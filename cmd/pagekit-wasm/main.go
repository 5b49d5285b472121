//go:build js && wasm

// Command pagekit-wasm exposes the page primitives to browser scripts.
//
// Tables are addressed by the handle returned from table(). When table() is
// given a DOM element, every change re-renders the grid into it. Canvas
// functions take a CanvasRenderingContext2D and a JSON batch.
package main

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"syscall/js"

	"github.com/caffeineduck/pagekit/bootstrap"
	"github.com/caffeineduck/pagekit/canvas"
	"github.com/caffeineduck/pagekit/grid"
	"github.com/caffeineduck/pagekit/serial"
)

type boundTable struct {
	grid    *grid.Grid
	element js.Value
}

type page struct {
	mu     sync.Mutex
	clock  *bootstrap.Clock
	tables map[string]*boundTable
	seq    int
}

func main() {
	p := &page{clock: bootstrap.NewClock(), tables: make(map[string]*boundTable)}

	exports := map[string]func(js.Value, []js.Value) any{
		"table":           p.table,
		"tableTitle":      p.tableTitle,
		"tableGet":        p.tableGet,
		"tableSet":        p.tableSet,
		"canvasRects":     batchFunc(canvas.DrawRects),
		"canvasFillRects": batchFunc(canvas.FillRects),
		"canvasDrawTexts": batchFunc(canvas.DrawTexts),
		"canvasDrawLines": drawLines,
		"to_py":           toPy,
		"to_js":           toJS,
		"get_time":        p.getTime,
	}
	global := js.Global()
	for name, fn := range exports {
		global.Set(name, js.FuncOf(fn))
	}

	if cb := global.Get("onWasmInitialized"); !cb.IsUndefined() {
		cb.Invoke()
	}
	select {}
}

func jsError(err error) any {
	return js.Global().Get("Error").New(err.Error())
}

func (p *page) table(this js.Value, args []js.Value) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("table-%d", p.seq)
	t := &boundTable{grid: grid.New(), element: js.Undefined()}
	if len(args) > 0 && args[0].Type() == js.TypeObject {
		t.element = args[0]
	}
	p.tables[id] = t
	return id
}

func (p *page) lookup(args []js.Value, n int) (*boundTable, error) {
	if len(args) < n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	t, ok := p.tables[args[0].String()]
	if !ok {
		return nil, fmt.Errorf("no such table: %s", args[0].String())
	}
	return t, nil
}

func (p *page) tableTitle(this js.Value, args []js.Value) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, err := p.lookup(args, 3)
	if err != nil {
		return jsError(err)
	}
	if err := t.grid.SetTitle(args[1].Int(), args[2].String()); err != nil {
		return jsError(err)
	}
	t.render()
	return nil
}

func (p *page) tableGet(this js.Value, args []js.Value) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, err := p.lookup(args, 3)
	if err != nil {
		return jsError(err)
	}
	v, err := t.grid.Get(args[1].Int(), args[2].Int())
	if err != nil {
		return jsError(err)
	}
	return v
}

func (p *page) tableSet(this js.Value, args []js.Value) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, err := p.lookup(args, 4)
	if err != nil {
		return jsError(err)
	}
	value := serial.Coerce(fromJS(args[3]))
	if err := t.grid.Set(args[1].Int(), args[2].Int(), value); err != nil {
		return jsError(err)
	}
	t.render()
	return nil
}

func (t *boundTable) render() {
	if t.element.IsUndefined() {
		return
	}
	t.element.Set("innerHTML", gridHTML(t.grid))
}

func gridHTML(g *grid.Grid) string {
	var b strings.Builder
	b.WriteString("<table>")
	if g.HasHeader() {
		b.WriteString("<thead><tr>")
		for _, title := range g.Titles() {
			fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(title))
		}
		b.WriteString("</tr></thead>")
	}
	b.WriteString("<tbody>")
	for _, row := range g.Values() {
		b.WriteString("<tr>")
		for _, v := range row {
			fmt.Fprintf(&b, "<td>%s</td>", html.EscapeString(v))
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

func batchFunc(draw func(canvas.Surface, []byte) error) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		if len(args) < 2 {
			return jsError(fmt.Errorf("expected context and batch"))
		}
		if err := draw(context2D{args[0]}, []byte(args[1].String())); err != nil {
			return jsError(err)
		}
		return nil
	}
}

func drawLines(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return jsError(fmt.Errorf("expected context, line width, stroke style and batch"))
	}
	err := canvas.DrawLines(context2D{args[0]}, args[1].Float(), args[2].String(), []byte(args[3].String()))
	if err != nil {
		return jsError(err)
	}
	return nil
}

func toPy(this js.Value, args []js.Value) any {
	if len(args) == 0 {
		return serial.ToText(nil)
	}
	return serial.ToText(fromJS(args[0]))
}

func toJS(this js.Value, args []js.Value) any {
	if len(args) == 0 || args[0].Type() != js.TypeString {
		return js.Undefined()
	}
	return js.Global().Get("JSON").Call("parse", args[0].String())
}

func (p *page) getTime(this js.Value, args []js.Value) any {
	return float64(p.clock.Since())
}

// converter turns JS values into plain Go values. Each JS object is
// converted once, so an object reached again, through a cycle or a shared
// reference, yields the same Go map or slice. A cycle therefore stays a
// cycle and fails JSON encoding, which sends serial.ToText to its per-field
// fallback.
type converter struct {
	seen  js.Value
	built []any
}

func newConverter() *converter {
	return &converter{seen: js.Global().Get("Map").New()}
}

func fromJS(v js.Value) any {
	return newConverter().convert(v)
}

func (c *converter) convert(v js.Value) any {
	switch v.Type() {
	case js.TypeUndefined, js.TypeNull:
		return nil
	case js.TypeBoolean:
		return v.Bool()
	case js.TypeNumber:
		return v.Float()
	case js.TypeString:
		return v.String()
	case js.TypeObject:
		if i := c.seen.Call("get", v); !i.IsUndefined() {
			return c.built[i.Int()]
		}
		if js.Global().Get("Array").Call("isArray", v).Bool() {
			out := make([]any, v.Length())
			c.remember(v, out)
			for i := range out {
				out[i] = c.convert(v.Index(i))
			}
			return out
		}
		keys := js.Global().Get("Object").Call("keys", v)
		out := make(map[string]any, keys.Length())
		c.remember(v, out)
		for i := 0; i < keys.Length(); i++ {
			k := keys.Index(i).String()
			out[k] = c.convert(v.Get(k))
		}
		return out
	default:
		return v.String()
	}
}

func (c *converter) remember(v js.Value, out any) {
	c.seen.Call("set", v, len(c.built))
	c.built = append(c.built, out)
}

// context2D adapts a CanvasRenderingContext2D to canvas.Surface.
type context2D struct {
	ctx js.Value
}

func (c context2D) BeginPath()              { c.ctx.Call("beginPath") }
func (c context2D) Rect(x, y, w, h float64) { c.ctx.Call("rect", x, y, w, h) }
func (c context2D) MoveTo(x, y float64)     { c.ctx.Call("moveTo", x, y) }
func (c context2D) LineTo(x, y float64)     { c.ctx.Call("lineTo", x, y) }
func (c context2D) Stroke()                 { c.ctx.Call("stroke") }

func (c context2D) FillRect(x, y, w, h float64) { c.ctx.Call("fillRect", x, y, w, h) }

func (c context2D) FillText(text string, x, y, maxWidth float64) {
	c.ctx.Call("fillText", text, x, y, maxWidth)
}

func (c context2D) SetFillStyle(style string)   { c.ctx.Set("fillStyle", style) }
func (c context2D) SetStrokeStyle(style string) { c.ctx.Set("strokeStyle", style) }
func (c context2D) SetLineWidth(width float64)  { c.ctx.Set("lineWidth", width) }
