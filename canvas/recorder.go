package canvas

// Call is one recorded surface method invocation.
type Call struct {
	Method string `json:"method"`
	Args   []any  `json:"args,omitempty"`
}

// Recorder is a Surface that keeps every call as a display list.
type Recorder struct {
	calls []Call
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Calls returns a copy of the display list.
func (r *Recorder) Calls() []Call {
	return append([]Call(nil), r.calls...)
}

// Reset drops the display list.
func (r *Recorder) Reset() {
	r.calls = nil
}

// Count returns how many times method was called.
func (r *Recorder) Count(method string) int {
	n := 0
	for _, c := range r.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Paths returns the number of subpaths in each path, in the order the paths
// were begun. Subpaths added before the first BeginPath are not counted.
func (r *Recorder) Paths() []int {
	var paths []int
	for _, c := range r.calls {
		switch c.Method {
		case "beginPath":
			paths = append(paths, 0)
		case "rect", "moveTo":
			if len(paths) > 0 {
				paths[len(paths)-1]++
			}
		}
	}
	return paths
}

// Replay issues the recorded calls against s in order.
func (r *Recorder) Replay(s Surface) {
	for _, c := range r.calls {
		replay(s, c)
	}
}

func replay(s Surface, c Call) {
	f := func(i int) float64 { return c.Args[i].(float64) }
	switch c.Method {
	case "beginPath":
		s.BeginPath()
	case "rect":
		s.Rect(f(0), f(1), f(2), f(3))
	case "moveTo":
		s.MoveTo(f(0), f(1))
	case "lineTo":
		s.LineTo(f(0), f(1))
	case "stroke":
		s.Stroke()
	case "fillRect":
		s.FillRect(f(0), f(1), f(2), f(3))
	case "fillText":
		s.FillText(c.Args[0].(string), f(1), f(2), f(3))
	case "fillStyle":
		s.SetFillStyle(c.Args[0].(string))
	case "strokeStyle":
		s.SetStrokeStyle(c.Args[0].(string))
	case "lineWidth":
		s.SetLineWidth(f(0))
	}
}

func (r *Recorder) record(method string, args ...any) {
	r.calls = append(r.calls, Call{Method: method, Args: args})
}

func (r *Recorder) BeginPath()              { r.record("beginPath") }
func (r *Recorder) Rect(x, y, w, h float64) { r.record("rect", x, y, w, h) }
func (r *Recorder) MoveTo(x, y float64)     { r.record("moveTo", x, y) }
func (r *Recorder) LineTo(x, y float64)     { r.record("lineTo", x, y) }
func (r *Recorder) Stroke()                 { r.record("stroke") }

func (r *Recorder) FillRect(x, y, w, h float64) { r.record("fillRect", x, y, w, h) }

func (r *Recorder) FillText(text string, x, y, maxWidth float64) {
	r.record("fillText", text, x, y, maxWidth)
}

func (r *Recorder) SetFillStyle(style string)   { r.record("fillStyle", style) }
func (r *Recorder) SetStrokeStyle(style string) { r.record("strokeStyle", style) }
func (r *Recorder) SetLineWidth(width float64)  { r.record("lineWidth", width) }
