package canvas

import "fmt"

// DrawRects adds every rectangle of the batch to one shared path. The path
// is left unstroked.
func DrawRects(s Surface, batch []byte) error {
	ops, err := decode(s, KindRect, batch)
	if err != nil {
		return err
	}
	s.BeginPath()
	for _, op := range ops {
		r := op.(Rect)
		s.Rect(r.X, r.Y, r.W, r.H)
	}
	return nil
}

// FillRects fills every rectangle of the batch with its own color.
func FillRects(s Surface, batch []byte) error {
	ops, err := decode(s, KindFillRect, batch)
	if err != nil {
		return err
	}
	s.BeginPath()
	for _, op := range ops {
		r := op.(FillRect)
		s.SetFillStyle(r.Color)
		s.FillRect(r.X, r.Y, r.W, r.H)
	}
	return nil
}

// DrawTexts fills every text of the batch in its own color.
func DrawTexts(s Surface, batch []byte) error {
	ops, err := decode(s, KindText, batch)
	if err != nil {
		return err
	}
	s.BeginPath()
	for _, op := range ops {
		t := op.(Text)
		s.SetFillStyle(t.Color)
		s.FillText(t.Text, t.X, t.Y, t.MaxWidth)
	}
	return nil
}

// DrawLines strokes every segment of the batch as its own path, all with the
// same width and style.
func DrawLines(s Surface, width float64, style string, batch []byte) error {
	ops, err := decode(s, KindLine, batch)
	if err != nil {
		return err
	}
	s.SetLineWidth(width)
	s.SetStrokeStyle(style)
	for _, op := range ops {
		l := op.(Line)
		s.BeginPath()
		s.MoveTo(l.X1, l.Y1)
		s.LineTo(l.X2, l.Y2)
		s.Stroke()
	}
	return nil
}

func decode(s Surface, kind Kind, batch []byte) ([]Op, error) {
	if s == nil {
		return nil, ErrNilSurface
	}
	values, err := ParseBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("%s batch: %w", kind, err)
	}
	return Decode(kind, values)
}
