package canvas

// Surface is a 2D drawing context, modeled on the browser canvas API.
type Surface interface {
	BeginPath()
	Rect(x, y, w, h float64)
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke()
	FillRect(x, y, w, h float64)
	FillText(text string, x, y, maxWidth float64)
	SetFillStyle(style string)
	SetStrokeStyle(style string)
	SetLineWidth(width float64)
}
