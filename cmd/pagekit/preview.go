package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/caffeineduck/pagekit/canvas"
	"github.com/caffeineduck/pagekit/hostfunc"
)

// drawCanvases replays every canvas of page onto screen, stacking them
// vertically. It returns the number of canvases drawn.
func drawCanvases(screen tcell.Screen, page *hostfunc.Page) int {
	screen.Clear()
	_, height := screen.Size()

	ids := page.CanvasIDs()
	n := 0
	for i, id := range ids {
		rec, ok := page.Canvas(id)
		if !ok {
			continue
		}
		view := screenView(screen, 0, i*height/len(ids))
		rec.Replay(canvas.NewTerminal(view, 0, 0))
		n++
	}
	return n
}

func previewCanvases(page *hostfunc.Page) error {
	if len(page.CanvasIDs()) == 0 {
		return nil
	}
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	drawCanvases(screen, page)
	screen.Show()

	for {
		switch screen.PollEvent().(type) {
		case *tcell.EventResize:
			drawCanvases(screen, page)
			screen.Sync()
		case *tcell.EventKey, nil:
			return nil
		}
	}
}

// offsetScreen shifts SetContent by a fixed origin so each canvas lands in
// its own band of the screen.
type offsetScreen struct {
	tcell.Screen
	dx, dy int
}

func screenView(s tcell.Screen, dx, dy int) tcell.Screen {
	if dx == 0 && dy == 0 {
		return s
	}
	return &offsetScreen{Screen: s, dx: dx, dy: dy}
}

func (o *offsetScreen) SetContent(x, y int, primary rune, combining []rune, style tcell.Style) {
	o.Screen.SetContent(x+o.dx, y+o.dy, primary, combining, style)
}
