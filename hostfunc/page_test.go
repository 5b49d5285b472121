package hostfunc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T, p *Page) string {
	t.Helper()
	id, err := p.TableNew(context.Background(), nil)
	require.NoError(t, err)
	return id.(string)
}

func newCanvas(t *testing.T, p *Page) string {
	t.Helper()
	id, err := p.CanvasNew(context.Background(), nil)
	require.NoError(t, err)
	return id.(string)
}

func TestPageHandles(t *testing.T) {
	p := NewPage()
	assert.Equal(t, "table-1", newTable(t, p))
	assert.Equal(t, "canvas-2", newCanvas(t, p))
	assert.Equal(t, "table-3", newTable(t, p))
	assert.Equal(t, []string{"table-1", "table-3"}, p.TableIDs())
	assert.Equal(t, []string{"canvas-2"}, p.CanvasIDs())
}

func TestPageTableSetGet(t *testing.T) {
	p := NewPage()
	ctx := context.Background()
	id := newTable(t, p)

	val, err := p.TableGet(ctx, map[string]any{"table": id, "column": 2, "row": 3})
	require.NoError(t, err)
	assert.Equal(t, "", val)

	_, err = p.TableSet(ctx, map[string]any{"table": id, "column": 1, "row": 0, "value": 21.55})
	require.NoError(t, err)
	val, err = p.TableGet(ctx, map[string]any{"table": id, "column": 1, "row": 0})
	require.NoError(t, err)
	assert.Equal(t, "21.55", val)

	g, ok := p.Table(id)
	require.True(t, ok)
	assert.Equal(t, 4, g.Len())
}

func TestPageTableLimits(t *testing.T) {
	p := NewPage(WithMaxRows(10), WithMaxColumns(4))
	ctx := context.Background()
	id := newTable(t, p)

	_, err := p.TableSet(ctx, map[string]any{"table": id, "column": 3, "row": 9, "value": "edge"})
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() (any, error)
	}{
		{"set column", func() (any, error) {
			return p.TableSet(ctx, map[string]any{"table": id, "column": 4e6, "row": 0, "value": "x"})
		}},
		{"set row", func() (any, error) {
			return p.TableSet(ctx, map[string]any{"table": id, "column": 0, "row": 1e15, "value": "x"})
		}},
		{"get row", func() (any, error) {
			return p.TableGet(ctx, map[string]any{"table": id, "column": 0, "row": 10})
		}},
		{"title column", func() (any, error) {
			return p.TableTitle(ctx, map[string]any{"table": id, "column": 4, "title": "x"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call()
			assert.ErrorIs(t, err, ErrTableTooLarge)
		})
	}

	g, _ := p.Table(id)
	assert.Equal(t, 10, g.Len())
	assert.Equal(t, 4, g.Width())
	assert.False(t, g.HasHeader())
}

func TestPageDefaultLimits(t *testing.T) {
	p := NewPage(WithMaxRows(0))
	ctx := context.Background()
	id := newTable(t, p)

	_, err := p.TableSet(ctx, map[string]any{"table": id, "column": 0, "row": DefaultMaxRows - 1, "value": "x"})
	require.NoError(t, err)
	_, err = p.TableSet(ctx, map[string]any{"table": id, "column": DefaultMaxColumns, "row": 0, "value": "x"})
	assert.ErrorIs(t, err, ErrTableTooLarge)
}

func TestPageTableTitle(t *testing.T) {
	p := NewPage()
	ctx := context.Background()
	id := newTable(t, p)

	_, err := p.TableTitle(ctx, map[string]any{"table": id, "column": 1, "title": "Temp"})
	require.NoError(t, err)

	g, _ := p.Table(id)
	assert.True(t, g.HasHeader())
	assert.Equal(t, []string{"", "Temp"}, g.Titles())
}

func TestPageTableErrors(t *testing.T) {
	p := NewPage()
	ctx := context.Background()
	id := newTable(t, p)

	_, err := p.TableGet(ctx, map[string]any{"table": "table-99", "column": 0, "row": 0})
	assert.ErrorIs(t, err, ErrNoSuchTable)

	_, err = p.TableGet(ctx, map[string]any{"table": id, "column": -1, "row": 0})
	assert.ErrorContains(t, err, "invalid arguments")

	_, err = p.TableSet(ctx, map[string]any{"table": id, "column": 1.5, "row": 0, "value": "x"})
	assert.ErrorContains(t, err, "invalid arguments")

	_, err = p.TableTitle(ctx, map[string]any{"column": 0, "title": "x"})
	assert.ErrorContains(t, err, "invalid arguments")
}

func TestPageCanvasDraws(t *testing.T) {
	p := NewPage()
	ctx := context.Background()
	id := newCanvas(t, p)

	_, err := p.CanvasRects(ctx, map[string]any{"canvas": id, "batch": "[0,0,10,10,null,5,5,2,2,null]"})
	require.NoError(t, err)
	_, err = p.CanvasFillRects(ctx, map[string]any{"canvas": id, "batch": `[1,1,4,4,"red"]`})
	require.NoError(t, err)
	_, err = p.CanvasTexts(ctx, map[string]any{"canvas": id, "batch": `[3,4,"hi","blue",40]`})
	require.NoError(t, err)
	_, err = p.CanvasLines(ctx, map[string]any{"canvas": id, "line_width": 2, "stroke_style": "green", "batch": "[0,0,9,9]"})
	require.NoError(t, err)

	rec, ok := p.Canvas(id)
	require.True(t, ok)
	assert.Equal(t, 2, rec.Count("rect"))
	assert.Equal(t, 1, rec.Count("fillRect"))
	assert.Equal(t, 1, rec.Count("fillText"))
	assert.Equal(t, 1, rec.Count("lineTo"))
}

func TestPageCanvasMalformedBatch(t *testing.T) {
	p := NewPage()
	ctx := context.Background()
	id := newCanvas(t, p)

	_, err := p.CanvasRects(ctx, map[string]any{"canvas": id, "batch": "[0,0,10]"})
	assert.Error(t, err)

	_, err = p.CanvasRects(ctx, map[string]any{"canvas": "canvas-42", "batch": "[]"})
	assert.ErrorIs(t, err, ErrNoSuchCanvas)

	rec, _ := p.Canvas(id)
	assert.Empty(t, rec.Calls())
}

func TestPageTime(t *testing.T) {
	p := NewPage()
	time.Sleep(5 * time.Millisecond)

	v, err := p.Time(context.Background(), nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v.(int64), int64(5))
}

func TestPageSnapshot(t *testing.T) {
	p := NewPage()
	ctx := context.Background()
	tid := newTable(t, p)
	cid := newCanvas(t, p)

	_, err := p.TableTitle(ctx, map[string]any{"table": tid, "column": 0, "title": "Country"})
	require.NoError(t, err)
	_, err = p.TableSet(ctx, map[string]any{"table": tid, "column": 0, "row": 0, "value": "Angola"})
	require.NoError(t, err)
	_, err = p.CanvasRects(ctx, map[string]any{"canvas": cid, "batch": "[0,0,1,1,null]"})
	require.NoError(t, err)

	snap := p.Snapshot()
	assert.Equal(t, TableSnapshot{Titles: []string{"Country"}, Rows: [][]string{{"Angola"}}}, snap.Tables[tid])
	require.Len(t, snap.Canvases[cid], 2)
	assert.Equal(t, "beginPath", snap.Canvases[cid][0].Method)
}

func TestPageRegister(t *testing.T) {
	r := NewRegistry()
	NewPage().Register(r)
	assert.ElementsMatch(t, []string{
		"table_new", "table_title", "table_get", "table_set",
		"canvas_new", "canvas_rects", "canvas_fill_rects", "canvas_texts", "canvas_lines",
		"get_time",
	}, r.List())
}

func TestPageConcurrentCells(t *testing.T) {
	p := NewPage()
	ctx := context.Background()
	id := newTable(t, p)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p.TableSet(ctx, map[string]any{"table": id, "column": n % 5, "row": n, "value": n})
		}(i)
	}
	wg.Wait()

	g, _ := p.Table(id)
	assert.Equal(t, 50, g.Len())
}
