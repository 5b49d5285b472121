package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/caffeineduck/pagekit/bootstrap"
	"github.com/caffeineduck/pagekit/canvas"
	"github.com/caffeineduck/pagekit/grid"
	"github.com/caffeineduck/pagekit/serial"
)

const (
	DefaultMaxRows    = 10000
	DefaultMaxColumns = 256
)

var (
	ErrNoSuchTable   = errors.New("no such table")
	ErrNoSuchCanvas  = errors.New("no such canvas")
	ErrTableTooLarge = errors.New("table too large")
)

// PageConfig bounds the tables a guest can grow. Grids allocate every cell
// up to the addressed one, so these limits cap host memory per table.
type PageConfig struct {
	MaxRows    int
	MaxColumns int
}

func DefaultPageConfig() PageConfig {
	return PageConfig{
		MaxRows:    DefaultMaxRows,
		MaxColumns: DefaultMaxColumns,
	}
}

type PageOption func(*PageConfig)

func WithMaxRows(n int) PageOption {
	return func(c *PageConfig) { c.MaxRows = n }
}

func WithMaxColumns(n int) PageOption {
	return func(c *PageConfig) { c.MaxColumns = n }
}

// Page holds the tables and canvases of one page view. Guest code refers to
// them by the handle returned from table_new and canvas_new.
type Page struct {
	cfg      PageConfig
	mu       sync.Mutex
	clock    *bootstrap.Clock
	tables   map[string]*grid.Grid
	canvases map[string]*canvas.Recorder
	seq      int
}

func NewPage(opts ...PageOption) *Page {
	return NewPageWithClock(bootstrap.NewClock(), opts...)
}

// NewPageWithClock creates a page whose get_time reads from clock.
func NewPageWithClock(clock *bootstrap.Clock, opts ...PageOption) *Page {
	cfg := DefaultPageConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	if cfg.MaxColumns <= 0 {
		cfg.MaxColumns = DefaultMaxColumns
	}
	return &Page{
		cfg:      cfg,
		clock:    clock,
		tables:   make(map[string]*grid.Grid),
		canvases: make(map[string]*canvas.Recorder),
	}
}

// Register adds the page functions to r.
func (p *Page) Register(r *Registry) {
	r.Register("table_new", p.TableNew)
	r.Register("table_title", p.TableTitle)
	r.Register("table_get", p.TableGet)
	r.Register("table_set", p.TableSet)
	r.Register("canvas_new", p.CanvasNew)
	r.Register("canvas_rects", p.CanvasRects)
	r.Register("canvas_fill_rects", p.CanvasFillRects)
	r.Register("canvas_texts", p.CanvasTexts)
	r.Register("canvas_lines", p.CanvasLines)
	r.Register("get_time", p.Time)
}

func (p *Page) TableNew(ctx context.Context, args map[string]any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("table-%d", p.seq)
	p.tables[id] = grid.New()
	return id, nil
}

func (p *Page) TableTitle(ctx context.Context, args map[string]any) (any, error) {
	var req TableTitleRequest
	if err := bind(args, &req); err != nil {
		return nil, err
	}
	if err := p.checkBounds(req.Column, 0); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	g, err := p.table(req.Table)
	if err != nil {
		return nil, err
	}
	if err := g.SetTitle(req.Column, req.Title); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (p *Page) TableGet(ctx context.Context, args map[string]any) (any, error) {
	var req TableCellRequest
	if err := bind(args, &req); err != nil {
		return nil, err
	}
	if err := p.checkBounds(req.Column, req.Row); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	g, err := p.table(req.Table)
	if err != nil {
		return nil, err
	}
	return g.Get(req.Column, req.Row)
}

func (p *Page) TableSet(ctx context.Context, args map[string]any) (any, error) {
	var req TableSetRequest
	if err := bind(args, &req); err != nil {
		return nil, err
	}
	if err := p.checkBounds(req.Column, req.Row); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	g, err := p.table(req.Table)
	if err != nil {
		return nil, err
	}
	if err := g.Set(req.Column, req.Row, serial.Coerce(req.Value)); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (p *Page) CanvasNew(ctx context.Context, args map[string]any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("canvas-%d", p.seq)
	p.canvases[id] = canvas.NewRecorder()
	return id, nil
}

func (p *Page) CanvasRects(ctx context.Context, args map[string]any) (any, error) {
	return p.drawBatch(args, canvas.DrawRects)
}

func (p *Page) CanvasFillRects(ctx context.Context, args map[string]any) (any, error) {
	return p.drawBatch(args, canvas.FillRects)
}

func (p *Page) CanvasTexts(ctx context.Context, args map[string]any) (any, error) {
	return p.drawBatch(args, canvas.DrawTexts)
}

func (p *Page) CanvasLines(ctx context.Context, args map[string]any) (any, error) {
	var req CanvasLinesRequest
	if err := bind(args, &req); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	rec, err := p.canvas(req.Canvas)
	if err != nil {
		return nil, err
	}
	if err := canvas.DrawLines(rec, req.LineWidth, req.StrokeStyle, []byte(req.Batch)); err != nil {
		return nil, err
	}
	return "ok", nil
}

// Time returns the milliseconds elapsed since the page was created.
func (p *Page) Time(ctx context.Context, args map[string]any) (any, error) {
	return p.clock.Since(), nil
}

func (p *Page) drawBatch(args map[string]any, draw func(canvas.Surface, []byte) error) (any, error) {
	var req CanvasBatchRequest
	if err := bind(args, &req); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	rec, err := p.canvas(req.Canvas)
	if err != nil {
		return nil, err
	}
	if err := draw(rec, []byte(req.Batch)); err != nil {
		return nil, err
	}
	return "ok", nil
}

// Table returns the grid behind a table handle.
func (p *Page) Table(id string) (*grid.Grid, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.tables[id]
	return g, ok
}

// Canvas returns the display list behind a canvas handle.
func (p *Page) Canvas(id string) (*canvas.Recorder, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.canvases[id]
	return rec, ok
}

// TableIDs returns the table handles in creation order.
func (p *Page) TableIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return sortedIDs(p.tables)
}

// CanvasIDs returns the canvas handles in creation order.
func (p *Page) CanvasIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return sortedIDs(p.canvases)
}

// Snapshot copies the current page state.
func (p *Page) Snapshot() PageSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := PageSnapshot{
		Tables:   make(map[string]TableSnapshot, len(p.tables)),
		Canvases: make(map[string][]canvas.Call, len(p.canvases)),
	}
	for id, g := range p.tables {
		snap.Tables[id] = TableSnapshot{Titles: g.Titles(), Rows: g.Values()}
	}
	for id, rec := range p.canvases {
		snap.Canvases[id] = rec.Calls()
	}
	return snap
}

func (p *Page) checkBounds(column, row int) error {
	if column >= p.cfg.MaxColumns {
		return fmt.Errorf("%w: column %d, max %d", ErrTableTooLarge, column, p.cfg.MaxColumns-1)
	}
	if row >= p.cfg.MaxRows {
		return fmt.Errorf("%w: row %d, max %d", ErrTableTooLarge, row, p.cfg.MaxRows-1)
	}
	return nil
}

func (p *Page) table(id string) (*grid.Grid, error) {
	g, ok := p.tables[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTable, id)
	}
	return g, nil
}

func (p *Page) canvas(id string) (*canvas.Recorder, error) {
	rec, ok := p.canvases[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchCanvas, id)
	}
	return rec, nil
}

// sortedIDs orders "kind-N" handles by N.
func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids
}
