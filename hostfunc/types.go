package hostfunc

import (
	"encoding/json"
	"fmt"

	"github.com/caffeineduck/pagekit/canvas"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// bind decodes call arguments into a request struct and validates it.
func bind(args map[string]any, req any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal(data, req); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// Table types

type TableRequest struct {
	Table string `json:"table" validate:"required"`
}

type TableTitleRequest struct {
	Table  string `json:"table" validate:"required"`
	Column int    `json:"column" validate:"min=0"`
	Title  string `json:"title"`
}

type TableCellRequest struct {
	Table  string `json:"table" validate:"required"`
	Column int    `json:"column" validate:"min=0"`
	Row    int    `json:"row" validate:"min=0"`
}

type TableSetRequest struct {
	Table  string `json:"table" validate:"required"`
	Column int    `json:"column" validate:"min=0"`
	Row    int    `json:"row" validate:"min=0"`
	Value  any    `json:"value"`
}

// Canvas types

type CanvasBatchRequest struct {
	Canvas string `json:"canvas" validate:"required"`
	Batch  string `json:"batch" validate:"required"`
}

type CanvasLinesRequest struct {
	Canvas      string  `json:"canvas" validate:"required"`
	LineWidth   float64 `json:"line_width" validate:"gte=0"`
	StrokeStyle string  `json:"stroke_style"`
	Batch       string  `json:"batch" validate:"required"`
}

// Storage types

type StorageKeyRequest struct {
	Key string `json:"key" validate:"required"`
}

type StorageSetRequest struct {
	Key   string `json:"key" validate:"required"`
	Value any    `json:"value"`
}

// HTTP types

type HTTPRequest struct {
	URL     string         `json:"url"`
	Method  string         `json:"method"`
	Body    any            `json:"body"`
	Headers map[string]any `json:"headers"`
}

type HTTPResponse struct {
	Status  int               `json:"status"`
	OK      bool              `json:"ok"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Snapshot types

type TableSnapshot struct {
	Titles []string   `json:"titles,omitempty"`
	Rows   [][]string `json:"rows"`
}

type PageSnapshot struct {
	Tables   map[string]TableSnapshot `json:"tables"`
	Canvases map[string][]canvas.Call `json:"canvases"`
}
