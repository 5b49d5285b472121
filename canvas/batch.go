// Package canvas decodes batched drawing commands and issues them against a
// 2D drawing surface.
//
// A batch is a flat JSON array read in fixed-size groups, one group per
// shape. Packing many shapes into one value keeps the number of calls across
// the guest/host boundary at one per batch instead of one per shape.
//
//	rects  [x, y, w, h, _]            stride 5
//	fills  [x, y, w, h, color]        stride 5
//	texts  [x, y, text, color, maxW]  stride 5
//	lines  [x1, y1, x2, y2]           stride 4
//
// A batch is decoded in full before anything is drawn; a malformed batch
// draws nothing.
package canvas

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
)

var (
	// ErrMalformedBatch is returned when a batch is not a flat JSON array of
	// numbers and strings, or its groups do not match the stride and slot
	// types of the shape.
	ErrMalformedBatch = errors.New("malformed batch")
	// ErrNilSurface is returned when a draw function is given no surface.
	ErrNilSurface = errors.New("surface is nil")
)

// Value is one primitive of a parsed batch: a number, a string or null.
type Value struct {
	num  float64
	str  string
	kind jsonparser.ValueType
}

// Num returns a numeric value.
func Num(f float64) Value { return Value{num: f, kind: jsonparser.Number} }

// Str returns a string value.
func Str(s string) Value { return Value{str: s, kind: jsonparser.String} }

// Null returns a null value.
func Null() Value { return Value{kind: jsonparser.Null} }

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool { return v.kind == jsonparser.Number }

// IsString reports whether v holds a string.
func (v Value) IsString() bool { return v.kind == jsonparser.String }

func (v Value) String() string {
	switch v.kind {
	case jsonparser.Number:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case jsonparser.String:
		return v.str
	default:
		return "null"
	}
}

// ParseBatch parses the serialized form of a batch into its primitive values.
func ParseBatch(data []byte) ([]Value, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: not an array", ErrMalformedBatch)
	}

	var (
		values []Value
		first  error
	)
	end, err := jsonparser.ArrayEach(data, func(raw []byte, typ jsonparser.ValueType, _ int, _ error) {
		if first != nil {
			return
		}
		switch typ {
		case jsonparser.Number:
			f, err := jsonparser.ParseFloat(raw)
			if err != nil {
				first = fmt.Errorf("%w: value %d: %v", ErrMalformedBatch, len(values), err)
				return
			}
			values = append(values, Num(f))
		case jsonparser.String:
			s, err := jsonparser.ParseString(raw)
			if err != nil {
				first = fmt.Errorf("%w: value %d: %v", ErrMalformedBatch, len(values), err)
				return
			}
			values = append(values, Str(s))
		case jsonparser.Null:
			values = append(values, Null())
		default:
			first = fmt.Errorf("%w: value %d: unsupported %s", ErrMalformedBatch, len(values), typ)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	if first != nil {
		return nil, first
	}
	if end >= len(data) || data[end] != ']' {
		return nil, fmt.Errorf("%w: unterminated array", ErrMalformedBatch)
	}
	if rest := bytes.TrimSpace(data[end+1:]); len(rest) > 0 {
		return nil, fmt.Errorf("%w: trailing data after array", ErrMalformedBatch)
	}
	return values, nil
}
