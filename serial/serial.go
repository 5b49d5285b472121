// Package serial converts values to text for exchange between the host and
// guest runtimes.
//
// ToText never fails: when a value cannot be encoded as JSON, for instance
// because it refers back to itself, each top-level field is coerced to a
// string on its own and the flat result is encoded instead.
package serial

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const indent = "    "

// ToText encodes v as indented JSON, falling back to a shallow string
// coercion of its top-level fields.
func ToText(v any) string {
	if data, err := json.MarshalIndent(v, "", indent); err == nil {
		return string(data)
	}
	data, _ := json.MarshalIndent(shallow(v), "", indent)
	return string(data)
}

// FromText decodes JSON text into plain Go values.
func FromText(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("decode text: %w", err)
	}
	return v, nil
}

// Coerce returns the shallow string form of v: strings as-is, numbers in
// shortest form, nil as "null", slices joined by commas and any other
// composite as "[object Object]".
func Coerce(v any) string {
	return coerce(reflect.ValueOf(v), nil)
}

// shallow maps every top-level field of v to its coerced string form.
func shallow(v any) *orderedmap.OrderedMap[string, string] {
	out := orderedmap.New[string, string]()
	rv := deref(reflect.ValueOf(v))
	if !rv.IsValid() {
		return out
	}

	switch rv.Kind() {
	case reflect.Map:
		keys := rv.MapKeys()
		names := make([]string, len(keys))
		byName := make(map[string]reflect.Value, len(keys))
		for i, k := range keys {
			names[i] = fmt.Sprint(k.Interface())
			byName[names[i]] = rv.MapIndex(k)
		}
		sort.Strings(names)
		for _, name := range names {
			out.Set(name, coerce(byName[name], nil))
		}
	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			name, skip := fieldName(f)
			if skip {
				continue
			}
			out.Set(name, coerce(rv.Field(i), nil))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			out.Set(strconv.Itoa(i), coerce(rv.Index(i), nil))
		}
	default:
		out.Set("value", coerce(rv, nil))
	}
	return out
}

const maxJoinDepth = 8

// coerce formats rv. path holds the slices being joined above rv; a slice
// that contains itself joins as "" at the repeat, like Array.prototype.join.
func coerce(rv reflect.Value, path []uintptr) string {
	rv = deref(rv)
	if !rv.IsValid() {
		return "null"
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return ""
		}
		if len(path) >= maxJoinDepth {
			return ""
		}
		if rv.Kind() == reflect.Slice {
			ptr := rv.Pointer()
			if slices.Contains(path, ptr) {
				return ""
			}
			path = append(path, ptr)
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = coerce(rv.Index(i), path)
		}
		return strings.Join(parts, ",")
	case reflect.Map, reflect.Struct:
		return "[object Object]"
	default:
		return fmt.Sprintf("[%s]", rv.Type())
	}
}

func deref(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func fieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, false
	}
	return f.Name, false
}
