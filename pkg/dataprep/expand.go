package dataprep

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"eventml/pkg/frame"
)

// InferSchema derives a schema from the bag in row 0 of column: its keys in
// sorted order, each kind taken from the key's first non-nil value across
// all rows. Keys absent from row 0 are not picked up; prefer an explicit
// schema.
func InferSchema(f frame.Frame, column string) (frame.Schema, error) {
	col, err := bagColumn(f, column)
	if err != nil {
		return frame.Schema{}, err
	}
	if f.Len() == 0 {
		return frame.Schema{}, fmt.Errorf("%w: %q has no rows", frame.ErrSchemaEmpty, column)
	}
	bag, ok := col.BagAt(0)
	if !ok || len(bag) == 0 {
		return frame.Schema{}, fmt.Errorf("%w: %q row 0 has no attributes", frame.ErrSchemaEmpty, column)
	}
	keys := make([]string, 0, len(bag))
	for k := range bag {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := frame.Schema{Fields: make([]frame.Field, len(keys))}
	for i, k := range keys {
		s.Fields[i] = frame.Field{Name: k, Kind: inferKind(col, k)}
	}
	return s, nil
}

// inferKind takes the kind of key from its first non-nil value in any row.
// A key that is never set is a string.
func inferKind(col *frame.Column, key string) frame.Kind {
	for i := 0; i < col.Len(); i++ {
		bag, ok := col.BagAt(i)
		if !ok || bag[key] == nil {
			continue
		}
		switch bag[key].(type) {
		case float64, bool:
			return frame.Numeric
		}
		return frame.String
	}
	return frame.String
}

// Expand removes column and adds one column per schema field, read from
// each row's bag at that row's position. Missing cells in the new columns
// are imputed before the frame is returned. An empty schema is inferred
// from row 0.
func Expand(f frame.Frame, column string, schema frame.Schema) (frame.Frame, error) {
	col, err := bagColumn(f, column)
	if err != nil {
		return frame.Frame{}, err
	}
	if schema.Empty() {
		if schema, err = InferSchema(f, column); err != nil {
			return frame.Frame{}, err
		}
	}
	if err := schema.Validate(); err != nil {
		return frame.Frame{}, fmt.Errorf("expand %q: %w", column, err)
	}
	for _, field := range schema.Fields {
		if field.Name != column && f.Has(field.Name) {
			return frame.Frame{}, fmt.Errorf("%w: %q from %q", frame.ErrDuplicateColumn, field.Name, column)
		}
	}

	out := f.Drop(column)
	for _, field := range schema.Fields {
		cells := make([]any, col.Len())
		for i := range cells {
			if bag, ok := col.BagAt(i); ok {
				cells[i] = convertCell(field.Kind, bag[field.Name])
			}
		}
		nc, err := frame.NewColumn(field.Name, field.Kind, cells)
		if err != nil {
			return frame.Frame{}, err
		}
		if nc, err = impute(nc); err != nil {
			return frame.Frame{}, err
		}
		if out, err = out.With(nc); err != nil {
			return frame.Frame{}, err
		}
	}
	return out, nil
}

func bagColumn(f frame.Frame, column string) (*frame.Column, error) {
	col, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	if col.Kind() != frame.Bag {
		return nil, fmt.Errorf("%w: cannot expand %q of kind %s", frame.ErrTypeMismatch, column, col.Kind())
	}
	return col, nil
}

// convertCell coerces a bag value to kind; values that do not fit become
// missing.
func convertCell(kind frame.Kind, v any) any {
	if v == nil {
		return nil
	}
	switch kind {
	case frame.Numeric:
		switch x := v.(type) {
		case float64:
			return x
		case bool:
			if x {
				return 1.0
			}
			return 0.0
		case string:
			if n, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return n
			}
		}
		return nil
	case frame.String:
		return frame.FormatCell(v)
	case frame.Datetime:
		switch x := v.(type) {
		case string:
			if t, err := frame.ParseTimestamp(x); err == nil {
				return t
			}
		case float64:
			return time.UnixMilli(int64(x)).UTC()
		}
		return nil
	case frame.Bag:
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}
