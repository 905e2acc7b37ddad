package frame

import (
	"fmt"
	"math"
	"time"
)

// Column is an immutable, named and typed sequence of cells. A nil cell
// (or NaN in a numeric column) is missing.
type Column struct {
	name  string
	kind  Kind
	cells []any
}

// NewColumn copies cells into a column of the given kind. Integer and
// boolean cells are widened to float64 for numeric columns.
func NewColumn(name string, kind Kind, cells []any) (*Column, error) {
	out := make([]any, len(cells))
	for i, v := range cells {
		c, err := coerce(kind, v)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = c
	}
	return &Column{name: name, kind: kind, cells: out}, nil
}

// MustColumn is NewColumn that panics on error. Intended for literals.
func MustColumn(name string, kind Kind, cells ...any) *Column {
	c, err := NewColumn(name, kind, cells)
	if err != nil {
		panic(err)
	}
	return c
}

// NewNumeric builds a numeric column; NaN entries are missing.
func NewNumeric(name string, vals []float64) *Column {
	cells := make([]any, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		cells[i] = v
	}
	return &Column{name: name, kind: Numeric, cells: cells}
}

// NewStrings builds a string column with no missing cells.
func NewStrings(name string, vals []string) *Column {
	cells := make([]any, len(vals))
	for i, v := range vals {
		cells[i] = v
	}
	return &Column{name: name, kind: String, cells: cells}
}

func coerce(kind Kind, v any) (any, error) {
	if isMissing(v) {
		return nil, nil
	}
	switch kind {
	case Numeric:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case bool:
			if x {
				return 1.0, nil
			}
			return 0.0, nil
		}
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Datetime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	case Bag:
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, v, kind)
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) Len() int     { return len(c.cells) }

// At returns the cell at row i, or nil when it is missing.
func (c *Column) At(i int) any {
	v := c.cells[i]
	if isMissing(v) {
		return nil
	}
	return v
}

func (c *Column) IsMissing(i int) bool { return isMissing(c.cells[i]) }

// Float returns the numeric cell at row i.
func (c *Column) Float(i int) (float64, bool) {
	v, ok := c.At(i).(float64)
	return v, ok
}

// Str returns the string cell at row i.
func (c *Column) Str(i int) (string, bool) {
	v, ok := c.At(i).(string)
	return v, ok
}

// Time returns the datetime cell at row i.
func (c *Column) Time(i int) (time.Time, bool) {
	v, ok := c.At(i).(time.Time)
	return v, ok
}

// BagAt returns the nested attribute bag at row i.
func (c *Column) BagAt(i int) (map[string]any, bool) {
	v, ok := c.At(i).(map[string]any)
	return v, ok
}

// Floats returns the column as float64 values with NaN for missing cells.
func (c *Column) Floats() []float64 {
	out := make([]float64, len(c.cells))
	for i := range c.cells {
		if v, ok := c.Float(i); ok {
			out[i] = v
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Cells returns a copy of the raw cells.
func (c *Column) Cells() []any {
	out := make([]any, len(c.cells))
	copy(out, c.cells)
	return out
}

// Renamed returns the same cells under a new name.
func (c *Column) Renamed(name string) *Column {
	return &Column{name: name, kind: c.kind, cells: c.cells}
}

// Take returns the rows at the given positions, in that order.
func (c *Column) Take(rows []int) *Column {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = c.cells[r]
	}
	return &Column{name: c.name, kind: c.kind, cells: out}
}
