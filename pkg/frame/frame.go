// Package frame holds the immutable tabular value passed between the
// feature-engineering stages. Every operation returns a new Frame; columns
// are never modified after construction, so frames share them freely.
package frame

import (
	"fmt"
	"slices"
	"sort"
)

// Frame is an ordered set of equally long columns plus an index that
// records the original position of each row.
type Frame struct {
	index []int
	order []string
	cols  map[string]*Column
}

// New builds a frame whose index is 0..n-1.
func New(cols ...*Column) (Frame, error) {
	f := Frame{cols: make(map[string]*Column, len(cols))}
	n := -1
	for _, c := range cols {
		if _, ok := f.cols[c.name]; ok {
			return Frame{}, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.name)
		}
		if n >= 0 && c.Len() != n {
			return Frame{}, fmt.Errorf("%w: column %q has %d rows, want %d", ErrLength, c.name, c.Len(), n)
		}
		n = c.Len()
		f.cols[c.name] = c
		f.order = append(f.order, c.name)
	}
	if n < 0 {
		n = 0
	}
	f.index = make([]int, n)
	for i := range f.index {
		f.index[i] = i
	}
	return f, nil
}

// MustNew is New that panics on error. Intended for literals.
func MustNew(cols ...*Column) Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// WithIndex returns the frame relabelled with the given index.
func (f Frame) WithIndex(index []int) (Frame, error) {
	if len(index) != f.Len() {
		return Frame{}, fmt.Errorf("%w: index has %d entries, want %d", ErrLength, len(index), f.Len())
	}
	out := f.shallow()
	out.index = slices.Clone(index)
	return out, nil
}

func (f Frame) Len() int { return len(f.index) }

// Index returns the original row positions, one per row.
func (f Frame) Index() []int { return slices.Clone(f.index) }

// Columns returns the column names in frame order.
func (f Frame) Columns() []string { return slices.Clone(f.order) }

func (f Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns the named column or ErrSchemaMissing.
func (f Frame) Column(name string) (*Column, error) {
	c, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemaMissing, name)
	}
	return c, nil
}

// With returns a frame with col replacing the column of the same name in
// place, or appended when no such column exists.
func (f Frame) With(col *Column) (Frame, error) {
	if (len(f.order) > 0 || f.Len() > 0) && col.Len() != f.Len() {
		return Frame{}, fmt.Errorf("%w: column %q has %d rows, want %d", ErrLength, col.name, col.Len(), f.Len())
	}
	out := f.shallow()
	if len(f.order) == 0 && len(f.index) == 0 {
		out.index = make([]int, col.Len())
		for i := range out.index {
			out.index[i] = i
		}
	}
	if _, ok := out.cols[col.name]; !ok {
		out.order = append(out.order, col.name)
	}
	out.cols[col.name] = col
	return out, nil
}

// Drop returns the frame without the named columns. Unknown names are ignored.
func (f Frame) Drop(names ...string) Frame {
	out := f.shallow()
	for _, n := range names {
		if _, ok := out.cols[n]; !ok {
			continue
		}
		delete(out.cols, n)
		out.order = slices.DeleteFunc(out.order, func(s string) bool { return s == n })
	}
	return out
}

// Take returns the rows at the given positions, in that order.
func (f Frame) Take(rows []int) Frame {
	out := Frame{
		index: make([]int, len(rows)),
		order: slices.Clone(f.order),
		cols:  make(map[string]*Column, len(f.cols)),
	}
	for i, r := range rows {
		out.index[i] = f.index[r]
	}
	for name, c := range f.cols {
		out.cols[name] = c.Take(rows)
	}
	return out
}

// Filter keeps the rows for which keep returns true, preserving order.
func (f Frame) Filter(keep func(row int) bool) Frame {
	rows := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return f.Take(rows)
}

// SortBy stably sorts rows by the named columns, missing cells last.
func (f Frame) SortBy(names ...string) (Frame, error) {
	keys := make([]*Column, len(names))
	for i, n := range names {
		c, err := f.Column(n)
		if err != nil {
			return Frame{}, err
		}
		keys[i] = c
	}
	rows := make([]int, f.Len())
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		for _, c := range keys {
			if d := compareCells(c.cells[rows[a]], c.cells[rows[b]]); d != 0 {
				return d < 0
			}
		}
		return false
	})
	return f.Take(rows), nil
}

// Row returns the cells of row i keyed by column name.
func (f Frame) Row(i int) map[string]any {
	out := make(map[string]any, len(f.order))
	for _, n := range f.order {
		out[n] = f.cols[n].At(i)
	}
	return out
}

// Matrix returns the named numeric columns as a row-major matrix with NaN
// for missing cells.
func (f Frame) Matrix(names []string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for j, n := range names {
		c, err := f.Column(n)
		if err != nil {
			return nil, err
		}
		if c.Kind() != Numeric {
			return nil, fmt.Errorf("%w: feature %q is %s, want numeric", ErrTypeMismatch, n, c.Kind())
		}
		cols[j] = c.Floats()
	}
	X := make([][]float64, f.Len())
	for i := range X {
		row := make([]float64, len(names))
		for j := range names {
			row[j] = cols[j][i]
		}
		X[i] = row
	}
	return X, nil
}

func (f Frame) shallow() Frame {
	out := Frame{
		index: f.index,
		order: slices.Clone(f.order),
		cols:  make(map[string]*Column, len(f.cols)),
	}
	for k, v := range f.cols {
		out.cols[k] = v
	}
	return out
}
