package dataprep

import (
	"fmt"
	"sort"

	"eventml/pkg/frame"
)

// missingCategory is the rendering a missing cell is encoded under.
const missingCategory = "nan"

// LabelEncode assigns 0..K-1 to the distinct values in sorted order.
// classes[code] is the value behind each code.
func LabelEncode(values []string) (codes []int, classes []string) {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	classes = make([]string, 0, len(set))
	for v := range set {
		classes = append(classes, v)
	}
	sort.Strings(classes)

	lookup := make(map[string]int, len(classes))
	for i, c := range classes {
		lookup[c] = i
	}
	codes = make([]int, len(values))
	for i, v := range values {
		codes[i] = lookup[v]
	}
	return codes, classes
}

// Encode replaces each listed column by dense integer codes derived from
// that column's own values. Codes depend only on the values present in f,
// so two frames encoded separately agree only when their value sets do.
// Use FitEncoder to share one mapping across frames.
func Encode(f frame.Frame, columns []string) (frame.Frame, error) {
	out := f
	for _, name := range columns {
		col, err := f.Column(name)
		if err != nil {
			return frame.Frame{}, err
		}
		codes, _ := LabelEncode(categories(col))
		vals := make([]float64, len(codes))
		for i, c := range codes {
			vals[i] = float64(c)
		}
		if out, err = out.With(frame.NewNumeric(name, vals)); err != nil {
			return frame.Frame{}, err
		}
	}
	return out, nil
}

// Encoder is a fitted categorical mapping that can be persisted and
// applied to any later frame.
type Encoder struct {
	Columns []string            `json:"columns"`
	Classes map[string][]string `json:"classes"`
}

// FitEncoder learns the sorted value set of each listed column.
func FitEncoder(f frame.Frame, columns []string) (*Encoder, error) {
	e := &Encoder{Columns: append([]string(nil), columns...), Classes: make(map[string][]string, len(columns))}
	for _, name := range columns {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		_, classes := LabelEncode(categories(col))
		e.Classes[name] = classes
	}
	return e, nil
}

// Transform applies the fitted codes. Values unseen at fit time become
// missing.
func (e *Encoder) Transform(f frame.Frame) (frame.Frame, error) {
	out := f
	for _, name := range e.Columns {
		col, err := f.Column(name)
		if err != nil {
			return frame.Frame{}, err
		}
		classes, ok := e.Classes[name]
		if !ok {
			return frame.Frame{}, fmt.Errorf("%w: encoder has no classes for %q", frame.ErrSchemaMissing, name)
		}
		lookup := make(map[string]int, len(classes))
		for i, c := range classes {
			lookup[c] = i
		}
		cells := make([]any, col.Len())
		for i, v := range categories(col) {
			if code, ok := lookup[v]; ok {
				cells[i] = float64(code)
			}
		}
		nc, err := frame.NewColumn(name, frame.Numeric, cells)
		if err != nil {
			return frame.Frame{}, err
		}
		if out, err = out.With(nc); err != nil {
			return frame.Frame{}, err
		}
	}
	return out, nil
}

// categories renders every cell as a category string.
func categories(c *frame.Column) []string {
	out := make([]string, c.Len())
	for i := range out {
		if c.IsMissing(i) {
			out[i] = missingCategory
			continue
		}
		out[i] = frame.FormatCell(c.At(i))
	}
	return out
}
