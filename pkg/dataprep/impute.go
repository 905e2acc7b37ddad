package dataprep

import (
	"eventml/pkg/frame"
	"eventml/pkg/stats"
)

// ImputeMean fills the missing cells of a numeric column with the mean of
// its present cells. A column with no present cell is returned unchanged.
func ImputeMean(c *frame.Column) (*frame.Column, error) {
	mean := stats.Mean(c.Floats())
	cells := c.Cells()
	for i := range cells {
		if c.IsMissing(i) {
			cells[i] = mean
		}
	}
	return frame.NewColumn(c.Name(), c.Kind(), cells)
}

// ImputeMode fills the missing cells with the most frequent present value
// (ties go to the smallest rendering). ok is false when there is no mode.
func ImputeMode(c *frame.Column) (col *frame.Column, ok bool, err error) {
	keys := make([]string, 0, c.Len())
	repr := make(map[string]any)
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			continue
		}
		k := frame.FormatCell(c.At(i))
		keys = append(keys, k)
		if _, seen := repr[k]; !seen {
			repr[k] = c.At(i)
		}
	}
	mode, ok := stats.ModeString(keys)
	if !ok {
		return c, false, nil
	}
	cells := c.Cells()
	for i := range cells {
		if c.IsMissing(i) {
			cells[i] = repr[mode]
		}
	}
	col, err = frame.NewColumn(c.Name(), c.Kind(), cells)
	return col, true, err
}

// FillForward copies the nearest preceding present cell into each missing
// cell. Leading missing cells stay missing.
func FillForward(c *frame.Column) (*frame.Column, error) {
	cells := c.Cells()
	var last any
	for i := range cells {
		if c.IsMissing(i) {
			cells[i] = last
			continue
		}
		last = cells[i]
	}
	return frame.NewColumn(c.Name(), c.Kind(), cells)
}

// impute applies the expansion policy: mean for numeric columns, mode
// otherwise, forward fill when no mode exists.
func impute(c *frame.Column) (*frame.Column, error) {
	if c.Kind() == frame.Numeric {
		return ImputeMean(c)
	}
	filled, ok, err := ImputeMode(c)
	if err != nil || ok {
		return filled, err
	}
	return FillForward(c)
}
