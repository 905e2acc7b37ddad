package dataprep

import (
	"fmt"
	"time"

	"eventml/pkg/frame"
)

// ExcludePeriods keeps the rows whose timestamp lies strictly between
// after and before. Either bound may be nil; with both nil the frame is
// returned as is. Rows without a timestamp are dropped once a bound is set.
func ExcludePeriods(f frame.Frame, column string, after, before *time.Time) (frame.Frame, error) {
	if after == nil && before == nil {
		return f, nil
	}
	col, err := f.Column(column)
	if err != nil {
		return frame.Frame{}, err
	}
	if col.Kind() != frame.Datetime {
		return frame.Frame{}, fmt.Errorf("%w: %q is %s, want datetime", frame.ErrTypeMismatch, column, col.Kind())
	}
	return f.Filter(func(i int) bool {
		t, ok := col.Time(i)
		if !ok {
			return false
		}
		if after != nil && !t.After(*after) {
			return false
		}
		if before != nil && !t.Before(*before) {
			return false
		}
		return true
	}), nil
}

// RemapLabel replaces the target column by an inverted indicator: rows
// whose raw label equals match become 0, every other row becomes 1.
func RemapLabel(f frame.Frame, target, match string) (frame.Frame, error) {
	col, err := f.Column(target)
	if err != nil {
		return frame.Frame{}, err
	}
	vals := make([]float64, col.Len())
	for i := range vals {
		vals[i] = 1
		if !col.IsMissing(i) && frame.FormatCell(col.At(i)) == match {
			vals[i] = 0
		}
	}
	return f.With(frame.NewNumeric(target, vals))
}
