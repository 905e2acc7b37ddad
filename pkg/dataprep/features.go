package dataprep

import (
	"fmt"
	"math"
	"strings"
	"time"

	"eventml/pkg/frame"
)

// DefaultTimeFormat is the clock format of the event exports.
const DefaultTimeFormat = "%H:%M:%S"

var dateFields = map[string]func(time.Time) float64{
	"dayofweek": func(t time.Time) float64 { return float64((int(t.Weekday()) + 6) % 7) }, // Monday=0
	"dayofyear": func(t time.Time) float64 { return float64(t.YearDay()) },
	"weekofyear": func(t time.Time) float64 {
		_, w := t.ISOWeek()
		return float64(w)
	},
	"monthofyear": func(t time.Time) float64 { return float64(t.Month()) },
	"year":        func(t time.Time) float64 { return float64(t.Year()) },
	"dayofmonth":  func(t time.Time) float64 { return float64(t.Day()) },
}

var timeFields = map[string]func(time.Time) float64{
	"hour":   func(t time.Time) float64 { return float64(t.Hour()) },
	"minute": func(t time.Time) float64 { return float64(t.Minute()) },
}

// ExtractDate adds one numeric column per recognised field of dateCol and
// then drops dateCol. Unknown field names are ignored.
func ExtractDate(f frame.Frame, fields []string, dateCol string) (frame.Frame, error) {
	col, err := f.Column(dateCol)
	if err != nil {
		return frame.Frame{}, err
	}
	if col.Kind() != frame.Datetime {
		return frame.Frame{}, fmt.Errorf("%w: %q is %s, want datetime", frame.ErrTypeMismatch, dateCol, col.Kind())
	}
	times := make([]*time.Time, col.Len())
	for i := range times {
		if t, ok := col.Time(i); ok {
			times[i] = &t
		}
	}
	out, err := addFields(f, fields, dateFields, times)
	if err != nil {
		return frame.Frame{}, err
	}
	return out.Drop(dateCol), nil
}

// ExtractTime parses timeCol with a strftime format, adds one numeric
// column per recognised field and drops timeCol.
func ExtractTime(f frame.Frame, fields []string, timeCol, format string) (frame.Frame, error) {
	col, err := f.Column(timeCol)
	if err != nil {
		return frame.Frame{}, err
	}
	if k := col.Kind(); k != frame.String && k != frame.Datetime {
		return frame.Frame{}, fmt.Errorf("%w: %q is %s, want string or datetime", frame.ErrTypeMismatch, timeCol, k)
	}
	if !requests(fields, timeFields) {
		return f.Drop(timeCol), nil
	}
	if format == "" {
		format = DefaultTimeFormat
	}
	layout := StrftimeLayout(format)

	times := make([]*time.Time, col.Len())
	for i := range times {
		if t, ok := col.Time(i); ok {
			times[i] = &t
			continue
		}
		s, ok := col.Str(i)
		if !ok {
			continue
		}
		t, err := time.Parse(layout, strings.TrimSpace(s))
		if err != nil {
			return frame.Frame{}, fmt.Errorf("%w: %q row %d: %q does not match %q", frame.ErrTypeMismatch, timeCol, i, s, format)
		}
		times[i] = &t
	}
	out, err := addFields(f, fields, timeFields, times)
	if err != nil {
		return frame.Frame{}, err
	}
	return out.Drop(timeCol), nil
}

func requests(fields []string, known map[string]func(time.Time) float64) bool {
	for _, name := range fields {
		if _, ok := known[name]; ok {
			return true
		}
	}
	return false
}

func addFields(f frame.Frame, fields []string, known map[string]func(time.Time) float64, times []*time.Time) (frame.Frame, error) {
	out := f
	for _, name := range fields {
		fn, ok := known[name]
		if !ok {
			continue
		}
		vals := make([]float64, len(times))
		for i, t := range times {
			if t == nil {
				vals[i] = math.NaN()
				continue
			}
			vals[i] = fn(*t)
		}
		var err error
		if out, err = out.With(frame.NewNumeric(name, vals)); err != nil {
			return frame.Frame{}, err
		}
	}
	return out, nil
}

var strftime = strings.NewReplacer(
	"%Y", "2006", "%y", "06", "%m", "01", "%d", "02",
	"%H", "15", "%I", "03", "%M", "04", "%S", "05", "%f", "000000",
	"%p", "PM", "%b", "Jan", "%B", "January", "%a", "Mon", "%A", "Monday",
	"%z", "-0700", "%Z", "MST", "%%", "%",
)

// StrftimeLayout translates a strftime pattern into a Go time layout.
// Patterns without a directive are taken to be Go layouts already.
func StrftimeLayout(format string) string {
	if !strings.Contains(format, "%") {
		return format
	}
	return strftime.Replace(format)
}
