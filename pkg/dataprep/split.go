package dataprep

import (
	"errors"
	"fmt"
	"strings"

	"eventml/pkg/frame"
)

// ErrInvalidRule is returned for a split rule that cannot be applied.
var ErrInvalidRule = errors.New("dataprep: invalid rule")

// SplitRule describes how one string column is cut into two.
type SplitRule struct {
	Column    string `mapstructure:"column" json:"column"`
	Delimiter string `mapstructure:"delimiter" json:"delimiter"`
	// Normalize, when set, is rewritten to Delimiter before cutting.
	Normalize string `mapstructure:"replace_sym" json:"replace_sym,omitempty"`
	Left      string `mapstructure:"left" json:"left,omitempty"`
	Right     string `mapstructure:"right" json:"right,omitempty"`
}

// SplitPresets are the rules for the event exports' well-known columns.
var SplitPresets = map[string]SplitRule{
	"locale":   {Column: "locale", Delimiter: "-", Normalize: "_", Left: "locale_lang", Right: "locale_country"},
	"location": {Column: "location", Delimiter: "/", Left: "location_country", Right: "location_city"},
}

// Resolve fills a rule that names only a column from SplitPresets and
// defaults the output names to <column>_0 and <column>_1.
func (r SplitRule) Resolve() (SplitRule, error) {
	if r.Delimiter == "" {
		p, ok := SplitPresets[r.Column]
		if !ok {
			return SplitRule{}, fmt.Errorf("%w: no delimiter for column %q", ErrInvalidRule, r.Column)
		}
		if r.Left != "" {
			p.Left = r.Left
		}
		if r.Right != "" {
			p.Right = r.Right
		}
		r = p
	}
	if r.Left == "" {
		r.Left = r.Column + "_0"
	}
	if r.Right == "" {
		r.Right = r.Column + "_1"
	}
	if r.Left == r.Right {
		return SplitRule{}, fmt.Errorf("%w: left and right both named %q", ErrInvalidRule, r.Left)
	}
	return r, nil
}

// Split removes rule.Column and appends rule.Left and rule.Right holding
// the text before and after the first delimiter. A value without the
// delimiter keeps all of its text on the left and leaves the right missing.
func Split(f frame.Frame, rule SplitRule) (frame.Frame, error) {
	rule, err := rule.Resolve()
	if err != nil {
		return frame.Frame{}, err
	}
	col, err := f.Column(rule.Column)
	if err != nil {
		return frame.Frame{}, err
	}
	if col.Kind() != frame.String {
		return frame.Frame{}, fmt.Errorf("%w: cannot split %q of kind %s", frame.ErrTypeMismatch, rule.Column, col.Kind())
	}
	for _, name := range []string{rule.Left, rule.Right} {
		if name != rule.Column && f.Has(name) {
			return frame.Frame{}, fmt.Errorf("%w: %q from %q", frame.ErrDuplicateColumn, name, rule.Column)
		}
	}

	left := make([]any, col.Len())
	right := make([]any, col.Len())
	for i := range left {
		s, ok := col.Str(i)
		if !ok {
			continue
		}
		if rule.Normalize != "" {
			s = strings.ReplaceAll(s, rule.Normalize, rule.Delimiter)
		}
		before, after, found := strings.Cut(s, rule.Delimiter)
		left[i] = before
		if found {
			right[i] = after
		}
	}

	out := f.Drop(rule.Column)
	for _, c := range []struct {
		name  string
		cells []any
	}{{rule.Left, left}, {rule.Right, right}} {
		nc, err := frame.NewColumn(c.name, frame.String, c.cells)
		if err != nil {
			return frame.Frame{}, err
		}
		if out, err = out.With(nc); err != nil {
			return frame.Frame{}, err
		}
	}
	return out, nil
}
