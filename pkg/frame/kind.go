package frame

import (
	"fmt"
	"strings"
)

// Kind is the semantic type of a column.
type Kind int

const (
	Numeric Kind = iota
	String
	Datetime
	Bag // one nested attribute bag (map[string]any) per row
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case String:
		return "string"
	case Datetime:
		return "datetime"
	case Bag:
		return "bag"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the type names used in configuration files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "number", "float", "float64", "int", "integer", "bool":
		return Numeric, nil
	case "string", "str", "category", "categorical", "object":
		return String, nil
	case "datetime", "date", "time", "timestamp":
		return Datetime, nil
	case "bag", "json", "map":
		return Bag, nil
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrTypeMismatch, s)
}
