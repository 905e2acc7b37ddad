package frame

import "fmt"

// Field is one named, typed entry of a Schema.
type Field struct {
	Name string
	Kind Kind
}

// Schema describes the ordered columns a nested bag is flattened into.
type Schema struct {
	Fields []Field
}

// Names returns the field names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

func (s Schema) Empty() bool { return len(s.Fields) == 0 }

// Validate rejects empty schemas and repeated or blank field names.
func (s Schema) Validate() error {
	if s.Empty() {
		return ErrSchemaEmpty
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: blank field name", ErrSchemaEmpty)
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("%w: field %q repeated", ErrDuplicateColumn, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
