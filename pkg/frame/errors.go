package frame

import "errors"

var (
	// ErrSchemaMissing is returned when a column a stage depends on is absent.
	ErrSchemaMissing = errors.New("frame: column missing")
	// ErrSchemaEmpty is returned when a schema needed to derive new columns is empty.
	ErrSchemaEmpty = errors.New("frame: schema empty")
	// ErrTypeMismatch is returned when a column or cell has the wrong kind.
	ErrTypeMismatch = errors.New("frame: type mismatch")
	// ErrDuplicateColumn is returned when a new column would shadow an existing one.
	ErrDuplicateColumn = errors.New("frame: duplicate column")
	// ErrLength is returned when column lengths disagree.
	ErrLength = errors.New("frame: length mismatch")
)
