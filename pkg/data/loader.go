package data

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"eventml/pkg/frame"
)

// ErrUnreadable is returned when a source is missing or is not a sequence
// of JSON records.
var ErrUnreadable = errors.New("data: unreadable")

// record keeps the key order of one JSON object.
type record struct {
	keys   []string
	values map[string]any
}

// ReadJSONFile opens dir/name and reads it with ReadJSON.
func ReadJSONFile(dir, name, entityCol, timeCol string) (frame.Frame, error) {
	path := filepath.Join(dir, name)
	file, err := os.Open(path)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer file.Close()

	f, err := ReadJSON(bufio.NewReader(file), entityCol, timeCol)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("read %s: %w", path, err)
	}
	return f, nil
}

// ReadJSON turns a JSON array of objects (or newline-delimited objects)
// into a frame. timeCol is parsed into date-times; rows are sorted by
// (entityCol, timeCol) when entityCol is present, else by timeCol. The
// frame index holds each record's position in the source.
func ReadJSON(r io.Reader, entityCol, timeCol string) (frame.Frame, error) {
	records, err := decodeRecords(r)
	if err != nil {
		return frame.Frame{}, err
	}

	// columns appear in first-seen key order
	var names []string
	seen := map[string]struct{}{}
	for _, rec := range records {
		for _, k := range rec.keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				names = append(names, k)
			}
		}
	}
	if _, ok := seen[timeCol]; !ok {
		return frame.Frame{}, fmt.Errorf("%w: time column %q", frame.ErrSchemaMissing, timeCol)
	}

	cols := make([]*frame.Column, 0, len(names))
	for _, name := range names {
		cells := make([]any, len(records))
		for i, rec := range records {
			cells[i] = rec.values[name]
		}
		var col *frame.Column
		if name == timeCol {
			col, err = timestampColumn(name, cells)
		} else {
			col, err = inferColumn(name, cells)
		}
		if err != nil {
			return frame.Frame{}, err
		}
		cols = append(cols, col)
	}

	f, err := frame.New(cols...)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if entityCol != "" && f.Has(entityCol) {
		return f.SortBy(entityCol, timeCol)
	}
	return f.SortBy(timeCol)
}

func decodeRecords(r io.Reader) ([]record, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	var records []record
	switch tok {
	case json.Delim('['):
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
			}
			if tok != json.Delim('{') {
				return nil, fmt.Errorf("%w: record %d is not an object", ErrUnreadable, len(records))
			}
			rec, err := decodeObject(dec)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
	case json.Delim('{'):
		// newline-delimited objects; the first '{' is already consumed
		for {
			rec, err := decodeObject(dec)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
			tok, err := dec.Token()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
			}
			if tok != json.Delim('{') {
				return nil, fmt.Errorf("%w: record %d is not an object", ErrUnreadable, len(records))
			}
		}
	default:
		return nil, fmt.Errorf("%w: expected a record sequence, got %v", ErrUnreadable, tok)
	}
	return records, nil
}

// decodeObject reads key/value pairs up to and including the closing brace.
func decodeObject(dec *json.Decoder) (record, error) {
	rec := record{values: map[string]any{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return record{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		key, ok := tok.(string)
		if !ok {
			return record{}, fmt.Errorf("%w: object key %v", ErrUnreadable, tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return record{}, fmt.Errorf("%w: value of %q: %w", ErrUnreadable, key, err)
		}
		if _, dup := rec.values[key]; !dup {
			rec.keys = append(rec.keys, key)
		}
		rec.values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return record{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return rec, nil
}

func timestampColumn(name string, cells []any) (*frame.Column, error) {
	out := make([]any, len(cells))
	for i, v := range cells {
		switch x := v.(type) {
		case nil:
		case string:
			t, err := frame.ParseTimestamp(x)
			if err != nil {
				return nil, fmt.Errorf("%w: column %q row %d: %w", ErrUnreadable, name, i, err)
			}
			out[i] = t
		case float64:
			// epoch milliseconds
			out[i] = time.UnixMilli(int64(x)).UTC()
		default:
			return nil, fmt.Errorf("%w: column %q row %d: %T is not a timestamp", ErrUnreadable, name, i, v)
		}
	}
	return frame.NewColumn(name, frame.Datetime, out)
}

// inferColumn picks the kind from the first present cell and degrades to
// a string column when later cells disagree.
func inferColumn(name string, cells []any) (*frame.Column, error) {
	kind := frame.String
	for _, v := range cells {
		if v == nil {
			continue
		}
		switch v.(type) {
		case float64, bool:
			kind = frame.Numeric
		case map[string]any:
			kind = frame.Bag
		}
		break
	}
	if col, err := frame.NewColumn(name, kind, cells); err == nil {
		return col, nil
	}
	text := make([]any, len(cells))
	for i, v := range cells {
		if v != nil {
			text[i] = frame.FormatCell(v)
		}
	}
	return frame.NewColumn(name, frame.String, text)
}
