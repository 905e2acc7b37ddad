package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"eventml/pkg/dataprep"
	"eventml/pkg/frame"
)

// IndexColumn heads the record index in written tables.
const IndexColumn = "index"

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// toDataFrame renders f as a string-typed gota dataframe led by the record
// index. Missing cells are empty.
func toDataFrame(f frame.Frame) (dataframe.DataFrame, error) {
	names := f.Columns()
	cols := make([]*frame.Column, len(names))
	for j, n := range names {
		c, err := f.Column(n)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		cols[j] = c
	}

	records := make([][]string, 0, f.Len()+1)
	records = append(records, append([]string{IndexColumn}, names...))
	for i, idx := range f.Index() {
		row := make([]string, 0, len(names)+1)
		row = append(row, strconv.Itoa(idx))
		for _, c := range cols {
			row = append(row, frame.FormatCell(c.At(i)))
		}
		records = append(records, row)
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	return df, df.Err
}

// WriteTable writes f as CSV to path, creating its directory.
func WriteTable(path string, f frame.Frame) error {
	df, err := toDataFrame(f)
	if err != nil {
		return fmt.Errorf("table %s: %w", path, err)
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()
	if err := df.WriteCSV(out); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}

// JSONPath is the structured twin of a CSV prediction file name.
func JSONPath(csvPath string) string {
	if strings.HasSuffix(csvPath, ".csv") {
		return strings.TrimSuffix(csvPath, ".csv") + ".json"
	}
	return csvPath + ".json"
}

// WriteJSONTable writes f column-wise as {column: {"<index>": value}}.
func WriteJSONTable(path string, f frame.Frame) error {
	index := f.Index()
	out := make(map[string]map[string]any, len(f.Columns()))
	for _, name := range f.Columns() {
		c, err := f.Column(name)
		if err != nil {
			return err
		}
		byIndex := make(map[string]any, len(index))
		for i, idx := range index {
			v := c.At(i)
			if t, ok := v.(time.Time); ok {
				v = t.Format(time.RFC3339Nano)
			}
			byIndex[strconv.Itoa(idx)] = v
		}
		out[name] = byIndex
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WritePredictions writes the joined prediction table as CSV to path and
// as JSON next to it. It returns both paths.
func WritePredictions(path string, f frame.Frame) (csvPath, jsonPath string, err error) {
	if err := WriteTable(path, f); err != nil {
		return "", "", err
	}
	jsonPath = JSONPath(path)
	if err := WriteJSONTable(jsonPath, f); err != nil {
		return "", "", err
	}
	return path, jsonPath, nil
}

// WriteEncoder persists a fitted encoder to dir/encoder.json.
func WriteEncoder(dir string, enc *dataprep.Encoder) (string, error) {
	return writeJSON(dir, EncoderFile, enc)
}

// ReadEncoder loads an encoder written by WriteEncoder.
func ReadEncoder(path string) (*dataprep.Encoder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var enc dataprep.Encoder
	if err := json.Unmarshal(raw, &enc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &enc, nil
}
