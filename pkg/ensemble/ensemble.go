// Package ensemble combines the per-fold classifiers into one prediction
// per row and per entity.
package ensemble

import (
	"errors"
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"eventml/pkg/crossval"
	"eventml/pkg/frame"
	"eventml/pkg/stats"
)

// PredictionColumn is the column Join adds to the held-out records.
const PredictionColumn = "predictions"

var ErrNoModels = errors.New("ensemble: no models")

// Result is the aggregate of K fold models over one held-out table.
type Result struct {
	RowMeans  []float64 // mean of the K class predictions per row
	RowLabels []int     // RowMeans truncated toward zero
	Keys      []string  // distinct keys in first-seen order
	Labels    []int     // per-key label, aligned with Keys
	// Importances is K x features, rounded to 4 decimals.
	Importances *mat.Dense

	byKey map[string]int
}

// Label returns the aggregated label for key.
func (r Result) Label(key string) (int, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return 0, false
	}
	return r.Labels[i], true
}

// Predict runs every model over X, averages the K predictions per row and
// truncates the mean to an integer label. Rows are then grouped by keys[i]
// and each group's row labels are averaged and truncated again.
func Predict(models []crossval.FoldModel, X [][]float64, keys []string) (Result, error) {
	if len(models) == 0 {
		return Result{}, ErrNoModels
	}
	if len(keys) != len(X) {
		return Result{}, fmt.Errorf("ensemble: %d keys for %d rows", len(keys), len(X))
	}

	sums := make([]float64, len(X))
	for _, m := range models {
		for i, p := range m.Model.Predict(X) {
			sums[i] += float64(p)
		}
	}
	r := Result{
		RowMeans:  make([]float64, len(X)),
		RowLabels: make([]int, len(X)),
		byKey:     make(map[string]int),
	}
	groups := make([][]int, 0)
	for i, s := range sums {
		r.RowMeans[i] = s / float64(len(models))
		r.RowLabels[i] = int(r.RowMeans[i])

		g, ok := r.byKey[keys[i]]
		if !ok {
			g = len(r.Keys)
			r.byKey[keys[i]] = g
			r.Keys = append(r.Keys, keys[i])
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], r.RowLabels[i])
	}
	r.Labels = make([]int, len(groups))
	for g, labels := range groups {
		r.Labels[g] = int(stats.MeanInts(labels))
	}

	imp, err := importances(models)
	if err != nil {
		return Result{}, err
	}
	r.Importances = imp
	return r, nil
}

func importances(models []crossval.FoldModel) (*mat.Dense, error) {
	p := len(models[0].Importances)
	if p == 0 {
		return nil, fmt.Errorf("ensemble: fold 0 has no feature importances")
	}
	data := make([]float64, 0, len(models)*p)
	for _, m := range models {
		if len(m.Importances) != p {
			return nil, fmt.Errorf("ensemble: fold %d has %d importances, want %d", m.Fold, len(m.Importances), p)
		}
		for _, v := range m.Importances {
			data = append(data, stats.Round(v, 4))
		}
	}
	return mat.NewDense(len(models), p, data), nil
}

// RowKeys returns the grouping key of every row of f: the rendered value
// of keyCol when f has it, else the row's original record index.
func RowKeys(f frame.Frame, keyCol string) []string {
	keys := make([]string, f.Len())
	if col, err := f.Column(keyCol); err == nil && keyCol != "" {
		for i := range keys {
			keys[i] = frame.FormatCell(col.At(i))
		}
		return keys
	}
	for i, idx := range f.Index() {
		keys[i] = strconv.Itoa(idx)
	}
	return keys
}

// Join adds the aggregated label of each row's key to raw as a numeric
// predictions column. Rows whose key was not predicted are missing.
func Join(raw frame.Frame, keyCol string, r Result) (frame.Frame, error) {
	keys := RowKeys(raw, keyCol)
	cells := make([]any, len(keys))
	for i, k := range keys {
		if label, ok := r.Label(k); ok {
			cells[i] = float64(label)
		}
	}
	col, err := frame.NewColumn(PredictionColumn, frame.Numeric, cells)
	if err != nil {
		return frame.Frame{}, err
	}
	return raw.With(col)
}
