package artifact

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"eventml/pkg/ensemble"
)

// Series is a per-fold metric list. NaN, e.g. the AUC of a fold holding
// one class, is written as null.
type Series []float64

func (s Series) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(s))
	for i := range s {
		if !math.IsNaN(s[i]) && !math.IsInf(s[i], 0) {
			out[i] = &s[i]
		}
	}
	return json.Marshal(out)
}

// WriteMetrics writes the named per-fold metric lists to dir/metrics.json
// with sorted keys.
func WriteMetrics(dir string, metrics map[string][]float64) (string, error) {
	out := make(map[string]Series, len(metrics))
	for k, v := range metrics {
		out[k] = v
	}
	return writeJSON(dir, MetricsFile, out)
}

// WriteImportances writes the fold x feature matrix as
// {feature: {"<fold>": weight}} to dir/feature_importances.json.
func WriteImportances(dir string, features []string, m *mat.Dense) (string, error) {
	rows, cols := m.Dims()
	if cols != len(features) {
		return "", fmt.Errorf("importances: %d columns for %d features", cols, len(features))
	}
	out := make(map[string]map[string]float64, cols)
	for j, name := range features {
		byFold := make(map[string]float64, rows)
		for i := 0; i < rows; i++ {
			byFold[strconv.Itoa(i)] = m.At(i, j)
		}
		out[name] = byFold
	}
	return writeJSON(dir, ImportancesFile, out)
}

// PlotImportances saves a bar chart of the mean importance of each feature
// across folds to dir/feature_importances.png.
func PlotImportances(dir string, features []string, m *mat.Dense) (string, error) {
	rows, cols := m.Dims()
	if cols != len(features) {
		return "", fmt.Errorf("importances: %d columns for %d features", cols, len(features))
	}
	means := make(plotter.Values, cols)
	for j := 0; j < cols; j++ {
		means[j] = mat.Sum(m.ColView(j)) / float64(rows)
	}

	p := plot.New()
	p.Title.Text = "Feature importances (mean over folds)"
	p.Y.Label.Text = "Importance"
	bars, err := plotter.NewBarChart(means, vg.Points(14))
	if err != nil {
		return "", fmt.Errorf("importance chart: %w", err)
	}
	p.Add(bars)
	p.NominalX(features...)

	width := vg.Length(max(4, cols)) * vg.Inch / 2
	path := filepath.Join(dir, ImportancesPlot)
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

// WriteResult writes the importance JSON and chart of an ensemble result.
func WriteResult(dir string, features []string, r ensemble.Result) ([]string, error) {
	jsonPath, err := WriteImportances(dir, features, r.Importances)
	if err != nil {
		return nil, err
	}
	pngPath, err := PlotImportances(dir, features, r.Importances)
	if err != nil {
		return nil, err
	}
	return []string{jsonPath, pngPath}, nil
}
