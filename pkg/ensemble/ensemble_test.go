package ensemble_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventml/pkg/crossval"
	"eventml/pkg/ensemble"
	"eventml/pkg/frame"
)

// fixed predicts a constant label per row.
type fixed []int

func (f fixed) Fit([][]float64, []int) error { return nil }
func (f fixed) Predict([][]float64) []int    { return f }
func (f fixed) ProbaOf(X [][]float64, _ int) []float64 {
	return make([]float64, len(X))
}
func (f fixed) FeatureImportances() []float64 { return nil }

func folds(imp [][]float64, preds ...fixed) []crossval.FoldModel {
	out := make([]crossval.FoldModel, len(preds))
	for i, p := range preds {
		out[i] = crossval.FoldModel{Fold: i, Model: p, Importances: imp[i]}
	}
	return out
}

func TestPredict_TruncatesMean(t *testing.T) {
	models := folds(
		[][]float64{{0.123456, 0.876544}, {0.5, 0.5}, {1, 0}},
		fixed{1}, fixed{0}, fixed{1},
	)
	r, err := ensemble.Predict(models, [][]float64{{0, 0}}, []string{"u1"})
	require.NoError(t, err)
	assert.InDelta(t, 0.667, r.RowMeans[0], 1e-3)
	assert.Equal(t, []int{0}, r.RowLabels)
	assert.Equal(t, []int{0}, r.Labels)

	rows, cols := r.Importances.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, 0.1235, r.Importances.At(0, 0))
	assert.Equal(t, 0.8765, r.Importances.At(0, 1))
}

func TestPredict_GroupsByKey(t *testing.T) {
	imp := [][]float64{{1}, {1}}
	models := folds(imp, fixed{1, 1, 0, 1}, fixed{1, 1, 0, 0})
	keys := []string{"a", "a", "b", "b"}
	r, err := ensemble.Predict(models, make([][]float64, 4), keys)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 1, 0, 0.5}, r.RowMeans)
	assert.Equal(t, []int{1, 1, 0, 0}, r.RowLabels)
	assert.Equal(t, []string{"a", "b"}, r.Keys)
	assert.Equal(t, []int{1, 0}, r.Labels)

	l, ok := r.Label("b")
	assert.True(t, ok)
	assert.Equal(t, 0, l)
	_, ok = r.Label("c")
	assert.False(t, ok)
}

func TestPredict_Errors(t *testing.T) {
	_, err := ensemble.Predict(nil, nil, nil)
	assert.ErrorIs(t, err, ensemble.ErrNoModels)

	models := folds([][]float64{{1}}, fixed{1})
	_, err = ensemble.Predict(models, make([][]float64, 1), []string{"a", "b"})
	assert.Error(t, err)

	uneven := folds([][]float64{{1}, {1, 0}}, fixed{1}, fixed{1})
	_, err = ensemble.Predict(uneven, make([][]float64, 1), []string{"a"})
	assert.Error(t, err)
}

func TestJoin(t *testing.T) {
	raw := frame.MustNew(
		frame.MustColumn("user_id", frame.Numeric, 7.0, 7.0, 9.0, 11.0),
		frame.MustColumn("os", frame.String, "ios", "web", "web", "tv"),
	)
	models := folds([][]float64{{1}}, fixed{1, 0})
	r, err := ensemble.Predict(models, make([][]float64, 2), []string{"7", "9"})
	require.NoError(t, err)

	out, err := ensemble.Join(raw, "user_id", r)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_id", "os", ensemble.PredictionColumn}, out.Columns())
	pred, _ := out.Column(ensemble.PredictionColumn)
	assert.Equal(t, []any{1.0, 1.0, 0.0, nil}, pred.Cells())
}

func TestRowKeys_FallsBackToIndex(t *testing.T) {
	f := frame.MustNew(frame.MustColumn("os", frame.String, "a", "b", "c"))
	f, err := f.SortBy("os")
	require.NoError(t, err)
	f = f.Filter(func(i int) bool { return i != 1 })
	assert.Equal(t, []string{"0", "2"}, ensemble.RowKeys(f, "user_id"))
	assert.Equal(t, []string{"a", "c"}, ensemble.RowKeys(f, "os"))
}
