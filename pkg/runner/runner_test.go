package runner_test

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"eventml/pkg/artifact"
	"eventml/pkg/config"
	"eventml/pkg/data"
	"eventml/pkg/pipeline"
	"eventml/pkg/runner"
)

var (
	locales = []string{"en_US", "en-GB", "fr-FR", "de_DE"}
	systems = []string{"ios", "web", "android"}
)

func event(i, user int) map[string]any {
	return map[string]any{
		"user_id": user,
		"date":    fmt.Sprintf("2024-03-%02d", 1+i%28),
		"time":    fmt.Sprintf("%02d:%02d:00", i%24, (i*7)%60),
		"locale":  locales[i%4],
		"info":    map[string]any{"os": systems[i%3], "score": float64(i % 10)},
	}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

// setup writes a 100-row training table over 20 users, 60 of whose rows
// carry the catch value, a 10-row test table and a config file.
func setup(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	train := make([]map[string]any, 100)
	for i := range train {
		train[i] = event(i, i/5)
		if i%5 < 3 {
			train[i]["event"] = "purchase"
		} else {
			train[i]["event"] = "view"
		}
	}
	writeJSON(t, filepath.Join(dataDir, "train.json"), train)

	test := make([]map[string]any, 10)
	for i := range test {
		test[i] = event(i+3, 100+i/2)
	}
	writeJSON(t, filepath.Join(dataDir, "test.json"), test)

	cfg := map[string]any{
		"data_path":    dataDir,
		"log_path":     filepath.Join(root, "logs"),
		"model_path":   filepath.Join(root, "models"),
		"metrics_path": filepath.Join(root, "metrics"),
		"input":        map[string]any{"train": "train.json", "test": "test.json"},
		"output":       map[string]any{"prediction": "prediction.csv"},
		"features": map[string]any{
			"folds":               5,
			"target_col":          "event",
			"catch_id":            "purchase",
			"col_to_split":        []any{"locale"},
			"col_to_expand":       []any{"info"},
			"categorical_columns": []any{"locale_lang", "locale_country", "os"},
			"date_features":       []any{"dayofweek", "dayofmonth"},
			"time_features":       []any{"hour", "minute"},
			"shared_encoder":      true,
		},
		"model": map[string]any{"max_depth": 4},
	}
	path := filepath.Join(root, "config.json")
	writeJSON(t, path, cfg)
	loaded, err := config.Load(path)
	require.NoError(t, err)
	return loaded
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := setup(t)
	sum, err := runner.Run(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, []string{
		"locale_lang", "locale_country", "os", "score", "dayofweek", "dayofmonth", "hour", "minute",
	}, sum.Features)
	require.NoError(t, sum.Split.Validate(100))
	assert.Len(t, sum.Scores.Test, 5)

	rows, cols := sum.Result.Importances.Dims()
	assert.Equal(t, 5, rows)
	assert.Equal(t, len(sum.Features), cols)
	assert.Equal(t, []string{"100", "101", "102", "103", "104"}, sum.Result.Keys)

	for i := 0; i < 5; i++ {
		assert.FileExists(t, filepath.Join(cfg.ModelPath, artifact.ModelFile(i)))
	}
	for _, p := range []string{
		filepath.Join(cfg.MetricsPath, artifact.MetricsFile),
		filepath.Join(cfg.MetricsPath, artifact.ImportancesFile),
		filepath.Join(cfg.MetricsPath, artifact.ImportancesPlot),
		filepath.Join(cfg.ModelPath, artifact.EncoderFile),
		filepath.Join(cfg.DataPath, "prediction.json"),
		filepath.Join(cfg.DataPath, cfg.Output.Train),
		filepath.Join(cfg.DataPath, cfg.Output.Test),
	} {
		assert.FileExists(t, p)
		assert.Contains(t, sum.Artifacts, p)
	}

	var metrics map[string][]*float64
	raw, err := os.ReadFile(filepath.Join(cfg.MetricsPath, artifact.MetricsFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &metrics))
	assert.Len(t, metrics, 12)
	assert.Len(t, metrics["train_roc_auc"], 5)

	in, err := os.Open(filepath.Join(cfg.DataPath, cfg.Output.Prediction))
	require.NoError(t, err)
	defer in.Close()
	records, err := csv.NewReader(in).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 11)
	header := records[0]
	assert.Equal(t, "predictions", header[len(header)-1])
	for _, rec := range records[1:] {
		assert.Contains(t, []string{"0", "1"}, rec[len(rec)-1])
	}
}

func TestRun_Reproducible(t *testing.T) {
	cfg := setup(t)
	a, err := runner.Run(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	b, err := runner.Run(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Scores.Test, b.Scores.Test)
	assert.Equal(t, a.Scores.Train, b.Scores.Train)
	assert.Equal(t, a.Result.Labels, b.Result.Labels)
}

func TestRun_StageFailure(t *testing.T) {
	cfg := setup(t)
	cfg.Input.Test = "absent.json"
	_, err := runner.Run(cfg, zaptest.NewLogger(t))
	require.ErrorIs(t, err, data.ErrUnreadable)

	var stage *pipeline.StageError
	require.True(t, errors.As(err, &stage))
	assert.Equal(t, "load_test", stage.Stage)
	assert.Equal(t, "write_train", stage.Completed)
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := runner.Run(config.Config{}, nil)
	assert.ErrorIs(t, err, config.ErrMissingKey)
}
