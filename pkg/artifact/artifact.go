// Package artifact persists the outputs of a run: fold models, metrics,
// feature importances, prediction and preprocessed tables.
package artifact

import (
	"encoding"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"eventml/pkg/model"
)

const (
	MetricsFile     = "metrics.json"
	ImportancesFile = "feature_importances.json"
	ImportancesPlot = "feature_importances.png"
	EncoderFile     = "encoder.json"
)

// ModelFile is the file name of fold i's classifier.
func ModelFile(fold int) string { return "decision_tree_fold_" + strconv.Itoa(fold) + ".gob" }

func create(dir, name string) (*os.File, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("create %s: %w", path, err)
	}
	return f, path, nil
}

func writeJSON(dir, name string, v any) (string, error) {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	f, path, err := create(dir, name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(append(raw, '\n')); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, f.Close()
}

// SaveModel writes the binary encoding of a fold's classifier to dir.
func SaveModel(dir string, fold int, m encoding.BinaryMarshaler) (string, error) {
	raw, err := m.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode fold %d: %w", fold, err)
	}
	f, path, err := create(dir, ModelFile(fold))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(raw); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, f.Close()
}

// LoadModel reads a tree written by SaveModel.
func LoadModel(path string) (*model.DecisionTreeClassifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree := model.NewDecisionTreeClassifier()
	if err := tree.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return tree, nil
}
