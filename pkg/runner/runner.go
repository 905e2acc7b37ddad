// Package runner executes one full training and prediction run.
package runner

import (
	"encoding"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eventml/pkg/artifact"
	"eventml/pkg/config"
	"eventml/pkg/crossval"
	"eventml/pkg/data"
	"eventml/pkg/ensemble"
	"eventml/pkg/frame"
	"eventml/pkg/model"
	"eventml/pkg/pipeline"
)

// Summary describes a completed run.
type Summary struct {
	RunID     string
	Features  []string
	Scores    crossval.Scores
	Split     crossval.Split
	Result    ensemble.Result
	Artifacts []string
}

type run struct {
	cfg    config.Config
	log    *zap.Logger
	last   string
	sum    Summary
	engine *pipeline.FeatureEngineer
}

// Run loads both tables, engineers features, scores and trains one tree
// per fold, predicts the held-out table and writes every artifact. It
// stops at the first failing stage and returns a *pipeline.StageError.
func Run(cfg config.Config, logger *zap.Logger) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	r := &run{
		cfg: cfg,
		log: logger.With(zap.String("run_id", id)),
		sum: Summary{RunID: id},
	}
	r.engine = pipeline.NewFeatureEngineer(cfg.Features, r.log)
	r.log.Info("run started", zap.String("data_path", cfg.DataPath), zap.Int("folds", cfg.Features.Folds))

	var (
		rawTrain, rawTest frame.Frame
		train, test       frame.Frame
		X, Xtest          [][]float64
		y                 []int
		models            []crossval.FoldModel
		err               error
	)
	f := cfg.Features
	trainer := crossval.NewTrainer(model.TreeFactory(cfg.Model, f.Seed), r.log)

	stages := []struct {
		name string
		fn   func() error
	}{
		{"load_train", func() error {
			rawTrain, err = data.ReadJSONFile(cfg.DataPath, cfg.Input.Train, f.IDCol, f.DateCol)
			return err
		}},
		{"engineer_train", func() error {
			if !r.engine.Labeled(rawTrain) {
				return fmt.Errorf("%w: training table has no %q column", frame.ErrSchemaMissing, f.TargetCol)
			}
			train, err = r.engine.Transform(rawTrain)
			return err
		}},
		{"write_train", func() error { return r.writeTable(cfg.Output.Train, train) }},
		{"load_test", func() error {
			rawTest, err = data.ReadJSONFile(cfg.DataPath, cfg.Input.Test, f.IDCol, f.DateCol)
			return err
		}},
		{"engineer_test", func() error {
			test, err = r.engine.Transform(rawTest)
			return err
		}},
		{"write_test", func() error { return r.writeTable(cfg.Output.Test, test) }},
		{"feature_matrix", func() error {
			r.sum.Features = r.engine.FeatureNames(train)
			if len(r.sum.Features) == 0 {
				return fmt.Errorf("%w: no feature columns left", frame.ErrSchemaEmpty)
			}
			if X, y, err = r.engine.Matrix(train, r.sum.Features); err != nil {
				return err
			}
			Xtest, _, err = r.engine.Matrix(test.Drop(f.TargetCol), r.sum.Features)
			return err
		}},
		{"evaluate", func() error {
			if r.sum.Scores, r.sum.Split, err = trainer.Evaluate(X, y, f.Folds, f.Seed); err != nil {
				return err
			}
			return r.artifact(artifact.WriteMetrics(cfg.MetricsPath, r.sum.Scores.Series()))
		}},
		{"fit_folds", func() error {
			models, err = trainer.FitFolds(X, y, r.sum.Split)
			return err
		}},
		{"save_models", func() error {
			for _, m := range models {
				bm, ok := m.Model.(encoding.BinaryMarshaler)
				if !ok {
					return fmt.Errorf("fold %d: %T cannot be serialized", m.Fold, m.Model)
				}
				if err := r.artifact(artifact.SaveModel(cfg.ModelPath, m.Fold, bm)); err != nil {
					return err
				}
			}
			return nil
		}},
		{"predict", func() error {
			r.sum.Result, err = ensemble.Predict(models, Xtest, ensemble.RowKeys(test, f.IDCol))
			return err
		}},
		{"write_predictions", func() error {
			keyCol := ""
			if test.Has(f.IDCol) {
				keyCol = f.IDCol
			}
			joined, err := ensemble.Join(rawTest, keyCol, r.sum.Result)
			if err != nil {
				return err
			}
			csvPath, jsonPath, err := artifact.WritePredictions(filepath.Join(cfg.DataPath, cfg.Output.Prediction), joined)
			if err != nil {
				return err
			}
			r.saved(csvPath)
			r.saved(jsonPath)
			return nil
		}},
		{"write_importances", func() error {
			paths, err := artifact.WriteResult(cfg.MetricsPath, r.sum.Features, r.sum.Result)
			if err != nil {
				return err
			}
			for _, p := range paths {
				r.saved(p)
			}
			if enc := r.engine.Encoder(); enc != nil {
				return r.artifact(artifact.WriteEncoder(cfg.ModelPath, enc))
			}
			return nil
		}},
	}

	for _, s := range stages {
		if err := r.stage(s.name, s.fn); err != nil {
			return r.sum, err
		}
	}
	r.log.Info("run finished", zap.Int("artifacts", len(r.sum.Artifacts)))
	return r.sum, nil
}

func (r *run) stage(name string, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		r.log.Error("stage failed",
			zap.String("stage", name),
			zap.String("last_completed", r.last),
			zap.Error(err),
		)
		return &pipeline.StageError{Stage: name, Completed: r.last, Err: err}
	}
	r.last = name
	r.log.Info("stage completed", zap.String("stage", name), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *run) writeTable(name string, f frame.Frame) error {
	if name == "" {
		return nil
	}
	path := filepath.Join(r.cfg.DataPath, name)
	if err := artifact.WriteTable(path, f); err != nil {
		return err
	}
	r.saved(path)
	return nil
}

func (r *run) artifact(path string, err error) error {
	if err != nil {
		return err
	}
	r.saved(path)
	return nil
}

func (r *run) saved(path string) {
	r.sum.Artifacts = append(r.sum.Artifacts, path)
	r.log.Info("artifact saved", zap.String("path", path))
}
