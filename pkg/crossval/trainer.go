package crossval

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eventml/pkg/model"
)

// Metric names, in the order they are reported.
var Metrics = []string{"roc_auc", "f1", "accuracy", "recall", "precision"}

// Scores holds per-fold reports for the train and held-out rows of each
// fold, plus wall-clock fit and score times in seconds.
type Scores struct {
	Train     []model.Report
	Test      []model.Report
	FitTime   []float64
	ScoreTime []float64
}

// Series flattens the scores into named per-fold lists: fit_time,
// score_time and {train,test}_<metric>.
func (s Scores) Series() map[string][]float64 {
	out := map[string][]float64{
		"fit_time":   s.FitTime,
		"score_time": s.ScoreTime,
	}
	for prefix, reports := range map[string][]model.Report{"train": s.Train, "test": s.Test} {
		for _, m := range Metrics {
			vals := make([]float64, len(reports))
			for i, r := range reports {
				vals[i] = metricOf(r, m)
			}
			out[prefix+"_"+m] = vals
		}
	}
	return out
}

func metricOf(r model.Report, name string) float64 {
	switch name {
	case "roc_auc":
		return r.AUC
	case "f1":
		return r.F1
	case "accuracy":
		return r.Accuracy
	case "recall":
		return r.Recall
	case "precision":
		return r.Precision
	}
	return math.NaN()
}

// FoldModel is a classifier trained on one fold's train rows.
type FoldModel struct {
	Fold        int
	Model       model.Classifier
	Importances []float64
	TrainRows   []int
}

// Trainer fits one classifier per fold.
type Trainer struct {
	logger  *zap.Logger
	factory model.Factory
	workers int
}

// NewTrainer returns a Trainer building classifiers with factory. Folds
// are scored on up to GOMAXPROCS goroutines.
func NewTrainer(factory model.Factory, logger *zap.Logger) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{logger: logger, factory: factory, workers: runtime.GOMAXPROCS(0)}
}

// Evaluate builds a stratified split of y and, for every fold, fits a
// fresh classifier on the train rows and scores it on both portions.
// Folds run concurrently; results are stored by fold index.
func (t *Trainer) Evaluate(X [][]float64, y []int, k int, seed int64) (Scores, Split, error) {
	if len(X) != len(y) {
		return Scores{}, Split{}, fmt.Errorf("evaluate: %d rows, %d labels", len(X), len(y))
	}
	split, err := StratifiedKFold(y, k, seed)
	if err != nil {
		return Scores{}, Split{}, err
	}

	s := Scores{
		Train:     make([]model.Report, k),
		Test:      make([]model.Report, k),
		FitTime:   make([]float64, k),
		ScoreTime: make([]float64, k),
	}
	var g errgroup.Group
	g.SetLimit(t.workers)
	for _, fold := range split.Folds {
		fold := fold
		g.Go(func() error {
			xTrain, yTrain := Take(X, y, fold.Train)
			xTest, yTest := Take(X, y, fold.Test)

			clf := t.factory()
			start := time.Now()
			if err := clf.Fit(xTrain, yTrain); err != nil {
				return fmt.Errorf("fold %d: %w", fold.Index, err)
			}
			s.FitTime[fold.Index] = time.Since(start).Seconds()

			start = time.Now()
			s.Test[fold.Index] = score(clf, xTest, yTest)
			s.ScoreTime[fold.Index] = time.Since(start).Seconds()
			s.Train[fold.Index] = score(clf, xTrain, yTrain)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Scores{}, Split{}, err
	}

	for i := range split.Folds {
		t.logger.Debug("fold scored",
			zap.Int("fold", i),
			zap.Float64("test_roc_auc", s.Test[i].AUC),
			zap.Float64("test_f1", s.Test[i].F1),
			zap.Float64("test_accuracy", s.Test[i].Accuracy),
		)
	}
	return s, split, nil
}

func score(clf model.Classifier, X [][]float64, y []int) model.Report {
	return model.Score(y, clf.Predict(X), clf.ProbaOf(X, 1))
}

// FitFolds trains one classifier per fold of split, sequentially and in
// fold order, on that fold's train rows only.
func (t *Trainer) FitFolds(X [][]float64, y []int, split Split) ([]FoldModel, error) {
	if err := split.Validate(len(X)); err != nil {
		return nil, err
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("fit folds: %d rows, %d labels", len(X), len(y))
	}
	out := make([]FoldModel, 0, split.K)
	for _, fold := range split.Folds {
		xTrain, yTrain := Take(X, y, fold.Train)
		clf := t.factory()
		if err := clf.Fit(xTrain, yTrain); err != nil {
			return nil, fmt.Errorf("fold %d: %w", fold.Index, err)
		}
		out = append(out, FoldModel{
			Fold:        fold.Index,
			Model:       clf,
			Importances: clf.FeatureImportances(),
			TrainRows:   append([]int(nil), fold.Train...),
		})
		t.logger.Debug("fold model trained", zap.Int("fold", fold.Index), zap.Int("train_rows", len(fold.Train)))
	}
	return out, nil
}
