package model

// Classifier is a supervised binary classifier trained on a dense feature
// matrix with NaN for missing values.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
	// ProbaOf returns p(y=label) per row.
	ProbaOf(X [][]float64, label int) []float64
	// FeatureImportances is one weight per feature column.
	FeatureImportances() []float64
}

// Factory builds an untrained classifier.
type Factory func() Classifier

// Params are the tree hyperparameters read from configuration.
type Params struct {
	MaxDepth        int    `mapstructure:"max_depth"`
	MinSamplesSplit int    `mapstructure:"min_samples_split"`
	MinSamplesLeaf  int    `mapstructure:"min_samples_leaf"`
	MaxFeatures     int    `mapstructure:"max_features"`
	Criterion       string `mapstructure:"criterion"`
	// MinImpurityDecrease is the smallest gain a split must exceed.
	MinImpurityDecrease float64 `mapstructure:"min_impurity_decrease"`
}

// TreeFactory returns a Factory of decision trees built from p. The seed
// drives feature subsampling when MaxFeatures is set.
func TreeFactory(p Params, seed int64) Factory {
	return func() Classifier {
		opts := []Option{
			WithRandomState(seed), WithMaxDepth(p.MaxDepth), WithMaxFeatures(p.MaxFeatures),
			WithMinImpurityDecrease(p.MinImpurityDecrease),
		}
		if p.MinSamplesSplit > 0 {
			opts = append(opts, WithMinSamplesSplit(p.MinSamplesSplit))
		}
		if p.MinSamplesLeaf > 0 {
			opts = append(opts, WithMinSamplesLeaf(p.MinSamplesLeaf))
		}
		if p.Criterion != "" {
			opts = append(opts, WithCriterion(p.Criterion))
		}
		return NewDecisionTreeClassifier(opts...)
	}
}

var _ Classifier = (*DecisionTreeClassifier)(nil)
