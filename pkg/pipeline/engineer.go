package pipeline

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"eventml/pkg/config"
	"eventml/pkg/dataprep"
	"eventml/pkg/frame"
)

// FeatureEngineer turns a loaded event table into a numeric feature table
// in a fixed order: period filter (labeled tables only), splits,
// expansions, categorical encoding, date then time features, label
// remapping.
type FeatureEngineer struct {
	cfg     config.Features
	logger  *zap.Logger
	encoder *dataprep.Encoder
}

func NewFeatureEngineer(cfg config.Features, logger *zap.Logger) *FeatureEngineer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeatureEngineer{cfg: cfg, logger: logger}
}

// WithEncoder makes the categorical step apply enc instead of encoding
// each table on its own.
func (e *FeatureEngineer) WithEncoder(enc *dataprep.Encoder) *FeatureEngineer {
	e.encoder = enc
	return e
}

// Encoder returns the shared encoder, if one was set or fitted.
func (e *FeatureEngineer) Encoder() *dataprep.Encoder { return e.encoder }

// Labeled reports whether f carries the target column.
func (e *FeatureEngineer) Labeled(f frame.Frame) bool { return f.Has(e.cfg.TargetCol) }

// Pipeline builds the steps for f. With SharedEncoder set and no encoder
// yet, the categorical step fits one on the frame it receives.
func (e *FeatureEngineer) Pipeline(f frame.Frame) (*Pipeline, error) {
	labeled := e.Labeled(f)
	var steps []Step

	if labeled {
		after, before, err := e.cfg.ExcludeBounds()
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{Name: "exclude_periods", Apply: func(f frame.Frame) (frame.Frame, error) {
			return dataprep.ExcludePeriods(f, e.cfg.DateCol, after, before)
		}})
	}
	for _, rule := range e.cfg.ColToSplit {
		steps = append(steps, Step{Name: "split:" + rule.Column, Apply: func(f frame.Frame) (frame.Frame, error) {
			return dataprep.Split(f, rule)
		}})
	}
	for _, col := range e.cfg.ColToExpand {
		schema, err := e.cfg.SchemaFor(col)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{Name: "expand:" + col, Apply: func(f frame.Frame) (frame.Frame, error) {
			return dataprep.Expand(f, col, schema)
		}})
	}
	steps = append(steps,
		Step{Name: "encode", Apply: e.encode},
		Step{Name: "date_features", Apply: func(f frame.Frame) (frame.Frame, error) {
			return dataprep.ExtractDate(f, e.cfg.DateFeatures, e.cfg.DateCol)
		}},
		Step{Name: "time_features", Apply: e.timeFeatures},
	)
	if labeled {
		steps = append(steps, Step{Name: "remap_label", Apply: func(f frame.Frame) (frame.Frame, error) {
			return dataprep.RemapLabel(f, e.cfg.TargetCol, e.cfg.CatchID)
		}})
	}
	return NewPipeline(e.logger, steps...), nil
}

// Transform runs the full feature pipeline over f.
func (e *FeatureEngineer) Transform(f frame.Frame) (frame.Frame, error) {
	p, err := e.Pipeline(f)
	if err != nil {
		return frame.Frame{}, err
	}
	out, err := p.Run(f)
	if err != nil {
		return frame.Frame{}, err
	}
	e.logger.Info("features engineered",
		zap.Bool("labeled", e.Labeled(f)),
		zap.Int("rows_in", f.Len()),
		zap.Int("rows_out", out.Len()),
		zap.Strings("columns", out.Columns()),
	)
	return out, nil
}

func (e *FeatureEngineer) encode(f frame.Frame) (frame.Frame, error) {
	if !e.cfg.SharedEncoder && e.encoder == nil {
		return dataprep.Encode(f, e.cfg.CategoricalColumns)
	}
	if e.encoder == nil {
		enc, err := dataprep.FitEncoder(f, e.cfg.CategoricalColumns)
		if err != nil {
			return frame.Frame{}, err
		}
		e.encoder = enc
	}
	return e.encoder.Transform(f)
}

// timeFeatures skips a table that has no clock column when no clock field
// is requested.
func (e *FeatureEngineer) timeFeatures(f frame.Frame) (frame.Frame, error) {
	if !f.Has(e.cfg.TimeCol) && len(e.cfg.TimeFeatures) == 0 {
		return f, nil
	}
	return dataprep.ExtractTime(f, e.cfg.TimeFeatures, e.cfg.TimeCol, e.cfg.TimeFormat)
}

// FeatureNames lists the columns of f used as model inputs: all but the
// target and entity columns.
func (e *FeatureEngineer) FeatureNames(f frame.Frame) []string {
	return slices.DeleteFunc(f.Columns(), func(n string) bool {
		return n == e.cfg.TargetCol || n == e.cfg.IDCol
	})
}

// Matrix extracts the named features of f. The labels are returned when
// f carries the target column, nil otherwise.
func (e *FeatureEngineer) Matrix(f frame.Frame, names []string) ([][]float64, []int, error) {
	X, err := f.Matrix(names)
	if err != nil {
		return nil, nil, err
	}
	if !e.Labeled(f) {
		return X, nil, nil
	}
	col, err := f.Column(e.cfg.TargetCol)
	if err != nil {
		return nil, nil, err
	}
	y := make([]int, col.Len())
	for i := range y {
		v, ok := col.Float(i)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q row %d has no label", frame.ErrTypeMismatch, e.cfg.TargetCol, i)
		}
		y[i] = int(v)
	}
	return X, y, nil
}
