package pipeline_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"eventml/pkg/config"
	"eventml/pkg/dataprep"
	"eventml/pkg/frame"
	"eventml/pkg/pipeline"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func trainFrame() frame.Frame {
	return frame.MustNew(
		frame.MustColumn("user_id", frame.Numeric, 1.0, 1.0, 2.0, 2.0),
		frame.MustColumn("date", frame.Datetime, day(4), day(5), day(6), day(7)),
		frame.MustColumn("time", frame.String, "09:00:00", "10:30:00", "11:00:00", "12:00:00"),
		frame.MustColumn("locale", frame.String, "en_US", "en-GB", "fr", "de-DE"),
		frame.MustColumn("info", frame.Bag,
			map[string]any{"os": "ios", "score": 1.0},
			map[string]any{"os": "web", "score": 3.0},
			map[string]any{"os": "web"},
			map[string]any{"os": "tv", "score": 9.0},
		),
		frame.MustColumn("event", frame.String, "purchase", "view", "purchase", "view"),
	)
}

func testFrame() frame.Frame {
	return frame.MustNew(
		frame.MustColumn("user_id", frame.Numeric, 3.0),
		frame.MustColumn("date", frame.Datetime, day(8)),
		frame.MustColumn("time", frame.String, "12:15:00"),
		frame.MustColumn("locale", frame.String, "de_DE"),
		frame.MustColumn("info", frame.Bag, map[string]any{"os": "tv", "score": 5.0}),
	)
}

func features() config.Features {
	return config.Features{
		TargetCol:          "event",
		CatchID:            "purchase",
		IDCol:              "user_id",
		DateCol:            "date",
		TimeCol:            "time",
		TimeFormat:         "%H:%M:%S",
		ColToSplit:         []dataprep.SplitRule{{Column: "locale"}},
		ColToExpand:        []string{"info"},
		CategoricalColumns: []string{"locale_lang", "locale_country", "os"},
		DateFeatures:       []string{"dayofweek"},
		TimeFeatures:       []string{"hour"},
		ExcludeDates:       config.ExcludeDates{ExcludeAfter: "2024-03-07"},
	}
}

func floats(t *testing.T, f frame.Frame, name string) []float64 {
	t.Helper()
	c, err := f.Column(name)
	require.NoError(t, err)
	return c.Floats()
}

func TestFeatureEngineer_StepOrder(t *testing.T) {
	e := pipeline.NewFeatureEngineer(features(), zaptest.NewLogger(t))

	p, err := e.Pipeline(trainFrame())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"exclude_periods", "split:locale", "expand:info", "encode",
		"date_features", "time_features", "remap_label",
	}, p.Names())

	p, err = e.Pipeline(testFrame())
	require.NoError(t, err)
	assert.Equal(t, []string{"split:locale", "expand:info", "encode", "date_features", "time_features"}, p.Names())
}

func TestFeatureEngineer_Train(t *testing.T) {
	e := pipeline.NewFeatureEngineer(features(), zaptest.NewLogger(t))
	out, err := e.Transform(trainFrame())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, out.Index())
	assert.Equal(t, []string{
		"user_id", "event", "locale_lang", "locale_country", "os", "score", "dayofweek", "hour",
	}, out.Columns())

	assert.Equal(t, []float64{0, 1, 0}, floats(t, out, "event"))
	assert.Equal(t, []float64{0, 0, 1}, floats(t, out, "locale_lang"))
	assert.Equal(t, []float64{1, 0, 2}, floats(t, out, "locale_country"))
	assert.Equal(t, []float64{0, 1, 1}, floats(t, out, "os"))
	assert.Equal(t, []float64{1, 3, 2}, floats(t, out, "score"))
	assert.Equal(t, []float64{0, 1, 2}, floats(t, out, "dayofweek"))
	assert.Equal(t, []float64{9, 10, 11}, floats(t, out, "hour"))

	names := e.FeatureNames(out)
	assert.Equal(t, []string{"locale_lang", "locale_country", "os", "score", "dayofweek", "hour"}, names)
	X, y, err := e.Matrix(out, names)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, y)
	assert.Equal(t, []float64{0, 1, 0, 1, 0, 9}, X[0])
}

func TestFeatureEngineer_Test(t *testing.T) {
	e := pipeline.NewFeatureEngineer(features(), zaptest.NewLogger(t))
	out, err := e.Transform(testFrame())
	require.NoError(t, err)
	assert.False(t, out.Has("event"))
	assert.Equal(t, []float64{0}, floats(t, out, "os"))

	X, y, err := e.Matrix(out, []string{"os", "score", "hour"})
	require.NoError(t, err)
	assert.Nil(t, y)
	assert.Equal(t, [][]float64{{0, 5, 12}}, X)

	_, _, err = e.Matrix(out, []string{"browser"})
	assert.ErrorIs(t, err, frame.ErrSchemaMissing)
}

func TestFeatureEngineer_SharedEncoder(t *testing.T) {
	cfg := features()
	cfg.SharedEncoder = true
	e := pipeline.NewFeatureEngineer(cfg, zaptest.NewLogger(t))

	_, err := e.Transform(trainFrame())
	require.NoError(t, err)
	require.NotNil(t, e.Encoder())
	assert.Equal(t, []string{"ios", "web"}, e.Encoder().Classes["os"])

	out, err := e.Transform(testFrame())
	require.NoError(t, err)
	os, _ := out.Column("os")
	assert.True(t, os.IsMissing(0), "tv was not seen in training")
	lang, _ := out.Column("locale_lang")
	assert.True(t, lang.IsMissing(0))
}

func TestFeatureEngineer_StageError(t *testing.T) {
	cfg := features()
	cfg.ColToSplit = []dataprep.SplitRule{{Column: "device", Delimiter: "/"}}
	e := pipeline.NewFeatureEngineer(cfg, zaptest.NewLogger(t))

	_, err := e.Transform(trainFrame())
	require.ErrorIs(t, err, frame.ErrSchemaMissing)
	var stage *pipeline.StageError
	require.True(t, errors.As(err, &stage))
	assert.Equal(t, "split:device", stage.Stage)
	assert.Equal(t, "exclude_periods", stage.Completed)
}

func TestPipeline_Run(t *testing.T) {
	boom := errors.New("boom")
	var seen []string
	step := func(name string, err error) pipeline.Step {
		return pipeline.Step{Name: name, Apply: func(f frame.Frame) (frame.Frame, error) {
			seen = append(seen, name)
			return f, err
		}}
	}
	p := pipeline.NewPipeline(nil, step("a", nil), step("b", boom), step("c", nil))
	_, err := p.Run(trainFrame())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.EqualError(t, err, "stage b: boom")
}
