package dataprep_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventml/pkg/dataprep"
	"eventml/pkg/frame"
)

func TestExtractDate(t *testing.T) {
	// 2024-03-04 is a Monday in ISO week 10
	f := frame.MustNew(
		frame.MustColumn("date", frame.Datetime, time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC), nil),
		frame.MustColumn("v", frame.Numeric, 1.0, 2.0),
	)
	fields := []string{"dayofweek", "dayofyear", "weekofyear", "monthofyear", "year", "dayofmonth", "fortnight"}
	out, err := dataprep.ExtractDate(f, fields, "date")
	require.NoError(t, err)

	assert.False(t, out.Has("date"))
	assert.False(t, out.Has("fortnight"))
	want := map[string]float64{"dayofweek": 0, "dayofyear": 64, "weekofyear": 10, "monthofyear": 3, "year": 2024, "dayofmonth": 4}
	for name, v := range want {
		col, err := out.Column(name)
		require.NoError(t, err, name)
		got := col.Floats()
		assert.Equal(t, v, got[0], name)
		assert.True(t, math.IsNaN(got[1]), name)
	}
}

func TestExtractDate_DropsWithoutFields(t *testing.T) {
	f := frame.MustNew(frame.MustColumn("date", frame.Datetime, time.Now()))
	out, err := dataprep.ExtractDate(f, nil, "date")
	require.NoError(t, err)
	assert.Empty(t, out.Columns())

	_, err = dataprep.ExtractDate(f, nil, "when")
	assert.ErrorIs(t, err, frame.ErrSchemaMissing)
}

func TestExtractTime(t *testing.T) {
	f := frame.MustNew(frame.MustColumn("time", frame.String, "09:15:00", "23:59:59", nil))
	out, err := dataprep.ExtractTime(f, []string{"hour", "minute", "second"}, "time", "%H:%M:%S")
	require.NoError(t, err)

	assert.Equal(t, []string{"hour", "minute"}, out.Columns())
	hour, _ := out.Column("hour")
	minute, _ := out.Column("minute")
	assert.Equal(t, []float64{9, 23}, hour.Floats()[:2])
	assert.Equal(t, []float64{15, 59}, minute.Floats()[:2])
	assert.True(t, hour.IsMissing(2))
}

func TestExtractTime_BadValue(t *testing.T) {
	f := frame.MustNew(frame.MustColumn("time", frame.String, "noon"))
	_, err := dataprep.ExtractTime(f, []string{"hour"}, "time", "")
	assert.ErrorIs(t, err, frame.ErrTypeMismatch)

	// nothing requested: the column is only dropped
	out, err := dataprep.ExtractTime(f, nil, "time", "")
	require.NoError(t, err)
	assert.False(t, out.Has("time"))
}

func TestStrftimeLayout(t *testing.T) {
	assert.Equal(t, "15:04:05", dataprep.StrftimeLayout("%H:%M:%S"))
	assert.Equal(t, "2006-01-02 15:04:05.000000", dataprep.StrftimeLayout("%Y-%m-%d %H:%M:%S.%f"))
	assert.Equal(t, "15:04", dataprep.StrftimeLayout("15:04"))
}
