package data_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventml/pkg/data"
	"eventml/pkg/frame"
)

const events = `[
	{"user_id": "u2", "date": "2024-01-03", "time": "10:00:00", "info": {"os": "ios", "score": 3}},
	{"user_id": "u1", "date": "2024-01-02", "time": "11:30:00", "info": {"os": "android", "score": 1}},
	{"user_id": "u1", "date": "2024-01-01", "time": "09:15:00", "info": {"os": "ios", "score": 2}}
]`

func TestReadJSON_SortsByEntityThenTime(t *testing.T) {
	f, err := data.ReadJSON(strings.NewReader(events), "user_id", "date")
	require.NoError(t, err)

	assert.Equal(t, []string{"user_id", "date", "time", "info"}, f.Columns())
	assert.Equal(t, []int{2, 1, 0}, f.Index())

	date, err := f.Column("date")
	require.NoError(t, err)
	assert.Equal(t, frame.Datetime, date.Kind())
	first, ok := date.Time(0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first)

	info, _ := f.Column("info")
	assert.Equal(t, frame.Bag, info.Kind())
}

func TestReadJSON_SortsByTimeWithoutEntity(t *testing.T) {
	f, err := data.ReadJSON(strings.NewReader(events), "missing_id", "date")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, f.Index())

	user, _ := f.Column("user_id")
	got := []any{user.At(0), user.At(1), user.At(2)}
	assert.Equal(t, []any{"u1", "u1", "u2"}, got)
}

func TestReadJSON_NewlineDelimited(t *testing.T) {
	src := `{"date": "2024-01-02T10:00:00Z", "v": 1}
{"date": "2024-01-01T10:00:00Z", "v": "x"}`
	f, err := data.ReadJSON(strings.NewReader(src), "", "date")
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())

	// mixed values degrade to strings
	v, _ := f.Column("v")
	assert.Equal(t, frame.String, v.Kind())
	s, _ := v.Str(1)
	assert.Equal(t, "1", s)
}

func TestReadJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{name: "not json", src: "date,user\n", want: data.ErrUnreadable},
		{name: "scalar", src: `42`, want: data.ErrUnreadable},
		{name: "array of scalars", src: `[1, 2]`, want: data.ErrUnreadable},
		{name: "truncated", src: `[{"date": "2024-01-01"`, want: data.ErrUnreadable},
		{name: "bad timestamp", src: `[{"date": "yesterday"}]`, want: data.ErrUnreadable},
		{name: "no time column", src: `[{"when": "2024-01-01"}]`, want: frame.ErrSchemaMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := data.ReadJSON(strings.NewReader(tt.src), "", "date")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadJSONFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.json"), []byte(events), 0o644))

	f, err := data.ReadJSONFile(dir, "train.json", "user_id", "date")
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())

	_, err = data.ReadJSONFile(dir, "absent.json", "user_id", "date")
	assert.ErrorIs(t, err, data.ErrUnreadable)
}
