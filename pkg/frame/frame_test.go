package frame_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventml/pkg/frame"
)

func sample(t *testing.T) frame.Frame {
	t.Helper()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return frame.MustNew(
		frame.MustColumn("user", frame.String, "b", "a", "b", nil),
		frame.MustColumn("date", frame.Datetime, day.Add(48*time.Hour), day.Add(24*time.Hour), day, day),
		frame.MustColumn("amount", frame.Numeric, 1.0, 2, math.NaN(), 4.0),
	)
}

func TestNew_RejectsRaggedColumns(t *testing.T) {
	_, err := frame.New(
		frame.MustColumn("a", frame.Numeric, 1.0, 2.0),
		frame.MustColumn("b", frame.Numeric, 1.0),
	)
	assert.ErrorIs(t, err, frame.ErrLength)

	_, err = frame.New(
		frame.MustColumn("a", frame.Numeric, 1.0),
		frame.MustColumn("a", frame.Numeric, 1.0),
	)
	assert.ErrorIs(t, err, frame.ErrDuplicateColumn)
}

func TestNewColumn_TypeMismatch(t *testing.T) {
	_, err := frame.NewColumn("a", frame.Numeric, []any{"x"})
	assert.ErrorIs(t, err, frame.ErrTypeMismatch)
}

func TestColumn_Missing(t *testing.T) {
	f := sample(t)
	amount, err := f.Column("amount")
	require.NoError(t, err)

	assert.True(t, amount.IsMissing(2))
	assert.Nil(t, amount.At(2))
	v, ok := amount.Float(1)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, err = f.Column("nope")
	assert.ErrorIs(t, err, frame.ErrSchemaMissing)
}

func TestSortBy_EntityThenTime(t *testing.T) {
	f := sample(t)
	sorted, err := f.SortBy("user", "date")
	require.NoError(t, err)

	// missing entity sorts last; original positions travel with the rows
	assert.Equal(t, []int{1, 2, 0, 3}, sorted.Index())
	user, _ := sorted.Column("user")
	got := []any{user.At(0), user.At(1), user.At(2), user.At(3)}
	assert.Equal(t, []any{"a", "b", "b", nil}, got)

	// source frame untouched
	assert.Equal(t, []int{0, 1, 2, 3}, f.Index())
}

func TestWithAndDrop_DoNotMutateSource(t *testing.T) {
	f := sample(t)
	g, err := f.With(frame.NewNumeric("extra", []float64{1, 2, 3, 4}))
	require.NoError(t, err)
	g = g.Drop("amount")

	assert.Equal(t, []string{"user", "date", "amount"}, f.Columns())
	assert.Equal(t, []string{"user", "date", "extra"}, g.Columns())

	replaced, err := g.With(frame.NewStrings("user", []string{"w", "x", "y", "z"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "date", "extra"}, replaced.Columns())

	_, err = f.With(frame.NewNumeric("short", []float64{1}))
	assert.ErrorIs(t, err, frame.ErrLength)
}

func TestFilter_PreservesOrderAndIndex(t *testing.T) {
	f := sample(t)
	amount, _ := f.Column("amount")
	kept := f.Filter(func(i int) bool { return !amount.IsMissing(i) })

	assert.Equal(t, 3, kept.Len())
	assert.Equal(t, []int{0, 1, 3}, kept.Index())
}

func TestMatrix(t *testing.T) {
	f := sample(t)
	X, err := f.Matrix([]string{"amount"})
	require.NoError(t, err)
	require.Len(t, X, 4)
	assert.Equal(t, 1.0, X[0][0])
	assert.True(t, math.IsNaN(X[2][0]))

	_, err = f.Matrix([]string{"user"})
	assert.ErrorIs(t, err, frame.ErrTypeMismatch)
}

func TestSchemaValidate(t *testing.T) {
	assert.ErrorIs(t, frame.Schema{}.Validate(), frame.ErrSchemaEmpty)

	dup := frame.Schema{Fields: []frame.Field{{Name: "a"}, {Name: "a"}}}
	assert.ErrorIs(t, dup.Validate(), frame.ErrDuplicateColumn)

	ok := frame.Schema{Fields: []frame.Field{{Name: "a", Kind: frame.Numeric}, {Name: "b", Kind: frame.String}}}
	assert.NoError(t, ok.Validate())
	assert.Equal(t, []string{"a", "b"}, ok.Names())
}

func TestParseKind(t *testing.T) {
	k, err := frame.ParseKind("Float")
	require.NoError(t, err)
	assert.Equal(t, frame.Numeric, k)

	_, err = frame.ParseKind("tensor")
	assert.ErrorIs(t, err, frame.ErrTypeMismatch)
}
