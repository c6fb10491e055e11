package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

func TestNewColumn(t *testing.T) {
	t.Run("int slice widens to int64", func(t *testing.T) {
		c, err := NewColumn("x", []int{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, Int64, c.DataType())
		assert.Equal(t, []int64{1, 2, 3}, c.Values())
	})

	t.Run("unsupported element type", func(t *testing.T) {
		_, err := NewColumn("x", []complex128{1})
		assert.ErrorIs(t, err, types.ErrUnsupportedType)
	})

	t.Run("constructor copies input", func(t *testing.T) {
		vals := []string{"a", "b"}
		c := NewString("s", vals...)
		vals[0] = "z"
		assert.Equal(t, "a", c.Value(0))
	})
}

func TestColumnOperations(t *testing.T) {
	c := NewInt64("n", 3, 1, 2, 5, 4)

	t.Run("head and tail clamp", func(t *testing.T) {
		assert.Equal(t, []int64{3, 1}, c.Head(2).Values())
		assert.Equal(t, []int64{5, 4}, c.Tail(2).Values())
		assert.Equal(t, 5, c.Head(100).Len())
		assert.Equal(t, 0, c.Head(-1).Len())
	})

	t.Run("slice", func(t *testing.T) {
		assert.Equal(t, []int64{1, 2}, c.Slice(1, 2).Values())
		assert.Equal(t, []int64{4}, c.Slice(4, 10).Values())
		assert.Equal(t, 0, c.Slice(9, 1).Len())
	})

	t.Run("sort ascending and descending", func(t *testing.T) {
		assert.Equal(t, []int64{1, 2, 3, 4, 5}, c.Sort(false).Values())
		assert.Equal(t, []int64{5, 4, 3, 2, 1}, c.Sort(true).Values())
	})

	t.Run("filter", func(t *testing.T) {
		got := c.Filter(func(v any) bool { return v.(int64) > 2 })
		assert.Equal(t, []int64{3, 5, 4}, got.Values())
	})

	t.Run("reverse and take", func(t *testing.T) {
		assert.Equal(t, []int64{4, 5, 2, 1, 3}, c.Reverse().Values())
		got, err := c.Take(4, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 3}, got.Values())
		_, err = c.Take(5)
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})

	t.Run("rename keeps values", func(t *testing.T) {
		r := c.Rename("m")
		assert.Equal(t, "m", r.Name())
		assert.Equal(t, "n", c.Name())
		assert.Equal(t, c.Values(), r.Values())
	})

	t.Run("every result is a new value", func(t *testing.T) {
		assert.NotSame(t, c, c.Clone())
		assert.NotSame(t, c, c.Head(5))
		assert.True(t, c.Equal(c.Clone()))
	})
}

func TestColumnAppend(t *testing.T) {
	a := NewString("s", "a")
	b := NewString("t", "b", "c")

	got, err := a.Append(b, a)
	require.NoError(t, err)
	assert.Equal(t, "s", got.Name())
	assert.Equal(t, []string{"a", "b", "c", "a"}, got.Values())

	_, err = a.Append(NewBool("b", true))
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestColumnToTable(t *testing.T) {
	c := NewBool("flag", true, false)
	tbl := c.ToTable()

	assert.Equal(t, []string{"flag"}, tbl.Columns())
	assert.Equal(t, 2, tbl.Height())

	back, err := tbl.Column("flag")
	require.NoError(t, err)
	assert.True(t, c.Equal(back))
	assert.NotSame(t, c, back)
}
