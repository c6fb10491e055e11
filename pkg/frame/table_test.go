package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable(
		NewInt64("id", 1, 2, 3, 4),
		NewString("name", "ada", "bob", "cy", "dee"),
		NewFloat64("score", 0.5, 0.9, 0.1, 0.7),
	)
	require.NoError(t, err)
	return tbl
}

func TestNewTable(t *testing.T) {
	tests := []struct {
		name    string
		cols    []*Column
		wantErr error
	}{
		{
			name: "valid",
			cols: []*Column{NewInt64("a", 1), NewString("b", "x")},
		},
		{
			name: "empty",
		},
		{
			name:    "duplicate names",
			cols:    []*Column{NewInt64("a", 1), NewInt64("a", 2)},
			wantErr: types.ErrDuplicateColumn,
		},
		{
			name:    "length mismatch",
			cols:    []*Column{NewInt64("a", 1), NewInt64("b", 1, 2)},
			wantErr: types.ErrLengthMismatch,
		},
		{
			name:    "nil column",
			cols:    []*Column{nil},
			wantErr: types.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.cols...)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTableProjection(t *testing.T) {
	tbl := sampleTable(t)

	t.Run("select orders columns", func(t *testing.T) {
		got, err := tbl.Select("score", "id")
		require.NoError(t, err)
		assert.Equal(t, []string{"score", "id"}, got.Columns())
		assert.Equal(t, 4, got.Height())
	})

	t.Run("select unknown column", func(t *testing.T) {
		_, err := tbl.Select("nope")
		assert.ErrorIs(t, err, types.ErrColumnNotFound)
	})

	t.Run("drop", func(t *testing.T) {
		got, err := tbl.Drop("name")
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "score"}, got.Columns())
	})

	t.Run("rename", func(t *testing.T) {
		got, err := tbl.Rename(map[string]string{"name": "who"})
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "who", "score"}, got.Columns())
		assert.Equal(t, []string{"id", "name", "score"}, tbl.Columns())

		_, err = tbl.Rename(map[string]string{"name": "id"})
		assert.ErrorIs(t, err, types.ErrDuplicateColumn)
	})
}

func TestTableRows(t *testing.T) {
	tbl := sampleTable(t)

	t.Run("filter by row values", func(t *testing.T) {
		got := tbl.Filter(func(r Row) bool { return r.Float64("score") > 0.4 })
		require.Equal(t, 3, got.Height())
		v, err := got.Item(1, "name")
		require.NoError(t, err)
		assert.Equal(t, "bob", v)
	})

	t.Run("sort descending", func(t *testing.T) {
		got, err := tbl.Sort("score", true)
		require.NoError(t, err)
		col, err := got.Column("name")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob", "dee", "ada", "cy"}, col.Values())
	})

	t.Run("head tail slice", func(t *testing.T) {
		assert.Equal(t, 2, tbl.Head(2).Height())
		tail := tbl.Tail(1)
		v, err := tail.Item(0, "id")
		require.NoError(t, err)
		assert.Equal(t, int64(4), v)
		assert.Equal(t, 2, tbl.Slice(2, 5).Height())
	})

	t.Run("with row index", func(t *testing.T) {
		got, err := tbl.WithRowIndex("idx", 10)
		require.NoError(t, err)
		assert.Equal(t, "idx", got.Columns()[0])
		idx, err := got.Column("idx")
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 11, 12, 13}, idx.Values())

		_, err = tbl.WithRowIndex("id", 0)
		assert.ErrorIs(t, err, types.ErrDuplicateColumn)
	})

	t.Run("with columns replaces and appends", func(t *testing.T) {
		got, err := tbl.WithColumns(NewInt64("id", 9, 9, 9, 9), NewBool("ok", true, true, false, true))
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name", "score", "ok"}, got.Columns())
		v, err := got.Item(0, "id")
		require.NoError(t, err)
		assert.Equal(t, int64(9), v)

		_, err = tbl.WithColumns(NewInt64("short", 1))
		assert.ErrorIs(t, err, types.ErrLengthMismatch)
	})
}

func TestTableCombine(t *testing.T) {
	tbl := sampleTable(t)

	t.Run("vstack", func(t *testing.T) {
		got, err := tbl.VStack(tbl.Head(1), tbl.Tail(2))
		require.NoError(t, err)
		assert.Equal(t, 7, got.Height())

		_, err = tbl.VStack(MustTable(NewInt64("id", 1)))
		assert.ErrorIs(t, err, types.ErrSchemaMismatch)
	})

	t.Run("join", func(t *testing.T) {
		right := MustTable(
			NewInt64("id", 2, 4, 4, 7),
			NewString("name", "B", "D1", "D2", "G"),
		)
		got, err := tbl.Join(right, "id")
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name", "score", "name_right"}, got.Columns())
		col, err := got.Column("name_right")
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "D1", "D2"}, col.Values())

		_, err = tbl.Join(MustTable(NewString("id", "x")), "id")
		assert.ErrorIs(t, err, types.ErrTypeMismatch)
	})
}

func TestTablePipeAndApply(t *testing.T) {
	tbl := sampleTable(t)

	out := tbl.Pipe(func(t *Table) Value { return t.Head(1) })
	head, ok := out.(*Table)
	require.True(t, ok)
	assert.Equal(t, 1, head.Height())

	assert.Equal(t, 4, tbl.Apply(func(t *Table) any { return t.Height() }))
	assert.Nil(t, tbl.Pipe(func(*Table) Value { return nil }))
}

func TestTableGetColumnsAreCopies(t *testing.T) {
	tbl := sampleTable(t)
	a := tbl.GetColumns()
	b := tbl.GetColumns()
	require.Len(t, a, 3)
	for i := range a {
		assert.NotSame(t, a[i], b[i])
		assert.True(t, a[i].Equal(b[i]))
	}
}
