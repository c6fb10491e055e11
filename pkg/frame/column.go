package frame

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// Column is a named, typed, immutable sequence of values.
type Column struct {
	name  string
	dtype DataType
	data  any // []int64 | []float64 | []string | []bool
}

func (*Column) frameValue() {}

// Kind returns KindColumn.
func (*Column) Kind() Kind { return KindColumn }

// NewInt64 creates an int64 column.
func NewInt64(name string, vals ...int64) *Column {
	return &Column{name: name, dtype: Int64, data: slices.Clone(nonNil(vals))}
}

// NewFloat64 creates a float64 column.
func NewFloat64(name string, vals ...float64) *Column {
	return &Column{name: name, dtype: Float64, data: slices.Clone(nonNil(vals))}
}

// NewString creates a string column.
func NewString(name string, vals ...string) *Column {
	return &Column{name: name, dtype: String, data: slices.Clone(nonNil(vals))}
}

// NewBool creates a bool column.
func NewBool(name string, vals ...bool) *Column {
	return &Column{name: name, dtype: Bool, data: slices.Clone(nonNil(vals))}
}

// NewColumn creates a column from a slice of int64, int, float64, string or
// bool. Other element types return ErrUnsupportedType.
func NewColumn(name string, values any) (*Column, error) {
	switch v := values.(type) {
	case []int64:
		return NewInt64(name, v...), nil
	case []int:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return &Column{name: name, dtype: Int64, data: out}, nil
	case []float64:
		return NewFloat64(name, v...), nil
	case []string:
		return NewString(name, v...), nil
	case []bool:
		return NewBool(name, v...), nil
	}
	return nil, fmt.Errorf("%w: %T", types.ErrUnsupportedType, values)
}

func nonNil[T any](vals []T) []T {
	if vals == nil {
		return []T{}
	}
	return vals
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// DataType returns the element type.
func (c *Column) DataType() DataType { return c.dtype }

// Len returns the number of values.
func (c *Column) Len() int {
	switch d := c.data.(type) {
	case []int64:
		return len(d)
	case []float64:
		return len(d)
	case []string:
		return len(d)
	case []bool:
		return len(d)
	}
	return 0
}

// Value returns the i-th value. It panics if i is out of range.
func (c *Column) Value(i int) any {
	switch d := c.data.(type) {
	case []int64:
		return d[i]
	case []float64:
		return d[i]
	case []string:
		return d[i]
	case []bool:
		return d[i]
	}
	return nil
}

// Values returns a copy of the underlying slice.
func (c *Column) Values() any {
	switch d := c.data.(type) {
	case []int64:
		return slices.Clone(d)
	case []float64:
		return slices.Clone(d)
	case []string:
		return slices.Clone(d)
	case []bool:
		return slices.Clone(d)
	}
	return nil
}

// Equal reports whether other has the same name, type and values.
func (c *Column) Equal(other *Column) bool {
	if other == nil || c.name != other.name || c.dtype != other.dtype {
		return false
	}
	switch d := c.data.(type) {
	case []int64:
		return slices.Equal(d, other.data.([]int64))
	case []float64:
		return slices.Equal(d, other.data.([]float64))
	case []string:
		return slices.Equal(d, other.data.([]string))
	case []bool:
		return slices.Equal(d, other.data.([]bool))
	}
	return false
}

// Rename returns a copy of the column under a new name.
func (c *Column) Rename(name string) *Column {
	out := c.alias()
	out.name = name
	return emit("Rename", c, out)
}

// Head returns the first n values.
func (c *Column) Head(n int) *Column {
	return emit("Head", c, c.head(n))
}

// Tail returns the last n values.
func (c *Column) Tail(n int) *Column {
	return emit("Tail", c, c.tail(n))
}

// Slice returns length values starting at offset, clamped to the column.
func (c *Column) Slice(offset, length int) *Column {
	return emit("Slice", c, c.slice(offset, length))
}

// Filter keeps the values for which keep returns true.
func (c *Column) Filter(keep func(v any) bool) *Column {
	var idx []int
	for i := 0; i < c.Len(); i++ {
		if keep(c.Value(i)) {
			idx = append(idx, i)
		}
	}
	return emit("Filter", c, c.take(idx))
}

// Sort returns the values in ascending order, or descending if requested.
// The sort is stable.
func (c *Column) Sort(descending bool) *Column {
	return emit("Sort", c, c.take(c.order(descending)))
}

// Reverse returns the values in reverse order.
func (c *Column) Reverse() *Column {
	n := c.Len()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = n - 1 - i
	}
	return emit("Reverse", c, c.take(idx))
}

// Take returns the values at the given positions, in that order.
func (c *Column) Take(indices ...int) (*Column, error) {
	for _, i := range indices {
		if i < 0 || i >= c.Len() {
			return nil, fmt.Errorf("%w: index %d out of range [0, %d)", types.ErrInvalidArgument, i, c.Len())
		}
	}
	return emit("Take", c, c.take(indices)), nil
}

// Append returns a column holding c's values followed by each of others'.
// All columns must share c's data type; the result keeps c's name.
func (c *Column) Append(others ...*Column) (*Column, error) {
	out, err := c.concat(others)
	if err != nil {
		return nil, err
	}
	return emit("Append", c, out, valuesOf(others)...), nil
}

// Clone returns a copy of the column with its own identity.
func (c *Column) Clone() *Column {
	return emit("Clone", c, c.alias())
}

// ToTable returns a single-column table holding c.
func (c *Column) ToTable() *Table {
	t := &Table{cols: []*Column{c.alias()}, height: c.Len()}
	return emit("ToTable", c, t)
}

// alias returns a new Column sharing c's immutable data.
func (c *Column) alias() *Column {
	return &Column{name: c.name, dtype: c.dtype, data: c.data}
}

func (c *Column) head(n int) *Column {
	return c.slice(0, n)
}

func (c *Column) tail(n int) *Column {
	l := c.Len()
	if n > l {
		n = l
	}
	return c.slice(l-n, n)
}

func (c *Column) slice(offset, length int) *Column {
	l := c.Len()
	lo := clamp(offset, 0, l)
	hi := clamp(lo+max(length, 0), lo, l)
	out := &Column{name: c.name, dtype: c.dtype}
	switch d := c.data.(type) {
	case []int64:
		out.data = slices.Clone(d[lo:hi])
	case []float64:
		out.data = slices.Clone(d[lo:hi])
	case []string:
		out.data = slices.Clone(d[lo:hi])
	case []bool:
		out.data = slices.Clone(d[lo:hi])
	}
	return out
}

func (c *Column) take(idx []int) *Column {
	out := &Column{name: c.name, dtype: c.dtype}
	switch d := c.data.(type) {
	case []int64:
		out.data = gather(d, idx)
	case []float64:
		out.data = gather(d, idx)
	case []string:
		out.data = gather(d, idx)
	case []bool:
		out.data = gather(d, idx)
	}
	return out
}

func (c *Column) concat(others []*Column) (*Column, error) {
	out := &Column{name: c.name, dtype: c.dtype}
	for _, o := range others {
		if o.dtype != c.dtype {
			return nil, fmt.Errorf("%w: cannot append %s column %q to %s column %q",
				types.ErrTypeMismatch, o.dtype, o.name, c.dtype, c.name)
		}
	}
	switch d := c.data.(type) {
	case []int64:
		out.data = concatData(d, others)
	case []float64:
		out.data = concatData(d, others)
	case []string:
		out.data = concatData(d, others)
	case []bool:
		out.data = concatData(d, others)
	}
	return out, nil
}

// order returns the stable sort permutation of c.
func (c *Column) order(descending bool) []int {
	idx := make([]int, c.Len())
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		r := c.compare(a, b)
		if descending {
			return -r
		}
		return r
	})
	return idx
}

func (c *Column) compare(i, j int) int {
	switch d := c.data.(type) {
	case []int64:
		return cmp.Compare(d[i], d[j])
	case []float64:
		return cmp.Compare(d[i], d[j])
	case []string:
		return cmp.Compare(d[i], d[j])
	case []bool:
		return compareBool(d[i], d[j])
	}
	return 0
}

// key returns a comparable representation of the i-th value for joins.
func (c *Column) key(i int) any {
	return c.Value(i)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func gather[T any](vals []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = vals[j]
	}
	return out
}

func concatData[T any](first []T, others []*Column) []T {
	n := len(first)
	for _, o := range others {
		n += o.Len()
	}
	out := make([]T, 0, n)
	out = append(out, first...)
	for _, o := range others {
		out = append(out, o.data.([]T)...)
	}
	return out
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
