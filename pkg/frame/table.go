package frame

import (
	"context"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// Table is an eager, immutable table of equal-length columns.
type Table struct {
	cols   []*Column
	height int
}

func (*Table) frameValue() {}

// Kind returns KindTable.
func (*Table) Kind() Kind { return KindTable }

// NewTable builds a table from columns. Names must be unique and all
// columns must have the same length. The table keeps its own column
// handles, so later changes to the caller's column identities (metadata,
// for instance) do not reach it.
func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{cols: make([]*Column, 0, len(cols))}
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("%w: column %d is nil", types.ErrInvalidArgument, i)
		}
		if seen[c.name] {
			return nil, fmt.Errorf("%w: %q", types.ErrDuplicateColumn, c.name)
		}
		seen[c.name] = true
		if i == 0 {
			t.height = c.Len()
		} else if c.Len() != t.height {
			return nil, fmt.Errorf("%w: column %q has %d values, want %d",
				types.ErrLengthMismatch, c.name, c.Len(), t.height)
		}
		t.cols = append(t.cols, c.alias())
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. Intended for tests and
// literals.
func MustTable(cols ...*Column) *Table {
	t, err := NewTable(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Height returns the number of rows.
func (t *Table) Height() int { return t.height }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.name
	}
	return names
}

// Schema returns the name and type of every column.
func (t *Table) Schema() []Field {
	fields := make([]Field, len(t.cols))
	for i, c := range t.cols {
		fields[i] = Field{Name: c.name, Type: c.dtype}
	}
	return fields
}

// Item returns the value at (row, column).
func (t *Table) Item(row int, name string) (any, error) {
	c, err := t.lookup(name)
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= t.height {
		return nil, fmt.Errorf("%w: row %d out of range [0, %d)", types.ErrInvalidArgument, row, t.height)
	}
	return c.Value(row), nil
}

// GetColumns returns every column as a new Column value.
func (t *Table) GetColumns() []*Column {
	out := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.alias()
	}
	return out
}

// Equal reports whether other has the same columns in the same order.
func (t *Table) Equal(other *Table) bool {
	if other == nil || t.height != other.height || len(t.cols) != len(other.cols) {
		return false
	}
	for i, c := range t.cols {
		if !c.Equal(other.cols[i]) {
			return false
		}
	}
	return true
}

// Column extracts the named column.
func (t *Table) Column(name string) (*Column, error) {
	c, err := t.lookup(name)
	if err != nil {
		return nil, err
	}
	return emit("Column", t, c.alias()), nil
}

// Select returns a table holding only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	out, err := t.selectCols(names)
	if err != nil {
		return nil, err
	}
	return emit("Select", t, out), nil
}

// Drop returns a table without the named columns.
func (t *Table) Drop(names ...string) (*Table, error) {
	out, err := t.drop(names)
	if err != nil {
		return nil, err
	}
	return emit("Drop", t, out), nil
}

// Rename returns a table with columns renamed per mapping (old -> new).
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	out, err := t.rename(mapping)
	if err != nil {
		return nil, err
	}
	return emit("Rename", t, out), nil
}

// Filter keeps the rows for which pred returns true.
func (t *Table) Filter(pred func(Row) bool) *Table {
	return emit("Filter", t, t.filter(pred))
}

// Sort orders rows by the named column. The sort is stable.
func (t *Table) Sort(by string, descending bool) (*Table, error) {
	out, err := t.sortBy(by, descending)
	if err != nil {
		return nil, err
	}
	return emit("Sort", t, out), nil
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	return emit("Head", t, t.slice(0, n))
}

// Tail returns the last n rows.
func (t *Table) Tail(n int) *Table {
	return emit("Tail", t, t.tail(n))
}

// Slice returns length rows starting at offset, clamped to the table.
func (t *Table) Slice(offset, length int) *Table {
	return emit("Slice", t, t.slice(offset, length))
}

// WithColumns adds columns, replacing existing columns of the same name in
// place. Each column must match the table height unless the table has no
// columns yet.
func (t *Table) WithColumns(cols ...*Column) (*Table, error) {
	out, err := t.withColumns(cols)
	if err != nil {
		return nil, err
	}
	return emit("WithColumns", t, out), nil
}

// WithRowIndex prepends an int64 column counting rows from offset.
func (t *Table) WithRowIndex(name string, offset int64) (*Table, error) {
	out, err := t.withRowIndex(name, offset)
	if err != nil {
		return nil, err
	}
	return emit("WithRowIndex", t, out), nil
}

// Clone returns a copy of the table with its own identity.
func (t *Table) Clone() *Table {
	return emit("Clone", t, t.clone())
}

// VStack returns t's rows followed by the rows of each of others. All
// tables must have the same schema.
func (t *Table) VStack(others ...*Table) (*Table, error) {
	out, err := t.vstack(others)
	if err != nil {
		return nil, err
	}
	return emit("VStack", t, out, valuesOf(others)...), nil
}

// Join performs an inner join with other on the named key column. Rows keep
// t's order; for each, matching rows of other follow in their order.
// Non-key columns of other whose names collide with t get a "_right" suffix.
func (t *Table) Join(other *Table, on string) (*Table, error) {
	out, err := t.join(other, on)
	if err != nil {
		return nil, err
	}
	return emit("Join", t, out, other), nil
}

// Lazy returns a plan whose source is t.
func (t *Table) Lazy() *Plan {
	return emit("Lazy", t, newPlan("table", func(context.Context) (*Table, error) { return t, nil }))
}

// Pipe calls fn with t and returns its result.
func (t *Table) Pipe(fn func(*Table) Value) Value {
	out := fn(t)
	if out == nil {
		return nil
	}
	return emit("Pipe", t, out)
}

// Apply calls fn with t and returns whatever it returns.
func (t *Table) Apply(fn func(*Table) any) any {
	return fn(t)
}

func (t *Table) lookup(name string) (*Column, error) {
	for _, c := range t.cols {
		if c.name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", types.ErrColumnNotFound, name)
}

func (t *Table) index(name string) int {
	for i, c := range t.cols {
		if c.name == name {
			return i
		}
	}
	return -1
}

func (t *Table) selectCols(names []string) (*Table, error) {
	out := &Table{cols: make([]*Column, 0, len(names)), height: t.height}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, fmt.Errorf("%w: %q", types.ErrDuplicateColumn, n)
		}
		seen[n] = true
		c, err := t.lookup(n)
		if err != nil {
			return nil, err
		}
		out.cols = append(out.cols, c)
	}
	if len(out.cols) == 0 {
		out.height = 0
	}
	return out, nil
}

func (t *Table) drop(names []string) (*Table, error) {
	gone := make(map[string]bool, len(names))
	for _, n := range names {
		if t.index(n) < 0 {
			return nil, fmt.Errorf("%w: %q", types.ErrColumnNotFound, n)
		}
		gone[n] = true
	}
	out := &Table{height: t.height}
	for _, c := range t.cols {
		if !gone[c.name] {
			out.cols = append(out.cols, c)
		}
	}
	if len(out.cols) == 0 {
		out.height = 0
	}
	return out, nil
}

func (t *Table) rename(mapping map[string]string) (*Table, error) {
	for old := range mapping {
		if t.index(old) < 0 {
			return nil, fmt.Errorf("%w: %q", types.ErrColumnNotFound, old)
		}
	}
	out := &Table{cols: make([]*Column, len(t.cols)), height: t.height}
	seen := make(map[string]bool, len(t.cols))
	for i, c := range t.cols {
		nc := c
		if to, ok := mapping[c.name]; ok {
			nc = c.alias()
			nc.name = to
		}
		if seen[nc.name] {
			return nil, fmt.Errorf("%w: %q", types.ErrDuplicateColumn, nc.name)
		}
		seen[nc.name] = true
		out.cols[i] = nc
	}
	return out, nil
}

func (t *Table) filter(pred func(Row) bool) *Table {
	var idx []int
	for i := 0; i < t.height; i++ {
		if pred(Row{t: t, i: i}) {
			idx = append(idx, i)
		}
	}
	return t.take(idx)
}

func (t *Table) sortBy(by string, descending bool) (*Table, error) {
	c, err := t.lookup(by)
	if err != nil {
		return nil, err
	}
	return t.take(c.order(descending)), nil
}

func (t *Table) tail(n int) *Table {
	if n > t.height {
		n = t.height
	}
	return t.slice(t.height-n, n)
}

func (t *Table) slice(offset, length int) *Table {
	lo := clamp(offset, 0, t.height)
	hi := clamp(lo+max(length, 0), lo, t.height)
	out := &Table{cols: make([]*Column, len(t.cols)), height: hi - lo}
	for i, c := range t.cols {
		out.cols[i] = c.slice(lo, hi-lo)
	}
	return out
}

func (t *Table) take(idx []int) *Table {
	out := &Table{cols: make([]*Column, len(t.cols)), height: len(idx)}
	for i, c := range t.cols {
		out.cols[i] = c.take(idx)
	}
	return out
}

func (t *Table) withColumns(cols []*Column) (*Table, error) {
	out := t.clone()
	for _, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("%w: nil column", types.ErrInvalidArgument)
		}
		if len(out.cols) == 0 {
			out.height = c.Len()
		} else if c.Len() != out.height {
			return nil, fmt.Errorf("%w: column %q has %d values, want %d",
				types.ErrLengthMismatch, c.name, c.Len(), out.height)
		}
		if i := out.index(c.name); i >= 0 {
			out.cols[i] = c.alias()
		} else {
			out.cols = append(out.cols, c.alias())
		}
	}
	return out, nil
}

func (t *Table) withRowIndex(name string, offset int64) (*Table, error) {
	if t.index(name) >= 0 {
		return nil, fmt.Errorf("%w: %q", types.ErrDuplicateColumn, name)
	}
	vals := make([]int64, t.height)
	for i := range vals {
		vals[i] = offset + int64(i)
	}
	out := &Table{cols: make([]*Column, 0, len(t.cols)+1), height: t.height}
	out.cols = append(out.cols, &Column{name: name, dtype: Int64, data: vals})
	out.cols = append(out.cols, t.cols...)
	return out, nil
}

func (t *Table) clone() *Table {
	return &Table{cols: slices.Clone(t.cols), height: t.height}
}

func (t *Table) vstack(others []*Table) (*Table, error) {
	for _, o := range others {
		if !slices.Equal(t.Schema(), o.Schema()) {
			return nil, fmt.Errorf("%w: %v vs %v", types.ErrSchemaMismatch, t.Columns(), o.Columns())
		}
	}
	out := &Table{cols: make([]*Column, len(t.cols)), height: t.height}
	for _, o := range others {
		out.height += o.height
	}
	for i, c := range t.cols {
		parts := make([]*Column, len(others))
		for j, o := range others {
			parts[j] = o.cols[i]
		}
		nc, err := c.concat(parts)
		if err != nil {
			return nil, err
		}
		out.cols[i] = nc
	}
	return out, nil
}

func (t *Table) join(other *Table, on string) (*Table, error) {
	if other == nil {
		return nil, fmt.Errorf("%w: nil table", types.ErrInvalidArgument)
	}
	lk, err := t.lookup(on)
	if err != nil {
		return nil, err
	}
	rk, err := other.lookup(on)
	if err != nil {
		return nil, err
	}
	if lk.dtype != rk.dtype {
		return nil, fmt.Errorf("%w: join key %q is %s on the left and %s on the right",
			types.ErrTypeMismatch, on, lk.dtype, rk.dtype)
	}

	matches := make(map[any][]int, other.height)
	for j := 0; j < other.height; j++ {
		k := rk.key(j)
		matches[k] = append(matches[k], j)
	}
	var left, right []int
	for i := 0; i < t.height; i++ {
		for _, j := range matches[lk.key(i)] {
			left = append(left, i)
			right = append(right, j)
		}
	}

	out := &Table{height: len(left)}
	taken := make(map[string]bool, len(t.cols)+len(other.cols))
	for _, c := range t.cols {
		out.cols = append(out.cols, c.take(left))
		taken[c.name] = true
	}
	for _, c := range other.cols {
		if c.name == on {
			continue
		}
		nc := c.take(right)
		for taken[nc.name] {
			nc.name += "_right"
		}
		taken[nc.name] = true
		out.cols = append(out.cols, nc)
	}
	return out, nil
}

// Row is a read-only view of one table row, passed to filter predicates.
type Row struct {
	t *Table
	i int
}

// Index returns the row position.
func (r Row) Index() int { return r.i }

// Get returns the value in the named column, or nil if there is none.
func (r Row) Get(name string) any {
	c, err := r.t.lookup(name)
	if err != nil {
		return nil
	}
	return c.Value(r.i)
}

// Int64 returns the named int64 value, or 0.
func (r Row) Int64(name string) int64 {
	v, _ := r.Get(name).(int64)
	return v
}

// Float64 returns the named float64 value, or 0.
func (r Row) Float64(name string) float64 {
	v, _ := r.Get(name).(float64)
	return v
}

// String returns the named string value, or "".
func (r Row) String(name string) string {
	v, _ := r.Get(name).(string)
	return v
}

// Bool returns the named bool value, or false.
func (r Row) Bool(name string) bool {
	v, _ := r.Get(name).(bool)
	return v
}
