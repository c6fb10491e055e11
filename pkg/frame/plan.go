package frame

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// Plan is a lazy query: a source plus a list of deferred steps. Nothing runs
// until Collect. Errors from steps (an unknown column, say) surface there.
type Plan struct {
	origin string
	source func(ctx context.Context) (*Table, error)
	steps  []step
}

type step struct {
	desc  string
	apply func(*Table) (*Table, error)
}

func (*Plan) frameValue() {}

// Kind returns KindPlan.
func (*Plan) Kind() Kind { return KindPlan }

func newPlan(origin string, source func(ctx context.Context) (*Table, error)) *Plan {
	return &Plan{origin: origin, source: source}
}

// then returns a new plan with s appended. The receiver is not modified.
func (p *Plan) then(desc string, apply func(*Table) (*Table, error)) *Plan {
	steps := make([]step, len(p.steps), len(p.steps)+1)
	copy(steps, p.steps)
	return &Plan{
		origin: p.origin,
		source: p.source,
		steps:  append(steps, step{desc: desc, apply: apply}),
	}
}

// Select keeps only the named columns.
func (p *Plan) Select(names ...string) *Plan {
	names = slices.Clone(names)
	return emit("Select", p, p.then("select "+strings.Join(names, ", "), func(t *Table) (*Table, error) {
		return t.selectCols(names)
	}))
}

// Drop removes the named columns.
func (p *Plan) Drop(names ...string) *Plan {
	names = slices.Clone(names)
	return emit("Drop", p, p.then("drop "+strings.Join(names, ", "), func(t *Table) (*Table, error) {
		return t.drop(names)
	}))
}

// Rename renames columns per mapping (old -> new).
func (p *Plan) Rename(mapping map[string]string) *Plan {
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[k] = v
	}
	return emit("Rename", p, p.then(fmt.Sprintf("rename %d column(s)", len(m)), func(t *Table) (*Table, error) {
		return t.rename(m)
	}))
}

// Filter keeps rows for which pred returns true.
func (p *Plan) Filter(pred func(Row) bool) *Plan {
	return emit("Filter", p, p.then("filter", func(t *Table) (*Table, error) {
		return t.filter(pred), nil
	}))
}

// Sort orders rows by the named column.
func (p *Plan) Sort(by string, descending bool) *Plan {
	desc := "sort by " + by
	if descending {
		desc += " desc"
	}
	return emit("Sort", p, p.then(desc, func(t *Table) (*Table, error) {
		return t.sortBy(by, descending)
	}))
}

// Head keeps the first n rows.
func (p *Plan) Head(n int) *Plan {
	return emit("Head", p, p.then(fmt.Sprintf("head %d", n), func(t *Table) (*Table, error) {
		return t.slice(0, n), nil
	}))
}

// Tail keeps the last n rows.
func (p *Plan) Tail(n int) *Plan {
	return emit("Tail", p, p.then(fmt.Sprintf("tail %d", n), func(t *Table) (*Table, error) {
		return t.tail(n), nil
	}))
}

// WithColumns adds or replaces columns.
func (p *Plan) WithColumns(cols ...*Column) *Plan {
	cols = slices.Clone(cols)
	return emit("WithColumns", p, p.then(fmt.Sprintf("with %d column(s)", len(cols)), func(t *Table) (*Table, error) {
		return t.withColumns(cols)
	}))
}

// WithRowIndex prepends a row index column.
func (p *Plan) WithRowIndex(name string, offset int64) *Plan {
	return emit("WithRowIndex", p, p.then("with row index "+name, func(t *Table) (*Table, error) {
		return t.withRowIndex(name, offset)
	}))
}

// Clone returns a copy of the plan with its own identity.
func (p *Plan) Clone() *Plan {
	return emit("Clone", p, &Plan{origin: p.origin, source: p.source, steps: slices.Clone(p.steps)})
}

// Collect runs the plan and returns the resulting table. The context is
// checked before the source is read and between steps.
func (p *Plan) Collect(ctx context.Context) (*Table, error) {
	t, err := p.run(ctx)
	if err != nil {
		return nil, err
	}
	return emit("Collect", p, t), nil
}

// Explain describes the plan, one line per step, source first.
func (p *Plan) Explain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "source: %s", p.origin)
	for i, s := range p.steps {
		fmt.Fprintf(&b, "\n%d. %s", i+1, s.desc)
	}
	return b.String()
}

func (p *Plan) run(ctx context.Context) (*Table, error) {
	if p.source == nil {
		return nil, types.ErrEmptyPlanSource
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := p.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan source %s: %w", p.origin, err)
	}
	for i, s := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err = s.apply(t)
		if err != nil {
			return nil, fmt.Errorf("plan step %d (%s): %w", i+1, s.desc, err)
		}
	}
	if len(p.steps) == 0 {
		// The source table may be shared (Table.Lazy); hand out a copy.
		t = t.clone()
	}
	return t, nil
}
