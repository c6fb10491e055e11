package frame

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

func TestPlanCollect(t *testing.T) {
	tbl := sampleTable(t)

	plan := tbl.Lazy().
		Filter(func(r Row) bool { return r.Int64("id") > 1 }).
		Sort("score", false).
		Select("name").
		Head(2)

	got, err := plan.Collect(context.Background())
	require.NoError(t, err)
	col, err := got.Column("name")
	require.NoError(t, err)
	assert.Equal(t, []string{"cy", "dee"}, col.Values())
}

func TestPlanIsDeferred(t *testing.T) {
	calls := 0
	p := newPlan("counter", func(context.Context) (*Table, error) {
		calls++
		return MustTable(NewInt64("x", 1, 2, 3)), nil
	})

	q := p.Tail(1).Rename(map[string]string{"x": "y"})
	assert.Equal(t, 0, calls)

	got, err := q.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"y"}, got.Columns())

	// The original plan is unaffected by steps added to derived plans.
	base, err := p.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, base.Height())
}

func TestPlanErrorsSurfaceAtCollect(t *testing.T) {
	p := MustTable(NewInt64("x", 1)).Lazy().Drop("missing")

	_, err := p.Collect(context.Background())
	assert.ErrorIs(t, err, types.ErrColumnNotFound)
}

func TestPlanSourceError(t *testing.T) {
	boom := errors.New("boom")
	p := newPlan("broken", func(context.Context) (*Table, error) { return nil, boom })

	_, err := p.Collect(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = (&Plan{}).Collect(context.Background())
	assert.ErrorIs(t, err, types.ErrEmptyPlanSource)
}

func TestPlanCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sampleTable(t).Lazy().Head(1).Collect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanCollectReturnsCopy(t *testing.T) {
	tbl := sampleTable(t)
	got, err := tbl.Lazy().Collect(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, tbl, got)
	assert.True(t, tbl.Equal(got))
}

func TestPlanExplain(t *testing.T) {
	p := sampleTable(t).Lazy().
		Select("id", "score").
		Sort("score", true).
		WithRowIndex("idx", 0)

	assert.Equal(t, "source: table\n1. select id, score\n2. sort by score desc\n3. with row index idx", p.Explain())
	assert.Equal(t, p.Explain(), p.Clone().Explain())
}
