package registry

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mesh-intelligence/tablemeta/pkg/frame"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// newTestRegistry logs to an observer rather than to t: cleanups may run
// after the test that created the value has finished.
func newTestRegistry(t *testing.T) (*Registry, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return New(WithLogger(zap.New(core))), logs
}

func TestRecordAndLookup(t *testing.T) {
	r, _ := newTestRegistry(t)
	tbl := frame.MustTable(frame.NewInt64("x", 1))

	t.Run("untracked value yields empty mapping", func(t *testing.T) {
		got := r.Lookup(tbl)
		require.NotNil(t, got)
		assert.Empty(t, got)
		assert.False(t, r.Has(tbl))
	})

	t.Run("record overwrites", func(t *testing.T) {
		r.Record(tbl, types.Metadata{"a": 1, "b": 2})
		r.Record(tbl, types.Metadata{"c": 3})
		assert.Equal(t, types.Metadata{"c": 3}, r.Lookup(tbl))
		assert.Equal(t, 1, r.Len())
	})

	t.Run("update merges", func(t *testing.T) {
		r.Update(tbl, types.Metadata{"d": 4, "c": 30})
		assert.Equal(t, types.Metadata{"c": 30, "d": 4}, r.Lookup(tbl))
	})

	t.Run("lookup returns a copy", func(t *testing.T) {
		got := r.Lookup(tbl)
		got["mutated"] = true
		assert.NotContains(t, r.Lookup(tbl), "mutated")
	})

	t.Run("record stores a copy", func(t *testing.T) {
		m := types.Metadata{"k": "v"}
		r.Record(tbl, m)
		m["k"] = "changed"
		assert.Equal(t, "v", r.Lookup(tbl)["k"])
	})

	t.Run("nil values are ignored", func(t *testing.T) {
		var nilTable *frame.Table
		r.Record(nilTable, types.Metadata{"x": 1})
		r.Record(nil, types.Metadata{"x": 1})
		assert.Empty(t, r.Lookup(nilTable))
		assert.Equal(t, 1, r.Len())
	})
}

func TestIdentityIsPerObject(t *testing.T) {
	r, _ := newTestRegistry(t)
	a := frame.NewString("s", "x")
	b := a.Clone()
	require.True(t, a.Equal(b))

	r.Record(a, types.Metadata{"who": "a"})
	assert.Equal(t, types.Metadata{"who": "a"}, r.Lookup(a))
	assert.Empty(t, r.Lookup(b))
}

func TestCopy(t *testing.T) {
	r, _ := newTestRegistry(t)
	src := frame.MustTable(frame.NewInt64("x", 1))
	dst := src.Head(1)

	t.Run("snapshot", func(t *testing.T) {
		r.Record(src, types.Metadata{"owner": "alice"})
		r.Copy(src, dst)
		assert.Equal(t, types.Metadata{"owner": "alice"}, r.Lookup(dst))

		r.Update(src, types.Metadata{"owner": "bob"})
		assert.Equal(t, "alice", r.Lookup(dst)["owner"])
		r.Update(dst, types.Metadata{"extra": true})
		assert.NotContains(t, r.Lookup(src), "extra")
	})

	t.Run("cross kind", func(t *testing.T) {
		col, err := src.Column("x")
		require.NoError(t, err)
		r.Copy(src, col)
		assert.Equal(t, types.Metadata{"owner": "bob"}, r.Lookup(col))
	})

	t.Run("untracked source keeps destination", func(t *testing.T) {
		bare := frame.MustTable(frame.NewInt64("x", 2))
		r.Copy(bare, dst)
		assert.Equal(t, types.Metadata{"owner": "alice", "extra": true}, r.Lookup(dst))
		assert.False(t, r.Has(bare))
	})

	t.Run("merges into existing entry", func(t *testing.T) {
		r.Copy(src, dst)
		assert.Equal(t, types.Metadata{"owner": "bob", "extra": true}, r.Lookup(dst))
	})

	t.Run("self copy keeps entry", func(t *testing.T) {
		r.Copy(src, src)
		assert.Equal(t, types.Metadata{"owner": "bob"}, r.Lookup(src))
	})
}

func TestForget(t *testing.T) {
	r, _ := newTestRegistry(t)
	c := frame.NewBool("b", true)

	r.Record(c, types.Metadata{"k": 1})
	assert.True(t, r.Forget(c))
	assert.False(t, r.Forget(c))
	assert.Empty(t, r.Lookup(c))
	assert.Equal(t, 0, r.Len())
}

func TestPurgeIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	p := frame.MustTable(frame.NewInt64("x", 1)).Lazy()
	r.Record(p, types.Metadata{"k": 1})

	key, ok := handle(p)
	require.True(t, ok)
	r.purge(key)
	r.purge(key)
	assert.Equal(t, 0, r.Len())
	runtime.KeepAlive(p)
}

func TestCollectedValuesArePurged(t *testing.T) {
	r, logs := newTestRegistry(t)
	keep := frame.NewInt64("keep", 1)
	r.Record(keep, types.Metadata{"keep": true})

	func() {
		for i := 0; i < 10; i++ {
			tbl := frame.MustTable(frame.NewInt64("x", int64(i)))
			r.Record(tbl, types.Metadata{"i": i})
		}
	}()
	require.Equal(t, 11, r.Len())

	require.Eventually(t, func() bool {
		runtime.GC()
		return r.Len() == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, types.Metadata{"keep": true}, r.Lookup(keep))
	assert.Equal(t, 10, logs.FilterMessage("purged collected value").Len())
	runtime.KeepAlive(keep)
}
