// Package registry associates metadata with live engine values.
//
// Entries are keyed by a weak handle to the value, so the registry never
// keeps a value alive. When the value is collected, a runtime cleanup purges
// its entry. Weak handles of distinct allocations never compare equal, even
// when the runtime reuses an address, so a purged entry can never be
// attributed to a newer value.
package registry

import (
	"runtime"
	"sync"
	"weak"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tablemeta/pkg/frame"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// Registry maps engine values to their metadata. The zero value is not
// usable; create one with New.
type Registry struct {
	mu      sync.Mutex
	entries map[any]*entry
	logger  *zap.Logger
}

type entry struct {
	kind    frame.Kind
	meta    types.Metadata
	cleanup runtime.Cleanup
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[any]*entry),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record replaces v's metadata with a copy of m. A nil v is ignored.
func (r *Registry) Record(v frame.Value, m types.Metadata) {
	key, ok := handle(v)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entryFor(key, v).meta = m.Clone()
}

// Update merges m into v's metadata, creating the entry if needed.
func (r *Registry) Update(v frame.Value, m types.Metadata) {
	key, ok := handle(v)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entryFor(key, v).meta.Merge(m)
}

// Lookup returns a copy of v's metadata. Values without an entry (nil
// included) yield an empty, non-nil mapping.
func (r *Registry) Lookup(v frame.Value) types.Metadata {
	key, ok := handle(v)
	if !ok {
		return types.Metadata{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e.meta.Clone()
	}
	return types.Metadata{}
}

// Has reports whether v has an entry.
func (r *Registry) Has(v frame.Value) bool {
	key, ok := handle(v)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok = r.entries[key]
	return ok
}

// Copy merges a snapshot of src's metadata into dst's, creating dst's entry
// if needed. Keys dst already has and src lacks are kept. An untracked src
// leaves dst as it is, and copying a value onto itself does nothing.
func (r *Registry) Copy(src, dst frame.Value) {
	skey, sok := handle(src)
	dkey, dok := handle(dst)
	if !sok || !dok || skey == dkey {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[skey]
	if !ok {
		return
	}
	r.entryFor(dkey, dst).meta.Merge(e.meta)
}

// Forget removes v's entry and cancels its cleanup. It reports whether an
// entry existed.
func (r *Registry) Forget(v frame.Value) bool {
	key, ok := handle(v)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(key)
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// entryFor returns the entry for key, creating it and registering v's
// cleanup on first use. r.mu must be held.
func (r *Registry) entryFor(key any, v frame.Value) *entry {
	if e, ok := r.entries[key]; ok {
		return e
	}
	e := &entry{kind: v.Kind(), meta: types.Metadata{}}
	e.cleanup = addCleanup(v, r.purge, key)
	r.entries[key] = e
	r.logger.Debug("tracking value", zap.Stringer("kind", e.kind), zap.Int("entries", len(r.entries)))
	return e
}

func (r *Registry) remove(key any) bool {
	e, ok := r.entries[key]
	if !ok {
		return false
	}
	e.cleanup.Stop()
	delete(r.entries, key)
	return true
}

// purge runs on the runtime's cleanup goroutine after the value behind key
// became unreachable. Purging an absent key is a no-op.
func (r *Registry) purge(key any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return
	}
	delete(r.entries, key)
	r.logger.Debug("purged collected value", zap.Stringer("kind", e.kind), zap.Int("entries", len(r.entries)))
}

// handle returns the weak handle used as v's map key.
func handle(v frame.Value) (any, bool) {
	switch x := v.(type) {
	case *frame.Table:
		if x != nil {
			return weak.Make(x), true
		}
	case *frame.Plan:
		if x != nil {
			return weak.Make(x), true
		}
	case *frame.Column:
		if x != nil {
			return weak.Make(x), true
		}
	}
	return nil, false
}

func addCleanup(v frame.Value, fn func(any), key any) runtime.Cleanup {
	switch x := v.(type) {
	case *frame.Table:
		return runtime.AddCleanup(x, fn, key)
	case *frame.Plan:
		return runtime.AddCleanup(x, fn, key)
	case *frame.Column:
		return runtime.AddCleanup(x, fn, key)
	}
	return runtime.Cleanup{}
}
