// Package intercept propagates metadata across native engine calls.
//
// Install hooks every discovered operation of a kind into the engine's hook
// table. When auto-preserve is on, each hooked call copies the receiver's
// metadata onto its result. Combining operations (VStack, Join, Append) also
// merge the metadata of their other inputs, ordered by the configured
// MergePriority.
package intercept

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tablemeta/internal/discovery"
	"github.com/mesh-intelligence/tablemeta/internal/registry"
	"github.com/mesh-intelligence/tablemeta/pkg/frame"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// Interceptor owns the auto-preserve flag and the installed hooks.
type Interceptor struct {
	reg     *registry.Registry
	catalog *discovery.Catalog
	logger  *zap.Logger

	enabled  atomic.Bool
	priority atomic.Value // types.MergePriority

	mu        sync.Mutex
	installed map[frame.Kind]bool
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Interceptor) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithPriority sets the merge priority for combining operations.
func WithPriority(p types.MergePriority) Option {
	return func(i *Interceptor) {
		i.priority.Store(p)
	}
}

// New returns an interceptor writing to reg and hooking the operations
// catalog discovers. Auto-preserve starts enabled.
func New(reg *registry.Registry, catalog *discovery.Catalog, opts ...Option) *Interceptor {
	i := &Interceptor{
		reg:       reg,
		catalog:   catalog,
		logger:    zap.NewNop(),
		installed: make(map[frame.Kind]bool),
	}
	i.enabled.Store(true)
	i.priority.Store(types.MergePriorityReceiver)
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install hooks the discovered operations of kind. It returns the number of
// hooks added. Installing a kind twice adds nothing; an operation that
// already carries a hook from elsewhere is left alone.
func (i *Interceptor) Install(kind frame.Kind) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.installed[kind] {
		return 0
	}
	i.installed[kind] = true

	added := 0
	for _, op := range i.catalog.Manifest(kind).Names() {
		if frame.Hook(kind, op, i.observe) {
			added++
			continue
		}
		i.logger.Debug("operation already hooked", zap.Stringer("kind", kind), zap.String("op", op))
	}
	i.logger.Debug("interception installed", zap.Stringer("kind", kind), zap.Int("hooks", added))
	return added
}

// InstallAll installs every kind.
func (i *Interceptor) InstallAll() int {
	n := 0
	for _, kind := range frame.Kinds() {
		n += i.Install(kind)
	}
	return n
}

// Installed reports whether Install ran for kind.
func (i *Interceptor) Installed(kind frame.Kind) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.installed[kind]
}

// Uninstall removes the hooks for kind so a later Install hooks it again.
func (i *Interceptor) Uninstall(kind frame.Kind) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.installed[kind] {
		return
	}
	for _, op := range i.catalog.Manifest(kind).Names() {
		frame.Unhook(kind, op)
	}
	delete(i.installed, kind)
}

// Enable turns auto-preserve on.
func (i *Interceptor) Enable() { i.enabled.Store(true) }

// Disable turns auto-preserve off. Hooks stay installed but do nothing.
func (i *Interceptor) Disable() { i.enabled.Store(false) }

// Enabled reports whether auto-preserve is on.
func (i *Interceptor) Enabled() bool { return i.enabled.Load() }

// SetPriority sets the merge priority for combining operations.
func (i *Interceptor) SetPriority(p types.MergePriority) { i.priority.Store(p) }

// Priority returns the merge priority for combining operations.
func (i *Interceptor) Priority() types.MergePriority {
	return i.priority.Load().(types.MergePriority)
}

// observe is the hook installed for every candidate operation.
func (i *Interceptor) observe(e frame.Event) {
	if !i.enabled.Load() {
		return
	}
	i.Propagate(e.Receiver, e.Result, e.Inputs)
}

// Propagate carries metadata onto result whether or not auto-preserve is
// on. Without inputs it copies the receiver's metadata. With inputs it
// merges the receiver and inputs in priority order. Either way result keeps
// keys it already had that nothing overrides.
func (i *Interceptor) Propagate(recv, result frame.Value, inputs []frame.Value) {
	if result == nil {
		return
	}
	if len(inputs) == 0 {
		i.reg.Copy(recv, result)
		return
	}

	merged := types.Metadata{}
	switch i.Priority() {
	case types.MergePriorityArgument:
		merged.Merge(i.reg.Lookup(recv))
		for _, in := range inputs {
			merged.Merge(i.reg.Lookup(in))
		}
	default:
		for _, in := range inputs {
			merged.Merge(i.reg.Lookup(in))
		}
		merged.Merge(i.reg.Lookup(recv))
	}
	if len(merged) == 0 {
		return
	}
	i.reg.Update(result, merged)
}
