package frame

import (
	"sync"
	"sync/atomic"
)

// Event describes one completed operation that produced a value.
type Event struct {
	// Op is the exported method name, for example "Filter".
	Op string

	// Receiver is the value the method was called on.
	Receiver Value

	// Result is the produced value. It may be Receiver itself (Pipe).
	Result Value

	// Inputs holds the other values combined into Result (VStack, Join,
	// Append). Nil for single-receiver operations.
	Inputs []Value
}

// HookFunc observes an Event. Hooks run synchronously on the calling
// goroutine after the result is built and must not block.
type HookFunc func(Event)

type hookKey struct {
	kind Kind
	op   string
}

// combining lists the operations that report Inputs.
var combining = map[hookKey]bool{
	{kind: KindTable, op: "VStack"}:  true,
	{kind: KindTable, op: "Join"}:    true,
	{kind: KindColumn, op: "Append"}: true,
}

// Combines reports whether op on values of kind merges other values into
// its result and reports them as Event.Inputs.
func Combines(kind Kind, op string) bool {
	return combining[hookKey{kind: kind, op: op}]
}

// hooks is copy-on-write: writers serialize on mu and publish a fresh map,
// readers load the current map without locking.
var hooks struct {
	mu    sync.Mutex
	table atomic.Pointer[map[hookKey]HookFunc]
}

// Hook installs fn for operation op on values of the given kind. At most one
// hook exists per (kind, op); Hook returns false and leaves the existing
// hook in place if one is already installed.
func Hook(kind Kind, op string, fn HookFunc) bool {
	hooks.mu.Lock()
	defer hooks.mu.Unlock()

	cur := hooks.table.Load()
	key := hookKey{kind: kind, op: op}
	if cur != nil {
		if _, ok := (*cur)[key]; ok {
			return false
		}
	}

	next := make(map[hookKey]HookFunc, 1)
	if cur != nil {
		for k, v := range *cur {
			next[k] = v
		}
	}
	next[key] = fn
	hooks.table.Store(&next)
	return true
}

// Unhook removes the hook for (kind, op). It returns false if none existed.
func Unhook(kind Kind, op string) bool {
	hooks.mu.Lock()
	defer hooks.mu.Unlock()

	cur := hooks.table.Load()
	key := hookKey{kind: kind, op: op}
	if cur == nil {
		return false
	}
	if _, ok := (*cur)[key]; !ok {
		return false
	}

	next := make(map[hookKey]HookFunc, len(*cur))
	for k, v := range *cur {
		if k != key {
			next[k] = v
		}
	}
	hooks.table.Store(&next)
	return true
}

// Hooked reports whether a hook is installed for (kind, op).
func Hooked(kind Kind, op string) bool {
	cur := hooks.table.Load()
	if cur == nil {
		return false
	}
	_, ok := (*cur)[hookKey{kind: kind, op: op}]
	return ok
}

// emit reports a produced value to the hook for (recv.Kind(), op), if any,
// and returns result unchanged.
func emit[R Value](op string, recv Value, result R, inputs ...Value) R {
	cur := hooks.table.Load()
	if cur == nil {
		return result
	}
	fn, ok := (*cur)[hookKey{kind: recv.Kind(), op: op}]
	if !ok {
		return result
	}
	fn(Event{Op: op, Receiver: recv, Result: result, Inputs: inputs})
	return result
}

// valuesOf converts a typed slice to []Value for Event.Inputs.
func valuesOf[T Value](xs []T) []Value {
	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
