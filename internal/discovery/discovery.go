// Package discovery classifies engine methods by the kind of value they
// produce.
//
// For each kind, the exported method set of the engine's concrete type is
// inspected once. A method is a candidate for metadata propagation when its
// first result (a trailing error is ignored) is *frame.Table, *frame.Plan,
// *frame.Column or frame.Value. Methods whose result is another interface,
// such as any, cannot be classified and are excluded, never guessed.
package discovery

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tablemeta/pkg/frame"
)

// Reserved lists method names owned by the metadata accessor. They are never
// candidates, whatever they return.
var Reserved = []string{"Set", "Update", "GetMetadata", "Merge", "ClearMetadata", "WriteParquet"}

var (
	errorType = reflect.TypeFor[error]()
	valueType = reflect.TypeFor[frame.Value]()

	kindTypes = map[frame.Kind]reflect.Type{
		frame.KindTable:  reflect.TypeFor[*frame.Table](),
		frame.KindPlan:   reflect.TypeFor[*frame.Plan](),
		frame.KindColumn: reflect.TypeFor[*frame.Column](),
	}
)

// Op is one propagation candidate.
type Op struct {
	Name string

	// Returns lists the kinds the method can produce. A method declared to
	// return frame.Value lists all three.
	Returns []frame.Kind
}

// Exclusion is a method that could not be classified.
type Exclusion struct {
	Name   string
	Reason string
}

// Manifest is the classification of one kind's methods.
type Manifest struct {
	Kind     frame.Kind
	ops      map[string]Op
	excluded []Exclusion
}

// Has reports whether name is a propagation candidate.
func (m *Manifest) Has(name string) bool {
	_, ok := m.ops[name]
	return ok
}

// Op returns the candidate called name.
func (m *Manifest) Op(name string) (Op, bool) {
	op, ok := m.ops[name]
	return op, ok
}

// Names returns the candidate names in sorted order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.ops))
	for name := range m.ops {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of candidates.
func (m *Manifest) Len() int { return len(m.ops) }

// Excluded returns the methods that could not be classified, sorted by
// name.
func (m *Manifest) Excluded() []Exclusion {
	return slices.Clone(m.excluded)
}

// String renders the manifest one method per line.
func (m *Manifest) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "kind: %s\n", m.Kind)
	b.WriteString("candidates:\n")
	for _, name := range m.Names() {
		kinds := make([]string, len(m.ops[name].Returns))
		for i, k := range m.ops[name].Returns {
			kinds[i] = k.String()
		}
		fmt.Fprintf(&b, "  %s -> %s\n", name, strings.Join(kinds, "|"))
	}
	b.WriteString("excluded:\n")
	for _, e := range m.excluded {
		fmt.Fprintf(&b, "  %s: %s\n", e.Name, e.Reason)
	}
	return b.String()
}

// Catalog builds manifests on first request and caches them for its
// lifetime. It is safe for concurrent use.
type Catalog struct {
	logger   *zap.Logger
	reserved map[string]bool
	slots    map[frame.Kind]*slot
}

type slot struct {
	once     sync.Once
	manifest *Manifest
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used for exclusion reports.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a catalog that excludes the Reserved names.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		logger:   zap.NewNop(),
		reserved: make(map[string]bool, len(Reserved)),
		slots:    make(map[frame.Kind]*slot, len(kindTypes)),
	}
	for _, name := range Reserved {
		c.reserved[name] = true
	}
	for kind := range kindTypes {
		c.slots[kind] = &slot{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Manifest returns the manifest for kind, building it on first use. An
// unknown kind yields an empty manifest.
func (c *Catalog) Manifest(kind frame.Kind) *Manifest {
	s, ok := c.slots[kind]
	if !ok {
		return &Manifest{Kind: kind, ops: map[string]Op{}}
	}
	s.once.Do(func() {
		s.manifest = c.build(kind, kindTypes[kind])
	})
	return s.manifest
}

// Has reports whether name is a propagation candidate for kind.
func (c *Catalog) Has(kind frame.Kind, name string) bool {
	return c.Manifest(kind).Has(name)
}

func (c *Catalog) build(kind frame.Kind, typ reflect.Type) *Manifest {
	m := &Manifest{Kind: kind, ops: make(map[string]Op)}
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		if c.reserved[method.Name] {
			continue
		}
		returns, reason := classify(method.Type)
		switch {
		case reason != "":
			m.excluded = append(m.excluded, Exclusion{Name: method.Name, Reason: reason})
			c.logger.Debug("operation excluded from propagation",
				zap.Stringer("kind", kind),
				zap.String("op", method.Name),
				zap.String("reason", reason))
		case len(returns) > 0:
			m.ops[method.Name] = Op{Name: method.Name, Returns: returns}
		}
	}
	c.logger.Debug("discovered operations",
		zap.Stringer("kind", kind),
		zap.Strings("ops", m.Names()))
	return m
}

// classify returns the kinds fn can produce. A non-empty reason means the
// result type cannot be determined. Both are empty for methods that
// produce something other than an engine value.
func classify(fn reflect.Type) ([]frame.Kind, string) {
	n := fn.NumOut()
	if n > 0 && fn.Out(n-1) == errorType {
		n--
	}
	if n == 0 {
		return nil, "no result"
	}
	out := fn.Out(0)
	if out == valueType {
		return frame.Kinds(), ""
	}
	for _, kind := range frame.Kinds() {
		if out == kindTypes[kind] {
			return []frame.Kind{kind}, ""
		}
	}
	if out.Kind() == reflect.Interface {
		return nil, "result type " + out.String() + " is not determinable"
	}
	return nil, ""
}

// Comparison lists candidate names shared by two manifests and those unique
// to each.
type Comparison struct {
	A, B   frame.Kind
	Common []string
	OnlyA  []string
	OnlyB  []string
}

// Compare compares the candidates of a and b.
func Compare(a, b *Manifest) Comparison {
	cmp := Comparison{A: a.Kind, B: b.Kind}
	for _, name := range a.Names() {
		if b.Has(name) {
			cmp.Common = append(cmp.Common, name)
		} else {
			cmp.OnlyA = append(cmp.OnlyA, name)
		}
	}
	for _, name := range b.Names() {
		if !a.Has(name) {
			cmp.OnlyB = append(cmp.OnlyB, name)
		}
	}
	return cmp
}

// String renders the comparison in three lines.
func (c Comparison) String() string {
	return fmt.Sprintf("common: %s\nonly %s: %s\nonly %s: %s\n",
		strings.Join(c.Common, ", "),
		c.A, strings.Join(c.OnlyA, ", "),
		c.B, strings.Join(c.OnlyB, ", "))
}
