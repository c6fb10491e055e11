package meta

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mesh-intelligence/tablemeta/internal/discovery"
	"github.com/mesh-intelligence/tablemeta/pkg/frame"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// Comparison lists the operations two kinds share and those unique to each.
type Comparison = discovery.Comparison

// Discovered returns the sorted names of kind's operations that propagate
// metadata.
func Discovered(kind frame.Kind) []string {
	return start().catalog.Manifest(kind).Names()
}

// IsDiscovered reports whether op on kind propagates metadata.
func IsDiscovered(kind frame.Kind, op string) bool {
	return start().catalog.Has(kind, op)
}

// Describe renders kind's discovery manifest, including the operations
// that were excluded and why.
func Describe(kind frame.Kind) string {
	return start().catalog.Manifest(kind).String()
}

// Compare compares the discovered operations of two kinds.
func Compare(a, b frame.Kind) Comparison {
	c := start().catalog
	return discovery.Compare(c.Manifest(a), c.Manifest(b))
}

// Tracked returns the number of live values that carry metadata.
func Tracked() int {
	return start().reg.Len()
}

// Verify checks that every discovered operation is hooked and that a
// native call and an accessor call both propagate metadata. It returns nil
// when everything works.
func Verify() error {
	s := start()
	var errs []error

	for _, kind := range frame.Kinds() {
		for _, op := range s.catalog.Manifest(kind).Names() {
			if !frame.Hooked(kind, op) {
				errs = append(errs, fmt.Errorf("%s.%s is not hooked", kind, op))
			}
		}
	}

	probe := frame.MustTable(frame.NewInt64("probe", 1, 2))
	For(probe).Set("probe", true)
	defer For(probe).ClearMetadata()

	want := types.Metadata{"probe": true}
	if s.interceptor.Enabled() {
		head := probe.Head(1)
		if got := For(head).GetMetadata(); !reflect.DeepEqual(got, want) {
			errs = append(errs, fmt.Errorf("native Head: got %v, want %v", got, want))
		}
		For(head).ClearMetadata()
	}

	out, err := For(probe).Call("Column", "probe")
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("accessor Column: %w", err))
	default:
		col := out.(*frame.Column)
		if got := For(col).GetMetadata(); !reflect.DeepEqual(got, want) {
			errs = append(errs, fmt.Errorf("accessor Column: got %v, want %v", got, want))
		}
		For(col).ClearMetadata()
	}

	return errors.Join(errs...)
}
