package meta

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tablemeta/internal/codec"
	"github.com/mesh-intelligence/tablemeta/pkg/frame"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// Accessor exposes the metadata operations of one value. Accessors are
// cheap and hold no state besides the value, so there is no need to keep
// them around: call For again.
type Accessor[T frame.Value] struct {
	obj T
	sys *system
}

// For returns the metadata accessor of obj.
func For[T frame.Value](obj T) *Accessor[T] {
	return &Accessor[T]{obj: obj, sys: start()}
}

// Value returns the value the accessor belongs to.
func (a *Accessor[T]) Value() T { return a.obj }

// Set stores value under key and returns the value for chaining.
func (a *Accessor[T]) Set(key string, value any) T {
	a.sys.reg.Update(a.obj, types.Metadata{key: value})
	return a.obj
}

// Update merges m into the metadata and returns the value for chaining.
func (a *Accessor[T]) Update(m types.Metadata) T {
	a.sys.reg.Update(a.obj, m)
	return a.obj
}

// GetMetadata returns a copy of the metadata. It is empty, never nil, when
// nothing was set.
func (a *Accessor[T]) GetMetadata() types.Metadata {
	return a.sys.reg.Lookup(a.obj)
}

// Merge copies the metadata of each of others into the value's own, in
// order. Later values win on conflicting keys; keys only the receiver has
// are kept.
func (a *Accessor[T]) Merge(others ...frame.Value) T {
	merged := a.sys.reg.Lookup(a.obj)
	for _, o := range others {
		merged.Merge(a.sys.reg.Lookup(o))
	}
	if len(merged) > 0 {
		a.sys.reg.Record(a.obj, merged)
	}
	return a.obj
}

// ClearMetadata removes all metadata. Clearing twice is fine.
func (a *Accessor[T]) ClearMetadata() {
	a.sys.reg.Forget(a.obj)
}

// WriteParquet writes the value to path with its metadata in the file
// header. A column is written as a single-column table and a plan is
// collected first; the intermediate table carries the same metadata.
// Header entries passed with frame.WithHeader are kept alongside the
// metadata. If the metadata cannot be encoded nothing is written and the
// error is a *types.EncodingError.
func (a *Accessor[T]) WriteParquet(path string, opts ...frame.WriteOption) error {
	return a.writeParquet(context.Background(), path, opts)
}

// WriteParquetContext is WriteParquet with a context for collecting plans.
func (a *Accessor[T]) WriteParquetContext(ctx context.Context, path string, opts ...frame.WriteOption) error {
	return a.writeParquet(ctx, path, opts)
}

func (a *Accessor[T]) writeParquet(ctx context.Context, path string, opts []frame.WriteOption) error {
	if isNil(a.obj) {
		return a.opError("WriteParquet", types.ErrUntrackedValue)
	}
	m := a.sys.reg.Lookup(a.obj)
	header, err := codec.Embed(frame.Header{}, m)
	if err != nil {
		return err
	}

	var tbl *frame.Table
	switch v := any(a.obj).(type) {
	case *frame.Table:
		tbl = v
	case *frame.Column:
		tbl = v.ToTable()
		a.sys.reg.Copy(v, tbl)
	case *frame.Plan:
		if tbl, err = v.Collect(ctx); err != nil {
			return fmt.Errorf("collect plan: %w", err)
		}
		a.sys.reg.Copy(v, tbl)
	}

	all := make([]frame.WriteOption, 0, len(opts)+2)
	all = append(all, frame.WithCompression(defaultCompression()))
	all = append(all, opts...)
	all = append(all, frame.WithHeaders(header))
	if err := tbl.WriteParquet(path, all...); err != nil {
		return err
	}
	a.sys.logger.Debug("wrote parquet with metadata",
		zap.String("path", path),
		zap.Strings("keys", m.Keys()))
	return nil
}

// Call invokes the engine method name on the value with args and returns
// its first result. If that result is a table, plan or column it receives
// the value's metadata, whether or not auto-preserve is enabled. Results of
// VStack, Join and Append also take the metadata of the values they
// combine, ordered by the merge priority. A trailing error result is
// returned as the error.
//
// The accessor's own operations (Set, Update, GetMetadata, Merge,
// ClearMetadata and WriteParquet) are reached by name too and take the same
// arguments as their methods.
//
// An unknown name fails with a *types.OperationError wrapping
// types.ErrNoSuchOperation; arguments that do not fit the method's
// parameters wrap types.ErrInvalidArgument. Numeric arguments are converted
// when no precision is lost and nil stands for a parameter's zero value.
func (a *Accessor[T]) Call(name string, args ...any) (any, error) {
	if result, ok, err := a.callOwn(name, args); ok {
		return result, err
	}

	if isNil(a.obj) {
		return nil, a.opError(name, types.ErrUntrackedValue)
	}
	method := reflect.ValueOf(a.obj).MethodByName(name)
	if !method.IsValid() {
		return nil, a.opError(name, types.ErrNoSuchOperation)
	}
	in, spread, err := callArgs(method.Type(), args)
	if err != nil {
		return nil, a.opError(name, err)
	}

	var out []reflect.Value
	if spread {
		out = method.CallSlice(in)
	} else {
		out = method.Call(in)
	}

	result, err := results(out)
	if err != nil {
		return nil, a.opError(name, err)
	}
	if v, ok := result.(frame.Value); ok {
		var inputs []frame.Value
		if frame.Combines(a.obj.Kind(), name) {
			inputs = valuesIn(in)
		}
		a.sys.interceptor.Propagate(a.obj, v, inputs)
	}
	return result, nil
}

// callOwn runs one of the accessor's own operations by name. ok is false
// when name is not one of them.
func (a *Accessor[T]) callOwn(name string, args []any) (result any, ok bool, err error) {
	arity := func(n int) error {
		if len(args) != n {
			return a.opError(name, fmt.Errorf("%w: want %d arguments, got %d", types.ErrInvalidArgument, n, len(args)))
		}
		return nil
	}

	switch name {
	case "Set":
		if err := arity(2); err != nil {
			return nil, true, err
		}
		key, isString := args[0].(string)
		if !isString {
			return nil, true, a.opError(name, fmt.Errorf("%w: key must be a string, got %T", types.ErrInvalidArgument, args[0]))
		}
		return a.Set(key, args[1]), true, nil
	case "Update":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		var m types.Metadata
		switch x := args[0].(type) {
		case types.Metadata:
			m = x
		case map[string]any:
			m = x
		default:
			return nil, true, a.opError(name, fmt.Errorf("%w: %T is not a mapping", types.ErrInvalidArgument, args[0]))
		}
		return a.Update(m), true, nil
	case "GetMetadata":
		if err := arity(0); err != nil {
			return nil, true, err
		}
		return a.GetMetadata(), true, nil
	case "Merge":
		others := make([]frame.Value, 0, len(args))
		for i, arg := range args {
			v, isValue := arg.(frame.Value)
			if !isValue {
				return nil, true, a.opError(name, fmt.Errorf("argument %d: %w: %T is not a table, plan or column", i, types.ErrInvalidArgument, arg))
			}
			others = append(others, v)
		}
		return a.Merge(others...), true, nil
	case "ClearMetadata":
		if err := arity(0); err != nil {
			return nil, true, err
		}
		a.ClearMetadata()
		return nil, true, nil
	case "WriteParquet":
		return nil, true, a.callWriteParquet(args)
	}
	return nil, false, nil
}

// valuesIn returns the tables, plans and columns among converted call
// arguments, looking inside slices passed to variadic parameters.
func valuesIn(in []reflect.Value) []frame.Value {
	var out []frame.Value
	add := func(rv reflect.Value) {
		if !rv.IsValid() || !rv.CanInterface() {
			return
		}
		if v, ok := rv.Interface().(frame.Value); ok && !isNil(v) {
			out = append(out, v)
		}
	}
	for _, rv := range in {
		if rv.Kind() == reflect.Slice {
			for i := range rv.Len() {
				add(rv.Index(i))
			}
			continue
		}
		add(rv)
	}
	return out
}

func (a *Accessor[T]) opError(op string, err error) error {
	return &types.OperationError{Kind: kindName(a.obj), Op: op, Err: err}
}

func kindName(v frame.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}

func isNil(v frame.Value) bool {
	rv := reflect.ValueOf(v)
	return !rv.IsValid() || rv.IsNil()
}

// Apply calls fn with obj and copies obj's metadata onto the result.
// Propagation does not depend on auto-preserve.
func Apply[T, R frame.Value](obj T, fn func(T) R) R {
	s := start()
	out := fn(obj)
	s.reg.Copy(obj, out)
	return out
}

// ApplyE is Apply for functions that can fail. Nothing is copied on error.
func ApplyE[T, R frame.Value](obj T, fn func(T) (R, error)) (R, error) {
	s := start()
	out, err := fn(obj)
	if err != nil {
		return out, err
	}
	s.reg.Copy(obj, out)
	return out, nil
}

// callArgs converts args to the parameter types of fn. spread reports that
// the final argument is already a slice for a variadic parameter and must
// be passed with CallSlice.
func callArgs(fn reflect.Type, args []any) ([]reflect.Value, bool, error) {
	n := fn.NumIn()
	variadic := fn.IsVariadic()

	if variadic && len(args) == n {
		if last := args[n-1]; last != nil && reflect.TypeOf(last).AssignableTo(fn.In(n - 1)) {
			in := make([]reflect.Value, n)
			for i := 0; i < n-1; i++ {
				v, err := convert(args[i], fn.In(i))
				if err != nil {
					return nil, false, fmt.Errorf("argument %d: %w", i, err)
				}
				in[i] = v
			}
			in[n-1] = reflect.ValueOf(last)
			return in, true, nil
		}
	}

	switch {
	case variadic && len(args) < n-1:
		return nil, false, fmt.Errorf("%w: want at least %d arguments, got %d", types.ErrInvalidArgument, n-1, len(args))
	case !variadic && len(args) != n:
		return nil, false, fmt.Errorf("%w: want %d arguments, got %d", types.ErrInvalidArgument, n, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		typ := paramType(fn, i)
		v, err := convert(arg, typ)
		if err != nil {
			return nil, false, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = v
	}
	return in, false, nil
}

func paramType(fn reflect.Type, i int) reflect.Type {
	n := fn.NumIn()
	if fn.IsVariadic() && i >= n-1 {
		return fn.In(n - 1).Elem()
	}
	return fn.In(i)
}

func convert(arg any, typ reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(typ), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(typ) {
		return v, nil
	}
	if isNumber(v.Kind()) && isNumber(typ.Kind()) && v.CanConvert(typ) {
		out := v.Convert(typ)
		if out.Convert(v.Type()).Equal(v) && !lossy(v, typ) {
			return out, nil
		}
		return reflect.Value{}, fmt.Errorf("%w: %v does not fit %s", types.ErrInvalidArgument, arg, typ)
	}
	return reflect.Value{}, fmt.Errorf("%w: %T is not assignable to %s", types.ErrInvalidArgument, arg, typ)
}

// lossy reports conversions the round-trip check misses: a fractional
// float to an integer, or a negative number to an unsigned type.
func lossy(v reflect.Value, typ reflect.Type) bool {
	toFloat := typ.Kind() == reflect.Float32 || typ.Kind() == reflect.Float64
	toUnsigned := typ.Kind() >= reflect.Uint && typ.Kind() <= reflect.Uint64
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		return (!toFloat && f != math.Trunc(f)) || (toUnsigned && f < 0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return toUnsigned && v.Int() < 0
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

var errorType = reflect.TypeFor[error]()

// results splits a method's return values into its first result and a
// trailing error.
func results(out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if !out[n-1].IsNil() {
			return nil, out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}
