package marshal

import (
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/host"
	"github.com/wippyai/objbridge/managed"
)

// ToManaged converts a host value to a managed value.
func ToManaged(env *managed.Env, v any) (managed.Value, error) {
	return toManaged(env, v, nil)
}

// ToManagedArgs converts a host argument list in one pass.
func ToManagedArgs(env *managed.Env, args []any) ([]managed.Value, error) {
	out := make([]managed.Value, len(args))
	for i, a := range args {
		v, err := toManaged(env, a, []string{"args[" + strconv.Itoa(i) + "]"})
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func toManaged(env *managed.Env, v any, path []string) (managed.Value, error) {
	if host.IsNullish(v) {
		return managed.Null, nil
	}
	switch x := v.(type) {
	case bool:
		return managed.Boolean(x), nil
	case int8:
		return managed.Byte(x), nil
	case int16:
		return managed.Short(x), nil
	case int32:
		return managed.Int(x), nil
	case int64:
		return managed.Long(x), nil
	case float32:
		return managed.Float(x), nil
	case float64:
		return ladderFloat(x), nil
	case int:
		return ladderInt(int64(x)), nil
	case uint8:
		return managed.Int(int32(x)), nil
	case uint16:
		return managed.Int(int32(x)), nil
	case uint32:
		return ladderInt(int64(x)), nil
	case uint:
		return ladderUint(uint64(x), path)
	case uint64:
		return ladderUint(x, path)
	case uintptr:
		return ladderUint(uint64(x), path)
	case string:
		if !utf8.ValidString(x) {
			return managed.Value{}, errors.InvalidUTF8(errors.PhaseMarshal, path, x)
		}
		return managed.Ref(env.NewString(x)), nil
	case *host.Object:
		return managed.Ref(x.Managed()), nil
	case *managed.Object:
		return managed.Ref(x), nil
	case managed.Value:
		return x, nil
	case []any:
		return toManagedList(env, x, path)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return toManagedSlice(env, rv, path)
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		// named scalar types convert like their underlying type
		if base := basicTypes[rv.Kind()]; base != rv.Type() {
			return toManaged(env, rv.Convert(base).Interface(), path)
		}
	}
	return managed.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, hostTypeName(v), "managed value")
}

// ladderInt picks int when the value fits 32 bits, long otherwise.
func ladderInt(n int64) managed.Value {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return managed.Int(int32(n))
	}
	return managed.Long(n)
}

func ladderUint(n uint64, path []string) (managed.Value, error) {
	if n > math.MaxInt64 {
		return managed.Value{}, errors.Overflow(errors.PhaseMarshal, path, n, "long")
	}
	return ladderInt(int64(n)), nil
}

// maxExact is the largest magnitude below which every integer is exactly
// representable as a float64.
const maxExact = 1 << 53

func ladderFloat(f float64) managed.Value {
	if f != math.Trunc(f) || math.IsInf(f, 0) || (f == 0 && math.Signbit(f)) {
		return managed.Double(f)
	}
	if f >= math.MinInt32 && f <= math.MaxInt32 {
		return managed.Int(int32(f))
	}
	if math.Abs(f) <= maxExact {
		return managed.Long(int64(f))
	}
	return managed.Double(f)
}

// toManagedList converts an untyped list. The array type follows the
// elements: a shared primitive kind gives a primitive array, strings (with
// optional nulls) give String[], anything else gives Object[] with
// primitives boxed.
func toManagedList(env *managed.Env, list []any, path []string) (managed.Value, error) {
	vm := env.VM()
	vals := make([]managed.Value, len(list))
	for i, e := range list {
		v, err := toManaged(env, e, elemPath(path, i))
		if err != nil {
			return managed.Value{}, err
		}
		vals[i] = v
	}

	str, _ := vm.FindClass("java.lang.String")
	component, _ := vm.FindClass("java.lang.Object")
	if len(vals) > 0 {
		if k := sharedKind(vals); k.IsPrimitive() {
			component = vm.PrimitiveClass(k)
		} else if allStrings(vals) {
			component = str
		}
	}
	if !component.IsPrimitive() {
		for i, v := range vals {
			if v.Kind().IsPrimitive() {
				vals[i] = managed.Ref(vm.Box(v))
			}
		}
	}
	return newArray(vm, component, vals, path)
}

func sharedKind(vals []managed.Value) managed.Kind {
	k := vals[0].Kind()
	for _, v := range vals[1:] {
		if v.Kind() != k {
			return managed.KindReference
		}
	}
	return k
}

func allStrings(vals []managed.Value) bool {
	seen := false
	for _, v := range vals {
		if v.Kind() != managed.KindReference {
			return false
		}
		if v.IsNull() {
			continue
		}
		if !v.Object().IsString() {
			return false
		}
		seen = true
	}
	return seen
}

// toManagedSlice converts a typed Go slice. Elements with a declared width
// fix the component type; []byte is taken as raw bytes.
func toManagedSlice(env *managed.Env, rv reflect.Value, path []string) (managed.Value, error) {
	vm := env.VM()
	if b, ok := rv.Interface().([]byte); ok {
		vals := make([]managed.Value, len(b))
		for i, c := range b {
			vals[i] = managed.Byte(int8(c))
		}
		return newArray(vm, vm.PrimitiveClass(managed.KindByte), vals, path)
	}

	elem := rv.Type().Elem().Kind()
	if elem == reflect.String {
		str, _ := vm.FindClass("java.lang.String")
		vals := make([]managed.Value, rv.Len())
		for i := range vals {
			v, err := toManaged(env, rv.Index(i).String(), elemPath(path, i))
			if err != nil {
				return managed.Value{}, err
			}
			vals[i] = v
		}
		return newArray(vm, str, vals, path)
	}

	kind, ok := sliceKinds[elem]
	if !ok {
		list := make([]any, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
		return toManagedList(env, list, path)
	}
	vals := make([]managed.Value, rv.Len())
	for i := range vals {
		e := rv.Index(i)
		switch kind {
		case managed.KindBoolean:
			vals[i] = managed.Boolean(e.Bool())
		case managed.KindByte:
			vals[i] = managed.Byte(int8(e.Int()))
		case managed.KindShort:
			vals[i] = managed.Short(int16(e.Int()))
		case managed.KindInt:
			vals[i] = managed.Int(int32(e.Int()))
		case managed.KindLong:
			vals[i] = managed.Long(e.Int())
		case managed.KindFloat:
			vals[i] = managed.Float(float32(e.Float()))
		default:
			vals[i] = managed.Double(e.Float())
		}
	}
	return newArray(vm, vm.PrimitiveClass(kind), vals, path)
}

var sliceKinds = map[reflect.Kind]managed.Kind{
	reflect.Bool:    managed.KindBoolean,
	reflect.Int8:    managed.KindByte,
	reflect.Int16:   managed.KindShort,
	reflect.Int32:   managed.KindInt,
	reflect.Int64:   managed.KindLong,
	reflect.Float32: managed.KindFloat,
	reflect.Float64: managed.KindDouble,
}

func newArray(vm *managed.VM, component *managed.Class, vals []managed.Value, path []string) (managed.Value, error) {
	arr, ok := vm.NewArrayOf(component, vals)
	if !ok {
		return managed.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, "list", component.TypeName()+"[]")
	}
	return managed.Ref(arr), nil
}

func elemPath(path []string, i int) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, "["+strconv.Itoa(i)+"]")
}

var basicTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeOf(false),
	reflect.String:  reflect.TypeOf(""),
	reflect.Int:     reflect.TypeOf(0),
	reflect.Int8:    reflect.TypeOf(int8(0)),
	reflect.Int16:   reflect.TypeOf(int16(0)),
	reflect.Int32:   reflect.TypeOf(int32(0)),
	reflect.Int64:   reflect.TypeOf(int64(0)),
	reflect.Uint:    reflect.TypeOf(uint(0)),
	reflect.Uint8:   reflect.TypeOf(uint8(0)),
	reflect.Uint16:  reflect.TypeOf(uint16(0)),
	reflect.Uint32:  reflect.TypeOf(uint32(0)),
	reflect.Uint64:  reflect.TypeOf(uint64(0)),
	reflect.Uintptr: reflect.TypeOf(uintptr(0)),
	reflect.Float32: reflect.TypeOf(float32(0)),
	reflect.Float64: reflect.TypeOf(float64(0)),
}

func hostTypeName(v any) string {
	if v == nil {
		return "nil"
	}
	if _, ok := host.AsFunc(v); ok {
		return "function"
	}
	return reflect.TypeOf(v).String()
}
