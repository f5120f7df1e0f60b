package marshal

import (
	"math"
	"reflect"
	"unicode/utf16"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/host"
	"github.com/wippyai/objbridge/managed"
)

// ToManagedAs converts a host value to a value of the managed type target.
// Numbers convert to primitive targets only when the exact value fits; a
// fractional part or an out of range value is an error, never a silent
// truncation. Reference targets accept any value assignable to them,
// boxing primitives for wrapper and Object targets. Array targets convert
// each element to the component type.
func ToManagedAs(env *managed.Env, v any, target *managed.Class) (managed.Value, error) {
	return toManagedAs(env, v, target, nil)
}

func toManagedAs(env *managed.Env, v any, target *managed.Class, path []string) (managed.Value, error) {
	if target.IsPrimitive() {
		return toPrimitive(env, v, target, path)
	}
	if host.IsNullish(v) {
		return managed.Null, nil
	}
	vm := env.VM()

	if target.IsArray() {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			if _, isBytes := v.([]byte); !isBytes || target.Component().Kind() != managed.KindByte {
				return toTypedArray(env, rv, target, path)
			}
		}
	}
	if k, ok := wrapperKind(target); ok && isHostScalar(v) {
		p, err := toPrimitive(env, v, vm.PrimitiveClass(k), path)
		if err != nil {
			return managed.Value{}, err
		}
		return managed.Ref(vm.Box(p)), nil
	}

	mv, err := toManaged(env, v, path)
	if err != nil {
		return managed.Value{}, err
	}
	if mv.Kind().IsPrimitive() {
		mv = managed.Ref(vm.Box(mv))
	}
	if mv.IsNull() || target.IsInstance(mv.Object()) {
		return mv, nil
	}
	return managed.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, hostTypeName(v), target.TypeName())
}

func toTypedArray(env *managed.Env, rv reflect.Value, target *managed.Class, path []string) (managed.Value, error) {
	comp := target.Component()
	vals := make([]managed.Value, rv.Len())
	for i := range vals {
		e, err := toManagedAs(env, rv.Index(i).Interface(), comp, elemPath(path, i))
		if err != nil {
			return managed.Value{}, err
		}
		vals[i] = e
	}
	return newArray(env.VM(), comp, vals, path)
}

func toPrimitive(env *managed.Env, v any, target *managed.Class, path []string) (managed.Value, error) {
	k := target.Kind()
	mismatch := func() error {
		return errors.TypeMismatch(errors.PhaseMarshal, path, hostTypeName(v), target.TypeName())
	}

	switch x := v.(type) {
	case *host.Object:
		if p, ok := unboxed(x); ok {
			if w, ok := p.Widen(k); ok {
				return w, nil
			}
		}
		return managed.Value{}, mismatch()
	case managed.Value:
		if w, ok := x.Widen(k); ok {
			return w, nil
		}
		return managed.Value{}, mismatch()
	case string:
		// a char travels to the host as a one unit string
		if k == managed.KindChar {
			if units := utf16.Encode([]rune(x)); len(units) == 1 {
				return managed.Char(units[0]), nil
			}
		}
		return managed.Value{}, mismatch()
	}

	rv := reflect.ValueOf(v)
	if !isHostScalar(v) {
		return managed.Value{}, mismatch()
	}
	if rv.Kind() == reflect.Bool {
		if k != managed.KindBoolean {
			return managed.Value{}, mismatch()
		}
		return managed.Boolean(rv.Bool()), nil
	}
	if k == managed.KindBoolean {
		return managed.Value{}, mismatch()
	}
	n := numberOf(rv)
	return n.to(k, v, target, path)
}

// number is a host number held exactly.
type number struct {
	f       float64
	i       int64
	u       uint64
	integer bool
	big     bool // u holds a value above MaxInt64
}

func numberOf(rv reflect.Value) number {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{i: rv.Int(), integer: true}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u > math.MaxInt64 {
			return number{u: u, integer: true, big: true}
		}
		return number{i: int64(rv.Uint()), integer: true}
	}
	return number{f: rv.Float()}
}

var intRanges = map[managed.Kind][2]int64{
	managed.KindByte:  {math.MinInt8, math.MaxInt8},
	managed.KindShort: {math.MinInt16, math.MaxInt16},
	managed.KindChar:  {0, math.MaxUint16},
	managed.KindInt:   {math.MinInt32, math.MaxInt32},
	managed.KindLong:  {math.MinInt64, math.MaxInt64},
}

func (n number) to(k managed.Kind, v any, target *managed.Class, path []string) (managed.Value, error) {
	switch k {
	case managed.KindDouble:
		switch {
		case n.big:
			return managed.Double(float64(n.u)), nil
		case n.integer:
			return managed.Double(float64(n.i)), nil
		}
		return managed.Double(n.f), nil
	case managed.KindFloat:
		f := n.f
		switch {
		case n.big:
			f = float64(n.u)
		case n.integer:
			f = float64(n.i)
		}
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return managed.Value{}, errors.Overflow(errors.PhaseMarshal, path, v, target.TypeName())
		}
		return managed.Float(float32(f)), nil
	}

	r := intRanges[k]
	var i int64
	switch {
	case n.big:
		return managed.Value{}, errors.Overflow(errors.PhaseMarshal, path, v, target.TypeName())
	case n.integer:
		i = n.i
	default:
		if n.f != math.Trunc(n.f) || math.IsInf(n.f, 0) {
			return managed.Value{}, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
				Path(path...).
				ManagedType(target.TypeName()).
				Value(v).
				Detail("value %v is not integral", v).
				Build()
		}
		if n.f >= 1<<63 || n.f < -(1<<63) {
			return managed.Value{}, errors.Overflow(errors.PhaseMarshal, path, v, target.TypeName())
		}
		i = int64(n.f)
	}
	if i < r[0] || i > r[1] {
		return managed.Value{}, errors.Overflow(errors.PhaseMarshal, path, v, target.TypeName())
	}
	switch k {
	case managed.KindByte:
		return managed.Byte(int8(i)), nil
	case managed.KindShort:
		return managed.Short(int16(i)), nil
	case managed.KindChar:
		return managed.Char(uint16(i)), nil
	case managed.KindInt:
		return managed.Int(int32(i)), nil
	}
	return managed.Long(i), nil
}

func unboxed(o *host.Object) (managed.Value, bool) {
	if o == nil {
		return managed.Value{}, false
	}
	return o.Managed().Unbox()
}

func isHostScalar(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// wrapperKind returns the primitive kind boxed by a wrapper class.
func wrapperKind(c *managed.Class) (managed.Kind, bool) {
	for k := managed.KindBoolean; k <= managed.KindDouble; k++ {
		if k.WrapperName() == c.Name() {
			return k, true
		}
	}
	return 0, false
}
