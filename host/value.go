package host

import (
	"math"
	"reflect"

	"github.com/wippyai/objbridge/managed"
)

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined is the host's "no value". It marshals like nil.
var Undefined = undefined{}

// Func is a host callable. Proxy function tables map method names to Funcs.
type Func func(args ...any) (any, error)

// Callback receives the outcome of an asynchronous call, error first.
type Callback func(err error, result any)

// AsFunc reports whether v is callable from the bridge and adapts it.
// Func, func(...any) (any, error) and func(...any) any are accepted.
func AsFunc(v any) (Func, bool) {
	switch f := v.(type) {
	case Func:
		return f, f != nil
	case func(...any) (any, error):
		return f, f != nil
	case func(...any) any:
		if f == nil {
			return nil, false
		}
		return func(args ...any) (any, error) { return f(args...), nil }, true
	}
	return nil, false
}

// Object is an opaque host handle to a managed object.
type Object struct {
	ref *managed.Object
}

// NewObject wraps a managed object. A nil object yields nil.
func NewObject(o *managed.Object) *Object {
	if o == nil {
		return nil
	}
	return &Object{ref: o}
}

// Managed returns the wrapped managed object.
func (o *Object) Managed() *managed.Object { return o.ref }

// ClassName returns the binary name of the object's class.
func (o *Object) ClassName() string { return o.ref.Class().Name() }

func (o *Object) String() string { return o.ref.String() }

// IsNullish reports whether v is nil or Undefined.
func IsNullish(v any) bool {
	if v == nil || v == Undefined {
		return true
	}
	if o, ok := v.(*Object); ok && o == nil {
		return true
	}
	return false
}

// Equal compares host values with the host's semantics: numbers compare
// by value regardless of their Go type, slices element by element, objects
// by identity of the managed object.
func Equal(a, b any) bool {
	if IsNullish(a) || IsNullish(b) {
		return IsNullish(a) && IsNullish(b)
	}
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x.equal(y)
	}
	switch x := a.(type) {
	case *Object:
		y, ok := b.(*Object)
		return ok && x.ref == y.ref
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if isList(ra) && isList(rb) {
		if ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !Equal(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return false
}

func isList(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

// num holds a host number as an exact integer when possible.
type num struct {
	f     float64
	i     int64
	u     uint64
	isInt bool
	isBig bool // u holds a value above MaxInt64
}

func number(v any) (num, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return num{i: rv.Int(), isInt: true}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return num{u: u, isInt: true, isBig: true}, true
		}
		return num{i: int64(u), isInt: true}, true
	case reflect.Float32, reflect.Float64:
		return num{f: rv.Float()}, true
	}
	return num{}, false
}

func (x num) equal(y num) bool {
	switch {
	case x.isInt && y.isInt:
		return x.isBig == y.isBig && x.i == y.i && x.u == y.u
	case !x.isInt && !y.isInt:
		return x.f == y.f
	case x.isInt:
		return y.equal(x)
	}
	// x float, y int
	if y.isBig {
		return x.f == float64(y.u) && x.f >= 1<<63
	}
	if x.f != math.Trunc(x.f) || x.f >= 1<<63 || x.f < -(1<<63) {
		return false
	}
	return x.f == float64(y.i) && int64(x.f) == y.i
}
