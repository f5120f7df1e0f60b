package managed

import (
	"fmt"
	"sync"
	"unicode/utf16"
)

// Object is an instance owned by the VM. Builtin classes keep their state
// in the native payload: UTF-16 code units for strings, the primitive for
// boxes, the element slice for arrays.
type Object struct {
	class  *Class
	native any
	fields []Value
	id     uint64
	mu     sync.RWMutex
}

func (o *Object) Class() *Class { return o.class }

// ID is the identity hash of the object.
func (o *Object) ID() uint64 { return o.id }

// Native returns the Go payload attached to the object.
func (o *Object) Native() any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.native
}

// SetNative attaches a Go payload to the object. Readers see either the
// old or the new payload, never a torn one.
func (o *Object) SetNative(v any) {
	o.mu.Lock()
	o.native = v
	o.mu.Unlock()
}

// IsString reports whether o is a java.lang.String.
func (o *Object) IsString() bool {
	_, ok := o.Native().(stringData)
	return ok
}

// Chars returns the UTF-16 code units of a string object.
func (o *Object) Chars() ([]uint16, bool) {
	s, ok := o.Native().(stringData)
	return s, ok
}

// GoString decodes a string object. Unpaired surrogates become U+FFFD.
func (o *Object) GoString() (string, bool) {
	s, ok := o.Native().(stringData)
	if !ok {
		return "", false
	}
	return string(utf16.Decode(s)), true
}

// Unbox returns the primitive held by a wrapper object.
func (o *Object) Unbox() (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	b, ok := o.Native().(boxData)
	return Value(b), ok
}

// Len returns the length of an array object.
func (o *Object) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if a, ok := o.native.(arrayData); ok {
		return len(a)
	}
	return 0
}

// Index reads element i of an array object.
func (o *Object) Index(i int) (Value, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.native.(arrayData)
	if !ok || i < 0 || i >= len(a) {
		return Value{}, false
	}
	return a[i], true
}

// Elements returns a copy of the elements of an array object.
func (o *Object) Elements() []Value {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, _ := o.native.(arrayData)
	out := make([]Value, len(a))
	copy(out, a)
	return out
}

// SetIndex stores v at element i after checking it against the component
// type. The check mirrors array store semantics: primitives must match
// exactly, references must be instances of the component class.
func (o *Object) SetIndex(i int, v Value) bool {
	comp := o.class.component
	if comp == nil || !storable(comp, v) {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	a := o.native.(arrayData)
	if i < 0 || i >= len(a) {
		return false
	}
	a[i] = v
	return true
}

func storable(t *Class, v Value) bool {
	if t.IsPrimitive() {
		return v.kind == t.kind
	}
	if v.kind != KindReference {
		return false
	}
	return v.obj == nil || t.IsInstance(v.obj)
}

func (o *Object) field(slot int) Value {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.fields[slot]
}

func (o *Object) setField(slot int, v Value) {
	o.mu.Lock()
	o.fields[slot] = v
	o.mu.Unlock()
}

func (o *Object) String() string {
	if o == nil {
		return "null"
	}
	switch n := o.Native().(type) {
	case stringData:
		return string(utf16.Decode(n))
	case boxData:
		return Value(n).String()
	case *listData:
		return joinValues(snapshot(o))
	case *throwableState:
		if n.message == "" {
			return o.class.name
		}
		return o.class.name + ": " + n.message
	case *Class:
		if n.IsInterface() {
			return "interface " + n.name
		}
		if n.IsPrimitive() {
			return n.name
		}
		return "class " + n.name
	}
	return fmt.Sprintf("%s@%x", o.class.name, o.id)
}

type (
	stringData []uint16
	boxData    Value
	arrayData  []Value
)
