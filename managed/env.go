package managed

import (
	"fmt"
	"unicode/utf16"

	"go.uber.org/zap"
)

// ThreadID identifies a managed thread.
type ThreadID uint64

// Env is the execution context of one managed thread. An Env must only be
// used by the goroutine it was attached to.
type Env struct {
	vm     *VM
	name   string
	frames []string
	id     ThreadID
}

func (e *Env) VM() *VM            { return e.vm }
func (e *Env) ThreadID() ThreadID { return e.id }
func (e *Env) Name() string       { return e.name }

// StackTrace returns the current frames, innermost first.
func (e *Env) StackTrace() []string {
	out := make([]string, len(e.frames))
	for i, f := range e.frames {
		out[len(e.frames)-1-i] = f
	}
	return out
}

func (e *Env) push(frame string) { e.frames = append(e.frames, frame) }
func (e *Env) pop()              { e.frames = e.frames[:len(e.frames)-1] }

// New allocates an instance of c and runs ctor on it.
func (e *Env) New(ctor *Constructor, args []Value) (obj *Object, err error) {
	c := ctor.class
	if c.IsAbstract() || c.IsInterface() {
		return nil, e.Throw("java.lang.InstantiationException", "%s", c.name)
	}
	if err := e.checkArgs(ctor.params, args); err != nil {
		return nil, err
	}
	obj = e.vm.alloc(c)
	if ctor.impl == nil {
		return obj, nil
	}

	e.push(c.name + ".<init>")
	defer e.pop()
	defer e.recoverPanic(c.name+".<init>", &err)

	if err := ctor.impl(e, obj, args); err != nil {
		return nil, e.asThrowable(err)
	}
	return obj, nil
}

// Invoke calls m. Instance methods dispatch virtually on this.
func (e *Env) Invoke(m *Method, this *Object, args []Value) (result Value, err error) {
	target := m
	if !m.IsStatic() {
		if this == nil {
			return Value{}, e.Throw("java.lang.NullPointerException",
				"Cannot invoke \"%s\" because the receiver is null", m.signature())
		}
		if !m.class.IsInstance(this) {
			return Value{}, e.Throw("java.lang.IllegalArgumentException",
				"object is not an instance of declaring class %s", m.class.name)
		}
		target = this.class.implementation(m)
	}
	if err := e.checkArgs(m.params, args); err != nil {
		return Value{}, err
	}
	if target.impl == nil {
		return Value{}, e.Throw("java.lang.AbstractMethodError", "%s", target.String())
	}

	frame := target.class.name + "." + target.name
	e.push(frame)
	defer e.pop()
	defer e.recoverPanic(frame, &err)

	result, err = target.impl(e, this, args)
	if err != nil {
		return Value{}, e.asThrowable(err)
	}
	if m.ret.kind == KindVoid {
		return Void, nil
	}
	return result, nil
}

// CallMethod invokes the first visible method called name that accepts
// args exactly. It is meant for builtins calling back into objects.
func (e *Env) CallMethod(this *Object, name string, args ...Value) (Value, error) {
	if this == nil {
		return Value{}, e.Throw("java.lang.NullPointerException", "Cannot invoke \"%s\" on null", name)
	}
	for _, m := range this.class.Methods() {
		if m.name != name || len(m.params) != len(args) || m.IsStatic() {
			continue
		}
		ok := true
		for i, p := range m.params {
			if !storable(p, args[i]) {
				ok = false
				break
			}
		}
		if ok {
			return e.Invoke(m, this, args)
		}
	}
	return Value{}, e.Throw("java.lang.NoSuchMethodError", "%s.%s", this.class.name, name)
}

// GetField reads f. this is ignored for static fields.
func (e *Env) GetField(f *Field, this *Object) (Value, error) {
	if f.IsStatic() {
		f.class.statics.RLock()
		defer f.class.statics.RUnlock()
		return f.static, nil
	}
	if this == nil {
		return Value{}, e.Throw("java.lang.NullPointerException",
			"Cannot read field \"%s\" because the receiver is null", f.name)
	}
	if !f.class.IsInstance(this) {
		return Value{}, e.Throw("java.lang.IllegalArgumentException",
			"Can not get field %s on %s", f, this.class.name)
	}
	return this.field(f.slot), nil
}

// SetField assigns v to f. Final fields cannot be written.
func (e *Env) SetField(f *Field, this *Object, v Value) error {
	if f.IsFinal() {
		return e.Throw("java.lang.IllegalAccessException",
			"Can not set final field %s", f)
	}
	if !storable(f.typ, v) {
		return e.Throw("java.lang.IllegalArgumentException",
			"Can not set %s field %s to %s", f.typ.TypeName(), f, v.kind)
	}
	if f.IsStatic() {
		f.class.statics.Lock()
		f.static = v
		f.class.statics.Unlock()
		return nil
	}
	if this == nil {
		return e.Throw("java.lang.NullPointerException",
			"Cannot assign field \"%s\" because the receiver is null", f.name)
	}
	if !f.class.IsInstance(this) {
		return e.Throw("java.lang.IllegalArgumentException",
			"Can not set field %s on %s", f, this.class.name)
	}
	this.setField(f.slot, v)
	return nil
}

// NewString creates a java.lang.String from a Go string.
func (e *Env) NewString(s string) *Object {
	return e.vm.NewStringUTF16(utf16.Encode([]rune(s)))
}

// NewArray creates an array of n default values of component.
func (e *Env) NewArray(component *Class, n int) (*Object, error) {
	if n < 0 {
		return nil, e.Throw("java.lang.NegativeArraySizeException", "%d", n)
	}
	return e.vm.newArray(component, n), nil
}

func (e *Env) checkArgs(params []*Class, args []Value) error {
	if len(params) != len(args) {
		return e.Throw("java.lang.IllegalArgumentException",
			"wrong number of arguments: %d expected: %d", len(args), len(params))
	}
	for i, p := range params {
		if !storable(p, args[i]) {
			return e.Throw("java.lang.IllegalArgumentException",
				"argument type mismatch at %d: expected %s", i, p.TypeName())
		}
	}
	return nil
}

// asThrowable keeps managed exceptions as they are and wraps plain Go
// errors returned by native code in a RuntimeException.
func (e *Env) asThrowable(err error) error {
	if _, ok := AsException(err); ok {
		return err
	}
	return e.Throw("java.lang.RuntimeException", "%s", err.Error())
}

func (e *Env) recoverPanic(frame string, err *error) {
	if r := recover(); r != nil {
		Logger().Error("native method panicked",
			zap.String("frame", frame),
			zap.Any("panic", r),
			zap.Uint64("thread", uint64(e.id)))
		*err = e.Throw("java.lang.InternalError", "%s: %v", frame, r)
	}
}

func (e *Env) String() string {
	return fmt.Sprintf("Thread[#%d,%s]", e.id, e.name)
}
