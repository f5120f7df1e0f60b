package managed

import (
	"fmt"
	"strings"
)

// ClassBuilder declares a class. Type names given to the builder may refer
// to classes that are not registered yet; they must be registered before
// any of their instances are created.
//
//	vm.NewClass("demo.Counter").
//		Field("count", "int").
//		Constructor(nil, nil).
//		Method("inc", "int", nil, incFn).
//		Register()
type ClassBuilder struct {
	vm  *VM
	c   *Class
	err error
}

// NewClass starts the declaration of a class called name.
func (vm *VM) NewClass(name string) *ClassBuilder {
	c := vm.typeRef(name)
	b := &ClassBuilder{vm: vm, c: c}
	switch {
	case c == nil || c.IsPrimitive() || c.IsArray():
		b.err = fmt.Errorf("invalid class name %q", name)
	case c.defined:
		b.err = fmt.Errorf("class %s already defined", name)
	default:
		c.mods |= ModPublic
	}
	return b
}

// typeRef resolves a type name for a declaration, creating an undefined
// placeholder for classes that do not exist yet.
func (vm *VM) typeRef(name string) *Class {
	name = strings.ReplaceAll(strings.TrimSpace(name), "/", ".")
	if name == "" {
		return nil
	}
	if strings.HasSuffix(name, "[]") {
		comp := vm.typeRef(strings.TrimSuffix(name, "[]"))
		if comp == nil || comp.kind == KindVoid {
			return nil
		}
		return vm.ArrayOf(comp)
	}
	if strings.HasPrefix(name, "[") {
		return vm.lookup(name)
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if c, ok := vm.classes[name]; ok {
		return c
	}
	c := &Class{vm: vm, name: name, kind: KindReference}
	if k, ok := kindByName(name); ok {
		c.kind = k
		c.mods = ModPublic | ModFinal
		c.defined = true
	}
	vm.classes[name] = c
	return c
}

func (b *ClassBuilder) types(names []string) []*Class {
	out := make([]*Class, len(names))
	for i, n := range names {
		out[i] = b.vm.typeRef(n)
		if out[i] == nil || out[i].kind == KindVoid {
			b.fail("invalid parameter type %q", n)
		}
	}
	return out
}

func (b *ClassBuilder) returnType(name string) *Class {
	c := b.vm.typeRef(name)
	if c == nil {
		b.fail("invalid return type %q", name)
	}
	return c
}

func (b *ClassBuilder) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("%s: %s", b.c.name, fmt.Sprintf(format, args...))
	}
}

// Extends sets the superclass.
func (b *ClassBuilder) Extends(name string) *ClassBuilder {
	b.c.super = b.vm.typeRef(name)
	if b.c.super == nil {
		b.fail("invalid superclass %q", name)
	}
	return b
}

// Implements adds interfaces.
func (b *ClassBuilder) Implements(names ...string) *ClassBuilder {
	for _, n := range names {
		iface := b.vm.typeRef(n)
		if iface == nil {
			b.fail("invalid interface %q", n)
			continue
		}
		b.c.interfaces = append(b.c.interfaces, iface)
	}
	return b
}

// Interface marks the class as an interface.
func (b *ClassBuilder) Interface() *ClassBuilder {
	b.c.mods |= ModInterface | ModAbstract
	return b
}

// Abstract marks the class as abstract.
func (b *ClassBuilder) Abstract() *ClassBuilder {
	b.c.mods |= ModAbstract
	return b
}

// Final marks the class as final.
func (b *ClassBuilder) Final() *ClassBuilder {
	b.c.mods |= ModFinal
	return b
}

// Constructor declares a constructor. A nil fn leaves fields at their
// defaults.
func (b *ClassBuilder) Constructor(params []string, fn ConstructorFunc) *ClassBuilder {
	b.c.ctors = append(b.c.ctors, &Constructor{
		class:  b.c,
		params: b.types(params),
		impl:   fn,
		mods:   ModPublic,
	})
	return b
}

// Method declares an instance method.
func (b *ClassBuilder) Method(name, ret string, params []string, fn MethodFunc) *ClassBuilder {
	return b.method(name, ret, params, fn, ModPublic)
}

// StaticMethod declares a static method.
func (b *ClassBuilder) StaticMethod(name, ret string, params []string, fn MethodFunc) *ClassBuilder {
	if fn == nil {
		b.fail("static method %s has no body", name)
	}
	return b.method(name, ret, params, fn, ModPublic|ModStatic)
}

// AbstractMethod declares a method without a body.
func (b *ClassBuilder) AbstractMethod(name, ret string, params ...string) *ClassBuilder {
	return b.method(name, ret, params, nil, ModPublic|ModAbstract)
}

func (b *ClassBuilder) method(name, ret string, params []string, fn MethodFunc, mods Modifier) *ClassBuilder {
	m := &Method{
		class:  b.c,
		name:   name,
		ret:    b.returnType(ret),
		params: b.types(params),
		impl:   fn,
		mods:   mods,
	}
	for _, prev := range b.c.methods {
		if prev.signature() == m.signature() {
			b.fail("duplicate method %s", m.signature())
		}
	}
	b.c.methods = append(b.c.methods, m)
	return b
}

// Field declares an instance field.
func (b *ClassBuilder) Field(name, typ string) *ClassBuilder {
	return b.field(name, typ, ModPublic, Value{})
}

// StaticField declares a mutable static field.
func (b *ClassBuilder) StaticField(name, typ string, v Value) *ClassBuilder {
	return b.field(name, typ, ModPublic|ModStatic, v)
}

// Constant declares a static final field.
func (b *ClassBuilder) Constant(name, typ string, v Value) *ClassBuilder {
	return b.field(name, typ, ModPublic|ModStatic|ModFinal, v)
}

func (b *ClassBuilder) field(name, typ string, mods Modifier, v Value) *ClassBuilder {
	t := b.vm.typeRef(typ)
	if t == nil || t.kind == KindVoid {
		b.fail("invalid field type %q", typ)
		return b
	}
	for _, f := range b.c.fields {
		if f.name == name {
			b.fail("duplicate field %s", name)
		}
	}
	f := &Field{class: b.c, name: name, typ: t, mods: mods}
	if mods&ModStatic != 0 {
		f.static = v
		if v == (Value{}) {
			f.static = Zero(t.kind)
		}
	}
	b.c.fields = append(b.c.fields, f)
	return b
}

// Register defines the class. The superclass must already be defined.
func (b *ClassBuilder) Register() (*Class, error) {
	if b.err != nil {
		return nil, b.err
	}
	c := b.c
	vm := b.vm

	if c.super == nil && !c.IsInterface() && c != vm.object && vm.object != nil {
		c.super = vm.object
	}
	if c.super != nil {
		if !c.super.defined {
			return nil, fmt.Errorf("%s: superclass %s is not defined", c.name, c.super.name)
		}
		if c.super.IsInterface() {
			return nil, fmt.Errorf("%s: cannot extend interface %s", c.name, c.super.name)
		}
		c.slots = c.super.slots
	}
	for _, f := range c.fields {
		if !f.IsStatic() {
			if c.IsInterface() {
				return nil, fmt.Errorf("%s: interface field %s must be static", c.name, f.name)
			}
			f.slot = c.slots
			c.slots++
		}
	}
	for _, m := range c.methods {
		if m.impl == nil && !c.IsAbstract() {
			return nil, fmt.Errorf("%s: abstract method %s in concrete class", c.name, m.signature())
		}
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if c.defined {
		return nil, fmt.Errorf("class %s already defined", c.name)
	}
	c.defined = true
	return c, nil
}

// MustRegister is Register for declarations that cannot fail at runtime.
func (b *ClassBuilder) MustRegister() *Class {
	c, err := b.Register()
	if err != nil {
		panic("managed: " + err.Error())
	}
	return c
}
