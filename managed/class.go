package managed

import (
	"strings"
	"sync"
)

// Modifier is a bit set of member and class modifiers.
type Modifier uint16

const (
	ModPublic Modifier = 1 << iota
	ModStatic
	ModFinal
	ModAbstract
	ModInterface
	ModNative
)

// Class is a managed type: primitive, array, interface or class.
// Members are kept in declaration order.
type Class struct {
	vm         *VM
	super      *Class
	component  *Class
	name       string
	interfaces []*Class
	ctors      []*Constructor
	methods    []*Method
	fields     []*Field
	slots      int // instance field slots including inherited ones
	kind       Kind
	mods       Modifier
	defined    bool

	statics sync.RWMutex // guards static field values
}

func (c *Class) Name() string          { return c.name }
func (c *Class) Kind() Kind            { return c.kind }
func (c *Class) Super() *Class         { return c.super }
func (c *Class) Component() *Class     { return c.component }
func (c *Class) Interfaces() []*Class  { return c.interfaces }
func (c *Class) Modifiers() Modifier   { return c.mods }
func (c *Class) IsPrimitive() bool     { return c.kind.IsPrimitive() || c.kind == KindVoid }
func (c *Class) IsArray() bool         { return c.component != nil }
func (c *Class) IsInterface() bool     { return c.mods&ModInterface != 0 }
func (c *Class) IsAbstract() bool      { return c.mods&ModAbstract != 0 }
func (c *Class) String() string        { return c.name }
func (c *Class) VM() *VM               { return c.vm }

// Constructors returns the constructors declared by c.
func (c *Class) Constructors() []*Constructor { return c.ctors }

// DeclaredMethods returns the methods declared by c itself.
func (c *Class) DeclaredMethods() []*Method { return c.methods }

// DeclaredFields returns the fields declared by c itself.
func (c *Class) DeclaredFields() []*Field { return c.fields }

// SimpleName returns the name without its package.
func (c *Class) SimpleName() string {
	if c.IsArray() {
		return c.component.SimpleName() + "[]"
	}
	if i := strings.LastIndexByte(c.name, '.'); i >= 0 {
		return c.name[i+1:]
	}
	return c.name
}

// TypeName returns the source-style name ("int[]" rather than "[I").
func (c *Class) TypeName() string {
	if c.IsArray() {
		return c.component.TypeName() + "[]"
	}
	return c.name
}

// descriptor returns the field descriptor of c ("I", "[I", "Ljava.lang.String;").
func (c *Class) descriptor() string {
	switch {
	case c.IsArray():
		return "[" + c.component.descriptor()
	case c.kind == KindReference:
		return "L" + c.name + ";"
	}
	return string(c.kind.Descriptor())
}

// IsAssignableFrom reports whether a value of type other can be stored in
// a variable of type c without conversion (identity or reference widening).
func (c *Class) IsAssignableFrom(other *Class) bool {
	_, ok := c.SuperDistance(other)
	return ok
}

// SuperDistance returns how many supertype steps separate other from c,
// and whether c is a supertype of other at all. Interfaces count one step
// beyond the class that implements them.
func (c *Class) SuperDistance(other *Class) (int, bool) {
	if other == nil {
		return 0, false
	}
	if c == other {
		return 0, true
	}
	if c.IsPrimitive() || other.IsPrimitive() {
		return 0, false
	}
	if other.IsArray() {
		if c.IsArray() {
			if c.component.IsPrimitive() || other.component.IsPrimitive() {
				return 0, false
			}
			return c.component.SuperDistance(other.component)
		}
		// arrays are Objects
		if c.name == "java.lang.Object" {
			return 1, true
		}
		return 0, false
	}

	best, found := 0, false
	if other.super != nil {
		if d, ok := c.SuperDistance(other.super); ok {
			best, found = d+1, true
		}
	}
	for _, iface := range other.interfaces {
		if d, ok := c.SuperDistance(iface); ok && (!found || d+1 < best) {
			best, found = d+1, true
		}
	}
	if !found && other.IsInterface() && c.name == "java.lang.Object" {
		return 1, true
	}
	return best, found
}

// IsInstance reports whether o is an instance of c.
func (c *Class) IsInstance(o *Object) bool {
	return o != nil && c.IsAssignableFrom(o.class)
}

// Methods returns every method visible on c: declared first, then
// inherited from superclasses, then from interfaces. Overridden methods
// appear once, at the most derived declaration.
func (c *Class) Methods() []*Method {
	var out []*Method
	seen := make(map[string]bool)
	c.walk(func(k *Class) {
		for _, m := range k.methods {
			sig := m.signature()
			if seen[sig] {
				continue
			}
			seen[sig] = true
			out = append(out, m)
		}
	})
	return out
}

// Fields returns every field visible on c in the same order as Methods.
func (c *Class) Fields() []*Field {
	var out []*Field
	seen := make(map[string]bool)
	c.walk(func(k *Class) {
		for _, f := range k.fields {
			if seen[f.name] {
				continue
			}
			seen[f.name] = true
			out = append(out, f)
		}
	})
	return out
}

// walk visits c, its superclasses, then all reachable interfaces once.
func (c *Class) walk(fn func(*Class)) {
	visited := make(map[*Class]bool)
	var ifaces []*Class
	for k := c; k != nil; k = k.super {
		visited[k] = true
		fn(k)
		ifaces = append(ifaces, k.interfaces...)
	}
	for len(ifaces) > 0 {
		k := ifaces[0]
		ifaces = ifaces[1:]
		if visited[k] {
			continue
		}
		visited[k] = true
		fn(k)
		ifaces = append(ifaces, k.interfaces...)
	}
}

// MethodByName returns the first visible method with name and arity,
// or nil. arity < 0 matches any arity.
func (c *Class) MethodByName(name string, arity int) *Method {
	for _, m := range c.Methods() {
		if m.name == name && (arity < 0 || len(m.params) == arity) {
			return m
		}
	}
	return nil
}

// FieldByName returns the visible field called name, or nil.
func (c *Class) FieldByName(name string) *Field {
	for _, f := range c.Fields() {
		if f.name == name {
			return f
		}
	}
	return nil
}

// implementation finds the concrete method that m dispatches to on an
// instance of c.
func (c *Class) implementation(m *Method) *Method {
	if m.IsStatic() {
		return m
	}
	sig := m.signature()
	for k := c; k != nil; k = k.super {
		for _, cand := range k.methods {
			if cand.impl != nil && cand.signature() == sig {
				return cand
			}
		}
	}
	return m
}

// Member is a constructor, method or field.
type Member interface {
	Name() string
	DeclaringClass() *Class
	Modifiers() Modifier
	IsStatic() bool
	String() string
}

// ConstructorFunc initializes this from the constructor arguments.
type ConstructorFunc func(env *Env, this *Object, args []Value) error

// MethodFunc implements a method. this is nil for static methods.
type MethodFunc func(env *Env, this *Object, args []Value) (Value, error)

// Constructor is a managed constructor.
type Constructor struct {
	class  *Class
	impl   ConstructorFunc
	params []*Class
	mods   Modifier
}

func (c *Constructor) Name() string             { return "<init>" }
func (c *Constructor) DeclaringClass() *Class   { return c.class }
func (c *Constructor) Modifiers() Modifier      { return c.mods }
func (c *Constructor) IsStatic() bool           { return false }
func (c *Constructor) ParameterTypes() []*Class { return c.params }

func (c *Constructor) String() string {
	return c.class.name + "(" + typeList(c.params) + ")"
}

// Method is a managed method.
type Method struct {
	class  *Class
	ret    *Class
	impl   MethodFunc
	name   string
	params []*Class
	mods   Modifier
}

func (m *Method) Name() string             { return m.name }
func (m *Method) DeclaringClass() *Class   { return m.class }
func (m *Method) Modifiers() Modifier      { return m.mods }
func (m *Method) IsStatic() bool           { return m.mods&ModStatic != 0 }
func (m *Method) IsAbstract() bool         { return m.impl == nil }
func (m *Method) ParameterTypes() []*Class { return m.params }
func (m *Method) ReturnType() *Class       { return m.ret }

func (m *Method) signature() string {
	return m.name + "(" + typeList(m.params) + ")"
}

func (m *Method) String() string {
	var b strings.Builder
	if m.IsStatic() {
		b.WriteString("static ")
	}
	b.WriteString(m.ret.TypeName())
	b.WriteByte(' ')
	b.WriteString(m.class.name)
	b.WriteByte('.')
	b.WriteString(m.signature())
	return b.String()
}

// Field is a managed field. Static fields store their value on the field;
// instance fields index into the object's slots.
type Field struct {
	class  *Class
	typ    *Class
	name   string
	static Value
	slot   int
	mods   Modifier
}

func (f *Field) Name() string           { return f.name }
func (f *Field) DeclaringClass() *Class { return f.class }
func (f *Field) Modifiers() Modifier    { return f.mods }
func (f *Field) IsStatic() bool         { return f.mods&ModStatic != 0 }
func (f *Field) IsFinal() bool          { return f.mods&ModFinal != 0 }
func (f *Field) Type() *Class           { return f.typ }

func (f *Field) String() string {
	prefix := ""
	if f.IsStatic() {
		prefix = "static "
	}
	return prefix + f.typ.TypeName() + " " + f.class.name + "." + f.name
}

func typeList(types []*Class) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.TypeName()
	}
	return strings.Join(names, ",")
}
