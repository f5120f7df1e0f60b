package managed

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"
)

func params(types ...string) []string { return types }

func (vm *VM) bootstrap() error {
	for k := KindVoid; k <= KindDouble; k++ {
		vm.typeRef(k.String())
	}

	steps := []func() error{
		vm.defineObject,
		vm.defineInterfaces,
		vm.defineString,
		vm.defineClass,
		vm.defineThrowables,
		vm.defineBoxes,
		vm.defineMath,
		vm.defineSystem,
		vm.defineThread,
		vm.defineUtil,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	vm.str = vm.mustClass("java.lang.String")
	vm.classCls = vm.mustClass("java.lang.Class")
	vm.throwable = vm.mustClass("java.lang.Throwable")
	return nil
}

// goString converts a String reference to Go, "null" for null.
func goString(v Value) string {
	if v.obj == nil {
		return "null"
	}
	if s, ok := v.obj.GoString(); ok {
		return s
	}
	return v.obj.String()
}

func (e *Env) str(s string) Value { return Ref(e.NewString(s)) }

func (vm *VM) defineObject() error {
	c, err := vm.NewClass("java.lang.Object").
		Constructor(nil, nil).
		Method("toString", "java.lang.String", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			return env.str(this.String()), nil
		}).
		Method("hashCode", "int", nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
			return Int(int32(this.id)), nil
		}).
		Method("equals", "boolean", params("java.lang.Object"), func(_ *Env, this *Object, args []Value) (Value, error) {
			return Boolean(args[0].obj == this), nil
		}).
		Method("getClass", "java.lang.Class", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			return Ref(env.vm.ClassObject(this.class)), nil
		}).
		Register()
	if err != nil {
		return err
	}
	vm.object = c
	return nil
}

func (vm *VM) defineInterfaces() error {
	builders := []*ClassBuilder{
		vm.NewClass("java.lang.Comparable").Interface().
			AbstractMethod("compareTo", "int", "java.lang.Object"),
		vm.NewClass("java.lang.CharSequence").Interface().
			AbstractMethod("length", "int").
			AbstractMethod("charAt", "char", "int"),
		vm.NewClass("java.lang.Runnable").Interface().
			AbstractMethod("run", "void"),
	}
	for _, b := range builders {
		if _, err := b.Register(); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) defineString() error {
	chars := func(o *Object) []uint16 {
		s, _ := o.Chars()
		return s
	}
	strArg := func(env *Env, v Value) (string, error) {
		if v.obj == nil {
			return "", env.Throw("java.lang.NullPointerException", "")
		}
		return goString(v), nil
	}
	bounds := func(env *Env, n, begin, end int) error {
		if begin < 0 || end > n || begin > end {
			return env.Throw("java.lang.StringIndexOutOfBoundsException",
				"begin %d, end %d, length %d", begin, end, n)
		}
		return nil
	}

	b := vm.NewClass("java.lang.String").Final().
		Implements("java.lang.CharSequence", "java.lang.Comparable").
		Constructor(nil, func(_ *Env, this *Object, _ []Value) error {
			this.native = stringData{}
			return nil
		}).
		Constructor(params("java.lang.String"), func(env *Env, this *Object, args []Value) error {
			if args[0].obj == nil {
				return env.Throw("java.lang.NullPointerException", "")
			}
			this.native = append(stringData(nil), chars(args[0].obj)...)
			return nil
		}).
		Constructor(params("char[]"), func(env *Env, this *Object, args []Value) error {
			if args[0].obj == nil {
				return env.Throw("java.lang.NullPointerException", "")
			}
			elems := args[0].obj.Elements()
			s := make(stringData, len(elems))
			for i, v := range elems {
				s[i] = v.AsChar()
			}
			this.native = s
			return nil
		}).
		Constructor(params("byte[]"), func(env *Env, this *Object, args []Value) error {
			if args[0].obj == nil {
				return env.Throw("java.lang.NullPointerException", "")
			}
			elems := args[0].obj.Elements()
			raw := make([]byte, len(elems))
			for i, v := range elems {
				raw[i] = byte(v.AsByte())
			}
			this.native = stringData(utf16.Encode([]rune(strings.ToValidUTF8(string(raw), "�"))))
			return nil
		}).
		Method("length", "int", nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
			return Int(int32(len(chars(this)))), nil
		}).
		Method("isEmpty", "boolean", nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
			return Boolean(len(chars(this)) == 0), nil
		}).
		Method("charAt", "char", params("int"), func(env *Env, this *Object, args []Value) (Value, error) {
			s, i := chars(this), int(args[0].AsInt())
			if i < 0 || i >= len(s) {
				return Value{}, env.Throw("java.lang.StringIndexOutOfBoundsException",
					"index %d, length %d", i, len(s))
			}
			return Char(s[i]), nil
		}).
		Method("substring", "java.lang.String", params("int"), func(env *Env, this *Object, args []Value) (Value, error) {
			s := chars(this)
			begin := int(args[0].AsInt())
			if err := bounds(env, len(s), begin, len(s)); err != nil {
				return Value{}, err
			}
			return Ref(vm.NewStringUTF16(append([]uint16(nil), s[begin:]...))), nil
		}).
		Method("substring", "java.lang.String", params("int", "int"), func(env *Env, this *Object, args []Value) (Value, error) {
			s := chars(this)
			begin, end := int(args[0].AsInt()), int(args[1].AsInt())
			if err := bounds(env, len(s), begin, end); err != nil {
				return Value{}, err
			}
			return Ref(vm.NewStringUTF16(append([]uint16(nil), s[begin:end]...))), nil
		}).
		Method("concat", "java.lang.String", params("java.lang.String"), func(env *Env, this *Object, args []Value) (Value, error) {
			if args[0].obj == nil {
				return Value{}, env.Throw("java.lang.NullPointerException", "")
			}
			s := append(append([]uint16(nil), chars(this)...), chars(args[0].obj)...)
			return Ref(vm.NewStringUTF16(s)), nil
		}).
		Method("indexOf", "int", params("java.lang.String"), func(env *Env, this *Object, args []Value) (Value, error) {
			needle, err := strArg(env, args[0])
			if err != nil {
				return Value{}, err
			}
			hay := goString(Ref(this))
			i := strings.Index(hay, needle)
			if i < 0 {
				return Int(-1), nil
			}
			return Int(int32(len(utf16.Encode([]rune(hay[:i]))))), nil
		}).
		Method("contains", "boolean", params("java.lang.CharSequence"), func(env *Env, this *Object, args []Value) (Value, error) {
			needle, err := strArg(env, args[0])
			if err != nil {
				return Value{}, err
			}
			return Boolean(strings.Contains(goString(Ref(this)), needle)), nil
		}).
		Method("startsWith", "boolean", params("java.lang.String"), func(env *Env, this *Object, args []Value) (Value, error) {
			p, err := strArg(env, args[0])
			if err != nil {
				return Value{}, err
			}
			return Boolean(strings.HasPrefix(goString(Ref(this)), p)), nil
		}).
		Method("endsWith", "boolean", params("java.lang.String"), func(env *Env, this *Object, args []Value) (Value, error) {
			p, err := strArg(env, args[0])
			if err != nil {
				return Value{}, err
			}
			return Boolean(strings.HasSuffix(goString(Ref(this)), p)), nil
		}).
		Method("toUpperCase", "java.lang.String", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			return env.str(strings.ToUpper(goString(Ref(this)))), nil
		}).
		Method("toLowerCase", "java.lang.String", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			return env.str(strings.ToLower(goString(Ref(this)))), nil
		}).
		Method("trim", "java.lang.String", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			return env.str(strings.TrimFunc(goString(Ref(this)), func(r rune) bool { return r <= ' ' })), nil
		}).
		Method("getBytes", "byte[]", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			raw := []byte(goString(Ref(this)))
			vals := make([]Value, len(raw))
			for i, c := range raw {
				vals[i] = Byte(int8(c))
			}
			arr, _ := vm.NewArrayOf(vm.PrimitiveClass(KindByte), vals)
			return Ref(arr), nil
		}).
		Method("toCharArray", "char[]", nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
			s := chars(this)
			vals := make([]Value, len(s))
			for i, c := range s {
				vals[i] = Char(c)
			}
			arr, _ := vm.NewArrayOf(vm.PrimitiveClass(KindChar), vals)
			return Ref(arr), nil
		}).
		Method("equals", "boolean", params("java.lang.Object"), func(_ *Env, this *Object, args []Value) (Value, error) {
			other := args[0].obj
			if other == nil || !other.IsString() {
				return Boolean(false), nil
			}
			return Boolean(equalUnits(chars(this), chars(other))), nil
		}).
		Method("hashCode", "int", nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
			var h int32
			for _, c := range chars(this) {
				h = 31*h + int32(c)
			}
			return Int(h), nil
		}).
		Method("compareTo", "int", params("java.lang.String"), func(env *Env, this *Object, args []Value) (Value, error) {
			if args[0].obj == nil {
				return Value{}, env.Throw("java.lang.NullPointerException", "")
			}
			return Int(compareUnits(chars(this), chars(args[0].obj))), nil
		}).
		Method("compareTo", "int", params("java.lang.Object"), func(env *Env, this *Object, args []Value) (Value, error) {
			other := args[0].obj
			if other == nil {
				return Value{}, env.Throw("java.lang.NullPointerException", "")
			}
			if !other.IsString() {
				return Value{}, env.Throw("java.lang.ClassCastException",
					"class %s cannot be cast to class java.lang.String", other.class.name)
			}
			return Int(compareUnits(chars(this), chars(other))), nil
		})

	valueOf := func(t string) {
		b.StaticMethod("valueOf", "java.lang.String", params(t), func(env *Env, _ *Object, args []Value) (Value, error) {
			return env.str(args[0].String()), nil
		})
	}
	for _, t := range []string{"boolean", "char", "int", "long", "float", "double", "java.lang.Object"} {
		valueOf(t)
	}
	b.StaticMethod("join", "java.lang.String", params("java.lang.CharSequence", "java.lang.String[]"),
		func(env *Env, _ *Object, args []Value) (Value, error) {
			if args[0].obj == nil || args[1].obj == nil {
				return Value{}, env.Throw("java.lang.NullPointerException", "")
			}
			elems := args[1].obj.Elements()
			parts := make([]string, len(elems))
			for i, v := range elems {
				parts[i] = goString(v)
			}
			return env.str(strings.Join(parts, goString(args[0]))), nil
		})

	_, err := b.Register()
	return err
}

func equalUnits(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func compareUnits(a, b []uint16) int32 {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int32(a[i]) - int32(b[i])
		}
	}
	return int32(len(a) - len(b))
}

func (vm *VM) defineClass() error {
	class := func(o *Object) *Class {
		c, _ := o.native.(*Class)
		return c
	}
	_, err := vm.NewClass("java.lang.Class").Final().
		Method("getName", "java.lang.String", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			return env.str(class(this).name), nil
		}).
		Method("getSimpleName", "java.lang.String", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			return env.str(class(this).SimpleName()), nil
		}).
		Method("isInterface", "boolean", nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
			return Boolean(class(this).IsInterface()), nil
		}).
		Method("isArray", "boolean", nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
			return Boolean(class(this).IsArray()), nil
		}).
		Method("isPrimitive", "boolean", nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
			return Boolean(class(this).IsPrimitive()), nil
		}).
		Method("isInstance", "boolean", params("java.lang.Object"), func(_ *Env, this *Object, args []Value) (Value, error) {
			return Boolean(class(this).IsInstance(args[0].obj)), nil
		}).
		Method("equals", "boolean", params("java.lang.Object"), func(_ *Env, this *Object, args []Value) (Value, error) {
			return Boolean(args[0].obj != nil && class(args[0].obj) == class(this)), nil
		}).
		StaticMethod("forName", "java.lang.Class", params("java.lang.String"), func(env *Env, _ *Object, args []Value) (Value, error) {
			name := goString(args[0])
			c := env.vm.lookup(name)
			if c == nil || c.IsPrimitive() {
				return Value{}, env.Throw("java.lang.ClassNotFoundException", "%s", name)
			}
			return Ref(env.vm.ClassObject(c)), nil
		}).
		Register()
	return err
}

// throwables lists the builtin exception classes with their superclass,
// parents first.
var throwables = [][2]string{
	{"java.lang.Throwable", "java.lang.Object"},
	{"java.lang.Exception", "java.lang.Throwable"},
	{"java.lang.Error", "java.lang.Throwable"},
	{"java.lang.RuntimeException", "java.lang.Exception"},
	{"java.lang.InterruptedException", "java.lang.Exception"},
	{"java.lang.ReflectiveOperationException", "java.lang.Exception"},
	{"java.lang.ClassNotFoundException", "java.lang.ReflectiveOperationException"},
	{"java.lang.InstantiationException", "java.lang.ReflectiveOperationException"},
	{"java.lang.IllegalAccessException", "java.lang.ReflectiveOperationException"},
	{"java.lang.NoSuchMethodException", "java.lang.ReflectiveOperationException"},
	{"java.lang.IllegalArgumentException", "java.lang.RuntimeException"},
	{"java.lang.NumberFormatException", "java.lang.IllegalArgumentException"},
	{"java.lang.IllegalThreadStateException", "java.lang.IllegalArgumentException"},
	{"java.lang.IllegalStateException", "java.lang.RuntimeException"},
	{"java.lang.NullPointerException", "java.lang.RuntimeException"},
	{"java.lang.ArithmeticException", "java.lang.RuntimeException"},
	{"java.lang.ClassCastException", "java.lang.RuntimeException"},
	{"java.lang.NegativeArraySizeException", "java.lang.RuntimeException"},
	{"java.lang.UnsupportedOperationException", "java.lang.RuntimeException"},
	{"java.lang.IndexOutOfBoundsException", "java.lang.RuntimeException"},
	{"java.lang.ArrayIndexOutOfBoundsException", "java.lang.IndexOutOfBoundsException"},
	{"java.lang.StringIndexOutOfBoundsException", "java.lang.IndexOutOfBoundsException"},
	{"java.lang.LinkageError", "java.lang.Error"},
	{"java.lang.IncompatibleClassChangeError", "java.lang.LinkageError"},
	{"java.lang.NoSuchMethodError", "java.lang.IncompatibleClassChangeError"},
	{"java.lang.AbstractMethodError", "java.lang.IncompatibleClassChangeError"},
	{"java.lang.VirtualMachineError", "java.lang.Error"},
	{"java.lang.InternalError", "java.lang.VirtualMachineError"},
	{"java.lang.StackOverflowError", "java.lang.VirtualMachineError"},
}

func (vm *VM) defineThrowables() error {
	setup := func(env *Env, this *Object, msg string, cause *Object) {
		this.native = &throwableState{message: msg, cause: cause, stack: env.StackTrace()}
	}
	state := func(o *Object) *throwableState {
		st, _ := o.Native().(*throwableState)
		if st == nil {
			return &throwableState{}
		}
		return st
	}

	for _, t := range throwables {
		b := vm.NewClass(t[0]).Extends(t[1]).
			Constructor(nil, func(env *Env, this *Object, _ []Value) error {
				setup(env, this, "", nil)
				return nil
			}).
			Constructor(params("java.lang.String"), func(env *Env, this *Object, args []Value) error {
				msg := ""
				if args[0].obj != nil {
					msg = goString(args[0])
				}
				setup(env, this, msg, nil)
				return nil
			}).
			Constructor(params("java.lang.String", "java.lang.Throwable"), func(env *Env, this *Object, args []Value) error {
				setup(env, this, goString(args[0]), args[1].obj)
				return nil
			})
		if t[0] == "java.lang.Throwable" {
			b.Method("getMessage", "java.lang.String", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
				st := state(this)
				if st.message == "" {
					return Null, nil
				}
				return env.str(st.message), nil
			}).
				Method("getCause", "java.lang.Throwable", nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
					return Ref(state(this).cause), nil
				}).
				Method("getStackTrace", "java.lang.String[]", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
					st := state(this)
					vals := make([]Value, len(st.stack))
					for i, f := range st.stack {
						vals[i] = env.str(f)
					}
					arr, _ := vm.NewArrayOf(vm.str, vals)
					return Ref(arr), nil
				})
		}
		if _, err := b.Register(); err != nil {
			return err
		}
	}
	return nil
}

// boxes lists wrapper classes, their value accessor and parse method.
var boxes = []struct {
	kind     Kind
	accessor string
	parse    string
	min, max Value
}{
	{KindBoolean, "booleanValue", "parseBoolean", Value{}, Value{}},
	{KindChar, "charValue", "", Char(0), Char(math.MaxUint16)},
	{KindByte, "byteValue", "parseByte", Byte(math.MinInt8), Byte(math.MaxInt8)},
	{KindShort, "shortValue", "parseShort", Short(math.MinInt16), Short(math.MaxInt16)},
	{KindInt, "intValue", "parseInt", Int(math.MinInt32), Int(math.MaxInt32)},
	{KindLong, "longValue", "parseLong", Long(math.MinInt64), Long(math.MaxInt64)},
	{KindFloat, "floatValue", "parseFloat", Float(math.SmallestNonzeroFloat32), Float(math.MaxFloat32)},
	{KindDouble, "doubleValue", "parseDouble", Double(math.SmallestNonzeroFloat64), Double(math.MaxFloat64)},
}

func (vm *VM) defineBoxes() error {
	unbox := func(o *Object) Value {
		v, _ := o.Unbox()
		return v
	}

	number := vm.NewClass("java.lang.Number").Abstract()
	for _, bx := range boxes {
		if !bx.kind.IsNumeric() || bx.kind == KindChar {
			continue
		}
		to := bx.kind
		number.Method(bx.accessor, to.String(), nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
			return convertNumber(unbox(this), to), nil
		})
	}
	if _, err := number.Register(); err != nil {
		return err
	}

	for _, bx := range boxes {
		prim := bx.kind.String()
		name := bx.kind.WrapperName()
		b := vm.NewClass(name).Final().Implements("java.lang.Comparable").
			Constructor(params(prim), func(_ *Env, this *Object, args []Value) error {
				this.native = boxData(args[0])
				return nil
			}).
			StaticMethod("valueOf", name, params(prim), func(env *Env, _ *Object, args []Value) (Value, error) {
				return Ref(env.vm.Box(args[0])), nil
			}).
			Method("equals", "boolean", params("java.lang.Object"), func(_ *Env, this *Object, args []Value) (Value, error) {
				other := args[0].obj
				if other == nil || other.class != this.class {
					return Boolean(false), nil
				}
				return Boolean(unbox(other).bits == unbox(this).bits), nil
			}).
			Method("hashCode", "int", nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
				bits := unbox(this).bits
				return Int(int32(bits ^ bits>>32)), nil
			}).
			Method("compareTo", "int", params("java.lang.Object"), func(env *Env, this *Object, args []Value) (Value, error) {
				other := args[0].obj
				if other == nil {
					return Value{}, env.Throw("java.lang.NullPointerException", "")
				}
				if other.class != this.class {
					return Value{}, env.Throw("java.lang.ClassCastException",
						"class %s cannot be cast to class %s", other.class.name, this.class.name)
				}
				return Int(compareValues(unbox(this), unbox(other))), nil
			})

		switch bx.kind {
		case KindBoolean, KindChar:
			b.Method(bx.accessor, prim, nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
				return unbox(this), nil
			})
		default:
			b.Extends("java.lang.Number")
		}
		if bx.kind != KindBoolean {
			b.Constant("MIN_VALUE", prim, bx.min).Constant("MAX_VALUE", prim, bx.max)
		}
		if bx.kind == KindFloat {
			b.Constant("NaN", prim, Float(float32(math.NaN()))).
				Constant("POSITIVE_INFINITY", prim, Float(float32(math.Inf(1)))).
				Constant("NEGATIVE_INFINITY", prim, Float(float32(math.Inf(-1))))
		}
		if bx.kind == KindDouble {
			b.Constant("NaN", prim, Double(math.NaN())).
				Constant("POSITIVE_INFINITY", prim, Double(math.Inf(1))).
				Constant("NEGATIVE_INFINITY", prim, Double(math.Inf(-1)))
		}
		if bx.parse != "" {
			b.StaticMethod(bx.parse, prim, params("java.lang.String"), func(env *Env, _ *Object, args []Value) (Value, error) {
				if args[0].obj == nil {
					return Value{}, env.Throw("java.lang.NumberFormatException", "Cannot parse null string")
				}
				v, ok := parsePrimitive(goString(args[0]), bx.kind)
				if !ok {
					return Value{}, env.Throw("java.lang.NumberFormatException",
						"For input string: \"%s\"", goString(args[0]))
				}
				return v, nil
			})
		}
		if bx.kind == KindChar {
			charPred := func(name string, pred func(rune) bool) {
				b.StaticMethod(name, "boolean", params("char"), func(_ *Env, _ *Object, args []Value) (Value, error) {
					return Boolean(pred(rune(args[0].AsChar()))), nil
				})
			}
			charPred("isDigit", unicode.IsDigit)
			charPred("isLetter", unicode.IsLetter)
			charPred("isWhitespace", unicode.IsSpace)
			b.StaticMethod("toUpperCase", "char", params("char"), func(_ *Env, _ *Object, args []Value) (Value, error) {
				return Char(uint16(unicode.ToUpper(rune(args[0].AsChar())))), nil
			})
		}
		if _, err := b.Register(); err != nil {
			return err
		}
	}
	return nil
}

// convertNumber applies a primitive conversion, narrowing included.
// Floating values saturate the way d2i and d2l do.
func convertNumber(v Value, to Kind) Value {
	if v.kind == to {
		return v
	}
	var i int64
	if v.kind == KindFloat || v.kind == KindDouble {
		f := v.Float64()
		switch to {
		case KindFloat:
			return Float(float32(f))
		case KindDouble:
			return Double(f)
		case KindLong:
			return Long(saturate(f, math.MinInt64, math.MaxInt64))
		}
		i = saturate(f, math.MinInt32, math.MaxInt32)
	} else {
		i = v.Int64()
	}
	switch to {
	case KindByte:
		return Byte(int8(i))
	case KindShort:
		return Short(int16(i))
	case KindChar:
		return Char(uint16(i))
	case KindInt:
		return Int(int32(i))
	case KindLong:
		return Long(i)
	case KindFloat:
		return Float(float32(i))
	case KindDouble:
		return Double(float64(i))
	}
	return v
}

func saturate(f float64, lo, hi int64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f <= float64(lo):
		return lo
	case f >= float64(hi):
		return hi
	}
	return int64(f)
}

func compareValues(a, b Value) int32 {
	switch a.kind {
	case KindFloat, KindDouble:
		x, y := a.Float64(), b.Float64()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		case x == y:
			return 0
		case math.IsNaN(x) && math.IsNaN(y):
			return 0
		case math.IsNaN(x):
			return 1
		}
		return -1
	case KindBoolean:
		return int32(a.bits) - int32(b.bits)
	}
	x, y := a.Int64(), b.Int64()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func parsePrimitive(s string, k Kind) (Value, bool) {
	switch k {
	case KindBoolean:
		return Boolean(strings.EqualFold(s, "true")), true
	case KindFloat, KindDouble:
		bits := 64
		if k == KindFloat {
			bits = 32
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), bits)
		if err != nil && !strings.Contains(err.Error(), "range") {
			return Value{}, false
		}
		if k == KindFloat {
			return Float(float32(f)), true
		}
		return Double(f), true
	}
	bits := map[Kind]int{KindByte: 8, KindShort: 16, KindInt: 32, KindLong: 64}[k]
	n, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return Value{}, false
	}
	return convertNumber(Long(n), k), true
}

func (vm *VM) defineMath() error {
	b := vm.NewClass("java.lang.Math").Final().
		Constant("PI", "double", Double(math.Pi)).
		Constant("E", "double", Double(math.E))

	pick := func(name string, less func(a, b Value) bool) {
		for _, k := range []Kind{KindInt, KindLong, KindFloat, KindDouble} {
			t := k.String()
			b.StaticMethod(name, t, params(t, t), func(_ *Env, _ *Object, args []Value) (Value, error) {
				x, y := args[0], args[1]
				if k == KindFloat || k == KindDouble {
					if math.IsNaN(x.Float64()) {
						return x, nil
					}
					if math.IsNaN(y.Float64()) {
						return y, nil
					}
				}
				if less(y, x) {
					return y, nil
				}
				return x, nil
			})
		}
	}
	pick("max", func(a, b Value) bool { return compareValues(a, b) > 0 })
	pick("min", func(a, b Value) bool { return compareValues(a, b) < 0 })

	b.StaticMethod("abs", "int", params("int"), func(_ *Env, _ *Object, args []Value) (Value, error) {
		if v := args[0].AsInt(); v < 0 {
			return Int(-v), nil
		}
		return args[0], nil
	}).
		StaticMethod("abs", "long", params("long"), func(_ *Env, _ *Object, args []Value) (Value, error) {
			if v := args[0].AsLong(); v < 0 {
				return Long(-v), nil
			}
			return args[0], nil
		}).
		StaticMethod("abs", "double", params("double"), func(_ *Env, _ *Object, args []Value) (Value, error) {
			return Double(math.Abs(args[0].AsDouble())), nil
		}).
		StaticMethod("sqrt", "double", params("double"), func(_ *Env, _ *Object, args []Value) (Value, error) {
			return Double(math.Sqrt(args[0].AsDouble())), nil
		}).
		StaticMethod("pow", "double", params("double", "double"), func(_ *Env, _ *Object, args []Value) (Value, error) {
			return Double(math.Pow(args[0].AsDouble(), args[1].AsDouble())), nil
		}).
		StaticMethod("floor", "double", params("double"), func(_ *Env, _ *Object, args []Value) (Value, error) {
			return Double(math.Floor(args[0].AsDouble())), nil
		}).
		StaticMethod("ceil", "double", params("double"), func(_ *Env, _ *Object, args []Value) (Value, error) {
			return Double(math.Ceil(args[0].AsDouble())), nil
		}).
		StaticMethod("floorDiv", "int", params("int", "int"), func(env *Env, _ *Object, args []Value) (Value, error) {
			x, y := args[0].AsInt(), args[1].AsInt()
			if y == 0 {
				return Value{}, env.Throw("java.lang.ArithmeticException", "/ by zero")
			}
			q := x / y
			if (x%y != 0) && ((x < 0) != (y < 0)) {
				q--
			}
			return Int(q), nil
		}).
		StaticMethod("addExact", "int", params("int", "int"), func(env *Env, _ *Object, args []Value) (Value, error) {
			r := int64(args[0].AsInt()) + int64(args[1].AsInt())
			if r < math.MinInt32 || r > math.MaxInt32 {
				return Value{}, env.Throw("java.lang.ArithmeticException", "integer overflow")
			}
			return Int(int32(r)), nil
		}).
		StaticMethod("addExact", "long", params("long", "long"), func(env *Env, _ *Object, args []Value) (Value, error) {
			x, y := args[0].AsLong(), args[1].AsLong()
			r := x + y
			if (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r >= 0) {
				return Value{}, env.Throw("java.lang.ArithmeticException", "long overflow")
			}
			return Long(r), nil
		})

	_, err := b.Register()
	return err
}

func (vm *VM) defineSystem() error {
	start := time.Now()
	_, err := vm.NewClass("java.lang.System").Final().
		StaticMethod("getProperty", "java.lang.String", params("java.lang.String"), func(env *Env, _ *Object, args []Value) (Value, error) {
			if args[0].obj == nil {
				return Value{}, env.Throw("java.lang.NullPointerException", "key can't be null")
			}
			if v, ok := env.vm.Property(goString(args[0])); ok {
				return env.str(v), nil
			}
			return Null, nil
		}).
		StaticMethod("getProperty", "java.lang.String", params("java.lang.String", "java.lang.String"), func(env *Env, _ *Object, args []Value) (Value, error) {
			if args[0].obj == nil {
				return Value{}, env.Throw("java.lang.NullPointerException", "key can't be null")
			}
			if v, ok := env.vm.Property(goString(args[0])); ok {
				return env.str(v), nil
			}
			return args[1], nil
		}).
		StaticMethod("setProperty", "java.lang.String", params("java.lang.String", "java.lang.String"), func(env *Env, _ *Object, args []Value) (Value, error) {
			if args[0].obj == nil || args[1].obj == nil {
				return Value{}, env.Throw("java.lang.NullPointerException", "")
			}
			prev, ok := env.vm.SetProperty(goString(args[0]), goString(args[1]))
			if !ok {
				return Null, nil
			}
			return env.str(prev), nil
		}).
		StaticMethod("getenv", "java.lang.String", params("java.lang.String"), func(env *Env, _ *Object, args []Value) (Value, error) {
			if v, ok := os.LookupEnv(goString(args[0])); ok {
				return env.str(v), nil
			}
			return Null, nil
		}).
		StaticMethod("currentTimeMillis", "long", nil, func(_ *Env, _ *Object, _ []Value) (Value, error) {
			return Long(time.Now().UnixMilli()), nil
		}).
		StaticMethod("nanoTime", "long", nil, func(_ *Env, _ *Object, _ []Value) (Value, error) {
			return Long(int64(time.Since(start))), nil
		}).
		StaticMethod("lineSeparator", "java.lang.String", nil, func(env *Env, _ *Object, _ []Value) (Value, error) {
			return env.str("\n"), nil
		}).
		StaticMethod("identityHashCode", "int", params("java.lang.Object"), func(_ *Env, _ *Object, args []Value) (Value, error) {
			if args[0].obj == nil {
				return Int(0), nil
			}
			return Int(int32(args[0].obj.id)), nil
		}).
		Register()
	return err
}

type threadState struct {
	target  *Object
	done    <-chan struct{}
	name    string
	started bool
}

func (vm *VM) defineThread() error {
	state := func(o *Object) *threadState {
		st, _ := o.Native().(*threadState)
		return st
	}
	_, err := vm.NewClass("java.lang.Thread").Implements("java.lang.Runnable").
		Constructor(params("java.lang.Runnable"), func(_ *Env, this *Object, args []Value) error {
			this.native = &threadState{target: args[0].obj, name: "Thread-" + strconv.FormatUint(this.id, 10)}
			return nil
		}).
		Constructor(params("java.lang.Runnable", "java.lang.String"), func(_ *Env, this *Object, args []Value) error {
			this.native = &threadState{target: args[0].obj, name: goString(args[1])}
			return nil
		}).
		Method("run", "void", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			if st := state(this); st != nil && st.target != nil {
				return env.CallMethod(st.target, "run")
			}
			return Void, nil
		}).
		Method("start", "void", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			this.mu.Lock()
			defer this.mu.Unlock()
			st, _ := this.native.(*threadState)
			if st == nil || st.started {
				return Value{}, env.Throw("java.lang.IllegalThreadStateException", "")
			}
			st.started = true
			st.done = env.vm.Spawn(st.name, func(t *Env) {
				if _, err := t.CallMethod(this, "run"); err != nil {
					Logger().Sugar().Warnf("Exception in thread %q %v", t.name, err)
				}
			})
			return Void, nil
		}).
		Method("join", "void", nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
			this.mu.RLock()
			done := state0(this).done
			this.mu.RUnlock()
			if done != nil {
				<-done
			}
			return Void, nil
		}).
		Method("isAlive", "boolean", nil, func(_ *Env, this *Object, _ []Value) (Value, error) {
			this.mu.RLock()
			done := state0(this).done
			this.mu.RUnlock()
			if done == nil {
				return Boolean(false), nil
			}
			select {
			case <-done:
				return Boolean(false), nil
			default:
				return Boolean(true), nil
			}
		}).
		Method("getName", "java.lang.String", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			return env.str(state(this).name), nil
		}).
		StaticMethod("sleep", "void", params("long"), func(env *Env, _ *Object, args []Value) (Value, error) {
			ms := args[0].AsLong()
			if ms < 0 {
				return Value{}, env.Throw("java.lang.IllegalArgumentException", "timeout value is negative")
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
			return Void, nil
		}).
		Register()
	return err
}

// state0 reads a thread payload while the caller holds the object lock.
func state0(o *Object) *threadState {
	st, _ := o.native.(*threadState)
	if st == nil {
		return &threadState{}
	}
	return st
}
