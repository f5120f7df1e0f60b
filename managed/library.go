package managed

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// Library is a Go value whose exported methods are published as static
// methods of a managed class.
type Library interface {
	// ClassName returns the binary name of the class, e.g. "demo.Strings".
	ClassName() string
}

var (
	envType    = reflect.TypeOf((*Env)(nil))
	objectType = reflect.TypeOf((*Object)(nil))
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
)

// DefineLibrary registers lib as a class. Method names are converted to
// lowerCamelCase (ParseHTTPDate -> parseHTTPDate). A method may take *Env
// as its first parameter and may return a trailing error, which is thrown
// as a RuntimeException unless it already is a managed exception.
func (vm *VM) DefineLibrary(lib Library) (*Class, error) {
	name := lib.ClassName()
	if name == "" {
		return nil, fmt.Errorf("library class name cannot be empty")
	}

	b := vm.NewClass(name).Final()
	rv := reflect.ValueOf(lib)
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		if !m.IsExported() || m.Name == "ClassName" {
			continue
		}
		sig, err := librarySignature(m.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, m.Name, err)
		}
		b.StaticMethod(toLowerCamel(m.Name), sig.ret, sig.params, libraryMethod(rv.Method(i), sig))
	}
	c, err := b.Register()
	if err != nil {
		return nil, err
	}
	Logger().Debug("library defined", zap.String("class", name), zap.Int("methods", len(c.methods)))
	return c, nil
}

type libSig struct {
	ret      string
	params   []string
	in       []reflect.Type
	withEnv  bool
	hasValue bool
	hasError bool
}

// librarySignature maps a Go method type (receiver included) to managed
// parameter and return type names.
func librarySignature(t reflect.Type) (*libSig, error) {
	sig := &libSig{ret: "void"}
	start := 1
	if t.NumIn() > 1 && t.In(1) == envType {
		sig.withEnv = true
		start = 2
	}
	for i := start; i < t.NumIn(); i++ {
		name, ok := goTypeName(t.In(i))
		if !ok {
			return nil, fmt.Errorf("unsupported parameter type %s", t.In(i))
		}
		sig.params = append(sig.params, name)
		sig.in = append(sig.in, t.In(i))
	}

	outs := t.NumOut()
	if outs > 0 && t.Out(outs-1) == errorType {
		sig.hasError = true
		outs--
	}
	switch outs {
	case 0:
	case 1:
		name, ok := goTypeName(t.Out(0))
		if !ok {
			return nil, fmt.Errorf("unsupported result type %s", t.Out(0))
		}
		sig.ret = name
		sig.hasValue = true
	default:
		return nil, fmt.Errorf("too many results")
	}
	return sig, nil
}

func goTypeName(t reflect.Type) (string, bool) {
	if t == objectType {
		return "java.lang.Object", true
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean", true
	case reflect.Int8:
		return "byte", true
	case reflect.Int16:
		return "short", true
	case reflect.Uint16:
		return "char", true
	case reflect.Int32:
		return "int", true
	case reflect.Int, reflect.Int64:
		return "long", true
	case reflect.Float32:
		return "float", true
	case reflect.Float64:
		return "double", true
	case reflect.String:
		return "java.lang.String", true
	case reflect.Slice:
		elem, ok := goTypeName(t.Elem())
		return elem + "[]", ok
	}
	return "", false
}

func libraryMethod(fn reflect.Value, sig *libSig) MethodFunc {
	return func(env *Env, _ *Object, args []Value) (Value, error) {
		in := make([]reflect.Value, 0, len(args)+1)
		if sig.withEnv {
			in = append(in, reflect.ValueOf(env))
		}
		for i, a := range args {
			in = append(in, valueToGo(a, sig.in[i]))
		}
		out := fn.Call(in)
		if sig.hasError {
			if err, _ := out[len(out)-1].Interface().(error); err != nil {
				return Value{}, err
			}
		}
		if !sig.hasValue {
			return Void, nil
		}
		return goToValue(env, out[0]), nil
	}
}

func valueToGo(v Value, t reflect.Type) reflect.Value {
	if t == objectType {
		return reflect.ValueOf(v.obj)
	}
	switch t.Kind() {
	case reflect.Bool:
		return reflect.ValueOf(v.AsBoolean()).Convert(t)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int, reflect.Int64:
		return reflect.ValueOf(v.Int64()).Convert(t)
	case reflect.Uint16:
		return reflect.ValueOf(v.AsChar()).Convert(t)
	case reflect.Float32, reflect.Float64:
		return reflect.ValueOf(v.Float64()).Convert(t)
	case reflect.String:
		if v.obj == nil {
			return reflect.Zero(t)
		}
		s, _ := v.obj.GoString()
		return reflect.ValueOf(s).Convert(t)
	case reflect.Slice:
		if v.obj == nil {
			return reflect.Zero(t)
		}
		elems := v.obj.Elements()
		out := reflect.MakeSlice(t, len(elems), len(elems))
		for i, e := range elems {
			out.Index(i).Set(valueToGo(e, t.Elem()))
		}
		return out
	}
	return reflect.Zero(t)
}

func goToValue(env *Env, rv reflect.Value) Value {
	if rv.Type() == objectType {
		return Ref(rv.Interface().(*Object))
	}
	switch rv.Kind() {
	case reflect.Bool:
		return Boolean(rv.Bool())
	case reflect.Int8:
		return Byte(int8(rv.Int()))
	case reflect.Int16:
		return Short(int16(rv.Int()))
	case reflect.Uint16:
		return Char(uint16(rv.Uint()))
	case reflect.Int32:
		return Int(int32(rv.Int()))
	case reflect.Int, reflect.Int64:
		return Long(rv.Int())
	case reflect.Float32:
		return Float(float32(rv.Float()))
	case reflect.Float64:
		return Double(rv.Float())
	case reflect.String:
		return env.str(rv.String())
	case reflect.Slice:
		if rv.IsNil() {
			return Null
		}
		name, _ := goTypeName(rv.Type().Elem())
		comp := env.vm.typeRef(name)
		vals := make([]Value, rv.Len())
		for i := range vals {
			vals[i] = goToValue(env, rv.Index(i))
		}
		arr, _ := env.vm.NewArrayOf(comp, vals)
		return Ref(arr)
	}
	return Null
}

// toLowerCamel lowers the leading word of a Go identifier. A run of
// capitals is treated as an acronym: HTTPGet -> httpGet, URL -> url.
func toLowerCamel(s string) string {
	runes := []rune(s)
	end := 0
	for end < len(runes) && unicode.IsUpper(runes[end]) {
		end++
	}
	if end > 1 && end < len(runes) && unicode.IsLower(runes[end]) {
		// last capital starts the next word
		end--
	}
	var b strings.Builder
	for i, r := range runes {
		if i < end {
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
