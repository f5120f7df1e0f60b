package resolve

import (
	"context"
	"strings"
	"testing"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/managed"
)

func newVM(t *testing.T) *managed.VM {
	t.Helper()
	vm, err := managed.New(context.Background(), managed.Config{})
	if err != nil {
		t.Fatalf("managed.New: %v", err)
	}
	t.Cleanup(func() { vm.Close(context.Background()) })
	return vm
}

func findClass(t *testing.T, vm *managed.VM, name string) *managed.Class {
	t.Helper()
	c, err := vm.FindClass(name)
	if err != nil {
		t.Fatalf("FindClass(%q): %v", name, err)
	}
	return c
}

func types(ps []*managed.Class) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.TypeName()
	}
	return strings.Join(names, ",")
}

// overloads declares pick in an order where the first applicable overload
// is not the most specific one.
func overloads(t *testing.T, vm *managed.VM) *managed.Class {
	t.Helper()
	tag := func(s string) managed.MethodFunc {
		return func(env *managed.Env, _ *managed.Object, _ []managed.Value) (managed.Value, error) {
			return managed.Ref(env.NewString(s)), nil
		}
	}
	return vm.NewClass("demo.Overloads").
		StaticMethod("pick", "java.lang.String", []string{"java.lang.Object"}, tag("Object")).
		StaticMethod("pick", "java.lang.String", []string{"java.lang.CharSequence"}, tag("CharSequence")).
		StaticMethod("pick", "java.lang.String", []string{"java.lang.String"}, tag("String")).
		StaticMethod("pick", "java.lang.String", []string{"long"}, tag("long")).
		StaticMethod("pick", "java.lang.String", []string{"int"}, tag("int")).
		MustRegister()
}

func TestFindMethod_FirstMatch(t *testing.T) {
	vm := newVM(t)
	env := vm.AttachThread("main")
	r := New(FirstMatch)
	math := findClass(t, vm, "java.lang.Math")
	str := managed.Ref(env.NewString("s"))

	tests := []struct {
		name  string
		class *managed.Class
		meth  string
		args  []managed.Value
		want  string
	}{
		{"ints pick int", math, "max", []managed.Value{managed.Int(3), managed.Int(7)}, "int,int"},
		{"longs pick long", math, "max", []managed.Value{managed.Long(3), managed.Int(7)}, "long,long"},
		{"double widens int", math, "max", []managed.Value{managed.Int(3), managed.Double(7.5)}, "double,double"},
		{"floats", math, "max", []managed.Value{managed.Float(1), managed.Float(2)}, "float,float"},
		{"valueOf int", findClass(t, vm, "java.lang.String"), "valueOf", []managed.Value{managed.Int(5)}, "int"},
		{"valueOf object", findClass(t, vm, "java.lang.String"), "valueOf", []managed.Value{str}, "java.lang.Object"},
		{"declaration order wins", overloads(t, vm), "pick", []managed.Value{str}, "java.lang.Object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := r.FindMethod(tt.class, tt.meth, tt.args, Static)
			if err != nil {
				t.Fatal(err)
			}
			if got := types(m.Method.ParameterTypes()); got != tt.want {
				t.Errorf("picked (%s), want (%s)", got, tt.want)
			}
		})
	}
}

func TestFindMethod_MostSpecific(t *testing.T) {
	vm := newVM(t)
	env := vm.AttachThread("main")
	r := New(MostSpecific)
	over := overloads(t, vm)

	tests := []struct {
		name string
		args []managed.Value
		want string
	}{
		{"string over supertypes", []managed.Value{managed.Ref(env.NewString("s"))}, "java.lang.String"},
		{"int over long", []managed.Value{managed.Int(1)}, "int"},
		{"short widens to int first", []managed.Value{managed.Short(1)}, "int"},
		{"long only", []managed.Value{managed.Long(1)}, "long"},
		{"null ties by order", []managed.Value{managed.Null}, "java.lang.Object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := r.FindMethod(over, "pick", tt.args, Static)
			if err != nil {
				t.Fatal(err)
			}
			if got := types(m.Method.ParameterTypes()); got != tt.want {
				t.Errorf("picked (%s), want (%s)", got, tt.want)
			}
		})
	}
}

func TestFindMethod_Deterministic(t *testing.T) {
	vm := newVM(t)
	over := overloads(t, vm)
	env := vm.AttachThread("main")
	args := []managed.Value{managed.Ref(env.NewString("s"))}

	for _, s := range []Strategy{FirstMatch, MostSpecific} {
		first, err := New(s).FindMethod(over, "pick", args, Static)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 20; i++ {
			again, err := New(s).FindMethod(over, "pick", args, Static)
			if err != nil {
				t.Fatal(err)
			}
			if again.Method != first.Method {
				t.Fatalf("%s: resolution changed between calls: %s vs %s", s, first.Method, again.Method)
			}
		}
	}
}

func TestFindMethod_Coercion(t *testing.T) {
	vm := newVM(t)
	env := vm.AttachThread("main")
	r := New(FirstMatch)

	boxed := managed.Ref(vm.Box(managed.Int(9)))
	m, err := r.FindMethod(findClass(t, vm, "java.lang.Math"), "max", []managed.Value{boxed, managed.Int(2)}, Static)
	if err != nil {
		t.Fatal(err)
	}
	if m.Args[0].Kind() != managed.KindInt || m.Args[0].AsInt() != 9 {
		t.Errorf("unboxed arg = %s %v", m.Args[0].Kind(), m.Args[0])
	}
	got, err := env.Invoke(m.Method, nil, m.Args)
	if err != nil || got.AsInt() != 9 {
		t.Fatalf("Math.max = %v, %v", got, err)
	}

	list := findClass(t, vm, "java.util.ArrayList")
	m, err = r.FindMethod(list, "add", []managed.Value{managed.Int(4)}, Any)
	if err != nil {
		t.Fatal(err)
	}
	if c := m.Args[0].Object().Class().Name(); c != "java.lang.Integer" {
		t.Errorf("boxed arg class = %s", c)
	}

	m, err = r.FindMethod(findClass(t, vm, "java.lang.Math"), "max", []managed.Value{managed.Int(1), managed.Long(2)}, Static)
	if err != nil {
		t.Fatal(err)
	}
	if m.Args[0].Kind() != managed.KindLong {
		t.Errorf("widened arg kind = %s", m.Args[0].Kind())
	}
}

func TestFindMethod_NotFound(t *testing.T) {
	vm := newVM(t)
	env := vm.AttachThread("main")
	r := New(FirstMatch)
	math := findClass(t, vm, "java.lang.Math")
	str := findClass(t, vm, "java.lang.String")

	tests := []struct {
		name  string
		class *managed.Class
		meth  string
		args  []managed.Value
		scope Scope
	}{
		{"unknown name", math, "nope", nil, Static},
		{"wrong arity", math, "max", []managed.Value{managed.Int(1)}, Static},
		{"no fitting overload", math, "max", []managed.Value{managed.Ref(env.NewString("a")), managed.Int(1)}, Static},
		{"null for primitive", math, "abs", []managed.Value{managed.Null}, Static},
		{"instance method in static scope", str, "length", nil, Static},
		{"boolean does not widen", math, "abs", []managed.Value{managed.Boolean(true)}, Static},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.FindMethod(tt.class, tt.meth, tt.args, tt.scope)
			if !errors.Is(err, errors.ErrMemberNotFound) {
				t.Fatalf("err = %v, want member not found", err)
			}
			if !strings.Contains(err.Error(), `Could not find method "`+tt.meth+`"`) {
				t.Errorf("message = %q", err.Error())
			}
		})
	}

	if _, err := r.FindMethod(str, "length", nil, Any); err != nil {
		t.Errorf("instance method not found in Any scope: %v", err)
	}
}

func TestFindConstructor(t *testing.T) {
	vm := newVM(t)
	env := vm.AttachThread("main")
	r := New(FirstMatch)
	str := findClass(t, vm, "java.lang.String")

	c, err := r.FindConstructor(str, []managed.Value{managed.Ref(env.NewString("x"))})
	if err != nil {
		t.Fatal(err)
	}
	if got := types(c.Constructor.ParameterTypes()); got != "java.lang.String" {
		t.Errorf("picked (%s)", got)
	}

	c, err = r.FindConstructor(str, nil)
	if err != nil || len(c.Constructor.ParameterTypes()) != 0 {
		t.Fatalf("no-arg constructor: %v", err)
	}

	_, err = r.FindConstructor(findClass(t, vm, "java.lang.Math"), nil)
	if !errors.Is(err, errors.ErrMemberNotFound) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "Could not find constructor for class java.lang.Math") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestFindField(t *testing.T) {
	vm := newVM(t)
	r := New(FirstMatch)
	integer := findClass(t, vm, "java.lang.Integer")

	f, err := r.FindField(integer, "MAX_VALUE", Static)
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsStatic() || f.Type().Name() != "int" {
		t.Errorf("field = %s", f)
	}

	_, err = r.FindField(integer, "missing", Any)
	if !errors.Is(err, errors.ErrMemberNotFound) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "Could not find field missing on class java.lang.Integer") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": FirstMatch, "first-match": FirstMatch, "most-specific": MostSpecific} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("best"); !errors.Is(err, errors.ErrConfiguration) {
		t.Errorf("err = %v", err)
	}
}
