package managed

import (
	"slices"
	"strings"
)

type listData struct {
	items []Value
}

func (vm *VM) defineUtil() error {
	list := func(env *Env, o *Object) (*listData, error) {
		if o == nil {
			return nil, env.Throw("java.lang.NullPointerException", "")
		}
		l, ok := o.native.(*listData)
		if !ok {
			return nil, env.Throw("java.lang.UnsupportedOperationException", "%s", o.class.name)
		}
		return l, nil
	}
	index := func(env *Env, l *listData, i int32, size int) error {
		if i < 0 || int(i) >= size {
			return env.Throw("java.lang.IndexOutOfBoundsException",
				"Index %d out of bounds for length %d", i, len(l.items))
		}
		return nil
	}

	builders := []*ClassBuilder{
		vm.NewClass("java.util.Comparator").Interface().
			AbstractMethod("compare", "int", "java.lang.Object", "java.lang.Object"),
		vm.NewClass("java.util.List").Interface().
			AbstractMethod("size", "int").
			AbstractMethod("isEmpty", "boolean").
			AbstractMethod("get", "java.lang.Object", "int").
			AbstractMethod("set", "java.lang.Object", "int", "java.lang.Object").
			AbstractMethod("add", "boolean", "java.lang.Object").
			AbstractMethod("remove", "java.lang.Object", "int").
			AbstractMethod("clear", "void").
			AbstractMethod("toArray", "java.lang.Object[]"),
	}
	for _, b := range builders {
		if _, err := b.Register(); err != nil {
			return err
		}
	}

	newList := func(this *Object, capacity int) {
		this.native = &listData{items: make([]Value, 0, capacity)}
	}
	_, err := vm.NewClass("java.util.ArrayList").Implements("java.util.List").
		Constructor(nil, func(_ *Env, this *Object, _ []Value) error {
			newList(this, 0)
			return nil
		}).
		Constructor(params("int"), func(env *Env, this *Object, args []Value) error {
			n := args[0].AsInt()
			if n < 0 {
				return env.Throw("java.lang.IllegalArgumentException", "Illegal Capacity: %d", n)
			}
			newList(this, int(n))
			return nil
		}).
		Method("size", "int", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			l, err := list(env, this)
			if err != nil {
				return Value{}, err
			}
			this.mu.RLock()
			defer this.mu.RUnlock()
			return Int(int32(len(l.items))), nil
		}).
		Method("isEmpty", "boolean", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			l, err := list(env, this)
			if err != nil {
				return Value{}, err
			}
			this.mu.RLock()
			defer this.mu.RUnlock()
			return Boolean(len(l.items) == 0), nil
		}).
		Method("get", "java.lang.Object", params("int"), func(env *Env, this *Object, args []Value) (Value, error) {
			l, err := list(env, this)
			if err != nil {
				return Value{}, err
			}
			this.mu.RLock()
			defer this.mu.RUnlock()
			if err := index(env, l, args[0].AsInt(), len(l.items)); err != nil {
				return Value{}, err
			}
			return l.items[args[0].AsInt()], nil
		}).
		Method("set", "java.lang.Object", params("int", "java.lang.Object"), func(env *Env, this *Object, args []Value) (Value, error) {
			l, err := list(env, this)
			if err != nil {
				return Value{}, err
			}
			this.mu.Lock()
			defer this.mu.Unlock()
			i := args[0].AsInt()
			if err := index(env, l, i, len(l.items)); err != nil {
				return Value{}, err
			}
			prev := l.items[i]
			l.items[i] = args[1]
			return prev, nil
		}).
		Method("add", "boolean", params("java.lang.Object"), func(env *Env, this *Object, args []Value) (Value, error) {
			l, err := list(env, this)
			if err != nil {
				return Value{}, err
			}
			this.mu.Lock()
			l.items = append(l.items, args[0])
			this.mu.Unlock()
			return Boolean(true), nil
		}).
		Method("remove", "java.lang.Object", params("int"), func(env *Env, this *Object, args []Value) (Value, error) {
			l, err := list(env, this)
			if err != nil {
				return Value{}, err
			}
			this.mu.Lock()
			defer this.mu.Unlock()
			i := args[0].AsInt()
			if err := index(env, l, i, len(l.items)); err != nil {
				return Value{}, err
			}
			prev := l.items[i]
			l.items = slices.Delete(l.items, int(i), int(i)+1)
			return prev, nil
		}).
		Method("clear", "void", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			l, err := list(env, this)
			if err != nil {
				return Value{}, err
			}
			this.mu.Lock()
			l.items = l.items[:0]
			this.mu.Unlock()
			return Void, nil
		}).
		Method("toArray", "java.lang.Object[]", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			arr, _ := vm.NewArrayOf(vm.object, snapshot(this))
			return Ref(arr), nil
		}).
		Method("toString", "java.lang.String", nil, func(env *Env, this *Object, _ []Value) (Value, error) {
			return env.str(this.String()), nil
		}).
		Register()
	if err != nil {
		return err
	}

	_, err = vm.NewClass("java.util.Collections").Final().
		StaticMethod("sort", "void", params("java.util.List", "java.util.Comparator"), func(env *Env, _ *Object, args []Value) (Value, error) {
			l, err := list(env, args[0].obj)
			if err != nil {
				return Value{}, err
			}
			items, err := sortValues(env, snapshot(args[0].obj), args[1].obj)
			if err != nil {
				return Value{}, err
			}
			args[0].obj.mu.Lock()
			l.items = items
			args[0].obj.mu.Unlock()
			return Void, nil
		}).
		Register()
	if err != nil {
		return err
	}

	_, err = vm.NewClass("java.util.Arrays").Final().
		StaticMethod("sort", "void", params("int[]"), func(env *Env, _ *Object, args []Value) (Value, error) {
			arr := args[0].obj
			if arr == nil {
				return Value{}, env.Throw("java.lang.NullPointerException", "")
			}
			arr.mu.Lock()
			slices.SortFunc(arr.native.(arrayData), func(a, b Value) int { return int(compareValues(a, b)) })
			arr.mu.Unlock()
			return Void, nil
		}).
		StaticMethod("sort", "void", params("java.lang.Object[]", "java.util.Comparator"), func(env *Env, _ *Object, args []Value) (Value, error) {
			arr := args[0].obj
			if arr == nil {
				return Value{}, env.Throw("java.lang.NullPointerException", "")
			}
			items, err := sortValues(env, arr.Elements(), args[1].obj)
			if err != nil {
				return Value{}, err
			}
			arr.mu.Lock()
			copy(arr.native.(arrayData), items)
			arr.mu.Unlock()
			return Void, nil
		}).
		StaticMethod("asList", "java.util.List", params("java.lang.Object[]"), func(env *Env, _ *Object, args []Value) (Value, error) {
			if args[0].obj == nil {
				return Value{}, env.Throw("java.lang.NullPointerException", "")
			}
			c := env.vm.mustClass("java.util.ArrayList")
			obj := env.vm.alloc(c)
			obj.native = &listData{items: args[0].obj.Elements()}
			return Ref(obj), nil
		}).
		StaticMethod("toString", "java.lang.String", params("int[]"), func(env *Env, _ *Object, args []Value) (Value, error) {
			return env.str(arrayString(args[0].obj)), nil
		}).
		StaticMethod("toString", "java.lang.String", params("java.lang.Object[]"), func(env *Env, _ *Object, args []Value) (Value, error) {
			return env.str(arrayString(args[0].obj)), nil
		}).
		Register()
	return err
}

func snapshot(o *Object) []Value {
	o.mu.RLock()
	defer o.mu.RUnlock()
	l, _ := o.native.(*listData)
	if l == nil {
		return nil
	}
	return append([]Value(nil), l.items...)
}

// sortValues stable-sorts items with a Comparator. A null comparator uses
// natural ordering. The first exception stops comparing and is returned.
func sortValues(env *Env, items []Value, cmp *Object) ([]Value, error) {
	var failed error
	slices.SortStableFunc(items, func(a, b Value) int {
		if failed != nil {
			return 0
		}
		var r Value
		if cmp != nil {
			r, failed = env.CallMethod(cmp, "compare", a, b)
		} else {
			r, failed = env.CallMethod(a.obj, "compareTo", b)
		}
		if failed != nil {
			return 0
		}
		return int(r.AsInt())
	})
	if failed != nil {
		return nil, failed
	}
	return items, nil
}

func arrayString(o *Object) string {
	if o == nil {
		return "null"
	}
	return joinValues(o.Elements())
}

func joinValues(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
