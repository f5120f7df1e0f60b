package marshal

import (
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/host"
	"github.com/wippyai/objbridge/managed"
)

// ToHost converts a managed value to a host value. Void becomes
// host.Undefined.
func ToHost(env *managed.Env, v managed.Value) (any, error) {
	return toHost(env, v, nil, nil)
}

// ToHostArray converts every element of a managed array.
func ToHostArray(env *managed.Env, arr *managed.Object) ([]any, error) {
	if arr == nil || !arr.Class().IsArray() {
		return nil, errors.TypeMismatch(errors.PhaseMarshal, nil, "[]any", className(arr))
	}
	return toHostArray(env, arr, nil, nil)
}

func toHost(env *managed.Env, v managed.Value, path []string, visiting map[*managed.Object]bool) (any, error) {
	switch v.Kind() {
	case managed.KindVoid:
		return host.Undefined, nil
	case managed.KindBoolean:
		return v.AsBoolean(), nil
	case managed.KindByte:
		return v.AsByte(), nil
	case managed.KindChar:
		return string(rune(v.AsChar())), nil
	case managed.KindShort:
		return v.AsShort(), nil
	case managed.KindInt:
		return v.AsInt(), nil
	case managed.KindLong:
		return v.AsLong(), nil
	case managed.KindFloat:
		return v.AsFloat(), nil
	case managed.KindDouble:
		return v.AsDouble(), nil
	}

	obj := v.Object()
	if obj == nil {
		return nil, nil
	}
	if s, ok := obj.GoString(); ok {
		return s, nil
	}
	if p, ok := obj.Unbox(); ok {
		return toHost(env, p, path, visiting)
	}
	if obj.Class().IsArray() {
		return toHostArray(env, obj, path, visiting)
	}
	return host.NewObject(obj), nil
}

func toHostArray(env *managed.Env, arr *managed.Object, path []string, visiting map[*managed.Object]bool) ([]any, error) {
	if visiting[arr] {
		return nil, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Path(path...).
			ManagedType(arr.Class().TypeName()).
			Detail("array contains itself").
			Build()
	}
	if visiting == nil {
		visiting = make(map[*managed.Object]bool)
	}
	visiting[arr] = true
	defer delete(visiting, arr)

	elems := arr.Elements()
	out := make([]any, len(elems))
	for i, e := range elems {
		v, err := toHost(env, e, elemPath(path, i), visiting)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func className(o *managed.Object) string {
	if o == nil {
		return "null"
	}
	return o.Class().TypeName()
}
