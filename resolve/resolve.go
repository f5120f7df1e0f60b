package resolve

import (
	"fmt"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/managed"
)

// Scope restricts which members a lookup may return.
type Scope uint8

const (
	// Any searches static and instance members alike.
	Any Scope = iota
	// Static searches static members only.
	Static
)

func (s Scope) String() string {
	if s == Static {
		return "static"
	}
	return "any"
}

func (s Scope) admits(static bool) bool {
	return s == Any || static
}

// Strategy decides between several applicable overloads.
type Strategy uint8

const (
	FirstMatch Strategy = iota
	MostSpecific
)

func (s Strategy) String() string {
	if s == MostSpecific {
		return "most-specific"
	}
	return "first-match"
}

// ParseStrategy maps a configuration name to a Strategy. The empty string
// selects FirstMatch.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "first-match":
		return FirstMatch, nil
	case "most-specific":
		return MostSpecific, nil
	}
	return FirstMatch, errors.Configuration(fmt.Sprintf("unknown resolution strategy %q", name), nil)
}

// Resolver finds members of managed classes.
type Resolver struct {
	strategy Strategy
}

// New creates a resolver using strategy s.
func New(s Strategy) *Resolver {
	return &Resolver{strategy: s}
}

// Strategy returns the overload selection strategy.
func (r *Resolver) Strategy() Strategy { return r.strategy }

// ConstructorMatch is a resolved constructor with its arguments converted
// to the parameter types.
type ConstructorMatch struct {
	Constructor *managed.Constructor
	Args        []managed.Value
	Cost        int
}

// MethodMatch is a resolved method with its arguments converted to the
// parameter types.
type MethodMatch struct {
	Method *managed.Method
	Args   []managed.Value
	Cost   int
}

// FindConstructor resolves a constructor of class for args.
func (r *Resolver) FindConstructor(class *managed.Class, args []managed.Value) (*ConstructorMatch, error) {
	var best *ConstructorMatch
	for _, c := range class.Constructors() {
		coerced, cost, ok := fit(class.VM(), c.ParameterTypes(), args)
		if !ok {
			continue
		}
		if best == nil || cost < best.Cost {
			best = &ConstructorMatch{Constructor: c, Args: coerced, Cost: cost}
		}
		if r.strategy == FirstMatch || cost == 0 {
			break
		}
	}
	if best == nil {
		return nil, errors.MemberNotFound("Could not find constructor for class %s", class.Name())
	}
	return best, nil
}

// FindMethod resolves method name of class for args within scope.
func (r *Resolver) FindMethod(class *managed.Class, name string, args []managed.Value, scope Scope) (*MethodMatch, error) {
	var best *MethodMatch
	for _, m := range class.Methods() {
		if m.Name() != name || !scope.admits(m.IsStatic()) {
			continue
		}
		coerced, cost, ok := fit(class.VM(), m.ParameterTypes(), args)
		if !ok {
			continue
		}
		if best == nil || cost < best.Cost {
			best = &MethodMatch{Method: m, Args: coerced, Cost: cost}
		}
		if r.strategy == FirstMatch || cost == 0 {
			break
		}
	}
	if best == nil {
		return nil, errors.MemberNotFound("Could not find method %q", name)
	}
	return best, nil
}

// FindField resolves field name of class within scope.
func (r *Resolver) FindField(class *managed.Class, name string, scope Scope) (*managed.Field, error) {
	for _, f := range class.Fields() {
		if f.Name() == name && scope.admits(f.IsStatic()) {
			return f, nil
		}
	}
	return nil, errors.MemberNotFound("Could not find field %s on class %s", name, class.Name())
}

// fit converts args to params and sums the conversion costs.
func fit(vm *managed.VM, params []*managed.Class, args []managed.Value) ([]managed.Value, int, bool) {
	if len(params) != len(args) {
		return nil, 0, false
	}
	out := make([]managed.Value, len(args))
	total := 0
	for i, p := range params {
		v, cost, ok := Convert(vm, p, args[i])
		if !ok {
			return nil, 0, false
		}
		out[i] = v
		total += cost
	}
	return out, total, true
}

// boxCost is charged for every boxing or unboxing conversion.
const boxCost = 1

// Convert reports whether arg fits a parameter of type param, the value
// after conversion, and its cost: 0 for identity, the widening distance
// for primitive widening, boxCost plus the remaining distance for boxing
// and unboxing, the supertype distance for references.
func Convert(vm *managed.VM, param *managed.Class, arg managed.Value) (managed.Value, int, bool) {
	if param.IsPrimitive() {
		if arg.Kind() == managed.KindReference {
			p, ok := arg.Object().Unbox()
			if !ok {
				return managed.Value{}, 0, false
			}
			d, ok := managed.WideningDistance(p.Kind(), param.Kind())
			if !ok {
				return managed.Value{}, 0, false
			}
			w, _ := p.Widen(param.Kind())
			return w, boxCost + d, true
		}
		d, ok := managed.WideningDistance(arg.Kind(), param.Kind())
		if !ok {
			return managed.Value{}, 0, false
		}
		w, _ := arg.Widen(param.Kind())
		return w, d, true
	}

	if arg.IsNull() {
		return arg, 0, true
	}
	if arg.Kind().IsPrimitive() {
		wrapper, err := vm.FindClass(arg.Kind().WrapperName())
		if err != nil {
			return managed.Value{}, 0, false
		}
		d, ok := param.SuperDistance(wrapper)
		if !ok {
			return managed.Value{}, 0, false
		}
		return managed.Ref(vm.Box(arg)), boxCost + d, true
	}
	if arg.Kind() != managed.KindReference {
		return managed.Value{}, 0, false
	}
	d, ok := param.SuperDistance(arg.Object().Class())
	if !ok {
		return managed.Value{}, 0, false
	}
	return arg, d, true
}
