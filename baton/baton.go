package baton

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/managed"
	"github.com/wippyai/objbridge/marshal"
	"github.com/wippyai/objbridge/resolve"
)

// Kind is the operation a request performs.
type Kind uint8

const (
	KindConstructor Kind = iota
	KindStatic
	KindInstance
	KindFieldGet
	KindFieldSet
)

var kindNames = [...]string{
	KindConstructor: "constructor",
	KindStatic:      "static method",
	KindInstance:    "instance method",
	KindFieldGet:    "field get",
	KindFieldSet:    "field set",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// State is the progress of a baton.
type State int32

const (
	StateCreated State = iota
	StateResolving
	StateExecuting
	StateCompleted
	StateFailed
)

var stateNames = [...]string{
	StateCreated:   "created",
	StateResolving: "resolving",
	StateExecuting: "executing",
	StateCompleted: "completed",
	StateFailed:    "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "invalid"
}

// Done reports whether s is terminal.
func (s State) Done() bool { return s == StateCompleted || s == StateFailed }

// Request describes one call. Args are already converted to managed
// values. Class may be left nil, in which case ClassName is looked up
// while resolving. Field sets carry the raw host value in Value so that it
// can be converted to the field's declared type.
type Request struct {
	Class     *managed.Class
	Target    *managed.Object
	Value     any
	ClassName string
	Member    string
	Args      []managed.Value
	Kind      Kind
}

func (r *Request) className() string {
	if r.Class != nil {
		return r.Class.Name()
	}
	if r.Target != nil {
		return r.Target.Class().Name()
	}
	return r.ClassName
}

// Baton is a single execution of a Request.
type Baton struct {
	resolver *resolve.Resolver
	req      Request
	state    atomic.Int32
}

// New creates a baton in StateCreated.
func New(req Request, r *resolve.Resolver) *Baton {
	return &Baton{req: req, resolver: r}
}

// State returns the current state.
func (b *Baton) State() State { return State(b.state.Load()) }

// Request returns the request the baton carries.
func (b *Baton) Request() Request { return b.req }

func (b *Baton) advance(from, to State) bool {
	return b.state.CompareAndSwap(int32(from), int32(to))
}

// fail moves the baton to StateFailed from whatever running state it is in.
func (b *Baton) fail(err error) (any, error) {
	for {
		s := b.State()
		if s.Done() || b.advance(s, StateFailed) {
			return nil, err
		}
	}
}

// RunSync executes the request on the calling goroutine and returns the
// result converted to a host value. Managed exceptions come back as
// errors of kind managed_exception wrapping an *errors.ExceptionError.
func (b *Baton) RunSync(env *managed.Env) (any, error) {
	if !b.advance(StateCreated, StateResolving) {
		return nil, errors.Usage("%s %s: call already started (%s)", b.req.Kind, b.req.Member, b.State())
	}

	exec, err := b.resolve(env)
	if err != nil {
		return b.fail(err)
	}
	if !b.advance(StateResolving, StateExecuting) {
		return b.fail(errors.Usage("%s %s: unexpected state %s", b.req.Kind, b.req.Member, b.State()))
	}

	v, err := exec()
	if err != nil {
		if exc, ok := managed.AsException(err); ok {
			err = errors.ManagedException(b.failureDetail(), describe(exc))
		}
		return b.fail(err)
	}
	result, err := marshal.ToHost(env, v)
	if err != nil {
		return b.fail(err)
	}
	b.advance(StateExecuting, StateCompleted)
	Logger().Debug("call completed",
		zap.Stringer("kind", b.req.Kind),
		zap.String("class", b.req.className()),
		zap.String("member", b.req.Member),
		zap.Uint64("thread", uint64(env.ThreadID())))
	return result, nil
}

// resolve finds the class and member and returns the call to execute.
func (b *Baton) resolve(env *managed.Env) (func() (managed.Value, error), error) {
	req := &b.req
	class := req.Class
	if class == nil && req.Target != nil {
		class = req.Target.Class()
	}
	if class == nil {
		c, err := env.VM().FindClass(req.ClassName)
		if err != nil {
			return nil, err
		}
		class = c
	}

	switch req.Kind {
	case KindConstructor:
		m, err := b.resolver.FindConstructor(class, req.Args)
		if err != nil {
			return nil, err
		}
		return func() (managed.Value, error) {
			obj, err := env.New(m.Constructor, m.Args)
			return managed.Ref(obj), err
		}, nil

	case KindStatic, KindInstance:
		scope := resolve.Static
		if req.Kind == KindInstance {
			if req.Target == nil {
				return nil, errors.Usage("instance method %q called on null", req.Member)
			}
			scope = resolve.Any
		}
		m, err := b.resolver.FindMethod(class, req.Member, req.Args, scope)
		if err != nil {
			return nil, err
		}
		this := req.Target
		if m.Method.IsStatic() {
			this = nil
		}
		return func() (managed.Value, error) {
			return env.Invoke(m.Method, this, m.Args)
		}, nil

	case KindFieldGet, KindFieldSet:
		scope := resolve.Static
		if req.Target != nil {
			scope = resolve.Any
		}
		f, err := b.resolver.FindField(class, req.Member, scope)
		if err != nil {
			return nil, err
		}
		this := req.Target
		if f.IsStatic() {
			this = nil
		}
		if req.Kind == KindFieldGet {
			return func() (managed.Value, error) {
				return env.GetField(f, this)
			}, nil
		}
		v, err := marshal.ToManagedAs(env, req.Value, f.Type())
		if err != nil {
			return nil, err
		}
		return func() (managed.Value, error) {
			return managed.Void, env.SetField(f, this, v)
		}, nil
	}
	return nil, errors.Usage("unknown request kind %d", req.Kind)
}

func (b *Baton) failureDetail() string {
	switch b.req.Kind {
	case KindConstructor:
		return "Could not create class " + b.req.className()
	case KindStatic:
		return "Error running static method"
	case KindInstance:
		return "Error running instance method"
	}
	return fmt.Sprintf("Error accessing field %s on class %s", b.req.Member, b.req.className())
}

// describe copies a managed exception into a plain error value that does
// not keep the exception object alive.
func describe(exc *managed.Exception) *errors.ExceptionError {
	return &errors.ExceptionError{
		Class:   exc.Class().Name(),
		Message: exc.Message(),
		Stack:   append([]string(nil), exc.Stack()...),
	}
}
