package objbridge

import (
	"reflect"

	"github.com/wippyai/objbridge/baton"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/host"
	"github.com/wippyai/objbridge/managed"
	"github.com/wippyai/objbridge/marshal"
)

const syncHint = "called without a callback did you mean to use the Sync version?"

// splitCallback removes a trailing callback from args.
func splitCallback(args []any) ([]any, host.Callback) {
	n := len(args)
	if n == 0 {
		return args, nil
	}
	switch cb := args[n-1].(type) {
	case host.Callback:
		if cb != nil {
			return args[:n-1], cb
		}
	case func(error, any):
		if cb != nil {
			return args[:n-1], host.Callback(cb)
		}
	}
	return args, nil
}

// prepare starts the runtime and converts the arguments. Conversion
// happens once, before the call is run synchronously or handed to a
// worker.
func (b *Bridge) prepare(req *baton.Request, args []any) (*managed.Env, error) {
	env, err := b.start()
	if err != nil {
		return nil, err
	}
	req.Args, err = marshal.ToManagedArgs(env, args)
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (b *Bridge) runSync(req baton.Request, args []any) (any, error) {
	env, err := b.prepare(&req, args)
	if err != nil {
		return nil, err
	}
	return baton.New(req, b.resolver).RunSync(env)
}

func (b *Bridge) submit(req baton.Request, args []any, cb host.Callback) error {
	if _, err := b.prepare(&req, args); err != nil {
		return err
	}
	baton.New(req, b.resolver).Run(b.pool, cb)
	return nil
}

func target(obj *host.Object, member string) (*managed.Object, error) {
	if obj == nil || obj.Managed() == nil {
		return nil, errors.Usage("%q used on a null object", member)
	}
	return obj.Managed(), nil
}

// NewInstance constructs className on a worker. The last argument must be
// a host.Callback; it receives the new object.
func (b *Bridge) NewInstance(className string, args ...any) error {
	args, cb := splitCallback(args)
	if cb == nil {
		return errors.Usage("Constructor for class '%s' "+syncHint, className)
	}
	return b.submit(baton.Request{Kind: baton.KindConstructor, ClassName: className}, args, cb)
}

// NewInstanceSync constructs className on the host thread.
func (b *Bridge) NewInstanceSync(className string, args ...any) (any, error) {
	return b.runSync(baton.Request{Kind: baton.KindConstructor, ClassName: className}, args)
}

// CallStaticMethod invokes a static method on a worker. The last argument
// must be a host.Callback.
func (b *Bridge) CallStaticMethod(className, method string, args ...any) error {
	args, cb := splitCallback(args)
	if cb == nil {
		return errors.Usage("Static method '%s' "+syncHint, method)
	}
	return b.submit(baton.Request{Kind: baton.KindStatic, ClassName: className, Member: method}, args, cb)
}

// CallStaticMethodSync invokes a static method on the host thread.
func (b *Bridge) CallStaticMethodSync(className, method string, args ...any) (any, error) {
	return b.runSync(baton.Request{Kind: baton.KindStatic, ClassName: className, Member: method}, args)
}

// CallMethod invokes an instance method of obj on a worker. The last
// argument must be a host.Callback.
func (b *Bridge) CallMethod(obj *host.Object, method string, args ...any) error {
	args, cb := splitCallback(args)
	if cb == nil {
		return errors.Usage("Method '%s' "+syncHint, method)
	}
	this, err := target(obj, method)
	if err != nil {
		return err
	}
	return b.submit(baton.Request{Kind: baton.KindInstance, Target: this, Member: method}, args, cb)
}

// CallMethodSync invokes an instance method of obj on the host thread.
func (b *Bridge) CallMethodSync(obj *host.Object, method string, args ...any) (any, error) {
	this, err := target(obj, method)
	if err != nil {
		return nil, err
	}
	return b.runSync(baton.Request{Kind: baton.KindInstance, Target: this, Member: method}, args)
}

// FindClassSync returns the class object for className.
func (b *Bridge) FindClassSync(className string) (*host.Object, error) {
	if _, err := b.start(); err != nil {
		return nil, err
	}
	c, err := b.vm.FindClass(className)
	if err != nil {
		return nil, err
	}
	return host.NewObject(b.vm.ClassObject(c)), nil
}

// NewArray creates an array of className holding items. Each item is
// converted to the component type; "byte" yields a primitive byte array.
func (b *Bridge) NewArray(className string, items []any) (*host.Object, error) {
	env, err := b.start()
	if err != nil {
		return nil, err
	}
	if items == nil {
		return nil, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Detail("Argument 2 must be an array").
			Build()
	}
	arrClass, err := b.vm.FindClass(className + "[]")
	if err != nil {
		return nil, errors.ClassNotFound(className)
	}
	v, err := marshal.ToManagedAs(env, items, arrClass)
	if err != nil {
		return nil, err
	}
	return host.NewObject(v.Object()), nil
}

// NewByte boxes n as a java.lang.Byte. n must be a number in byte range.
func (b *Bridge) NewByte(n any) (*host.Object, error) {
	env, err := b.start()
	if err != nil {
		return nil, err
	}
	switch reflect.ValueOf(n).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
	default:
		return nil, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Detail("Argument 1 must be a number").
			Build()
	}
	v, err := marshal.ToManagedAs(env, n, b.vm.PrimitiveClass(managed.KindByte))
	if err != nil {
		return nil, err
	}
	return host.NewObject(b.vm.Box(v)), nil
}

// GetStaticFieldValue reads a static field.
func (b *Bridge) GetStaticFieldValue(className, field string) (any, error) {
	return b.runSync(baton.Request{Kind: baton.KindFieldGet, ClassName: className, Member: field}, nil)
}

// SetStaticFieldValue writes a static field. v is converted to the
// field's declared type.
func (b *Bridge) SetStaticFieldValue(className, field string, v any) error {
	_, err := b.runSync(baton.Request{Kind: baton.KindFieldSet, ClassName: className, Member: field, Value: v}, nil)
	return err
}

// GetFieldValue reads a field of obj.
func (b *Bridge) GetFieldValue(obj *host.Object, field string) (any, error) {
	this, err := target(obj, field)
	if err != nil {
		return nil, err
	}
	return b.runSync(baton.Request{Kind: baton.KindFieldGet, Target: this, Member: field}, nil)
}

// SetFieldValue writes a field of obj.
func (b *Bridge) SetFieldValue(obj *host.Object, field string, v any) error {
	this, err := target(obj, field)
	if err != nil {
		return err
	}
	_, err = b.runSync(baton.Request{Kind: baton.KindFieldSet, Target: this, Member: field, Value: v}, nil)
	return err
}

// NewProxy implements the interface named iface with host functions keyed
// by method name. Methods without an entry return null or zero. The proxy
// stays live until InvalidateProxy or ReleaseProxy ends it.
func (b *Bridge) NewProxy(iface string, functions map[string]any) (*host.Object, error) {
	env, err := b.start()
	if err != nil {
		return nil, err
	}
	c, err := b.vm.FindClass(iface)
	if err != nil {
		return nil, err
	}
	_, obj, err := b.proxies.NewProxy(env, c, functions)
	if err != nil {
		return nil, err
	}
	return host.NewObject(obj), nil
}

// InvalidateProxy ends the liveness of a proxy created by NewProxy. Later
// calls on it fail on the managed side without reaching the host. It
// reports whether the proxy was live.
func (b *Bridge) InvalidateProxy(obj *host.Object) bool {
	if obj == nil || obj.Managed() == nil {
		return false
	}
	if _, err := b.start(); err != nil {
		return false
	}
	binding, ok := b.proxies.LookupObject(obj.Managed())
	if !ok {
		return false
	}
	return binding.Invalidate()
}

// ReleaseProxy gives up the host's hold on a proxy created by NewProxy.
// Managed calls already running keep it live until they return; after
// that it behaves as if invalidated. It reports whether the hold was
// released by this call.
func (b *Bridge) ReleaseProxy(obj *host.Object) bool {
	if obj == nil || obj.Managed() == nil {
		return false
	}
	if _, err := b.start(); err != nil {
		return false
	}
	binding, ok := b.proxies.LookupObject(obj.Managed())
	if !ok {
		return false
	}
	return binding.Disown()
}
