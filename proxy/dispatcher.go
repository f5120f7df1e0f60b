package proxy

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/host"
	"github.com/wippyai/objbridge/managed"
	"github.com/wippyai/objbridge/marshal"
	"github.com/wippyai/objbridge/resource"
)

// DefaultTimeout bounds how long a managed thread waits for the host.
const DefaultTimeout = 30 * time.Second

// Dispatcher routes proxy calls to host callables on the host thread.
type Dispatcher struct {
	vm       *managed.VM
	hostEnv  *managed.Env
	loop     *host.Loop
	table    resource.Table
	bindings *resource.Typed[*Binding]
	timeout  time.Duration
}

// NewDispatcher creates a dispatcher and installs it as the VM's proxy
// callback. hostEnv is the managed thread of the goroutine running loop.
// A zero timeout selects DefaultTimeout.
func NewDispatcher(vm *managed.VM, hostEnv *managed.Env, loop *host.Loop, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	table := resource.NewTable()
	d := &Dispatcher{
		vm:       vm,
		hostEnv:  hostEnv,
		loop:     loop,
		table:    table,
		bindings: resource.NewTyped[*Binding](table, resource.TypeProxyBinding),
		timeout:  timeout,
	}
	table.Subscribe(&resource.LogObserver{Logger: Logger, Table: "proxy_bindings"})
	vm.SetProxyCallback(d.Dispatch)
	return d
}

// Timeout returns how long a foreign thread waits for a result.
func (d *Dispatcher) Timeout() time.Duration { return d.timeout }

// Len returns the number of live bindings.
func (d *Dispatcher) Len() int { return d.bindings.Len() }

// NewProxy binds functions to iface and creates the managed proxy. The
// binding starts with one holder, the caller; see Binding.Disown.
func (d *Dispatcher) NewProxy(env *managed.Env, iface *managed.Class, functions map[string]any) (*Binding, *managed.Object, error) {
	if iface == nil || !iface.IsInterface() {
		name := "<nil>"
		if iface != nil {
			name = iface.Name()
		}
		return nil, nil, errors.New(errors.PhaseProxy, errors.KindUsage).
			ManagedType(name).
			Detail("%s is not an interface", name).
			Build()
	}

	fns := make(map[string]any, len(functions))
	for name, fn := range functions {
		fns[name] = fn
	}
	b := &Binding{iface: iface, functions: fns, dispatcher: d}
	b.refs.Store(1)
	b.owned.Store(true)
	b.handle = d.bindings.Insert(b)
	if b.handle == 0 {
		return nil, nil, errors.NotInitialized(errors.PhaseProxy, "proxy table")
	}

	obj, err := d.vm.NewProxy(env, iface, b.Token())
	if err != nil {
		d.bindings.Remove(b.handle)
		return nil, nil, err
	}
	Logger().Debug("proxy created",
		zap.String("interface", iface.Name()),
		zap.Uint64("token", b.Token()),
		zap.Strings("methods", b.Methods()))
	return b, obj, nil
}

// Lookup returns the live binding for token.
func (d *Dispatcher) Lookup(token uint64) (*Binding, bool) {
	return d.bindings.Get(resource.Handle(token))
}

// LookupObject returns the live binding of a proxy object.
func (d *Dispatcher) LookupObject(o *managed.Object) (*Binding, bool) {
	token, ok := d.vm.ProxyToken(o)
	if !ok {
		return nil, false
	}
	return d.Lookup(token)
}

// Dispatch is the VM's proxy callback. The calling thread holds the
// binding for the duration of the call.
func (d *Dispatcher) Dispatch(env *managed.Env, token uint64, method *managed.Method, args []managed.Value) (managed.Value, error) {
	handle := resource.Handle(token)
	stale := func() (managed.Value, error) {
		Logger().Warn("call on stale proxy",
			zap.String("method", method.Name()),
			zap.Uint64("token", token),
			zap.Uint64("thread", uint64(env.ThreadID())))
		return managed.Value{}, errors.StaleProxy(token, "proxy binding is no longer live")
	}
	b, ok := d.bindings.Borrow(handle)
	if !ok {
		return stale()
	}
	defer d.bindings.Return(handle)
	if !b.Retain() {
		return stale()
	}
	defer b.Release()

	if env.ThreadID() == d.hostEnv.ThreadID() {
		return d.call(b, method, args)
	}
	return d.callFromForeign(env, b, method, args)
}

// pending is a cross-thread call waiting for the host.
type pending struct {
	done      chan outcome
	mu        sync.Mutex
	abandoned bool
}

type outcome struct {
	err   error
	value managed.Value
	ref   managed.GlobalRef
}

// callFromForeign posts the call to the host loop and blocks until it
// completes or the timeout expires. Reference results cross over as a
// global ref that is deleted here once read.
func (d *Dispatcher) callFromForeign(env *managed.Env, b *Binding, method *managed.Method, args []managed.Value) (managed.Value, error) {
	p := &pending{done: make(chan outcome, 1)}
	d.loop.Post(func() {
		v, err := d.call(b, method, args)
		out := outcome{value: v, err: err}
		if err == nil && v.Object() != nil {
			out.ref = d.vm.NewGlobalRef(v.Object())
			out.value = managed.Value{}
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.abandoned {
			d.release(out)
			return
		}
		p.done <- out
	})

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case out := <-p.done:
		if out.err != nil {
			return managed.Value{}, out.err
		}
		if out.ref != 0 {
			obj, _ := d.vm.Deref(out.ref)
			d.vm.DeleteGlobalRef(out.ref)
			return managed.Ref(obj), nil
		}
		return out.value, nil
	case <-timer.C:
	}

	p.mu.Lock()
	p.abandoned = true
	select {
	case out := <-p.done:
		d.release(out)
	default:
	}
	p.mu.Unlock()

	Logger().Warn("proxy call timed out",
		zap.String("interface", b.iface.Name()),
		zap.String("method", method.Name()),
		zap.Uint64("token", b.Token()),
		zap.Stringer("thread", env),
		zap.Duration("timeout", d.timeout))
	return managed.Value{}, errors.Timeout(errors.PhaseProxy,
		fmt.Sprintf("%s.%s did not complete on the host thread within %s", b.iface.Name(), method.Name(), d.timeout))
}

func (d *Dispatcher) release(out outcome) {
	if out.ref != 0 {
		d.vm.DeleteGlobalRef(out.ref)
	}
}

// call runs on the host thread. Failures of the host side degrade to the
// zero value of the return type and are logged. A binding invalidated
// before or during the call fails with a stale proxy error.
func (d *Dispatcher) call(b *Binding, method *managed.Method, args []managed.Value) (managed.Value, error) {
	ret := method.ReturnType()
	zero := managed.Zero(ret.Kind())
	if ret.Kind() == managed.KindVoid {
		zero = managed.Void
	}
	log := Logger().With(
		zap.String("interface", b.iface.Name()),
		zap.String("method", method.Name()),
		zap.Uint64("token", b.Token()))

	// a cross-thread call may wait in the loop queue while the host
	// invalidates the binding
	if !b.Live() {
		log.Warn("proxy invalidated before call ran")
		return managed.Value{}, errors.StaleProxy(b.Token(), "proxy invalidated before call ran")
	}

	fn, ok := host.AsFunc(b.functions[method.Name()])
	if !ok {
		log.Warn("no callable for proxy method")
		return zero, nil
	}

	hostArgs := make([]any, len(args))
	for i, a := range args {
		v, err := marshal.ToHost(d.hostEnv, a)
		if err != nil {
			log.Warn("cannot convert proxy argument", zap.Int("index", i), zap.Error(err))
			return zero, nil
		}
		hostArgs[i] = v
	}

	result, err := invoke(fn, hostArgs)
	if err != nil {
		log.Warn("host callable failed", zap.Error(err))
		return zero, nil
	}

	if !b.Live() {
		log.Warn("proxy invalidated during call, result discarded")
		return managed.Value{}, errors.StaleProxy(b.Token(), "proxy invalidated during call")
	}
	if ret.Kind() == managed.KindVoid {
		return managed.Void, nil
	}
	v, err := marshal.ToManagedAs(d.hostEnv, result, ret)
	if err != nil {
		log.Warn("cannot convert proxy result", zap.Error(err))
		return zero, nil
	}
	return v, nil
}

// invoke runs a host callable. A panic becomes an error so that it never
// unwinds through the VM or the host loop.
func invoke(fn host.Func, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host callable panicked: %v", r)
		}
	}()
	return fn(args...)
}

// Close invalidates every binding and detaches from the VM.
func (d *Dispatcher) Close() {
	d.vm.SetProxyCallback(nil)
	d.table.Clear()
}
