package managed

import (
	"fmt"

	"go.uber.org/zap"
)

type proxyState struct {
	token uint64
}

// NewProxy creates an object implementing iface whose abstract methods all
// forward to the installed ProxyCallback together with token.
func (vm *VM) NewProxy(env *Env, iface *Class, token uint64) (*Object, error) {
	if iface == nil || !iface.IsInterface() {
		name := "<nil>"
		if iface != nil {
			name = iface.name
		}
		return nil, env.Throw("java.lang.IllegalArgumentException", "%s is not an interface", name)
	}
	c, err := vm.proxyClass(iface)
	if err != nil {
		return nil, env.Throw("java.lang.IllegalArgumentException", "%s", err.Error())
	}
	obj := vm.alloc(c)
	obj.native = &proxyState{token: token}
	return obj, nil
}

// ProxyToken returns the token of a proxy instance.
func (vm *VM) ProxyToken(o *Object) (uint64, bool) {
	if o == nil {
		return 0, false
	}
	st, ok := o.Native().(*proxyState)
	if !ok {
		return 0, false
	}
	return st.token, true
}

// IsProxyClass reports whether c was generated by NewProxy.
func (vm *VM) IsProxyClass(c *Class) bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, p := range vm.proxies {
		if p == c {
			return true
		}
	}
	return false
}

func (vm *VM) proxyClass(iface *Class) (*Class, error) {
	vm.proxyMu.Lock()
	defer vm.proxyMu.Unlock()

	vm.mu.RLock()
	c := vm.proxies[iface]
	n := len(vm.proxies)
	vm.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	b := vm.NewClass(fmt.Sprintf("$Proxy%d", n)).Implements(iface.name).Final()
	for _, m := range iface.Methods() {
		if m.IsStatic() || !m.IsAbstract() {
			continue
		}
		params := make([]string, len(m.params))
		for i, p := range m.params {
			params[i] = p.TypeName()
		}
		b.Method(m.name, m.ret.TypeName(), params, vm.proxyGlue(m))
	}
	c, err := b.Register()
	if err != nil {
		return nil, err
	}

	vm.mu.Lock()
	vm.proxies[iface] = c
	vm.mu.Unlock()
	return c, nil
}

// proxyGlue forwards a call to the proxy callback. A missing callback or a
// failed dispatch yields the zero value of the return type; the failure is
// logged, never thrown.
func (vm *VM) proxyGlue(m *Method) MethodFunc {
	return func(env *Env, this *Object, args []Value) (Value, error) {
		zero := Zero(m.ret.kind)
		st, ok := this.Native().(*proxyState)
		if !ok {
			return zero, nil
		}
		cb := vm.proxyCB.Load()
		if cb == nil {
			Logger().Warn("proxy called without a callback",
				zap.String("method", m.String()),
				zap.Uint64("token", st.token))
			return zero, nil
		}

		result, err := (*cb)(env, st.token, m, args)
		if err != nil {
			Logger().Warn("proxy dispatch failed",
				zap.String("method", m.String()),
				zap.Uint64("token", st.token),
				zap.Uint64("thread", uint64(env.id)),
				zap.Error(err))
			return zero, nil
		}
		if m.ret.kind == KindVoid {
			return Void, nil
		}
		if !storable(m.ret, result) {
			Logger().Warn("proxy result does not match return type",
				zap.String("method", m.String()),
				zap.String("result", result.kind.String()))
			return zero, nil
		}
		return result, nil
	}
}
