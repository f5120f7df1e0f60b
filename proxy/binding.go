package proxy

import (
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/objbridge/managed"
	"github.com/wippyai/objbridge/resource"
)

// Binding ties a managed interface to host callables.
type Binding struct {
	iface      *managed.Class
	functions  map[string]any
	dispatcher *Dispatcher
	handle     resource.Handle
	refs       atomic.Int32
	owned      atomic.Bool
}

// Token is the value stored in the managed proxy. It encodes the binding's
// slot and generation.
func (b *Binding) Token() uint64 { return uint64(b.handle) }

// Interface returns the implemented interface.
func (b *Binding) Interface() *managed.Class { return b.iface }

// Methods returns the names of the callables, sorted.
func (b *Binding) Methods() []string {
	names := make([]string, 0, len(b.functions))
	for name := range b.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Live reports whether the binding can still dispatch calls.
func (b *Binding) Live() bool {
	return b.dispatcher.bindings.Live(b.handle)
}

// Retain adds a holder. It fails once the binding is invalidated.
func (b *Binding) Retain() bool {
	for {
		n := b.refs.Load()
		if n <= 0 || !b.Live() {
			return false
		}
		if b.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a holder. Releasing the last one invalidates the binding.
func (b *Binding) Release() {
	if b.refs.Add(-1) == 0 {
		b.Invalidate()
	}
}

// Disown drops the holder that NewProxy handed to its caller. The binding
// stays live while calls that retained it are running and is invalidated
// when the last one returns. Only the first Disown has an effect.
func (b *Binding) Disown() bool {
	if !b.owned.CompareAndSwap(true, false) {
		return false
	}
	b.Release()
	return true
}

// Refs returns the number of holders.
func (b *Binding) Refs() int32 {
	if n := b.refs.Load(); n > 0 {
		return n
	}
	return 0
}

// Invalidate ends the binding's liveness. Calls already running finish;
// their results are discarded. It reports whether the binding was live.
func (b *Binding) Invalidate() bool {
	_, ok := b.dispatcher.bindings.Remove(b.handle)
	if ok {
		b.refs.Store(0)
		b.owned.Store(false)
		Logger().Debug("proxy invalidated",
			zap.String("interface", b.iface.Name()),
			zap.Uint64("token", b.Token()))
	}
	return ok
}

// Drop runs when the binding's slot is reclaimed.
func (b *Binding) Drop() {
	Logger().Debug("proxy binding released",
		zap.String("interface", b.iface.Name()),
		zap.Uint64("token", b.Token()))
}
