// Package resource provides generation-checked handle tables.
//
// Handles are opaque integers that can cross the bridge in place of Go
// pointers: the managed runtime holds global references by handle, and
// dynamic proxies carry their binding token as a handle.
//
// # Handle Table
//
// The UnifiedTable maps handles to Go values:
//
//	table := resource.NewTable()
//
//	h := table.Insert(resource.TypeProxyBinding, binding)
//	value, ok := table.Get(h)
//	value, ok = table.Remove(h)
//
// # Liveness
//
// Every handle carries the generation of its slot. Removing an entry ends its
// liveness at once; the slot is reused only after all borrows are returned,
// and reuse bumps the generation. A handle that was removed, never issued, or
// belongs to an earlier occupant of a slot fails every lookup instead of
// reaching someone else's value:
//
//	v, ok := table.Borrow(h) // pins the slot
//	...
//	table.Return(h)          // reclaims it if Remove happened meanwhile
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(observer) // EventCreated, EventInvalidated, EventReleased, ...
//
// Values implementing Dropper are dropped when their slot is reclaimed.
package resource
