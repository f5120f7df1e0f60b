// Package proxy lets managed code call host functions through dynamically
// implemented interfaces.
//
// NewProxy records a Binding (an interface plus a table of host callables
// keyed by method name) in a handle table and creates a managed proxy
// carrying the binding's handle as its token. Every call on the proxy
// reaches Dispatch, the single callback installed on the VM.
//
// Dispatch first checks that the token still names a live binding. Calls
// made on the host thread run the callable directly. Calls from any other
// managed thread post a task to the host loop and wait for it, up to the
// configured timeout. After the callable returns, liveness is checked
// again and the result of a binding invalidated meanwhile is discarded.
//
// Bindings are invalidated explicitly, or when the last Retain is
// released. Host garbage collection never frees them.
package proxy
