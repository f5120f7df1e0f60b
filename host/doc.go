// Package host models the single-threaded scripting engine that drives the
// bridge: a task loop whose Run goroutine is the host thread, and the host
// value model (nil, Undefined, bool, Go numbers, string, slices, *Object,
// Func).
package host
