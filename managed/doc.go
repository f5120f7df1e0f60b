// Package managed provides the in-process managed object runtime that the
// bridge drives.
//
// The runtime follows Java semantics closely enough for reflective callers:
// eight primitive kinds plus references, single inheritance with interfaces,
// overloaded constructors and methods, static and instance fields, arrays,
// exceptions with stack descriptions, dynamic proxies and threads.
//
// # Types
//
//	VM     - class registry, system properties, global references, threads
//	Env    - per-thread execution context; every call goes through one
//	Class  - reflective view of a type (Constructors, Methods, Fields)
//	Value  - tagged primitive or reference
//	Object - heap instance; strings hold UTF-16 code units
//
// # Defining Classes
//
// Builtin java.lang and java.util classes are defined at boot. Further
// classes come from three places:
//
//	vm.NewClass("demo.Point").Field("x", "int").Constructor(...).Register()
//	vm.DefineLibrary(lib)                 // exported Go methods as static methods
//	Config{Classpath: []string{"lib/"}}   // *.wasm files become wasm.<name> classes
//
// # Threads
//
// An Env belongs to one goroutine. AttachThread gives the calling goroutine
// its own Env; Spawn starts a managed thread. Proxy instances created with
// NewProxy forward every interface method to the installed ProxyCallback on
// whatever thread the call happens.
package managed
