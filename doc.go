// Package objbridge connects a single-threaded host engine to a
// multi-threaded managed runtime.
//
// # Architecture Overview
//
//	objbridge/           Bridge entry points and the process-wide RuntimeContext
//	├── host/            Single-threaded event loop and host value model
//	├── managed/         Managed runtime: classes, objects, threads, proxies
//	├── marshal/         Value conversion between host and managed values
//	├── resolve/         Constructor, method and field lookup by argument types
//	├── baton/           One call's lifecycle plus the bounded worker pool
//	├── proxy/           Managed interfaces implemented by host functions
//	├── resource/        Generational handle tables
//	├── config/          Boot configuration (YAML, validation, JSON schema)
//	└── errors/          Structured error types
//
// # Quick Start
//
//	loop := host.NewLoop()
//	b, err := objbridge.New(loop, objbridge.WithConfig(cfg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	v, err := b.CallStaticMethodSync("java.lang.Math", "max", 3, 7)
//	fmt.Println(v) // 7
//
// Asynchronous variants take a trailing host.Callback and deliver it on
// the goroutine running the loop:
//
//	b.CallStaticMethod("java.lang.Math", "max", 3, 7, host.Callback(func(err error, v any) {
//	    fmt.Println(v)
//	}))
//	loop.Run(ctx)
//
// # Threads
//
// The goroutine that runs the loop is the host thread. Synchronous calls
// must be made from it. Asynchronous calls run on pool workers, each a
// managed thread of its own. A proxy method invoked on a worker is posted
// to the loop and the worker waits for the result, bounded by the
// configured proxy timeout.
//
// # Runtime lifetime
//
// The managed runtime is created on first use and lives as long as its
// RuntimeContext. Classpath and options can only change before that.
package objbridge
