// Package baton carries one host call into the managed runtime and its
// outcome back.
//
// A Baton moves through Created, Resolving, Executing and then Completed
// or Failed. Each step is a compare-and-swap on the state, so a baton runs
// at most once and its state can be read from any goroutine.
//
// RunSync executes on the calling goroutine with the caller's Env. Run
// hands the baton to a Pool: a bounded set of workers, each attached to
// the runtime as its own managed thread. The outcome is posted to the host
// loop and delivered to the callback on the host thread, error first. The
// loop stays referenced until the callback has run.
package baton
