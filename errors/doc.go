// Package errors provides structured error types for the bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: value path, host/managed type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindOverflow).
//		Path("args", "0").
//		HostType("int").
//		ManagedType("byte").
//		Detail("value 300 does not fit").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ClassNotFound("com.example.Missing")
//	err := errors.Usage("called without a callback")
//
// Kind-only sentinels (ErrMemberNotFound, ErrStaleProxy, ...) match errors of any phase:
//
//	if errors.Is(err, objerrors.ErrMemberNotFound) { ... }
//
// Exceptions raised inside the managed runtime are carried by ExceptionError,
// reachable with errors.As from a KindManagedException error.
package errors
