package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConfig  Phase = "config"  // classpath/options validation
	PhaseBoot    Phase = "boot"    // managed runtime creation
	PhaseMarshal Phase = "marshal" // host <-> managed conversion
	PhaseResolve Phase = "resolve" // class and member lookup
	PhaseInvoke  Phase = "invoke"  // managed call execution
	PhaseProxy   Phase = "proxy"   // managed -> host callback dispatch
	PhaseHost    Phase = "host"    // host entry point argument handling
)

// Kind categorizes the error
type Kind string

const (
	KindConfiguration    Kind = "configuration"
	KindClassNotFound    Kind = "class_not_found"
	KindMemberNotFound   Kind = "member_not_found"
	KindTypeMismatch     Kind = "type_mismatch"
	KindOverflow         Kind = "overflow"
	KindInvalidUTF8      Kind = "invalid_utf8"
	KindManagedException Kind = "managed_exception"
	KindUsage            Kind = "usage"
	KindStaleProxy       Kind = "stale_proxy"
	KindTimeout          Kind = "timeout"
	KindNotInitialized   Kind = "not_initialized"
)

// Sentinels match any error of the same Kind regardless of phase:
//
//	errors.Is(err, objerrors.ErrMemberNotFound)
var (
	ErrConfiguration    = &Error{Kind: KindConfiguration}
	ErrClassNotFound    = &Error{Kind: KindClassNotFound}
	ErrMemberNotFound   = &Error{Kind: KindMemberNotFound}
	ErrTypeMismatch     = &Error{Kind: KindTypeMismatch}
	ErrOverflow         = &Error{Kind: KindOverflow}
	ErrInvalidUTF8      = &Error{Kind: KindInvalidUTF8}
	ErrManagedException = &Error{Kind: KindManagedException}
	ErrUsage            = &Error{Kind: KindUsage}
	ErrStaleProxy       = &Error{Kind: KindStaleProxy}
	ErrTimeout          = &Error{Kind: KindTimeout}
	ErrNotInitialized   = &Error{Kind: KindNotInitialized}
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value       any
	Cause       error
	Phase       Phase
	Kind        Kind
	HostType    string
	ManagedType string
	Detail      string
	Path        []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.HostType != "" || e.ManagedType != "" {
		b.WriteString(": ")
		if e.HostType != "" && e.ManagedType != "" {
			b.WriteString("host type ")
			b.WriteString(e.HostType)
			b.WriteString(", managed type ")
			b.WriteString(e.ManagedType)
		} else if e.HostType != "" {
			b.WriteString("host type ")
			b.WriteString(e.HostType)
		} else {
			b.WriteString("managed type ")
			b.WriteString(e.ManagedType)
		}
	}

	if e.Detail != "" {
		if e.HostType != "" || e.ManagedType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Is forwards to the standard library so callers importing this package
// as errors need no second import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As forwards to the standard library.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// HostType sets the host type name
func (b *Builder) HostType(t string) *Builder {
	b.err.HostType = t
	return b
}

// ManagedType sets the managed type name
func (b *Builder) ManagedType(t string) *Builder {
	b.err.ManagedType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, hostType, managedType string) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindTypeMismatch,
		Path:        path,
		HostType:    hostType,
		ManagedType: managedType,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data string) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// Overflow creates a narrowing overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindOverflow,
		Path:        path,
		ManagedType: targetType,
		Detail:      fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:       value,
	}
}

// Configuration creates a configuration error
func Configuration(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindConfiguration,
		Detail: detail,
		Cause:  cause,
	}
}

// ClassNotFound creates a class lookup error
func ClassNotFound(className string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindClassNotFound,
		Detail: "Could not find class " + className,
		Value:  className,
	}
}

// MemberNotFound creates a member lookup error with the given message
func MemberNotFound(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindMemberNotFound,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Usage creates a usage error for misuse detectable before any managed call
func Usage(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindUsage,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// StaleProxy creates an error for a proxy binding that failed verification
func StaleProxy(token uint64, detail string) *Error {
	return &Error{
		Phase:  PhaseProxy,
		Kind:   KindStaleProxy,
		Detail: detail,
		Value:  token,
	}
}

// Timeout creates a dispatch timeout error
func Timeout(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTimeout,
		Detail: detail,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ExceptionError describes an exception raised inside the managed runtime.
type ExceptionError struct {
	Class   string   // e.g., "java.lang.ArithmeticException"
	Message string   // may be empty
	Stack   []string // innermost frame first
}

func (e *ExceptionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Class)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for _, frame := range e.Stack {
		b.WriteString("\n\tat ")
		b.WriteString(frame)
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *ExceptionError) Is(target error) bool {
	_, ok := target.(*ExceptionError)
	return ok
}

// ManagedException wraps a managed exception raised while running detail.
func ManagedException(detail string, exc *ExceptionError) *Error {
	return &Error{
		Phase:       PhaseInvoke,
		Kind:        KindManagedException,
		ManagedType: exc.Class,
		Detail:      detail,
		Cause:       exc,
	}
}
