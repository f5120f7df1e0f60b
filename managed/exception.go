package managed

import (
	"errors"
	"fmt"
)

type throwableState struct {
	cause   *Object
	message string
	stack   []string
}

// Exception is a thrown java.lang.Throwable travelling up a Go call stack.
type Exception struct {
	obj *Object
}

// AsException reports whether err carries a managed exception.
func AsException(err error) (*Exception, bool) {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc, true
	}
	return nil, false
}

// Object returns the throwable instance.
func (e *Exception) Object() *Object { return e.obj }

// Class returns the throwable's class.
func (e *Exception) Class() *Class { return e.obj.class }

func (e *Exception) state() *throwableState {
	st, _ := e.obj.Native().(*throwableState)
	if st == nil {
		return &throwableState{}
	}
	return st
}

// Message returns the detail message, possibly empty.
func (e *Exception) Message() string { return e.state().message }

// Stack returns the frames captured when the exception was thrown,
// innermost first.
func (e *Exception) Stack() []string { return e.state().stack }

// Cause returns the wrapped cause, if any.
func (e *Exception) Cause() *Exception {
	if c := e.state().cause; c != nil {
		return &Exception{obj: c}
	}
	return nil
}

func (e *Exception) Error() string {
	return e.obj.String()
}

// Throw creates an instance of the named throwable class and returns it as
// an error. An unknown class name degrades to java.lang.RuntimeException.
func (e *Env) Throw(className, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	c, err := e.vm.FindClass(className)
	if err != nil || !e.vm.throwable.IsAssignableFrom(c) {
		c = e.vm.mustClass("java.lang.RuntimeException")
	}
	return e.throwObject(c, msg, nil)
}

// ThrowCause is Throw with a cause attached.
func (e *Env) ThrowCause(className string, cause *Exception, format string, args ...any) error {
	err := e.Throw(className, format, args...)
	exc := err.(*Exception)
	if cause != nil {
		exc.state().cause = cause.obj
	}
	return exc
}

func (e *Env) throwObject(c *Class, msg string, cause *Object) *Exception {
	obj := e.vm.alloc(c)
	obj.native = &throwableState{message: msg, stack: e.StackTrace(), cause: cause}
	return &Exception{obj: obj}
}
