package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:       PhaseMarshal,
				Kind:        KindTypeMismatch,
				Path:        []string{"args", "2", "0"},
				HostType:    "map[string]interface {}",
				ManagedType: "java.lang.Object",
				Detail:      "no managed equivalent",
			},
			contains: []string{"[marshal]", "type_mismatch", "args.2.0", "map[string]interface {}", "java.lang.Object", "no managed equivalent"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseResolve,
				Kind:  KindMemberNotFound,
			},
			contains: []string{"[resolve]", "member_not_found"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseBoot,
				Kind:   KindConfiguration,
				Detail: "bad option",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[boot]", "configuration", "bad option", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseMarshal,
		Kind:  KindTypeMismatch,
		Cause: cause,
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseResolve,
		Kind:  KindMemberNotFound,
	}

	if !err.Is(&Error{Phase: PhaseResolve, Kind: KindMemberNotFound}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseInvoke, Kind: KindMemberNotFound}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseResolve, Kind: KindClassNotFound}) {
		t.Error("Is should not match different kind")
	}

	if !errors.Is(err, ErrMemberNotFound) {
		t.Error("sentinel without phase should match on kind")
	}
	if errors.Is(err, ErrClassNotFound) {
		t.Error("sentinel of another kind should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseMarshal, KindOverflow).
		Path("args", "0").
		HostType("int").
		ManagedType("byte").
		Value(300).
		Cause(cause).
		Detail("expected %s, got %d", "byte", 300).
		Build()

	if err.Phase != PhaseMarshal {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseMarshal)
	}
	if err.Kind != KindOverflow {
		t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
	}
	if len(err.Path) != 2 || err.Path[0] != "args" {
		t.Errorf("Path = %v, want [args 0]", err.Path)
	}
	if err.HostType != "int" || err.ManagedType != "byte" {
		t.Errorf("HostType=%v ManagedType=%v", err.HostType, err.ManagedType)
	}
	if err.Value != 300 {
		t.Errorf("Value = %v, want 300", err.Value)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not reachable through errors.Is")
	}
	if err.Detail != "expected byte, got 300" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("ClassNotFound", func(t *testing.T) {
		err := ClassNotFound("com.example.Missing")
		if !errors.Is(err, ErrClassNotFound) {
			t.Errorf("Kind = %v", err.Kind)
		}
		if err.Detail != "Could not find class com.example.Missing" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("MemberNotFound", func(t *testing.T) {
		err := MemberNotFound("Could not find method %q", "max")
		if err.Detail != `Could not find method "max"` {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseMarshal, []string{"val"}, 300, "byte")
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("Kind = %v", err.Kind)
		}
		if !strings.Contains(err.Detail, "300") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(PhaseMarshal, nil, "\xff\xfe")
		if err.Kind != KindInvalidUTF8 || !strings.Contains(err.Detail, "fffe") {
			t.Errorf("unexpected %v", err)
		}
	})

	t.Run("Usage", func(t *testing.T) {
		err := Usage("Static method '%s' called without a callback", "max")
		if !errors.Is(err, ErrUsage) || err.Phase != PhaseHost {
			t.Errorf("unexpected %v", err)
		}
	})

	t.Run("StaleProxy", func(t *testing.T) {
		err := StaleProxy(42, "binding invalidated")
		if !errors.Is(err, ErrStaleProxy) || err.Value != uint64(42) {
			t.Errorf("unexpected %v", err)
		}
	})
}

func TestExceptionError(t *testing.T) {
	exc := &ExceptionError{
		Class:   "java.lang.ArithmeticException",
		Message: "/ by zero",
		Stack:   []string{"java.lang.Math.floorDiv", "test.Calc.run"},
	}

	msg := exc.Error()
	for _, want := range []string{"java.lang.ArithmeticException: / by zero", "\tat java.lang.Math.floorDiv", "\tat test.Calc.run"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}

	err := ManagedException("Could not invoke method", exc)
	if !errors.Is(err, ErrManagedException) {
		t.Error("expected managed exception kind")
	}
	var got *ExceptionError
	if !errors.As(err, &got) || got.Class != exc.Class {
		t.Errorf("errors.As did not recover the exception: %v", got)
	}
	if err.ManagedType != "java.lang.ArithmeticException" {
		t.Errorf("ManagedType = %q", err.ManagedType)
	}

	bare := &ExceptionError{Class: "java.lang.NullPointerException"}
	if bare.Error() != "java.lang.NullPointerException" {
		t.Errorf("bare = %q", bare.Error())
	}
}
