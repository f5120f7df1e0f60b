package host

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/wippyai/objbridge/managed"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"int vs int32", 7, int32(7), true},
		{"int8 vs float64", int8(-3), -3.0, true},
		{"fraction", 1.5, 1, false},
		{"float32 vs float64", float32(0.5), 0.5, true},
		{"big uint", uint64(math.MaxUint64), uint64(math.MaxUint64), true},
		{"big uint vs int", uint64(math.MaxUint64), int64(-1), false},
		{"string", "a😀", "a😀", true},
		{"string vs number", "1", 1, false},
		{"bool", true, true, true},
		{"nil vs undefined", nil, Undefined, true},
		{"nil vs zero", nil, 0, false},
		{"slices", []any{1, "x"}, []any{int64(1), "x"}, true},
		{"typed slices", []int32{1, 2}, []any{1.0, 2}, true},
		{"slice length", []any{1}, []any{1, 2}, false},
		{"NaN", math.NaN(), math.NaN(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqualObjects(t *testing.T) {
	vm, err := managed.New(context.Background(), managed.Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer vm.Close(context.Background())
	env := vm.AttachThread("main")

	s := env.NewString("x")
	if !Equal(NewObject(s), NewObject(s)) {
		t.Fatal("same managed object must be equal")
	}
	if Equal(NewObject(s), NewObject(env.NewString("x"))) {
		t.Fatal("objects compare by identity")
	}
	if NewObject(nil) != nil {
		t.Fatal("NewObject(nil) must be nil")
	}
}

func TestAsFunc(t *testing.T) {
	sum := func(args ...any) any { return len(args) }
	f, ok := AsFunc(sum)
	if !ok {
		t.Fatal("func(...any) any must be callable")
	}
	if r, err := f(1, 2); err != nil || r != 2 {
		t.Fatalf("f = %v, %v", r, err)
	}

	boom := errors.New("boom")
	f, ok = AsFunc(Func(func(...any) (any, error) { return nil, boom }))
	if !ok {
		t.Fatal("Func must be callable")
	}
	if _, err := f(); err != boom {
		t.Fatalf("err = %v", err)
	}

	for _, v := range []any{nil, 42, "run", Func(nil), func() {}} {
		if _, ok := AsFunc(v); ok {
			t.Errorf("AsFunc(%T) should fail", v)
		}
	}
}
