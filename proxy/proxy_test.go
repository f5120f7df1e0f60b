package proxy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/host"
	"github.com/wippyai/objbridge/managed"
)

type fixture struct {
	vm      *managed.VM
	hostEnv *managed.Env
	loop    *host.Loop
	d       *Dispatcher
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	vm, err := managed.New(context.Background(), managed.Config{})
	if err != nil {
		t.Fatalf("managed.New: %v", err)
	}
	t.Cleanup(func() { vm.Close(context.Background()) })
	hostEnv := vm.AttachThread("main")
	loop := host.NewLoop()
	d := NewDispatcher(vm, hostEnv, loop, timeout)
	t.Cleanup(d.Close)
	return &fixture{vm: vm, hostEnv: hostEnv, loop: loop, d: d}
}

func (f *fixture) class(t *testing.T, name string) *managed.Class {
	t.Helper()
	c, err := f.vm.FindClass(name)
	if err != nil {
		t.Fatalf("FindClass(%q): %v", name, err)
	}
	return c
}

func (f *fixture) box(v int32) managed.Value {
	return managed.Ref(f.vm.Box(managed.Int(v)))
}

// greeter is a test interface returning a reference type.
func (f *fixture) greeter(t *testing.T) *managed.Class {
	t.Helper()
	return f.vm.NewClass("demo.Greeter").Interface().
		AbstractMethod("greet", "java.lang.String", "java.lang.String").
		MustRegister()
}

// waitQueued blocks until the loop has a task waiting.
func (f *fixture) waitQueued(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for f.loop.Pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no call reached the host loop")
		}
		time.Sleep(time.Millisecond)
	}
}

type compareCall struct{ a, b any }

func subtract(calls *[]compareCall) host.Func {
	return func(args ...any) (any, error) {
		*calls = append(*calls, compareCall{args[0], args[1]})
		return int(args[0].(int32) - args[1].(int32)), nil
	}
}

func TestDispatch_SameThread(t *testing.T) {
	f := newFixture(t, time.Second)
	var calls []compareCall
	_, obj, err := f.d.NewProxy(f.hostEnv, f.class(t, "java.util.Comparator"), map[string]any{
		"compare": subtract(&calls),
	})
	if err != nil {
		t.Fatal(err)
	}

	// no loop turn needed on the host thread
	got, err := f.hostEnv.CallMethod(obj, "compare", f.box(5), f.box(9))
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind() != managed.KindInt || got.AsInt() != -4 {
		t.Errorf("compare(5, 9) = %v", got)
	}
	if len(calls) != 1 || calls[0].a != int32(5) || calls[0].b != int32(9) {
		t.Errorf("callable saw %v", calls)
	}
}

func TestDispatch_ForeignThread(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	var calls []compareCall
	_, obj, err := f.d.NewProxy(f.hostEnv, f.class(t, "java.util.Comparator"), map[string]any{
		"compare": subtract(&calls),
	})
	if err != nil {
		t.Fatal(err)
	}

	var got managed.Value
	var callErr error
	f.loop.Ref()
	f.vm.Spawn("worker", func(env *managed.Env) {
		got, callErr = env.CallMethod(obj, "compare", f.box(5), f.box(9))
		f.loop.Post(f.loop.Unref)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.loop.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if callErr != nil {
		t.Fatal(callErr)
	}
	if got.AsInt() != -4 {
		t.Errorf("compare(5, 9) = %v", got)
	}
	if len(calls) != 1 || calls[0].a != int32(5) || calls[0].b != int32(9) {
		t.Errorf("callable saw %v", calls)
	}
}

func TestDispatch_SortFromWorker(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	var calls []compareCall
	_, cmp, err := f.d.NewProxy(f.hostEnv, f.class(t, "java.util.Comparator"), map[string]any{
		"compare": subtract(&calls),
	})
	if err != nil {
		t.Fatal(err)
	}
	list, err := f.hostEnv.New(f.class(t, "java.util.ArrayList").Constructors()[0], nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []int32{3, 1, 2} {
		if _, err := f.hostEnv.CallMethod(list, "add", f.box(v)); err != nil {
			t.Fatal(err)
		}
	}

	sort := f.class(t, "java.util.Collections").MethodByName("sort", 2)
	var sortErr error
	f.loop.Ref()
	f.vm.Spawn("sorter", func(env *managed.Env) {
		_, sortErr = env.Invoke(sort, nil, []managed.Value{managed.Ref(list), managed.Ref(cmp)})
		f.loop.Post(f.loop.Unref)
	})
	if err := f.loop.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sortErr != nil {
		t.Fatal(sortErr)
	}
	if got := list.String(); got != "[1, 2, 3]" {
		t.Errorf("sorted list = %s", got)
	}
	if len(calls) == 0 {
		t.Error("comparator was never called")
	}
}

func TestDispatch_StaleFromForeignThread(t *testing.T) {
	f := newFixture(t, time.Second)
	var calls []compareCall
	comparator := f.class(t, "java.util.Comparator")
	b, obj, err := f.d.NewProxy(f.hostEnv, comparator, map[string]any{"compare": subtract(&calls)})
	if err != nil {
		t.Fatal(err)
	}
	if !b.Invalidate() {
		t.Fatal("Invalidate reported the binding was not live")
	}

	foreign := f.vm.AttachThread("foreign")
	_, err = f.d.Dispatch(foreign, b.Token(), comparator.MethodByName("compare", 2), []managed.Value{f.box(1), f.box(2)})
	if !errors.Is(err, errors.ErrStaleProxy) {
		t.Fatalf("err = %v, want stale proxy", err)
	}
	if f.loop.Pending() != 0 {
		t.Error("stale call was posted to the host loop")
	}

	// through the proxy object the failure degrades to the zero value
	got, err := foreign.CallMethod(obj, "compare", f.box(1), f.box(2))
	if err != nil || got.AsInt() != 0 {
		t.Errorf("compare on stale proxy = %v, %v", got, err)
	}
	if len(calls) != 0 {
		t.Errorf("stale proxy reached the callable %d times", len(calls))
	}
}

func TestDispatch_ForgedToken(t *testing.T) {
	f := newFixture(t, time.Second)
	comparator := f.class(t, "java.util.Comparator")
	for _, token := range []uint64{0, 1, 1<<32 | 1, 1 << 40} {
		_, err := f.d.Dispatch(f.hostEnv, token, comparator.MethodByName("compare", 2), nil)
		if !errors.Is(err, errors.ErrStaleProxy) {
			t.Errorf("token %#x: err = %v", token, err)
		}
	}
}

func TestDispatch_Timeout(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	greeter := f.greeter(t)
	ran := false
	b, _, err := f.d.NewProxy(f.hostEnv, greeter, map[string]any{
		"greet": func(args ...any) any {
			ran = true
			return "late " + args[0].(string)
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	foreign := f.vm.AttachThread("foreign")
	arg := managed.Ref(foreign.NewString("bob"))
	_, err = f.d.Dispatch(foreign, b.Token(), greeter.MethodByName("greet", 1), []managed.Value{arg})
	if !errors.Is(err, errors.ErrTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}

	// the abandoned call still runs and releases its result
	if n := f.loop.RunOnce(); n != 1 {
		t.Fatalf("RunOnce ran %d tasks", n)
	}
	if !ran {
		t.Error("abandoned call did not run")
	}
	if n := f.vm.GlobalRefCount(); n != 0 {
		t.Errorf("%d global refs leaked", n)
	}
}

func TestDispatch_ReferenceResultFromForeignThread(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	greeter := f.greeter(t)
	_, obj, err := f.d.NewProxy(f.hostEnv, greeter, map[string]any{
		"greet": func(args ...any) any { return "hello " + args[0].(string) },
	})
	if err != nil {
		t.Fatal(err)
	}

	var got managed.Value
	var callErr error
	f.loop.Ref()
	f.vm.Spawn("worker", func(env *managed.Env) {
		got, callErr = env.CallMethod(obj, "greet", managed.Ref(env.NewString("ann")))
		f.loop.Post(f.loop.Unref)
	})
	if err := f.loop.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if callErr != nil {
		t.Fatal(callErr)
	}
	if s, _ := got.Object().GoString(); s != "hello ann" {
		t.Errorf("greet = %q", s)
	}
	if n := f.vm.GlobalRefCount(); n != 0 {
		t.Errorf("%d global refs leaked", n)
	}
}

func TestDispatch_HostFailuresYieldZero(t *testing.T) {
	tests := []struct {
		name string
		fns  map[string]any
	}{
		{"absent callable", map[string]any{}},
		{"not callable", map[string]any{"compare": 42}},
		{"callable error", map[string]any{"compare": host.Func(func(...any) (any, error) {
			return nil, fmt.Errorf("boom")
		})}},
		{"wrong result type", map[string]any{"compare": func(...any) any { return "x" }}},
		{"fractional result", map[string]any{"compare": func(...any) any { return 0.5 }}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, time.Second)
			_, obj, err := f.d.NewProxy(f.hostEnv, f.class(t, "java.util.Comparator"), tt.fns)
			if err != nil {
				t.Fatal(err)
			}
			got, err := f.hostEnv.CallMethod(obj, "compare", f.box(1), f.box(2))
			if err != nil {
				t.Fatal(err)
			}
			if got.Kind() != managed.KindInt || got.AsInt() != 0 {
				t.Errorf("compare = %s %v, want int 0", got.Kind(), got)
			}
		})
	}
}

func TestDispatch_InvalidatedDuringCall(t *testing.T) {
	f := newFixture(t, time.Second)
	var b *Binding
	var err error
	var obj *managed.Object
	b, obj, err = f.d.NewProxy(f.hostEnv, f.class(t, "java.util.Comparator"), map[string]any{
		"compare": func(...any) any {
			b.Invalidate()
			return 7
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.hostEnv.CallMethod(obj, "compare", f.box(1), f.box(2))
	if err != nil {
		t.Fatal(err)
	}
	if got.AsInt() != 0 {
		t.Errorf("result of invalidated binding = %v, want discarded", got)
	}
	if b.Live() {
		t.Error("binding still live")
	}
}

func TestBinding_RetainRelease(t *testing.T) {
	f := newFixture(t, time.Second)
	b, _, err := f.d.NewProxy(f.hostEnv, f.class(t, "java.lang.Runnable"), map[string]any{
		"run": func(...any) any { return nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.d.Len() != 1 {
		t.Fatalf("Len = %d", f.d.Len())
	}

	if !b.Retain() {
		t.Fatal("Retain on live binding failed")
	}
	b.Release()
	if !b.Live() {
		t.Fatal("binding died while still held")
	}
	b.Release()
	if b.Live() {
		t.Fatal("binding survived its last Release")
	}
	if b.Retain() {
		t.Error("Retain revived an invalidated binding")
	}
	if f.d.Len() != 0 {
		t.Errorf("Len = %d", f.d.Len())
	}
}

func TestNewProxy_RequiresInterface(t *testing.T) {
	f := newFixture(t, time.Second)
	_, _, err := f.d.NewProxy(f.hostEnv, f.class(t, "java.lang.String"), nil)
	if !errors.Is(err, errors.ErrUsage) {
		t.Fatalf("err = %v", err)
	}
	if f.d.Len() != 0 {
		t.Errorf("failed NewProxy left %d bindings", f.d.Len())
	}
}

func TestLookupObject(t *testing.T) {
	f := newFixture(t, time.Second)
	b, obj, err := f.d.NewProxy(f.hostEnv, f.class(t, "java.lang.Runnable"), nil)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := f.d.LookupObject(obj)
	if !ok || got != b {
		t.Fatal("LookupObject did not find the binding")
	}
	if _, ok := f.d.LookupObject(f.hostEnv.NewString("x")); ok {
		t.Error("plain object resolved to a binding")
	}
}

func TestDispatch_InvalidatedWhileQueued(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	var calls []compareCall
	b, obj, err := f.d.NewProxy(f.hostEnv, f.class(t, "java.util.Comparator"), map[string]any{
		"compare": subtract(&calls),
	})
	if err != nil {
		t.Fatal(err)
	}

	var got managed.Value
	var callErr error
	f.loop.Ref()
	f.vm.Spawn("worker", func(env *managed.Env) {
		got, callErr = env.CallMethod(obj, "compare", f.box(5), f.box(9))
		f.loop.Post(f.loop.Unref)
	})

	f.waitQueued(t)
	if !b.Invalidate() {
		t.Fatal("Invalidate reported the binding was not live")
	}
	if err := f.loop.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if callErr != nil || got.AsInt() != 0 {
		t.Errorf("compare on proxy invalidated while queued = %v, %v", got, callErr)
	}
	if len(calls) != 0 {
		t.Errorf("invalidated proxy reached the callable %d times", len(calls))
	}
}

func TestDispatch_CallablePanics(t *testing.T) {
	newPanicky := func(t *testing.T, f *fixture) *managed.Object {
		t.Helper()
		_, obj, err := f.d.NewProxy(f.hostEnv, f.class(t, "java.util.Comparator"), map[string]any{
			"compare": func(...any) any { panic("comparator exploded") },
		})
		if err != nil {
			t.Fatal(err)
		}
		return obj
	}

	t.Run("host thread", func(t *testing.T) {
		f := newFixture(t, time.Second)
		obj := newPanicky(t, f)
		got, err := f.hostEnv.CallMethod(obj, "compare", f.box(1), f.box(2))
		if err != nil {
			t.Fatalf("panic surfaced as %v", err)
		}
		if got.Kind() != managed.KindInt || got.AsInt() != 0 {
			t.Errorf("compare = %s %v, want int 0", got.Kind(), got)
		}
	})

	t.Run("managed thread", func(t *testing.T) {
		const timeout = 5 * time.Second
		f := newFixture(t, timeout)
		obj := newPanicky(t, f)

		var got managed.Value
		var callErr error
		var elapsed time.Duration
		f.loop.Ref()
		f.vm.Spawn("worker", func(env *managed.Env) {
			start := time.Now()
			got, callErr = env.CallMethod(obj, "compare", f.box(1), f.box(2))
			elapsed = time.Since(start)
			f.loop.Post(f.loop.Unref)
		})
		if err := f.loop.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		if callErr != nil || got.AsInt() != 0 {
			t.Errorf("compare = %v, %v", got, callErr)
		}
		if elapsed >= timeout {
			t.Errorf("caller waited %s for a panicked callable", elapsed)
		}
	})
}

func TestDispatch_CallHoldsBinding(t *testing.T) {
	f := newFixture(t, time.Second)
	var b *Binding
	var during int32
	var err error
	var obj *managed.Object
	b, obj, err = f.d.NewProxy(f.hostEnv, f.class(t, "java.util.Comparator"), map[string]any{
		"compare": func(...any) any {
			during = b.Refs()
			return 1
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.hostEnv.CallMethod(obj, "compare", f.box(1), f.box(2)); err != nil {
		t.Fatal(err)
	}
	if during != 2 {
		t.Errorf("holders during call = %d, want 2", during)
	}
	if n := b.Refs(); n != 1 {
		t.Errorf("holders after call = %d, want 1", n)
	}
}

func TestBinding_DisownWhileQueued(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	var calls []compareCall
	b, obj, err := f.d.NewProxy(f.hostEnv, f.class(t, "java.util.Comparator"), map[string]any{
		"compare": subtract(&calls),
	})
	if err != nil {
		t.Fatal(err)
	}

	var got managed.Value
	var callErr error
	f.loop.Ref()
	f.vm.Spawn("worker", func(env *managed.Env) {
		got, callErr = env.CallMethod(obj, "compare", f.box(5), f.box(9))
		f.loop.Post(f.loop.Unref)
	})

	f.waitQueued(t)
	if !b.Disown() {
		t.Fatal("Disown reported false")
	}
	if !b.Live() {
		t.Fatal("binding died while a call still held it")
	}
	if err := f.loop.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if callErr != nil || got.AsInt() != -4 {
		t.Errorf("compare = %v, %v", got, callErr)
	}
	if len(calls) != 1 {
		t.Errorf("callable ran %d times", len(calls))
	}
	if b.Live() {
		t.Error("binding outlived its last holder")
	}
	if b.Disown() {
		t.Error("second Disown reported true")
	}
	if f.d.Len() != 0 {
		t.Errorf("Len = %d", f.d.Len())
	}
}

func TestDispatcher_LogsBindingLifecycle(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })

	f := newFixture(t, time.Second)
	b, _, err := f.d.NewProxy(f.hostEnv, f.class(t, "java.lang.Runnable"), nil)
	if err != nil {
		t.Fatal(err)
	}
	b.Invalidate()

	var got []string
	for _, e := range logs.All() {
		if e.ContextMap()["table"] == "proxy_bindings" {
			got = append(got, e.Message)
		}
	}
	want := []string{"resource created", "resource invalidated", "resource released"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("binding events = %v, want %v", got, want)
	}
}
