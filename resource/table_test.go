package resource

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func TestUnifiedTable_Basic(t *testing.T) {
	table := NewTable()

	h := table.Insert(TypeGlobalRef, "test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if _, ok = table.GetTyped(h, TypeGlobalRef); !ok {
		t.Fatal("GetTyped with correct type failed")
	}
	if _, ok = table.GetTyped(h, TypeProxyBinding); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	val, ok = table.Remove(h)
	if !ok {
		t.Fatal("Remove failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
	if table.Live(h) {
		t.Fatal("removed handle must not be live")
	}
}

func TestUnifiedTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert(TypeGlobalRef, "test")
	if len(obs.events) != 1 || obs.events[0].Type != EventCreated {
		t.Fatalf("Expected EventCreated, got %v", obs.events)
	}
	if obs.events[0].Handle != h {
		t.Fatal("Wrong handle in event")
	}

	table.Remove(h)
	if len(obs.events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(obs.events))
	}
	if obs.events[1].Type != EventInvalidated || obs.events[2].Type != EventReleased {
		t.Fatalf("Expected invalidated then released, got %v", obs.events)
	}

	table.Unsubscribe(obs)
	table.Insert(TypeGlobalRef, "test2")
	if len(obs.events) != 3 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestUnifiedTable_BorrowDefersRelease(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}

	h := table.Insert(TypeProxyBinding, d)
	if _, ok := table.Borrow(h); !ok {
		t.Fatal("Borrow failed")
	}

	if _, ok := table.Remove(h); !ok {
		t.Fatal("Remove failed")
	}
	if table.Live(h) {
		t.Fatal("invalidated handle must not be live while borrowed")
	}
	if d.count != 0 {
		t.Fatal("value dropped while a borrow is outstanding")
	}

	if !table.Return(h) {
		t.Fatal("Return failed")
	}
	if d.count != 1 {
		t.Fatalf("Expected Drop() once after last borrow, got %d", d.count)
	}

	if table.Return(h) {
		t.Fatal("Return on reclaimed slot should fail")
	}
}

func TestUnifiedTable_StaleGeneration(t *testing.T) {
	table := NewTable()

	h1 := table.Insert(TypeGlobalRef, "first")
	table.Remove(h1)

	h2 := table.Insert(TypeGlobalRef, "second")
	if h1.slot() != h2.slot() {
		t.Fatalf("expected slot reuse, got %d and %d", h1.slot(), h2.slot())
	}
	if h1 == h2 {
		t.Fatal("reused slot must carry a new generation")
	}

	if _, ok := table.Get(h1); ok {
		t.Fatal("stale handle resolved to the new occupant")
	}
	if v, ok := table.Get(h2); !ok || v != "second" {
		t.Fatalf("Get(h2) = %v, %v", v, ok)
	}
}

func TestUnifiedTable_CorruptHandles(t *testing.T) {
	table := NewTable()
	table.Insert(TypeGlobalRef, "x")

	for _, h := range []Handle{0, makeHandle(99, 1), makeHandle(1, 7)} {
		if _, ok := table.Get(h); ok {
			t.Errorf("Get(%#x) should fail", uint64(h))
		}
		if _, ok := table.Borrow(h); ok {
			t.Errorf("Borrow(%#x) should fail", uint64(h))
		}
	}
}

func TestUnifiedTable_Clear(t *testing.T) {
	table := NewTable()

	table.Insert(TypeGlobalRef, "a")
	table.Insert(TypeGlobalRef, "b")
	table.Insert(TypeProxyBinding, "c")

	if table.Len() != 3 {
		t.Fatal("Expected Len() == 3")
	}

	table.Clear()

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Clear")
	}
}

func TestUnifiedTable_Close(t *testing.T) {
	table := NewTable()

	table.Insert(TypeGlobalRef, "a")
	table.Insert(TypeGlobalRef, "b")

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if h := table.Insert(TypeGlobalRef, "c"); h != 0 {
		t.Fatal("Expected Insert to fail after Close")
	}
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() {
	d.count++
}

func TestUnifiedTable_DropperInterface(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}

	h := table.Insert(TypeGlobalRef, d)
	table.Remove(h)

	if d.count != 1 {
		t.Fatalf("Expected Drop() to be called once, called %d times", d.count)
	}
}

func TestTyped(t *testing.T) {
	table := NewTable()
	strs := NewTyped[string](table, TypeGlobalRef)
	ints := NewTyped[int](table, TypeProxyBinding)

	hs := strs.Insert("a")
	hi := ints.Insert(7)

	if v, ok := strs.Get(hs); !ok || v != "a" {
		t.Fatalf("strs.Get = %q, %v", v, ok)
	}
	if _, ok := strs.Get(hi); ok {
		t.Fatal("typed view leaked another type")
	}
	if strs.Len() != 1 || ints.Len() != 1 {
		t.Fatalf("Len = %d/%d", strs.Len(), ints.Len())
	}

	v, ok := ints.Borrow(hi)
	if !ok || v != 7 {
		t.Fatalf("Borrow = %d, %v", v, ok)
	}
	if _, ok := ints.Remove(hi); !ok {
		t.Fatal("Remove failed")
	}
	if ints.Live(hi) {
		t.Fatal("removed entry still live")
	}
	if !ints.Return(hi) {
		t.Fatal("Return failed")
	}
}

func TestLogObserver(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	table := NewTable()
	table.Subscribe(&LogObserver{Logger: func() *zap.Logger { return log }, Table: "refs"})

	h := table.Insert(TypeGlobalRef, "v")
	if _, ok := table.Borrow(h); !ok {
		t.Fatal("Borrow failed")
	}
	table.Remove(h)
	table.Return(h)

	entries := logs.All()
	want := []string{"resource created", "resource invalidated", "resource released"}
	if len(entries) != len(want) {
		t.Fatalf("logged %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Message != want[i] {
			t.Errorf("entry %d = %q, want %q", i, e.Message, want[i])
		}
		fields := e.ContextMap()
		if fields["table"] != "refs" || fields["type"] != "global_ref" {
			t.Errorf("entry %d fields = %v", i, fields)
		}
		if fields["slot"] != h.slot() || fields["generation"] != h.generation() {
			t.Errorf("entry %d handle fields = %v", i, fields)
		}
	}
}

func TestLogObserver_Borrows(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	table := NewTable()
	h := table.Insert(TypeProxyBinding, "v")
	table.Subscribe(&LogObserver{Logger: func() *zap.Logger { return log }, Table: "proxies", Borrows: true})

	table.Borrow(h)
	table.Return(h)

	entries := logs.FilterMessage("resource borrow_returned").All()
	if len(entries) != 1 {
		t.Fatalf("borrow_returned logged %d times", len(entries))
	}
	if got := entries[0].ContextMap()["type"]; got != "proxy_binding" {
		t.Errorf("borrow_returned type = %v", got)
	}
}

func TestLogObserver_BelowLevel(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)
	table := NewTable()
	table.Subscribe(&LogObserver{Logger: func() *zap.Logger { return log }})
	table.Remove(table.Insert(TypeGlobalRef, "v"))
	if logs.Len() != 0 {
		t.Errorf("debug events logged at info level: %d", logs.Len())
	}
}
