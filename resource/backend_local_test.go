package resource

import (
	"errors"
	"sync"
	"testing"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()

	handle, err := b.Create(TypeGlobalRef, "test value")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := b.Get(handle)
	if !ok || val != "test value" {
		t.Fatalf("Get = %v, %v", val, ok)
	}

	val, reclaimed, ok := b.Invalidate(handle)
	if !ok || !reclaimed {
		t.Fatalf("Invalidate = %v, reclaimed=%v ok=%v", val, reclaimed, ok)
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	if _, ok = b.Get(handle); ok {
		t.Fatal("Expected Get to fail after Invalidate")
	}
	if _, _, ok = b.Invalidate(handle); ok {
		t.Fatal("double Invalidate should fail")
	}
}

func TestLocalBackend_BorrowCount(t *testing.T) {
	b := NewLocalBackend()
	h, _ := b.Create(TypeProxyBinding, "v")

	b.Borrow(h)
	b.Borrow(h)

	_, reclaimed, ok := b.Invalidate(h)
	if !ok || reclaimed {
		t.Fatalf("Invalidate with borrows: reclaimed=%v ok=%v", reclaimed, ok)
	}
	if b.Len() != 0 {
		t.Fatalf("invalidated entries are not live, Len = %d", b.Len())
	}

	if v, ok := b.ReturnBorrow(h); !ok || v != nil {
		t.Fatalf("first return reclaimed early: %v %v", v, ok)
	}
	if v, ok := b.ReturnBorrow(h); !ok || v != "v" {
		t.Fatalf("last return should reclaim: %v %v", v, ok)
	}
	if _, ok := b.ReturnBorrow(h); ok {
		t.Fatal("return after reclaim should fail")
	}
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend()
	d := &dropCounter{}
	b.Create(TypeGlobalRef, d)

	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if d.count != 1 {
		t.Fatalf("Drop called %d times", d.count)
	}
	if _, err := b.Create(TypeGlobalRef, "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Create after Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal("second Close should be a no-op")
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend()
	h1, _ := b.Create(TypeGlobalRef, 1)
	b.Create(TypeGlobalRef, 2)
	b.Invalidate(h1)

	var seen []any
	b.Each(func(_ Handle, _ TypeID, v any) bool {
		seen = append(seen, v)
		return true
	})
	if len(seen) != 1 || seen[0] != 2 {
		t.Fatalf("Each saw %v", seen)
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				h, err := b.Create(TypeGlobalRef, i*1000+j)
				if err != nil {
					t.Error(err)
					return
				}
				if v, ok := b.Get(h); !ok || v != i*1000+j {
					t.Errorf("Get(%d) = %v, %v", h, v, ok)
					return
				}
				b.Invalidate(h)
			}
		}(i)
	}
	wg.Wait()

	if b.Len() != 0 {
		t.Fatalf("Len = %d after concurrent churn", b.Len())
	}
}
