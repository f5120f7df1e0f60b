package host

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLoop_RunDrainsQueue(t *testing.T) {
	l := NewLoop()
	var order []int
	l.Post(func() {
		order = append(order, 1)
		l.Post(func() { order = append(order, 3) })
	})
	l.Post(func() { order = append(order, 2) })

	if err := l.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v", order)
	}
}

func TestLoop_RunWaitsForRefs(t *testing.T) {
	l := NewLoop()
	l.Ref()

	var delivered bool
	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Post(func() {
			delivered = true
			l.Unref()
		})
	}()

	if err := l.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !delivered {
		t.Fatal("Run returned before the referenced task was delivered")
	}
	if l.Refs() != 0 {
		t.Fatalf("Refs = %d", l.Refs())
	}
}

func TestLoop_RunHonorsContext(t *testing.T) {
	l := NewLoop()
	l.Ref()
	defer l.Unref()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Run(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Run = %v, want deadline exceeded", err)
	}
}

func TestLoop_RunOnce(t *testing.T) {
	l := NewLoop()
	n := 0
	l.Post(func() {
		n++
		l.Post(func() { n++ })
	})

	if ran := l.RunOnce(); ran != 1 || n != 1 {
		t.Fatalf("first turn ran %d tasks, n=%d", ran, n)
	}
	if l.Pending() != 1 {
		t.Fatalf("Pending = %d", l.Pending())
	}
	l.RunOnce()
	if n != 2 {
		t.Fatalf("n = %d", n)
	}
}

func TestLoop_ConcurrentPost(t *testing.T) {
	l := NewLoop()
	const workers, per = 8, 100
	count := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		l.Ref()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < per; j++ {
				l.Post(func() { count++ })
			}
			l.Post(l.Unref)
		}()
	}

	if err := l.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
	if count != workers*per {
		t.Fatalf("count = %d", count)
	}
}

func TestLoop_UnrefWithoutRefPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewLoop().Unref()
}
