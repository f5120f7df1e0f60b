package host

import (
	"context"
	"sync"
	"sync/atomic"
)

// Loop is the host's single-threaded task queue. Tasks posted from any
// goroutine run one at a time on the goroutine that calls Run or RunOnce,
// which is the host thread.
type Loop struct {
	wake  chan struct{}
	tasks []func()
	refs  atomic.Int64
	mu    sync.Mutex
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues fn. It is safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.signal()
}

// Ref records outstanding work that will post a task later. Run does not
// return while refs are held.
func (l *Loop) Ref() {
	l.refs.Add(1)
}

// Unref releases a Ref.
func (l *Loop) Unref() {
	if l.refs.Add(-1) < 0 {
		panic("host: Loop.Unref without Ref")
	}
	l.signal()
}

// Refs returns the number of outstanding refs.
func (l *Loop) Refs() int64 {
	return l.refs.Load()
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// RunOnce runs the tasks queued at the time of the call and returns how
// many ran. Tasks posted meanwhile wait for the next turn.
func (l *Loop) RunOnce() int {
	l.mu.Lock()
	batch := l.tasks
	l.tasks = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Run drains the queue until it is empty and no refs are held, or ctx is
// done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunOnce()
		if l.Pending() == 0 && l.refs.Load() == 0 {
			return nil
		}
		if l.Pending() > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}
