package baton

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/host"
	"github.com/wippyai/objbridge/managed"
)

// Pool runs work on a bounded number of managed threads and delivers the
// outcome on the host loop.
type Pool struct {
	vm      *managed.VM
	loop    *host.Loop
	sem     *semaphore.Weighted
	ctx     context.Context
	cancel  context.CancelFunc
	idle    []*managed.Env
	wg      sync.WaitGroup
	size    int
	threads int
	mu      sync.Mutex
}

// NewPool creates a pool of at most size concurrent workers.
func NewPool(vm *managed.VM, loop *host.Loop, size int) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		vm:     vm,
		loop:   loop,
		sem:    semaphore.NewWeighted(int64(size)),
		ctx:    ctx,
		cancel: cancel,
		size:   size,
	}
}

// Size returns the worker limit.
func (p *Pool) Size() int { return p.size }

// Submit runs fn on a worker and posts cb(err, result) to the host loop.
// The loop is referenced from Submit until cb has returned.
func (p *Pool) Submit(fn func(env *managed.Env) (any, error), cb host.Callback) {
	p.loop.Ref()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		result, err := p.run(fn)
		p.loop.Post(func() {
			defer p.loop.Unref()
			cb(err, result)
		})
	}()
}

func (p *Pool) run(fn func(env *managed.Env) (any, error)) (any, error) {
	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		return nil, errors.Wrap(errors.PhaseInvoke, errors.KindNotInitialized, err, "worker pool closed")
	}
	defer p.sem.Release(1)

	env := p.acquireEnv()
	defer p.releaseEnv(env)
	return fn(env)
}

// acquireEnv reuses an idle worker thread or attaches a new one. The
// semaphore bounds how many can exist.
func (p *Pool) acquireEnv() *managed.Env {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.idle); n > 0 {
		env := p.idle[n-1]
		p.idle = p.idle[:n-1]
		return env
	}
	p.threads++
	env := p.vm.AttachThread("objbridge-worker-" + strconv.Itoa(p.threads))
	Logger().Debug("worker attached", zap.Stringer("thread", env))
	return env
}

func (p *Pool) releaseEnv(env *managed.Env) {
	p.mu.Lock()
	p.idle = append(p.idle, env)
	p.mu.Unlock()
}

// Threads returns how many worker threads have been attached.
func (p *Pool) Threads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.threads
}

// Run submits b. Its outcome reaches cb on the host thread.
func (b *Baton) Run(p *Pool, cb host.Callback) {
	Logger().Debug("call submitted",
		zap.Stringer("kind", b.req.Kind),
		zap.String("class", b.req.className()),
		zap.String("member", b.req.Member))
	p.Submit(b.RunSync, cb)
}

// Close stops accepting work and waits for running workers. Work still
// waiting for a worker completes with an error.
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
}
