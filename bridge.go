package objbridge

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/objbridge/baton"
	"github.com/wippyai/objbridge/config"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/host"
	"github.com/wippyai/objbridge/managed"
	"github.com/wippyai/objbridge/proxy"
	"github.com/wippyai/objbridge/resolve"
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithConfig sets the boot configuration. It fails New if the runtime
// context has already booted.
func WithConfig(cfg config.Config) Option {
	return func(b *Bridge) {
		c := cfg.Clone()
		b.pending = &c
	}
}

// WithContext selects the runtime context. The default is DefaultContext().
func WithContext(rc *RuntimeContext) Option {
	return func(b *Bridge) { b.rc = rc }
}

// WithLogger sets the logger of the bridge and of every package it drives.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// Bridge is the host-facing entry point. Synchronous calls must be made on
// the goroutine that runs the loop.
type Bridge struct {
	rc      *RuntimeContext
	loop    *host.Loop
	log     *zap.Logger
	pending *config.Config

	vm       *managed.VM
	env      *managed.Env
	resolver *resolve.Resolver
	pool     *baton.Pool
	proxies  *proxy.Dispatcher
	closed   bool
	mu       sync.Mutex
}

// New creates a bridge delivering asynchronous results on loop. A nil
// loop gets a fresh one. The managed runtime is not started until the
// first call.
func New(loop *host.Loop, opts ...Option) (*Bridge, error) {
	if loop == nil {
		loop = host.NewLoop()
	}
	b := &Bridge{loop: loop}
	for _, opt := range opts {
		opt(b)
	}
	if b.rc == nil {
		b.rc = DefaultContext()
	}
	if b.log != nil {
		SetLogger(b.log)
		managed.SetLogger(b.log.Named("managed"))
		baton.SetLogger(b.log.Named("baton"))
		proxy.SetLogger(b.log.Named("proxy"))
	}
	if b.pending != nil {
		if err := b.rc.Configure(*b.pending); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Loop returns the loop results are delivered on.
func (b *Bridge) Loop() *host.Loop { return b.loop }

// Context returns the runtime context.
func (b *Bridge) Context() *RuntimeContext { return b.rc }

// Classpath returns the configured classpath.
func (b *Bridge) Classpath() []string { return b.rc.Config().Classpath }

// Options returns the configured runtime options.
func (b *Bridge) Options() []string { return b.rc.Config().Options }

// SetClasspath replaces the classpath. v must be a list of strings.
func (b *Bridge) SetClasspath(v any) error {
	cp, err := config.Strings("classpath", v)
	if err != nil {
		return err
	}
	return b.rc.update(func(c *config.Config) { c.Classpath = cp })
}

// SetOptions replaces the runtime options. v must be a list of strings.
func (b *Bridge) SetOptions(v any) error {
	opts, err := config.Strings("options", v)
	if err != nil {
		return err
	}
	return b.rc.update(func(c *config.Config) { c.Options = opts })
}

// Runtime returns the managed runtime, starting it if needed.
func (b *Bridge) Runtime() (*managed.VM, error) {
	if _, err := b.start(); err != nil {
		return nil, err
	}
	return b.vm, nil
}

// start boots the runtime and builds the call machinery once.
func (b *Bridge) start() (*managed.Env, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.NotInitialized(errors.PhaseHost, "bridge (closed)")
	}
	if b.env != nil {
		return b.env, nil
	}

	cfg := b.rc.Config()
	strategy, err := resolve.ParseStrategy(cfg.Resolution)
	if err != nil {
		return nil, err
	}
	vm, env, err := b.rc.Boot(context.Background())
	if err != nil {
		return nil, err
	}

	b.vm = vm
	b.env = env
	b.resolver = resolve.New(strategy)
	b.pool = baton.NewPool(vm, b.loop, cfg.Workers)
	b.proxies = proxy.NewDispatcher(vm, env, b.loop, cfg.ProxyTimeout.Std())
	Logger().Debug("bridge started",
		zap.Stringer("resolution", strategy),
		zap.Int("workers", cfg.Workers),
		zap.Duration("proxy_timeout", cfg.ProxyTimeout.Std()))
	return env, nil
}

// Close stops the worker pool and invalidates every proxy. The runtime
// context stays up; close it separately.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	pool, proxies := b.pool, b.proxies
	b.mu.Unlock()

	if pool != nil {
		pool.Close()
	}
	if proxies != nil {
		proxies.Close()
	}
}
