package objbridge

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/objbridge/config"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/managed"
)

// RuntimeContext owns one managed runtime and the managed thread of the
// host. The runtime is created on first use, at most once.
type RuntimeContext struct {
	cfg     config.Config
	vm      *managed.VM
	hostEnv *managed.Env
	mu      sync.Mutex
}

var (
	defaultContext     *RuntimeContext
	defaultContextOnce sync.Once
)

// DefaultContext returns the process-wide runtime context.
func DefaultContext() *RuntimeContext {
	defaultContextOnce.Do(func() {
		defaultContext = NewRuntimeContext()
	})
	return defaultContext
}

// NewRuntimeContext returns an independent context with the default
// configuration.
func NewRuntimeContext() *RuntimeContext {
	return &RuntimeContext{cfg: config.Default()}
}

// Config returns a copy of the configuration the runtime boots (or
// booted) with.
func (rc *RuntimeContext) Config() config.Config {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.cfg.Clone()
}

// Configure replaces the boot configuration. It fails once the runtime
// exists.
func (rc *RuntimeContext) Configure(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return rc.update(func(c *config.Config) { *c = cfg.Clone() })
}

func (rc *RuntimeContext) update(fn func(*config.Config)) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.vm != nil {
		return errors.Usage("the managed runtime is already running; configuration must be set before the first call")
	}
	fn(&rc.cfg)
	return nil
}

// Booted reports whether the runtime has been created.
func (rc *RuntimeContext) Booted() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.vm != nil
}

// Boot creates the runtime if it does not exist yet and returns it with
// the host's managed thread. A failed boot can be retried.
func (rc *RuntimeContext) Boot(ctx context.Context) (*managed.VM, *managed.Env, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.vm != nil {
		return rc.vm, rc.hostEnv, nil
	}

	vm, err := managed.New(ctx, managed.Config{
		Classpath: rc.cfg.Classpath,
		Options:   rc.cfg.Options,
	})
	if err != nil {
		Logger().Error("managed runtime failed to start", zap.Error(err))
		return nil, nil, err
	}
	rc.vm = vm
	rc.hostEnv = vm.AttachThread("main")
	Logger().Info("managed runtime ready",
		zap.Strings("classpath", rc.cfg.Classpath),
		zap.Strings("options", rc.cfg.Options))
	return rc.vm, rc.hostEnv, nil
}

// Close shuts the runtime down. The context can boot again afterwards.
func (rc *RuntimeContext) Close(ctx context.Context) error {
	rc.mu.Lock()
	vm := rc.vm
	rc.vm, rc.hostEnv = nil, nil
	rc.mu.Unlock()
	if vm == nil {
		return nil
	}
	return vm.Close(ctx)
}
