package managed

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/resource"
)

// Config holds boot parameters for a VM.
type Config struct {
	// Classpath entries; .wasm files and directories holding them are loaded,
	// anything else is recorded in java.class.path only.
	Classpath []string
	// Options are raw runtime options such as -Dkey=value or -Xmx64m.
	Options []string
}

// ProxyCallback receives every call made on a proxy instance. token is the
// value given to NewProxy.
type ProxyCallback func(env *Env, token uint64, method *Method, args []Value) (Value, error)

// GlobalRef keeps an object reachable from outside the VM until deleted.
type GlobalRef resource.Handle

// VM is an in-process managed runtime.
type VM struct {
	classes   map[string]*Class
	arrays    map[*Class]*Class
	proxies   map[*Class]*Class
	props     map[string]string
	opts      *Options
	refTable  *resource.UnifiedTable
	refs      *resource.Typed[*Object]
	wasm      *wasmLoader
	proxyCB   atomic.Pointer[ProxyCallback]
	object    *Class
	str       *Class
	throwable *Class
	classCls  *Class
	threads   sync.WaitGroup
	nextObj   atomic.Uint64
	nextTID   atomic.Uint64

	mu      sync.RWMutex // guards classes, arrays, proxies
	proxyMu sync.Mutex
	propsMu sync.RWMutex
	closed  atomic.Bool
}

// New boots a VM. Unrecognized options fail with a configuration error;
// missing classpath entries are skipped.
func New(ctx context.Context, cfg Config) (*VM, error) {
	opts, err := ParseOptions(cfg.Options)
	if err != nil {
		return nil, err
	}

	vm := &VM{
		classes:  make(map[string]*Class),
		arrays:   make(map[*Class]*Class),
		proxies:  make(map[*Class]*Class),
		props:    make(map[string]string),
		opts:     opts,
		refTable: resource.NewTable(),
	}
	vm.refs = resource.NewTyped[*Object](vm.refTable, resource.TypeGlobalRef)
	vm.refTable.Subscribe(&resource.LogObserver{Logger: Logger, Table: "global_refs"})

	if err := vm.bootstrap(); err != nil {
		return nil, errors.Wrap(errors.PhaseBoot, errors.KindConfiguration, err, "bootstrap classes")
	}

	vm.props["java.class.path"] = ClassPathString(cfg.Classpath)
	vm.props["java.version"] = "17"
	vm.props["java.vendor"] = "objbridge"
	vm.props["java.vm.name"] = "objbridge managed runtime"
	vm.props["os.name"] = runtime.GOOS
	vm.props["os.arch"] = runtime.GOARCH
	vm.props["line.separator"] = "\n"
	vm.props["path.separator"] = string(os.PathListSeparator)
	vm.props["file.separator"] = string(os.PathSeparator)
	if wd, err := os.Getwd(); err == nil {
		vm.props["user.dir"] = wd
	}
	for k, v := range opts.Properties {
		vm.props[k] = v
	}

	vm.wasm = newWasmLoader(ctx, vm)
	if err := vm.loadClasspath(ctx, cfg.Classpath); err != nil {
		vm.wasm.close(ctx)
		return nil, err
	}

	Logger().Info("managed runtime started",
		zap.Strings("classpath", cfg.Classpath),
		zap.Int("classes", len(vm.classes)))
	return vm, nil
}

func (vm *VM) loadClasspath(ctx context.Context, entries []string) error {
	for _, entry := range entries {
		info, err := os.Stat(entry)
		if err != nil {
			Logger().Debug("classpath entry skipped", zap.String("entry", entry), zap.Error(err))
			continue
		}
		if !info.IsDir() {
			if strings.HasSuffix(entry, ".wasm") {
				if err := vm.wasm.load(ctx, entry); err != nil {
					return err
				}
			}
			continue
		}
		matches, err := filepath.Glob(filepath.Join(entry, "*.wasm"))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if err := vm.wasm.load(ctx, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close waits for spawned threads and releases global references and
// WebAssembly modules.
func (vm *VM) Close(ctx context.Context) error {
	if !vm.closed.CompareAndSwap(false, true) {
		return nil
	}
	vm.threads.Wait()
	vm.wasm.close(ctx)
	return vm.refTable.Close()
}

// Options returns the parsed runtime options.
func (vm *VM) Options() *Options { return vm.opts }

// FindClass looks up a defined class by name. Dotted and slashed binary
// names, primitive keywords, "int[]" style names and array descriptors
// such as "[I" or "[Ljava.lang.String;" are accepted.
func (vm *VM) FindClass(name string) (*Class, error) {
	if c := vm.lookup(name); c != nil {
		return c, nil
	}
	return nil, errors.ClassNotFound(name)
}

func (vm *VM) lookup(name string) *Class {
	name = strings.ReplaceAll(name, "/", ".")
	if strings.HasSuffix(name, "[]") {
		comp := vm.lookup(strings.TrimSuffix(name, "[]"))
		if comp == nil || comp.kind == KindVoid {
			return nil
		}
		return vm.ArrayOf(comp)
	}
	if strings.HasPrefix(name, "[") {
		return vm.fromDescriptor(name[1:])
	}
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if c := vm.classes[name]; c != nil && c.defined {
		return c
	}
	return nil
}

// fromDescriptor resolves the component part of an array descriptor.
func (vm *VM) fromDescriptor(desc string) *Class {
	if desc == "" {
		return nil
	}
	var comp *Class
	switch {
	case desc[0] == '[':
		comp = vm.fromDescriptor(desc[1:])
	case desc[0] == 'L' && strings.HasSuffix(desc, ";"):
		comp = vm.lookup(desc[1 : len(desc)-1])
	case len(desc) == 1:
		if k, ok := kindByDescriptor(desc[0]); ok {
			comp = vm.PrimitiveClass(k)
		}
	}
	if comp == nil {
		return nil
	}
	return vm.ArrayOf(comp)
}

// PrimitiveClass returns the class object of a primitive kind or void.
func (vm *VM) PrimitiveClass(k Kind) *Class {
	return vm.lookup(k.String())
}

// ArrayOf returns the array class with the given component type.
func (vm *VM) ArrayOf(component *Class) *Class {
	vm.mu.RLock()
	c := vm.arrays[component]
	vm.mu.RUnlock()
	if c != nil {
		return c
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if c = vm.arrays[component]; c != nil {
		return c
	}
	c = &Class{
		vm:        vm,
		name:      "[" + component.descriptor(),
		kind:      KindReference,
		super:     vm.object,
		component: component,
		mods:      ModPublic | ModFinal,
		defined:   true,
	}
	vm.arrays[component] = c
	return c
}

// Classes returns the names of all defined non-array classes.
func (vm *VM) Classes() []string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	names := make([]string, 0, len(vm.classes))
	for name, c := range vm.classes {
		if c.defined && !c.IsPrimitive() {
			names = append(names, name)
		}
	}
	return names
}

func (vm *VM) mustClass(name string) *Class {
	c := vm.lookup(name)
	if c == nil {
		panic("managed: bootstrap class missing: " + name)
	}
	return c
}

// AttachThread creates the Env of a new managed thread for the calling
// goroutine.
func (vm *VM) AttachThread(name string) *Env {
	id := ThreadID(vm.nextTID.Add(1))
	if name == "" {
		name = "Thread-" + strconv.FormatUint(uint64(id), 10)
	}
	return &Env{vm: vm, id: id, name: name}
}

// Spawn runs fn on a new managed thread. The returned channel is closed
// when fn returns.
func (vm *VM) Spawn(name string, fn func(env *Env)) <-chan struct{} {
	done := make(chan struct{})
	env := vm.AttachThread(name)
	vm.threads.Add(1)
	go func() {
		defer vm.threads.Done()
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				Logger().Error("managed thread panicked",
					zap.String("thread", env.name),
					zap.Any("panic", r))
			}
		}()
		fn(env)
	}()
	return done
}

// Property returns a system property.
func (vm *VM) Property(key string) (string, bool) {
	vm.propsMu.RLock()
	defer vm.propsMu.RUnlock()
	v, ok := vm.props[key]
	return v, ok
}

// SetProperty sets a system property and returns the previous value.
func (vm *VM) SetProperty(key, value string) (string, bool) {
	vm.propsMu.Lock()
	defer vm.propsMu.Unlock()
	prev, ok := vm.props[key]
	vm.props[key] = value
	return prev, ok
}

// NewGlobalRef pins o for use outside of any managed frame.
func (vm *VM) NewGlobalRef(o *Object) GlobalRef {
	return GlobalRef(vm.refs.Insert(o))
}

// DeleteGlobalRef releases a global reference. It reports false for
// references that were never issued or are already deleted.
func (vm *VM) DeleteGlobalRef(ref GlobalRef) bool {
	_, ok := vm.refs.Remove(resource.Handle(ref))
	return ok
}

// Deref returns the object behind a live global reference.
func (vm *VM) Deref(ref GlobalRef) (*Object, bool) {
	return vm.refs.Get(resource.Handle(ref))
}

// GlobalRefCount returns the number of live global references.
func (vm *VM) GlobalRefCount() int {
	return vm.refs.Len()
}

// SetProxyCallback installs the function that receives proxy calls.
func (vm *VM) SetProxyCallback(cb ProxyCallback) {
	if cb == nil {
		vm.proxyCB.Store(nil)
		return
	}
	vm.proxyCB.Store(&cb)
}

func (vm *VM) alloc(c *Class) *Object {
	obj := &Object{class: c, id: vm.nextObj.Add(1)}
	if c.slots > 0 {
		obj.fields = make([]Value, c.slots)
		for k := c; k != nil; k = k.super {
			for _, f := range k.fields {
				if !f.IsStatic() {
					obj.fields[f.slot] = Zero(f.typ.kind)
				}
			}
		}
	}
	return obj
}

// NewStringUTF16 creates a string object from UTF-16 code units.
func (vm *VM) NewStringUTF16(units []uint16) *Object {
	obj := vm.alloc(vm.str)
	obj.native = stringData(units)
	return obj
}

func (vm *VM) newArray(component *Class, n int) *Object {
	obj := vm.alloc(vm.ArrayOf(component))
	elems := make(arrayData, n)
	zero := Zero(component.kind)
	for i := range elems {
		elems[i] = zero
	}
	obj.native = elems
	return obj
}

// NewArrayOf creates an array holding values. Every value must be
// storable in component.
func (vm *VM) NewArrayOf(component *Class, values []Value) (*Object, bool) {
	for _, v := range values {
		if !storable(component, v) {
			return nil, false
		}
	}
	obj := vm.alloc(vm.ArrayOf(component))
	obj.native = arrayData(append([]Value(nil), values...))
	return obj, true
}

// Box wraps a primitive in its wrapper class. References are returned as is.
func (vm *VM) Box(v Value) *Object {
	if !v.kind.IsPrimitive() {
		return v.obj
	}
	obj := vm.alloc(vm.mustClass(v.kind.WrapperName()))
	obj.native = boxData(v)
	return obj
}

// ClassObject returns the java.lang.Class instance describing c.
func (vm *VM) ClassObject(c *Class) *Object {
	obj := vm.alloc(vm.classCls)
	obj.native = c
	return obj
}
