package managed

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/objbridge/errors"
)

// wasmLoader turns WebAssembly modules found on the classpath into classes.
// Every exported function whose signature uses only numeric types becomes
// a static method of class "wasm.<basename>".
type wasmLoader struct {
	vm      *VM
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	modules []api.Module
	mu      sync.Mutex
}

func newWasmLoader(_ context.Context, vm *VM) *wasmLoader {
	return &wasmLoader{vm: vm}
}

func (l *wasmLoader) ensureRuntime(ctx context.Context) wazero.Runtime {
	if l.runtime != nil {
		return l.runtime
	}
	l.cache = wazero.NewCompilationCache()
	l.runtime = wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCompilationCache(l.cache))
	return l.runtime
}

func (l *wasmLoader) load(ctx context.Context, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Configuration("cannot read "+path, err)
	}
	rt := l.ensureRuntime(ctx)

	compiled, err := rt.CompileModule(ctx, data)
	if err != nil {
		return errors.Configuration("invalid WebAssembly module "+path, err)
	}
	for _, imp := range compiled.ImportedFunctions() {
		if mod, _, _ := imp.Import(); mod == wasi_snapshot_preview1.ModuleName {
			if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil && !strings.Contains(err.Error(), "already") {
				return errors.Configuration("instantiate WASI", err)
			}
			break
		}
	}

	className := wasmClassName(path)
	mod, err := rt.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(className).WithStartFunctions("_initialize"))
	if err != nil {
		return errors.Configuration("instantiate "+path, err)
	}
	l.modules = append(l.modules, mod)

	b := l.vm.NewClass(className).Final()
	var callMu sync.Mutex
	exports := compiled.ExportedFunctions()
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := exports[name]
		paramTypes, ok := wasmTypeNames(def.ParamTypes())
		if !ok {
			continue
		}
		results, ok := wasmTypeNames(def.ResultTypes())
		if !ok || len(results) > 1 {
			continue
		}
		ret := "void"
		if len(results) == 1 {
			ret = results[0]
		}
		b.StaticMethod(name, ret, paramTypes, wasmMethod(mod.ExportedFunction(name), def, &callMu))
	}
	c, err := b.Register()
	if err != nil {
		return errors.Configuration("define "+className, err)
	}
	Logger().Info("wasm class loaded",
		zap.String("class", className),
		zap.String("path", path),
		zap.Int("methods", len(c.methods)))
	return nil
}

func (l *wasmLoader) close(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.runtime == nil {
		return
	}
	if err := l.runtime.Close(ctx); err != nil {
		Logger().Warn("closing wasm runtime", zap.Error(err))
	}
	if err := l.cache.Close(ctx); err != nil {
		Logger().Warn("closing compilation cache", zap.Error(err))
	}
	l.runtime = nil
	l.modules = nil
}

func wasmTypeNames(types []api.ValueType) ([]string, bool) {
	out := make([]string, len(types))
	for i, t := range types {
		switch t {
		case api.ValueTypeI32:
			out[i] = "int"
		case api.ValueTypeI64:
			out[i] = "long"
		case api.ValueTypeF32:
			out[i] = "float"
		case api.ValueTypeF64:
			out[i] = "double"
		default:
			return nil, false
		}
	}
	return out, true
}

func wasmMethod(fn api.Function, def api.FunctionDefinition, mu *sync.Mutex) MethodFunc {
	return func(env *Env, _ *Object, args []Value) (Value, error) {
		stack := make([]uint64, len(args))
		for i, a := range args {
			switch def.ParamTypes()[i] {
			case api.ValueTypeI32:
				stack[i] = api.EncodeI32(a.AsInt())
			case api.ValueTypeI64:
				stack[i] = api.EncodeI64(a.AsLong())
			case api.ValueTypeF32:
				stack[i] = api.EncodeF32(a.AsFloat())
			case api.ValueTypeF64:
				stack[i] = api.EncodeF64(a.AsDouble())
			}
		}

		mu.Lock()
		results, err := fn.Call(context.Background(), stack...)
		mu.Unlock()
		if err != nil {
			msg := err.Error()
			if strings.Contains(msg, "integer divide by zero") {
				return Value{}, env.Throw("java.lang.ArithmeticException", "/ by zero")
			}
			return Value{}, env.Throw("java.lang.RuntimeException", "%s", msg)
		}
		if len(results) == 0 {
			return Void, nil
		}
		switch def.ResultTypes()[0] {
		case api.ValueTypeI32:
			return Int(api.DecodeI32(results[0])), nil
		case api.ValueTypeI64:
			return Long(int64(results[0])), nil
		case api.ValueTypeF32:
			return Float(api.DecodeF32(results[0])), nil
		default:
			return Double(api.DecodeF64(results[0])), nil
		}
	}
}

// wasmClassName derives "wasm.<name>" from a file path, replacing
// characters that are not valid in an identifier.
func wasmClassName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' {
			return r
		}
		return '_'
	}, base)
	if name == "" || unicode.IsDigit([]rune(name)[0]) {
		name = "_" + name
	}
	return "wasm." + name
}
