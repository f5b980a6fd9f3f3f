package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm"
)

// WazeroEngine compiles decoded modules with a wazero runtime.
type WazeroEngine struct {
	runtime  wazero.Runtime
	features api.CoreFeatures
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// Interpreter selects the wazero interpreter instead of the compiler.
	Interpreter bool
}

// NewWazeroEngine creates an engine enabling the proposals of set.
func NewWazeroEngine(ctx context.Context, set *wasm.Set) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, set, nil)
}

// NewWazeroEngineWithConfig creates an engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, set *wasm.Set, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.Interpreter {
		runtimeCfg = wazero.NewRuntimeConfigInterpreter()
	}

	features := set.CoreFeatures()
	runtimeCfg = runtimeCfg.WithCoreFeatures(features)
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	Logger().Debug("creating wazero runtime",
		zap.Strings("features", set.Names()),
		zap.String("core", features.String()))

	return &WazeroEngine{
		runtime:  wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		features: features,
	}, nil
}

// CoreFeatures returns the wazero feature flags the runtime was built with.
func (e *WazeroEngine) CoreFeatures() api.CoreFeatures {
	return e.features
}

// LoadModule hands the bytes of a decoded module to wazero for compilation.
// The module must have been decoded with a set whose flags the engine
// enables, otherwise wazero may reject constructs the decoder accepted.
func (e *WazeroEngine) LoadModule(ctx context.Context, m *wasm.Module) (*WazeroModule, error) {
	if got := m.Features().CoreFeatures(); got&^e.features != 0 {
		return nil, errors.Load("module decoded with features the engine does not enable: "+(got&^e.features).String(), nil)
	}

	compiled, err := e.runtime.CompileModule(ctx, m.Raw())
	if err != nil {
		Logger().Debug("compile failed", zap.Error(err))
		return nil, errors.Load("compile failed", err)
	}
	return &WazeroModule{
		runtime:  e.runtime,
		compiled: compiled,
		module:   m,
	}, nil
}

func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// WazeroModule is a module compiled by wazero.
type WazeroModule struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	module   *wasm.Module
}

// Module returns the decoded module.
func (m *WazeroModule) Module() *wasm.Module {
	return m.module
}

// ImportedFunctions returns "module.name" for each function import, as
// wazero sees them.
func (m *WazeroModule) ImportedFunctions() []string {
	var out []string
	for _, def := range m.compiled.ImportedFunctions() {
		mod, name, _ := def.Import()
		out = append(out, mod+"."+name)
	}
	return out
}

// ExportedFunctions returns the names of exported functions.
func (m *WazeroModule) ExportedFunctions() []string {
	defs := m.compiled.ExportedFunctions()
	out := make([]string, 0, len(defs))
	for name := range defs {
		out = append(out, name)
	}
	return out
}

// Instantiate creates an anonymous instance, running the start function
// if the module has one. Modules with imports need those registered in
// the runtime first.
func (m *WazeroModule) Instantiate(ctx context.Context) (api.Module, error) {
	inst, err := m.runtime.InstantiateModule(ctx, m.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Load("instantiate failed", err)
	}
	return inst, nil
}

// Close releases the compiled module.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
