package wasmlib

import (
	"context"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/openpose-go/errors"
	"github.com/wippyai/openpose-go/native"
)

// HostSuffix is appended to the module name passed to Export to name the
// host module holding the forwarding functions.
const HostSuffix = ".host"

// Library resolves native entry points as exports of a wazero module.
type Library struct {
	ctx context.Context
	mod api.Module
}

// Open wraps mod. Calls made through the returned library use ctx.
func Open(ctx context.Context, mod api.Module) *Library {
	return &Library{ctx: ctx, mod: mod}
}

// Name implements native.Library.
func (l *Library) Name() string {
	return l.mod.Name()
}

// Module returns the underlying module.
func (l *Library) Module() api.Module {
	return l.mod
}

// Lookup implements native.Library.
func (l *Library) Lookup(symbol string) (native.Func, error) {
	fn := safeExportedFunction(l.mod, symbol)
	if fn == nil {
		return nil, errors.MissingSymbol(l.Name(), symbol)
	}

	params := len(fn.Definition().ParamTypes())
	// api.Function is not safe for concurrent calls.
	var mu sync.Mutex
	return func(args ...uint64) (uint64, error) {
		if len(args) != params {
			return 0, errors.New(errors.PhaseNative, errors.KindInvalidInput).
				Symbol(symbol).
				Detail("expected %d arguments, got %d", params, len(args)).
				Build()
		}
		mu.Lock()
		res, err := fn.Call(l.ctx, args...)
		mu.Unlock()
		if err != nil {
			return 0, errors.NativeCall(errors.PhaseNative, symbol, err)
		}
		if len(res) == 0 {
			return 0, nil
		}
		return res[0], nil
	}, nil
}

// safeExportedFunction looks up an export, reporting nil instead of
// panicking for modules wazero refuses to search, such as host modules.
func safeExportedFunction(mod api.Module, name string) (fn api.Function) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Debug("exported function lookup failed",
				zap.String("module", mod.Name()),
				zap.String("name", name),
				zap.Any("panic", r))
			fn = nil
		}
	}()
	return mod.ExportedFunction(name)
}

type signature struct {
	params  []api.ValueType
	results []api.ValueType
}

var (
	i64    = []api.ValueType{api.ValueTypeI64}
	noVals = []api.ValueType{}
)

// signatureOf returns the wasm signature of a native entry point.
func signatureOf(symbol string) signature {
	switch {
	case strings.HasSuffix(symbol, "_delete"):
		return signature{params: i64, results: noVals}
	case strings.HasPrefix(symbol, "op_") && strings.HasSuffix(symbol, "_new"):
		return signature{params: noVals, results: i64}
	default:
		return signature{params: i64, results: i64}
	}
}

// Export publishes every entry point of stems, each forwarding to lib, as a
// module named moduleName. The functions live in a host module named
// moduleName+HostSuffix; the returned module is a guest bridge re-exporting
// them, ready for Open. Symbols lib cannot resolve are skipped, so
// importers see them as missing.
func Export(ctx context.Context, rt wazero.Runtime, moduleName string, lib native.Library, stems ...string) (api.Module, error) {
	if lib == nil {
		return nil, errors.NotInitialized(errors.PhaseLoad, "native library")
	}
	if len(stems) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "no stems to export")
	}

	hostName := moduleName + HostSuffix
	host := rt.NewHostModuleBuilder(hostName)
	bridge := newBridgeBuilder(hostName)

	for _, stem := range stems {
		for _, sym := range native.Symbols(stem) {
			fn, err := lib.Lookup(sym)
			if err != nil {
				Logger().Debug("skipping unresolved symbol",
					zap.String("library", lib.Name()),
					zap.String("symbol", sym))
				continue
			}
			sig := signatureOf(sym)
			host.NewFunctionBuilder().
				WithGoModuleFunction(forward(fn, len(sig.params), len(sig.results)), sig.params, sig.results).
				Export(sym)
			bridge.addFunc(sym, sig.params, sig.results)
		}
	}

	if _, err := host.Instantiate(ctx); err != nil {
		return nil, errors.Instantiation(err)
	}

	compiled, err := rt.CompileModule(ctx, bridge.build())
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(moduleName))
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	Logger().Debug("native library exported",
		zap.String("module", moduleName),
		zap.String("library", lib.Name()),
		zap.Int("functions", len(bridge.funcs)))
	return mod, nil
}

// forward adapts fn to the host calling convention. Failures trap.
func forward(fn native.Func, params, results int) api.GoModuleFunc {
	return func(_ context.Context, _ api.Module, stack []uint64) {
		res, err := fn(stack[:params]...)
		if err != nil {
			panic(err)
		}
		if results > 0 {
			stack[0] = res
		}
	}
}
