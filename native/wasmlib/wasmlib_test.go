package wasmlib

import (
	"context"
	"errors"
	"testing"

	"github.com/tetratelabs/wazero"

	openpose "github.com/wippyai/openpose-go"
	operrors "github.com/wippyai/openpose-go/errors"
	"github.com/wippyai/openpose-go/native"
	"github.com/wippyai/openpose-go/native/simlib"
	"github.com/wippyai/openpose-go/sharedptr"
)

var allStems = []string{
	openpose.StemPoseExtractorCaffe,
	openpose.StemProducer,
	openpose.StemDatumProducer,
	openpose.StemWDatumProducer,
	openpose.StemGui,
	openpose.StemWGui,
	openpose.StemUserWorkerOfDefault,
	openpose.StemUserWorkerOfCustom,
}

func exportSim(t *testing.T, sim *simlib.Library, stems ...string) *Library {
	t.Helper()
	ctx := context.Background()

	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	mod, err := Export(ctx, rt, "openpose", sim, stems...)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	return Open(ctx, mod)
}

func TestSignatureOf(t *testing.T) {
	tests := []struct {
		symbol  string
		params  int
		results int
	}{
		{native.ObjectNew("Gui"), 0, 1},
		{native.ObjectDelete("Gui"), 1, 0},
		{native.SharedNew("Gui"), 1, 1},
		{native.SharedDelete("Gui"), 1, 0},
		{native.SharedGet("Gui"), 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			sig := signatureOf(tt.symbol)
			if len(sig.params) != tt.params || len(sig.results) != tt.results {
				t.Fatalf("signature = (%d) -> (%d), want (%d) -> (%d)",
					len(sig.params), len(sig.results), tt.params, tt.results)
			}
		})
	}
}

func TestLibrary_Lookup(t *testing.T) {
	lib := exportSim(t, simlib.New(), openpose.StemGui)

	if lib.Name() != "openpose" {
		t.Fatalf("Name = %q, want openpose", lib.Name())
	}
	if lib.Module() == nil {
		t.Fatal("Module should not be nil")
	}
	for _, sym := range native.Symbols(openpose.StemGui) {
		if _, err := lib.Lookup(sym); err != nil {
			t.Errorf("Lookup(%q) failed: %v", sym, err)
		}
	}

	_, err := lib.Lookup(native.SharedGet(openpose.StemProducer))
	if !errors.Is(err, operrors.ErrMissingSymbol) {
		t.Fatalf("expected missing symbol, got %v", err)
	}
}

func TestExport_ModuleNames(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := Export(ctx, rt, "openpose", simlib.New(), openpose.StemGui)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if mod.Name() != "openpose" {
		t.Fatalf("module name = %q, want openpose", mod.Name())
	}
	if rt.Module("openpose"+HostSuffix) == nil {
		t.Fatal("host module should be registered under the host suffix")
	}
}

func TestOpen_HostModule(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := Export(ctx, rt, "openpose", simlib.New(), openpose.StemGui); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// Host modules do not support export lookup; this must not panic.
	lib := Open(ctx, rt.Module("openpose"+HostSuffix))
	_, err := lib.Lookup(native.SharedNew(openpose.StemGui))
	if !errors.Is(err, operrors.ErrMissingSymbol) {
		t.Fatalf("expected missing symbol, got %v", err)
	}
}

func TestBridgeBuilder_Compiles(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	empty := newBridgeBuilder("none").build()
	if _, err := rt.CompileModule(ctx, empty); err != nil {
		t.Fatalf("empty bridge does not compile: %v", err)
	}

	b := newBridgeBuilder("host")
	for _, sym := range native.Symbols(openpose.StemProducer) {
		sig := signatureOf(sym)
		b.addFunc(sym, sig.params, sig.results)
	}
	compiled, err := rt.CompileModule(ctx, b.build())
	if err != nil {
		t.Fatalf("bridge does not compile: %v", err)
	}
	defer compiled.Close(ctx)

	exports := compiled.ExportedFunctions()
	if len(exports) != 5 {
		t.Fatalf("bridge exports %d functions, want 5", len(exports))
	}
	for _, sym := range native.Symbols(openpose.StemProducer) {
		def, ok := exports[sym]
		if !ok {
			t.Errorf("missing export %s", sym)
			continue
		}
		sig := signatureOf(sym)
		if len(def.ParamTypes()) != len(sig.params) || len(def.ResultTypes()) != len(sig.results) {
			t.Errorf("%s has signature (%d) -> (%d)", sym, len(def.ParamTypes()), len(def.ResultTypes()))
		}
	}
}

func TestExport_SkipsUnresolved(t *testing.T) {
	lib := exportSim(t, simlib.New(openpose.StemGui), openpose.StemGui, openpose.StemProducer)

	if _, err := lib.Lookup(native.ObjectNew(openpose.StemGui)); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if _, err := lib.Lookup(native.ObjectNew(openpose.StemProducer)); !errors.Is(err, operrors.ErrMissingSymbol) {
		t.Fatalf("expected missing symbol, got %v", err)
	}
}

func TestExport_Errors(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := Export(ctx, rt, "a", nil, openpose.StemGui); !errors.Is(err, &operrors.Error{Kind: operrors.KindNotInitialized}) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if _, err := Export(ctx, rt, "b", simlib.New()); !errors.Is(err, &operrors.Error{Kind: operrors.KindInvalidInput}) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLibrary_CallForwarding(t *testing.T) {
	sim := simlib.New()
	lib := exportSim(t, sim, openpose.StemWGui)

	newObj, _ := lib.Lookup(native.ObjectNew(openpose.StemWGui))
	raw, err := newObj()
	if err != nil {
		t.Fatalf("object new failed: %v", err)
	}
	if !sim.IsLive(native.Ptr(raw)) {
		t.Fatal("object should be allocated in the backing library")
	}

	delObj, _ := lib.Lookup(native.ObjectDelete(openpose.StemWGui))
	if res, err := delObj(raw); err != nil || res != 0 {
		t.Fatalf("object delete = %d, %v", res, err)
	}

	// Double free traps and comes back as an error.
	_, err = delObj(raw)
	if !errors.Is(err, operrors.ErrNativeCall) {
		t.Fatalf("expected native call error, got %v", err)
	}
	if len(sim.Violations()) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(sim.Violations()))
	}

	if _, err := delObj(); !errors.Is(err, &operrors.Error{Kind: operrors.KindInvalidInput}) {
		t.Fatalf("expected invalid input on arity mismatch, got %v", err)
	}
}

func TestLibrary_SharedPtrThroughWazero(t *testing.T) {
	sim := simlib.New()
	lib := exportSim(t, sim, allStems...)
	r := sharedptr.NewRegistry(lib)

	if err := r.Preload(); err != nil {
		t.Fatalf("Preload failed: %v", err)
	}

	prod, err := openpose.NewProducer(lib)
	if err != nil {
		t.Fatalf("NewProducer failed: %v", err)
	}
	raw := prod.NativePtr()

	sp, err := sharedptr.Wrap(r, prod)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		v, err := sp.Get()
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if v.NativePtr() != raw {
			t.Fatalf("view points at %s, want %s", v.NativePtr(), raw)
		}
	}
	sp.Close()
	sp.Close()

	if sim.IsLive(raw) {
		t.Fatal("object should be released")
	}
	if n := sim.Calls(native.SharedDelete(openpose.StemProducer)); n != 1 {
		t.Fatalf("shared delete called %d times, want 1", n)
	}
	if v := sim.Violations(); len(v) != 0 {
		t.Fatalf("unexpected violations: %v", v)
	}
}

func TestLibrary_RegistryRoundTripAllKinds(t *testing.T) {
	sim := simlib.New()
	lib := exportSim(t, sim, allStems...)
	r := sharedptr.NewRegistry(lib)

	roundTrip := func(t *testing.T, wrap func() (native.Ptr, native.Ptr, func() error, error)) {
		raw, viewed, closeFn, err := wrap()
		if err != nil {
			t.Fatalf("Wrap failed: %v", err)
		}
		if viewed != raw {
			t.Fatalf("Get = %s, want %s", viewed, raw)
		}
		if err := closeFn(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := closeFn(); err != nil {
			t.Fatalf("second Close failed: %v", err)
		}
		if sim.IsLive(raw) {
			t.Fatal("object should be released")
		}
	}

	tests := []struct {
		kind sharedptr.Kind
		wrap func() (native.Ptr, native.Ptr, func() error, error)
	}{
		{sharedptr.KindPoseExtractorCaffe, func() (native.Ptr, native.Ptr, func() error, error) {
			return wrapThrough(r, lib, openpose.NewPoseExtractorCaffe)
		}},
		{sharedptr.KindProducer, func() (native.Ptr, native.Ptr, func() error, error) {
			return wrapThrough(r, lib, openpose.NewProducer)
		}},
		{sharedptr.KindDatumProducer, func() (native.Ptr, native.Ptr, func() error, error) {
			return wrapThrough(r, lib, openpose.NewDatumProducer)
		}},
		{sharedptr.KindWDatumProducer, func() (native.Ptr, native.Ptr, func() error, error) {
			return wrapThrough(r, lib, openpose.NewWDatumProducer)
		}},
		{sharedptr.KindGui, func() (native.Ptr, native.Ptr, func() error, error) {
			return wrapThrough(r, lib, openpose.NewGui)
		}},
		{sharedptr.KindWGui, func() (native.Ptr, native.Ptr, func() error, error) {
			return wrapThrough(r, lib, openpose.NewWGui)
		}},
		{sharedptr.KindUserWorkerOfDefault, func() (native.Ptr, native.Ptr, func() error, error) {
			return wrapThrough(r, lib, openpose.NewUserWorker[*openpose.Datum])
		}},
		{sharedptr.KindUserWorkerOfCustom, func() (native.Ptr, native.Ptr, func() error, error) {
			return wrapThrough(r, lib, openpose.NewUserWorker[*openpose.CustomDatum])
		}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			roundTrip(t, tt.wrap)
			if n := sim.Calls(native.SharedDelete(tt.kind.Stem())); n != 1 {
				t.Fatalf("shared delete called %d times, want 1", n)
			}
		})
	}

	if v := sim.Violations(); len(v) != 0 {
		t.Fatalf("unexpected violations: %v", v)
	}
	if sim.Live() != 0 {
		t.Fatalf("Live() = %d, want 0", sim.Live())
	}
}

// wrapThrough allocates with alloc through lib, wraps the object, reads one
// view and returns the raw pointer, the viewed pointer and the wrapper's Close.
func wrapThrough[T openpose.Object](r *sharedptr.Registry, lib native.Library, alloc func(native.Library) (T, error)) (native.Ptr, native.Ptr, func() error, error) {
	obj, err := alloc(lib)
	if err != nil {
		return 0, 0, nil, err
	}
	sp, err := sharedptr.Wrap(r, obj)
	if err != nil {
		return 0, 0, nil, err
	}
	v, err := sp.Get()
	if err != nil {
		sp.Close()
		return 0, 0, nil, err
	}
	return obj.NativePtr(), v.NativePtr(), sp.Close, nil
}
