package sharedptr

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	openpose "github.com/wippyai/openpose-go"
	operrors "github.com/wippyai/openpose-go/errors"
	"github.com/wippyai/openpose-go/native"
	"github.com/wippyai/openpose-go/native/simlib"
)

// tracker extends the default worker from outside the closed set.
type tracker struct {
	*openpose.UserWorker[*openpose.Datum]
	frames int
}

// renderer extends the custom worker.
type renderer struct {
	*openpose.UserWorker[*openpose.CustomDatum]
}

// hiddenWorker holds a worker in a named field, which is not an extension.
type hiddenWorker struct {
	worker *openpose.UserWorker[*openpose.Datum]
}

func TestKinds(t *testing.T) {
	ks := Kinds()
	if len(ks) != 8 {
		t.Fatalf("Kinds() returned %d kinds, want 8", len(ks))
	}

	seen := make(map[string]bool)
	for i, k := range ks {
		if k != Kind(i) {
			t.Errorf("Kinds()[%d] = %v", i, k)
		}
		if !k.Valid() {
			t.Errorf("%v should be valid", k)
		}
		if seen[k.Stem()] {
			t.Errorf("duplicate stem %q", k.Stem())
		}
		seen[k.Stem()] = true
		if len(k.Symbols()) != 3 {
			t.Errorf("%v has %d symbols, want 3", k, len(k.Symbols()))
		}
	}

	if kindCount.Valid() {
		t.Fatal("kindCount must not be valid")
	}
	if kindCount.Stem() != "" || kindCount.Type() != nil || kindCount.Symbols() != nil {
		t.Fatal("invalid kind should have no stem, type or symbols")
	}
}

func TestKindFor_Exact(t *testing.T) {
	tests := []struct {
		name string
		got  func() (Kind, error)
		want Kind
	}{
		{"PoseExtractorCaffe", KindFor[*openpose.PoseExtractorCaffe], KindPoseExtractorCaffe},
		{"Producer", KindFor[*openpose.Producer], KindProducer},
		{"DatumProducer", KindFor[*openpose.DatumProducer], KindDatumProducer},
		{"WDatumProducer", KindFor[*openpose.WDatumProducer], KindWDatumProducer},
		{"Gui", KindFor[*openpose.Gui], KindGui},
		{"WGui", KindFor[*openpose.WGui], KindWGui},
		{"UserWorkerOfDefault", KindFor[*openpose.UserWorker[*openpose.Datum]], KindUserWorkerOfDefault},
		{"UserWorkerOfCustom", KindFor[*openpose.UserWorker[*openpose.CustomDatum]], KindUserWorkerOfCustom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := tt.got()
			if err != nil {
				t.Fatalf("KindFor failed: %v", err)
			}
			if k != tt.want {
				t.Fatalf("KindFor = %v, want %v", k, tt.want)
			}
			if k.Type() == nil || k.Type().String() == "" {
				t.Fatal("kind should carry its Go type")
			}
		})
	}
}

func TestKindFor_Subtype(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want Kind
	}{
		{"default worker interface", reflect.TypeFor[openpose.Worker[*openpose.Datum]](), KindUserWorkerOfDefault},
		{"custom worker interface", reflect.TypeFor[openpose.Worker[*openpose.CustomDatum]](), KindUserWorkerOfCustom},
		{"embedding default worker", reflect.TypeFor[*tracker](), KindUserWorkerOfDefault},
		{"embedding custom worker", reflect.TypeFor[*renderer](), KindUserWorkerOfCustom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := KindOf(tt.typ)
			if err != nil {
				t.Fatalf("KindOf(%s) failed: %v", tt.typ, err)
			}
			if k != tt.want {
				t.Fatalf("KindOf(%s) = %v, want %v", tt.typ, k, tt.want)
			}
		})
	}
}

func TestKindFor_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{"nil", nil},
		{"datum", reflect.TypeFor[*openpose.Datum]()},
		{"custom datum", reflect.TypeFor[*openpose.CustomDatum]()},
		{"non-pointer gui", reflect.TypeFor[openpose.Gui]()},
		{"unexported embedding", reflect.TypeFor[*hiddenWorker]()},
		{"string", reflect.TypeFor[string]()},
		{"object interface", reflect.TypeFor[openpose.Object]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := KindOf(tt.typ)
			if !errors.Is(err, operrors.ErrUnsupportedType) {
				t.Fatalf("expected unsupported type, got %v", err)
			}
		})
	}
}

func TestKindFor_UnsupportedNamesType(t *testing.T) {
	_, err := KindFor[*openpose.Datum]()
	var e *operrors.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if e.Type != "*openpose.Datum" {
		t.Fatalf("error names %q, want *openpose.Datum", e.Type)
	}
	if e.Phase != operrors.PhaseResolve {
		t.Fatalf("phase = %s, want resolve", e.Phase)
	}
}

func TestKindFor_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := KindOf(kinds[i%int(kindCount)].typ)
			if err != nil {
				errs <- err
				return
			}
			if k != Kind(i%int(kindCount)) {
				errs <- operrors.InvalidInput(operrors.PhaseResolve, k.String())
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRegistry_Ops(t *testing.T) {
	lib := simlib.New()
	r := NewRegistry(lib)

	if r.Library() != lib {
		t.Fatal("Library() should return the bound library")
	}

	ops, err := r.Ops(KindGui)
	if err != nil {
		t.Fatalf("Ops failed: %v", err)
	}
	if ops.Kind != KindGui || ops.New == nil || ops.Delete == nil || ops.Get == nil {
		t.Fatalf("incomplete ops: %+v", ops)
	}

	if _, err := r.Ops(kindCount); !errors.Is(err, &operrors.Error{Kind: operrors.KindInvalidInput}) {
		t.Fatalf("expected invalid input for out of range kind, got %v", err)
	}
}

func TestRegistry_OpsRoundTrip(t *testing.T) {
	lib := simlib.New()
	r := NewRegistry(lib)

	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			ops, err := r.Ops(k)
			if err != nil {
				t.Fatalf("Ops failed: %v", err)
			}

			alloc, err := lib.Lookup(native.ObjectNew(k.Stem()))
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			raw, _ := alloc()

			shared, err := ops.New(native.Ptr(raw))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			got, err := ops.Get(shared)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got != native.Ptr(raw) {
				t.Fatalf("Get = %s, want %#x", got, raw)
			}
			if err := ops.Delete(shared); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if lib.IsLive(got) {
				t.Fatal("object should be destroyed with its shared pointer")
			}
		})
	}
}

func TestRegistry_OpsWrapNativeErrors(t *testing.T) {
	lib := simlib.New()
	r := NewRegistry(lib)

	ops, err := r.Ops(KindProducer)
	if err != nil {
		t.Fatalf("Ops failed: %v", err)
	}

	err = ops.Delete(0x1234)
	if !errors.Is(err, operrors.ErrNativeCall) {
		t.Fatalf("expected native call error, got %v", err)
	}
	if !errors.Is(err, &operrors.Error{Phase: operrors.PhaseDispose, Kind: operrors.KindNativeCall}) {
		t.Fatalf("expected dispose phase, got %v", err)
	}
	if !errors.Is(err, simlib.ErrDoubleFree) {
		t.Fatalf("expected the native cause to be preserved, got %v", err)
	}
}

func TestRegistry_MissingSymbols(t *testing.T) {
	r := NewRegistry(simlib.New(openpose.StemGui))

	if _, err := r.Ops(KindGui); err != nil {
		t.Fatalf("Ops(Gui) failed: %v", err)
	}

	_, err := r.Ops(KindProducer)
	if !errors.Is(err, operrors.ErrMissingSymbol) {
		t.Fatalf("expected missing symbol, got %v", err)
	}
	var mse *operrors.MissingSymbolsError
	if !errors.As(err, &mse) {
		t.Fatalf("expected *MissingSymbolsError, got %T", err)
	}
	if len(mse.Symbols) != 3 {
		t.Fatalf("expected 3 missing symbols, got %d", len(mse.Symbols))
	}

	// Cached
	_, again := r.Ops(KindProducer)
	if again != err {
		t.Fatal("resolution failure should be cached per registry")
	}
}

func TestRegistry_Preload(t *testing.T) {
	if err := NewRegistry(simlib.New()).Preload(); err != nil {
		t.Fatalf("Preload failed: %v", err)
	}

	err := NewRegistry(simlib.New(openpose.StemGui, openpose.StemWGui)).Preload()
	var mse *operrors.MissingSymbolsError
	if !errors.As(err, &mse) {
		t.Fatalf("expected *MissingSymbolsError, got %v", err)
	}
	if len(mse.Symbols) != 6*3 {
		t.Fatalf("expected %d missing symbols, got %d", 6*3, len(mse.Symbols))
	}
	for _, s := range mse.Symbols {
		if s.Library != "simlib" {
			t.Errorf("symbol %s attributed to %q", s.Symbol, s.Library)
		}
	}
}

func TestRegistry_NilLibrary(t *testing.T) {
	_, err := NewRegistry(nil).Ops(KindGui)
	if !errors.Is(err, &operrors.Error{Kind: operrors.KindNotInitialized}) {
		t.Fatalf("expected not initialized, got %v", err)
	}
}

func TestRegistry_ConcurrentFirstUse(t *testing.T) {
	lib := simlib.New()
	r := NewRegistry(lib)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, k := range Kinds() {
				if _, err := r.Ops(k); err != nil {
					t.Errorf("Ops(%v) failed: %v", k, err)
				}
			}
		}()
	}
	wg.Wait()
}

func TestDefault(t *testing.T) {
	native.SetDefault(nil)
	defaultMu.Lock()
	defaultReg = nil
	defaultMu.Unlock()

	if _, err := Default(); !errors.Is(err, &operrors.Error{Kind: operrors.KindNotInitialized}) {
		t.Fatalf("expected not initialized without a default library, got %v", err)
	}

	lib := simlib.New()
	native.SetDefault(lib)
	t.Cleanup(func() {
		native.SetDefault(nil)
		defaultMu.Lock()
		defaultReg = nil
		defaultMu.Unlock()
	})

	r1, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	r2, _ := Default()
	if r1 != r2 {
		t.Fatal("Default should return the same registry")
	}
	if r1.Library() != lib {
		t.Fatal("default registry should use the default library")
	}
}
