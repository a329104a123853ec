package sharedptr

import (
	stderrors "errors"
	"reflect"
	"sync"

	"github.com/wippyai/openpose-go/errors"
	"github.com/wippyai/openpose-go/native"
)

// Ops is the native operation set of one kind's shared pointer.
type Ops struct {
	// New constructs a shared pointer taking ownership of raw.
	New func(raw native.Ptr) (native.Ptr, error)

	// Delete releases a shared pointer. Callers guarantee a non-null handle.
	Delete func(shared native.Ptr) error

	// Get returns the raw object held by a shared pointer.
	Get func(shared native.Ptr) (native.Ptr, error)

	Kind Kind
}

// Registry binds the registered kinds to one native library. Operation
// sets are resolved once per kind on first use and cached.
type Registry struct {
	lib  native.Library
	ops  [kindCount]Ops
	errs [kindCount]error
	once [kindCount]sync.Once
}

// NewRegistry creates a registry resolving entry points from lib.
func NewRegistry(lib native.Library) *Registry {
	return &Registry{lib: lib}
}

var (
	defaultMu  sync.Mutex
	defaultReg *Registry
)

// Default returns the process-wide registry bound to native.Default().
// It fails until a default library has been installed.
func Default() (*Registry, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultReg != nil {
		return defaultReg, nil
	}
	lib, ok := native.Default()
	if !ok {
		return nil, errors.NotInitialized(errors.PhaseLoad, "default native library")
	}
	defaultReg = NewRegistry(lib)
	return defaultReg, nil
}

// Library returns the library the registry resolves from.
func (r *Registry) Library() native.Library {
	return r.lib
}

// Ops returns the operation set for k, resolving it on first use.
func (r *Registry) Ops(k Kind) (Ops, error) {
	if !k.Valid() {
		return Ops{}, errors.New(errors.PhaseResolve, errors.KindInvalidInput).
			Value(k).
			Detail("kind %d out of range", k).
			Build()
	}
	r.once[k].Do(func() {
		r.ops[k], r.errs[k] = resolveOps(r.lib, k)
	})
	return r.ops[k], r.errs[k]
}

// Preload resolves every kind up front. Missing entry points across all
// kinds are reported together.
func (r *Registry) Preload() error {
	var missing []string
	for _, k := range Kinds() {
		_, err := r.Ops(k)
		if err == nil {
			continue
		}
		var mse *errors.MissingSymbolsError
		if !stderrors.As(err, &mse) {
			return err
		}
		for _, s := range mse.Symbols {
			missing = append(missing, s.Library+"#"+s.Symbol)
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingSymbolsError(missing)
	}
	return nil
}

func resolveOps(lib native.Library, k Kind) (Ops, error) {
	if lib == nil {
		return Ops{}, errors.NotInitialized(errors.PhaseLoad, "native library")
	}

	stem := k.Stem()
	syms := [3]string{native.SharedNew(stem), native.SharedDelete(stem), native.SharedGet(stem)}
	var fns [3]native.Func
	var missing []string

	for i, sym := range syms {
		fn, err := lib.Lookup(sym)
		if err != nil {
			if !stderrors.Is(err, errors.ErrMissingSymbol) {
				return Ops{}, err
			}
			missing = append(missing, lib.Name()+"#"+sym)
			continue
		}
		fns[i] = fn
	}
	if len(missing) > 0 {
		return Ops{}, errors.NewMissingSymbolsError(missing)
	}

	newFn, deleteFn, getFn := fns[0], fns[1], fns[2]
	return Ops{
		Kind: k,
		New: func(raw native.Ptr) (native.Ptr, error) {
			res, err := newFn(uint64(raw))
			if err != nil {
				return 0, errors.NativeCall(errors.PhaseWrap, syms[0], err)
			}
			if res == 0 {
				return 0, errors.InvalidHandle(errors.PhaseWrap, syms[0], 0)
			}
			return native.Ptr(res), nil
		},
		Delete: func(shared native.Ptr) error {
			if _, err := deleteFn(uint64(shared)); err != nil {
				return errors.NativeCall(errors.PhaseDispose, syms[1], err)
			}
			return nil
		},
		Get: func(shared native.Ptr) (native.Ptr, error) {
			res, err := getFn(uint64(shared))
			if err != nil {
				return 0, errors.NativeCall(errors.PhaseGet, syms[2], err)
			}
			return native.Ptr(res), nil
		},
	}, nil
}

// binding is the outcome of resolving a Go type against the kinds.
type binding struct {
	// view builds a value of the requested type over a raw pointer.
	view func(native.Ptr) any

	kind Kind
}

var (
	exactOnce  sync.Once
	exactTypes map[reflect.Type]Kind
)

// KindOf returns the kind registered for t.
func KindOf(t reflect.Type) (Kind, error) {
	b, err := bind(t)
	if err != nil {
		return 0, err
	}
	return b.kind, nil
}

// KindFor returns the kind registered for T.
func KindFor[T any]() (Kind, error) {
	return KindOf(reflect.TypeFor[T]())
}

func bind(t reflect.Type) (binding, error) {
	if t == nil {
		return binding{}, errors.UnsupportedType("<nil>")
	}

	exactOnce.Do(func() {
		exactTypes = make(map[reflect.Type]Kind, kindCount)
		for k, info := range kinds {
			exactTypes[info.typ] = Kind(k)
		}
	})

	if k, ok := exactTypes[t]; ok {
		view := kinds[k].view
		return binding{
			kind: k,
			view: func(p native.Ptr) any { return view(p) },
		}, nil
	}

	if t.Kind() == reflect.Interface {
		return bindInterface(t)
	}

	for _, k := range subtypeKinds {
		if b, ok := bindEmbedding(t, k); ok {
			return b, nil
		}
	}

	return binding{}, errors.UnsupportedType(t.String())
}

// bindInterface matches an interface implemented by exactly one
// registered type, provided that type is a worker.
func bindInterface(t reflect.Type) (binding, error) {
	var impl []Kind
	for k, info := range kinds {
		if info.typ.Implements(t) {
			impl = append(impl, Kind(k))
		}
	}
	if len(impl) > 1 {
		return binding{}, errors.New(errors.PhaseResolve, errors.KindUnsupportedType).
			Type(t.String()).
			Detail("ambiguous: implemented by %d registered types", len(impl)).
			Build()
	}

	for _, k := range subtypeKinds {
		if len(impl) == 1 && impl[0] == k {
			view := kinds[k].view
			return binding{
				kind: k,
				view: func(p native.Ptr) any { return view(p) },
			}, nil
		}
	}
	return binding{}, errors.UnsupportedType(t.String())
}

// bindEmbedding matches a pointer to a struct directly embedding the
// registered type of k.
func bindEmbedding(t reflect.Type, k Kind) (binding, bool) {
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return binding{}, false
	}

	st := t.Elem()
	target := kinds[k].typ
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.Anonymous || !f.IsExported() || f.Type != target {
			continue
		}

		index := f.Index
		view := kinds[k].view
		return binding{
			kind: k,
			view: func(p native.Ptr) any {
				v := reflect.New(st)
				v.Elem().FieldByIndex(index).Set(reflect.ValueOf(view(p)))
				return v.Interface()
			},
		}, true
	}
	return binding{}, false
}
