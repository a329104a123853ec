package sharedptr

import (
	"reflect"
	"runtime"

	"go.uber.org/zap"

	openpose "github.com/wippyai/openpose-go"
	"github.com/wippyai/openpose-go/errors"
	"github.com/wippyai/openpose-go/native"
)

// SharedPtr holds one native shared pointer to an object of type T.
//
// The zero value is not usable; construct with Wrap, Attach or New.
type SharedPtr[T openpose.Object] struct {
	// obj is the object moved in by Wrap. It is only kept reachable,
	// never released from here.
	obj      T
	ops      Ops
	view     func(native.Ptr) any
	cleanup  runtime.Cleanup
	ptr      native.Ptr
	owning   bool
	tracked  bool
	disposed bool
}

// Wrap moves obj into a new native shared pointer. obj must be owned and
// not disposed; on success it no longer owns its native object and its
// own Close becomes harmless.
func Wrap[T openpose.Object](r *Registry, obj T) (*SharedPtr[T], error) {
	name := typeName[T]()
	if isNil(obj) || embedsNil(obj) {
		return nil, errors.NullArgument(errors.PhaseWrap, name)
	}
	if obj.IsDisposed() {
		return nil, errors.Disposed(errors.PhaseWrap, name)
	}
	if r == nil {
		return nil, errors.NotInitialized(errors.PhaseWrap, "registry")
	}

	b, err := bind(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	if !obj.IsOwned() {
		return nil, errors.New(errors.PhaseWrap, errors.KindInvalidInput).
			Type(name).
			Detail("object does not own its native pointer").
			Build()
	}

	ops, err := r.Ops(b.kind)
	if err != nil {
		return nil, err
	}

	raw := obj.NativePtr()
	shared, err := ops.New(raw)
	if err != nil {
		return nil, err
	}
	if _, err := obj.Transfer(); err != nil {
		// The shared pointer now owns raw; releasing it destroys raw once.
		if derr := ops.Delete(shared); derr != nil {
			Logger().Warn("release after failed transfer",
				zap.Stringer("kind", b.kind),
				zap.Error(derr))
		}
		return nil, err
	}

	s := &SharedPtr[T]{
		obj:    obj,
		ops:    ops,
		view:   b.view,
		ptr:    shared,
		owning: true,
	}
	s.track()

	sharedCreated.WithLabelValues(b.kind.String(), modeOwning).Inc()
	sharedLive.WithLabelValues(b.kind.String()).Inc()
	Logger().Debug("shared pointer wrapped",
		zap.Stringer("kind", b.kind),
		zap.Stringer("raw", raw),
		zap.Stringer("shared", shared))

	return s, nil
}

// Attach represents a shared pointer produced by native code. Nothing is
// constructed and no object changes ownership. A null handle is accepted;
// closing such a wrapper does nothing.
func Attach[T openpose.Object](r *Registry, shared native.Ptr) (*SharedPtr[T], error) {
	if r == nil {
		return nil, errors.NotInitialized(errors.PhaseAttach, "registry")
	}

	b, err := bind(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	ops, err := r.Ops(b.kind)
	if err != nil {
		return nil, err
	}

	s := &SharedPtr[T]{
		ops:  ops,
		view: b.view,
		ptr:  shared,
	}
	if !shared.IsNull() {
		s.track()
		sharedCreated.WithLabelValues(b.kind.String(), modeAttached).Inc()
		sharedLive.WithLabelValues(b.kind.String()).Inc()
	}
	Logger().Debug("shared pointer attached",
		zap.Stringer("kind", b.kind),
		zap.Stringer("shared", shared))

	return s, nil
}

// New wraps obj using the process-wide default registry.
func New[T openpose.Object](obj T) (*SharedPtr[T], error) {
	r, err := Default()
	if err != nil {
		return nil, err
	}
	return Wrap(r, obj)
}

// Scope wraps obj, runs fn and releases the shared pointer on every exit
// path, including panics.
func Scope[T openpose.Object](r *Registry, obj T, fn func(*SharedPtr[T]) error) error {
	s, err := Wrap(r, obj)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// Get returns a new non-owning view of the object held by the shared
// pointer. Views are never cached: each call yields a distinct value over
// the same native object.
func (s *SharedPtr[T]) Get() (T, error) {
	var zero T
	if s.disposed {
		return zero, errors.Disposed(errors.PhaseGet, typeName[T]())
	}
	if s.ptr.IsNull() {
		return zero, errors.InvalidHandle(errors.PhaseGet, native.SharedGet(s.ops.Kind.Stem()), 0)
	}

	raw, err := s.ops.Get(s.ptr)
	if err != nil {
		return zero, err
	}
	v, ok := s.view(raw).(T)
	if !ok {
		return zero, errors.New(errors.PhaseGet, errors.KindUnsupportedType).
			Type(typeName[T]()).
			Detail("view of kind %s does not implement the requested type", s.ops.Kind).
			Build()
	}

	viewsIssued.WithLabelValues(s.ops.Kind.String()).Inc()
	return v, nil
}

// Handle returns the native shared pointer.
func (s *SharedPtr[T]) Handle() (native.Ptr, error) {
	if s.disposed {
		return 0, errors.Disposed(errors.PhaseGet, typeName[T]())
	}
	return s.ptr, nil
}

// Kind returns the kind the shared pointer was resolved to.
func (s *SharedPtr[T]) Kind() Kind {
	return s.ops.Kind
}

// IsOwning reports whether the wrapper was created by Wrap.
func (s *SharedPtr[T]) IsOwning() bool {
	return s.owning
}

// IsDisposed reports whether Close has been called.
func (s *SharedPtr[T]) IsDisposed() bool {
	return s.disposed
}

// Close releases this wrapper's claim on the native object. It runs the
// native destroy operation at most once and never releases the wrapped
// object directly. Close is idempotent and always returns nil; native
// release failures are logged.
func (s *SharedPtr[T]) Close() error {
	if s.disposed {
		return nil
	}
	s.disposed = true
	if s.tracked {
		s.cleanup.Stop()
		s.tracked = false
	}

	var zero T
	s.obj = zero

	ptr := s.ptr
	s.ptr = 0
	if ptr.IsNull() {
		return nil
	}

	releaseShared(s.ops, ptr, viaClose)
	return nil
}

// track releases the shared pointer if the wrapper is collected without
// being closed.
func (s *SharedPtr[T]) track() {
	s.cleanup = runtime.AddCleanup(s, func(l leaked) {
		Logger().Warn("shared pointer collected without Close",
			zap.Stringer("kind", l.ops.Kind),
			zap.Stringer("shared", l.ptr))
		releaseShared(l.ops, l.ptr, viaCleanup)
	}, leaked{ops: s.ops, ptr: s.ptr})
	s.tracked = true
}

type leaked struct {
	ops Ops
	ptr native.Ptr
}

func releaseShared(ops Ops, ptr native.Ptr, via string) {
	kind := ops.Kind.String()
	sharedLive.WithLabelValues(kind).Dec()

	if err := ops.Delete(ptr); err != nil {
		sharedReleaseErrors.WithLabelValues(kind).Inc()
		Logger().Warn("shared pointer release failed",
			zap.String("kind", kind),
			zap.Stringer("shared", ptr),
			zap.Error(err))
		return
	}

	sharedReleased.WithLabelValues(kind, via).Inc()
	Logger().Debug("shared pointer released",
		zap.String("kind", kind),
		zap.Stringer("shared", ptr),
		zap.String("via", via))
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// embedsNil reports whether v points to a struct with a nil embedded
// pointer, such as an extension whose worker was never set.
func embedsNil(v any) bool {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return false
	}
	st := rv.Elem()
	for i := 0; i < st.NumField(); i++ {
		f := st.Type().Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Pointer && st.Field(i).IsNil() {
			return true
		}
	}
	return false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
