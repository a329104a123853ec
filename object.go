package openpose

import (
	"github.com/wippyai/openpose-go/errors"
	"github.com/wippyai/openpose-go/native"
)

// Object is a Go value standing for a native object.
//
// The set of implementations is closed to this module; other packages
// participate only by embedding one of its types.
type Object interface {
	// NativePtr returns the raw native pointer.
	NativePtr() native.Ptr

	// IsDisposed reports whether Close has been called.
	IsDisposed() bool

	// IsOwned reports whether Close releases the native object.
	IsOwned() bool

	// CheckDisposed returns an error if the object was disposed.
	CheckDisposed() error

	// Transfer moves ownership of the native object to the caller.
	// Afterwards the object is a non-owning view of the same pointer.
	Transfer() (native.Ptr, error)

	// Close disposes the object, releasing the native object if owned.
	Close() error

	base() *Base
}

// Base implements the disposal primitives shared by every Object.
type Base struct {
	release  native.Func
	stem     string
	ptr      native.Ptr
	owned    bool
	disposed bool
}

// newOwned allocates a native object of stem and takes ownership of it.
func newOwned(lib native.Library, stem string) (Base, error) {
	if lib == nil {
		return Base{}, errors.NotInitialized(errors.PhaseLoad, "native library")
	}
	alloc, err := lib.Lookup(native.ObjectNew(stem))
	if err != nil {
		return Base{}, err
	}
	release, err := lib.Lookup(native.ObjectDelete(stem))
	if err != nil {
		return Base{}, err
	}
	raw, err := alloc()
	if err != nil {
		return Base{}, errors.NativeCall(errors.PhaseNative, native.ObjectNew(stem), err)
	}
	if raw == 0 {
		return Base{}, errors.New(errors.PhaseNative, errors.KindInvalidHandle).
			Symbol(native.ObjectNew(stem)).
			Detail("allocation returned null").
			Build()
	}
	return Base{
		release: release,
		stem:    stem,
		ptr:     native.Ptr(raw),
		owned:   true,
	}, nil
}

// newView builds a non-owning view of p.
func newView(stem string, p native.Ptr) Base {
	return Base{stem: stem, ptr: p}
}

// NativePtr returns the raw native pointer.
func (b *Base) NativePtr() native.Ptr {
	return b.ptr
}

// IsDisposed reports whether Close has been called.
func (b *Base) IsDisposed() bool {
	return b.disposed
}

// IsOwned reports whether Close releases the native object.
func (b *Base) IsOwned() bool {
	return b.owned
}

// CheckDisposed returns an error if the object was disposed.
// Call it before any native call made on behalf of the object.
func (b *Base) CheckDisposed() error {
	if b.disposed {
		return errors.Disposed(errors.PhaseNative, b.stem)
	}
	return nil
}

// Transfer moves ownership of the native object to the caller.
// It fails for disposed objects and for views, which own nothing.
func (b *Base) Transfer() (native.Ptr, error) {
	if b.disposed {
		return 0, errors.Disposed(errors.PhaseWrap, b.stem)
	}
	if !b.owned {
		return 0, errors.New(errors.PhaseWrap, errors.KindInvalidInput).
			Type(b.stem).
			Detail("object does not own its native pointer").
			Build()
	}
	b.owned = false
	return b.ptr, nil
}

// Close disposes the object. Owned objects release their native object;
// views and transferred objects only change state. Close is idempotent.
func (b *Base) Close() error {
	if b.disposed {
		return nil
	}
	b.disposed = true
	if !b.owned || b.ptr.IsNull() || b.release == nil {
		return nil
	}
	b.owned = false
	if _, err := b.release(uint64(b.ptr)); err != nil {
		return errors.NativeCall(errors.PhaseDispose, native.ObjectDelete(b.stem), err)
	}
	return nil
}

func (b *Base) base() *Base {
	return b
}
