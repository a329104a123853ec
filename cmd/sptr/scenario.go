package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"

	openpose "github.com/wippyai/openpose-go"
	"github.com/wippyai/openpose-go/native"
	"github.com/wippyai/openpose-go/native/simlib"
	"github.com/wippyai/openpose-go/native/wasmlib"
	"github.com/wippyai/openpose-go/sharedptr"
)

// holder is a shared pointer with its type parameter erased.
type holder interface {
	Handle() (native.Ptr, error)
	IsOwning() bool
	Close() error
	view() (native.Ptr, error)
}

type typedHolder[T openpose.Object] struct {
	*sharedptr.SharedPtr[T]
}

func (h typedHolder[T]) view() (native.Ptr, error) {
	v, err := h.Get()
	if err != nil {
		return 0, err
	}
	return v.NativePtr(), nil
}

type binder struct {
	wrap   func(*sharedptr.Registry, native.Library) (holder, native.Ptr, error)
	attach func(*sharedptr.Registry, native.Ptr) (holder, error)
}

func binderFor[T openpose.Object](alloc func(native.Library) (T, error)) binder {
	return binder{
		wrap: func(r *sharedptr.Registry, lib native.Library) (holder, native.Ptr, error) {
			obj, err := alloc(lib)
			if err != nil {
				return nil, 0, err
			}
			sp, err := sharedptr.Wrap(r, obj)
			if err != nil {
				obj.Close()
				return nil, 0, err
			}
			raw := obj.NativePtr()
			// Ownership moved; this only disposes the Go value.
			obj.Close()
			return typedHolder[T]{sp}, raw, nil
		},
		attach: func(r *sharedptr.Registry, p native.Ptr) (holder, error) {
			sp, err := sharedptr.Attach[T](r, p)
			if err != nil {
				return nil, err
			}
			return typedHolder[T]{sp}, nil
		},
	}
}

var binders = [...]binder{
	sharedptr.KindPoseExtractorCaffe:  binderFor(openpose.NewPoseExtractorCaffe),
	sharedptr.KindProducer:            binderFor(openpose.NewProducer),
	sharedptr.KindDatumProducer:       binderFor(openpose.NewDatumProducer),
	sharedptr.KindWDatumProducer:      binderFor(openpose.NewWDatumProducer),
	sharedptr.KindGui:                 binderFor(openpose.NewGui),
	sharedptr.KindWGui:                binderFor(openpose.NewWGui),
	sharedptr.KindUserWorkerOfDefault: binderFor(openpose.NewUserWorker[*openpose.Datum]),
	sharedptr.KindUserWorkerOfCustom:  binderFor(openpose.NewUserWorker[*openpose.CustomDatum]),
}

func parseKind(name string) (sharedptr.Kind, error) {
	for _, k := range sharedptr.Kinds() {
		if strings.EqualFold(name, k.String()) || strings.EqualFold(name, k.Stem()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q", name)
}

// session drives one kind's shared pointers over an emulated heap.
type session struct {
	heap     *simlib.Library
	lib      native.Library
	reg      *sharedptr.Registry
	rt       wazero.Runtime
	owner    holder
	attached []holder
	events   []string
	raw      native.Ptr
	bind     binder
	kind     sharedptr.Kind
}

func newSession(ctx context.Context, kind sharedptr.Kind, useWasm bool) (*session, error) {
	s := &session{
		heap: simlib.New(),
		kind: kind,
		bind: binders[kind],
	}
	s.heap.Subscribe(s)
	s.lib = s.heap

	if useWasm {
		s.rt = wazero.NewRuntime(ctx)
		stems := make([]string, 0, len(sharedptr.Kinds()))
		for _, k := range sharedptr.Kinds() {
			stems = append(stems, k.Stem())
		}
		mod, err := wasmlib.Export(ctx, s.rt, "openpose", s.heap, stems...)
		if err != nil {
			s.rt.Close(ctx)
			return nil, err
		}
		s.lib = wasmlib.Open(ctx, mod)
	}

	s.reg = sharedptr.NewRegistry(s.lib)
	if err := s.reg.Preload(); err != nil {
		s.close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *session) OnNativeEvent(e simlib.Event) {
	line := fmt.Sprintf("%-9s %-22s %s", e.Type, e.Stem, e.Ptr)
	if !e.Target.IsNull() {
		line += fmt.Sprintf(" -> %s use=%d", e.Target, e.UseCount)
	}
	s.events = append(s.events, line)
}

func (s *session) wrap() error {
	if s.owner != nil {
		return fmt.Errorf("already wrapped")
	}
	h, raw, err := s.bind.wrap(s.reg, s.lib)
	if err != nil {
		return err
	}
	s.owner, s.raw = h, raw
	return nil
}

// attach emulates native code copying the owner's shared pointer and
// handing the copy back.
func (s *session) attach() error {
	if s.owner == nil {
		return fmt.Errorf("nothing wrapped")
	}
	src, err := s.owner.Handle()
	if err != nil {
		return err
	}
	cp, err := s.heap.Copy(src)
	if err != nil {
		return err
	}
	h, err := s.bind.attach(s.reg, cp)
	if err != nil {
		return err
	}
	s.attached = append(s.attached, h)
	return nil
}

// get reads through the most recent live holder.
func (s *session) get() (native.Ptr, error) {
	if n := len(s.attached); n > 0 {
		return s.attached[n-1].view()
	}
	if s.owner == nil {
		return 0, fmt.Errorf("nothing wrapped")
	}
	return s.owner.view()
}

func (s *session) releaseAttached() error {
	n := len(s.attached)
	if n == 0 {
		return fmt.Errorf("no attached holders")
	}
	h := s.attached[n-1]
	s.attached = s.attached[:n-1]
	return h.Close()
}

func (s *session) releaseOwner() error {
	if s.owner == nil {
		return fmt.Errorf("nothing wrapped")
	}
	return s.owner.Close()
}

func (s *session) close(ctx context.Context) {
	for _, h := range s.attached {
		h.Close()
	}
	if s.owner != nil {
		s.owner.Close()
	}
	if s.rt != nil {
		s.rt.Close(ctx)
	}
}
