package simlib

import (
	"errors"

	"github.com/wippyai/openpose-go/native"
)

var (
	ErrClosed         = errors.New("native heap closed")
	ErrDoubleFree     = errors.New("pointer already freed")
	ErrWrongKind      = errors.New("pointer refers to a different allocation kind")
	ErrStemMismatch   = errors.New("pointer refers to a different type")
	ErrHeldByShared   = errors.New("object still owned by a shared pointer")
	ErrAlreadyShared  = errors.New("object already owned by another shared pointer")
	ErrUnknownSymbol  = errors.New("unknown symbol")
	ErrMissingPointer = errors.New("missing pointer argument")
)

// EventType identifies a heap lifecycle event.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventFreed
	EventShared
	EventReleased
)

func (t EventType) String() string {
	switch t {
	case EventAllocated:
		return "allocated"
	case EventFreed:
		return "freed"
	case EventShared:
		return "shared"
	case EventReleased:
		return "released"
	}
	return "unknown"
}

// Event describes one change to the emulated heap.
// For shared pointer events Target is the owned object and UseCount its
// use count after the change.
type Event struct {
	Stem     string
	Ptr      native.Ptr
	Target   native.Ptr
	UseCount uint32
	Type     EventType
}

// Observer receives heap lifecycle events.
type Observer interface {
	OnNativeEvent(Event)
}

// Entry is a snapshot of one live allocation.
type Entry struct {
	Stem     string
	Ptr      native.Ptr
	Target   native.Ptr // zero for objects
	UseCount uint32     // shared holders, objects only
	Shared   bool
}
