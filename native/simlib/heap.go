package simlib

import (
	"fmt"
	"strings"
	"sync"

	"github.com/wippyai/openpose-go/errors"
	"github.com/wippyai/openpose-go/native"
)

const (
	ptrBase   = 0x0010_0000
	ptrStride = 0x40
)

type allocKind uint8

const (
	allocObject allocKind = iota
	allocShared
)

type entry struct {
	stem     string
	target   native.Ptr
	useCount uint32
	kind     allocKind
	valid    bool
}

// Library is an emulated native heap implementing native.Library.
type Library struct {
	stems      map[string]bool
	calls      map[string]int
	entries    []entry
	freeList   []int
	violations []error
	observers  []Observer
	mu         sync.Mutex
	obsMu      sync.RWMutex
	closed     bool
}

// New creates an emulated library. With no stems every stem is exported;
// otherwise only the listed stems resolve.
func New(stems ...string) *Library {
	l := &Library{
		calls:    make(map[string]int),
		entries:  make([]entry, 0, 64),
		freeList: make([]int, 0, 16),
	}
	if len(stems) > 0 {
		l.stems = make(map[string]bool, len(stems))
		for _, s := range stems {
			l.stems[s] = true
		}
	}
	return l
}

// Name implements native.Library.
func (l *Library) Name() string {
	return "simlib"
}

// Lookup implements native.Library.
func (l *Library) Lookup(symbol string) (native.Func, error) {
	stem, op, ok := parseSymbol(symbol)
	if !ok || (l.stems != nil && !l.stems[stem]) {
		return nil, errors.MissingSymbol(l.Name(), symbol)
	}

	call := func(args []uint64) (uint64, error) {
		switch op {
		case "op_new":
			return uint64(l.allocObject(stem)), nil
		case "op_delete":
			return 0, l.deleteObject(stem, arg(args))
		case "shared_new":
			p, err := l.sharedNew(stem, arg(args))
			return uint64(p), err
		case "shared_delete":
			return 0, l.sharedDelete(stem, arg(args))
		case "shared_get":
			p, err := l.sharedGet(stem, arg(args))
			return uint64(p), err
		}
		return 0, ErrUnknownSymbol
	}

	return func(args ...uint64) (uint64, error) {
		l.mu.Lock()
		l.calls[symbol]++
		l.mu.Unlock()

		res, err := call(args)
		if err != nil {
			return 0, errors.New(errors.PhaseNative, errors.KindInvalidHandle).
				Symbol(symbol).
				Value(arg(args)).
				Cause(err).
				Build()
		}
		return res, nil
	}, nil
}

func parseSymbol(symbol string) (stem, op string, ok bool) {
	var prefix string
	switch {
	case strings.HasPrefix(symbol, "std_shared_ptr_op_"):
		prefix = "shared_"
		symbol = strings.TrimPrefix(symbol, "std_shared_ptr_op_")
	case strings.HasPrefix(symbol, "op_"):
		prefix = "op_"
		symbol = strings.TrimPrefix(symbol, "op_")
	default:
		return "", "", false
	}

	i := strings.LastIndexByte(symbol, '_')
	if i <= 0 {
		return "", "", false
	}
	stem, suffix := symbol[:i], symbol[i+1:]
	switch suffix {
	case "new", "delete":
	case "get":
		if prefix != "shared_" {
			return "", "", false
		}
	default:
		return "", "", false
	}
	return stem, prefix + suffix, true
}

func arg(args []uint64) native.Ptr {
	if len(args) == 0 {
		return 0
	}
	return native.Ptr(args[0])
}

func ptrOf(idx int) native.Ptr {
	return native.Ptr(ptrBase + idx*ptrStride)
}

func indexOf(p native.Ptr) (int, bool) {
	if p < ptrBase || (p-ptrBase)%ptrStride != 0 {
		return 0, false
	}
	return int((p - ptrBase) / ptrStride), true
}

// insert stores e and returns its pointer. Caller holds l.mu.
func (l *Library) insert(e entry) native.Ptr {
	if n := len(l.freeList); n > 0 {
		idx := l.freeList[n-1]
		l.freeList = l.freeList[:n-1]
		l.entries[idx] = e
		return ptrOf(idx)
	}
	l.entries = append(l.entries, e)
	return ptrOf(len(l.entries) - 1)
}

// free invalidates the entry at idx. Caller holds l.mu.
func (l *Library) free(idx int) {
	l.entries[idx] = entry{}
	l.freeList = append(l.freeList, idx)
}

// lookup returns the live entry for p, recording a violation otherwise.
// Caller holds l.mu.
func (l *Library) lookup(stem string, p native.Ptr, kind allocKind) (int, error) {
	if p.IsNull() {
		return 0, l.violate(ErrMissingPointer, p)
	}
	idx, ok := indexOf(p)
	if !ok || idx >= len(l.entries) || !l.entries[idx].valid {
		return 0, l.violate(ErrDoubleFree, p)
	}
	e := l.entries[idx]
	if e.kind != kind {
		return 0, l.violate(ErrWrongKind, p)
	}
	if e.stem != stem {
		return 0, l.violate(ErrStemMismatch, p)
	}
	return idx, nil
}

func (l *Library) violate(err error, p native.Ptr) error {
	v := fmt.Errorf("%w at %s", err, p)
	l.violations = append(l.violations, v)
	return v
}

func (l *Library) allocObject(stem string) native.Ptr {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0
	}
	p := l.insert(entry{stem: stem, kind: allocObject, valid: true})
	l.mu.Unlock()

	l.notify(Event{Type: EventAllocated, Stem: stem, Ptr: p})
	return p
}

func (l *Library) deleteObject(stem string, p native.Ptr) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	idx, err := l.lookup(stem, p, allocObject)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if l.entries[idx].useCount > 0 {
		err := l.violate(ErrHeldByShared, p)
		l.mu.Unlock()
		return err
	}
	l.free(idx)
	l.mu.Unlock()

	l.notify(Event{Type: EventFreed, Stem: stem, Ptr: p})
	return nil
}

func (l *Library) sharedNew(stem string, raw native.Ptr) (native.Ptr, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0, ErrClosed
	}
	idx, err := l.lookup(stem, raw, allocObject)
	if err != nil {
		l.mu.Unlock()
		return 0, err
	}
	if l.entries[idx].useCount > 0 {
		err := l.violate(ErrAlreadyShared, raw)
		l.mu.Unlock()
		return 0, err
	}
	l.entries[idx].useCount = 1
	p := l.insert(entry{stem: stem, kind: allocShared, target: raw, valid: true})
	l.mu.Unlock()

	l.notify(Event{Type: EventShared, Stem: stem, Ptr: p, Target: raw, UseCount: 1})
	return p, nil
}

func (l *Library) sharedDelete(stem string, p native.Ptr) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	idx, err := l.lookup(stem, p, allocShared)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	raw := l.entries[idx].target
	l.free(idx)

	events := make([]Event, 0, 2)
	if tidx, ok := indexOf(raw); ok && tidx < len(l.entries) && l.entries[tidx].valid {
		l.entries[tidx].useCount--
		use := l.entries[tidx].useCount
		events = append(events, Event{Type: EventReleased, Stem: stem, Ptr: p, Target: raw, UseCount: use})
		if use == 0 {
			l.free(tidx)
			events = append(events, Event{Type: EventFreed, Stem: stem, Ptr: raw})
		}
	}
	l.mu.Unlock()

	for _, e := range events {
		l.notify(e)
	}
	return nil
}

func (l *Library) sharedGet(stem string, p native.Ptr) (native.Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, ErrClosed
	}
	idx, err := l.lookup(stem, p, allocShared)
	if err != nil {
		return 0, err
	}
	return l.entries[idx].target, nil
}

// Copy emulates native code copying a shared pointer, as pipeline
// factories do when they hand out additional holders. The copy shares
// the control block of p.
func (l *Library) Copy(p native.Ptr) (native.Ptr, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0, ErrClosed
	}
	idx, ok := indexOf(p)
	if !ok || idx >= len(l.entries) || !l.entries[idx].valid || l.entries[idx].kind != allocShared {
		err := l.violate(ErrDoubleFree, p)
		l.mu.Unlock()
		return 0, err
	}
	src := l.entries[idx]
	tidx, _ := indexOf(src.target)
	l.entries[tidx].useCount++
	use := l.entries[tidx].useCount
	cp := l.insert(entry{stem: src.stem, kind: allocShared, target: src.target, valid: true})
	l.mu.Unlock()

	l.notify(Event{Type: EventShared, Stem: src.stem, Ptr: cp, Target: src.target, UseCount: use})
	return cp, nil
}
