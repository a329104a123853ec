package simlib

import (
	"github.com/wippyai/openpose-go/native"
)

// Calls returns how many times symbol was invoked.
func (l *Library) Calls(symbol string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[symbol]
}

// Violations returns the heap misuse recorded so far.
func (l *Library) Violations() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]error, len(l.violations))
	copy(out, l.violations)
	return out
}

// Live returns the number of live allocations, objects and shared
// pointers alike.
func (l *Library) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, e := range l.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// IsLive reports whether p refers to a live allocation.
func (l *Library) IsLive(p native.Ptr) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := indexOf(p)
	return ok && idx < len(l.entries) && l.entries[idx].valid
}

// UseCount returns the number of shared pointers owning the object raw.
func (l *Library) UseCount(raw native.Ptr) (uint32, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := indexOf(raw)
	if !ok || idx >= len(l.entries) {
		return 0, false
	}
	e := l.entries[idx]
	if !e.valid || e.kind != allocObject {
		return 0, false
	}
	return e.useCount, true
}

// Snapshot returns the live allocations in address order.
func (l *Library) Snapshot() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for i, e := range l.entries {
		if !e.valid {
			continue
		}
		out = append(out, Entry{
			Stem:     e.stem,
			Ptr:      ptrOf(i),
			Target:   e.target,
			UseCount: e.useCount,
			Shared:   e.kind == allocShared,
		})
	}
	return out
}

// Subscribe adds an observer for heap events.
func (l *Library) Subscribe(o Observer) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	l.observers = append(l.observers, o)
}

// Unsubscribe removes an observer.
func (l *Library) Unsubscribe(o Observer) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	for i, obs := range l.observers {
		if obs == o {
			l.observers = append(l.observers[:i], l.observers[i+1:]...)
			return
		}
	}
}

// Close tears the heap down. Allocations still live are reported as freed;
// later calls into the library fail with ErrClosed.
func (l *Library) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true

	var events []Event
	for i, e := range l.entries {
		if e.valid && e.kind == allocObject {
			events = append(events, Event{Type: EventFreed, Stem: e.stem, Ptr: ptrOf(i)})
		}
	}
	l.entries = nil
	l.freeList = nil
	l.mu.Unlock()

	for _, e := range events {
		l.notify(e)
	}
	return nil
}

func (l *Library) notify(e Event) {
	l.obsMu.RLock()
	defer l.obsMu.RUnlock()
	for _, o := range l.observers {
		o.OnNativeEvent(e)
	}
}
