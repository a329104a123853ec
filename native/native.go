package native

import (
	"fmt"
	"sync"
)

// Ptr is an opaque address of a native object or control block.
// Ptr 0 is the null pointer.
type Ptr uintptr

// IsNull reports whether p is the null pointer.
func (p Ptr) IsNull() bool {
	return p == 0
}

func (p Ptr) String() string {
	return fmt.Sprintf("%#x", uintptr(p))
}

// Func is a resolved native entry point. Arguments and the result travel
// as uint64; entry points returning void yield 0.
type Func func(args ...uint64) (uint64, error)

// Library resolves native entry points by symbol name.
type Library interface {
	// Name identifies the library in errors and logs.
	Name() string

	// Lookup resolves an exported entry point.
	Lookup(symbol string) (Func, error)
}

const sharedPrefix = "std_shared_ptr_op_"

// ObjectNew returns the symbol allocating a fresh object of stem.
func ObjectNew(stem string) string { return "op_" + stem + "_new" }

// ObjectDelete returns the symbol destroying an object of stem.
func ObjectDelete(stem string) string { return "op_" + stem + "_delete" }

// SharedNew returns the symbol constructing a shared pointer over a raw object.
func SharedNew(stem string) string { return sharedPrefix + stem + "_new" }

// SharedDelete returns the symbol releasing a shared pointer.
func SharedDelete(stem string) string { return sharedPrefix + stem + "_delete" }

// SharedGet returns the symbol reading the raw object held by a shared pointer.
func SharedGet(stem string) string { return sharedPrefix + stem + "_get" }

// Symbols lists every entry point a stem requires, objects first.
func Symbols(stem string) []string {
	return []string{
		ObjectNew(stem),
		ObjectDelete(stem),
		SharedNew(stem),
		SharedDelete(stem),
		SharedGet(stem),
	}
}

var (
	defaultMu  sync.RWMutex
	defaultLib Library
)

// SetDefault installs the process-wide library used by default registries.
// It must be called before the first default registry is created.
func SetDefault(lib Library) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLib = lib
}

// Default returns the process-wide library, if one was installed.
func Default() (Library, bool) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLib, defaultLib != nil
}
