// Package sharedptr bridges native std::shared_ptr holders into Go.
//
// # Registry
//
// Every wrappable Go type maps to one Kind, and every Kind to the native
// operation set (construct, destroy, get) of the shared pointer holding it:
//
//	k, err := sharedptr.KindFor[*openpose.Producer]() // KindProducer
//	reg := sharedptr.NewRegistry(lib)
//	ops, err := reg.Ops(k)
//
// Lookup is by exact Go type first. Types that are not registered exactly
// fall back to the worker entries, in declaration order: an interface
// implemented by exactly one worker type (openpose.Worker[D]), or a struct
// pointer directly embedding a worker type.
//
// # Wrapper
//
// A SharedPtr owns one native shared pointer. It is created either by
// moving an owned object into a new shared pointer, or by attaching to a
// shared pointer the native side already produced:
//
//	sp, err := sharedptr.Wrap(reg, producer)     // producer no longer owns
//	sp, err := sharedptr.Attach[*openpose.Producer](reg, handle)
//
// Get returns a fresh non-owning view on each call. Close releases this
// holder's claim exactly once; the native object is destroyed only when
// its last holder is gone.
//
// Wrappers are not safe for concurrent use. The registry is.
package sharedptr
