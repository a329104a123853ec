// Package simlib provides an in-process emulation of the native OpenPose
// shim library.
//
// The emulated heap models what the binding layer relies on from the C++
// side: raw objects allocated through op_<stem>_new, and std::shared_ptr
// control blocks that own them. A shared pointer holds a use count on its
// object; the object is destroyed when the last shared pointer releases it.
//
//	lib := simlib.New()
//	newGui, _ := lib.Lookup(native.ObjectNew("Gui"))
//	raw, _ := newGui()
//
// # Violations
//
// Mistakes that would corrupt a real native heap are detected and recorded
// instead: freeing a pointer twice, deleting an object still owned by a
// shared pointer, or handing the same raw object to two independent shared
// pointers. Tests assert on Violations() to prove exactly-once release.
//
// # Observers
//
// Register observers to follow the heap:
//
//	lib.Subscribe(observer)
//
// Events are delivered after the heap lock is released, in call order.
package simlib
