// Package native defines the boundary between Go and the native OpenPose
// shim library.
//
// A native object is identified by an opaque Ptr with no ownership attached.
// A Library resolves exported entry points by symbol name, the way dlsym
// does for a shared object or ExportedFunction does for a WASM module:
//
//	fn, err := lib.Lookup(native.SharedNew("Producer"))
//	shared, err := fn(uint64(raw))
//
// # Symbols
//
// Every wrappable type is identified by a stem (e.g. "Producer",
// "UserWorkerOfDefault"). The shim exports, per stem:
//
//	op_<stem>_new()                        -> raw
//	op_<stem>_delete(raw)
//	std_shared_ptr_op_<stem>_new(raw)      -> shared
//	std_shared_ptr_op_<stem>_delete(shared)
//	std_shared_ptr_op_<stem>_get(shared)   -> raw
//
// # Implementations
//
//	native/simlib   in-process emulated heap, used by tests and demos
//	native/wasmlib  entry points exported by a wazero module
//	native/cgolib   the real shim over cgo (build tag "openpose")
package native
