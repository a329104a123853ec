// Package openpose is the Go binding layer for the native OpenPose shim.
//
// It maps the native library's reference-counted object model onto Go
// values: every native object is represented by a Go object carrying an
// opaque native pointer and a disposal state, and std::shared_ptr holders
// are represented by sharedptr.SharedPtr.
//
// # Architecture Overview
//
// The module is organized into several packages with distinct responsibilities:
//
//	openpose/            Root package: Object contract and the wrappable types
//	├── sharedptr/       Shared-ownership registry and shared pointer wrapper
//	├── native/          Native boundary: pointers, entry points, libraries
//	│   ├── simlib/      Emulated native heap for tests and demos
//	│   ├── wasmlib/     Native library hosted in a wazero module
//	│   └── cgolib/      The real shim over cgo (build tag "openpose")
//	├── errors/          Structured error types
//	└── cmd/sptr/        Inspection and demo CLI
//
// # Ownership
//
// An object created through a constructor such as NewProducer owns its
// native object and releases it on Close. A view built with ProducerView
// only observes: closing it never touches the native side.
//
// Handing an owned object to a shared pointer moves ownership out of it:
//
//	prod, err := openpose.NewProducer(lib)
//	if err != nil {
//	    return err
//	}
//	sp, err := sharedptr.Wrap(reg, prod)
//	if err != nil {
//	    return err
//	}
//	defer sp.Close()
//
//	view, err := sp.Get() // fresh non-owning view on every call
//
// After Wrap, prod.Close() is harmless; only the shared pointer releases
// the native object.
package openpose
